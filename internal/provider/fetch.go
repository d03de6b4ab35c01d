package provider

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
)

// FetchToTemp downloads a remote image so a browser file input can consume
// it. The caller removes the file when done.
func FetchToTemp(ctx context.Context, url string) (string, error) {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	ext := filepath.Ext(url)
	if len(ext) > 5 || strings.ContainsAny(ext, "?&") {
		ext = ""
	}
	f, err := os.CreateTemp("", "presswork-image-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// StageAs copies a local file into a scratch directory under the given
// filename. File inputs take the upload name from the file on disk, so a
// staged copy is the only way to control what the media library records.
// The caller removes the returned file's parent directory when done.
func StageAs(path, filename string) (string, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("unusable upload filename %q", filename)
	}
	if filepath.Ext(name) == "" {
		name += filepath.Ext(path)
	}

	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dir, err := os.MkdirTemp("", "presswork-stage-")
	if err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)
	f, err := os.Create(dst)
	if err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		os.RemoveAll(dir)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	return dst, nil
}

// CheckURL fetches the URL with retries and accepts any 2xx response. Both
// providers use it to confirm a captured post URL actually serves.
func CheckURL(ctx context.Context, url string) error {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil

	req, err := retryablehttp.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
