package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageAsCopiesUnderNewName(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tmp-12345.png")
	require.NoError(t, os.WriteFile(src, []byte("image-bytes"), 0o644))

	staged, err := StageAs(src, "hero-shot.png")
	require.NoError(t, err)
	defer os.RemoveAll(filepath.Dir(staged))

	assert.Equal(t, "hero-shot.png", filepath.Base(staged))
	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "image-bytes", string(data))

	// The original is untouched.
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestStageAsInheritsExtensionWhenMissing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "download.webp")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	staged, err := StageAs(src, "coffee-grinder")
	require.NoError(t, err)
	defer os.RemoveAll(filepath.Dir(staged))

	assert.Equal(t, "coffee-grinder.webp", filepath.Base(staged))
}

func TestStageAsStripsDirectoryComponents(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	staged, err := StageAs(src, "../../etc/hero.png")
	require.NoError(t, err)
	defer os.RemoveAll(filepath.Dir(staged))

	assert.Equal(t, "hero.png", filepath.Base(staged))
	assert.Equal(t, filepath.Dir(staged), filepath.Clean(filepath.Dir(staged)))
}

func TestStageAsRejectsEmptyName(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	_, err := StageAs(src, "")
	assert.Error(t, err)
}

func TestFetchToTempDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png-payload"))
	}))
	defer srv.Close()

	path, err := FetchToTemp(context.Background(), srv.URL+"/img/cat.png")
	require.NoError(t, err)
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-payload", string(data))
	assert.Equal(t, ".png", filepath.Ext(path))
}

func TestFetchToTempNon200Fails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchToTemp(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
}

func TestCheckURLAcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	assert.NoError(t, CheckURL(context.Background(), srv.URL))
}

func TestCheckURLRejects404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	assert.Error(t, CheckURL(context.Background(), srv.URL))
}
