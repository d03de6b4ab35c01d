// Package screenshot stores page captures content-addressed on disk.
//
// References returned by Save are stable across runs: identical captures
// share one file. Audit records and publish results carry the reference, not
// the bytes.
package screenshot

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Store writes PNG captures under a base directory, fanned out by the first
// two hex digits of the content hash. A nil Store discards captures.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir. The directory is created lazily on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes png and returns its reference, "ab/abcdef….png". Saving the
// same content twice returns the same reference without rewriting the file.
func (s *Store) Save(png []byte) (string, error) {
	if s == nil || len(png) == 0 {
		return "", nil
	}

	sum := sha256.Sum256(png)
	digest := hex.EncodeToString(sum[:])
	ref := filepath.Join(digest[:2], digest+".png")
	path := filepath.Join(s.dir, ref)

	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}
	return ref, nil
}

// Path resolves a reference returned by Save to its absolute location.
func (s *Store) Path(ref string) string {
	if s == nil || ref == "" {
		return ""
	}
	return filepath.Join(s.dir, ref)
}
