package screenshot

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveReturnsContentAddressedRef(t *testing.T) {
	store := NewStore(t.TempDir())
	png := []byte("\x89PNG fake image bytes")

	ref, err := store.Save(png)
	require.NoError(t, err)

	sum := sha256.Sum256(png)
	digest := hex.EncodeToString(sum[:])
	assert.Equal(t, filepath.Join(digest[:2], digest+".png"), ref)

	got, err := os.ReadFile(store.Path(ref))
	require.NoError(t, err)
	assert.Equal(t, png, got)
}

func TestSaveDeduplicates(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	png := []byte("identical capture")

	ref1, err := store.Save(png)
	require.NoError(t, err)
	ref2, err := store.Save(png)
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)

	var files int
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			files++
		}
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, files)
}

func TestSaveDistinctContent(t *testing.T) {
	store := NewStore(t.TempDir())

	ref1, err := store.Save([]byte("capture one"))
	require.NoError(t, err)
	ref2, err := store.Save([]byte("capture two"))
	require.NoError(t, err)
	assert.NotEqual(t, ref1, ref2)
}

func TestNilAndEmptySaves(t *testing.T) {
	var nilStore *Store
	ref, err := nilStore.Save([]byte("dropped"))
	require.NoError(t, err)
	assert.Empty(t, ref)
	assert.Empty(t, nilStore.Path("ab/abc.png"))

	store := NewStore(t.TempDir())
	ref, err = store.Save(nil)
	require.NoError(t, err)
	assert.Empty(t, ref)
}
