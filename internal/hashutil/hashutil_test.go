package hashutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringIsDeterministic(t *testing.T) {
	a := String("main")
	b := String("main")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, String("master"))
}

func TestShort(t *testing.T) {
	d := String("/work/repo")
	assert.Equal(t, d[:12], Short("/work/repo", 12))
	assert.Equal(t, d, Short("/work/repo", 200))
}

func TestFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "artifact")
	require.NoError(t, os.WriteFile(path, []byte("binary contents"), 0o644))

	id, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, int64(15), id.Size)
	assert.False(t, id.SizeOnly)
	assert.Len(t, id.Digest, 64)

	// Same content, same digest.
	other := filepath.Join(dir, "copy")
	require.NoError(t, os.WriteFile(other, []byte("binary contents"), 0o644))
	id2, err := File(other)
	require.NoError(t, err)
	assert.Equal(t, id.Digest, id2.Digest)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
