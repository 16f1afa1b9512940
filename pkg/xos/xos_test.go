//go:build !windows
// +build !windows

package xos

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomicReplace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out")

	require.NoError(t, WriteFile(path, []byte("first"), 0o644))
	require.NoError(t, WriteFile(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCopyFilePreservesSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	require.NoError(t, CopyFile(src, dst, 0o755))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestCopyFileFailureLeavesExistingTarget(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(dst, []byte("stable"), 0o644))

	err := CopyFile(filepath.Join(dir, "missing"), dst, 0o755)
	assert.Error(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "stable", string(data))
}

func TestWriteReaderFailureMidStream(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(dst, []byte("intact"), 0o644))

	err := WriteReader(dst, failingReader{}, 0o644)
	assert.Error(t, err)

	// The prior artifact stays reachable and complete.
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "intact", string(data))
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) {
	return 0, os.ErrClosed
}

func TestSymlinkReplacesStaleLink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	link := filepath.Join(dir, "link")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))

	// Broken link first; replacement must still succeed.
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), link))
	require.NoError(t, Symlink(target, link))

	resolved, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, target, resolved)

	// Idempotent.
	require.NoError(t, Symlink(target, link))
}

func TestVersionSortedGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"9.0.0", "27.0.12077973", "26.1.10909125", "25.2.9519653"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0o755))
	}

	matches, err := VersionSortedGlob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	require.Len(t, matches, 4)
	assert.Equal(t, "27.0.12077973", filepath.Base(matches[0]))
	assert.Equal(t, "9.0.0", filepath.Base(matches[3]))
}

func TestVersionSortedGlobNoMatches(t *testing.T) {
	matches, err := VersionSortedGlob(filepath.Join(t.TempDir(), "nothing-*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVersionLessMixedComponents(t *testing.T) {
	assert.True(t, versionLess("r25b", "r26a"))
	assert.True(t, versionLess("1.2", "1.2.3"))
	assert.False(t, versionLess("2", "1"))
}
