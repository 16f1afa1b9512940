//go:build !windows
// +build !windows

// Package xos provides the atomic filesystem primitives the publisher and
// fingerprint store rely on: write-to-temp-then-rename files, atomically
// replaced symlinks, and version-sorted globbing for SDK discovery.
// No reader ever observes a truncated file through these helpers.
package xos

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// WriteFile writes data to the named file atomically using rename.
// If the file does not exist, WriteFile creates it with permissions perm;
// otherwise WriteFile truncates it before writing.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}

// WriteReader streams r into the named file atomically. The temporary file
// lives in the destination directory so the final rename never crosses a
// filesystem boundary.
func WriteReader(filename string, r io.Reader, perm os.FileMode) error {
	t, err := renameio.TempFile(filepath.Dir(filename), filename)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	if _, err := io.Copy(t, r); err != nil {
		return err
	}

	if err := t.Chmod(perm); err != nil {
		return err
	}

	return t.CloseAtomicallyReplace()
}

// CopyFile copies src to dst atomically, preserving src. dst is complete or
// absent; it is never observed half-written.
func CopyFile(src, dst string, perm os.FileMode) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteReader(dst, f, perm)
}

// Symlink atomically creates or replaces a symbolic link. A stale or broken
// link at newname is replaced, never an error.
func Symlink(oldname, newname string) error {
	return renameio.Symlink(oldname, newname)
}
