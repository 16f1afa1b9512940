//go:build windows
// +build windows

// Package xos provides the atomic filesystem primitives the publisher and
// fingerprint store rely on. On Windows the target must be removed before
// the final rename, so the replace is not fully atomic; the temp file still
// guarantees readers never see partial content.
package xos

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFile writes data to the named file via a temp file in the same
// directory followed by a rename.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	done := false
	defer func() {
		if !done {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return err
	}

	if _, err := os.Stat(filename); err == nil {
		if err := os.Remove(filename); err != nil {
			return err
		}
	}
	if err := os.Rename(tmpName, filename); err != nil {
		return err
	}
	done = true
	return nil
}

// WriteReader streams r into the named file via a temp file and rename.
func WriteReader(filename string, r io.Reader, perm os.FileMode) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return WriteFile(filename, data, perm)
}

// CopyFile copies src to dst, preserving src.
func CopyFile(src, dst string, perm os.FileMode) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteReader(dst, f, perm)
}

// Symlink creates or replaces a symbolic link.
func Symlink(oldname, newname string) error {
	if _, err := os.Lstat(newname); err == nil {
		if err := os.Remove(newname); err != nil {
			return err
		}
	}
	return os.Symlink(oldname, newname)
}
