// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fsutil provides the scoped-directory and atomic-file
// primitives every on-disk VCR structure is built from: a working
// directory is created once, files inside it are replaced atomically
// (write to a tmp file in the same directory, then rename), and a
// directory subtree can be deleted wholesale.
//
// No library in the retrieval pack offers this directly — the teacher
// repository's persistence is all in-memory (maps guarded by
// sync.Mutex), so this package is grounded on the standard library's
// os.Rename, which the POSIX atomic-rename guarantee we depend on comes
// from directly; wrapping it behind a third-party filesystem
// abstraction (e.g. afero) would add an indirection with no behavioral
// benefit since none of the pack's dependencies include one.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/verificatum/vcr/vcrerr"
)

// CreateScopedDir creates dir and dir/tmp, tolerating their prior
// existence (construction may be retried against a working directory a
// previous run already populated).
func CreateScopedDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create directory %s: %v", vcrerr.ErrResource, dir, err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "tmp"), 0o755); err != nil {
		return fmt.Errorf("%w: create tmp directory under %s: %v", vcrerr.ErrResource, dir, err)
	}
	return nil
}

// WriteFileAtomic writes data to path by writing a tmp file in the same
// directory and renaming it over path. The rename is atomic on a POSIX
// filesystem, so a reader never observes a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create tmp file in %s: %v", vcrerr.ErrResource, dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write tmp file %s: %v", vcrerr.ErrResource, tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: sync tmp file %s: %v", vcrerr.ErrResource, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close tmp file %s: %v", vcrerr.ErrResource, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: rename %s to %s: %v", vcrerr.ErrResource, tmpPath, path, err)
	}
	return nil
}

// RenameAtomic renames src to dst, both assumed to be on the same
// filesystem so the rename is atomic.
func RenameAtomic(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %v", vcrerr.ErrResource, src, dst, err)
	}
	return nil
}

// DeleteTree removes dir and everything below it.
func DeleteTree(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("%w: delete %s: %v", vcrerr.ErrResource, dir, err)
	}
	return nil
}

// Exists reports whether path exists, treating any stat error other than
// "not found" as false (callers that need to distinguish should use
// os.Stat directly).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ReadFile reads the entire file at path.
func ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", vcrerr.ErrResource, path, err)
	}
	return b, nil
}

// TouchMarker creates an empty marker file at path, replacing any file
// already there.
func TouchMarker(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: create marker %s: %v", vcrerr.ErrResource, path, err)
	}
	return f.Close()
}
