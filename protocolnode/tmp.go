// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocolnode

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/verificatum/vcr/fsutil"
)

// tmpRegistrar replaces the design note's "Global mutable state
// (TempFile.init singleton)": instead of a process-wide static, the
// root ProtocolNode owns one and plumbs it down to every descendant
// through construction (spec.md §9). Paths registered below dir are
// best-effort cleaned up on Cleanup(), not automatically on process
// exit — callers that want that wire Cleanup into their own exit path.
type tmpRegistrar struct {
	mu    sync.Mutex
	dir   string
	paths []string
}

func newTmpRegistrar(dir string) *tmpRegistrar {
	return &tmpRegistrar{dir: dir}
}

// Dir returns the scratch directory this registrar tracks.
func (r *tmpRegistrar) Dir() string { return r.dir }

// NewPath reserves and tracks a fresh path under the registrar's
// directory for name; it does not create the file.
func (r *tmpRegistrar) NewPath(name string) string {
	path := filepath.Join(r.dir, name)
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	return path
}

// Cleanup best-effort removes every tracked path. A path that no longer
// exists is not a failure; a path os.Remove cannot remove is retried
// with fsutil.DeleteTree. Cleanup always attempts every path and
// returns the first DeleteTree error it hits, if any.
func (r *tmpRegistrar) Cleanup() error {
	r.mu.Lock()
	paths := r.paths
	r.paths = nil
	r.mu.Unlock()

	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if err := fsutil.DeleteTree(p); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
