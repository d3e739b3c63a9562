// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocolnode

import (
	"fmt"
	"path/filepath"

	"github.com/verificatum/vcr/bytetree"
	"github.com/verificatum/vcr/fsutil"
	"github.com/verificatum/vcr/vcrerr"
)

const (
	activeFileName = "active"
	// The active file is always a single LEAF; these caps are generous
	// relative to any realistic party count so decoding it never fails
	// for a reason other than actual corruption.
	activeDecodeMaxDepth = 4
	activeDecodeMaxBytes = 1 << 20
)

func (n *Node) activeFilePath() string {
	return filepath.Join(n.root.directory, activeFileName)
}

// loadOrInitActive implements spec.md §4.2 step 4: read directory/active
// if present, otherwise default every party to active and persist it.
// Only called during root construction.
func (n *Node) loadOrInitActive() error {
	path := n.activeFilePath()
	if fsutil.Exists(path) {
		data, err := fsutil.ReadFile(path)
		if err != nil {
			return err
		}
		tree, err := bytetree.Decode(data, activeDecodeMaxDepth, activeDecodeMaxBytes)
		if err != nil {
			return err
		}
		active, err := bytetree.AsBoolArray(tree)
		if err != nil {
			return err
		}
		if len(active) != n.k+1 {
			return fmt.Errorf("%w: active file has %d entries, want %d", vcrerr.ErrInvalidArg, len(active), n.k+1)
		}
		n.active = active
		return nil
	}

	active := make([]bool, n.k+1)
	for i := 1; i <= n.k; i++ {
		active[i] = true
	}
	if err := n.persistActive(active); err != nil {
		return err
	}
	n.active = active
	return nil
}

func (n *Node) persistActive(active []bool) error {
	return bytetree.Write(bytetree.BoolArray(active), n.activeFilePath())
}

// GetActives returns a copy of the root's active-party roster.
func (n *Node) GetActives() []bool {
	root := n.root
	root.rosterMu.Lock()
	defer root.rosterMu.Unlock()
	out := make([]bool, len(root.active))
	copy(out, root.active)
	return out
}

// GetActiveParty reports whether party l is currently active.
func (n *Node) GetActiveParty(l int) bool {
	root := n.root
	root.rosterMu.Lock()
	defer root.rosterMu.Unlock()
	if l < 0 || l >= len(root.active) {
		return false
	}
	return root.active[l]
}

// GetActive reports whether this node's own party (j) is active.
func (n *Node) GetActive() bool {
	return n.GetActiveParty(n.j)
}

// SetActive replaces the root's active-party roster, persisting it
// atomically, and -- if a board is attached (see AttachBoard) --
// forwards the same roster to it, so a caller only has to call
// Node.SetActive once rather than separately keeping the node's and
// the board's rosters in sync. It rejects an array of the wrong
// length.
func (n *Node) SetActive(newActive []bool) error {
	root := n.root
	if len(newActive) != root.k+1 {
		return fmt.Errorf("%w: active array has %d entries, want %d", vcrerr.ErrInvalidArg, len(newActive), root.k+1)
	}

	root.rosterMu.Lock()
	defer root.rosterMu.Unlock()
	if err := root.persistActive(newActive); err != nil {
		return err
	}
	root.active = append([]bool(nil), newActive...)
	if root.bb != nil {
		root.bb.SetActive(newActive)
	}
	return nil
}
