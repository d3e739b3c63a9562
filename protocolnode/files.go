// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package protocolnode

import (
	"path/filepath"

	"github.com/verificatum/vcr/bytetree"
	"github.com/verificatum/vcr/fsutil"
)

const (
	intDecodeMaxDepth = 2
	intDecodeMaxBytes = 16
)

// GetFile returns the path of name inside this node's working directory.
// It performs no I/O.
func (n *Node) GetFile(name string) string {
	return filepath.Join(n.directory, name)
}

// ReadInt reads a byte-tree-encoded int32 file written by WriteInt.
func (n *Node) ReadInt(name string) (int, error) {
	data, err := fsutil.ReadFile(n.GetFile(name))
	if err != nil {
		return 0, err
	}
	tree, err := bytetree.Decode(data, intDecodeMaxDepth, intDecodeMaxBytes)
	if err != nil {
		return 0, err
	}
	v, err := bytetree.AsInt32(tree)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// WriteInt writes value as a byte-tree-encoded int32 file, replacing any
// previous contents atomically.
func (n *Node) WriteInt(name string, value int) error {
	return bytetree.Write(bytetree.Int32(int32(value)), n.GetFile(name))
}

// ReadBool reports whether the marker file name exists.
func (n *Node) ReadBool(name string) bool {
	return fsutil.Exists(n.GetFile(name))
}

// WriteBool creates the marker file name, replacing any previous one.
func (n *Node) WriteBool(name string) error {
	return fsutil.TouchMarker(n.GetFile(name))
}

// DeleteState releases this node's BulletinBoard scope (if attached,
// see AttachBoard) and recursively removes its working directory --
// spec.md §4.2's "delete_state releases both" the node's directory and
// its board's transport slots.
func (n *Node) DeleteState() error {
	if n.bb != nil {
		if err := n.bb.Unpublish(); err != nil {
			return err
		}
	}
	return fsutil.DeleteTree(n.directory)
}

// Close cleans up the temp-file registrar this node shares with the
// rest of its tree, without deleting the working directory DeleteState
// would remove. Nothing cleans the registrar at process exit unless
// Close is called. It is the orderly-shutdown counterpart to
// DeleteState: call it when the application is done with the tree but
// wants the on-disk state (active roster, counters) to survive.
func (n *Node) Close() error {
	return n.tmp.Cleanup()
}
