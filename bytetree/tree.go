// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bytetree implements Verificatum's self-describing recursive
// binary encoding: every file written to disk and every message put on
// the bulletin board is a ByteTree, a sum of LEAF(bytes) and
// NODE(children).
package bytetree

import "bytes"

// Kind tags whether a Tree is a leaf or an interior node.
type Kind uint8

const (
	KindLeaf Kind = 0
	KindNode Kind = 1
)

// maxLeafLen is the largest permitted leaf payload: lengths must fit in
// an unsigned 31-bit quantity so the 4-byte length header is never
// mistaken for a negative size by an implementation that treats it as
// signed.
const maxLeafLen = 1<<31 - 1

// Tree is a LEAF or a NODE. Exactly one of Leaf / Children is
// meaningful, selected by Kind.
type Tree struct {
	Kind     Kind
	Leaf     []byte
	Children []*Tree
}

// NewLeaf builds a LEAF node from bytes. The slice is not copied; callers
// must not mutate it after building the tree.
func NewLeaf(b []byte) *Tree {
	return &Tree{Kind: KindLeaf, Leaf: b}
}

// NewNode builds a NODE from an ordered list of children.
func NewNode(children ...*Tree) *Tree {
	return &Tree{Kind: KindNode, Children: children}
}

// IsLeaf reports whether t is a LEAF.
func (t *Tree) IsLeaf() bool { return t.Kind == KindLeaf }

// IsNode reports whether t is a NODE.
func (t *Tree) IsNode() bool { return t.Kind == KindNode }

// Equal reports whether two trees encode to the same canonical bytes.
// This is the wire-side equality check the format guarantees: the same
// tree always encodes to the same bytes.
func (t *Tree) Equal(other *Tree) bool {
	if t == nil || other == nil {
		return t == other
	}
	return bytes.Equal(Encode(t), Encode(other))
}
