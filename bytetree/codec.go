// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bytetree

import (
	"encoding/binary"
	"fmt"

	"github.com/verificatum/vcr/fsutil"
	"github.com/verificatum/vcr/vcrerr"
)

const (
	tagLeaf byte = 0x00
	tagNode byte = 0x01
)

// Encode produces the canonical byte image of t: a 1-byte tag, a
// big-endian 4-byte length, and either the leaf payload or the
// concatenated encodings of every child.
func Encode(t *Tree) []byte {
	var buf []byte
	appendEncoded(&buf, t)
	return buf
}

func appendEncoded(buf *[]byte, t *Tree) {
	switch t.Kind {
	case KindLeaf:
		*buf = append(*buf, tagLeaf)
		*buf = appendLen(*buf, len(t.Leaf))
		*buf = append(*buf, t.Leaf...)
	case KindNode:
		*buf = append(*buf, tagNode)
		*buf = appendLen(*buf, len(t.Children))
		for _, c := range t.Children {
			appendEncoded(buf, c)
		}
	}
}

func appendLen(buf []byte, n int) []byte {
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(n))
	return append(buf, lb[:]...)
}

// Write encodes t and atomically replaces the file at path (tmp file in
// the same directory, then rename).
func Write(t *Tree, path string) error {
	return fsutil.WriteFileAtomic(path, Encode(t))
}

// Decode parses bytes into a Tree, rejecting structures that nest deeper
// than maxDepth or that would consume more than maxBytes cumulative leaf
// payload. maxDepth counts the root as depth 1.
func Decode(data []byte, maxDepth, maxBytes int) (*Tree, error) {
	d := &decoder{data: data, maxDepth: maxDepth, maxBytes: maxBytes}
	t, n, err := d.decodeAt(0, 1)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, vcrerr.NewDecodeError(vcrerr.Truncated, "trailing bytes after a complete tree")
	}
	return t, nil
}

type decoder struct {
	data     []byte
	maxDepth int
	maxBytes int
	consumed int
}

// decodeAt parses one tree starting at offset off and returns the tree
// plus the offset just past it.
func (d *decoder) decodeAt(off, depth int) (*Tree, int, error) {
	if depth > d.maxDepth {
		return nil, 0, vcrerr.NewDecodeError(vcrerr.DepthExceeded, fmt.Sprintf("nesting exceeds max depth %d", d.maxDepth))
	}
	if off >= len(d.data) {
		return nil, 0, vcrerr.NewDecodeError(vcrerr.Truncated, "missing tag byte")
	}
	tag := d.data[off]
	off++
	if off+4 > len(d.data) {
		return nil, 0, vcrerr.NewDecodeError(vcrerr.Truncated, "missing length header")
	}
	length := int(binary.BigEndian.Uint32(d.data[off : off+4]))
	off += 4

	switch tag {
	case tagLeaf:
		if length < 0 || length >= 1<<31 {
			return nil, 0, vcrerr.NewDecodeError(vcrerr.BadLength, "leaf length out of range")
		}
		d.consumed += length
		if d.maxBytes >= 0 && d.consumed > d.maxBytes {
			return nil, 0, vcrerr.NewDecodeError(vcrerr.SizeExceeded, fmt.Sprintf("cumulative bytes exceed max %d", d.maxBytes))
		}
		if off+length > len(d.data) {
			return nil, 0, vcrerr.NewDecodeError(vcrerr.Truncated, "leaf payload runs past end of input")
		}
		return NewLeaf(d.data[off : off+length]), off + length, nil

	case tagNode:
		if length < 0 {
			return nil, 0, vcrerr.NewDecodeError(vcrerr.BadLength, "negative child count")
		}
		children := make([]*Tree, 0, length)
		cur := off
		for i := 0; i < length; i++ {
			child, next, err := d.decodeAt(cur, depth+1)
			if err != nil {
				return nil, 0, err
			}
			children = append(children, child)
			cur = next
		}
		return NewNode(children...), cur, nil

	default:
		return nil, 0, vcrerr.NewDecodeError(vcrerr.BadTag, fmt.Sprintf("tag byte %#x is neither LEAF nor NODE", tag))
	}
}
