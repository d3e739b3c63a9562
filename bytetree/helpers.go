// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bytetree

import (
	"encoding/binary"
	"fmt"

	"github.com/verificatum/vcr/vcrerr"
)

// Int32 encodes v as a LEAF of 4 big-endian bytes.
func Int32(v int32) *Tree {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return NewLeaf(b)
}

// AsInt32 decodes a 4-byte LEAF produced by Int32. It rejects any other
// shape.
func AsInt32(t *Tree) (int32, error) {
	if t == nil || !t.IsLeaf() || len(t.Leaf) != 4 {
		return 0, fmt.Errorf("%w: expected a 4-byte int32 leaf", vcrerr.ErrInvalidArg)
	}
	return int32(binary.BigEndian.Uint32(t.Leaf)), nil
}

// BoolArray encodes bs as a LEAF whose bytes are 0x00/0x01.
func BoolArray(bs []bool) *Tree {
	b := make([]byte, len(bs))
	for i, v := range bs {
		if v {
			b[i] = 1
		}
	}
	return NewLeaf(b)
}

// AsBoolArray decodes a LEAF produced by BoolArray, rejecting any byte
// that is not 0x00 or 0x01.
func AsBoolArray(t *Tree) ([]bool, error) {
	if t == nil || !t.IsLeaf() {
		return nil, fmt.Errorf("%w: expected a bool-array leaf", vcrerr.ErrInvalidArg)
	}
	out := make([]bool, len(t.Leaf))
	for i, b := range t.Leaf {
		switch b {
		case 0x00:
			out[i] = false
		case 0x01:
			out[i] = true
		default:
			return nil, fmt.Errorf("%w: byte %d of bool array is %#x, want 0x00 or 0x01", vcrerr.ErrInvalidArg, i, b)
		}
	}
	return out, nil
}

// String encodes s as a LEAF of its UTF-8 bytes.
func String(s string) *Tree {
	return NewLeaf([]byte(s))
}

// AsString decodes a LEAF produced by String.
func AsString(t *Tree) (string, error) {
	if t == nil || !t.IsLeaf() {
		return "", fmt.Errorf("%w: expected a string leaf", vcrerr.ErrInvalidArg)
	}
	return string(t.Leaf), nil
}
