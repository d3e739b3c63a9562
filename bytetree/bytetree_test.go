// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bytetree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verificatum/vcr/fsutil"
	"github.com/verificatum/vcr/vcrerr"
)

func TestLeafRoundTrip(t *testing.T) {
	leaf := NewLeaf([]byte{0x61, 0x62})
	enc := Encode(leaf)
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x02, 0x61, 0x62}, enc)

	dec, err := Decode(enc, 10, -1)
	require.NoError(t, err)
	require.True(t, leaf.Equal(dec))
}

// S2 from spec.md §8: two-party bulletin rendezvous byte image.
func TestLeafEncodingMatchesSpecScenario(t *testing.T) {
	enc := Encode(NewLeaf([]byte{0x61, 0x62}))
	require.Equal(t, []byte{0x00, 0x00, 0x00, 0x00, 0x02, 0x61, 0x62}, enc)
}

func TestNodeRoundTrip(t *testing.T) {
	tree := NewNode(
		NewLeaf([]byte("a")),
		NewNode(NewLeaf([]byte("b")), NewLeaf([]byte("c"))),
	)
	enc := Encode(tree)
	dec, err := Decode(enc, 10, -1)
	require.NoError(t, err)
	require.True(t, tree.Equal(dec))
}

func TestEmptyNodeRoundTrip(t *testing.T) {
	tree := NewNode()
	dec, err := Decode(Encode(tree), 10, -1)
	require.NoError(t, err)
	require.True(t, tree.Equal(dec))
}

func TestEncodeStableAcrossCalls(t *testing.T) {
	tree := NewNode(NewLeaf([]byte("x")), Int32(42), BoolArray([]bool{true, false}))
	require.Equal(t, Encode(tree), Encode(tree))
}

// S4 from spec.md §8: depth cap rejects an 11-deep NODE when max_depth=10.
func TestDecodeDepthExceeded(t *testing.T) {
	var tree *Tree = NewLeaf([]byte("bottom"))
	for i := 0; i < 11; i++ {
		tree = NewNode(tree)
	}
	// tree now nests 12 deep (11 NODE wrappers + 1 leaf); encode and
	// decode with a cap that must reject it.
	_, err := Decode(Encode(tree), 10, -1)
	require.Error(t, err)
	var de *vcrerr.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, vcrerr.DepthExceeded, de.Kind)
}

func TestDecodeWithinDepthSucceeds(t *testing.T) {
	var tree *Tree = NewLeaf([]byte("bottom"))
	for i := 0; i < 9; i++ {
		tree = NewNode(tree)
	}
	_, err := Decode(Encode(tree), 10, -1)
	require.NoError(t, err)
}

// S3 from spec.md §8: size cap rejects a leaf whose cumulative bytes
// exceed max_byte_length.
func TestDecodeSizeExceeded(t *testing.T) {
	leaf := NewLeaf(make([]byte, 100))
	_, err := Decode(Encode(leaf), 10, 99)
	require.Error(t, err)
	var de *vcrerr.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, vcrerr.SizeExceeded, de.Kind)
}

func TestDecodeTruncated(t *testing.T) {
	full := Encode(NewLeaf([]byte("hello")))
	_, err := Decode(full[:len(full)-2], 10, -1)
	require.Error(t, err)
	var de *vcrerr.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, vcrerr.Truncated, de.Kind)
}

func TestDecodeBadTag(t *testing.T) {
	data := []byte{0x02, 0x00, 0x00, 0x00, 0x00}
	_, err := Decode(data, 10, -1)
	require.Error(t, err)
	var de *vcrerr.DecodeError
	require.ErrorAs(t, err, &de)
	require.Equal(t, vcrerr.BadTag, de.Kind)
}

func TestDecodeTrailingBytesRejected(t *testing.T) {
	enc := Encode(NewLeaf([]byte("a")))
	enc = append(enc, 0xFF)
	_, err := Decode(enc, 10, -1)
	require.Error(t, err)
}

func TestInt32RoundTrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 42, 1 << 30, -(1 << 30)} {
		tree := Int32(v)
		got, err := AsInt32(tree)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestAsInt32RejectsWrongShape(t *testing.T) {
	_, err := AsInt32(NewLeaf([]byte{1, 2, 3}))
	require.Error(t, err)
	_, err = AsInt32(NewNode())
	require.Error(t, err)
}

func TestBoolArrayRoundTrip(t *testing.T) {
	bs := []bool{true, false, false, true, true}
	got, err := AsBoolArray(BoolArray(bs))
	require.NoError(t, err)
	require.Equal(t, bs, got)
}

func TestAsBoolArrayRejectsBadByte(t *testing.T) {
	bad := NewLeaf([]byte{0x00, 0x02, 0x01})
	_, err := AsBoolArray(bad)
	require.Error(t, err)
}

func TestStringRoundTrip(t *testing.T) {
	s := "role.sid-123"
	got, err := AsString(String(s))
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestWriteIsAtomicAndReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "active")
	tree := BoolArray([]bool{false, true, false, true})

	require.NoError(t, Write(tree, path))

	data, err := fsutil.ReadFile(path)
	require.NoError(t, err)
	dec, err := Decode(data, 10, -1)
	require.NoError(t, err)
	require.True(t, tree.Equal(dec))
}
