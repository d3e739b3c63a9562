// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package random

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, path string, b byte) {
	t.Helper()
	seed := make([]byte, MinSeedLen)
	for i := range seed {
		seed[i] = b
	}
	require.NoError(t, os.WriteFile(path, seed, 0o600))
}

func TestPrgFillBeforeReseedFails(t *testing.T) {
	p := NewPrg()
	err := p.Fill(make([]byte, 16))
	require.Error(t, err)
}

func TestPrgReseedThenFillDeterministic(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "seed")
	tmpFile := filepath.Join(dir, "seed.tmp")
	writeSeed(t, seedFile, 0x42)

	p := NewPrg()
	require.NoError(t, p.ReseedFrom(seedFile, tmpFile))

	out1 := make([]byte, 64)
	require.NoError(t, p.Fill(out1))

	// A fresh Prg reseeded from an identically-seeded file (simulating a
	// second process that hadn't yet observed this run's rotation)
	// produces the same session stream: the derivation is a pure
	// function of the seed file's contents at the moment of ReseedFrom.
	seedFile2 := filepath.Join(dir, "seed2")
	writeSeed(t, seedFile2, 0x42)
	p2 := NewPrg()
	require.NoError(t, p2.ReseedFrom(seedFile2, filepath.Join(dir, "seed2.tmp")))
	out2 := make([]byte, 64)
	require.NoError(t, p2.Fill(out2))

	require.Equal(t, out1, out2)
}

// S5 from spec.md §8: the seed file rotates exactly once, atomically.
func TestReseedRotatesStoredSeed(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "seed")
	tmpFile := filepath.Join(dir, "seed.tmp")
	writeSeed(t, seedFile, 0x01)

	before, err := os.ReadFile(seedFile)
	require.NoError(t, err)

	p := NewPrg()
	require.NoError(t, p.ReseedFrom(seedFile, tmpFile))

	after, err := os.ReadFile(seedFile)
	require.NoError(t, err)
	require.NotEqual(t, before, after)

	// No leftover tmp file.
	_, err = os.Stat(tmpFile)
	require.True(t, os.IsNotExist(err))
}

func TestReseedTwiceProducesDifferentSessions(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "seed")
	writeSeed(t, seedFile, 0x7a)

	p := NewPrg()
	require.NoError(t, p.ReseedFrom(seedFile, filepath.Join(dir, "t1")))
	out1 := make([]byte, 32)
	require.NoError(t, p.Fill(out1))

	// Reseed again using the rotated seed file: this models the next
	// execution and must yield an independent stream.
	require.NoError(t, p.ReseedFrom(seedFile, filepath.Join(dir, "t2")))
	out2 := make([]byte, 32)
	require.NoError(t, p.Fill(out2))

	require.NotEqual(t, out1, out2)
}

func TestReseedFailsOnMissingSeedFile(t *testing.T) {
	dir := t.TempDir()
	p := NewPrg()
	err := p.ReseedFrom(filepath.Join(dir, "missing"), filepath.Join(dir, "tmp"))
	require.Error(t, err)

	// The instance must remain unusable.
	require.Error(t, p.Fill(make([]byte, 1)))
}

func TestReseedFailsOnShortSeedFile(t *testing.T) {
	dir := t.TempDir()
	seedFile := filepath.Join(dir, "seed")
	require.NoError(t, os.WriteFile(seedFile, []byte("short"), 0o600))

	p := NewPrg()
	err := p.ReseedFrom(seedFile, filepath.Join(dir, "tmp"))
	require.Error(t, err)
	require.Error(t, p.Fill(make([]byte, 1)))
}

func TestDeviceFillReadsRequestedLength(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "urandom-like")
	require.NoError(t, os.WriteFile(path, make([]byte, 1024), 0o600))

	d := NewDevice(path)
	defer d.Close()

	b := make([]byte, 256)
	require.NoError(t, d.Fill(b))
	require.Len(t, b, 256)
}
