// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package random

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/verificatum/vcr/fsutil"
	"github.com/verificatum/vcr/vcrerr"
)

// MinSeedLen is the minimum acceptable length of a stored seed file. A
// shorter file cannot carry enough entropy to key the DRBG below and is
// rejected rather than silently padded.
const MinSeedLen = 32

// sessionKeyLen and nextSeedLen are the two independent outputs ReseedFrom
// derives from the current seed: one keys this session's Prg, the other
// replaces the on-disk seed for the next execution.
const (
	sessionKeyLen = 32
	nextSeedLen   = 32
)

// Prg is a PRG-backed RandomSource. It is not usable until ReseedFrom has
// completed successfully exactly once; every subsequent Fill expands an
// HMAC-SHA256 counter-mode keystream keyed by the session key derived at
// reseed time.
type Prg struct {
	mu       sync.Mutex
	key      []byte
	counter  uint64
	reseeded bool
}

// NewPrg returns an unseeded Prg. Fill fails until ReseedFrom succeeds.
func NewPrg() *Prg {
	return &Prg{}
}

// ReseedFrom implements the sequence of spec.md §4.4:
//
//  1. read the current contents of seedFile (error if missing or shorter
//     than MinSeedLen);
//  2. derive, from a keystream keyed by the current seed, the bytes that
//     seed this session's Prg and the bytes that replace the stored seed
//     — independent of each other because they are disjoint windows of
//     one expand() call;
//  3. write the new seed to tmpFile;
//  4. rename tmpFile over seedFile.
//
// If steps 3 or 4 fail, the Prg is left unusable: no byte of the
// keystream has been exposed to the caller, so a crash between deriving
// the new seed and completing the rename never lets two executions share
// a stream.
func (p *Prg) ReseedFrom(seedFile, tmpFile string) error {
	current, err := fsutil.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("%w: read seed file %s: %v", vcrerr.ErrResource, seedFile, err)
	}
	if len(current) < MinSeedLen {
		return fmt.Errorf("%w: seed file %s is %d bytes, want at least %d", vcrerr.ErrInvalidArg, seedFile, len(current), MinSeedLen)
	}

	derived := expand(current, sessionKeyLen+nextSeedLen)
	sessionKey := derived[:sessionKeyLen]
	nextSeed := derived[sessionKeyLen:]

	if err := fsutil.WriteFileAtomic(tmpFile, nextSeed); err != nil {
		return err
	}
	if err := fsutil.RenameAtomic(tmpFile, seedFile); err != nil {
		os.Remove(tmpFile)
		return err
	}

	p.mu.Lock()
	p.key = sessionKey
	p.counter = 0
	p.reseeded = true
	p.mu.Unlock()
	return nil
}

// Fill implements Source.
func (p *Prg) Fill(b []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.reseeded {
		return errNotReseeded
	}
	for len(b) > 0 {
		block := p.nextBlockLocked()
		n := copy(b, block)
		b = b[n:]
	}
	return nil
}

func (p *Prg) nextBlockLocked() []byte {
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], p.counter)
	p.counter++
	mac := hmac.New(sha256.New, p.key)
	mac.Write(ctr[:])
	return mac.Sum(nil)
}

// expand derives n bytes of keystream from key via HMAC-SHA256 counter
// mode: block i is HMAC(key, i). This is the same construction Fill
// uses internally, applied once to the stored seed at reseed time so the
// session key and the next stored seed come from disjoint counter
// windows of a single keyed stream.
func expand(key []byte, n int) []byte {
	out := make([]byte, 0, n)
	var counter uint64
	for len(out) < n {
		var ctr [8]byte
		binary.BigEndian.PutUint64(ctr[:], counter)
		counter++
		mac := hmac.New(sha256.New, key)
		mac.Write(ctr[:])
		out = append(out, mac.Sum(nil)...)
	}
	return out[:n]
}
