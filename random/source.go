// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package random implements the two RandomSource variants of spec.md
// §3/§4.4/§4.4: a Device that delegates to an OS entropy file, and a Prg
// that must be reseeded exactly once, atomically, before it produces its
// first byte.
//
// Individual cryptographic primitives are out of scope for VCR (spec.md
// §1); the PRG here is not one of those — it is the reseed-on-start
// plumbing spec.md §3/§4.4 names as a first-class part of the core, and
// is grounded on the standard library's crypto/hmac + crypto/sha256
// since no third-party DRBG appears anywhere in the retrieval pack.
package random

import "github.com/verificatum/vcr/vcrerr"

// Source is the RandomSource trait: fill bytes with cryptographically
// appropriate randomness. Implementations must be safe for concurrent
// use — a Prg is typically protected by an internal mutex; a Device
// delegates the concurrency guarantee to the OS.
type Source interface {
	// Fill writes exactly len(b) bytes into b.
	Fill(b []byte) error
}

// errNotReseeded is returned by Prg.Fill before ReseedFrom has succeeded
// once.
var errNotReseeded = wrapFatal("prg used before a successful reseed")

func wrapFatal(msg string) error {
	return &fatalError{msg: msg}
}

type fatalError struct{ msg string }

func (e *fatalError) Error() string { return "vcr: fatal: " + e.msg }
func (e *fatalError) Unwrap() error { return vcrerr.ErrFatal }
