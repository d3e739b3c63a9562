// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package set implements a generic set data structure. protocolnode's
// nameRegistry is the one consumer in this module: it keeps the set of
// full_name strings already claimed in one protocol tree (spec.md §8
// invariant 3, "any two ProtocolNode instances ... have distinct
// full_name"), so a second NewChild call with a colliding full_name in
// the same tree is rejected instead of silently aliasing state on disk.
// Each NewRoot starts its own registry.
package set

import (
	"golang.org/x/exp/maps"
)

// Set is a set of unique elements.
type Set[T comparable] map[T]struct{}

// Of returns a Set initialized with elts.
func Of[T comparable](elts ...T) Set[T] {
	s := make(Set[T], len(elts))
	s.Add(elts...)
	return s
}

// Add claims elts, e.g. nameRegistry.claim adding a newly-constructed
// node's full_name.
func (s Set[T]) Add(elts ...T) {
	for _, elt := range elts {
		s[elt] = struct{}{}
	}
}

// Contains reports whether elt is already claimed.
func (s Set[T]) Contains(elt T) bool {
	_, ok := s[elt]
	return ok
}

// Remove releases elts from the set.
func (s Set[T]) Remove(elts ...T) {
	for _, elt := range elts {
		delete(s, elt)
	}
}

// Clear releases every claimed element.
func (s Set[T]) Clear() {
	maps.Clear(s)
}

// Len returns the number of claimed elements.
func (s Set[T]) Len() int {
	return len(s)
}

// List returns the claimed elements as a slice, in no particular
// order; a caller that needs a stable order (e.g. to log every
// full_name in this execution) must sort it itself.
func (s Set[T]) List() []T {
	return maps.Keys(s)
}

// Equals reports whether s and other have claimed the same elements.
func (s Set[T]) Equals(other Set[T]) bool {
	return maps.Equal(s, other)
}

// Clone returns a copy of s, so a caller can inspect a snapshot of the
// registry without being able to mutate the live set.
func (s Set[T]) Clone() Set[T] {
	result := make(Set[T], s.Len())
	maps.Copy(result, s)
	return result
}
