// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import "strconv"

// Builder assembles a raw parameter map fluently, the way the teacher's
// config.Builder assembles Parameters for tests -- each call returns the
// same Builder so calls chain, and Build hands the result to FromMap.
type Builder struct {
	values map[string]string
}

// NewBuilder starts from a minimal valid single-party configuration:
// sid "s", party 1 of 1.
func NewBuilder() *Builder {
	return &Builder{values: map[string]string{
		KeySid:    "s",
		KeyParty:  "1",
		KeyNopart: "1",
	}}
}

// Set assigns a single raw key/value pair, overwriting any prior value.
func (b *Builder) Set(key, value string) *Builder {
	b.values[key] = value
	return b
}

// Parties sets party (1-indexed) and nopart together.
func (b *Builder) Parties(party, nopart int) *Builder {
	b.Set(KeyParty, strconv.Itoa(party))
	b.Set(KeyNopart, strconv.Itoa(nopart))
	return b
}

// Build resolves the accumulated raw map via FromMap.
func (b *Builder) Build() (Parameters, error) {
	return FromMap(b.values)
}
