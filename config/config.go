// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config resolves a ConfigSource (a plain map[string]string --
// the ".info"-file parser itself is out of scope, spec.md §1) into a
// typed Parameters the Supervisor uses to build a root ProtocolNode and
// BulletinBoard. FromMap does key recognition, defaulting, and range
// validation; nothing it returns ever triggers a filesystem mutation.
package config

import (
	"fmt"
	"strconv"

	"github.com/verificatum/vcr/vcrerr"
)

// ConfigSource produces the raw key/value parameters FromMap resolves.
// The only implementation this module ships is a plain map; a future
// ".info"-file parser would implement this same interface.
type ConfigSource interface {
	Values() map[string]string
}

// MapSource is a ConfigSource backed by a literal map, the form tests
// and cmd/vcrsupervisor build by hand.
type MapSource map[string]string

// Values implements ConfigSource.
func (m MapSource) Values() map[string]string { return map[string]string(m) }

// Recognized keys (spec.md §4.7 / §6).
const (
	KeySid         = "sid"
	KeyName        = "name"
	KeyDescription = "description"
	KeyParty       = "party"    // this party's index j; not in §4.7's list but required to build a Node
	KeyNopart      = "nopart"   // party count k
	KeyStatdist    = "statdist" // rbitlen
	KeyDirectory   = "directory"
	KeyRandomness  = "randomness"
	KeyCertainty   = "certainty" // cert
	KeyBullboard   = "bullboard" // transport class identifier

	KeyMaxWaitMillis     = "max_wait_millis"
	KeyMaxByteLength     = "max_byte_length"
	KeyMaxRecursionDepth = "max_recursion_depth"
	KeyQuiescenceMillis  = "quiescence_millis"
)

var recognizedKeys = map[string]bool{
	KeySid: true, KeyName: true, KeyDescription: true, KeyParty: true,
	KeyNopart: true, KeyStatdist: true, KeyDirectory: true,
	KeyRandomness: true, KeyCertainty: true, KeyBullboard: true,
	KeyMaxWaitMillis: true, KeyMaxByteLength: true, KeyMaxRecursionDepth: true,
	KeyQuiescenceMillis: true,
}

// Defaults (spec.md §6 "Parameters recognized by Supervisor").
const (
	DefaultDirectory         = "dir"
	DefaultRandomness        = "device:/dev/urandom"
	DefaultCertainty         = 50
	DefaultStatdist          = 100
	DefaultBullboard         = "http"
	DefaultMaxWaitMillis     = -1
	DefaultMaxByteLength     = 1 << 40
	DefaultMaxRecursionDepth = 10
	DefaultQuiescenceMillis  = 1000
)

// Parameters is the typed, validated result of resolving a ConfigSource.
// TransportParams carries every key the Supervisor didn't recognize as
// one of its own -- transport-specific subkeys, passed through verbatim
// to transport.Factory.
type Parameters struct {
	Sid         string
	Name        string
	Description string
	Party       int
	Nopart      int
	Statdist    int
	Directory   string
	Randomness  string
	Certainty   int
	Bullboard   string

	MaxWaitMillis     int64
	MaxByteLength     int64
	MaxRecursionDepth int
	QuiescenceMillis  int

	TransportParams map[string]string
}

// FromMap validates and defaults raw, returning vcrerr.ErrConfig-wrapped
// errors for any missing required key, unparseable value, or
// out-of-range value -- all before any constructor that touches the
// filesystem runs. A key it does not recognize is not an error: it is
// copied into TransportParams.
func FromMap(raw map[string]string) (Parameters, error) {
	p := Parameters{
		Directory:         DefaultDirectory,
		Randomness:        DefaultRandomness,
		Certainty:         DefaultCertainty,
		Statdist:          DefaultStatdist,
		Bullboard:         DefaultBullboard,
		MaxWaitMillis:     DefaultMaxWaitMillis,
		MaxByteLength:     DefaultMaxByteLength,
		MaxRecursionDepth: DefaultMaxRecursionDepth,
		QuiescenceMillis:  DefaultQuiescenceMillis,
		TransportParams:   map[string]string{},
	}

	for key, value := range raw {
		if !recognizedKeys[key] {
			p.TransportParams[key] = value
			continue
		}
		if err := p.setField(key, value); err != nil {
			return Parameters{}, err
		}
	}

	if p.Sid == "" {
		return Parameters{}, fmt.Errorf("%w: missing required key %q", vcrerr.ErrConfig, KeySid)
	}
	if p.Party == 0 {
		return Parameters{}, fmt.Errorf("%w: missing required key %q", vcrerr.ErrConfig, KeyParty)
	}
	if p.Nopart == 0 {
		return Parameters{}, fmt.Errorf("%w: missing required key %q", vcrerr.ErrConfig, KeyNopart)
	}

	if err := p.validate(); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

func (p *Parameters) setField(key, value string) error {
	switch key {
	case KeySid:
		p.Sid = value
	case KeyName:
		p.Name = value
	case KeyDescription:
		p.Description = value
	case KeyDirectory:
		p.Directory = value
	case KeyRandomness:
		p.Randomness = value
	case KeyBullboard:
		p.Bullboard = value
	case KeyParty:
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		p.Party = n
	case KeyNopart:
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		p.Nopart = n
	case KeyStatdist:
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		p.Statdist = n
	case KeyCertainty:
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		p.Certainty = n
	case KeyMaxWaitMillis:
		n, err := parseInt64(key, value)
		if err != nil {
			return err
		}
		p.MaxWaitMillis = n
	case KeyMaxByteLength:
		n, err := parseInt64(key, value)
		if err != nil {
			return err
		}
		p.MaxByteLength = n
	case KeyMaxRecursionDepth:
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		p.MaxRecursionDepth = n
	case KeyQuiescenceMillis:
		n, err := parseInt(key, value)
		if err != nil {
			return err
		}
		p.QuiescenceMillis = n
	default:
		return fmt.Errorf("%w: unrecognized key %q", vcrerr.ErrConfig, key)
	}
	return nil
}

func parseInt(key, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q has unparseable value %q", vcrerr.ErrConfig, key, value)
	}
	return n, nil
}

func parseInt64(key, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q has unparseable value %q", vcrerr.ErrConfig, key, value)
	}
	return n, nil
}

// validate enforces the ranges spec.md §8 attributes to InvalidArg when
// ProtocolNode itself checks them; FromMap pre-checks the same ranges so
// a bad config is rejected as ConfigError before any node is built.
func (p *Parameters) validate() error {
	if p.Nopart < 1 || p.Nopart > 25 {
		return fmt.Errorf("%w: nopart=%d must be in [1,25]", vcrerr.ErrConfig, p.Nopart)
	}
	if p.Party < 1 || p.Party > p.Nopart {
		return fmt.Errorf("%w: party=%d must be in [1,%d]", vcrerr.ErrConfig, p.Party, p.Nopart)
	}
	if p.Statdist < 0 || p.Statdist > 256 {
		return fmt.Errorf("%w: statdist=%d must be in [0,256]", vcrerr.ErrConfig, p.Statdist)
	}
	if p.Certainty < 1 || p.Certainty > 256 {
		return fmt.Errorf("%w: certainty=%d must be in [1,256]", vcrerr.ErrConfig, p.Certainty)
	}
	return nil
}
