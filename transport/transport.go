// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transport defines the capability contract the BulletinBoard
// consumes to move bytes between parties, and a string-keyed registry
// of concrete implementations selected by the Supervisor's "bullboard"
// parameter. Design note §9: "Runtime class loading of transport and
// info generators ... replace with a registry keyed by string → factory
// function."
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	vcrlog "github.com/verificatum/vcr/log"
)

// Transport is the capability BulletinBoard consumes. A scope_path is a
// "/"-separated string of role.sid segments (see spec.md §6); a label
// is a non-empty printable string unique per (scope, publisher).
//
// publish and fetch may be invoked concurrently from multiple
// goroutines for distinct labels; per-label serialization is this
// transport's duty, not the caller's.
type Transport interface {
	// Start begins serving this party's published slots.
	Start(log vcrlog.Logger) error

	// Publish advertises bytes under (scopePath, label) so a peer's
	// Fetch for this party will succeed.
	Publish(scopePath, label string, payload []byte) error

	// Fetch retrieves fromParty's published bytes at (scopePath,
	// label), blocking until available or deadline elapses. A zero
	// deadline means wait indefinitely.
	Fetch(ctx context.Context, fromParty int, scopePath, label string, deadline time.Time) ([]byte, error)

	// SetActive tells the transport which parties (1-indexed, index 0
	// unused) are currently active, so it stops blocking on fetches
	// addressed to an inactive party.
	SetActive(active []bool)

	// Unpublish drops every slot below scopePath (used by
	// ProtocolNode.DeleteState).
	Unpublish(scopePath string) error

	// Stop drains in-flight operations and releases resources.
	Stop() error
}

// Factory builds a Transport from party-local configuration: this
// party's index j, party count k, and transport-specific subkeys
// already resolved by config.FromMap.
type Factory func(j, k int, params map[string]string) (Transport, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register adds a transport factory under name, overwriting any prior
// registration. Concrete transports call this from an init function,
// the way the default http and memory implementations in this module
// do, so the Supervisor's "bullboard" parameter can select them by
// string without reflection.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New builds the Transport registered under name.
func New(name string, j, k int, params map[string]string) (Transport, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("transport: no factory registered for %q", name)
	}
	return factory(j, k, params)
}
