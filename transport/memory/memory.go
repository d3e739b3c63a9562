// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package memory implements transport.Transport as a channel-backed,
// in-process rendezvous: the supplemented concrete transport (SPEC_FULL.md
// §C.1) used by tests and by "vcrsupervisor -local" to drive the whole
// BulletinBoard state machine without a real network.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	vcrlog "github.com/verificatum/vcr/log"
	"github.com/verificatum/vcr/transport"
	"github.com/verificatum/vcr/vcrerr"
)

func init() {
	transport.Register("memory", Factory)
}

// Factory builds a memory Transport. params["network"] names the Hub
// to attach to; transports built with the same network name and
// process see each other's publications — this is how a single test
// binary simulates k independent parties.
func Factory(j, k int, params map[string]string) (transport.Transport, error) {
	name := params["network"]
	if name == "" {
		name = "default"
	}
	return &Transport{hub: sharedHub(name), j: j, k: k}, nil
}

type slotKey struct {
	fromParty int
	scopePath string
	label     string
}

type slot struct {
	mu        sync.Mutex
	payload   []byte
	published bool
	ready     chan struct{}
}

func newSlot() *slot {
	return &slot{ready: make(chan struct{})}
}

// Hub is the shared rendezvous state a set of in-process parties
// publish into and fetch from. It outlives any single Transport so
// that one party's delete_state doesn't disturb a peer mid-fetch.
type Hub struct {
	mu    sync.Mutex
	slots map[slotKey]*slot
}

var (
	hubsMu sync.Mutex
	hubs   = map[string]*Hub{}
)

// sharedHub returns the process-wide Hub registered under name,
// creating it on first use.
func sharedHub(name string) *Hub {
	hubsMu.Lock()
	defer hubsMu.Unlock()
	h, ok := hubs[name]
	if !ok {
		h = &Hub{slots: map[slotKey]*slot{}}
		hubs[name] = h
	}
	return h
}

func (h *Hub) slotFor(key slotKey) *slot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.slots[key]
	if !ok {
		s = newSlot()
		h.slots[key] = s
	}
	return s
}

// Transport is one party's view onto a Hub.
type Transport struct {
	hub *Hub
	j   int
	k   int

	mu      sync.Mutex
	active  []bool
	stopped bool
	log     vcrlog.Logger
}

// Start implements transport.Transport.
func (t *Transport) Start(log vcrlog.Logger) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.log = log
	t.active = make([]bool, t.k+1)
	for i := range t.active {
		t.active[i] = true
	}
	return nil
}

// Publish implements transport.Transport.
func (t *Transport) Publish(scopePath, label string, payload []byte) error {
	key := slotKey{fromParty: t.j, scopePath: scopePath, label: label}
	s := t.hub.slotFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.published {
		return fmt.Errorf("memory transport: label %q already published at scope %q", label, scopePath)
	}
	s.payload = payload
	s.published = true
	close(s.ready)
	return nil
}

// Fetch implements transport.Transport.
func (t *Transport) Fetch(ctx context.Context, fromParty int, scopePath, label string, deadline time.Time) ([]byte, error) {
	if !t.isActive(fromParty) {
		return nil, fmt.Errorf("%w: party %d is marked inactive", vcrerr.ErrRefused, fromParty)
	}

	key := slotKey{fromParty: fromParty, scopePath: scopePath, label: label}
	s := t.hub.slotFor(key)

	var timeoutCh <-chan time.Time
	if !deadline.IsZero() {
		d := time.Until(deadline)
		if d <= 0 {
			select {
			case <-s.ready:
			default:
				return nil, fmt.Errorf("%w: party %d label %q at scope %q", vcrerr.ErrTimeout, fromParty, label, scopePath)
			}
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-s.ready:
		s.mu.Lock()
		defer s.mu.Unlock()
		out := make([]byte, len(s.payload))
		copy(out, s.payload)
		return out, nil
	case <-timeoutCh:
		return nil, fmt.Errorf("%w: party %d label %q at scope %q", vcrerr.ErrTimeout, fromParty, label, scopePath)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", vcrerr.ErrCancelled, ctx.Err())
	}
}

// SetActive implements transport.Transport.
func (t *Transport) SetActive(active []bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = append([]bool(nil), active...)
}

func (t *Transport) isActive(party int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if party < 0 || party >= len(t.active) {
		return true
	}
	return t.active[party]
}

// Unpublish implements transport.Transport: it drops every slot this
// party has published at or below scopePath.
func (t *Transport) Unpublish(scopePath string) error {
	t.hub.mu.Lock()
	defer t.hub.mu.Unlock()
	prefix := scopePath + "/"
	for key := range t.hub.slots {
		if key.fromParty != t.j {
			continue
		}
		if scopePath == "" || key.scopePath == scopePath || strings.HasPrefix(key.scopePath, prefix) {
			delete(t.hub.slots, key)
		}
	}
	return nil
}

// Stop implements transport.Transport.
func (t *Transport) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	return nil
}
