// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package shutdown implements the two-round barrier of spec.md §4.6: a
// synchronized termination sequence run over a BulletinBoard so every
// active party observes that every other active party has reached the
// same point before anybody tears down its transport.
package shutdown

import (
	"context"
	"time"

	"github.com/verificatum/vcr/board"
	"github.com/verificatum/vcr/bytetree"
	"github.com/verificatum/vcr/protocolnode"
)

const (
	firstRoundLabel  = "shutdown_first_round"
	secondRoundLabel = "shutdown_second_round"

	// DefaultQuiescenceMillis is WAIT_FOR_OTHERS_MS: the window after
	// round 2 during which a slow peer can still read our round-2 slot
	// before we call transport.stop().
	DefaultQuiescenceMillis = 1000
)

// Params configures Execute. QuiescenceMillis <= 0 selects
// DefaultQuiescenceMillis.
type Params struct {
	QuiescenceMillis int
}

// Execute runs the two-round barrier against bb's active roster (read
// from node) and then stops bb's transport. It is only valid on a root
// BulletinBoard / root ProtocolNode pair.
//
// ctx cancellation makes a blocked round's fetch_from return Cancelled
// immediately; the quiescence sleep is likewise interruptible and, on
// cancellation, proceeds straight to Stop rather than returning an
// error, matching spec.md's "interruption means proceed immediately".
func Execute(ctx context.Context, bb *board.Board, node *protocolnode.Node, params Params) error {
	if err := round(ctx, bb, node, firstRoundLabel); err != nil {
		return err
	}
	if err := round(ctx, bb, node, secondRoundLabel); err != nil {
		return err
	}

	wait := params.QuiescenceMillis
	if wait <= 0 {
		wait = DefaultQuiescenceMillis
	}
	sleepInterruptible(ctx, time.Duration(wait)*time.Millisecond)

	return bb.Stop()
}

// round performs one labeled barrier: every active party publishes an
// empty leaf under label, then waits on every other active party's
// publication of the same label. Self is skipped on the fetch side
// since there is nothing to rendezvous with locally.
func round(ctx context.Context, bb *board.Board, node *protocolnode.Node, label string) error {
	self := node.J()
	k := node.K()

	if node.GetActiveParty(self) {
		if err := bb.Publish(label, bytetree.NewLeaf(nil)); err != nil {
			return err
		}
	}

	for i := 1; i <= k; i++ {
		if i == self || !node.GetActiveParty(i) {
			continue
		}
		if _, err := bb.FetchFrom(ctx, i, label); err != nil {
			return err
		}
	}
	return nil
}

// sleepInterruptible blocks for d or until ctx is cancelled, whichever
// comes first.
func sleepInterruptible(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
