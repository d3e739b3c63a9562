// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verificatum/vcr/log"
	"github.com/verificatum/vcr/vcrerr"
)

func newPair(t *testing.T, network string) (*Transport, *Transport) {
	t.Helper()
	p1, err := Factory(1, 2, map[string]string{"network": network})
	require.NoError(t, err)
	p2, err := Factory(2, 2, map[string]string{"network": network})
	require.NoError(t, err)
	tp1 := p1.(*Transport)
	tp2 := p2.(*Transport)
	require.NoError(t, tp1.Start(log.NewNoOp()))
	require.NoError(t, tp2.Start(log.NewNoOp()))
	return tp1, tp2
}

func TestPublishThenFetchReturnsSameBytes(t *testing.T) {
	p1, p2 := newPair(t, t.Name())

	require.NoError(t, p1.Publish("", "m", []byte{0x61, 0x62}))
	got, err := p2.Fetch(context.Background(), 1, "", "m", time.Time{})
	require.NoError(t, err)
	require.Equal(t, []byte{0x61, 0x62}, got)
}

func TestFetchBlocksUntilPublish(t *testing.T) {
	p1, p2 := newPair(t, t.Name())

	done := make(chan []byte, 1)
	go func() {
		got, err := p2.Fetch(context.Background(), 1, "", "m", time.Time{})
		require.NoError(t, err)
		done <- got
	}()

	select {
	case <-done:
		t.Fatal("fetch returned before publish")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, p1.Publish("", "m", []byte("hi")))
	select {
	case got := <-done:
		require.Equal(t, []byte("hi"), got)
	case <-time.After(time.Second):
		t.Fatal("fetch never unblocked after publish")
	}
}

func TestFetchTimesOut(t *testing.T) {
	_, p2 := newPair(t, t.Name())

	_, err := p2.Fetch(context.Background(), 1, "", "never", time.Now().Add(10*time.Millisecond))
	require.ErrorIs(t, err, vcrerr.ErrTimeout)
}

func TestFetchRefusesInactiveParty(t *testing.T) {
	_, p2 := newPair(t, t.Name())
	p2.SetActive([]bool{false, false, true})

	_, err := p2.Fetch(context.Background(), 1, "", "m", time.Time{})
	require.ErrorIs(t, err, vcrerr.ErrRefused)
}

func TestFetchCancelledByContext(t *testing.T) {
	_, p2 := newPair(t, t.Name())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p2.Fetch(ctx, 1, "", "m", time.Time{})
	require.ErrorIs(t, err, vcrerr.ErrCancelled)
}

func TestPublishSameLabelTwiceFails(t *testing.T) {
	p1, _ := newPair(t, t.Name())
	require.NoError(t, p1.Publish("", "m", []byte("a")))
	err := p1.Publish("", "m", []byte("b"))
	require.Error(t, err)
}

func TestUnpublishDropsOwnSlotsUnderScope(t *testing.T) {
	p1, p2 := newPair(t, t.Name())
	require.NoError(t, p1.Publish("child.s1", "m", []byte("a")))
	require.NoError(t, p1.Unpublish("child.s1"))

	_, err := p2.Fetch(context.Background(), 1, "child.s1", "m", time.Now().Add(10*time.Millisecond))
	require.ErrorIs(t, err, vcrerr.ErrTimeout)
}
