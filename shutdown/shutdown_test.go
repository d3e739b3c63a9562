// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package shutdown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/verificatum/vcr/board"
	"github.com/verificatum/vcr/log"
	"github.com/verificatum/vcr/protocolnode"
	"github.com/verificatum/vcr/transport/memory"
)

type fakeSource struct{}

func (fakeSource) Fill(b []byte) error {
	for i := range b {
		b[i] = 0x11
	}
	return nil
}

type party struct {
	node *protocolnode.Node
	bb   *board.Board
}

func newParty(t *testing.T, network string, j, k int) party {
	t.Helper()
	node, err := protocolnode.NewRoot(protocolnode.RootParams{
		K: k, J: j, Rbitlen: 100, Cert: 50,
		Sid: "shutdown-test", Role: "protocol",
		Directory: t.TempDir(),
		Random:    fakeSource{},
	})
	require.NoError(t, err)

	tr, err := memory.Factory(j, k, map[string]string{"network": network})
	require.NoError(t, err)
	bb, err := board.NewRoot(tr, j, k, board.DefaultCaps(), nil, node.FullName())
	require.NoError(t, err)
	require.NoError(t, bb.Start(log.NewNoOp()))

	return party{node: node, bb: bb}
}

// S6 from spec.md §8: with k=3 all active, each party observes exactly
// two publications (first and second round) from each peer before
// transport.stop().
func TestExecuteTwoRoundBarrierAllActive(t *testing.T) {
	network := t.Name()
	p1 := newParty(t, network, 1, 3)
	p2 := newParty(t, network, 2, 3)
	p3 := newParty(t, network, 3, 3)

	params := Params{QuiescenceMillis: 10}
	results := make(chan error, 3)
	for _, p := range []party{p1, p2, p3} {
		p := p
		go func() {
			results <- Execute(context.Background(), p.bb, p.node, params)
		}()
	}

	for i := 0; i < 3; i++ {
		select {
		case err := <-results:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("shutdown did not complete in time")
		}
	}

	require.Equal(t, board.Stopped, p1.bb.State())
	require.Equal(t, board.Stopped, p2.bb.State())
	require.Equal(t, board.Stopped, p3.bb.State())
}

func TestExecuteSkipsInactivePeers(t *testing.T) {
	network := t.Name()
	p1 := newParty(t, network, 1, 3)
	p2 := newParty(t, network, 2, 3)

	require.NoError(t, p1.node.SetActive([]bool{false, true, true, false}))
	p1.bb.SetActive([]bool{false, true, true, false})
	require.NoError(t, p2.node.SetActive([]bool{false, true, true, false}))
	p2.bb.SetActive([]bool{false, true, true, false})

	results := make(chan error, 2)
	for _, p := range []party{p1, p2} {
		p := p
		go func() {
			results <- Execute(context.Background(), p.bb, p.node, Params{QuiescenceMillis: 10})
		}()
	}

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("shutdown did not complete in time")
		}
	}
}

func TestExecuteCancelledContextSkipsQuiescenceDelay(t *testing.T) {
	network := t.Name()
	p1 := newParty(t, network, 1, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := Execute(ctx, p1.bb, p1.node, Params{QuiescenceMillis: 2000})
	require.NoError(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, board.Stopped, p1.bb.State())
}
