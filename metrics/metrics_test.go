// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllFourCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "root-party")
	require.NoError(t, err)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 4)
}

func TestNewWithNilRegistererSkipsRegistration(t *testing.T) {
	m, err := New(nil, "root-party")
	require.NoError(t, err)
	require.NotNil(t, m)

	m.SentBytes.Add(10)
	require.Equal(t, uint64(10), m.SentBytes.Read())
}

func TestSnapshotReflectsAdds(t *testing.T) {
	m, err := New(nil, "root-party")
	require.NoError(t, err)

	m.SentBytes.Add(100)
	m.RecvBytes.Add(50)
	m.NetMillis.Add(12)
	m.WaitMillis.Add(7)

	got := m.Snapshot()
	require.Equal(t, Counts{SentBytes: 100, RecvBytes: 50, NetMillis: 12, WaitMillis: 7}, got)

	// Counters are cumulative: a second round of activity only adds.
	m.SentBytes.Add(5)
	require.Equal(t, uint64(105), m.Snapshot().SentBytes)
}

func TestResetNetMillisZeroesMirrorOnly(t *testing.T) {
	m, err := New(nil, "root-party")
	require.NoError(t, err)

	m.NetMillis.Add(500)
	m.ResetNetMillis()
	require.Equal(t, uint64(0), m.Snapshot().NetMillis)

	m.NetMillis.Add(10)
	require.Equal(t, uint64(10), m.Snapshot().NetMillis)
}

func TestNewFailsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg, "dup")
	require.NoError(t, err)

	_, err = New(reg, "dup")
	require.Error(t, err)
}
