// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package metrics wires the root BulletinBoard's four cumulative
// counters (spec.md §3 "Counters (root BB only)") to real Prometheus
// collectors instead of plain in-memory ints, the way the teacher
// repository's metrics package registers consensus counters against a
// prometheus.Registerer.
package metrics

import (
	"fmt"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// counter pairs a Prometheus collector (for external scraping) with an
// atomic mirror so callers inside the process — Snapshot, tests — can
// read the exact current value without going through the Prometheus
// registry.
type counter struct {
	prom prometheus.Counter
	v    atomic.Uint64
}

func newCounter(opts prometheus.CounterOpts) *counter {
	return &counter{prom: prometheus.NewCounter(opts)}
}

// Add increments the counter by delta, which must be non-negative: the
// four board counters are cumulative and must never decrease (spec.md
// §8 invariant 7).
func (c *counter) Add(delta uint64) {
	c.v.Add(delta)
	c.prom.Add(float64(delta))
}

// Read returns the counter's current cumulative value.
func (c *counter) Read() uint64 {
	return c.v.Load()
}

// Collector exposes the underlying Prometheus collector for
// registration.
func (c *counter) Collector() prometheus.Collector { return c.prom }

// Reset zeroes the in-process mirror only. The Prometheus collector is
// left untouched: a scraped counter must never decrease, but the
// BulletinBoard's own net_millis_cumulative is explicitly reset once
// after startup synchronization (spec.md §4.5 clear_total_network_time)
// to start its accounting epoch at the point steady-state traffic
// begins. The exported Prometheus series keeps the pre-reset total, so
// external monitoring never observes a rollback.
func (c *counter) Reset() {
	c.v.Store(0)
}

// BoardMetrics are the four monotonic counters a root BulletinBoard
// accumulates over its lifetime: sent_bytes, recv_bytes,
// net_millis_cumulative, wait_millis_cumulative.
type BoardMetrics struct {
	SentBytes  *counter
	RecvBytes  *counter
	NetMillis  *counter
	WaitMillis *counter
}

// New builds BoardMetrics namespaced by rootName and, if reg is
// non-nil, registers each counter's Prometheus collector against it.
func New(reg prometheus.Registerer, rootName string) (*BoardMetrics, error) {
	labels := prometheus.Labels{"root": rootName}
	m := &BoardMetrics{
		SentBytes: newCounter(prometheus.CounterOpts{
			Namespace: "vcr", Subsystem: "board", Name: "sent_bytes_total",
			Help: "Cumulative bytes published to the bulletin board.", ConstLabels: labels,
		}),
		RecvBytes: newCounter(prometheus.CounterOpts{
			Namespace: "vcr", Subsystem: "board", Name: "recv_bytes_total",
			Help: "Cumulative bytes fetched from the bulletin board.", ConstLabels: labels,
		}),
		NetMillis: newCounter(prometheus.CounterOpts{
			Namespace: "vcr", Subsystem: "board", Name: "net_millis_total",
			Help: "Cumulative milliseconds spent in transport publish calls.", ConstLabels: labels,
		}),
		WaitMillis: newCounter(prometheus.CounterOpts{
			Namespace: "vcr", Subsystem: "board", Name: "wait_millis_total",
			Help: "Cumulative milliseconds spent in transport fetch calls, including waiting for the peer to publish.", ConstLabels: labels,
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []*counter{m.SentBytes, m.RecvBytes, m.NetMillis, m.WaitMillis} {
		if err := reg.Register(c.Collector()); err != nil {
			return nil, fmt.Errorf("register board metric: %w", err)
		}
	}
	return m, nil
}

// Counts is a point-in-time read of BoardMetrics' four counters.
type Counts struct {
	SentBytes  uint64
	RecvBytes  uint64
	NetMillis  uint64
	WaitMillis uint64
}

// ResetNetMillis zeroes the in-process net_millis_cumulative mirror;
// see counter.Reset for why the Prometheus series is unaffected.
func (m *BoardMetrics) ResetNetMillis() {
	m.NetMillis.Reset()
}

// Snapshot reads all four counters.
func (m *BoardMetrics) Snapshot() Counts {
	return Counts{
		SentBytes:  m.SentBytes.Read(),
		RecvBytes:  m.RecvBytes.Read(),
		NetMillis:  m.NetMillis.Read(),
		WaitMillis: m.WaitMillis.Read(),
	}
}
