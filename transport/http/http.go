// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package http implements transport.Transport as the default
// "HTTP-based point-to-point fetcher" spec.md §1 names: each party
// serves its own published slots over HTTP, and Fetch polls the
// addressed peer's endpoint until the slot appears, the deadline
// passes, or the peer refuses. Outbound dials are gated by a bounded
// pool built on golang.org/x/sync/errgroup, the "executor with
// per-core threads" design note (§9) reborn as a worker-pool
// capability instead of a raw goroutine-per-request fan-out.
package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	vcrlog "github.com/verificatum/vcr/log"
	"github.com/verificatum/vcr/transport"
	"github.com/verificatum/vcr/vcrerr"
)

func init() {
	transport.Register("http", Factory)
}

const defaultPollInterval = 50 * time.Millisecond

// Factory builds the default HTTP Transport. Recognized params:
//
//	listen               this party's "host:port" to serve from.
//	peer.<i>             base URL of party i, for every active peer
//	                      other than this party.
//	poll_interval_ms      Fetch's retry cadence (default 50ms).
//	max_dials             size of the outbound dial pool (default
//	                      runtime.NumCPU()).
func Factory(j, k int, params map[string]string) (transport.Transport, error) {
	peers := make(map[int]string, k)
	for i := 1; i <= k; i++ {
		if i == j {
			continue
		}
		peerURL, ok := params[fmt.Sprintf("peer.%d", i)]
		if !ok {
			return nil, fmt.Errorf("%w: http transport missing peer.%d", vcrerr.ErrConfig, i)
		}
		peers[i] = strings.TrimSuffix(peerURL, "/")
	}

	pollInterval := defaultPollInterval
	if raw, ok := params["poll_interval_ms"]; ok {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("%w: poll_interval_ms must be a positive integer", vcrerr.ErrConfig)
		}
		pollInterval = time.Duration(ms) * time.Millisecond
	}

	maxDials := runtime.NumCPU()
	if raw, ok := params["max_dials"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("%w: max_dials must be a positive integer", vcrerr.ErrConfig)
		}
		maxDials = n
	}

	limiter := &errgroup.Group{}
	limiter.SetLimit(maxDials)

	return &Transport{
		j:            j,
		k:            k,
		listen:       params["listen"],
		peers:        peers,
		pollInterval: pollInterval,
		limiter:      limiter,
		client:       &http.Client{Timeout: 30 * time.Second},
		published:    map[string][]byte{},
		active:       make([]bool, k+1),
	}, nil
}

// Transport is one party's HTTP-backed view onto the bulletin board:
// it serves this party's own published slots and polls peers for
// theirs.
type Transport struct {
	j, k         int
	listen       string
	peers        map[int]string
	pollInterval time.Duration
	limiter      *errgroup.Group
	client       *http.Client
	server       *http.Server
	log          vcrlog.Logger

	mu        sync.RWMutex
	published map[string][]byte
	active    []bool
}

func slotPath(scopePath, label string) string {
	return "/slots/" + url.PathEscape(scopePath) + "/" + url.PathEscape(label)
}

// Start implements transport.Transport: it brings up this party's
// HTTP server serving its own published slots.
func (t *Transport) Start(log vcrlog.Logger) error {
	t.log = log
	t.mu.Lock()
	for i := range t.active {
		t.active[i] = true
	}
	t.mu.Unlock()

	if t.listen == "" {
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/slots/", t.handleFetch)
	t.server = &http.Server{Addr: t.listen, Handler: mux}

	ln, err := net.Listen("tcp", t.listen)
	if err != nil {
		return fmt.Errorf("%w: listen on %s: %v", vcrerr.ErrResource, t.listen, err)
	}
	go func() {
		if err := t.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			t.log.Error("http transport server exited", "error", err)
		}
	}()
	return nil
}

func (t *Transport) handleFetch(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/slots/")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	scopePath, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "bad scope", http.StatusBadRequest)
		return
	}
	label, err := url.PathUnescape(parts[1])
	if err != nil {
		http.Error(w, "bad label", http.StatusBadRequest)
		return
	}

	t.mu.RLock()
	payload, ok := t.published[scopePath+"\x00"+label]
	t.mu.RUnlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// Publish implements transport.Transport.
func (t *Transport) Publish(scopePath, label string, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := scopePath + "\x00" + label
	if _, exists := t.published[key]; exists {
		return fmt.Errorf("http transport: label %q already published at scope %q", label, scopePath)
	}
	t.published[key] = payload
	return nil
}

// Fetch implements transport.Transport by polling the addressed
// peer's endpoint until it answers 200 or 403, the deadline passes, or
// the context is cancelled. A GET that fails outright (for example, a
// peer that is not listening) ends the call with an ErrResource error
// and is not retried. Each outbound GET is gated by the bounded dial
// pool so a burst of concurrent Fetch calls can't open unbounded
// sockets against one peer.
func (t *Transport) Fetch(ctx context.Context, fromParty int, scopePath, label string, deadline time.Time) ([]byte, error) {
	if !t.isActive(fromParty) {
		return nil, fmt.Errorf("%w: party %d is marked inactive", vcrerr.ErrRefused, fromParty)
	}
	base, ok := t.peers[fromParty]
	if !ok {
		return nil, fmt.Errorf("%w: no peer endpoint configured for party %d", vcrerr.ErrConfig, fromParty)
	}
	target := base + slotPath(scopePath, label)

	var deadlineCh <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		deadlineCh = timer.C
	}

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		body, status, err := t.dial(ctx, target)
		if err != nil {
			return nil, err
		}
		switch status {
		case http.StatusOK:
			return body, nil
		case http.StatusForbidden:
			return nil, fmt.Errorf("%w: peer refused fetch of %q at scope %q", vcrerr.ErrRefused, label, scopePath)
		}

		select {
		case <-ticker.C:
		case <-deadlineCh:
			return nil, fmt.Errorf("%w: party %d label %q at scope %q", vcrerr.ErrTimeout, fromParty, label, scopePath)
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", vcrerr.ErrCancelled, ctx.Err())
		}
	}
}

type dialResult struct {
	body   []byte
	status int
	err    error
}

// dial performs a single bounded GET, blocking until a slot in the
// dial pool is free (errgroup.Group.SetLimit's Go blocks the caller
// when the pool is saturated).
func (t *Transport) dial(ctx context.Context, target string) ([]byte, int, error) {
	resultCh := make(chan dialResult, 1)
	t.limiter.Go(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			resultCh <- dialResult{err: err}
			return nil
		}
		resp, err := t.client.Do(req)
		if err != nil {
			resultCh <- dialResult{err: err}
			return nil
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			resultCh <- dialResult{err: err}
			return nil
		}
		resultCh <- dialResult{body: body, status: resp.StatusCode}
		return nil
	})

	select {
	case r := <-resultCh:
		if r.err != nil {
			return nil, 0, fmt.Errorf("%w: %v", vcrerr.ErrResource, r.err)
		}
		return r.body, r.status, nil
	case <-ctx.Done():
		return nil, 0, fmt.Errorf("%w: %v", vcrerr.ErrCancelled, ctx.Err())
	}
}

// SetActive implements transport.Transport.
func (t *Transport) SetActive(active []bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = append([]bool(nil), active...)
}

func (t *Transport) isActive(party int) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if party < 0 || party >= len(t.active) {
		return true
	}
	return t.active[party]
}

// Unpublish implements transport.Transport.
func (t *Transport) Unpublish(scopePath string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prefix := scopePath + "/"
	for key := range t.published {
		scope := strings.SplitN(key, "\x00", 2)[0]
		if scopePath == "" || scope == scopePath || strings.HasPrefix(scope, prefix) {
			delete(t.published, key)
		}
	}
	return nil
}

// Stop implements transport.Transport: it shuts down the HTTP server
// and waits for outstanding dials to drain.
func (t *Transport) Stop() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := t.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("%w: http transport shutdown: %v", vcrerr.ErrResource, err)
		}
	}
	_ = t.limiter.Wait()
	return nil
}
