// Copyright 2023 Sauce Labs Inc. All rights reserved.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package conntrack records the lifecycle of every forwarded stream and
// periodically evicts stale closed records.
package conntrack

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netpathio/pacroute/log"
)

// Record is a single tracked connection's lifecycle.
type Record struct {
	ID          uint64    `json:"id"`
	Method      string    `json:"method"`
	Target      string    `json:"target"`
	RouteScheme string    `json:"route_scheme"`
	OpenedAt    time.Time `json:"opened_at"`
	ClosedAt    time.Time `json:"closed_at,omitempty"` // zero value means still open
}

const (
	sweepInterval = 250 * time.Millisecond
	retainAfter   = 4 * time.Second
)

// Tracker owns the list of connection records. There is no hard cap on the
// list size: the periodic sweep bounds it under steady load, since a
// record's liveness is tied to a real connection.
type Tracker struct {
	log log.Logger

	nextID atomic.Uint64

	mu      sync.Mutex
	records map[uint64]*Record
}

func New(logger log.Logger) *Tracker {
	if logger == nil {
		logger = log.NopLogger
	}
	return &Tracker{
		log:     logger,
		records: make(map[uint64]*Record),
	}
}

// Track creates and appends a record, logging its opening, and returns its
// id for use with Close.
func (t *Tracker) Track(method, target, routeScheme string) uint64 {
	id := t.nextID.Add(1)

	r := &Record{
		ID:          id,
		Method:      method,
		Target:      target,
		RouteScheme: routeScheme,
		OpenedAt:    time.Now(),
	}

	t.mu.Lock()
	t.records[id] = r
	t.mu.Unlock()

	t.log.Infof("%s %s (via %s)", method, target, routeScheme)

	return id
}

// Close marks the record as closed. Idempotent; an unknown or already
// closed id is a silent no-op.
func (t *Tracker) Close(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	r, ok := t.records[id]
	if !ok || !r.ClosedAt.IsZero() {
		return
	}
	r.ClosedAt = time.Now()
}

// Active returns a snapshot of all records that are not yet closed.
func (t *Tracker) Active() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	active := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		if r.ClosedAt.IsZero() {
			active = append(active, *r)
		}
	}
	return active
}

// sweep drops any record closed more than retainAfter ago.
func (t *Tracker) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, r := range t.records {
		if !r.ClosedAt.IsZero() && now.Sub(r.ClosedAt) > retainAfter {
			delete(t.records, id)
		}
	}
}

// Run runs the periodic eviction sweep until ctx is canceled. It is meant
// to be registered with a runctx.Group alongside the rest of the process's
// long-running loops.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			t.sweep(now)
		}
	}
}
