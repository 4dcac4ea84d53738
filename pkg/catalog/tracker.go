// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/rangekv/rangekv/pkg/rangepb"
	"github.com/rangekv/rangekv/pkg/util/syncutil"
)

// A Tracker exposes the coordination service's view of which server
// currently hosts the catalog. Implementations typically wrap an external
// watch (the cluster's coordination service); MemTracker serves embedded
// deployments and tests.
type Tracker interface {
	// WaitForCatalog blocks until a catalog location is published, then
	// returns it. It returns early with the context's error if ctx is done
	// first.
	WaitForCatalog(ctx context.Context) (rangepb.ServerLocation, error)
}

// MemTracker is an in-process Tracker. The publishing side calls
// SetLocation when the catalog is opened on a server and Clear when that
// server goes away; waiters block until the next SetLocation.
type MemTracker struct {
	mu struct {
		syncutil.Mutex
		loc     rangepb.ServerLocation
		set     bool
		changed chan struct{}
	}
}

var _ Tracker = (*MemTracker)(nil)

// NewMemTracker returns a MemTracker with no location published.
func NewMemTracker() *MemTracker {
	t := &MemTracker{}
	t.mu.changed = make(chan struct{})
	return t
}

// SetLocation publishes loc as the current catalog host and wakes all
// waiters.
func (t *MemTracker) SetLocation(loc rangepb.ServerLocation) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.loc = loc
	t.mu.set = true
	close(t.mu.changed)
	t.mu.changed = make(chan struct{})
}

// Clear withdraws the published location. Waiters block until the next
// SetLocation.
func (t *MemTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mu.loc = rangepb.ServerLocation{}
	t.mu.set = false
}

// WaitForCatalog implements Tracker.
func (t *MemTracker) WaitForCatalog(ctx context.Context) (rangepb.ServerLocation, error) {
	for {
		t.mu.Lock()
		if t.mu.set {
			loc := t.mu.loc
			t.mu.Unlock()
			return loc, nil
		}
		changed := t.mu.changed
		t.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return rangepb.ServerLocation{}, errors.Wrap(ctx.Err(), "waiting for catalog location")
		}
	}
}
