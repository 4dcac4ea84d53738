// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package catalog

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rangekv/rangekv/pkg/kv"
	"github.com/rangekv/rangekv/pkg/kv/kvmem"
	"github.com/rangekv/rangekv/pkg/rangepb"
	"github.com/rangekv/rangekv/pkg/util/retry"
	"github.com/rangekv/rangekv/pkg/util/stop"
	"github.com/rangekv/rangekv/pkg/util/syncutil"
)

// testCluster fakes the cluster around the catalog: a single shared
// engine (the storage survives relocation; only the serving host
// changes), a MemTracker standing in for the coordination service, and
// accessors bound to the host they were dialed against. An accessor
// whose host no longer serves the catalog fails with NotServingError,
// exactly like a real server that gave the range up.
type testCluster struct {
	engine  *kvmem.Engine
	tracker *MemTracker
	dials   atomic.Int64

	mu struct {
		syncutil.Mutex
		serving bool
		current rangepb.ServerLocation
	}
}

func newTestCluster() *testCluster {
	return &testCluster{
		engine:  kvmem.New(),
		tracker: NewMemTracker(),
	}
}

func testLoc(host string, startCode int64) rangepb.ServerLocation {
	return rangepb.ServerLocation{Host: host, Port: 26257, StartCode: startCode}
}

// serveAt makes loc the catalog host and publishes it.
func (c *testCluster) serveAt(loc rangepb.ServerLocation) {
	c.mu.Lock()
	c.mu.serving = true
	c.mu.current = loc
	c.mu.Unlock()
	c.tracker.SetLocation(loc)
}

// kill takes the current catalog host down without a successor.
func (c *testCluster) kill() {
	c.mu.Lock()
	c.mu.serving = false
	c.mu.current = rangepb.ServerLocation{}
	c.mu.Unlock()
	c.tracker.Clear()
}

func (c *testCluster) dial(ctx context.Context, loc rangepb.ServerLocation) (kv.Accessor, error) {
	c.dials.Add(1)
	return &clusterAccessor{c: c, loc: loc}, nil
}

// quickRetryOpts keeps test retry loops fast while leaving plenty of
// budget to ride over relocations.
func quickRetryOpts() retry.Options {
	return retry.Options{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     20 * time.Millisecond,
		Multiplier:     2,
		MaxRetries:     200,
	}
}

func (c *testCluster) newLocator(stopper *stop.Stopper, opts retry.Options) *Locator {
	return NewLocator(LocatorConfig{
		Tracker:        c.tracker,
		Dial:           c.dial,
		Stopper:        stopper,
		RetryOptions:   opts,
		ResolveTimeout: 5 * time.Second,
	})
}

type clusterAccessor struct {
	c   *testCluster
	loc rangepb.ServerLocation
}

func (a *clusterAccessor) check() error {
	a.c.mu.Lock()
	defer a.c.mu.Unlock()
	if !a.c.mu.serving || a.c.mu.current != a.loc {
		return kv.NewNotServingError(a.loc.AddrString())
	}
	return nil
}

func (a *clusterAccessor) Get(ctx context.Context, key []byte) (kv.Row, bool, error) {
	if err := a.check(); err != nil {
		return kv.Row{}, false, err
	}
	return a.c.engine.Get(ctx, key)
}

func (a *clusterAccessor) Scan(ctx context.Context, start, end []byte, limit int) ([]kv.Row, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	return a.c.engine.Scan(ctx, start, end, limit)
}

func (a *clusterAccessor) Put(ctx context.Context, key []byte, columns map[string][]byte) error {
	if err := a.check(); err != nil {
		return err
	}
	return a.c.engine.Put(ctx, key, columns)
}

func (a *clusterAccessor) Delete(ctx context.Context, key []byte) error {
	if err := a.check(); err != nil {
		return err
	}
	return a.c.engine.Delete(ctx, key)
}

// newTestCatalog assembles a served cluster with reader and editor. The
// returned cleanup stops the stopper.
func newTestCatalog(t *testing.T) (*testCluster, *Reader, *Editor, func()) {
	t.Helper()
	c := newTestCluster()
	c.serveAt(testLoc("host1", 1))
	stopper := stop.NewStopper()
	locator := c.newLocator(stopper, quickRetryOpts())
	cleanup := func() { stopper.Stop(context.Background()) }
	return c, NewReader(locator), NewEditor(locator), cleanup
}

func makeDesc(table, start, end string, regionID int64, replicaID int32) rangepb.RegionDescriptor {
	return rangepb.RegionDescriptor{
		TableName: []byte(table),
		StartKey:  []byte(start),
		EndKey:    []byte(end),
		RegionID:  regionID,
		ReplicaID: replicaID,
	}
}
