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

	"github.com/cockroachdb/errors"
	"github.com/rangekv/rangekv/pkg/testutils"
	"github.com/rangekv/rangekv/pkg/util/leaktest"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestRetryingAcrossRelocations keeps a reader and a writer hammering the
// catalog while its hosting server is killed and brought back elsewhere,
// twice. Neither loop may ever surface an error: relocation is absorbed
// by eviction and re-resolution, and both loops must keep making progress
// after each move.
func TestRetryingAcrossRelocations(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, reader, editor, cleanup := newTestCatalog(t)
	defer cleanup()

	region := makeDesc("accounts", "", "", 1, 0)
	require.NoError(t, editor.AddRegionToMeta(ctx, region))
	require.NoError(t, editor.UpdateRegionLocation(ctx, region, testLoc("node1", 1), 1))

	var reads, writes atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for gctx.Err() == nil {
			_, found, err := reader.GetRegion(gctx, region.RegionName())
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			if !found {
				continue
			}
			reads.Add(1)
		}
		return nil
	})
	g.Go(func() error {
		for i := int64(2); gctx.Err() == nil; i++ {
			err := editor.UpdateRegionLocation(gctx, region, testLoc("node1", 1), i)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			writes.Add(1)
		}
		return nil
	})

	// progressAfter waits for both counters to move past the snapshot
	// taken at its call.
	progressAfter := func(what string) {
		r, w := reads.Load(), writes.Load()
		testutils.SucceedsSoon(t, func() error {
			if reads.Load() <= r {
				return errors.Newf("no reads since %s", what)
			}
			if writes.Load() <= w {
				return errors.Newf("no writes since %s", what)
			}
			return nil
		})
	}
	progressAfter("start")

	// First relocation. The gap between kill and the new host is where
	// the retry loops have to hold on.
	c.kill()
	time.Sleep(10 * time.Millisecond)
	c.serveAt(testLoc("host2", 2))
	progressAfter("first relocation")

	// And once more, to a third incarnation.
	c.kill()
	time.Sleep(10 * time.Millisecond)
	c.serveAt(testLoc("host3", 3))
	progressAfter("second relocation")

	cancel()
	require.NoError(t, g.Wait())
	require.Greater(t, reads.Load(), int64(0))
	require.Greater(t, writes.Load(), int64(0))
}
