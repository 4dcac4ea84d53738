// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package catalog

import (
	"context"
	"testing"

	"github.com/rangekv/rangekv/pkg/keys"
	"github.com/rangekv/rangekv/pkg/util/leaktest"
	"github.com/stretchr/testify/require"
)

func TestGetRegionNotFound(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	_, reader, _, cleanup := newTestCatalog(t)
	defer cleanup()

	_, found, err := reader.GetRegion(ctx, []byte("nonexistent-region"))
	require.NoError(t, err, "an absent row is a result, not an error")
	require.False(t, found)
}

func TestGettingTableRegions(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	_, reader, editor, cleanup := newTestCatalog(t)
	defer cleanup()

	// Register out of key order; reads must come back ordered by start key.
	descs := []struct{ start, end string }{
		{"m", "s"},
		{"", "f"},
		{"s", ""},
		{"f", "m"},
	}
	for i, d := range descs {
		region := makeDesc("accounts", d.start, d.end, int64(100+i), 0)
		require.NoError(t, editor.AddRegionToMeta(ctx, region))
	}

	regions, err := reader.GetTableRegions(ctx, []byte("accounts"))
	require.NoError(t, err)
	require.Len(t, regions, len(descs))
	for i, want := range []string{"", "f", "m", "s"} {
		require.Equal(t, []byte(want), regions[i].StartKey, "position %d", i)
	}

	// Exact-name lookup of a region found by the scan.
	rl, found, err := reader.GetRegion(ctx, regions[0].RegionName())
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, regions[0].EncodedName(), rl.Region.EncodedName())
}

func TestGetTableRegionsAndLocations(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	_, reader, editor, cleanup := newTestCatalog(t)
	defer cleanup()

	r1 := makeDesc("ledger", "", "m", 7, 0)
	r2 := makeDesc("ledger", "m", "", 8, 0)
	require.NoError(t, editor.AddRegionToMeta(ctx, r1))
	require.NoError(t, editor.AddRegionToMeta(ctx, r2))

	// Only r1 has a recorded location so far.
	require.NoError(t, editor.UpdateRegionLocation(ctx, r1, testLoc("node7", 70), 5))

	locs, err := reader.GetTableRegionsAndLocations(ctx, []byte("ledger"))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	require.Equal(t, r1.EncodedName(), locs[0].Region.EncodedName())
	require.Equal(t, testLoc("node7", 70), locs[0].Location)
	require.Equal(t, int64(5), locs[0].SeqNum)

	// Both replicas of r2 show up once written, ordered after r1.
	require.NoError(t, editor.UpdateRegionLocation(ctx, r2, testLoc("node8", 80), 6))
	replica1 := makeDesc("ledger", "m", "", 8, 1)
	require.NoError(t, editor.UpdateRegionLocation(ctx, replica1, testLoc("node9", 90), 7))

	locs, err = reader.GetTableRegionsAndLocations(ctx, []byte("ledger"))
	require.NoError(t, err)
	require.Len(t, locs, 3)
	require.Equal(t, int32(0), locs[1].Region.ReplicaID)
	require.Equal(t, int32(1), locs[2].Region.ReplicaID)
	require.Equal(t, testLoc("node9", 90), locs[2].Location)
}

func TestScanCatalogForTableBoundary(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	_, reader, editor, cleanup := newTestCatalog(t)
	defer cleanup()

	// Two tables differing only by a trailing character, one region each.
	require.NoError(t, editor.AddRegionToMeta(ctx, makeDesc("A", "", "", 1, 0)))
	require.NoError(t, editor.AddRegionToMeta(ctx, makeDesc("Ab", "", "", 2, 0)))

	a, err := reader.GetTableRegions(ctx, []byte("A"))
	require.NoError(t, err)
	require.Len(t, a, 1)
	require.Equal(t, []byte("A"), a[0].TableName)

	ab, err := reader.GetTableRegions(ctx, []byte("Ab"))
	require.NoError(t, err)
	require.Len(t, ab, 1)
	require.Equal(t, []byte("Ab"), ab[0].TableName)
}

func TestTableExists(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	_, reader, editor, cleanup := newTestCatalog(t)
	defer cleanup()

	table := []byte("billing")
	exists, err := reader.TableExists(ctx, table)
	require.NoError(t, err)
	require.False(t, exists)

	region := makeDesc("billing", "", "", 3, 0)
	require.NoError(t, editor.AddRegionToMeta(ctx, region))
	exists, err = reader.TableExists(ctx, table)
	require.NoError(t, err)
	require.True(t, exists)

	// The administrative layer removes the rows on table deletion.
	require.NoError(t, editor.DeleteRegion(ctx, region))
	exists, err = reader.TableExists(ctx, table)
	require.NoError(t, err)
	require.False(t, exists)

	// The catalog table always reports itself as existing.
	exists, err = reader.TableExists(ctx, keys.CatalogTableName)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestPartialReplicaTripletIsAbsent(t *testing.T) {
	defer leaktest.AfterTest(t)()
	ctx := context.Background()
	c, reader, editor, cleanup := newTestCatalog(t)
	defer cleanup()

	region := makeDesc("parts", "", "", 11, 0)
	require.NoError(t, editor.AddRegionToMeta(ctx, region))
	require.NoError(t, editor.UpdateRegionLocation(ctx, region, testLoc("node1", 10), 1))

	// Strip the start-code column directly in the engine to fake a row
	// written by a broken client.
	rowKey := region.RegionName()
	row, ok, err := c.engine.Get(ctx, rowKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, c.engine.Delete(ctx, rowKey))
	delete(row.Columns, keys.StartCodeQualifier)
	require.NoError(t, c.engine.Put(ctx, rowKey, row.Columns))

	rl, found, err := reader.GetRegion(ctx, rowKey)
	require.NoError(t, err)
	require.True(t, found, "the descriptor is still there")
	_, ok = rl.Replica(0)
	require.False(t, ok, "a partial triplet must read as an absent replica")
}
