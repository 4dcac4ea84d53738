// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package catalog

import (
	"bytes"
	"context"
	"encoding/binary"
	"sort"

	"github.com/rangekv/rangekv/pkg/keys"
	"github.com/rangekv/rangekv/pkg/kv"
	"github.com/rangekv/rangekv/pkg/rangepb"
	"github.com/rangekv/rangekv/pkg/util/log"
)

// A ReplicaLocation pairs a replica-adjusted descriptor with the server
// last recorded as serving it and the open sequence number of that
// opening. The sequence number is advisory: callers use it to order
// racing location updates, the catalog does not.
type ReplicaLocation struct {
	Region   rangepb.RegionDescriptor
	Location rangepb.ServerLocation
	SeqNum   int64
}

// A RegionLocation is the decoded form of one catalog row: the region's
// descriptor plus a location per replica whose full column triplet is
// present, ordered by replica id.
type RegionLocation struct {
	Region   rangepb.RegionDescriptor
	Replicas []ReplicaLocation
}

// Replica returns the location recorded for the given replica id.
func (rl RegionLocation) Replica(replicaID int32) (ReplicaLocation, bool) {
	for _, r := range rl.Replicas {
		if r.Region.ReplicaID == replicaID {
			return r, true
		}
	}
	return ReplicaLocation{}, false
}

// A Reader performs catalog read operations. Transient relocation
// failures are absorbed by the locator; an absent row is a result, not an
// error, and is never retried.
type Reader struct {
	locator *Locator
}

// NewReader returns a Reader reading through the given locator.
func NewReader(locator *Locator) *Reader {
	return &Reader{locator: locator}
}

// GetRegion looks up the catalog row keyed by the given primary region
// name. The boolean is false when no such row exists or the row carries
// no descriptor.
func (r *Reader) GetRegion(
	ctx context.Context, regionName []byte,
) (RegionLocation, bool, error) {
	var result RegionLocation
	var found bool
	err := r.locator.RunWithRetry(ctx, "get-region", func(ctx context.Context, acc kv.Accessor) error {
		result, found = RegionLocation{}, false
		row, ok, err := acc.Get(ctx, regionName)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		result, found = decodeRegionRow(ctx, row)
		return nil
	})
	if err != nil {
		return RegionLocation{}, false, err
	}
	return result, found, nil
}

// GetTableRegions returns the descriptors of every region of the given
// table, ordered by start key.
func (r *Reader) GetTableRegions(
	ctx context.Context, table []byte,
) ([]rangepb.RegionDescriptor, error) {
	locs, err := r.getTableRows(ctx, table, "get-table-regions")
	if err != nil {
		return nil, err
	}
	descs := make([]rangepb.RegionDescriptor, 0, len(locs))
	for _, rl := range locs {
		descs = append(descs, rl.Region)
	}
	return descs, nil
}

// GetTableRegionsAndLocations returns one element per present replica of
// every region of the given table, ordered by start key then replica id.
// Replicas whose location triplet is incomplete are omitted.
func (r *Reader) GetTableRegionsAndLocations(
	ctx context.Context, table []byte,
) ([]ReplicaLocation, error) {
	locs, err := r.getTableRows(ctx, table, "get-table-locations")
	if err != nil {
		return nil, err
	}
	var out []ReplicaLocation
	for _, rl := range locs {
		out = append(out, rl.Replicas...)
	}
	return out, nil
}

// TableExists reports whether the table has at least one catalog row. The
// catalog's own table always exists.
func (r *Reader) TableExists(ctx context.Context, table []byte) (bool, error) {
	if bytes.Equal(table, keys.CatalogTableName) {
		return true, nil
	}
	var exists bool
	start, end := keys.TableSpan(table)
	err := r.locator.RunWithRetry(ctx, "table-exists", func(ctx context.Context, acc kv.Accessor) error {
		rows, err := acc.Scan(ctx, start, end, 1)
		if err != nil {
			return err
		}
		exists = len(rows) > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *Reader) getTableRows(
	ctx context.Context, table []byte, opName string,
) ([]RegionLocation, error) {
	var out []RegionLocation
	start, end := keys.TableSpan(table)
	err := r.locator.RunWithRetry(ctx, opName, func(ctx context.Context, acc kv.Accessor) error {
		out = out[:0]
		rows, err := acc.Scan(ctx, start, end, 0)
		if err != nil {
			return err
		}
		for _, row := range rows {
			if rl, ok := decodeRegionRow(ctx, row); ok {
				out = append(out, rl)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decodeRegionRow decodes one catalog row. Rows without a descriptor
// column decode to nothing; a replica is reported only when its server,
// start-code and open-seqnum columns are all present and well formed — a
// partial triplet is treated the same as an absent replica.
func decodeRegionRow(ctx context.Context, row kv.Row) (RegionLocation, bool) {
	info := row.Column([]byte(keys.RegionInfoQualifier))
	if info == nil {
		return RegionLocation{}, false
	}
	desc, err := rangepb.UnmarshalRegionDescriptor(info)
	if err != nil {
		log.Warningf(ctx, "skipping catalog row %q: %v", row.Key, err)
		return RegionLocation{}, false
	}

	rl := RegionLocation{Region: desc}
	for qualifier := range row.Columns {
		replicaID := keys.DecodeReplicaID([]byte(qualifier), keys.ServerQualifier)
		if replicaID == keys.InvalidReplicaID {
			continue
		}
		loc, seqNum, ok := decodeReplicaTriplet(ctx, row, replicaID)
		if !ok {
			continue
		}
		rl.Replicas = append(rl.Replicas, ReplicaLocation{
			Region:   rangepb.DescriptorForReplica(desc, replicaID),
			Location: loc,
			SeqNum:   seqNum,
		})
	}
	sort.Slice(rl.Replicas, func(i, j int) bool {
		return rl.Replicas[i].Region.ReplicaID < rl.Replicas[j].Region.ReplicaID
	})
	return rl, true
}

func decodeReplicaTriplet(
	ctx context.Context, row kv.Row, replicaID int32,
) (rangepb.ServerLocation, int64, bool) {
	server := row.Column(keys.ServerColumn(replicaID))
	startCode := row.Column(keys.StartCodeColumn(replicaID))
	seqNum := row.Column(keys.SeqNumColumn(replicaID))
	if server == nil || len(startCode) != 8 || len(seqNum) != 8 {
		return rangepb.ServerLocation{}, 0, false
	}
	host, port, err := rangepb.ParseServerAddr(string(server))
	if err != nil {
		log.Warningf(ctx, "row %q replica %d: %v", row.Key, replicaID, err)
		return rangepb.ServerLocation{}, 0, false
	}
	loc := rangepb.ServerLocation{
		Host:      host,
		Port:      port,
		StartCode: int64(binary.BigEndian.Uint64(startCode)),
	}
	return loc, int64(binary.BigEndian.Uint64(seqNum)), true
}
