// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package catalog

import (
	"context"
	"encoding/binary"

	"github.com/rangekv/rangekv/pkg/keys"
	"github.com/rangekv/rangekv/pkg/kv"
	"github.com/rangekv/rangekv/pkg/rangepb"
	"github.com/rangekv/rangekv/pkg/util/log"
)

// An Editor performs catalog write operations. Like the Reader it rides
// over catalog relocation through the locator; a write either applies in
// full or not at all, never partially.
type Editor struct {
	locator *Locator
}

// NewEditor returns an Editor writing through the given locator.
func NewEditor(locator *Locator) *Editor {
	return &Editor{locator: locator}
}

// AddRegionToMeta registers a region: it upserts the row keyed by the
// region's primary name with the serialized primary descriptor.
// Re-invoking with the same region overwrites the descriptor with an
// identical value, so the operation is idempotent.
func (e *Editor) AddRegionToMeta(ctx context.Context, region rangepb.RegionDescriptor) error {
	primary := rangepb.DescriptorForDefaultReplica(region)
	err := e.locator.RunWithRetry(ctx, "add-region", func(ctx context.Context, acc kv.Accessor) error {
		return acc.Put(ctx, primary.RegionName(), map[string][]byte{
			keys.RegionInfoQualifier: primary.Marshal(),
		})
	})
	if err != nil {
		return err
	}
	log.VEventf(ctx, 2, "added %s to catalog", primary)
	return nil
}

// UpdateRegionLocation records that the given replica of region was
// opened on serverLoc with the given open sequence number. The replica's
// server, start-code and open-seqnum columns change together in a single
// atomic row mutation; columns of other replicas are untouched. The
// sequence number is stored as advisory metadata — callers resolve racing
// updates with it, the catalog does not enforce monotonicity.
func (e *Editor) UpdateRegionLocation(
	ctx context.Context,
	region rangepb.RegionDescriptor,
	serverLoc rangepb.ServerLocation,
	openSeqNum int64,
) error {
	rowKey := rangepb.DescriptorForDefaultReplica(region).RegionName()
	replicaID := region.ReplicaID
	columns := map[string][]byte{
		string(keys.ServerColumn(replicaID)):    []byte(serverLoc.AddrString()),
		string(keys.StartCodeColumn(replicaID)): encodeInt64(serverLoc.StartCode),
		string(keys.SeqNumColumn(replicaID)):    encodeInt64(openSeqNum),
	}
	err := e.locator.RunWithRetry(ctx, "update-region-location", func(ctx context.Context, acc kv.Accessor) error {
		return acc.Put(ctx, rowKey, columns)
	})
	if err != nil {
		return err
	}
	log.VEventf(ctx, 2, "updated %s replica %d location to %s (seqnum %d)",
		region, replicaID, serverLoc, openSeqNum)
	return nil
}

// DeleteRegion removes a region's catalog row. It exists for the
// administrative layer (table deletion, region merges); the catalog never
// deletes rows of its own accord.
func (e *Editor) DeleteRegion(ctx context.Context, region rangepb.RegionDescriptor) error {
	rowKey := rangepb.DescriptorForDefaultReplica(region).RegionName()
	err := e.locator.RunWithRetry(ctx, "delete-region", func(ctx context.Context, acc kv.Accessor) error {
		return acc.Delete(ctx, rowKey)
	})
	if err != nil {
		return err
	}
	log.VEventf(ctx, 2, "deleted %s from catalog", region)
	return nil
}

func encodeInt64(v int64) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(v))
}
