// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

package rangepb

// DescriptorForReplica returns the descriptor denoting the same key range
// as d but deployed as replica replicaID. When d already carries that
// replica id the descriptor is returned unchanged; otherwise a copy is
// made with only the replica id substituted.
func DescriptorForReplica(d RegionDescriptor, replicaID int32) RegionDescriptor {
	if d.ReplicaID == replicaID {
		return d
	}
	return RegionDescriptor{
		TableName: d.TableName,
		StartKey:  d.StartKey,
		EndKey:    d.EndKey,
		RegionID:  d.RegionID,
		ReplicaID: replicaID,
		Split:     d.Split,
		Offline:   d.Offline,
	}
}

// DescriptorForDefaultReplica returns the primary-replica descriptor for
// d's key range.
func DescriptorForDefaultReplica(d RegionDescriptor) RegionDescriptor {
	return DescriptorForReplica(d, DefaultReplicaID)
}
