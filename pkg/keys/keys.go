// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package keys names the catalog table's row and column layout: the
// qualifier bases of the per-replica location columns, the replica column
// codec, and the row-key bounds of table-scoped scans.
package keys

import (
	"bytes"

	"github.com/cockroachdb/errors"
)

// CatalogTableName is the identity of the catalog table itself. The
// catalog always reports its own table as existing.
var CatalogTableName = []byte("meta")

// CatalogFamily is the single column family holding all location columns.
const CatalogFamily = "info"

// Qualifier bases. Replica 0 uses the base unadorned; replica N > 0
// appends ReplicaDelimiter and exactly four uppercase hex digits.
const (
	ServerQualifier     = "server"
	StartCodeQualifier  = "startcode"
	SeqNumQualifier     = "openSeqNum"
	RegionInfoQualifier = "regioninfo"
)

// ReplicaDelimiter separates a qualifier base from the replica id suffix.
// It must not be a hex digit.
const ReplicaDelimiter = '_'

// InvalidReplicaID is the sentinel returned by DecodeReplicaID for
// columns that do not follow the strict encoding. It is data, not an
// error: probing arbitrary columns is legitimate.
const InvalidReplicaID int32 = -1

// maxReplicaID is the largest replica id the four-hex-digit suffix can
// carry.
const maxReplicaID = 0xFFFF

const hexDigits = "0123456789ABCDEF"

// ColumnForReplica encodes (base, replicaID) into the literal column
// qualifier stored in a catalog row. Replica ids outside [0, 0xFFFF] are
// caller errors.
func ColumnForReplica(base string, replicaID int32) []byte {
	if replicaID < 0 || replicaID > maxReplicaID {
		panic(errors.AssertionFailedf("replica id %d outside encodable range", replicaID))
	}
	if replicaID == 0 {
		return []byte(base)
	}
	b := make([]byte, 0, len(base)+5)
	b = append(b, base...)
	b = append(b, ReplicaDelimiter)
	for shift := 12; shift >= 0; shift -= 4 {
		b = append(b, hexDigits[(replicaID>>uint(shift))&0xF])
	}
	return b
}

// ServerColumn returns the qualifier of the server column for a replica.
func ServerColumn(replicaID int32) []byte {
	return ColumnForReplica(ServerQualifier, replicaID)
}

// StartCodeColumn returns the qualifier of the start-code column for a
// replica.
func StartCodeColumn(replicaID int32) []byte {
	return ColumnForReplica(StartCodeQualifier, replicaID)
}

// SeqNumColumn returns the qualifier of the open-sequence-number column
// for a replica.
func SeqNumColumn(replicaID int32) []byte {
	return ColumnForReplica(SeqNumQualifier, replicaID)
}

// DecodeReplicaID recovers the replica id from a column qualifier encoded
// against the given base, or InvalidReplicaID if the qualifier does not
// follow the encoding exactly. The suffix must be precisely four hex
// digits; partially-written or extended columns are rejected rather than
// coerced.
func DecodeReplicaID(column []byte, base string) int32 {
	if !bytes.HasPrefix(column, []byte(base)) {
		return InvalidReplicaID
	}
	rest := column[len(base):]
	if len(rest) == 0 {
		return 0
	}
	if rest[0] != ReplicaDelimiter || len(rest) != 5 {
		return InvalidReplicaID
	}
	var id int32
	for _, c := range rest[1:] {
		var v int32
		switch {
		case c >= '0' && c <= '9':
			v = int32(c - '0')
		case c >= 'A' && c <= 'F':
			v = int32(c-'A') + 10
		case c >= 'a' && c <= 'f':
			v = int32(c-'a') + 10
		default:
			return InvalidReplicaID
		}
		id = id<<4 | v
	}
	return id
}

// NameDelimiter separates the fields of a region row key
// (<table>,<start key>,<region id>).
const NameDelimiter = ','

// TableSpan returns the row-key range [start, end) covering every catalog
// row of the given table. Region row keys are <table>,<start key>,<id>,
// so the span is bounded on the delimited prefix with its final byte
// incremented. Bounding on the bare table name would leak rows of a table
// sharing a byte-prefix (scanning "A" must not see "Ab,...").
func TableSpan(table []byte) (start, end []byte) {
	start = append(append([]byte(nil), table...), NameDelimiter)
	end = append([]byte(nil), start...)
	// The delimiter is well below 0xFF; the increment cannot wrap.
	end[len(end)-1]++
	return start, end
}
