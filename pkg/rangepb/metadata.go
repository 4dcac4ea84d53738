// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package rangepb holds the metadata value types shared by the catalog
// and its clients: region descriptors and server locations.
package rangepb

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// DefaultReplicaID identifies the primary replica of a region.
const DefaultReplicaID int32 = 0

// descriptorVersion is the leading byte of a marshaled RegionDescriptor.
const descriptorVersion byte = 1

// regionNameDelimiter separates the fields of a region name.
const regionNameDelimiter = ','

// replicaNameDelimiter separates the replica id suffix of a region name.
const replicaNameDelimiter = '_'

// A RegionDescriptor identifies one partition-instance of a table: a
// contiguous key range [StartKey, EndKey), stamped with the id of the
// creation event and the replica number of this particular deployment of
// the range.
//
// Two descriptors which agree on table, start key, end key and region id
// but differ in replica id denote the same range served as independent
// copies.
type RegionDescriptor struct {
	// TableName identifies the table this region belongs to.
	TableName []byte
	// StartKey is the inclusive lower bound; empty means open.
	StartKey []byte
	// EndKey is the exclusive upper bound; empty means open.
	EndKey []byte
	// RegionID is the creation timestamp of the region. It distinguishes
	// regions covering the same key range across splits and merges.
	RegionID int64
	// ReplicaID numbers this deployment of the range; 0 is the primary.
	ReplicaID int32
	// Split is set while the region is the parent of an in-flight split.
	Split bool
	// Offline is set when the region is not to be served.
	Offline bool
}

// RegionName returns the region's name, the byte string that keys catalog
// rows for the primary replica:
//
//	<table>,<start key>,<region id>
//
// Replicas other than the primary carry a fixed-width hex suffix so their
// names remain unique, but such names never key catalog rows.
func (d RegionDescriptor) RegionName() []byte {
	var buf bytes.Buffer
	buf.Write(d.TableName)
	buf.WriteByte(regionNameDelimiter)
	buf.Write(d.StartKey)
	buf.WriteByte(regionNameDelimiter)
	buf.WriteString(strconv.FormatInt(d.RegionID, 10))
	if d.ReplicaID != DefaultReplicaID {
		fmt.Fprintf(&buf, "%c%04X", replicaNameDelimiter, d.ReplicaID)
	}
	return buf.Bytes()
}

// EncodedName returns the stable opaque identifier for this descriptor.
// It is deterministic over (table, start key, region id, replica id) and
// is used for identity and logging only; it is never parsed.
func (d RegionDescriptor) EncodedName() string {
	sum := md5.Sum(d.RegionName())
	return hex.EncodeToString(sum[:])
}

// Equal returns whether the two descriptors are field-wise equal.
func (d RegionDescriptor) Equal(o RegionDescriptor) bool {
	return bytes.Equal(d.TableName, o.TableName) &&
		bytes.Equal(d.StartKey, o.StartKey) &&
		bytes.Equal(d.EndKey, o.EndKey) &&
		d.RegionID == o.RegionID &&
		d.ReplicaID == o.ReplicaID &&
		d.Split == o.Split &&
		d.Offline == o.Offline
}

// String implements fmt.Stringer.
func (d RegionDescriptor) String() string {
	return redact.StringWithoutMarkers(d)
}

// SafeFormat implements redact.SafeFormatter.
func (d RegionDescriptor) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("%s [%q-%q) id=%d replica=%d", d.TableName, d.StartKey, d.EndKey,
		d.RegionID, d.ReplicaID)
}

const (
	flagSplit byte = 1 << iota
	flagOffline
)

// Marshal renders the descriptor in its catalog storage encoding: a
// version byte, the three byte fields length-prefixed with uvarints, the
// region id and replica id as fixed-width big-endian integers, and a
// flags byte.
func (d RegionDescriptor) Marshal() []byte {
	buf := make([]byte, 0, 32+len(d.TableName)+len(d.StartKey)+len(d.EndKey))
	buf = append(buf, descriptorVersion)
	for _, f := range [][]byte{d.TableName, d.StartKey, d.EndKey} {
		buf = binary.AppendUvarint(buf, uint64(len(f)))
		buf = append(buf, f...)
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(d.RegionID))
	buf = binary.BigEndian.AppendUint32(buf, uint32(d.ReplicaID))
	var flags byte
	if d.Split {
		flags |= flagSplit
	}
	if d.Offline {
		flags |= flagOffline
	}
	buf = append(buf, flags)
	return buf
}

// UnmarshalRegionDescriptor decodes a descriptor previously rendered by
// Marshal. Truncated or trailing-garbage input is rejected.
func UnmarshalRegionDescriptor(data []byte) (RegionDescriptor, error) {
	var d RegionDescriptor
	if len(data) == 0 {
		return d, errors.New("empty region descriptor")
	}
	if data[0] != descriptorVersion {
		return d, errors.Newf("unknown region descriptor version %d", int(data[0]))
	}
	rest := data[1:]
	fields := make([][]byte, 3)
	for i := range fields {
		l, n := binary.Uvarint(rest)
		if n <= 0 || uint64(len(rest)-n) < l {
			return d, errors.New("malformed region descriptor: truncated field")
		}
		// Copy out so the descriptor does not alias the row buffer.
		fields[i] = append([]byte(nil), rest[n:n+int(l)]...)
		rest = rest[n+int(l):]
	}
	if len(rest) != 8+4+1 {
		return d, errors.Newf("malformed region descriptor: %d trailing bytes", len(rest))
	}
	d.TableName, d.StartKey, d.EndKey = fields[0], fields[1], fields[2]
	d.RegionID = int64(binary.BigEndian.Uint64(rest))
	d.ReplicaID = int32(binary.BigEndian.Uint32(rest[8:]))
	flags := rest[12]
	d.Split = flags&flagSplit != 0
	d.Offline = flags&flagOffline != 0
	return d, nil
}

// A ServerLocation identifies a server process: network address plus the
// start code assigned when the process started. The start code
// disambiguates a restarted server reusing the same host and port.
type ServerLocation struct {
	Host      string
	Port      int32
	StartCode int64
}

// IsSet returns whether the location has been populated.
func (l ServerLocation) IsSet() bool {
	return l.Host != ""
}

// AddrString returns the host:port rendering stored in the catalog's
// server column.
func (l ServerLocation) AddrString() string {
	return net.JoinHostPort(l.Host, strconv.Itoa(int(l.Port)))
}

// String implements fmt.Stringer.
func (l ServerLocation) String() string {
	return redact.StringWithoutMarkers(l)
}

// SafeFormat implements redact.SafeFormatter.
func (l ServerLocation) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("%s,%d", l.AddrString(), l.StartCode)
}

// ParseServerAddr parses the host:port rendering produced by AddrString.
func ParseServerAddr(addr string) (host string, port int32, _ error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, errors.Wrapf(err, "malformed server address %q", addr)
	}
	pv, err := strconv.ParseInt(p, 10, 32)
	if err != nil {
		return "", 0, errors.Wrapf(err, "malformed server port in %q", addr)
	}
	return h, int32(pv), nil
}
