// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package kv defines the narrow interface the catalog needs from the
// underlying row store, together with the error taxonomy the locator uses
// to tell transient relocation failures from terminal ones.
package kv

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

// A Row is one catalog row: a key plus the columns present under the
// catalog family, keyed by qualifier.
type Row struct {
	Key     []byte
	Columns map[string][]byte
}

// Column returns the value of the given qualifier, or nil if absent.
func (r Row) Column(qualifier []byte) []byte {
	return r.Columns[string(qualifier)]
}

// An Accessor performs row operations against the store currently hosting
// the catalog. Implementations must provide row-level consistency: a Get
// or Scan observes each row at a single version, and a Put applies all its
// columns atomically.
type Accessor interface {
	// Get returns the row with the given key. The boolean is false when no
	// such row exists; that is not an error.
	Get(ctx context.Context, key []byte) (Row, bool, error)

	// Scan returns up to limit rows with keys in [start, end), ordered by
	// key. limit <= 0 means no limit.
	Scan(ctx context.Context, start, end []byte, limit int) ([]Row, error)

	// Put upserts the given columns of the row with the given key as a
	// single atomic mutation. Columns not mentioned are left untouched.
	Put(ctx context.Context, key []byte, columns map[string][]byte) error

	// Delete removes the row with the given key, if present.
	Delete(ctx context.Context, key []byte) error
}

// A NotServingError reports that the addressed server does not (or no
// longer does) serve the catalog row range. It is transient: the catalog
// has moved and the locator must re-resolve.
type NotServingError struct {
	// Addr is the address of the server that rejected the operation.
	Addr string
}

// Error implements error.
func (e *NotServingError) Error() string {
	return fmt.Sprintf("server %s is not serving the requested range", e.Addr)
}

// NewNotServingError returns a NotServingError for the given address.
func NewNotServingError(addr string) error {
	return &NotServingError{Addr: addr}
}

// ErrConnectionFailed marks dial or transport failures against a cached
// location. Like NotServingError it is transient.
var ErrConnectionFailed = errors.New("connection to catalog host failed")

// IsTransient reports whether err signals a relocation or connection
// failure that should be absorbed by re-resolving the catalog location
// and retrying.
func IsTransient(err error) bool {
	return errors.HasType(err, (*NotServingError)(nil)) ||
		errors.Is(err, ErrConnectionFailed)
}
