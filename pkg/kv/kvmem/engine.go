// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package kvmem provides an ordered in-memory implementation of
// kv.Accessor. It backs the test harness and embedded single-process
// deployments; the production engine lives behind the same interface.
package kvmem

import (
	"bytes"
	"context"

	"github.com/google/btree"
	"github.com/rangekv/rangekv/pkg/kv"
	"github.com/rangekv/rangekv/pkg/util/syncutil"
)

type memRow struct {
	key     []byte
	columns map[string][]byte
}

func (r *memRow) Less(than btree.Item) bool {
	return bytes.Compare(r.key, than.(*memRow).key) < 0
}

// An Engine is an ordered in-memory row store. Each Put runs under the
// engine write lock, so a row mutation is atomic with respect to every
// Get and Scan.
type Engine struct {
	mu   syncutil.RWMutex
	rows *btree.BTree
}

var _ kv.Accessor = (*Engine)(nil)

// New returns an empty Engine.
func New() *Engine {
	return &Engine{rows: btree.New(8)}
}

// Get implements kv.Accessor.
func (e *Engine) Get(ctx context.Context, key []byte) (kv.Row, bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	item := e.rows.Get(&memRow{key: key})
	if item == nil {
		return kv.Row{}, false, nil
	}
	return copyOut(item.(*memRow)), true, nil
}

// Scan implements kv.Accessor.
func (e *Engine) Scan(ctx context.Context, start, end []byte, limit int) ([]kv.Row, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []kv.Row
	e.rows.AscendRange(&memRow{key: start}, &memRow{key: end}, func(item btree.Item) bool {
		out = append(out, copyOut(item.(*memRow)))
		return limit <= 0 || len(out) < limit
	})
	return out, nil
}

// Put implements kv.Accessor.
func (e *Engine) Put(ctx context.Context, key []byte, columns map[string][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var row *memRow
	if item := e.rows.Get(&memRow{key: key}); item != nil {
		row = item.(*memRow)
	} else {
		row = &memRow{
			key:     append([]byte(nil), key...),
			columns: make(map[string][]byte, len(columns)),
		}
		e.rows.ReplaceOrInsert(row)
	}
	for q, v := range columns {
		row.columns[q] = append([]byte(nil), v...)
	}
	return nil
}

// Delete implements kv.Accessor.
func (e *Engine) Delete(ctx context.Context, key []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rows.Delete(&memRow{key: key})
	return nil
}

// Len returns the number of rows in the engine.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rows.Len()
}

func copyOut(r *memRow) kv.Row {
	out := kv.Row{
		Key:     append([]byte(nil), r.key...),
		Columns: make(map[string][]byte, len(r.columns)),
	}
	for q, v := range r.columns {
		out.Columns[q] = append([]byte(nil), v...)
	}
	return out
}
