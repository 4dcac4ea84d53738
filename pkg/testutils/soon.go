// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package testutils holds small test helpers shared across packages.
package testutils

import (
	"testing"
	"time"

	"github.com/rangekv/rangekv/pkg/util/retry"
	"github.com/rangekv/rangekv/pkg/util/timeutil"
)

// DefaultSucceedsSoonDuration is the maximum time unittests will wait for
// a condition to become true.
const DefaultSucceedsSoonDuration = 45 * time.Second

// SucceedsSoon fails the test (with the error from the final invocation of
// fn) if fn does not return nil before DefaultSucceedsSoonDuration.
func SucceedsSoon(t testing.TB, fn func() error) {
	t.Helper()
	if err := SucceedsWithinError(fn, DefaultSucceedsSoonDuration); err != nil {
		t.Fatal(err)
	}
}

// SucceedsWithinError retries fn with exponential backoff until it returns
// nil or the duration elapses, in which case the last error is returned.
func SucceedsWithinError(fn func() error, duration time.Duration) error {
	deadline := timeutil.Now().Add(duration)
	var lastErr error
	opts := retry.Options{
		InitialBackoff: time.Millisecond,
		MaxBackoff:     200 * time.Millisecond,
		Multiplier:     2,
	}
	for r := retry.Start(opts); r.Next(); {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if timeutil.Now().After(deadline) {
			break
		}
	}
	return lastErr
}
