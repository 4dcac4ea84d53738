// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package retry provides bounded retry loops with exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Options provides reusable configuration of Retry objects.
type Options struct {
	// InitialBackoff is the pause before the second attempt. A zero value
	// selects a default.
	InitialBackoff time.Duration
	// MaxBackoff caps the pause between attempts. A zero value selects a
	// default.
	MaxBackoff time.Duration
	// Multiplier grows the backoff between attempts. Values below 1 select
	// the default.
	Multiplier float64
	// RandomizationFactor jitters each backoff by +/- this fraction of the
	// computed pause. Negative disables jitter.
	RandomizationFactor float64
	// MaxRetries bounds the number of retries after the first attempt.
	// Zero means retry indefinitely (until the context or closer fires).
	MaxRetries int
	// Closer, if set, halts the loop when closed.
	Closer <-chan struct{}
}

var defaults = Options{
	InitialBackoff:      50 * time.Millisecond,
	MaxBackoff:          2 * time.Second,
	Multiplier:          2,
	RandomizationFactor: 0.15,
}

// Retry implements the public methods necessary to control an exponential-
// backoff retry loop.
type Retry struct {
	opts           Options
	ctx            context.Context
	currentAttempt int
	isReset        bool
}

// Start returns a new Retry initialized to some default values. The Retry
// can then be used in an exponential-backoff retry loop.
func Start(opts Options) Retry {
	return StartWithCtx(context.Background(), opts)
}

// StartWithCtx is like Start, but the returned Retry also stops its loop
// when the given context is canceled.
func StartWithCtx(ctx context.Context, opts Options) Retry {
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = defaults.InitialBackoff
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = defaults.MaxBackoff
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = defaults.Multiplier
	}
	if opts.RandomizationFactor == 0 {
		opts.RandomizationFactor = defaults.RandomizationFactor
	}

	r := Retry{opts: opts, ctx: ctx}
	r.Reset()
	return r
}

// Reset resets the Retry to its initial state, meaning that the next call
// to Next will return true immediately and subsequent calls will behave as
// if they had followed the very first attempt.
func (r *Retry) Reset() {
	select {
	case <-r.ctx.Done():
		// When the context has already been canceled, you cannot
		// come back from Reset.
		return
	case <-r.opts.Closer:
		// Same for the closer.
		return
	default:
		r.currentAttempt = 0
		r.isReset = true
	}
}

// CurrentAttempt returns the zero-based attempt index; it is incremented
// on each call to Next.
func (r *Retry) CurrentAttempt() int {
	return r.currentAttempt
}

func (r *Retry) retryIn() time.Duration {
	backoff := float64(r.opts.InitialBackoff)
	for i := 0; i < r.currentAttempt; i++ {
		backoff *= r.opts.Multiplier
		if backoff >= float64(r.opts.MaxBackoff) {
			backoff = float64(r.opts.MaxBackoff)
			break
		}
	}
	if f := r.opts.RandomizationFactor; f > 0 {
		delta := f * backoff
		backoff = backoff - delta + rand.Float64()*2*delta
	}
	return time.Duration(backoff)
}

// Next returns whether the retry loop should continue, and blocks for the
// appropriate length of time before yielding back to the caller.
//
// Note that the behavior on context cancellation or closer close is for
// Next to return false immediately, so callers that care about the
// distinction must inspect ctx.Err() themselves.
func (r *Retry) Next() bool {
	if r.isReset {
		r.isReset = false
		return true
	}

	if r.opts.MaxRetries > 0 && r.currentAttempt >= r.opts.MaxRetries {
		return false
	}

	// Wait before retry.
	d := r.retryIn()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		r.currentAttempt++
		return true
	case <-r.ctx.Done():
		return false
	case <-r.opts.Closer:
		return false
	}
}
