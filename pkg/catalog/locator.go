// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package catalog implements the cluster's metadata catalog: the
// self-hosted directory mapping every region replica to the server
// currently serving it. The Locator keeps catalog access available while
// the catalog's own hosting server churns; Reader and Editor build the
// read and write operations on top of it.
package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/logtags"
	"github.com/rangekv/rangekv/pkg/kv"
	"github.com/rangekv/rangekv/pkg/rangepb"
	"github.com/rangekv/rangekv/pkg/util/log"
	"github.com/rangekv/rangekv/pkg/util/retry"
	"github.com/rangekv/rangekv/pkg/util/stop"
	"github.com/rangekv/rangekv/pkg/util/syncutil"
	"golang.org/x/sync/singleflight"
)

// A Dialer opens an Accessor to the catalog row range on the given
// server. Dial failures should be marked with kv.ErrConnectionFailed so
// the locator treats them as transient.
type Dialer func(ctx context.Context, loc rangepb.ServerLocation) (kv.Accessor, error)

// DefaultRetryOptions bound each catalog operation's relocation retries.
// With these settings an operation rides over roughly twenty seconds of
// catalog unavailability before giving up.
var DefaultRetryOptions = retry.Options{
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	Multiplier:     2,
	MaxRetries:     15,
}

// defaultResolveTimeout caps a single resolution (coordination wait plus
// dial). Resolution is retried by the operation's retry loop, so this
// only needs to be generous enough for a healthy cluster.
const defaultResolveTimeout = 10 * time.Second

// LocatorConfig configures a Locator.
type LocatorConfig struct {
	Tracker Tracker
	Dial    Dialer
	Stopper *stop.Stopper
	// RetryOptions overrides DefaultRetryOptions when any field is set.
	RetryOptions retry.Options
	// ResolveTimeout overrides defaultResolveTimeout when positive.
	ResolveTimeout time.Duration
}

// LocatorMetrics counts locator activity. Fields are read with Load.
type LocatorMetrics struct {
	// Resolves counts completed location resolutions.
	Resolves atomic.Int64
	// Evictions counts cached locations dropped after transient failures.
	Evictions atomic.Int64
	// Exhausted counts operations that ran out of retry budget.
	Exhausted atomic.Int64
}

// A Locator produces usable accessors to the catalog's row range despite
// the catalog's hosting server being relocated. It caches the most recent
// resolution; any operation failing with a transient error evicts the
// cache and re-resolves through the coordination service watch.
//
// The cached location is advisory. Races between eviction and
// re-resolution cost at most a redundant retry; correctness rests on the
// storage engine's own row-level consistency.
type Locator struct {
	tracker        Tracker
	dial           Dialer
	stopper        *stop.Stopper
	retryOpts      retry.Options
	resolveTimeout time.Duration

	mu struct {
		syncutil.RWMutex
		resolved bool
		loc      rangepb.ServerLocation
		accessor kv.Accessor
	}

	// resolving coalesces concurrent re-resolutions onto one coordination
	// wait. Coalescing is an optimization, not a correctness requirement:
	// callers that miss it simply resolve redundantly.
	resolving singleflight.Group

	metrics LocatorMetrics
}

// NewLocator returns a Locator in the unresolved state; the first access
// triggers resolution.
func NewLocator(cfg LocatorConfig) *Locator {
	opts := cfg.RetryOptions
	if opts == (retry.Options{}) {
		opts = DefaultRetryOptions
	}
	timeout := cfg.ResolveTimeout
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	return &Locator{
		tracker:        cfg.Tracker,
		dial:           cfg.Dial,
		stopper:        cfg.Stopper,
		retryOpts:      opts,
		resolveTimeout: timeout,
	}
}

// Metrics returns the locator's counters.
func (l *Locator) Metrics() *LocatorMetrics {
	return &l.metrics
}

type resolveResult struct {
	loc      rangepb.ServerLocation
	accessor kv.Accessor
}

// Accessor returns an accessor for the catalog's current location,
// resolving it first if no usable one is cached. The returned location
// must be passed back to Evict if the accessor turns out to be stale.
func (l *Locator) Accessor(ctx context.Context) (kv.Accessor, rangepb.ServerLocation, error) {
	l.mu.RLock()
	if l.mu.resolved {
		acc, loc := l.mu.accessor, l.mu.loc
		l.mu.RUnlock()
		return acc, loc, nil
	}
	l.mu.RUnlock()

	resC := l.resolving.DoChan("resolve", func() (interface{}, error) {
		var res resolveResult
		err := l.stopper.RunTaskWithErr(ctx, "catalog: resolve location", func(ctx context.Context) error {
			// This resolution serves potentially many coalesced callers, so
			// it must not inherit the leader's cancelation. Carry the log
			// tags over and bound it with the resolve timeout instead.
			ctx = logtags.WithTags(context.Background(), logtags.FromContext(ctx))
			ctx, cancel := context.WithTimeout(ctx, l.resolveTimeout)
			defer cancel()

			loc, err := l.tracker.WaitForCatalog(ctx)
			if err != nil {
				return errors.Mark(err, kv.ErrConnectionFailed)
			}
			acc, err := l.dial(ctx, loc)
			if err != nil {
				return errors.Wrapf(err, "dialing catalog host %s", loc)
			}

			l.mu.Lock()
			defer l.mu.Unlock()
			l.mu.resolved = true
			l.mu.loc = loc
			l.mu.accessor = acc
			l.metrics.Resolves.Add(1)
			res = resolveResult{loc: loc, accessor: acc}
			log.VEventf(ctx, 2, "resolved catalog location: %s", loc)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return res, nil
	})

	select {
	case res := <-resC:
		if res.Err != nil {
			return nil, rangepb.ServerLocation{}, res.Err
		}
		r := res.Val.(resolveResult)
		return r.accessor, r.loc, nil
	case <-ctx.Done():
		return nil, rangepb.ServerLocation{}, errors.Wrap(ctx.Err(), "aborted during catalog resolution")
	}
}

// Evict drops the cached location if it still matches loc. A location
// re-resolved by a concurrent caller is left alone; evicting it would
// only force redundant work.
func (l *Locator) Evict(ctx context.Context, loc rangepb.ServerLocation) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.mu.resolved || l.mu.loc != loc {
		return
	}
	l.mu.resolved = false
	l.mu.loc = rangepb.ServerLocation{}
	l.mu.accessor = nil
	l.metrics.Evictions.Add(1)
	log.VEventf(ctx, 2, "evicted catalog location: %s", loc)
}

// retriesBeforeLogging is the number of silent retries before an
// operation starts logging its transient failures.
const retriesBeforeLogging = 3

// RunWithRetry runs fn against the catalog, retrying through re-resolution
// on transient relocation and connection failures. Errors fn returns that
// are not transient propagate immediately; exhausting the retry budget
// returns an UnavailableError wrapping the last transient failure.
func (l *Locator) RunWithRetry(
	ctx context.Context, opName string, fn func(ctx context.Context, acc kv.Accessor) error,
) error {
	var lastErr error
	for r := retry.StartWithCtx(ctx, l.retryOpts); r.Next(); {
		acc, loc, err := l.Accessor(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrapf(ctx.Err(), "%s: interrupted locating catalog", opName)
			}
			lastErr = err
			if r.CurrentAttempt() >= retriesBeforeLogging {
				log.Infof(ctx, "%s: catalog resolution failed, retrying: %v", opName, err)
			}
			continue
		}

		if err := fn(ctx, acc); err != nil {
			if !kv.IsTransient(err) {
				return err
			}
			lastErr = err
			l.Evict(ctx, loc)
			if r.CurrentAttempt() >= retriesBeforeLogging {
				log.Infof(ctx, "%s: catalog moved off %s, retrying: %v", opName, loc, err)
			}
			continue
		}
		return nil
	}

	if ctx.Err() != nil {
		return errors.Wrapf(ctx.Err(), "%s: interrupted awaiting catalog", opName)
	}
	l.metrics.Exhausted.Add(1)
	return &UnavailableError{Op: opName, Attempts: l.retryOpts.MaxRetries + 1, cause: lastErr}
}

// An UnavailableError reports that an operation exhausted its retry
// budget without the catalog becoming reachable. It is terminal: the
// caller decides whether to give up or start over.
type UnavailableError struct {
	Op       string
	Attempts int
	cause    error
}

// Error implements error.
func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("catalog unavailable: %s failed after %d attempts", e.Op, e.Attempts)
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap makes the last transient failure visible to errors.Is/As.
func (e *UnavailableError) Unwrap() error {
	return e.cause
}

// IsUnavailableError reports whether err is terminal retry exhaustion.
func IsUnavailableError(err error) bool {
	return errors.HasType(err, (*UnavailableError)(nil))
}
