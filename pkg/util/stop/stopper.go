// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package stop provides a Stopper to scope the lifetime of background
// work. Tasks register with the Stopper before running; Stop refuses new
// tasks, waits for registered ones to drain, and then returns.
package stop

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rangekv/rangekv/pkg/util/syncutil"
)

// ErrUnavailable is returned by RunTaskWithErr when the Stopper is
// already quiescing.
var ErrUnavailable = errors.New("node unavailable; try another peer")

// A Stopper provides control over the lifecycle of goroutines started
// through it.
type Stopper struct {
	quiescer chan struct{}
	mu       struct {
		syncutil.Mutex
		quiescing bool
		tasks     sync.WaitGroup
	}
}

// NewStopper returns an initialized Stopper.
func NewStopper() *Stopper {
	return &Stopper{quiescer: make(chan struct{})}
}

// RunTaskWithErr runs fn as a task, blocking Stop until it returns. If the
// stopper is quiescing the task is not run and ErrUnavailable is returned.
func (s *Stopper) RunTaskWithErr(
	ctx context.Context, taskName string, fn func(context.Context) error,
) error {
	s.mu.Lock()
	if s.mu.quiescing {
		s.mu.Unlock()
		return ErrUnavailable
	}
	s.mu.tasks.Add(1)
	s.mu.Unlock()

	defer s.mu.tasks.Done()
	return fn(ctx)
}

// ShouldQuiesce returns a channel which is closed when Stop has been
// invoked.
func (s *Stopper) ShouldQuiesce() <-chan struct{} {
	return s.quiescer
}

// Stop signals quiescence and waits for in-flight tasks to drain. It is
// idempotent.
func (s *Stopper) Stop(ctx context.Context) {
	s.mu.Lock()
	alreadyQuiescing := s.mu.quiescing
	s.mu.quiescing = true
	s.mu.Unlock()
	if !alreadyQuiescing {
		close(s.quiescer)
	}
	s.mu.tasks.Wait()
}
