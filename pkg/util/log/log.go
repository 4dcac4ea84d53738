// Copyright 2026 The RangeKV Authors.
//
// Use of this software is governed by the Apache License, Version 2.0
// included in the /LICENSE file.

// Package log provides context-aware leveled logging for the module.
// Context tags attached via logtags are rendered as a bracketed prefix on
// every line, and arguments are formatted through redact so that log
// output stays safe to ship off-host.
package log

import (
	"context"
	stdlog "log"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/logtags"
	"github.com/cockroachdb/redact"
)

type severity int

const (
	severityInfo severity = iota
	severityWarning
	severityError
)

func (s severity) prefix() string {
	switch s {
	case severityWarning:
		return "W"
	case severityError:
		return "E"
	default:
		return "I"
	}
}

var logger = stdlog.New(os.Stderr, "", stdlog.LstdFlags|stdlog.Lmicroseconds)

// verbosity gates V and VEventf. Zero disables verbose events.
var verbosity atomic.Int32

// SetVerbosity sets the threshold below which V(level) returns true.
func SetVerbosity(level int32) {
	verbosity.Store(level)
}

// V returns true if verbose logging is enabled at the given level.
func V(level int32) bool {
	return verbosity.Load() >= level
}

func output(ctx context.Context, sev severity, format string, args ...interface{}) {
	msg := redact.Sprintf(format, args...)
	if tags := logtags.FromContext(ctx); tags != nil {
		logger.Printf("%s [%s] %s", sev.prefix(), tags.String(), msg.StripMarkers())
		return
	}
	logger.Printf("%s %s", sev.prefix(), msg.StripMarkers())
}

// Infof logs an informational message.
func Infof(ctx context.Context, format string, args ...interface{}) {
	output(ctx, severityInfo, format, args...)
}

// Warningf logs a warning.
func Warningf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, severityWarning, format, args...)
}

// Errorf logs an error.
func Errorf(ctx context.Context, format string, args ...interface{}) {
	output(ctx, severityError, format, args...)
}

// VEventf logs an informational message if verbose logging is enabled at
// the given level.
func VEventf(ctx context.Context, level int32, format string, args ...interface{}) {
	if V(level) {
		output(ctx, severityInfo, format, args...)
	}
}
