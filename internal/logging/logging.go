// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package logging provides context-attached logging for the supervising
// process.
//
// A Logger is attached to a context.Context with AttachLogger, and code
// holding a context logs through the package-level Info/Debug functions.
// Contexts without a logger drop logs silently, which keeps library code
// free of logger plumbing.
package logging

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// Level indicates a logging level. A larger level value means a log is
// more important.
type Level int

const (
	// LevelDebug represents the DEBUG level.
	LevelDebug Level = iota
	// LevelInfo represents the INFO level.
	LevelInfo
)

// Logger defines the interface for loggers that consume logs sent via
// context.Context.
type Logger interface {
	// Log gets called for a log entry.
	Log(level Level, ts time.Time, msg string)
}

// WriterLogger is a Logger that writes logs to an io.Writer, one per line.
// All writes are synchronized.
type WriterLogger struct {
	mu        sync.Mutex
	w         io.Writer
	verbose   bool
	timestamp bool
}

// NewWriterLogger creates a WriterLogger writing to w. If verbose is true,
// debug logs are written as well; otherwise only info logs are. If
// timestamp is true, a UTC timestamp is prepended to each line.
func NewWriterLogger(w io.Writer, verbose, timestamp bool) *WriterLogger {
	return &WriterLogger{w: w, verbose: verbose, timestamp: timestamp}
}

// Log writes a log to the underlying io.Writer.
func (l *WriterLogger) Log(level Level, ts time.Time, msg string) {
	if level < LevelInfo && !l.verbose {
		return
	}
	if l.timestamp {
		msg = ts.UTC().Format("2006-01-02T15:04:05.000000Z ") + msg
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, msg)
}

// contextKey is the key type for a Logger attached to a context.Context.
type contextKey struct{}

// AttachLogger creates a context with logger attached. Logs sent to the
// returned context and its descendants are consumed by logger.
func AttachLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// loggerFromContext extracts a logger from a context.
func loggerFromContext(ctx context.Context) (Logger, bool) {
	logger, ok := ctx.Value(contextKey{}).(Logger)
	return logger, ok
}

// log sends a log to the logger attached to ctx, if any.
func log(ctx context.Context, level Level, msg string) {
	logger, ok := loggerFromContext(ctx)
	if !ok {
		return
	}
	logger.Log(level, time.Now(), msg)
}

// Info formats its arguments using default formatting and logs them at the
// INFO level via ctx.
func Info(ctx context.Context, args ...interface{}) {
	log(ctx, LevelInfo, fmt.Sprint(args...))
}

// Infof is similar to Info but formats its arguments using fmt.Sprintf.
func Infof(ctx context.Context, format string, args ...interface{}) {
	log(ctx, LevelInfo, fmt.Sprintf(format, args...))
}

// Debug formats its arguments using default formatting and logs them at
// the DEBUG level via ctx.
func Debug(ctx context.Context, args ...interface{}) {
	log(ctx, LevelDebug, fmt.Sprint(args...))
}

// Debugf is similar to Debug but formats its arguments using fmt.Sprintf.
func Debugf(ctx context.Context, format string, args ...interface{}) {
	log(ctx, LevelDebug, fmt.Sprintf(format, args...))
}
