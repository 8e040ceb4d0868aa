// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package emitter converts test lifecycle callbacks into framed protocol
// lines on the runner's output stream.
//
// The emitter is a passive observer bolted onto a host runner's hook
// mechanism: it runs inline on whatever goroutine delivers the callbacks,
// holds no state across events, and must never let an internal fault abort
// the host test run. Every failure path degrades to a best-effort error
// event and returns normally.
package emitter

import (
	"io"
	"sync"

	"pytestbridge/internal/protocol"
)

// phaseCall is the report phase corresponding to running the test body.
// Only reports for this phase produce case events.
const phaseCall = "call"

// Report carries the fields of one per-phase test report from the host
// runner. It stands in for the runner's loosely typed report object:
// fields the runner omits are simply left at their zero values, and the
// emitter treats those as an empty string or a zero duration rather than
// surfacing a fault.
type Report struct {
	// When is the lifecycle phase the report covers, e.g. "setup", "call"
	// or "teardown".
	When string
	// NodeID identifies the test case within the run.
	NodeID string
	// Outcome is the runner's verdict for the phase.
	Outcome string
	// Duration is the phase duration in seconds.
	Duration float64
	// Stdout is output captured from the test body.
	Stdout string
	// Stderr is error output captured from the test body.
	Stderr string
	// Longrepr is the runner's failure rendering. It is consulted only
	// when Outcome is "failed".
	Longrepr string
}

// flusher is implemented by sinks that buffer writes.
type flusher interface {
	Flush() error
}

// Emitter writes framed protocol lines describing test lifecycle progress.
// It is safe to call its methods concurrently from multiple goroutines,
// although the host runner is expected to deliver callbacks from one.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// New returns an Emitter writing framed events to w. If w buffers writes
// and implements Flush, it is flushed after every event so that a reader
// polling the stream sees each event before the emitter proceeds.
func New(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// TestStarted reports that the test identified by nodeid is about to
// execute its body. An empty nodeid is tolerated; degenerate driver states
// produce one rather than none.
func (e *Emitter) TestStarted(nodeid string) {
	e.emit(&protocol.CaseStart{NodeID: nodeid})
}

// TestReported consumes one per-phase report from the host runner.
// Reports for phases other than the call phase are dropped without
// emitting anything; the call phase yields exactly one case event.
func (e *Emitter) TestReported(r *Report) {
	if r == nil || r.When != phaseCall {
		return
	}
	ev := &protocol.Case{
		NodeID:   r.NodeID,
		Outcome:  r.Outcome,
		Duration: r.Duration,
		Stdout:   r.Stdout,
		Stderr:   r.Stderr,
	}
	if !(ev.Duration >= 0) {
		// Missing durations arrive as zero; anything below that (or NaN)
		// would break the published contract that durations are never
		// negative.
		ev.Duration = 0
	}
	if ev.Outcome == protocol.OutcomeFailed {
		longrepr := r.Longrepr
		ev.Longrepr = &longrepr
	}
	e.emit(ev)
}

// Hooks returns the two lifecycle callbacks for explicit registration
// against a host runner's test-lifecycle extension point.
func (e *Emitter) Hooks() (started func(nodeid string), reported func(*Report)) {
	return e.TestStarted, e.TestReported
}

// emit writes one framed line for ev. It never returns an error and never
// panics: an event that cannot be serialized is replaced by an error
// event, and stream write faults are left to the host process's own fault
// handling.
func (e *Emitter) emit(ev protocol.Event) {
	line, err := protocol.AppendLine(nil, ev)
	if err != nil {
		line, err = protocol.AppendLine(nil, &protocol.Error{Message: err.Error()})
		if err != nil {
			return
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.w.Write(line)
	if f, ok := e.w.(flusher); ok {
		f.Flush()
	}
}
