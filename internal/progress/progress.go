// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package progress models the state of a test run as observed through
// protocol events on the runner's output stream.
package progress

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"

	"pytestbridge/internal/protocol"
)

// Failure records one failed case.
type Failure struct {
	// NodeID identifies the failed case.
	NodeID string
	// Longrepr is the failure rendering carried by the case event.
	Longrepr string
}

// RunningCase is a case that has started but not yet finished.
type RunningCase struct {
	// NodeID identifies the case.
	NodeID string
	// Elapsed is the time since its case_start event was observed.
	Elapsed time.Duration
}

// Snapshot describes the state of a run at one point in time.
type Snapshot struct {
	// Running lists in-flight cases in start order.
	Running []RunningCase
	// Counts maps each observed outcome to the number of finished cases
	// with that outcome.
	Counts map[string]int
	// Failures lists failed cases in finish order.
	Failures []Failure
	// EmitterErrors is the number of emitter self-diagnostics observed.
	EmitterErrors int
	// Malformed is the number of undecodable protocol lines observed.
	Malformed int
	// Anomalies counts events that violated the per-case lifecycle: a
	// second start or finish for the same nodeid, or a finish with no
	// earlier start.
	Anomalies int
}

// Tracker accumulates run state from a merged runner stream. It implements
// reader.Handler: protocol events update the model and ordinary output
// lines are copied verbatim to the passthrough writer. A case that starts
// and never finishes stays in the running set; a crashed runner makes that
// a legitimate terminal state, so it is not an anomaly.
type Tracker struct {
	clk clock.Clock
	out io.Writer

	mu            sync.Mutex
	startOrder    []string
	running       map[string]time.Time
	finished      map[string]string
	counts        map[string]int
	failures      []Failure
	emitterErrors int
	malformed     int
	anomalies     int
}

// NewTracker returns a Tracker that timestamps cases with clk and copies
// passthrough output to out.
func NewTracker(clk clock.Clock, out io.Writer) *Tracker {
	return &Tracker{
		clk:      clk,
		out:      out,
		running:  make(map[string]time.Time),
		finished: make(map[string]string),
		counts:   make(map[string]int),
	}
}

// CaseStarted records that a case began executing.
func (t *Tracker) CaseStarted(ev *protocol.CaseStart) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.running[ev.NodeID]; ok {
		t.anomalies++
		return
	}
	if _, ok := t.finished[ev.NodeID]; ok {
		t.anomalies++
		return
	}
	t.running[ev.NodeID] = t.clk.Now()
	t.startOrder = append(t.startOrder, ev.NodeID)
}

// CaseFinished records the outcome of a case's call phase.
func (t *Tracker) CaseFinished(ev *protocol.Case) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.finished[ev.NodeID]; ok {
		// At most one case event per nodeid; keep the first.
		t.anomalies++
		return
	}
	if _, ok := t.running[ev.NodeID]; ok {
		delete(t.running, ev.NodeID)
	} else {
		t.anomalies++
	}
	t.finished[ev.NodeID] = ev.Outcome
	t.counts[ev.Outcome]++
	if ev.Outcome == protocol.OutcomeFailed {
		f := Failure{NodeID: ev.NodeID}
		if ev.Longrepr != nil {
			f.Longrepr = *ev.Longrepr
		}
		t.failures = append(t.failures, f)
	}
}

// EmitterError records an emitter self-diagnostic.
func (t *Tracker) EmitterError(ev *protocol.Error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emitterErrors++
}

// Output copies a non-protocol line to the passthrough writer.
func (t *Tracker) Output(line string) {
	fmt.Fprintln(t.out, line)
}

// Malformed records a protocol line that could not be decoded.
func (t *Tracker) Malformed(line string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.malformed++
}

// Snapshot returns a copy of the current run state.
func (t *Tracker) Snapshot() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clk.Now()
	s := &Snapshot{
		Counts:        make(map[string]int, len(t.counts)),
		Failures:      append([]Failure(nil), t.failures...),
		EmitterErrors: t.emitterErrors,
		Malformed:     t.malformed,
		Anomalies:     t.anomalies,
	}
	for outcome, n := range t.counts {
		s.Counts[outcome] = n
	}
	for _, nodeid := range t.startOrder {
		if started, ok := t.running[nodeid]; ok {
			s.Running = append(s.Running, RunningCase{
				NodeID:  nodeid,
				Elapsed: now.Sub(started),
			})
		}
	}
	return s
}

// Failed reports whether any finished case failed.
func (t *Tracker) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[protocol.OutcomeFailed] > 0
}

// Summary renders a one-line rollup of the run state, e.g.
// "1 failed, 2 passed (1 still running)". Outcomes appear in sorted order.
func (t *Tracker) Summary() string {
	s := t.Snapshot()

	outcomes := make([]string, 0, len(s.Counts))
	for outcome := range s.Counts {
		outcomes = append(outcomes, outcome)
	}
	sort.Strings(outcomes)

	var parts []string
	for _, outcome := range outcomes {
		parts = append(parts, fmt.Sprintf("%d %s", s.Counts[outcome], outcome))
	}
	if len(parts) == 0 {
		parts = append(parts, "no tests finished")
	}
	line := strings.Join(parts, ", ")
	if n := len(s.Running); n > 0 {
		line += fmt.Sprintf(" (%d still running)", n)
	}
	if s.EmitterErrors > 0 {
		line += fmt.Sprintf(" [%d emitter errors]", s.EmitterErrors)
	}
	return line
}
