// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package protocol defines the framed event records a test runner emits to
// describe the state of a test run.
//
// Events are JSON-marshaled, one object per line, and carry a sentinel
// prefix so that a reader can pick protocol lines out of the runner's
// ordinary console output sharing the same stream. A typical sequence is
// as follows:
//
//	case_start (first test about to run)
//	case (first test finished its call phase)
//	case_start (second test about to run)
//	case (second test finished its call phase)
//
// Every event is a JSON object with a "type" field naming its variant and
// the variant-specific fields defined on the structs below. A case may
// start and never finish; readers must treat that as a legitimate terminal
// state of a crashed runner, not a protocol error.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// LinePrefix is the sentinel that marks a protocol line on the shared
// stream. It is a compatibility constant shared with existing readers and
// must match byte for byte; the trailing space separates it from the JSON
// payload.
const LinePrefix = "HEADLAMP_PYTEST_EVENT "

// Type identifies an event variant on the wire.
type Type string

const (
	// TypeCaseStart tags events announcing that a test case is about to run.
	TypeCaseStart Type = "case_start"
	// TypeCase tags events describing a finished call phase of a test case.
	TypeCase Type = "case"
	// TypeError tags emitter self-diagnostics.
	TypeError Type = "error"
)

// Outcome values reported by the host runner and passed through verbatim.
const (
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Event is an interface implemented by all event types.
type Event interface {
	// isEvent indicates that a type is an event type. It is not intended to
	// be called. Since this method is unexported, no other packages can
	// define event types.
	isEvent()
}

// CaseStart announces that a test case is about to execute its body.
// It is emitted once per case, before the call phase begins.
type CaseStart struct {
	// NodeID is a stable identifier for the test case within the run.
	// It is never empty by convention, but an empty value is tolerated.
	NodeID string `json:"nodeid"`
}

func (*CaseStart) isEvent() {}

// Case describes the completed call phase of a test case. It is emitted at
// most once per case; setup and teardown phases never produce one.
type Case struct {
	// NodeID matches the identifier of the earlier CaseStart.
	NodeID string `json:"nodeid"`
	// Outcome is the runner's verdict, e.g. "passed", "failed" or "skipped".
	Outcome string `json:"outcome"`
	// Duration is the call phase duration in seconds. It is never negative.
	Duration float64 `json:"duration"`
	// Stdout is output captured from the test body.
	Stdout string `json:"stdout"`
	// Stderr is error output captured from the test body.
	Stderr string `json:"stderr"`
	// Longrepr is a human-readable failure rendering. It is set, possibly
	// to an empty string, exactly when Outcome is "failed"; it is absent
	// from the wire otherwise.
	Longrepr *string `json:"longrepr,omitempty"`
}

func (*Case) isEvent() {}

// Error is an emitter self-diagnostic, sent in place of an event that
// could not be serialized. It is never sent in place of an event that
// serialized successfully.
type Error struct {
	// Message is the string form of the serialization failure.
	Message string `json:"message"`
}

func (*Error) isEvent() {}

// Marshal serializes ev as a compact one-line JSON object tagged with its
// type.
func Marshal(ev Event) ([]byte, error) {
	switch v := ev.(type) {
	case *CaseStart:
		return json.Marshal(struct {
			Type Type `json:"type"`
			*CaseStart
		}{TypeCaseStart, v})
	case *Case:
		return json.Marshal(struct {
			Type Type `json:"type"`
			*Case
		}{TypeCase, v})
	case *Error:
		return json.Marshal(struct {
			Type Type `json:"type"`
			*Error
		}{TypeError, v})
	default:
		return nil, errors.New("unable to encode event of unknown type")
	}
}

// AppendLine appends ev to b as a complete protocol line: the sentinel
// prefix, the JSON payload and a trailing newline. The payload itself
// never contains an unescaped newline, so the result is exactly one line.
func AppendLine(b []byte, ev Event) ([]byte, error) {
	j, err := Marshal(ev)
	if err != nil {
		return nil, err
	}
	b = append(b, LinePrefix...)
	b = append(b, j...)
	return append(b, '\n'), nil
}

// ParseLine interprets one line, without its trailing newline, from a
// merged runner stream. The returned bool reports whether the line carried
// the sentinel prefix. Lines without the prefix are ordinary program
// output and yield (nil, false, nil). A prefixed line that cannot be
// decoded yields a non-nil error together with true so that callers can
// skip it as a malformed protocol line rather than forwarding it as
// output.
func ParseLine(line string) (Event, bool, error) {
	rest, ok := strings.CutPrefix(line, LinePrefix)
	if !ok {
		return nil, false, nil
	}
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal([]byte(rest), &head); err != nil {
		return nil, true, fmt.Errorf("unable to decode event: %v", err)
	}
	var ev Event
	switch head.Type {
	case TypeCaseStart:
		ev = &CaseStart{}
	case TypeCase:
		ev = &Case{}
	case TypeError:
		ev = &Error{}
	default:
		return nil, true, fmt.Errorf("unable to decode event of unknown type %q", head.Type)
	}
	if err := json.Unmarshal([]byte(rest), ev); err != nil {
		return nil, true, fmt.Errorf("unable to decode %s event: %v", head.Type, err)
	}
	return ev, true, nil
}
