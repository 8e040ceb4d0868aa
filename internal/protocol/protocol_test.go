// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package protocol

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func strp(s string) *string { return &s }

func TestMarshal(t *testing.T) {
	for _, tc := range []struct {
		ev   Event
		want string
	}{
		{
			&CaseStart{NodeID: "tests/test_x.py::test_ok"},
			`{"type":"case_start","nodeid":"tests/test_x.py::test_ok"}`,
		},
		{
			&Case{NodeID: "tests/test_x.py::test_ok", Outcome: "passed", Duration: 0.01},
			`{"type":"case","nodeid":"tests/test_x.py::test_ok","outcome":"passed","duration":0.01,"stdout":"","stderr":""}`,
		},
		{
			&Case{NodeID: "tests/test_x.py::test_bad", Outcome: "failed", Stderr: "boom", Longrepr: strp("AssertionError")},
			`{"type":"case","nodeid":"tests/test_x.py::test_bad","outcome":"failed","duration":0,"stdout":"","stderr":"boom","longrepr":"AssertionError"}`,
		},
		{
			&Error{Message: "whoops"},
			`{"type":"error","message":"whoops"}`,
		},
	} {
		b, err := Marshal(tc.ev)
		if err != nil {
			t.Errorf("Marshal(%+v) failed: %v", tc.ev, err)
			continue
		}
		if string(b) != tc.want {
			t.Errorf("Marshal(%+v) = %q; want %q", tc.ev, string(b), tc.want)
		}
	}
}

func TestMarshalLongreprPresence(t *testing.T) {
	// The longrepr key must be present for failed outcomes even when the
	// rendering is empty, and absent otherwise.
	b, err := Marshal(&Case{NodeID: "t", Outcome: OutcomeFailed, Longrepr: strp("")})
	if err != nil {
		t.Fatal("Marshal() failed: ", err)
	}
	if !strings.Contains(string(b), `"longrepr":""`) {
		t.Errorf("Marshal() = %q; missing empty longrepr", string(b))
	}

	b, err = Marshal(&Case{NodeID: "t", Outcome: OutcomePassed})
	if err != nil {
		t.Fatal("Marshal() failed: ", err)
	}
	if strings.Contains(string(b), "longrepr") {
		t.Errorf("Marshal() = %q; longrepr should be absent for passed outcome", string(b))
	}
}

func TestAppendLineFraming(t *testing.T) {
	line, err := AppendLine(nil, &CaseStart{NodeID: "pkg/test.py::t"})
	if err != nil {
		t.Fatal("AppendLine() failed: ", err)
	}
	if !bytes.HasPrefix(line, []byte(LinePrefix)) {
		t.Errorf("AppendLine() = %q; want %q prefix", line, LinePrefix)
	}
	if !bytes.HasSuffix(line, []byte("\n")) {
		t.Errorf("AppendLine() = %q; want trailing newline", line)
	}
}

func TestAppendLineSingleLine(t *testing.T) {
	// Newlines in captured output must be escaped so each event stays on
	// exactly one line.
	ev := &Case{NodeID: "t", Outcome: OutcomePassed, Stdout: "first\nsecond", Stderr: "a\nb"}
	line, err := AppendLine(nil, ev)
	if err != nil {
		t.Fatal("AppendLine() failed: ", err)
	}
	if n := bytes.Count(line, []byte("\n")); n != 1 {
		t.Errorf("AppendLine() produced %d newlines; want 1: %q", n, line)
	}
}

func TestParseLineRoundTrip(t *testing.T) {
	evs := []Event{
		&CaseStart{NodeID: "tests/test_x.py::test_ok"},
		&Case{NodeID: "tests/test_x.py::test_ok", Outcome: OutcomePassed, Duration: 0.01},
		&Case{NodeID: "tests/test_x.py::test_bad", Outcome: OutcomeFailed, Duration: 1.5,
			Stdout: "out", Stderr: "boom", Longrepr: strp("AssertionError")},
		&Error{Message: "whoops"},
	}
	for _, ev := range evs {
		line, err := AppendLine(nil, ev)
		if err != nil {
			t.Fatalf("AppendLine(%+v) failed: %v", ev, err)
		}
		got, framed, err := ParseLine(strings.TrimSuffix(string(line), "\n"))
		if err != nil {
			t.Errorf("ParseLine(%q) failed: %v", line, err)
			continue
		}
		if !framed {
			t.Errorf("ParseLine(%q) did not recognize the sentinel", line)
			continue
		}
		if diff := cmp.Diff(ev, got); diff != "" {
			t.Errorf("ParseLine(%q) mismatch (-want +got):\n%s", line, diff)
		}
	}
}

func TestParseLinePassthrough(t *testing.T) {
	for _, line := range []string{
		"",
		"collected 3 items",
		`{"type":"case_start","nodeid":"t"}`, // JSON but no sentinel
		"HEADLAMP_PYTEST_EVENT",              // sentinel without its trailing space
		" " + LinePrefix + "{}",              // sentinel not at start of line
	} {
		ev, framed, err := ParseLine(line)
		if ev != nil || framed || err != nil {
			t.Errorf("ParseLine(%q) = %v, %v, %v; want nil, false, nil", line, ev, framed, err)
		}
	}
}

func TestParseLineMalformed(t *testing.T) {
	for _, line := range []string{
		LinePrefix + "not json",
		LinePrefix + `{"type":"case_start"`, // truncated mid-object
		LinePrefix + `{"type":"heartbeat"}`, // unknown variant
		LinePrefix,                          // empty payload
	} {
		ev, framed, err := ParseLine(line)
		if !framed {
			t.Errorf("ParseLine(%q) did not recognize the sentinel", line)
		}
		if err == nil {
			t.Errorf("ParseLine(%q) = %v; want decode error", line, ev)
		}
	}
}

func TestMarshalUnknownType(t *testing.T) {
	if _, err := Marshal(nil); err == nil {
		t.Error("Marshal(nil) succeeded; want error")
	}
}
