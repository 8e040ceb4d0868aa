// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package reader consumes the merged output stream of a test runner,
// splitting framed protocol events from ordinary program output.
package reader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"pytestbridge/internal/protocol"
)

// Handler receives the contents of a merged runner stream in arrival
// order. Exactly one method is invoked per input line.
type Handler interface {
	// CaseStarted is called for each case_start event.
	CaseStarted(ev *protocol.CaseStart)
	// CaseFinished is called for each case event.
	CaseFinished(ev *protocol.Case)
	// EmitterError is called for each emitter self-diagnostic.
	EmitterError(ev *protocol.Error)
	// Output is called with each non-protocol line, verbatim except for
	// the trailing newline.
	Output(line string)
	// Malformed is called for a prefixed line whose payload could not be
	// decoded. The line is skipped; it is neither an event nor output.
	Malformed(line string, err error)
}

// Read consumes r line by line until EOF, dispatching each line to h. The
// stream is processed incrementally and may be unbounded; the producer is
// never blocked by more than one buffered line. Lines of arbitrary length
// are supported, and a final line without a trailing newline is still
// dispatched.
//
// Read returns nil on EOF, an error describing a failed read otherwise,
// or ctx.Err() if the context is canceled between lines.
func Read(ctx context.Context, r io.Reader, h Handler) error {
	br := bufio.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := br.ReadString('\n')
		if err == nil || line != "" {
			dispatch(strings.TrimSuffix(line, "\n"), h)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("unable to read stream: %v", err)
		}
	}
}

// dispatch routes one line, already stripped of its newline, to h.
func dispatch(line string, h Handler) {
	ev, framed, err := protocol.ParseLine(line)
	if !framed {
		h.Output(line)
		return
	}
	if err != nil {
		h.Malformed(line, err)
		return
	}
	switch v := ev.(type) {
	case *protocol.CaseStart:
		h.CaseStarted(v)
	case *protocol.Case:
		h.CaseFinished(v)
	case *protocol.Error:
		h.EmitterError(v)
	}
}
