// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"pytestbridge/internal/logging"
	"pytestbridge/internal/progress"
	"pytestbridge/internal/reader"
)

// readCmd implements subcommands.Command to consume a merged runner stream.
type readCmd struct {
	input    string        // stream to read, "-" for stdin
	status   bool          // periodically log a status line
	interval time.Duration // status line interval
	stdout   io.Writer     // where to forward passthrough output
}

var _ = subcommands.Command(&readCmd{})

// newReadCmd returns a new readCmd that forwards passthrough output to stdout.
func newReadCmd(stdout io.Writer) *readCmd {
	return &readCmd{stdout: stdout}
}

func (*readCmd) Name() string     { return "read" }
func (*readCmd) Synopsis() string { return "read a merged test runner stream" }
func (*readCmd) Usage() string {
	return `Usage: read [flag]...

Description:
    Consume the combined output of a test runner carrying framed protocol
    events. Ordinary output lines are forwarded to stdout unmodified;
    protocol lines drive a per-test progress model whose summary is logged
    when the stream ends. Exits nonzero if any test failed.

Flag:
`
}

func (rc *readCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&rc.input, "input", "-", `stream to read ("-" for stdin)`)
	f.BoolVar(&rc.status, "status", false, "periodically log a status line while reading")
	f.DurationVar(&rc.interval, "interval", 2*time.Second, "status line interval")
}

func (rc *readCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	in := os.Stdin
	if rc.input != "-" {
		var err error
		if in, err = os.Open(rc.input); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			return subcommands.ExitFailure
		}
		defer in.Close()
	}

	clk := clock.NewClock()
	tr := progress.NewTracker(clk, rc.stdout)
	if err := rc.consume(ctx, clk, in, tr); err != nil && err != context.Canceled {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		return subcommands.ExitFailure
	}
	logging.Info(ctx, tr.Summary())

	if tr.Failed() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// consume runs the read loop over in, plus a periodic status logger when
// enabled. It returns when the stream ends or ctx is canceled.
func (rc *readCmd) consume(ctx context.Context, clk clock.Clock, in io.Reader, tr *progress.Tracker) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return reader.Read(ctx, in, tr)
	})
	if rc.status {
		g.Go(func() error {
			t := clk.NewTicker(rc.interval)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C():
					logging.Info(ctx, tr.Summary())
				}
			}
		})
	}
	return g.Wait()
}
