// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the pytestbridge executable, used to consume the
// merged output stream of a test runner carrying framed protocol events.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"pytestbridge/internal/logging"
)

const (
	signalChannelSize = 3 // capacity of channel used to intercept signals
)

// Version is the version info of this command. It is filled in at build time.
var Version = "<unknown>"

// installSignalHandler starts a goroutine that cancels the root context
// when the process is asked to terminate, so the read loop can stop
// between lines instead of dying mid-dispatch.
func installSignalHandler(cancel context.CancelFunc) {
	sc := make(chan os.Signal, signalChannelSize)
	go func() {
		for sig := range sc {
			fmt.Fprintf(os.Stderr, "\nCaught %v signal; exiting\n", sig)
			cancel()
		}
	}()
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
}

// doMain implements the main body of the program. It's a separate function
// so that its deferred functions will run before os.Exit makes the program
// exit immediately.
func doMain() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(newReadCmd(os.Stdout), "")

	version := flag.Bool("version", false, "print version and exit")
	verbose := flag.Bool("verbose", false, "use verbose logging")
	logTime := flag.Bool("logtime", false, "include timestamps in logs")
	flag.Parse()

	if *version {
		fmt.Printf("pytestbridge version %s\n", Version)
		return 0
	}

	lg := logging.NewWriterLogger(os.Stderr, *verbose, *logTime)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logging.AttachLogger(ctx, lg)

	installSignalHandler(cancel)

	return int(subcommands.Execute(ctx))
}

func main() {
	os.Exit(doMain())
}
