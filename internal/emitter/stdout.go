// Copyright 2026 The pytestbridge Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package emitter

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// stdoutFD is the process-level standard output descriptor. Host runners
// capture output by swapping the writer object they hand to test code, not
// by reopening this descriptor, so a duplicate of it always reaches the
// supervising process.
const stdoutFD = 1

// NewStdout returns an Emitter bound to the process's original standard
// output. The descriptor is duplicated once, so output capturing the host
// runner applies afterwards does not divert emitted events. Writes to the
// duplicate go straight to the kernel with no userspace buffering, which
// makes each event visible to a reader polling the stream before the
// emitter proceeds.
func NewStdout() (*Emitter, error) {
	fd, err := unix.Dup(stdoutFD)
	if err != nil {
		return nil, fmt.Errorf("unable to duplicate stdout: %v", err)
	}
	unix.CloseOnExec(fd)
	return New(os.NewFile(uintptr(fd), "stdout")), nil
}
