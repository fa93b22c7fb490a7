// Copyright 2017-2024 Lei Ni (nilei81@gmail.com) and other contributors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package uring wraps a fixed capacity kernel submission/completion ring.

The ring is purely mechanical. SubmitWrite queues one write stamped with a
caller chosen correlation tag, WaitForCompletions passes all queued writes to
the kernel, blocks until enough completions are available and drains exactly
the requested number of them. Nothing is retried. A Ring is not safe for
concurrent use.

Submitting while the ring already holds Capacity() unacknowledged operations
fails with ErrQueueFull, callers are expected to wait for completions before
that happens.
*/
package uring

import (
	"runtime"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/lni/iobench/internal/invariants"
	"github.com/lni/iobench/logger"
)

var (
	plog = logger.GetLogger("uring")
)

var (
	// ErrNotSupported indicates that the kernel ring is not available.
	ErrNotSupported = errors.New("submission ring not supported")
	// ErrInvalidCapacity indicates that the requested capacity is invalid.
	ErrInvalidCapacity = errors.New("invalid ring capacity")
	// ErrQueueFull indicates that the ring already holds capacity outstanding
	// operations. It is a programming error of the caller.
	ErrQueueFull = errors.New("submission queue is full")
	// ErrNotEnoughOutstanding indicates that more completions were requested
	// than operations are outstanding.
	ErrNotEnoughOutstanding = errors.New("not enough outstanding operations")
	// ErrEmptyBuffer indicates an attempt to submit an empty write.
	ErrEmptyBuffer = errors.New("empty write buffer")
	// ErrClosed indicates that the ring has been closed.
	ErrClosed = errors.New("ring closed")
)

// Completion is the result of a completed operation.
type Completion struct {
	// Tag is the correlation tag the operation was submitted with.
	Tag uint64
	// Result is the number of bytes written, or the negated errno value when
	// the operation failed.
	Result int32
}

// Failed returns a boolean value indicating whether the operation failed.
func (c Completion) Failed() bool {
	return c.Result < 0
}

// Errno returns the error number of a failed operation, or 0.
func (c Completion) Errno() syscall.Errno {
	if c.Result >= 0 {
		return 0
	}
	return syscall.Errno(-c.Result)
}

// Available returns a boolean value indicating whether a ring can be opened
// on the running system.
func Available() bool {
	if !invariants.IsRingSupportedOS() || !invariants.IsRingSupportedArch() {
		plog.Debugf("submission ring not supported on %s/%s",
			runtime.GOOS, runtime.GOARCH)
		return false
	}
	r, err := Open(1)
	if err != nil {
		plog.Debugf("submission ring not available, %v", err)
		return false
	}
	if err := r.Close(); err != nil {
		plog.Warningf("failed to close probe ring, %v", err)
	}
	return true
}
