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
Package engine implements the bounded depth pipelined write engine.

The Scheduler keeps at most Window writes outstanding on a submission ring.
Every write uses its own aligned buffer, the buffer is handed to the ring on
submission and it is only released after the completion carrying the write's
tag has been observed. Completions are matched to in-flight writes by tag,
when the writes are chained they must also retire in submission order.

With a window of W, the scheduler primes W-1 writes, then for each remaining
block it submits one write and waits for one completion, once all blocks have
been submitted it drains the window. A window of 1 thus waits for every write
right after submitting it.
*/
package engine

import (
	"fmt"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lni/iobench/internal/align"
	"github.com/lni/iobench/internal/block"
	"github.com/lni/iobench/internal/report"
	"github.com/lni/iobench/internal/uring"
	"github.com/lni/iobench/logger"
)

var (
	plog = logger.GetLogger("engine")
)

var (
	// ErrInvalidConfig indicates that the scheduler config is invalid.
	ErrInvalidConfig = errors.New("invalid engine config")
	// ErrUnknownTag indicates a completion that matches no in-flight write.
	ErrUnknownTag = errors.New("completion tag matches no in-flight write")
	// ErrOutOfOrder indicates that chained writes retired out of submission
	// order.
	ErrOutOfOrder = errors.New("chained write completed out of order")
)

// Ring is the submission ring used by the scheduler.
type Ring interface {
	Capacity() int
	Outstanding() int
	SubmitWrite(fd int, buf []byte, offset uint64, tag uint64, chained bool) error
	WaitForCompletions(count int) ([]uring.Completion, error)
}

// CompletionPolicy decides what happens when a completion reports an error.
type CompletionPolicy int

const (
	// AbortOnError stops the run on the first failed write.
	AbortOnError CompletionPolicy = iota
	// LogAndContinue logs failed writes and keeps submitting.
	LogAndContinue
)

func (p CompletionPolicy) String() string {
	switch p {
	case AbortOnError:
		return "abort"
	case LogAndContinue:
		return "log"
	}
	return fmt.Sprintf("CompletionPolicy(%d)", int(p))
}

// IOError is the error returned when a write failed and the policy is
// AbortOnError.
type IOError struct {
	Tag   uint64
	Block uint64
	Errno syscall.Errno
}

func (e *IOError) Error() string {
	return fmt.Sprintf("write of block %d (tag %d) failed: %v",
		e.Block, e.Tag, e.Errno)
}

// Unwrap returns the errno of the failed write.
func (e *IOError) Unwrap() error {
	return e.Errno
}

// Observer is notified about every submission and completion. It is called
// on the goroutine running the scheduler.
type Observer interface {
	Submitted(tag uint64, outstanding int)
	Completed(c uring.Completion, outstanding int)
}

// Config is the scheduler config.
type Config struct {
	block.Layout
	// Window is the max number of outstanding writes.
	Window uint64
	// Alignment is the byte alignment of write buffers.
	Alignment uint64
	// Chained links every write to the next one.
	Chained bool
	// Policy is the policy applied to failed writes.
	Policy CompletionPolicy
	// EnableMetrics exports engine counters.
	EnableMetrics bool
}

// Validate validates the config against the capacity of the ring.
func (c *Config) Validate(capacity int) error {
	if c.Window == 0 {
		return errors.Wrapf(ErrInvalidConfig, "window must be > 0")
	}
	if capacity <= 0 || c.Window > uint64(capacity) {
		return errors.Wrapf(ErrInvalidConfig,
			"window %d exceeds ring capacity %d", c.Window, capacity)
	}
	if !block.ValidSize(c.BlockSize) {
		return errors.Wrapf(ErrInvalidConfig, "block size %d", c.BlockSize)
	}
	if c.Policy != AbortOnError && c.Policy != LogAndContinue {
		return errors.Wrapf(ErrInvalidConfig, "policy %s", c.Policy)
	}
	return nil
}

type request struct {
	tag       uint64
	block     uint64
	buf       *align.Buffer
	submitted time.Time
}

// Scheduler drives a bounded window of outstanding writes over a Ring.
type Scheduler struct {
	cfg      Config
	ring     Ring
	fd       int
	pool     *align.Pool
	window   *window
	observer Observer
	metrics  *engineMetrics
	stats    report.Stats
	nextTag  uint64
}

// New creates a scheduler writing to fd through ring.
func New(ring Ring, fd int, cfg Config) (*Scheduler, error) {
	if err := cfg.Validate(ring.Capacity()); err != nil {
		return nil, err
	}
	pool, err := align.NewPool(int(cfg.BlockSize), int(cfg.Alignment))
	if err != nil {
		return nil, errors.Mark(err, ErrInvalidConfig)
	}
	return &Scheduler{
		cfg:     cfg,
		ring:    ring,
		fd:      fd,
		pool:    pool,
		window:  newWindow(),
		metrics: newEngineMetrics(cfg.EnableMetrics),
	}, nil
}

// SetObserver sets the observer notified about submissions and completions.
func (s *Scheduler) SetObserver(o Observer) {
	s.observer = o
}

// Run writes all blocks and returns once every submitted write has
// completed. No buffer is released while the ring still references it, this
// holds on error paths as well.
func (s *Scheduler) Run() (report.Stats, error) {
	count := s.cfg.Count
	prime := s.cfg.Window - 1
	if prime > count {
		prime = count
	}
	plog.Debugf("run started, window %d, chained %t, policy %s, blocks %d",
		s.cfg.Window, s.cfg.Chained, s.cfg.Policy, count)
	for i := uint64(0); i < prime; i++ {
		if err := s.submit(i); err != nil {
			return s.abort(err)
		}
	}
	for i := prime; i < count; i++ {
		if err := s.submit(i); err != nil {
			return s.abort(err)
		}
		if err := s.waitOne(); err != nil {
			return s.abort(err)
		}
	}
	for s.window.len() > 0 {
		if err := s.waitOne(); err != nil {
			return s.abort(err)
		}
	}
	return s.stats, nil
}

func (s *Scheduler) submit(index uint64) error {
	buf, err := s.pool.Allocate()
	if err != nil {
		return err
	}
	data := buf.Bytes()
	if err := block.Fill(data, s.cfg.BlockSize,
		s.cfg.FirstChunk(index)); err != nil {
		return errors.CombineErrors(err, s.pool.Release(buf))
	}
	tag := s.nextTag
	s.nextTag++
	if err := buf.Submit(tag); err != nil {
		return errors.CombineErrors(err, s.pool.Release(buf))
	}
	start := time.Now()
	if err := s.ring.SubmitWrite(s.fd, data,
		s.cfg.Offset(index), tag, s.cfg.Chained); err != nil {
		// never reached the ring, the buffer can be reclaimed right away
		if cerr := buf.Complete(tag); cerr != nil {
			plog.Panicf("failed to reclaim unsubmitted buffer, %v", cerr)
		}
		return errors.CombineErrors(
			errors.Wrapf(err, "submit block %d", index), s.pool.Release(buf))
	}
	s.stats.Ops.Submit.Record(start)
	s.window.add(&request{
		tag:       tag,
		block:     index,
		buf:       buf,
		submitted: start,
	})
	s.stats.Submitted++
	if n := s.window.len(); n > s.stats.MaxInFlight {
		s.stats.MaxInFlight = n
	}
	s.metrics.submitted()
	if s.observer != nil {
		s.observer.Submitted(tag, s.window.len())
	}
	return nil
}

func (s *Scheduler) waitOne() error {
	start := time.Now()
	cs, err := s.ring.WaitForCompletions(1)
	if err != nil {
		return errors.Wrapf(err, "wait for completion")
	}
	s.stats.Ops.Wait.Record(start)
	var failure error
	for _, c := range cs {
		if err := s.complete(c); err != nil {
			if failure == nil {
				failure = err
			}
		}
	}
	return failure
}

func (s *Scheduler) complete(c uring.Completion) error {
	var orderErr error
	if s.cfg.Chained {
		if head, ok := s.window.head(); ok && head != c.Tag {
			orderErr = errors.Wrapf(ErrOutOfOrder, "tag %d, head %d", c.Tag, head)
		}
	}
	req, err := s.window.take(c.Tag)
	if err != nil {
		return err
	}
	if err := s.retire(req, c); err != nil {
		return err
	}
	if orderErr != nil {
		if s.cfg.Policy == AbortOnError {
			return orderErr
		}
		plog.Warningf("%v", orderErr)
	}
	if !c.Failed() {
		return nil
	}
	if s.cfg.Policy == LogAndContinue {
		plog.Warningf("write of block %d failed, result %d @ tag %d",
			req.block, c.Result, c.Tag)
		return nil
	}
	return &IOError{Tag: c.Tag, Block: req.block, Errno: c.Errno()}
}

// retire accounts the completion of req and releases its buffer.
func (s *Scheduler) retire(req *request, c uring.Completion) error {
	s.stats.Ops.Write.Record(req.submitted)
	s.stats.Completed++
	if c.Failed() {
		s.stats.Failed++
		s.metrics.failed()
	} else {
		s.stats.BytesWritten += uint64(c.Result)
		s.metrics.completed(uint64(c.Result))
	}
	if err := req.buf.Complete(c.Tag); err != nil {
		return err
	}
	if err := s.pool.Release(req.buf); err != nil {
		return err
	}
	if s.observer != nil {
		s.observer.Completed(c, s.window.len())
	}
	return nil
}

// abort drains every write still in flight so their buffers can be released,
// then returns err together with any failure observed while draining.
func (s *Scheduler) abort(err error) (report.Stats, error) {
	if errors.Is(err, ErrUnknownTag) || errors.Is(err, ErrOutOfOrder) ||
		errors.Is(err, uring.ErrQueueFull) {
		plog.Errorf("scheduler invariant violated, %v", err)
	}
	drainErr := s.drain()
	if drainErr != nil {
		plog.Errorf("failed to drain in-flight writes, %v", drainErr)
	}
	return s.stats, errors.CombineErrors(err, drainErr)
}

func (s *Scheduler) drain() error {
	for s.window.len() > 0 {
		n := s.window.len()
		if out := s.ring.Outstanding(); out < n {
			// the kernel no longer references writes the ring has lost track of
			return errors.Newf("%d in-flight writes, ring reports %d", n, out)
		}
		cs, err := s.ring.WaitForCompletions(1)
		if err != nil {
			return errors.Wrapf(err, "drain, %d in flight", n)
		}
		for _, c := range cs {
			req, err := s.window.take(c.Tag)
			if err != nil {
				return err
			}
			if c.Failed() {
				plog.Warningf("write of block %d failed while draining, result %d",
					req.block, c.Result)
			}
			if err := s.retire(req, c); err != nil {
				return err
			}
		}
	}
	return nil
}
