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
Package report measures benchmark runs and formats their results.
*/
package report

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Timer measures the wall time of a run.
type Timer struct {
	start   time.Time
	elapsed time.Duration
	running bool
}

// Start starts the timer.
func (t *Timer) Start() {
	t.start = time.Now()
	t.running = true
}

// Stop stops the timer and returns the elapsed time since Start.
func (t *Timer) Stop() time.Duration {
	if t.running {
		t.elapsed = time.Since(t.start)
		t.running = false
	}
	return t.elapsed
}

// Elapsed returns the time measured by the last Start/Stop pair.
func (t *Timer) Elapsed() time.Duration {
	return t.elapsed
}

// Stats is the accounting of a single run reported by a write strategy.
type Stats struct {
	// Submitted is the number of writes issued.
	Submitted uint64
	// Completed is the number of writes whose result has been observed.
	Completed uint64
	// Failed is the number of completed writes that reported an error.
	Failed uint64
	// BytesWritten is the sum of bytes reported by successful writes.
	BytesWritten uint64
	// MaxInFlight is the largest number of writes observed in flight.
	MaxInFlight int
	// Ops holds per operation latencies.
	Ops OpStats
}

// Result is the outcome of a benchmark run.
type Result struct {
	RunID     string
	Strategy  string
	Requested uint64
	Stats     Stats
	Elapsed   time.Duration
}

// NewResult returns the result of a run that requested the specified number
// of bytes.
func NewResult(strategy string,
	requested uint64, stats Stats, elapsed time.Duration) Result {
	return Result{
		RunID:     uuid.New().String(),
		Strategy:  strategy,
		Requested: requested,
		Stats:     stats,
		Elapsed:   elapsed,
	}
}

// Written returns the number of bytes reported as written.
func (r Result) Written() uint64 {
	return r.Stats.BytesWritten
}

// Seconds returns the elapsed time in seconds.
func (r Result) Seconds() float64 {
	return r.Elapsed.Seconds()
}

// Undefined returns a boolean value indicating whether the elapsed time was
// too short to be measured.
func (r Result) Undefined() bool {
	return r.Elapsed <= 0
}

// Throughput returns requested bytes per second. It returns +Inf when the
// elapsed time could not be measured.
func (r Result) Throughput() float64 {
	if r.Undefined() {
		return math.Inf(1)
	}
	return float64(r.Requested) / r.Seconds()
}

func (r Result) String() string {
	return fmt.Sprintf("written %d/%d bytes in %.6f seconds @ %s/s",
		r.Written(), r.Requested, r.Seconds(), FormatRate(r.Throughput()))
}

// FormatRate formats bytes per second using binary prefixes, the sentinel
// value +Inf is formatted as "inf".
func FormatRate(bytesPerSecond float64) string {
	switch {
	case math.IsInf(bytesPerSecond, 1):
		return "inf"
	case math.IsNaN(bytesPerSecond) || bytesPerSecond < 0:
		return "n/a"
	case bytesPerSecond >= math.MaxUint64:
		return "inf"
	}
	return humanize.IBytes(uint64(bytesPerSecond))
}
