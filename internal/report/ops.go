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

package report

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rodaine/table"
)

// Op tracks the count and the accumulated latency of an operation. It is
// safe for concurrent use.
type Op struct {
	count uint64
	nanos uint64
}

// Record records one operation started at start.
func (op *Op) Record(start time.Time) {
	op.RecordDuration(time.Since(start))
}

// RecordDuration records one operation that took d.
func (op *Op) RecordDuration(d time.Duration) {
	atomic.AddUint64(&op.count, 1)
	atomic.AddUint64(&op.nanos, uint64(d.Nanoseconds()))
}

// Count returns the number of recorded operations.
func (op *Op) Count() uint64 {
	return atomic.LoadUint64(&op.count)
}

// Total returns the accumulated latency.
func (op *Op) Total() time.Duration {
	return time.Duration(atomic.LoadUint64(&op.nanos))
}

// MicrosPerOp returns the average latency in microseconds.
func (op *Op) MicrosPerOp() float64 {
	count := op.Count()
	if count == 0 {
		return 0
	}
	return float64(op.Total().Nanoseconds()) / float64(count) / 1e3
}

// OpStats holds the latencies of the operations issued by a run.
type OpStats struct {
	// Write is the latency from issuing a write to observing its result.
	Write Op
	// Submit is the time spent queueing writes.
	Submit Op
	// Wait is the time spent blocked waiting for completions.
	Wait Op
}

// WriteTable prints the latency table of all recorded operations to w.
func (s *OpStats) WriteTable(w io.Writer) {
	tbl := table.New("op", "count", "us")
	tbl.WithWriter(w)
	for _, row := range []struct {
		name string
		op   *Op
	}{
		{"write", &s.Write},
		{"submit", &s.Submit},
		{"wait", &s.Wait},
	} {
		if row.op.Count() == 0 {
			continue
		}
		tbl.AddRow(row.name, row.op.Count(),
			fmt.Sprintf("%0.1f us/op", row.op.MicrosPerOp()))
	}
	tbl.Print()
}
