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

package engine

import (
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

var inflightWrites int64

type engineMetrics struct {
	submittedWrites *metrics.Counter
	completedWrites *metrics.Counter
	failedWrites    *metrics.Counter
	writtenBytes    *metrics.Counter
	useMetrics      bool
}

func newEngineMetrics(useMetrics bool) *engineMetrics {
	em := &engineMetrics{useMetrics: useMetrics}
	if useMetrics {
		name := "iobench_engine_inflight_writes"
		metrics.GetOrCreateGauge(name, func() float64 {
			return float64(atomic.LoadInt64(&inflightWrites))
		})
		name = "iobench_engine_submitted_writes_total"
		em.submittedWrites = metrics.GetOrCreateCounter(name)
		name = "iobench_engine_completed_writes_total"
		em.completedWrites = metrics.GetOrCreateCounter(name)
		name = "iobench_engine_failed_writes_total"
		em.failedWrites = metrics.GetOrCreateCounter(name)
		name = "iobench_engine_written_bytes_total"
		em.writtenBytes = metrics.GetOrCreateCounter(name)
	}
	return em
}

func (em *engineMetrics) submitted() {
	if em.useMetrics {
		atomic.AddInt64(&inflightWrites, 1)
		em.submittedWrites.Inc()
	}
}

func (em *engineMetrics) completed(bytes uint64) {
	if em.useMetrics {
		atomic.AddInt64(&inflightWrites, -1)
		em.completedWrites.Inc()
		em.writtenBytes.Add(int(bytes))
	}
}

func (em *engineMetrics) failed() {
	if em.useMetrics {
		atomic.AddInt64(&inflightWrites, -1)
		em.completedWrites.Inc()
		em.failedWrites.Inc()
	}
}
