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

package iobench

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"

	"github.com/lni/iobench/config"
	"github.com/lni/iobench/internal/report"
)

// WriteMetrics writes all collected metrics in Prometheus format to the
// specified writer. Metrics are only collected for runs with EnableMetrics
// set.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}

type runMetrics struct {
	runs         *metrics.Counter
	failedRuns   *metrics.Counter
	writtenBytes *metrics.Counter
	failedWrites *metrics.Counter
	useMetrics   bool
}

func newRunMetrics(cfg config.Config) *runMetrics {
	rm := &runMetrics{useMetrics: cfg.EnableMetrics}
	if cfg.EnableMetrics {
		s := cfg.Strategy.String()
		name := fmt.Sprintf(`iobench_runs_total{strategy=%q}`, s)
		rm.runs = metrics.GetOrCreateCounter(name)
		name = fmt.Sprintf(`iobench_failed_runs_total{strategy=%q}`, s)
		rm.failedRuns = metrics.GetOrCreateCounter(name)
		name = fmt.Sprintf(`iobench_written_bytes_total{strategy=%q}`, s)
		rm.writtenBytes = metrics.GetOrCreateCounter(name)
		name = fmt.Sprintf(`iobench_failed_writes_total{strategy=%q}`, s)
		rm.failedWrites = metrics.GetOrCreateCounter(name)
	}
	return rm
}

func (rm *runMetrics) record(r report.Result, err error) {
	if rm.useMetrics {
		rm.runs.Inc()
		if err != nil {
			rm.failedRuns.Inc()
		}
		rm.writtenBytes.Add(int(r.Written()))
		rm.failedWrites.Add(int(r.Stats.Failed))
	}
}
