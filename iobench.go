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
Package iobench measures the raw write throughput of a file or block device.

Blocks are written by one of several strategies, from blocking sequential
writes to a bounded depth pipeline built on the kernel submission ring. Every
strategy writes the same content, each 64 byte chunk of the output starts
with the little endian encoding of its chunk identifier.

	cfg := config.Config{
		File:      "/data/iobench.dat",
		BlockSize: 4096,
		Count:     1024,
		Strategy:  config.Ring8,
	}
	result, err := iobench.Run(cfg)

Run creates or truncates the target. Only the time spent writing, after the
target has been created and the submission ring has been set up, is measured.
*/
package iobench

import (
	"time"

	"github.com/cockroachdb/errors"

	"github.com/lni/iobench/config"
	"github.com/lni/iobench/internal/baseline"
	"github.com/lni/iobench/internal/engine"
	"github.com/lni/iobench/internal/report"
	"github.com/lni/iobench/internal/uring"
	"github.com/lni/iobench/internal/vfs"
	"github.com/lni/iobench/logger"
)

var (
	plog = logger.GetLogger("iobench")
)

var (
	// ErrReadNotImplemented indicates that reading back and verifying written
	// blocks is not implemented.
	ErrReadNotImplemented = errors.New("read is not implemented")
)

// Run writes the blocks described by cfg using the configured strategy and
// returns the measured result. The result is also returned when the run
// failed, it then covers the writes issued before the failure.
func Run(cfg config.Config) (report.Result, error) {
	cfg.Prepare()
	if err := cfg.Validate(); err != nil {
		return report.Result{}, err
	}
	target, err := vfs.CreateTarget(cfg.FS, cfg.File)
	if err != nil {
		return report.Result{}, err
	}
	stats, elapsed, err := write(cfg, target)
	if cerr := target.Close(); cerr != nil {
		err = errors.CombineErrors(err, cerr)
	}
	result := report.NewResult(cfg.Strategy.String(),
		cfg.Layout().Bytes(), stats, elapsed)
	newRunMetrics(cfg).record(result, err)
	if err != nil {
		plog.Errorf("run %s (%s) failed, %v", result.RunID, cfg.Strategy, err)
		return result, err
	}
	plog.Debugf("run %s (%s) completed, %d writes, max in flight %d",
		result.RunID, cfg.Strategy, stats.Completed, stats.MaxInFlight)
	return result, nil
}

// Read is the read path of the benchmark. It validates cfg and always
// returns ErrReadNotImplemented, written blocks are not read back.
func Read(cfg config.Config) error {
	cfg.Prepare()
	if err := cfg.Validate(); err != nil {
		return err
	}
	plog.Warningf("read of %s (%s) is not implemented", cfg.File, cfg.Strategy)
	return ErrReadNotImplemented
}

func write(cfg config.Config,
	target *vfs.Target) (report.Stats, time.Duration, error) {
	if cfg.Strategy.UsesRing() {
		return writeRing(cfg, target)
	}
	w, err := target.WriterAt()
	if err != nil {
		return report.Stats{}, 0, err
	}
	var timer report.Timer
	var stats report.Stats
	timer.Start()
	if cfg.Strategy == config.Sequential {
		stats, err = baseline.Sequential(w, cfg.Layout())
	} else {
		stats, err = baseline.Cooperative(w, cfg.Layout(), int(cfg.Window()))
	}
	return stats, timer.Stop(), err
}

func writeRing(cfg config.Config,
	target *vfs.Target) (stats report.Stats, elapsed time.Duration, err error) {
	fd, err := target.Fd()
	if err != nil {
		return report.Stats{}, 0, err
	}
	ring, err := uring.Open(uint32(cfg.RingEntries))
	if err != nil {
		return report.Stats{}, 0, errors.Wrapf(err, "open ring")
	}
	defer func() {
		if cerr := ring.Close(); cerr != nil {
			err = errors.CombineErrors(err, cerr)
		}
	}()
	policy := engine.AbortOnError
	if !cfg.Strategy.AbortOnFailure() {
		policy = engine.LogAndContinue
	}
	s, err := engine.New(ring, fd, engine.Config{
		Layout:        cfg.Layout(),
		Window:        cfg.Window(),
		Alignment:     cfg.Alignment,
		Chained:       cfg.Strategy.Chained(),
		Policy:        policy,
		EnableMetrics: cfg.EnableMetrics,
	})
	if err != nil {
		return report.Stats{}, 0, err
	}
	var timer report.Timer
	timer.Start()
	stats, err = s.Run()
	return stats, timer.Stop(), err
}
