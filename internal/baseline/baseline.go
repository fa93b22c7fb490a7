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
Package baseline implements the write strategies that do not use the
submission ring.

Sequential issues one blocking write at a time. Cooperative runs every block
as its own task, at most a fixed number of tasks are running at any time and
all of them are joined before it returns.
*/
package baseline

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/lni/iobench/internal/block"
	"github.com/lni/iobench/internal/report"
	"github.com/lni/iobench/logger"
)

var (
	plog = logger.GetLogger("baseline")
)

var (
	// ErrInvalidTasks indicates that the number of concurrent tasks is invalid.
	ErrInvalidTasks = errors.New("number of tasks must be > 0")
)

// Sequential writes all blocks described by l to w, each write completes
// before the next one is issued. The first failed write aborts the run.
func Sequential(w io.WriterAt, l block.Layout) (report.Stats, error) {
	var stats report.Stats
	for i := uint64(0); i < l.Count; i++ {
		data, err := block.Make(l.BlockSize, l.FirstChunk(i))
		if err != nil {
			return stats, err
		}
		start := time.Now()
		stats.Submitted++
		stats.MaxInFlight = 1
		n, err := w.WriteAt(data, int64(l.Offset(i)))
		stats.Ops.Write.Record(start)
		stats.Completed++
		stats.BytesWritten += uint64(n)
		if err != nil {
			stats.Failed++
			return stats, errors.Wrapf(err, "write block %d", i)
		}
	}
	return stats, nil
}

// Cooperative writes all blocks described by l to w, each block is written
// by its own task and at most tasks writes are in flight at any time. Once a
// write failed no further task is launched, the first error returned by a task
// is reported after all launched tasks have been joined.
func Cooperative(w io.WriterAt,
	l block.Layout, tasks int) (report.Stats, error) {
	if tasks <= 0 {
		return report.Stats{}, errors.Wrapf(ErrInvalidTasks, "tasks %d", tasks)
	}
	var stats report.Stats
	var submitted, completed, failed, written uint64
	var inflight int64
	var mu sync.Mutex
	maxInFlight := 0
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(tasks)
	for i := uint64(0); i < l.Count; i++ {
		if ctx.Err() != nil {
			plog.Debugf("write failed, %d tasks not launched", l.Count-i)
			break
		}
		index := i
		g.Go(func() error {
			cur := atomic.AddInt64(&inflight, 1)
			defer atomic.AddInt64(&inflight, -1)
			mu.Lock()
			if int(cur) > maxInFlight {
				maxInFlight = int(cur)
			}
			mu.Unlock()
			data, err := block.Make(l.BlockSize, l.FirstChunk(index))
			if err != nil {
				return err
			}
			atomic.AddUint64(&submitted, 1)
			start := time.Now()
			n, err := w.WriteAt(data, int64(l.Offset(index)))
			stats.Ops.Write.Record(start)
			atomic.AddUint64(&completed, 1)
			atomic.AddUint64(&written, uint64(n))
			if err != nil {
				atomic.AddUint64(&failed, 1)
				return errors.Wrapf(err, "write block %d", index)
			}
			return nil
		})
	}
	err := g.Wait()
	stats.Submitted = submitted
	stats.Completed = completed
	stats.Failed = failed
	stats.BytesWritten = written
	stats.MaxInFlight = maxInFlight
	return stats, err
}
