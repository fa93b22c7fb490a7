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
	"bytes"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lni/goutils/leaktest"
	"github.com/stretchr/testify/require"

	"github.com/lni/iobench/config"
	"github.com/lni/iobench/internal/block"
	"github.com/lni/iobench/internal/engine"
	"github.com/lni/iobench/internal/uring"
	"github.com/lni/iobench/internal/vfs"
)

func allStrategies() []config.Strategy {
	return []config.Strategy{
		config.Sequential,
		config.Async,
		config.Async2,
		config.Ring,
		config.Ring2,
		config.Ring8,
	}
}

func skipUnavailable(t *testing.T, s config.Strategy) bool {
	t.Helper()
	if s.UsesRing() && !uring.Available() {
		t.Logf("io_uring not available, %s skipped", s)
		return true
	}
	return false
}

func getTestConfig(t *testing.T,
	s config.Strategy, blockSize uint64, count uint64) config.Config {
	return config.Config{
		File:      filepath.Join(t.TempDir(), "iobench.dat"),
		BlockSize: blockSize,
		Count:     count,
		Strategy:  s,
	}
}

func TestAllStrategiesWriteTheRequestedBytes(t *testing.T) {
	defer leaktest.AfterTest(t)()
	for _, s := range allStrategies() {
		if skipUnavailable(t, s) {
			continue
		}
		for _, tt := range []struct {
			blockSize uint64
			count     uint64
		}{
			{64, 0},
			{64, 1},
			{64, 3},
			{4096, 16},
			{128 * 1024, 9},
		} {
			cfg := getTestConfig(t, s, tt.blockSize, tt.count)
			result, err := Run(cfg)
			require.NoError(t, err, "%s", s)
			require.Equal(t, tt.blockSize*tt.count, result.Requested)
			require.Equal(t, tt.blockSize*tt.count, result.Written(), "%s", s)
			require.Equal(t, tt.count, result.Stats.Completed)
			require.Equal(t, uint64(0), result.Stats.Failed)
			require.Equal(t, s.String(), result.Strategy)
			require.True(t, result.Stats.MaxInFlight <= int(cfg.Window()))
			data, err := os.ReadFile(cfg.File)
			require.NoError(t, err)
			if tt.count == 0 {
				require.Equal(t, 0, len(data))
				continue
			}
			// blocks overwrite each other at offset 0, the last one remains
			require.Equal(t, int(tt.blockSize), len(data))
			if s == config.Sequential || s.UsesRing() {
				require.NoError(t, block.Verify(data,
					block.FirstChunk(tt.count-1, tt.blockSize)))
			}
		}
	}
}

func TestDoubleBufferedRingScenario(t *testing.T) {
	if skipUnavailable(t, config.Ring2) {
		return
	}
	result, err := Run(getTestConfig(t, config.Ring2, 64, 3))
	require.NoError(t, err)
	require.Equal(t, uint64(192), result.Written())
	require.Equal(t, uint64(3), result.Stats.Submitted)
	require.Equal(t, uint64(3), result.Stats.Completed)
	require.True(t, result.Stats.MaxInFlight <= 2)
}

func TestAdvancingOffsetsProduceAVerifiableFile(t *testing.T) {
	defer leaktest.AfterTest(t)()
	for _, s := range allStrategies() {
		if skipUnavailable(t, s) {
			continue
		}
		cfg := getTestConfig(t, s, 4096, 64)
		cfg.OffsetPolicy = config.AdvanceOffset
		result, err := Run(cfg)
		require.NoError(t, err)
		require.Equal(t, uint64(4096*64), result.Written())
		data, err := os.ReadFile(cfg.File)
		require.NoError(t, err)
		require.Equal(t, 4096*64, len(data))
		require.NoError(t, block.Verify(data, 0), "%s", s)
	}
}

func TestBaseOffset(t *testing.T) {
	cfg := getTestConfig(t, config.Sequential, 64, 2)
	cfg.BaseOffset = 4096
	cfg.OffsetPolicy = config.AdvanceOffset
	_, err := Run(cfg)
	require.NoError(t, err)
	data, err := os.ReadFile(cfg.File)
	require.NoError(t, err)
	require.Equal(t, 4096+128, len(data))
	require.Equal(t, make([]byte, 4096), data[:4096])
	require.NoError(t, block.Verify(data[4096:], 0))
}

func TestInvalidArgumentsAreRejectedBeforeIO(t *testing.T) {
	cfg := getTestConfig(t, config.Sequential, 32, 1)
	_, err := Run(cfg)
	require.True(t, errors.Is(err, config.ErrInvalidArgument))
	_, err = os.Stat(cfg.File)
	require.True(t, vfs.IsNotExist(err))
	cfg = getTestConfig(t, config.Strategy(100), 64, 1)
	_, err = Run(cfg)
	require.True(t, errors.Is(err, config.ErrInvalidArgument))
	_, err = os.Stat(cfg.File)
	require.True(t, vfs.IsNotExist(err))
}

func TestMissingTargetDirectoryFailsTheRun(t *testing.T) {
	cfg := getTestConfig(t, config.Sequential, 64, 1)
	cfg.File = filepath.Join(t.TempDir(), "missing", "iobench.dat")
	_, err := Run(cfg)
	require.Error(t, err)
	require.True(t, vfs.IsNotExist(err))
}

func TestReadIsNotImplemented(t *testing.T) {
	cfg := getTestConfig(t, config.Ring8, 64, 1)
	require.True(t, errors.Is(Read(cfg), ErrReadNotImplemented))
	cfg.BlockSize = 96
	require.True(t, errors.Is(Read(cfg), config.ErrInvalidArgument))
}

// readOnlyFS creates targets that can not be written to, Create reopens the
// created file through Open which returns a read only file.
type readOnlyFS struct {
	vfs.IFS
}

func (fs *readOnlyFS) Create(name string) (vfs.File, error) {
	f, err := fs.IFS.Create(name)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return fs.IFS.Open(name)
}

func TestReadOnlyTargetRejectsWrites(t *testing.T) {
	fs := &readOnlyFS{IFS: vfs.DefaultFS}
	target, err := vfs.CreateTarget(fs, filepath.Join(t.TempDir(), "ro.dat"))
	require.NoError(t, err)
	defer func() {
		require.NoError(t, target.Close())
	}()
	_, err = target.Fd()
	require.NoError(t, err)
	w, err := target.WriterAt()
	require.NoError(t, err)
	_, err = w.WriteAt(make([]byte, 64), 0)
	require.True(t, errors.Is(err, syscall.EBADF), "%v", err)
}

func TestFailedWritesAbortAllButTheChainedRingStrategy(t *testing.T) {
	defer leaktest.AfterTest(t)()
	for _, s := range allStrategies() {
		if skipUnavailable(t, s) {
			continue
		}
		cfg := getTestConfig(t, s, 64, 10)
		cfg.FS = &readOnlyFS{IFS: vfs.DefaultFS}
		result, err := Run(cfg)
		require.Equal(t, uint64(0), result.Written(), "%s", s)
		if s == config.Ring8 {
			require.NoError(t, err)
			require.Equal(t, uint64(10), result.Stats.Completed)
			require.Equal(t, uint64(10), result.Stats.Failed)
			continue
		}
		require.True(t, errors.Is(err, syscall.EBADF), "%s, %v", s, err)
		require.True(t, result.Stats.Failed >= 1, "%s", s)
		if s == config.Sequential || s == config.Ring {
			require.Equal(t, uint64(1), result.Stats.Failed, "%s", s)
			require.Equal(t, uint64(1), result.Stats.Submitted, "%s", s)
		}
		if s == config.Ring {
			var ioErr *engine.IOError
			require.True(t, errors.As(err, &ioErr))
			require.Equal(t, uint64(0), ioErr.Block)
		}
	}
}

func TestMetricsAreCollected(t *testing.T) {
	cfg := getTestConfig(t, config.Async2, 64, 4)
	cfg.EnableMetrics = true
	_, err := Run(cfg)
	require.NoError(t, err)
	buf := new(bytes.Buffer)
	WriteMetrics(buf)
	require.Contains(t, buf.String(), `iobench_runs_total{strategy="async2"}`)
	require.Contains(t, buf.String(), `iobench_written_bytes_total{strategy="async2"}`)
}
