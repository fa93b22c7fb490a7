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
Package config contains functions and types used for managing iobench's
configurations.
*/
package config

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"

	"github.com/lni/iobench/internal/block"
	"github.com/lni/iobench/internal/invariants"
	"github.com/lni/iobench/internal/settings"
	"github.com/lni/iobench/internal/vfs"
)

var (
	// ErrInvalidArgument indicates that the config is invalid. It is always
	// reported before any I/O is issued.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Strategy is the write strategy of a benchmark run.
type Strategy int

const (
	// Sequential issues one blocking write at a time.
	Sequential Strategy = iota
	// Async runs every block as a concurrent task and joins all of them.
	Async
	// Async2 runs at most two concurrent write tasks.
	Async2
	// Ring keeps one write outstanding on the submission ring.
	Ring
	// Ring2 keeps two writes outstanding on the submission ring.
	Ring2
	// Ring8 keeps eight chained writes outstanding on the submission ring.
	Ring8
)

var strategyNames = [...]string{
	"seq",
	"async",
	"async2",
	"io_uring",
	"io_uring2",
	"io_uring8",
}

// Strategies returns the names of all supported strategies.
func Strategies() []string {
	return append([]string(nil), strategyNames[:]...)
}

// ParseStrategy returns the strategy with the specified name.
func ParseStrategy(name string) (Strategy, error) {
	for i, n := range strategyNames {
		if n == name {
			return Strategy(i), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "unknown strategy %q", name)
}

func (s Strategy) String() string {
	if s < Sequential || s > Ring8 {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// UsesRing returns a boolean value indicating whether the strategy writes
// through the submission ring.
func (s Strategy) UsesRing() bool {
	return s == Ring || s == Ring2 || s == Ring8
}

// Chained returns a boolean value indicating whether writes are linked to
// each other.
func (s Strategy) Chained() bool {
	return s == Ring8
}

// AbortOnFailure returns a boolean value indicating whether a failed write
// aborts the run. The chained ring strategy only logs failed writes.
func (s Strategy) AbortOnFailure() bool {
	return s != Ring8
}

// Window returns the max number of writes the strategy keeps in flight when
// writing count blocks.
func (s Strategy) Window(count uint64) uint64 {
	switch s {
	case Async:
		if count == 0 {
			return 1
		}
		return count
	case Async2, Ring2:
		return settings.Soft.PairWindow
	case Ring8:
		return settings.Soft.ChainedWindow
	}
	return 1
}

// OffsetPolicy decides where blocks are placed in the target.
type OffsetPolicy int

const (
	// FixedOffset writes every block to the base offset.
	FixedOffset OffsetPolicy = iota
	// AdvanceOffset writes block i to base offset + i * block size.
	AdvanceOffset
)

// ParseOffsetPolicy returns the offset policy with the specified name.
func ParseOffsetPolicy(name string) (OffsetPolicy, error) {
	switch name {
	case "fixed":
		return FixedOffset, nil
	case "advance":
		return AdvanceOffset, nil
	}
	return 0, errors.Wrapf(ErrInvalidArgument, "unknown offset policy %q", name)
}

func (p OffsetPolicy) String() string {
	switch p {
	case FixedOffset:
		return "fixed"
	case AdvanceOffset:
		return "advance"
	}
	return fmt.Sprintf("OffsetPolicy(%d)", int(p))
}

// Config is the config of a benchmark run.
type Config struct {
	// File is the path of the target file. It is created when it does not
	// exist and truncated otherwise.
	File string
	// BlockSize is the size of each write in bytes. It must be a multiple of
	// 64.
	BlockSize uint64
	// Count is the number of blocks to write, 0 is valid.
	Count uint64
	// Strategy is the write strategy.
	Strategy Strategy
	// OffsetPolicy decides where blocks are placed. The default FixedOffset
	// writes every block to BaseOffset.
	OffsetPolicy OffsetPolicy
	// BaseOffset is the target offset of the first block.
	BaseOffset uint64
	// RingEntries is the capacity of the submission ring.
	RingEntries uint64
	// Alignment is the byte alignment of buffers handed to the ring.
	Alignment uint64
	// Verbose enables verbose output.
	Verbose bool
	// EnableMetrics enables the collection of metrics.
	EnableMetrics bool
	// FS is the filesystem used for creating the target, vfs.DefaultFS is
	// used when it is not set.
	FS vfs.IFS
}

// Prepare sets the default value of all unset fields other than Count.
func (c *Config) Prepare() {
	if c.BlockSize == 0 {
		c.BlockSize = settings.Soft.DefaultBlockSize
	}
	if c.RingEntries == 0 {
		c.RingEntries = settings.Soft.RingEntries
	}
	if c.Alignment == 0 {
		c.Alignment = settings.Soft.BufferAlignment
	}
	if c.FS == nil {
		c.FS = vfs.DefaultFS
	}
}

// Validate validates the config.
func (c *Config) Validate() error {
	if len(c.File) == 0 {
		return errors.Wrapf(ErrInvalidArgument, "target file not specified")
	}
	if !block.ValidSize(c.BlockSize) {
		return errors.Wrapf(ErrInvalidArgument,
			"block size %d is not a positive multiple of %d",
			c.BlockSize, block.ChunkSize())
	}
	if c.BlockSize > settings.Soft.MaxBlockSize {
		return errors.Wrapf(ErrInvalidArgument, "block size %d > %d",
			c.BlockSize, settings.Soft.MaxBlockSize)
	}
	if c.Strategy < Sequential || c.Strategy > Ring8 {
		return errors.Wrapf(ErrInvalidArgument, "unknown strategy %s", c.Strategy)
	}
	if c.OffsetPolicy != FixedOffset && c.OffsetPolicy != AdvanceOffset {
		return errors.Wrapf(ErrInvalidArgument,
			"unknown offset policy %s", c.OffsetPolicy)
	}
	if c.BaseOffset > math.MaxInt64-c.BlockSize {
		return errors.Wrapf(ErrInvalidArgument,
			"base offset %d out of range", c.BaseOffset)
	}
	if c.OffsetPolicy == AdvanceOffset && c.Count > 0 {
		limit := (math.MaxInt64 - c.BaseOffset - c.BlockSize) / c.BlockSize
		if c.Count-1 > limit {
			return errors.Wrapf(ErrInvalidArgument,
				"%d blocks of %d bytes overflow the target", c.Count, c.BlockSize)
		}
	}
	if c.RingEntries == 0 || c.RingEntries > settings.Soft.MaxRingEntries {
		return errors.Wrapf(ErrInvalidArgument,
			"ring entries %d not in [1, %d]",
			c.RingEntries, settings.Soft.MaxRingEntries)
	}
	if !invariants.IsPowerOfTwo(c.Alignment) {
		return errors.Wrapf(ErrInvalidArgument,
			"alignment %d is not a power of two", c.Alignment)
	}
	if c.Strategy.UsesRing() && c.Window() > c.RingEntries {
		return errors.Wrapf(ErrInvalidArgument,
			"window %d of strategy %s exceeds ring entries %d",
			c.Window(), c.Strategy, c.RingEntries)
	}
	if c.FS == nil {
		return errors.Wrapf(ErrInvalidArgument, "FS not set")
	}
	return nil
}

// Window returns the max number of writes kept in flight.
func (c *Config) Window() uint64 {
	return c.Strategy.Window(c.Count)
}

// Layout returns the block layout of the run.
func (c *Config) Layout() block.Layout {
	return block.Layout{
		BlockSize:  c.BlockSize,
		Count:      c.Count,
		BaseOffset: c.BaseOffset,
		Advance:    c.OffsetPolicy == AdvanceOffset,
	}
}
