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

// iobench measures the write throughput of a file or block device.
//
//	iobench write --file <path> [--block-size 64] [--count 1] [--strategy seq]
//	iobench read --file <path> ...
//
// Supported strategies are seq, async, async2, io_uring, io_uring2 and
// io_uring8. The read subcommand is accepted but not implemented.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/kr/pretty"

	"github.com/lni/iobench"
	"github.com/lni/iobench/config"
	"github.com/lni/iobench/internal/settings"
	"github.com/lni/iobench/logger"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	file         string
	blockSize    uint64
	count        uint64
	strategy     string
	offsetPolicy string
	offset       uint64
	ringEntries  uint64
	verbose      bool
	metrics      bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *options) {
	opts := &options{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	for _, n := range []string{"file", "f"} {
		fs.StringVar(&opts.file, n, "", "target file")
	}
	for _, n := range []string{"block-size", "s"} {
		fs.Uint64Var(&opts.blockSize, n,
			settings.Soft.DefaultBlockSize, "block size in bytes, a multiple of 64")
	}
	for _, n := range []string{"count", "c"} {
		fs.Uint64Var(&opts.count, n, settings.Soft.DefaultCount, "number of blocks")
	}
	fs.StringVar(&opts.strategy, "strategy", "seq",
		fmt.Sprintf("write strategy, one of %v", config.Strategies()))
	fs.StringVar(&opts.offsetPolicy, "offset-policy", "fixed",
		"fixed writes every block to --offset, advance writes blocks back to back")
	fs.Uint64Var(&opts.offset, "offset", 0, "target offset of the first block")
	fs.Uint64Var(&opts.ringEntries, "ring-entries",
		settings.Soft.RingEntries, "capacity of the submission ring")
	for _, n := range []string{"verbose", "v"} {
		fs.BoolVar(&opts.verbose, n, false, "verbose output")
	}
	fs.BoolVar(&opts.metrics, "metrics", false,
		"print metrics in Prometheus format to stderr after the run")
	return fs, opts
}

func (o *options) config() (config.Config, error) {
	strategy, err := config.ParseStrategy(o.strategy)
	if err != nil {
		return config.Config{}, err
	}
	policy, err := config.ParseOffsetPolicy(o.offsetPolicy)
	if err != nil {
		return config.Config{}, err
	}
	if len(o.file) == 0 {
		return config.Config{}, errors.Wrapf(config.ErrInvalidArgument,
			"--file is required")
	}
	cfg := config.Config{
		File:          o.file,
		BlockSize:     o.blockSize,
		Count:         o.count,
		Strategy:      strategy,
		OffsetPolicy:  policy,
		BaseOffset:    o.offset,
		RingEntries:   o.ringEntries,
		Verbose:       o.verbose,
		EnableMetrics: o.metrics,
	}
	cfg.Prepare()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: iobench <write|read> --file <path> [options]\n")
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return exitUsage
	}
	sub := args[0]
	if sub != "write" && sub != "read" {
		fmt.Fprintf(stderr, "unknown subcommand %q\n", sub)
		usage(stderr)
		return exitUsage
	}
	fs, opts := newFlagSet(sub, stderr)
	if err := fs.Parse(args[1:]); err != nil {
		return exitUsage
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments %v\n", fs.Args())
		return exitUsage
	}
	cfg, err := opts.config()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	}
	if cfg.Verbose {
		logger.SetLevel(logger.DEBUG)
		fmt.Fprintf(stderr, "%# v\n", pretty.Formatter(cfg))
	}
	if sub == "read" {
		if err := iobench.Read(cfg); err != nil &&
			!errors.Is(err, iobench.ErrReadNotImplemented) {
			fmt.Fprintf(stderr, "%v\n", err)
			return exitFailure
		}
		fmt.Fprintf(stdout, "read is not implemented, nothing verified\n")
		return exitOK
	}
	result, err := iobench.Run(cfg)
	if cfg.Verbose {
		fmt.Fprintf(stderr, "run %s\n", result.RunID)
		result.Stats.Ops.WriteTable(stderr)
	}
	if cfg.EnableMetrics {
		iobench.WriteMetrics(stderr)
	}
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitFailure
	}
	fmt.Fprintln(stdout, result.String())
	return exitOK
}
