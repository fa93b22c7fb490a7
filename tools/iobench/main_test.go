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

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func runCommand(args ...string) (int, string, string) {
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	code := run(args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func TestWriteCommand(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "cli.dat")
	for _, strategy := range []string{"seq", "async", "async2"} {
		code, stdout, _ := runCommand("write", "--file", fn,
			"--block-size", "64", "--count", "3", "--strategy", strategy)
		require.Equal(t, exitOK, code, strategy)
		require.True(t, strings.HasPrefix(stdout, "written 192/192 bytes in "), stdout)
		require.True(t, strings.HasSuffix(stdout, "/s\n"), stdout)
	}
}

func TestShortFlags(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "cli.dat")
	code, stdout, _ := runCommand("write", "-f", fn, "-s", "128", "-c", "2")
	require.Equal(t, exitOK, code)
	require.Contains(t, stdout, "written 256/256 bytes")
}

func TestVerboseWriteCommand(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "cli.dat")
	code, _, stderr := runCommand("write", "--file", fn, "--count", "4",
		"--offset-policy", "advance", "--verbose", "--metrics")
	require.Equal(t, exitOK, code)
	require.Contains(t, stderr, "BlockSize")
	require.Contains(t, stderr, "write")
	require.Contains(t, stderr, "iobench_runs_total")
}

func TestReadCommandIsAccepted(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "cli.dat")
	code, stdout, _ := runCommand("read", "--file", fn, "--strategy", "io_uring8")
	require.Equal(t, exitOK, code)
	require.Contains(t, stdout, "not implemented")
}

func TestArgumentErrors(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "cli.dat")
	tests := [][]string{
		{},
		{"append", "--file", fn},
		{"write"},
		{"write", "--file", fn, "--strategy", "io_uring4"},
		{"write", "--file", fn, "--block-size", "32"},
		{"write", "--file", fn, "--block-size", "-1"},
		{"write", "--file", fn, "--offset-policy", "random"},
		{"write", "--file", fn, "--no-such-flag"},
		{"write", "--file", fn, "extra"},
		{"read", "--file", fn, "--block-size", "100"},
	}
	for idx, args := range tests {
		code, stdout, _ := runCommand(args...)
		require.Equal(t, exitUsage, code, "%d", idx)
		require.Empty(t, stdout, "%d", idx)
	}
}

func TestRunFailure(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "missing", "cli.dat")
	code, stdout, stderr := runCommand("write", "--file", fn)
	require.Equal(t, exitFailure, code)
	require.Empty(t, stdout)
	require.NotEmpty(t, stderr)
}
