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

package vfs

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
	gvfs "github.com/lni/vfs"
)

var (
	// ErrNoPositionalWrite indicates that files created by the FS can not be
	// written at an explicit offset.
	ErrNoPositionalWrite = errors.New("file does not support positional writes")
	// ErrNoDescriptor indicates that files created by the FS are not backed by
	// an OS file descriptor.
	ErrNoDescriptor = errors.New("file is not backed by a file descriptor")
)

// IFS is the vfs interface used by iobench.
type IFS = gvfs.FS

// File is the file interface returned by IFS.
type File = gvfs.File

// DefaultFS is a vfs instance using underlying OS fs.
var DefaultFS IFS = gvfs.Default

// IsNotExist returns a boolean value indicating whether the specified error is
// to indicate that a file or directory does not exist.
func IsNotExist(err error) bool {
	return oserror.IsNotExist(err)
}

type fdFile interface {
	Fd() uintptr
}

// Target is the benchmark target file. It is created, or truncated when it
// already exists, by CreateTarget.
type Target struct {
	file File
	name string
}

// CreateTarget creates the named target file using the specified fs.
func CreateTarget(fs IFS, name string) (*Target, error) {
	f, err := fs.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create target %s", name)
	}
	return &Target{file: f, name: name}, nil
}

// Name returns the name of the target.
func (t *Target) Name() string {
	return t.name
}

// WriterAt returns the io.WriterAt view of the target.
func (t *Target) WriterAt() (io.WriterAt, error) {
	w, ok := t.file.(io.WriterAt)
	if !ok {
		return nil, errors.Wrapf(ErrNoPositionalWrite, "target %s", t.name)
	}
	return w, nil
}

// Fd returns the OS file descriptor of the target.
func (t *Target) Fd() (int, error) {
	f, ok := t.file.(fdFile)
	if !ok {
		return 0, errors.Wrapf(ErrNoDescriptor, "target %s", t.name)
	}
	return int(f.Fd()), nil
}

// Size returns the current size of the target in bytes.
func (t *Target) Size() (int64, error) {
	fi, err := t.file.Stat()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return fi.Size(), nil
}

// Close closes the target.
func (t *Target) Close() error {
	return errors.WithStack(t.file.Close())
}
