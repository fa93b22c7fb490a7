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
Package align provides buffers allocated on a caller specified byte alignment.

Buffers are mapped outside of the Go heap so their address stays valid while
the kernel owns them. A Buffer follows a strict life cycle,

	Free -> InFlight(tag) -> ReadyToRelease -> Released

Free buffers can also be released directly. The pool rejects releasing a
buffer that is still in flight.
*/
package align

import (
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"

	"github.com/lni/iobench/internal/invariants"
)

var (
	// ErrAllocation indicates that the aligned allocation could not be
	// satisfied.
	ErrAllocation = errors.New("aligned allocation failed")
	// ErrInvalidSize indicates that the requested buffer size is invalid.
	ErrInvalidSize = errors.New("invalid buffer size")
	// ErrInvalidAlignment indicates that the requested alignment is not a
	// power of two.
	ErrInvalidAlignment = errors.New("alignment must be a power of two")
	// ErrBufferInFlight indicates that the buffer is still referenced by an
	// outstanding operation.
	ErrBufferInFlight = errors.New("buffer is still in flight")
	// ErrReleased indicates that the buffer has already been released.
	ErrReleased = errors.New("buffer already released")
	// ErrForeignBuffer indicates that the buffer was not allocated by the pool.
	ErrForeignBuffer = errors.New("buffer does not belong to the pool")
	// ErrInvalidTransition indicates an illegal buffer state transition.
	ErrInvalidTransition = errors.New("invalid buffer state transition")
)

// Pool allocates fixed size buffers on a fixed alignment. Each Allocate and
// Release pair is independent, memory is not reused across calls.
type Pool struct {
	size        int
	alignment   int
	outstanding int64
}

// NewPool creates a pool for buffers of the specified size and alignment.
func NewPool(size int, alignment int) (*Pool, error) {
	if size <= 0 {
		return nil, errors.Wrapf(ErrInvalidSize, "size %d", size)
	}
	if alignment <= 0 || !invariants.IsPowerOfTwo(uint64(alignment)) {
		return nil, errors.Wrapf(ErrInvalidAlignment, "alignment %d", alignment)
	}
	return &Pool{size: size, alignment: alignment}, nil
}

// Size returns the size of buffers allocated by the pool.
func (p *Pool) Size() int {
	return p.size
}

// Alignment returns the alignment of buffers allocated by the pool.
func (p *Pool) Alignment() int {
	return p.alignment
}

// Outstanding returns the number of allocated buffers not yet released.
func (p *Pool) Outstanding() int {
	return int(atomic.LoadInt64(&p.outstanding))
}

// Allocate allocates a new buffer. The content of the buffer is not
// guaranteed to be zeroed.
func (p *Pool) Allocate() (*Buffer, error) {
	mapping, data, err := allocAligned(p.size, p.alignment)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err,
			"size %d, alignment %d", p.size, p.alignment), ErrAllocation)
	}
	atomic.AddInt64(&p.outstanding, 1)
	return &Buffer{
		data:    data,
		mapping: mapping,
		pool:    p,
	}, nil
}

// Release returns the memory of the buffer to the allocator. Buffers still in
// flight can not be released.
func (p *Pool) Release(b *Buffer) error {
	if b.pool != p {
		return ErrForeignBuffer
	}
	switch b.state {
	case InFlight:
		return errors.Wrapf(ErrBufferInFlight, "tag %d", b.tag)
	case Released:
		return ErrReleased
	}
	if err := freeAligned(b.mapping); err != nil {
		return errors.Wrapf(err, "failed to release buffer")
	}
	b.state = Released
	b.data = nil
	b.mapping = nil
	atomic.AddInt64(&p.outstanding, -1)
	return nil
}

// Allocate allocates a single buffer of the specified size and alignment.
func Allocate(size int, alignment int) (*Buffer, error) {
	p, err := NewPool(size, alignment)
	if err != nil {
		return nil, err
	}
	return p.Allocate()
}

// Release releases the buffer back to the pool that allocated it.
func Release(b *Buffer) error {
	if b.pool == nil {
		return ErrForeignBuffer
	}
	return b.pool.Release(b)
}

func alignUp(v uintptr, alignment uintptr) uintptr {
	return (v + alignment - 1) &^ (alignment - 1)
}

func roundUp(v int, to int) int {
	return (v + to - 1) / to * to
}

func alignedView(mapping []byte, size int, alignment int) []byte {
	addr := uintptr(unsafe.Pointer(&mapping[0]))
	off := int(alignUp(addr, uintptr(alignment)) - addr)
	return mapping[off : off+size : off+size]
}
