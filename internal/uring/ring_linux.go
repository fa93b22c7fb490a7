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

//go:build linux

package uring

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"

	"github.com/lni/iobench/internal/invariants"
)

const (
	offSQRing = 0
	offCQRing = 0x8000000
	offSQEs   = 0x10000000

	opWrite = 23

	sqeIOLink = 1 << 2

	enterGetEvents = 1 << 0
)

type sqringOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	flags       uint32
	dropped     uint32
	array       uint32
	resv1       uint32
	userAddr    uint64
}

type cqringOffsets struct {
	head        uint32
	tail        uint32
	ringMask    uint32
	ringEntries uint32
	overflow    uint32
	cqes        uint32
	flags       uint32
	resv1       uint32
	userAddr    uint64
}

type params struct {
	sqEntries    uint32
	cqEntries    uint32
	flags        uint32
	sqThreadCPU  uint32
	sqThreadIdle uint32
	features     uint32
	wqFd         uint32
	resv         [3]uint32
	sqOff        sqringOffsets
	cqOff        cqringOffsets
}

type sqe struct {
	opcode      uint8
	flags       uint8
	ioprio      uint16
	fd          int32
	off         uint64
	addr        uint64
	len         uint32
	rwFlags     uint32
	userData    uint64
	bufIndex    uint16
	personality uint16
	spliceFdIn  int32
	addr3       uint64
	pad         uint64
}

type cqe struct {
	userData uint64
	res      int32
	flags    uint32
}

// Ring is an io_uring instance.
type Ring struct {
	fd          int
	capacity    int
	outstanding int
	pending     uint32
	closed      bool

	sqRing    []byte
	sqesMmap  []byte
	cqRing    []byte
	sqHead    *uint32
	sqTail    *uint32
	sqMask    uint32
	sqEntries uint32
	sqArray   []uint32
	sqes      []sqe
	cqHead    *uint32
	cqTail    *uint32
	cqMask    uint32
	cqes      []cqe
}

// Open creates a ring able to hold capacity outstanding operations.
func Open(capacity uint32) (*Ring, error) {
	if capacity == 0 {
		return nil, ErrInvalidCapacity
	}
	if !invariants.IsRingSupportedArch() {
		return nil, ErrNotSupported
	}
	var p params
	fd, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP,
		uintptr(capacity), uintptr(unsafe.Pointer(&p)), 0)
	if errno != 0 {
		err := errors.Wrapf(errno, "io_uring_setup, capacity %d", capacity)
		if errno == unix.ENOSYS {
			return nil, errors.Mark(err, ErrNotSupported)
		}
		return nil, err
	}
	r := &Ring{
		fd:       int(fd),
		capacity: int(capacity),
	}
	if err := r.mapRings(&p); err != nil {
		r.unmap()
		if cerr := unix.Close(r.fd); cerr != nil {
			plog.Errorf("failed to close ring fd, %v", cerr)
		}
		return nil, err
	}
	plog.Debugf("ring opened, capacity %d, sq entries %d, cq entries %d",
		capacity, p.sqEntries, p.cqEntries)
	return r, nil
}

func (r *Ring) mapRings(p *params) error {
	var err error
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_SHARED | unix.MAP_POPULATE
	sqLen := int(p.sqOff.array + p.sqEntries*uint32(unsafe.Sizeof(uint32(0))))
	if r.sqRing, err = unix.Mmap(r.fd, offSQRing, sqLen, prot, flags); err != nil {
		return errors.Wrapf(err, "mmap sq ring")
	}
	sqesLen := int(p.sqEntries) * int(unsafe.Sizeof(sqe{}))
	if r.sqesMmap, err = unix.Mmap(r.fd, offSQEs, sqesLen, prot, flags); err != nil {
		return errors.Wrapf(err, "mmap sqes")
	}
	cqLen := int(p.cqOff.cqes + p.cqEntries*uint32(unsafe.Sizeof(cqe{})))
	if r.cqRing, err = unix.Mmap(r.fd, offCQRing, cqLen, prot, flags); err != nil {
		return errors.Wrapf(err, "mmap cq ring")
	}
	r.sqHead = (*uint32)(unsafe.Pointer(&r.sqRing[p.sqOff.head]))
	r.sqTail = (*uint32)(unsafe.Pointer(&r.sqRing[p.sqOff.tail]))
	r.sqMask = *(*uint32)(unsafe.Pointer(&r.sqRing[p.sqOff.ringMask]))
	r.sqEntries = *(*uint32)(unsafe.Pointer(&r.sqRing[p.sqOff.ringEntries]))
	r.sqArray = unsafe.Slice((*uint32)(unsafe.Pointer(&r.sqRing[p.sqOff.array])),
		p.sqEntries)
	r.sqes = unsafe.Slice((*sqe)(unsafe.Pointer(&r.sqesMmap[0])), p.sqEntries)
	r.cqHead = (*uint32)(unsafe.Pointer(&r.cqRing[p.cqOff.head]))
	r.cqTail = (*uint32)(unsafe.Pointer(&r.cqRing[p.cqOff.tail]))
	r.cqMask = *(*uint32)(unsafe.Pointer(&r.cqRing[p.cqOff.ringMask]))
	r.cqes = unsafe.Slice((*cqe)(unsafe.Pointer(&r.cqRing[p.cqOff.cqes])),
		p.cqEntries)
	return nil
}

func (r *Ring) unmap() {
	for _, m := range [][]byte{r.cqRing, r.sqesMmap, r.sqRing} {
		if m == nil {
			continue
		}
		if err := unix.Munmap(m); err != nil {
			plog.Errorf("failed to unmap ring memory, %v", err)
		}
	}
	r.cqRing, r.sqesMmap, r.sqRing = nil, nil, nil
}

// Capacity returns the max number of outstanding operations.
func (r *Ring) Capacity() int {
	return r.capacity
}

// Outstanding returns the number of submitted operations whose completion has
// not been drained yet.
func (r *Ring) Outstanding() int {
	return r.outstanding
}

// SubmitWrite queues a write of buf to fd at offset. The memory of buf must
// stay valid and unmodified until the completion carrying tag is drained.
// When chained is true the write is linked to the next submission, the kernel
// then retires the chain in submission order and cancels the remaining writes
// of the chain when one of them fails.
func (r *Ring) SubmitWrite(fd int, buf []byte,
	offset uint64, tag uint64, chained bool) error {
	if r.closed {
		return ErrClosed
	}
	if len(buf) == 0 {
		return ErrEmptyBuffer
	}
	if uint64(len(buf)) > math.MaxUint32 {
		return errors.Newf("write of %d bytes exceeds the ring limit", len(buf))
	}
	if r.outstanding >= r.capacity {
		return errors.Wrapf(ErrQueueFull, "capacity %d, tag %d", r.capacity, tag)
	}
	tail := atomic.LoadUint32(r.sqTail)
	if tail-atomic.LoadUint32(r.sqHead) >= r.sqEntries {
		return errors.Wrapf(ErrQueueFull, "sq entries %d, tag %d", r.sqEntries, tag)
	}
	idx := tail & r.sqMask
	e := &r.sqes[idx]
	*e = sqe{
		opcode:   opWrite,
		fd:       int32(fd),
		off:      offset,
		addr:     uint64(uintptr(unsafe.Pointer(&buf[0]))),
		len:      uint32(len(buf)),
		userData: tag,
	}
	if chained {
		e.flags |= sqeIOLink
	}
	r.sqArray[idx] = idx
	atomic.StoreUint32(r.sqTail, tail+1)
	r.pending++
	r.outstanding++
	return nil
}

// WaitForCompletions submits all queued writes, blocks until at least count
// completions are available and drains exactly count of them. There is no
// timeout.
func (r *Ring) WaitForCompletions(count int) ([]Completion, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if count < 0 || count > r.outstanding {
		return nil, errors.Wrapf(ErrNotEnoughOutstanding,
			"want %d, outstanding %d", count, r.outstanding)
	}
	for {
		ready := r.ready()
		if ready >= count && r.pending == 0 {
			break
		}
		var flags uint32
		var minComplete uint32
		if ready < count {
			flags = enterGetEvents
			minComplete = uint32(count)
		}
		n, err := r.enter(r.pending, minComplete, flags)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return nil, errors.Wrapf(err, "io_uring_enter, pending %d, want %d",
				r.pending, count)
		}
		if n > r.pending {
			n = r.pending
		}
		if n == 0 && flags == 0 && r.pending > 0 {
			return nil, errors.Newf("kernel accepted none of %d writes", r.pending)
		}
		r.pending -= n
	}
	results := make([]Completion, 0, count)
	head := atomic.LoadUint32(r.cqHead)
	for i := 0; i < count; i++ {
		c := r.cqes[head&r.cqMask]
		results = append(results, Completion{Tag: c.userData, Result: c.res})
		head++
	}
	atomic.StoreUint32(r.cqHead, head)
	r.outstanding -= count
	return results, nil
}

func (r *Ring) ready() int {
	return int(atomic.LoadUint32(r.cqTail) - atomic.LoadUint32(r.cqHead))
}

func (r *Ring) enter(toSubmit uint32,
	minComplete uint32, flags uint32) (uint32, error) {
	n, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(r.fd),
		uintptr(toSubmit), uintptr(minComplete), uintptr(flags), 0, 0)
	if errno != 0 {
		return 0, errno
	}
	return uint32(n), nil
}

// Close releases the ring. Operations still outstanding are abandoned, the
// buffers they reference must not be released by the caller.
func (r *Ring) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.outstanding > 0 {
		plog.Warningf("closing ring with %d outstanding operations", r.outstanding)
	}
	r.unmap()
	return errors.WithStack(unix.Close(r.fd))
}
