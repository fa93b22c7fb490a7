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

package align

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// State is the life cycle state of a Buffer.
type State int

const (
	// Free buffers are owned by the caller and can be written.
	Free State = iota
	// InFlight buffers are owned by the kernel until the completion of the
	// operation with the buffer's tag is observed.
	InFlight
	// ReadyToRelease buffers have had their completion observed.
	ReadyToRelease
	// Released buffers have been returned to the allocator.
	Released
)

var stateNames = [...]string{"Free", "InFlight", "ReadyToRelease", "Released"}

func (s State) String() string {
	if s < Free || s > Released {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Buffer is an aligned buffer allocated by a Pool.
type Buffer struct {
	data    []byte
	mapping []byte
	state   State
	tag     uint64
	pool    *Pool
}

// Bytes returns the writable content of the buffer. It returns nil once the
// buffer has been submitted or released.
func (b *Buffer) Bytes() []byte {
	if b.state != Free {
		return nil
	}
	return b.data
}

// Len returns the size of the buffer.
func (b *Buffer) Len() int {
	return b.pool.size
}

// State returns the current state of the buffer.
func (b *Buffer) State() State {
	return b.state
}

// Tag returns the correlation tag of the operation the buffer was submitted
// with, it is only meaningful once the buffer left the Free state.
func (b *Buffer) Tag() uint64 {
	return b.tag
}

// Submit transfers the ownership of the buffer to the operation identified by
// tag.
func (b *Buffer) Submit(tag uint64) error {
	if b.state != Free {
		return errors.Wrapf(ErrInvalidTransition, "submit %s buffer", b.state)
	}
	b.state = InFlight
	b.tag = tag
	return nil
}

// Complete marks the operation identified by tag as completed, the buffer
// becomes ready to be released.
func (b *Buffer) Complete(tag uint64) error {
	if b.state != InFlight {
		return errors.Wrapf(ErrInvalidTransition, "complete %s buffer", b.state)
	}
	if tag != b.tag {
		return errors.Wrapf(ErrInvalidTransition,
			"completion tag %d, buffer tag %d", tag, b.tag)
	}
	b.state = ReadyToRelease
	return nil
}
