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

//go:build !linux

package uring

// Ring is not available on this platform.
type Ring struct{}

// Open always fails with ErrNotSupported.
func Open(capacity uint32) (*Ring, error) {
	if capacity == 0 {
		return nil, ErrInvalidCapacity
	}
	return nil, ErrNotSupported
}

// Capacity ...
func (r *Ring) Capacity() int { return 0 }

// Outstanding ...
func (r *Ring) Outstanding() int { return 0 }

// SubmitWrite ...
func (r *Ring) SubmitWrite(fd int, buf []byte,
	offset uint64, tag uint64, chained bool) error {
	return ErrNotSupported
}

// WaitForCompletions ...
func (r *Ring) WaitForCompletions(count int) ([]Completion, error) {
	return nil, ErrNotSupported
}

// Close ...
func (r *Ring) Close() error { return nil }
