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

package block

// Layout describes the blocks written by a benchmark run and where they are
// placed in the target.
type Layout struct {
	// BlockSize is the size of each block in bytes.
	BlockSize uint64
	// Count is the number of blocks to write.
	Count uint64
	// BaseOffset is the target offset of block 0.
	BaseOffset uint64
	// Advance places block i at BaseOffset + i*BlockSize when set. Otherwise
	// every block is written to BaseOffset and overwrites its predecessor.
	Advance bool
}

// Offset returns the target offset of the specified block.
func (l Layout) Offset(index uint64) uint64 {
	if !l.Advance {
		return l.BaseOffset
	}
	return l.BaseOffset + index*l.BlockSize
}

// FirstChunk returns the identifier stamped into the first chunk of the
// specified block. It does not depend on the offset policy.
func (l Layout) FirstChunk(index uint64) uint64 {
	return FirstChunk(index, l.BlockSize)
}

// Bytes returns the total number of bytes requested by the layout.
func (l Layout) Bytes() uint64 {
	return l.BlockSize * l.Count
}

// Extent returns the number of bytes the target spans once all blocks have
// been written.
func (l Layout) Extent() uint64 {
	if l.Count == 0 {
		return 0
	}
	return l.Offset(l.Count-1) + l.BlockSize
}
