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
Package block generates the content of benchmark blocks.

Every 64 byte chunk of a block starts with the little endian encoding of its
chunk identifier, the identifier of the first chunk of a block is given by the
caller and following chunks count up from it. The rest of each chunk is left
untouched.
*/
package block

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/lni/iobench/internal/settings"
)

var (
	// ErrInvalidBlockSize indicates that the block size is not a multiple of
	// the chunk size.
	ErrInvalidBlockSize = errors.New("block size is not a multiple of chunk size")
	// ErrShortBuffer indicates that the buffer is smaller than the block.
	ErrShortBuffer = errors.New("buffer is smaller than the block size")
	// ErrCorrupted indicates that a block does not carry the expected stamps.
	ErrCorrupted = errors.New("unexpected chunk stamp")
)

var (
	chunkSize = settings.Hard.ChunkSize
	stampSize = settings.Hard.StampSize
)

// ChunkSize returns the size of each stamped chunk.
func ChunkSize() uint64 {
	return chunkSize
}

// ValidSize returns a boolean value indicating whether blockSize can be used
// as the block size.
func ValidSize(blockSize uint64) bool {
	return blockSize > 0 && blockSize%chunkSize == 0
}

// FirstChunk returns the identifier of the first chunk of the specified block,
// it is the absolute chunk position of the block in a file written from
// offset 0 without gaps.
func FirstChunk(index uint64, blockSize uint64) uint64 {
	return index * blockSize / chunkSize
}

// Fill stamps blockSize bytes of buf, the first chunk gets the identifier id.
func Fill(buf []byte, blockSize uint64, id uint64) error {
	if !ValidSize(blockSize) {
		return errors.Wrapf(ErrInvalidBlockSize, "block size %d", blockSize)
	}
	if uint64(len(buf)) < blockSize {
		return errors.Wrapf(ErrShortBuffer, "buffer %d, block %d",
			len(buf), blockSize)
	}
	for i := uint64(0); i < blockSize/chunkSize; i++ {
		off := i * chunkSize
		binary.LittleEndian.PutUint64(buf[off:off+stampSize], id+i)
	}
	return nil
}

// Make returns a newly allocated block stamped with id.
func Make(blockSize uint64, id uint64) ([]byte, error) {
	buf := make([]byte, blockSize)
	if err := Fill(buf, blockSize, id); err != nil {
		return nil, err
	}
	return buf, nil
}

// Verify checks that buf is a block stamped with id.
func Verify(buf []byte, id uint64) error {
	if !ValidSize(uint64(len(buf))) {
		return errors.Wrapf(ErrInvalidBlockSize, "block size %d", len(buf))
	}
	for i := uint64(0); i < uint64(len(buf))/chunkSize; i++ {
		off := i * chunkSize
		v := binary.LittleEndian.Uint64(buf[off : off+stampSize])
		if v != id+i {
			return errors.Wrapf(ErrCorrupted,
				"chunk %d, got %d, want %d", i, v, id+i)
		}
	}
	return nil
}
