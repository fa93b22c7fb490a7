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

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestValidSize(t *testing.T) {
	require.True(t, ValidSize(64))
	require.True(t, ValidSize(4096))
	require.False(t, ValidSize(0))
	require.False(t, ValidSize(32))
	require.False(t, ValidSize(65))
}

func TestFillStampsEveryChunk(t *testing.T) {
	buf := make([]byte, 256)
	require.NoError(t, Fill(buf, 256, 100))
	for i := 0; i < 4; i++ {
		chunk := buf[i*64 : (i+1)*64]
		require.Equal(t, uint64(100+i), binary.LittleEndian.Uint64(chunk[:8]))
		require.Equal(t, make([]byte, 56), chunk[8:])
	}
}

func TestFillLeavesTheRestOfTheChunkUntouched(t *testing.T) {
	buf := bytes.Repeat([]byte{0xAB}, 128)
	require.NoError(t, Fill(buf, 128, 0))
	require.Equal(t, bytes.Repeat([]byte{0xAB}, 56), buf[8:64])
	require.Equal(t, bytes.Repeat([]byte{0xAB}, 56), buf[72:128])
}

func TestFillIsIdempotent(t *testing.T) {
	b1, err := Make(4096, FirstChunk(3, 4096))
	require.NoError(t, err)
	b2, err := Make(4096, FirstChunk(3, 4096))
	require.NoError(t, err)
	require.Equal(t, b1, b2)
	require.NoError(t, Fill(b1, 4096, FirstChunk(3, 4096)))
	require.Equal(t, b1, b2)
}

func TestFillOnlyTouchesTheBlock(t *testing.T) {
	buf := make([]byte, 192)
	require.NoError(t, Fill(buf, 128, 1))
	require.Equal(t, make([]byte, 64), buf[128:])
}

func TestInvalidBlockSizeIsRejected(t *testing.T) {
	buf := make([]byte, 128)
	require.True(t, errors.Is(Fill(buf, 32, 0), ErrInvalidBlockSize))
	require.True(t, errors.Is(Fill(buf, 100, 0), ErrInvalidBlockSize))
	require.True(t, errors.Is(Fill(buf, 0, 0), ErrInvalidBlockSize))
	_, err := Make(96, 0)
	require.True(t, errors.Is(err, ErrInvalidBlockSize))
}

func TestShortBufferIsRejected(t *testing.T) {
	require.True(t, errors.Is(Fill(make([]byte, 64), 128, 0), ErrShortBuffer))
}

func TestFirstChunk(t *testing.T) {
	require.Equal(t, uint64(0), FirstChunk(0, 64))
	require.Equal(t, uint64(5), FirstChunk(5, 64))
	require.Equal(t, uint64(320), FirstChunk(5, 4096))
}

func TestVerify(t *testing.T) {
	b, err := Make(512, 40)
	require.NoError(t, err)
	require.NoError(t, Verify(b, 40))
	require.True(t, errors.Is(Verify(b, 41), ErrCorrupted))
	b[64] ^= 0xFF
	require.True(t, errors.Is(Verify(b, 40), ErrCorrupted))
	require.True(t, errors.Is(Verify(b[:100], 40), ErrInvalidBlockSize))
}

func TestAdjacentBlocksFormAContiguousSequence(t *testing.T) {
	var file []byte
	for i := uint64(0); i < 4; i++ {
		b, err := Make(128, FirstChunk(i, 128))
		require.NoError(t, err)
		file = append(file, b...)
	}
	require.NoError(t, Verify(file, 0))
}

func TestLayoutOffsets(t *testing.T) {
	fixed := Layout{BlockSize: 128, Count: 4, BaseOffset: 512}
	advance := Layout{BlockSize: 128, Count: 4, BaseOffset: 512, Advance: true}
	for i := uint64(0); i < 4; i++ {
		require.Equal(t, uint64(512), fixed.Offset(i))
		require.Equal(t, 512+i*128, advance.Offset(i))
		require.Equal(t, FirstChunk(i, 128), fixed.FirstChunk(i))
		require.Equal(t, fixed.FirstChunk(i), advance.FirstChunk(i))
	}
	require.Equal(t, uint64(512), fixed.Bytes())
	require.Equal(t, uint64(640), fixed.Extent())
	require.Equal(t, uint64(1024), advance.Extent())
	require.Equal(t, uint64(0), Layout{BlockSize: 64}.Extent())
}
