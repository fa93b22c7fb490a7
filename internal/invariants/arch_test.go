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

package invariants

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsPowerOfTwo(t *testing.T) {
	for _, v := range []uint64{1, 2, 4, 512, 4096, 1 << 40} {
		require.True(t, IsPowerOfTwo(v), "%d", v)
	}
	for _, v := range []uint64{0, 3, 6, 4095, 4097} {
		require.False(t, IsPowerOfTwo(v), "%d", v)
	}
}

func TestRingSupport(t *testing.T) {
	require.True(t, isRingSupportedOS("linux"))
	require.False(t, isRingSupportedOS("darwin"))
	require.False(t, isRingSupportedOS("windows"))
	require.True(t, isRingSupportedArch("amd64"))
	require.False(t, isRingSupportedArch("386"))
}
