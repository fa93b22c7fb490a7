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
	"runtime"
)

// IsRingSupportedOS returns a boolean value indicating whether the running OS
// provides the kernel submission/completion ring.
func IsRingSupportedOS() bool {
	return isRingSupportedOS(runtime.GOOS)
}

// IsRingSupportedArch returns a boolean value indicating whether the ring
// syscalls are wired for the running architecture.
func IsRingSupportedArch() bool {
	return isRingSupportedArch(runtime.GOARCH)
}

// IsPowerOfTwo returns a boolean value indicating whether v is a power of two.
func IsPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}

func isRingSupportedOS(os string) bool {
	return os == "linux"
}

func isRingSupportedArch(arch string) bool {
	supported := []string{
		"amd64",
		"arm64",
		"riscv64",
		"loong64",
		"ppc64le",
		"s390x",
	}
	for _, v := range supported {
		if arch == v {
			return true
		}
	}
	return false
}
