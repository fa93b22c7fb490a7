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

//go:build !linux && !darwin && !freebsd

package align

// allocAligned over allocates on the Go heap and trims the slice to the
// aligned start.
func allocAligned(size int, alignment int) ([]byte, []byte, error) {
	mapping := make([]byte, size+alignment)
	return mapping, alignedView(mapping, size, alignment), nil
}

func freeAligned(mapping []byte) error {
	return nil
}
