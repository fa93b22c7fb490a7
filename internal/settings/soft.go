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

package settings

//
// Tuning configuration parameters here will impact the performance and the
// defaults of the benchmark. It will not change the content written to disk.
//
// To tune these parameters, place a json file named iobench-soft-settings.json
// in the current working directory, all fields in the json file will be
// applied to overwrite the default setting values. e.g. for a json file with
// the following content -
//
// {
//   "RingEntries": 64,
//   "BufferAlignment": 512
// }
//
// soft.RingEntries will be 64, soft.BufferAlignment will be 512
//

// Soft is the soft settings that can be changed between runs.
var Soft = getSoftSettings()

type soft struct {
	// RingEntries is the default capacity of the submission ring.
	RingEntries uint64
	// MaxRingEntries is the largest ring capacity accepted by the config.
	MaxRingEntries uint64
	// BufferAlignment is the default byte alignment of buffers handed to the
	// kernel ring.
	BufferAlignment uint64
	// DefaultBlockSize is the block size used when none is specified.
	DefaultBlockSize uint64
	// MaxBlockSize is the largest block size accepted by the config. A single
	// ring write can not carry more than 4GB.
	MaxBlockSize uint64
	// DefaultCount is the number of blocks written when none is specified.
	DefaultCount uint64
	// PairWindow is the window depth of the double buffered strategies.
	PairWindow uint64
	// ChainedWindow is the window depth of the chained ring strategy.
	ChainedWindow uint64
}

func getSoftSettings() soft {
	org := getDefaultSoftSettings()
	overwriteSoftSettings(&org)
	return org
}

func getDefaultSoftSettings() soft {
	return soft{
		RingEntries:      8,
		MaxRingEntries:   4096,
		BufferAlignment:  4096,
		DefaultBlockSize: 64,
		MaxBlockSize:     1 << 30,
		DefaultCount:     1,
		PairWindow:       2,
		ChainedWindow:    8,
	}
}
