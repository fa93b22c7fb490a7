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
Package settings is used for managing internal parameters that can be set at
compile time by expert level users.
*/
package settings

import (
	"github.com/lni/iobench/logger"
)

var (
	plog = logger.GetLogger("settings")
)

//
// Parameters in both hard.go and soft.go are _NOT_ a part of the public API.
// There is no guarantee that any of these parameters are going to be available
// in future releases. Change them only when you know what you are doing.
//
// This file contains hard configuration values that define the on-disk content
// produced by iobench. Changing any value here makes files written by earlier
// runs unverifiable.
//
// To tune these parameters, place a json file named iobench-hard-settings.json
// in the current working directory, all fields in the json file will be
// applied to overwrite the default setting values. e.g. for a json file with
// the following content -
//
// {
//   "ChunkSize": 128,
// }
//
// hard.ChunkSize will be set to 128
//

// Hard is the hard settings that define the stamped block layout.
var Hard = getHardSettings()

type hard struct {
	// ChunkSize is the size in bytes of each stamped sub-chunk of a block. Block
	// sizes must be a multiple of ChunkSize.
	ChunkSize uint64
	// StampSize is the number of leading bytes of each chunk holding the little
	// endian chunk identifier.
	StampSize uint64
}

func getHardSettings() hard {
	org := getDefaultHardSettings()
	overwriteHardSettings(&org)
	if org.StampSize != 8 || org.ChunkSize < org.StampSize {
		plog.Panicf("invalid hard settings, chunk %d, stamp %d",
			org.ChunkSize, org.StampSize)
	}
	return org
}

func getDefaultHardSettings() hard {
	return hard{
		ChunkSize: 64,
		StampSize: 8,
	}
}
