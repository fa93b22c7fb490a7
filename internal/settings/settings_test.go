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

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHardSettings(t *testing.T) {
	h := getDefaultHardSettings()
	require.Equal(t, uint64(64), h.ChunkSize)
	require.Equal(t, uint64(8), h.StampSize)
}

func TestDefaultWindowsFitTheDefaultRing(t *testing.T) {
	s := getDefaultSoftSettings()
	require.True(t, s.PairWindow <= s.RingEntries)
	require.True(t, s.ChainedWindow <= s.RingEntries)
	require.Equal(t, uint64(0), s.DefaultBlockSize%getDefaultHardSettings().ChunkSize)
}

func TestSettingsCanBeOverwritten(t *testing.T) {
	s := getDefaultSoftSettings()
	cfg := map[string]interface{}{
		"RingEntries":     float64(64),
		"BufferAlignment": float64(512),
		"NoSuchField":     true,
	}
	overwriteSettings(cfg, reflect.Indirect(reflect.ValueOf(&s)))
	require.Equal(t, uint64(64), s.RingEntries)
	require.Equal(t, uint64(512), s.BufferAlignment)
	require.Equal(t, getDefaultSoftSettings().ChainedWindow, s.ChainedWindow)
}

func TestMissingSettingsFileIsIgnored(t *testing.T) {
	m, err := loadOverrides(filepath.Join(t.TempDir(), softSettingsFilename))
	require.NoError(t, err)
	require.Nil(t, m)
}

func TestMalformedSettingsFileIsRejected(t *testing.T) {
	fn := filepath.Join(t.TempDir(), softSettingsFilename)
	require.NoError(t, os.WriteFile(fn, []byte("{\"RingEntries\": "), 0644))
	_, err := loadOverrides(fn)
	require.Error(t, err)
	s := getDefaultSoftSettings()
	require.Panics(t, func() { mustOverwrite(fn, &s) })
}

func TestSoftSettingsFileOverwritesDefaults(t *testing.T) {
	fn := filepath.Join(t.TempDir(), softSettingsFilename)
	content := `{"RingEntries": 32, "ChainedWindow": 16, "DefaultBlockSize": 4096}`
	require.NoError(t, os.WriteFile(fn, []byte(content), 0644))
	s := getDefaultSoftSettings()
	mustOverwrite(fn, &s)
	require.Equal(t, uint64(32), s.RingEntries)
	require.Equal(t, uint64(16), s.ChainedWindow)
	require.Equal(t, uint64(4096), s.DefaultBlockSize)
	require.Equal(t, getDefaultSoftSettings().PairWindow, s.PairWindow)
}

func TestHardSettingsFileOverwritesDefaults(t *testing.T) {
	fn := filepath.Join(t.TempDir(), hardSettingsFilename)
	require.NoError(t, os.WriteFile(fn, []byte(`{"ChunkSize": 128}`), 0644))
	h := getDefaultHardSettings()
	mustOverwrite(fn, &h)
	require.Equal(t, uint64(128), h.ChunkSize)
	require.Equal(t, uint64(8), h.StampSize)
}

func TestMistypedSettingsAreSkipped(t *testing.T) {
	s := getDefaultSoftSettings()
	cfg := map[string]interface{}{
		"RingEntries":     "64",
		"BufferAlignment": float64(-512),
		"DefaultCount":    float64(1.5),
		"PairWindow":      float64(4),
	}
	overwriteSettings(cfg, reflect.Indirect(reflect.ValueOf(&s)))
	d := getDefaultSoftSettings()
	require.Equal(t, d.RingEntries, s.RingEntries)
	require.Equal(t, d.BufferAlignment, s.BufferAlignment)
	require.Equal(t, d.DefaultCount, s.DefaultCount)
	require.Equal(t, uint64(4), s.PairWindow)
}
