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
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/errors/oserror"
)

const (
	hardSettingsFilename = "iobench-hard-settings.json"
	softSettingsFilename = "iobench-soft-settings.json"
)

// loadOverrides returns the json object stored in fn, or nil when fn does
// not exist.
func loadOverrides(fn string) (map[string]interface{}, error) {
	b, err := os.ReadFile(filepath.Clean(fn))
	if err != nil {
		if oserror.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "read settings %s", fn)
	}
	m := map[string]interface{}{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrapf(err, "parse settings %s", fn)
	}
	return m, nil
}

func overwriteHardSettings(org *hard) {
	mustOverwrite(hardSettingsFilename, org)
}

func overwriteSoftSettings(org *soft) {
	mustOverwrite(softSettingsFilename, org)
}

// mustOverwrite applies the overrides found in fn to the struct pointed to
// by org. Settings are read during package initialization, a malformed file
// is fatal.
func mustOverwrite(fn string, org interface{}) {
	overrides, err := loadOverrides(fn)
	if err != nil {
		panic(err)
	}
	overwriteSettings(overrides, reflect.Indirect(reflect.ValueOf(org)))
}

// overwriteSettings sets every field of rd named in cfg. Unknown names and
// values not matching the field type are logged and skipped.
func overwriteSettings(cfg map[string]interface{}, rd reflect.Value) {
	for key, val := range cfg {
		field := rd.FieldByName(key)
		if !field.IsValid() || !field.CanSet() {
			plog.Warningf("unknown setting %s ignored", key)
			continue
		}
		switch field.Kind() {
		case reflect.Uint64:
			v, ok := val.(float64)
			if !ok || v < 0 || v != float64(uint64(v)) {
				plog.Warningf("setting %s expects an unsigned integer, got %v", key, val)
				continue
			}
			plog.Infof("Setting %s to uint64 value %d", key, uint64(v))
			field.SetUint(uint64(v))
		case reflect.Bool:
			v, ok := val.(bool)
			if !ok {
				plog.Warningf("setting %s expects a bool, got %v", key, val)
				continue
			}
			plog.Infof("Setting %s to bool value %t", key, v)
			field.SetBool(v)
		default:
			plog.Warningf("setting %s of kind %s can not be overwritten",
				key, field.Kind())
		}
	}
}
