// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package persist stores driver-override choices on stable storage, one flat
// file per device, so that they can be reapplied after re-enumeration.
package persist

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

// DefaultDir is the default location of the persisted override records.
const DefaultDir = "/etc/drvctl.d"

// Store maps persistence keys to saved driver names. Each record is a flat
// file named by the key, containing the driver name.
type Store struct {
	Dir string
	Log logging.Logger
}

// Record is one persisted override, with the bus prefix already stripped
// from the key.
type Record struct {
	DeviceID string
	Driver   string
}

// NewStore returns a store over the given directory, or over DefaultDir if
// dir is empty.
func NewStore(dir string, log logging.Logger) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{Dir: dir, Log: log}
}

// Key builds the persistence key of a device.
func Key(bus string, id string) string {
	return bus + "-" + id
}

// Save writes or replaces the record for the given key. An empty driver name
// deletes the record instead; a missing record is not an error in that case.
func (s *Store) Save(key string, driver string) error {
	fileName := filepath.Join(s.Dir, key)
	if driver == "" {
		s.Log.Debugf("Removing persisted override %s", fileName)
		if err := os.Remove(fileName); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "cannot remove persisted override %s", key)
		}
		return nil
	}

	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return errors.Wrapf(err, "cannot create persistence directory %s", s.Dir)
	}
	s.Log.Debugf("Persisting override %s = %s", key, driver)
	err := ioutil.WriteFile(fileName, []byte(driver+"\n"), 0644)
	return errors.Wrapf(err, "cannot persist override %s", key)
}

// Load returns the driver name persisted for the given key. The second
// return value is false in case no record exists.
func (s *Store) Load(key string) (string, bool, error) {
	content, err := ioutil.ReadFile(filepath.Join(s.Dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "cannot read persisted override %s", key)
	}
	return strings.TrimSpace(string(content)), true, nil
}

// List returns all records persisted for the given bus, sorted by device id.
func (s *Store) List(bus string) ([]Record, error) {
	entries, err := ioutil.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "cannot list persistence directory %s", s.Dir)
	}

	prefix := bus + "-"
	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		driver, found, err := s.Load(entry.Name())
		if err != nil {
			return nil, err
		}
		if !found {
			continue // removed concurrently
		}
		records = append(records, Record{
			DeviceID: strings.TrimPrefix(entry.Name(), prefix),
			Driver:   driver,
		})
	}
	return records, nil
}
