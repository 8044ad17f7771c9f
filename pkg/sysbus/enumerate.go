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

package sysbus

import (
	"io/ioutil"
	"strings"

	"github.com/pkg/errors"
)

// Listing describes the binding state of one enumerated device.
type Listing struct {
	ID          string
	Driver      string // empty when unbound
	Override    string // empty when no override is set
	HasOverride bool
}

// EnumOptions narrow down the set of devices reported by Enumerate.
type EnumOptions struct {
	OverridesOnly bool
	Class         Class
}

// Enumerate walks all devices on the given bus and reports those that
// support driver override and pass the filters. Devices are reported in
// directory order, i.e. sorted by id.
func (fs FS) Enumerate(bus string, opts EnumOptions) ([]Listing, error) {
	entries, err := ioutil.ReadDir(fs.DevicesDir(bus))
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list devices on bus %s", bus)
	}

	var listings []Listing
	for _, entry := range entries {
		dev := Device{Bus: bus, ID: entry.Name(), Path: fs.DeviceLink(bus, entry.Name())}
		if !dev.Overridable() {
			continue
		}
		override, hasOverride, err := dev.Override()
		if err != nil {
			return nil, err
		}
		if opts.OverridesOnly && !hasOverride {
			continue
		}
		if code := opts.Class.Code(); code != "" {
			classCode, err := dev.ClassCode()
			if err != nil || !strings.HasPrefix(classCode, code) {
				continue
			}
		}
		driver, _, err := dev.Driver()
		if err != nil {
			return nil, err
		}
		listings = append(listings, Listing{
			ID:          dev.ID,
			Driver:      driver,
			Override:    override,
			HasOverride: hasOverride,
		})
	}

	if len(listings) == 0 {
		return nil, &NoDevicesError{Bus: bus}
	}
	return listings, nil
}
