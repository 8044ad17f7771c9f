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

// Package sysfs builds a fake sys filesystem tree under a test-controlled
// root, with the same device links, driver directories and attribute files
// a real kernel exposes. Attribute writes land in plain files, so tests
// inspect them directly; kernel reactions (removing a driver link on
// unbind, binding on probe) have to be simulated by the test itself.
package sysfs

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
)

// MockFS represents a fake sys filesystem rooted at Root.
type MockFS struct {
	Root string
}

// NewMockFS returns a MockFS building its tree under the given root directory.
func NewMockFS(root string) *MockFS {
	return &MockFS{Root: root}
}

// DeviceSpec describes a fake device to be added into the tree.
type DeviceSpec struct {
	Bus         string
	ID          string
	Class       string // e.g. "0x020000"
	Vendor      string // e.g. "0x8086"
	Device      string // e.g. "0x10d3"
	Driver      string // initially bound driver, empty = unbound
	Overridable bool
	Override    string // initial override value, empty = unset
}

// AddBus creates the directory skeleton of a bus, including its probe trigger.
func (m *MockFS) AddBus(bus string) error {
	for _, dir := range []string{
		m.path("bus", bus, "devices"),
		m.path("bus", bus, "drivers"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return ioutil.WriteFile(m.path("bus", bus, "drivers_probe"), nil, 0644)
}

// AddDriver registers a fake driver on the bus, with its unbind/bind/new_id
// control files.
func (m *MockFS) AddDriver(bus string, name string) error {
	dir := m.path("bus", bus, "drivers", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, ctl := range []string{"bind", "unbind", "new_id"} {
		if err := ioutil.WriteFile(filepath.Join(dir, ctl), nil, 0644); err != nil {
			return err
		}
	}
	return nil
}

// AddDevice creates the device's real attribute directory under
// <root>/devices/ and links it from the bus devices directory, the way the
// kernel lays out sysfs. Returns the real directory path.
func (m *MockFS) AddDevice(spec DeviceSpec) (string, error) {
	real := m.path("devices", spec.Bus+"0", spec.ID)
	if err := os.MkdirAll(real, 0755); err != nil {
		return "", err
	}

	attrs := map[string]string{
		"class":  spec.Class,
		"vendor": spec.Vendor,
		"device": spec.Device,
	}
	if spec.Overridable {
		value := spec.Override
		if value == "" {
			value = "(null)"
		}
		attrs["driver_override"] = value
	}
	for name, value := range attrs {
		if value == "" {
			continue
		}
		err := ioutil.WriteFile(filepath.Join(real, name), []byte(value+"\n"), 0644)
		if err != nil {
			return "", err
		}
	}

	link := m.path("bus", spec.Bus, "devices", spec.ID)
	target := filepath.Join("..", "..", "..", "devices", spec.Bus+"0", spec.ID)
	if err := os.Symlink(target, link); err != nil {
		return "", err
	}

	if spec.Driver != "" {
		if err := m.Bind(spec.Bus, spec.ID, spec.Driver); err != nil {
			return "", err
		}
	}
	return real, nil
}

// Bind points the device's driver link at the given driver, simulating a
// successful kernel bind. The driver must have been added before.
func (m *MockFS) Bind(bus string, id string, driver string) error {
	driverDir := m.path("bus", bus, "drivers", driver)
	if _, err := os.Stat(driverDir); err != nil {
		return fmt.Errorf("driver %s not registered on bus %s", driver, bus)
	}
	link := filepath.Join(m.path("devices", bus+"0", id), "driver")
	os.Remove(link)
	return os.Symlink(filepath.Join("..", "..", "..", "bus", bus, "drivers", driver), link)
}

// Unbind removes the device's driver link, simulating the kernel reaction
// to an unbind write.
func (m *MockFS) Unbind(bus string, id string) error {
	err := os.Remove(filepath.Join(m.path("devices", bus+"0", id), "driver"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Content returns the trimmed content of a file given by path elements
// relative to the root, empty string in case the file cannot be read.
func (m *MockFS) Content(elem ...string) string {
	content, err := ioutil.ReadFile(m.path(elem...))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(content))
}

func (m *MockFS) path(elem ...string) string {
	return filepath.Join(append([]string{m.Root}, elem...)...)
}
