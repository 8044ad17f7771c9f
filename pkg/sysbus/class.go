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
	"fmt"
	"strings"
)

// Class is a device class usable as an enumeration filter. The zero value
// (ClassAll) matches every device.
type Class int

// The closed set of device classes. The names map to the two leading hex
// digits of the device's class code.
const (
	ClassAll Class = iota
	ClassStorage
	ClassNetwork
	ClassDisplay
	ClassMultimedia
	ClassMemory
	ClassBridge
	ClassCommunication
	ClassSystem
	ClassInput
	ClassDocking
	ClassProcessor
	ClassSerial
)

var classTable = []struct {
	class Class
	name  string
	code  string
}{
	{ClassAll, "all", ""},
	{ClassStorage, "storage", "01"},
	{ClassNetwork, "network", "02"},
	{ClassDisplay, "display", "03"},
	{ClassMultimedia, "multimedia", "04"},
	{ClassMemory, "memory", "05"},
	{ClassBridge, "bridge", "06"},
	{ClassCommunication, "communication", "07"},
	{ClassSystem, "system", "08"},
	{ClassInput, "input", "09"},
	{ClassDocking, "docking", "0a"},
	{ClassProcessor, "processor", "0b"},
	{ClassSerial, "serial", "0c"},
}

// ParseClass validates a class name against the closed class set.
// The empty name parses as ClassAll.
func ParseClass(name string) (Class, error) {
	if name == "" {
		return ClassAll, nil
	}
	for _, entry := range classTable {
		if entry.name == name {
			return entry.class, nil
		}
	}
	return ClassAll, fmt.Errorf("unknown device class %q (expected one of: %s)",
		name, strings.Join(ClassNames(), ", "))
}

// Code returns the class-code prefix used for filtering, empty for ClassAll.
func (c Class) Code() string {
	for _, entry := range classTable {
		if entry.class == c {
			return entry.code
		}
	}
	return ""
}

func (c Class) String() string {
	for _, entry := range classTable {
		if entry.class == c {
			return entry.name
		}
	}
	return "all"
}

// ClassNames returns the names of all known device classes.
func ClassNames() []string {
	names := make([]string, 0, len(classTable))
	for _, entry := range classTable {
		names = append(names, entry.name)
	}
	return names
}
