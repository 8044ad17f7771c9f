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

import "fmt"

// NotFoundError is returned when a device id cannot be resolved to a device
// link on the selected bus.
type NotFoundError struct {
	Bus string
	ID  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("device %s not found on bus %s", e.ID, e.Bus)
}

// NotOverridableError is returned for devices whose attribute directory does
// not expose the driver-override attribute.
type NotOverridableError struct {
	Dev Device
}

func (e *NotOverridableError) Error() string {
	return fmt.Sprintf("device %s does not support driver override", e.Dev.ID)
}

// NotBoundError is returned when the bound driver of an unbound device is requested.
type NotBoundError struct {
	Dev Device
}

func (e *NotBoundError) Error() string {
	return fmt.Sprintf("no driver bound to device %s", e.Dev.ID)
}

// NoDevicesError is returned when an enumeration yields no overridable
// devices at all, which usually means a kernel without driver-override
// support rather than an overly strict filter.
type NoDevicesError struct {
	Bus string
}

func (e *NoDevicesError) Error() string {
	return fmt.Sprintf("no devices with driver-override support found on bus %s "+
		"(unsupported platform or too old kernel?)", e.Bus)
}
