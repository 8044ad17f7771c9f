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
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// pciDomainPrefix is prepended to bare PCI bus/slot/function ids,
// defaulting them to domain 0.
const pciDomainPrefix = "0000:"

// Request carries the invocation-wide selections that influence how a raw
// device identifier is resolved.
type Request struct {
	// Bus is the currently selected bus. A "bus/" prefix in the raw
	// identifier takes precedence over it.
	Bus string

	// DevPath, when non-empty, is an externally supplied kernel-relative
	// device path (e.g. DEVPATH from a udev hook) and bypasses the
	// filesystem lookup entirely.
	DevPath string

	// Lenient tolerates a missing device link: resolution then yields the
	// unresolved link path and the caller is expected to short-circuit.
	// Used by unset-override, where the device may already be gone.
	Lenient bool
}

// Resolve turns a user-given device identifier into a Device with a resolved
// attribute-directory path. PCI ids without a domain part are retried with
// the canonical domain-0 prefix.
func (fs FS) Resolve(raw string, req Request) (Device, error) {
	bus, id := req.Bus, raw
	if idx := strings.Index(raw, "/"); idx >= 0 {
		bus, id = raw[:idx], raw[idx+1:]
	}

	if req.DevPath != "" {
		return Device{Bus: bus, ID: id, Path: fs.Root + req.DevPath}, nil
	}

	link := fs.DeviceLink(bus, id)
	if _, err := os.Lstat(link); err != nil {
		if bus == "pci" {
			canonical := pciDomainPrefix + id
			if _, err = os.Lstat(fs.DeviceLink(bus, canonical)); err == nil {
				id = canonical
				link = fs.DeviceLink(bus, id)
			}
		}
	}
	if _, err := os.Lstat(link); err != nil {
		if req.Lenient {
			return Device{Bus: bus, ID: id, Path: link}, nil
		}
		return Device{}, &NotFoundError{Bus: bus, ID: id}
	}

	real, err := filepath.EvalSymlinks(link)
	if err != nil {
		return Device{}, errors.Wrapf(err, "cannot resolve device link %s", link)
	}
	return Device{Bus: bus, ID: id, Path: fs.Root + fs.StripRoot(real)}, nil
}
