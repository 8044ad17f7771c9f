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
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const (
	devicesDir   = "%s/bus/%s/devices"
	deviceLink   = "%s/bus/%s/devices/%s"
	driverDir    = "%s/bus/%s/drivers/%s"
	probeFile    = "%s/bus/%s/drivers_probe"
	newIDFile    = "%s/bus/%s/drivers/%s/new_id"
	overrideAttr = "driver_override"
	driverAttr   = "driver"
	unbindCtl    = "driver/unbind"
	classAttr    = "class"
	vendorAttr   = "vendor"
	deviceAttr   = "device"
)

// noOverride is the value the kernel reports for an unset driver_override attribute.
const noOverride = "(null)"

// DefaultRoot is the standard mount point of the sys filesystem.
const DefaultRoot = "/sys"

// FS provides access to a bus-device filesystem mounted at Root.
// The zero value is not usable, use NewFS.
type FS struct {
	Root string
}

// NewFS returns an FS rooted at the given mount point, or at DefaultRoot
// if root is empty.
func NewFS(root string) FS {
	if root == "" {
		root = DefaultRoot
	}
	return FS{Root: strings.TrimSuffix(root, "/")}
}

// DevicesDir returns the directory containing the device links of the given bus.
func (fs FS) DevicesDir(bus string) string {
	return fmt.Sprintf(devicesDir, fs.Root, bus)
}

// DeviceLink returns the well-known link path of a device on the given bus.
func (fs FS) DeviceLink(bus string, id string) string {
	return fmt.Sprintf(deviceLink, fs.Root, bus, id)
}

// HasDriver returns true in case the given driver is registered on the bus,
// i.e. its module is loaded or it is built into the kernel.
func (fs FS) HasDriver(bus string, driver string) bool {
	if _, err := os.Stat(fmt.Sprintf(driverDir, fs.Root, bus, driver)); err == nil {
		return true
	}
	return false
}

// Probe asks the bus to re-attempt driver matching for the given device
// by writing its id into the bus-level probe trigger.
func (fs FS) Probe(bus string, id string) error {
	return writeAttr(fmt.Sprintf(probeFile, fs.Root, bus), id)
}

// RegisterID registers a (vendor, device) ID pair with the given driver's
// dynamic-ID table, so that the driver considers devices with that identity.
func (fs FS) RegisterID(bus string, driver string, vendor string, device string) error {
	return writeAttr(fmt.Sprintf(newIDFile, fs.Root, bus, driver),
		fmt.Sprintf("%s %s", vendor, device))
}

// StripRoot strips the filesystem mount root from an absolute path, yielding
// the kernel-relative device path (the same form udev passes in DEVPATH).
// Paths outside the mount root are returned unchanged.
func (fs FS) StripRoot(path string) string {
	return strings.TrimPrefix(path, fs.Root)
}

// Device is a single device on a bus, identified by its bus-specific id.
// Path points at the directory with the device's attribute files.
type Device struct {
	Bus  string
	ID   string
	Path string
}

// Exists returns true in case the device's attribute directory is present.
func (d Device) Exists() bool {
	if _, err := os.Stat(d.Path); err == nil {
		return true
	}
	return false
}

// Overridable returns true in case the device exposes the driver-override
// attribute. All override operations require this.
func (d Device) Overridable() bool {
	if _, err := os.Stat(filepath.Join(d.Path, overrideAttr)); err == nil {
		return true
	}
	return false
}

// Driver returns the name of the driver the device is currently bound to.
// The second return value is false in case the device is unbound.
func (d Device) Driver() (string, bool, error) {
	target, err := os.Readlink(filepath.Join(d.Path, driverAttr))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "cannot read driver link of %s", d.ID)
	}
	return filepath.Base(target), true, nil
}

// Override returns the current value of the driver-override attribute.
// The second return value is false in case no override is set (the kernel
// reports an empty string or the "(null)" sentinel).
func (d Device) Override() (string, bool, error) {
	val, err := readAttr(filepath.Join(d.Path, overrideAttr))
	if err != nil {
		return "", false, errors.Wrapf(err, "cannot read driver override of %s", d.ID)
	}
	if val == "" || val == noOverride {
		return "", false, nil
	}
	return val, true, nil
}

// SetOverride writes the given driver name into the driver-override attribute.
// An empty name clears the override.
func (d Device) SetOverride(driver string) error {
	// the kernel treats a lone newline as "clear"
	return writeAttr(filepath.Join(d.Path, overrideAttr), driver)
}

// Unbind detaches the device from its current driver. It is a no-op in case
// the device is not bound.
func (d Device) Unbind() error {
	if _, bound, err := d.Driver(); err != nil || !bound {
		return err
	}
	return writeAttr(filepath.Join(d.Path, unbindCtl), d.ID)
}

// ClassCode returns the device's class code as lowercase hex digits without
// the 0x prefix, e.g. "020000" for an ethernet controller.
func (d Device) ClassCode() (string, error) {
	val, err := readAttr(filepath.Join(d.Path, classAttr))
	if err != nil {
		return "", errors.Wrapf(err, "cannot read class of %s", d.ID)
	}
	return strings.ToLower(strings.TrimPrefix(val, "0x")), nil
}

// IDPair returns the device's (vendor, device) identity as hex digits without
// the 0x prefix, in the form accepted by the drivers' dynamic-ID tables.
func (d Device) IDPair() (string, string, error) {
	vendor, err := readAttr(filepath.Join(d.Path, vendorAttr))
	if err != nil {
		return "", "", errors.Wrapf(err, "cannot read vendor ID of %s", d.ID)
	}
	device, err := readAttr(filepath.Join(d.Path, deviceAttr))
	if err != nil {
		return "", "", errors.Wrapf(err, "cannot read device ID of %s", d.ID)
	}
	return strings.TrimPrefix(vendor, "0x"), strings.TrimPrefix(device, "0x"), nil
}

// readAttr reads a single attribute file and strips surrounding whitespace.
func readAttr(fileName string) (string, error) {
	content, err := ioutil.ReadFile(fileName)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(content)), nil
}

// writeAttr writes a value into an attribute file. Attribute files are
// opened write-only without truncation, as sysfs requires.
func writeAttr(fileName string, value string) error {
	f, err := os.OpenFile(fileName, os.O_WRONLY|os.O_TRUNC, os.ModePerm)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err = f.Write([]byte(value + "\n")); err != nil {
		return err
	}
	return nil
}
