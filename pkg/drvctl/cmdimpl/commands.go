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

// Package cmdimpl implements the drvctl commands on top of the sysbus,
// override and persist packages. The cobra wiring lives in the cmd package.
package cmdimpl

import (
	"fmt"
	"io"

	"github.com/ligato/cn-infra/logging"

	"github.com/contiv/drvctl/pkg/override"
	"github.com/contiv/drvctl/pkg/persist"
	"github.com/contiv/drvctl/pkg/sysbus"
)

// noDriver marks unbound devices in listings.
const noDriver = "(none)"

// Deps groups the collaborators and invocation-wide selections shared by all
// commands. One Deps value serves a single command execution.
type Deps struct {
	FS    sysbus.FS
	Ctl   *override.Controller
	Store *persist.Store
	Log   logging.Logger
	Out   io.Writer

	// Bus is the selected bus, already defaulted from flags / config / env.
	Bus string

	// DevPath, when non-empty, bypasses device lookup (hook invocation).
	DevPath string

	// NoSave suppresses both persisting and deleting of override records.
	NoSave bool
}

// SetOverride resolves the device, drives it to the given driver override
// and persists the choice.
func (d *Deps) SetOverride(rawDev string, driver string) error {
	dev, err := d.resolve(rawDev, false)
	if err != nil {
		return err
	}
	if err := d.Ctl.Set(dev, driver); err != nil {
		return err
	}
	return d.save(dev, driver)
}

// UnsetOverride clears the device's override and deletes the persisted
// record. The device may already be gone from the bus; the record is
// deleted regardless.
func (d *Deps) UnsetOverride(rawDev string) error {
	dev, err := d.resolve(rawDev, true)
	if err != nil {
		return err
	}
	if dev.Exists() {
		if err := d.Ctl.Unset(dev); err != nil {
			return err
		}
	} else {
		d.Log.Debugf("Device %s is gone, removing just the persisted override", dev.ID)
	}
	return d.save(dev, "")
}

// LoadOverride re-applies the persisted override of the device, without
// re-saving it. Returns override.ErrNothingPersisted when there is none.
func (d *Deps) LoadOverride(rawDev string) error {
	dev, err := d.resolve(rawDev, false)
	if err != nil {
		return err
	}
	return d.Ctl.LoadPersisted(dev, d.Store)
}

// GetDriver prints the name of the driver the device is bound to.
func (d *Deps) GetDriver(rawDev string) error {
	dev, err := d.resolve(rawDev, false)
	if err != nil {
		return err
	}
	driver, bound, err := dev.Driver()
	if err != nil {
		return err
	}
	if !bound {
		return &sysbus.NotBoundError{Dev: dev}
	}
	fmt.Fprintln(d.Out, driver)
	return nil
}

// ListDevices prints all overridable devices of the selected class with
// their bound driver, marking devices carrying an override with [*].
func (d *Deps) ListDevices(className string) error {
	listings, err := d.enumerate(className, false)
	if err != nil {
		return err
	}
	for _, l := range listings {
		driver := l.Driver
		if driver == "" {
			driver = noDriver
		}
		mark := ""
		if l.HasOverride {
			mark = " [*]"
		}
		fmt.Fprintf(d.Out, "%s %s%s\n", l.ID, driver, mark)
	}
	return nil
}

// ListOverrides prints the devices of the selected class that currently
// carry a driver override, with the override value.
func (d *Deps) ListOverrides(className string) error {
	listings, err := d.enumerate(className, true)
	if err != nil {
		return err
	}
	for _, l := range listings {
		fmt.Fprintf(d.Out, "%s %s\n", l.ID, l.Override)
	}
	return nil
}

// ListPersisted prints the override records persisted for the selected bus.
func (d *Deps) ListPersisted() error {
	records, err := d.Store.List(d.Bus)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(d.Out, "%s %s\n", r.DeviceID, r.Driver)
	}
	return nil
}

func (d *Deps) resolve(rawDev string, lenient bool) (sysbus.Device, error) {
	return d.FS.Resolve(rawDev, sysbus.Request{
		Bus:     d.Bus,
		DevPath: d.DevPath,
		Lenient: lenient,
	})
}

func (d *Deps) enumerate(className string, overridesOnly bool) ([]sysbus.Listing, error) {
	class, err := sysbus.ParseClass(className)
	if err != nil {
		return nil, err
	}
	return d.FS.Enumerate(d.Bus, sysbus.EnumOptions{
		OverridesOnly: overridesOnly,
		Class:         class,
	})
}

func (d *Deps) save(dev sysbus.Device, driver string) error {
	if d.NoSave {
		return nil
	}
	return d.Store.Save(persist.Key(dev.Bus, dev.ID), driver)
}
