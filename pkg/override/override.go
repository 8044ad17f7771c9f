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

// Package override drives a device through the unbind / override-write /
// reprobe sequence that changes which kernel driver claims it.
package override

import (
	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"

	"github.com/contiv/drvctl/pkg/persist"
	"github.com/contiv/drvctl/pkg/sysbus"
)

const (
	// DefaultPassthrough is the driver whose dynamic-ID table is fed with
	// the device identity before the override is set, so that it can claim
	// devices it has no built-in match for.
	DefaultPassthrough = "vfio-pci"

	// NoneDriver is the reserved driver name that prevents any driver from
	// binding: the kernel matches the literal override value "none" against
	// no driver. No module is loaded and no reprobe is issued for it.
	NoneDriver = "none"
)

// ErrNothingPersisted is returned by LoadPersisted when no record exists for
// the device. It signals "nothing to do" rather than a failure.
var ErrNothingPersisted = errors.New("no override persisted for the device")

// Controller executes override transitions on single devices. Each call is
// one full transition attempt; a failure in a late step leaves the device
// unbound with no override and is not retried.
type Controller struct {
	FS     sysbus.FS
	Loader ModuleLoader
	Log    logging.Logger

	// Passthrough is the driver name given dynamic-ID registration,
	// DefaultPassthrough when empty.
	Passthrough string

	// NoProbe suppresses the reprobe & verification step.
	NoProbe bool
}

// Set drives the device to the given driver override. An empty driver name
// clears the override. The sequence is: check override support, make sure
// the driver is available, unbind, write the override, reprobe and verify
// that a driver claimed the device.
func (c *Controller) Set(dev sysbus.Device, driver string) error {
	if !dev.Overridable() {
		return &sysbus.NotOverridableError{Dev: dev}
	}

	if driver != "" && driver != NoneDriver && !c.FS.HasDriver(dev.Bus, driver) {
		c.Log.Debugf("Driver %s not present on bus %s, loading module", driver, dev.Bus)
		if err := c.Loader.Load(driver); err != nil {
			return errors.Wrapf(err, "cannot load module for driver %s", driver)
		}
	}

	if current, bound, err := dev.Driver(); err != nil {
		return err
	} else if bound {
		c.Log.Debugf("Unbinding %s from driver %s", dev.ID, current)
		if err := dev.Unbind(); err != nil {
			return errors.Wrapf(err, "cannot unbind %s from driver %s", dev.ID, current)
		}
	}

	if driver == c.passthrough() {
		c.registerPassthroughID(dev, driver)
	}

	c.Log.Debugf("Writing driver override %q for %s", driver, dev.ID)
	if err := dev.SetOverride(driver); err != nil {
		return errors.Wrapf(err, "cannot write driver override of %s", dev.ID)
	}

	if driver != NoneDriver && !c.NoProbe {
		return c.reprobe(dev)
	}
	return nil
}

// Unset clears the device's override, letting the kernel rebind the default
// driver on reprobe.
func (c *Controller) Unset(dev sysbus.Device) error {
	return c.Set(dev, "")
}

// LoadPersisted re-applies the override persisted for the device, typically
// after the device reappeared on the bus. Returns ErrNothingPersisted when
// there is no record, leaving the device untouched.
func (c *Controller) LoadPersisted(dev sysbus.Device, store *persist.Store) error {
	driver, found, err := store.Load(persist.Key(dev.Bus, dev.ID))
	if err != nil {
		return err
	}
	if !found {
		return ErrNothingPersisted
	}
	c.Log.Debugf("Re-applying persisted override %s for %s", driver, dev.ID)
	return c.Set(dev, driver)
}

// reprobe triggers driver matching for the device and verifies that some
// driver actually claimed it, turning an otherwise silent kernel failure
// into an error.
func (c *Controller) reprobe(dev sysbus.Device) error {
	c.Log.Debugf("Reprobing %s", dev.ID)
	if err := c.FS.Probe(dev.Bus, dev.ID); err != nil {
		return errors.Wrapf(err, "cannot trigger reprobe of %s", dev.ID)
	}
	if _, bound, err := dev.Driver(); err != nil {
		return err
	} else if !bound {
		return errors.Errorf("no driver bound %s after reprobe", dev.ID)
	}
	return nil
}

// registerPassthroughID feeds the device identity into the passthrough
// driver's dynamic-ID table. Failures are ignored: the identity is commonly
// registered already.
func (c *Controller) registerPassthroughID(dev sysbus.Device, driver string) {
	vendor, device, err := dev.IDPair()
	if err != nil {
		c.Log.Debugf("Cannot read identity of %s: %v", dev.ID, err)
		return
	}
	if err := c.FS.RegisterID(dev.Bus, driver, vendor, device); err != nil {
		c.Log.Debugf("Dynamic-ID registration of %s %s with %s failed: %v",
			vendor, device, driver, err)
	}
}

func (c *Controller) passthrough() string {
	if c.Passthrough == "" {
		return DefaultPassthrough
	}
	return c.Passthrough
}
