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

package cmdimpl

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/ligato/cn-infra/logging/logrus"
	"github.com/onsi/gomega"

	"github.com/contiv/drvctl/mock/sysfs"
	"github.com/contiv/drvctl/pkg/override"
	"github.com/contiv/drvctl/pkg/persist"
	"github.com/contiv/drvctl/pkg/sysbus"
)

// stubLoader registers the requested driver on the mock bus, standing in
// for modprobe.
type stubLoader struct {
	mock *sysfs.MockFS
}

func (s *stubLoader) Load(name string) error {
	return s.mock.AddDriver("pci", name)
}

type cmdTestVars struct {
	mock *sysfs.MockFS
	deps *Deps
	out  *bytes.Buffer
}

func setupCommands(t *testing.T) (*cmdTestVars, func()) {
	root, err := ioutil.TempDir("", "cmdimpl-test")
	gomega.Expect(err).To(gomega.BeNil())

	logger := logrus.DefaultLogger()
	fs := sysbus.NewFS(filepath.Join(root, "sys"))
	mock := sysfs.NewMockFS(filepath.Join(root, "sys"))
	store := persist.NewStore(filepath.Join(root, "drvctl.d"), logger)
	out := &bytes.Buffer{}

	v := &cmdTestVars{
		mock: mock,
		out:  out,
		deps: &Deps{
			FS: fs,
			Ctl: &override.Controller{
				FS:     fs,
				Loader: &stubLoader{mock: mock},
				Log:    logger,
			},
			Store: store,
			Log:   logger,
			Out:   out,
			Bus:   "pci",
		},
	}

	gomega.Expect(mock.AddBus("pci")).To(gomega.BeNil())
	gomega.Expect(mock.AddDriver("pci", "e1000e")).To(gomega.BeNil())
	_, err = mock.AddDevice(sysfs.DeviceSpec{
		Bus: "pci", ID: "0000:03:00.0",
		Class: "0x020000", Vendor: "0x8086", Device: "0x10d3",
		Driver: "e1000e", Overridable: true,
	})
	gomega.Expect(err).To(gomega.BeNil())
	return v, func() { os.RemoveAll(root) }
}

// TestOverrideLifecycle walks the whole set-override / get-driver /
// unset-override sequence on a NIC initially owned by e1000e.
func TestOverrideLifecycle(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()

	// the short id is canonicalized to domain 0 everywhere, including
	// the persistence key
	gomega.Expect(v.deps.SetOverride("03:00.0", "vfio-pci")).To(gomega.BeNil())
	gomega.Expect(v.mock.Content("bus", "pci", "drivers", "e1000e", "unbind")).
		To(gomega.Equal("0000:03:00.0"))

	driver, found, err := v.deps.Store.Load("pci-0000:03:00.0")
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(found).To(gomega.BeTrue())
	gomega.Expect(driver).To(gomega.Equal("vfio-pci"))

	// simulate the kernel honoring the override on reprobe
	gomega.Expect(v.mock.Bind("pci", "0000:03:00.0", "vfio-pci")).To(gomega.BeNil())
	gomega.Expect(v.deps.GetDriver("03:00.0")).To(gomega.BeNil())
	gomega.Expect(v.out.String()).To(gomega.Equal("vfio-pci\n"))

	// unset clears the override and deletes the record
	gomega.Expect(v.deps.UnsetOverride("03:00.0")).To(gomega.BeNil())
	_, found, err = v.deps.Store.Load("pci-0000:03:00.0")
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(found).To(gomega.BeFalse())

	listings, err := v.deps.FS.Enumerate("pci", sysbus.EnumOptions{})
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(listings[0].HasOverride).To(gomega.BeFalse())
}

func TestSetOverrideNoSave(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()
	v.deps.NoSave = true

	gomega.Expect(v.deps.SetOverride("0000:03:00.0", "vfio-pci")).To(gomega.BeNil())
	_, found, err := v.deps.Store.Load("pci-0000:03:00.0")
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(found).To(gomega.BeFalse())
}

func TestUnsetOverrideOnGoneDevice(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()

	// a record for a device that is no longer on the bus
	gomega.Expect(v.deps.Store.Save("pci-0000:09:00.0", "vfio-pci")).To(gomega.BeNil())

	gomega.Expect(v.deps.UnsetOverride("0000:09:00.0")).To(gomega.BeNil())
	_, found, err := v.deps.Store.Load("pci-0000:09:00.0")
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(found).To(gomega.BeFalse())
}

func TestLoadOverrideNothingPersisted(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()

	err := v.deps.LoadOverride("0000:03:00.0")
	gomega.Expect(err).To(gomega.Equal(override.ErrNothingPersisted))

	// binding unchanged
	v.out.Reset()
	gomega.Expect(v.deps.GetDriver("0000:03:00.0")).To(gomega.BeNil())
	gomega.Expect(v.out.String()).To(gomega.Equal("e1000e\n"))
}

func TestLoadOverrideReapplies(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()

	gomega.Expect(v.deps.Store.Save("pci-0000:03:00.0", "vfio-pci")).To(gomega.BeNil())
	gomega.Expect(v.deps.LoadOverride("03:00.0")).To(gomega.BeNil())

	dev, err := v.deps.FS.Resolve("0000:03:00.0", sysbus.Request{Bus: "pci"})
	gomega.Expect(err).To(gomega.BeNil())
	value, _, err := dev.Override()
	gomega.Expect(err).To(gomega.BeNil())
	gomega.Expect(value).To(gomega.Equal("vfio-pci"))
}

func TestGetDriverNotBound(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()

	gomega.Expect(v.mock.Unbind("pci", "0000:03:00.0")).To(gomega.BeNil())
	err := v.deps.GetDriver("0000:03:00.0")
	gomega.Expect(err).To(gomega.Not(gomega.BeNil()))
	_, isNotBound := err.(*sysbus.NotBoundError)
	gomega.Expect(isNotBound).To(gomega.BeTrue())
}

func TestListDevicesOutput(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()

	_, err := v.mock.AddDevice(sysfs.DeviceSpec{
		Bus: "pci", ID: "0000:04:00.0",
		Class: "0x010601", Overridable: true, Override: "none",
	})
	gomega.Expect(err).To(gomega.BeNil())

	gomega.Expect(v.deps.ListDevices("")).To(gomega.BeNil())
	gomega.Expect(v.out.String()).To(gomega.Equal(
		"0000:03:00.0 e1000e\n" +
			"0000:04:00.0 (none) [*]\n"))

	v.out.Reset()
	gomega.Expect(v.deps.ListDevices("storage")).To(gomega.BeNil())
	gomega.Expect(v.out.String()).To(gomega.Equal("0000:04:00.0 (none) [*]\n"))

	err = v.deps.ListDevices("quantum")
	gomega.Expect(err).To(gomega.Not(gomega.BeNil()))
	gomega.Expect(err.Error()).To(gomega.ContainSubstring("unknown device class"))
}

func TestListOverridesOutput(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()

	_, err := v.mock.AddDevice(sysfs.DeviceSpec{
		Bus: "pci", ID: "0000:04:00.0",
		Class: "0x010601", Overridable: true, Override: "vfio-pci",
	})
	gomega.Expect(err).To(gomega.BeNil())

	gomega.Expect(v.deps.ListOverrides("")).To(gomega.BeNil())
	gomega.Expect(v.out.String()).To(gomega.Equal("0000:04:00.0 vfio-pci\n"))
}

func TestListPersistedOutput(t *testing.T) {
	gomega.RegisterTestingT(t)
	v, cleanup := setupCommands(t)
	defer cleanup()

	gomega.Expect(v.deps.Store.Save("pci-0000:03:00.0", "vfio-pci")).To(gomega.BeNil())
	gomega.Expect(v.deps.Store.Save("platform-fd500000.pcie", "vfio-platform")).To(gomega.BeNil())

	gomega.Expect(v.deps.ListPersisted()).To(gomega.BeNil())
	gomega.Expect(v.out.String()).To(gomega.Equal("0000:03:00.0 vfio-pci\n"))
}
