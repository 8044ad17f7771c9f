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
	"io/ioutil"
	"os"

	"github.com/ghodss/yaml"
	"github.com/pkg/errors"

	"github.com/contiv/drvctl/pkg/override"
	"github.com/contiv/drvctl/pkg/persist"
)

const (
	// BusEnvVar can preselect the bus to operate on.
	BusEnvVar = "DRVCTL_BUS"

	// DevPathEnvVar carries the kernel device path when the tool is invoked
	// from a device-event hook, bypassing device lookup.
	DevPathEnvVar = "DEVPATH"

	// DefaultBus is used when neither flags, config nor environment select one.
	DefaultBus = "pci"
)

// Config represents the tool configuration. All fields are optional; it can
// be loaded from an external YAML config file via the -config flag.
type Config struct {
	Bus        string
	StateDir   string
	VFIODriver string
	NoProbe    bool
	NoSave     bool
}

// LoadConfig reads the YAML config file and fills in defaults for fields
// left unset. An empty file name yields the pure defaults.
func LoadConfig(fileName string) (*Config, error) {
	config := &Config{}
	if fileName != "" {
		yamlFile, err := ioutil.ReadFile(fileName)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read config file %s", fileName)
		}
		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, errors.Wrapf(err, "cannot parse config file %s", fileName)
		}
	}
	config.ApplyDefaults()
	return config, nil
}

// ApplyDefaults stores default values to undefined configuration fields.
func (c *Config) ApplyDefaults() {
	if c.Bus == "" {
		c.Bus = os.Getenv(BusEnvVar)
	}
	if c.Bus == "" {
		c.Bus = DefaultBus
	}
	if c.StateDir == "" {
		c.StateDir = persist.DefaultDir
	}
	if c.VFIODriver == "" {
		c.VFIODriver = override.DefaultPassthrough
	}
}
