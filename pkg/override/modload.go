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

package override

import (
	"os/exec"
	"strings"

	"github.com/ligato/cn-infra/logging"
	"github.com/pkg/errors"
)

// ModuleLoader makes a driver module available to the kernel.
type ModuleLoader interface {
	Load(name string) error
}

// Modprobe loads driver modules by executing modprobe.
type Modprobe struct {
	Log logging.Logger
}

// Load runs modprobe for the given driver name.
func (m *Modprobe) Load(name string) error {
	m.Log.Debugf("Executing modprobe %s", name)
	output, err := exec.Command("modprobe", name).CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "modprobe %s: %s", name, strings.TrimSpace(string(output)))
	}
	return nil
}
