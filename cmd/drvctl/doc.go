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

// Drvctl inspects & controls which kernel driver is bound to a hardware
// device, by writing to the per-device driver-override attribute exposed by
// the bus-device filesystem (e.g. /sys/bus/pci). It is mainly used to hand
// a device over to the VFIO passthrough driver without a reboot.
//
// The chosen override is persisted as a flat file per device, so that a
// device-event hook invoking "drvctl load-override" can re-apply it after
// the device re-enumerates (reboot, hot-unplug/replug).
//
// The override change itself is a fixed sequence: unbind the current
// driver, make sure the target driver module is available, write the
// override attribute, reprobe the device, and verify that a driver actually
// claimed it. The sequence is not transactional; a failure in a late step
// leaves the device unbound with no override set.
package main
