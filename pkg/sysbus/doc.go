// Package sysbus provides access to the per-device attribute files of a
// kernel bus-device filesystem (e.g. /sys/bus/pci): device resolution,
// enumeration, and the low-level reads & writes used to drive driver
// override, unbind and reprobe.
package sysbus
