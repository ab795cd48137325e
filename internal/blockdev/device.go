// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package blockdev

import (
	"strings"

	"github.com/google/uuid"
)

// DevicePrefix is the prefix of device path selectors.
const DevicePrefix = "/dev"

// Device is a partition with the metadata found in its superblock. Fields
// the superblock does not provide are empty.
type Device struct {
	Path   string
	UUID   string
	Label  string
	FSType string
}

// Devices is a list of partitions.
type Devices []Device

// ByUUID returns the first device with the given filesystem UUID.
func (d Devices) ByUUID(id string) (Device, bool) {
	return d.find(func(dev Device) bool {
		return id != "" && strings.EqualFold(dev.UUID, id)
	})
}

// ByLabel returns the first device with the given filesystem label.
func (d Devices) ByLabel(label string) (Device, bool) {
	return d.find(func(dev Device) bool {
		return label != "" && dev.Label == label
	})
}

// ByPath returns the device with the given path.
func (d Devices) ByPath(path string) (Device, bool) {
	return d.find(func(dev Device) bool {
		return dev.Path == path
	})
}

func (d Devices) find(match func(Device) bool) (Device, bool) {
	for _, dev := range d {
		if match(dev) {
			return dev, true
		}
	}

	return Device{}, false
}

// Resolve returns the device path for the given selector.
//
// A selector with UUID syntax is looked up by UUID in its canonical form, so
// the forms without dashes, with braces and with "urn:uuid:" prefix match
// too. A selector starting with
// [DevicePrefix] is returned unchanged without lookup. Anything else is a
// label. Identifiers that are not RFC 4122 UUIDs, like FAT volume serials,
// are tried as UUID if no label matches.
func (d Devices) Resolve(selector string) (string, bool) {
	if id, err := uuid.Parse(selector); err == nil {
		dev, found := d.ByUUID(id.String())
		return dev.Path, found
	}

	if strings.HasPrefix(selector, DevicePrefix) {
		return selector, true
	}

	if dev, found := d.ByLabel(selector); found {
		return dev.Path, true
	}

	dev, found := d.ByUUID(selector)

	return dev.Path, found
}
