// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootconfig

import (
	"fmt"
	"strings"
)

// Mode is the access mode a disk is mounted with.
type Mode string

// Supported mount modes.
const (
	ModeReadWrite Mode = "rw"
	ModeReadOnly  Mode = "ro"
)

func parseMode(s string) (Mode, error) {
	switch mode := Mode(strings.TrimSpace(s)); mode {
	case ModeReadWrite, ModeReadOnly:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Disk describes a disk to mount below the sysroot.
type Disk struct {
	// Device selects the block device. It is either a device path, a
	// filesystem UUID or a filesystem label.
	Device string

	// FSType is the filesystem type passed to mount(2).
	FSType string

	// Mountpoint is the path relative to the final root.
	Mountpoint string

	// Mode is the access mode.
	Mode Mode
}

// ParseDisk parses the value of a disk entry for the given device selector.
func ParseDisk(device, value string) (Disk, error) {
	fields := strings.Split(value, ",")

	disk := Disk{
		Device: device,
		Mode:   ModeReadWrite,
	}

	switch len(fields) {
	case 3:
		mode, err := parseMode(fields[2])
		if err != nil {
			return Disk{}, fmt.Errorf("disk %s: %w", device, err)
		}

		disk.Mode = mode

		fallthrough
	case 2:
		disk.FSType = strings.TrimSpace(fields[0])
		disk.Mountpoint = strings.TrimSpace(fields[1])
	default:
		return Disk{}, fmt.Errorf("%w: %s: %q", ErrInvalidDiskOptions, device, value)
	}

	return disk, nil
}

// Options returns the disk value as written in the configuration file.
func (d Disk) Options() string {
	mode := d.Mode
	if mode == "" {
		mode = ModeReadWrite
	}

	return strings.Join([]string{d.FSType, d.Mountpoint, string(mode)}, ",")
}

// IsRoot returns true if the disk is mounted as the final root.
func (d Disk) IsRoot() bool {
	return strings.TrimRight(d.Mountpoint, "/") == ""
}
