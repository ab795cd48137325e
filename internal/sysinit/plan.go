// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"cmp"
	"path"
	"slices"
	"strings"

	"github.com/isbm/microhop/internal/blockdev"
	"github.com/isbm/microhop/internal/bootconfig"
)

// MountPlanEntry is a resolved disk ready to be mounted.
type MountPlanEntry struct {
	// Target is the absolute mount point below the sysroot.
	Target string

	MountOptions
}

// MountPlan is the result of resolving the configured disks.
type MountPlan struct {
	// Entries are sorted by target, so parents are mounted before their
	// children.
	Entries []MountPlanEntry

	// RootFSType is the file system type of the first configured root disk.
	// It is empty if no root disk is configured.
	RootFSType string

	// Unresolved are the disks whose device selector did not match any
	// device.
	Unresolved []bootconfig.Disk
}

// ResolveDisks resolves the device selectors of the given disks and computes
// their mount points below sysroot.
func ResolveDisks(disks []bootconfig.Disk, devices blockdev.Devices, sysroot string) MountPlan {
	var plan MountPlan

	for _, disk := range disks {
		if plan.RootFSType == "" && disk.IsRoot() {
			plan.RootFSType = disk.FSType
		}

		source, found := devices.Resolve(disk.Device)
		if !found {
			plan.Unresolved = append(plan.Unresolved, disk)
			continue
		}

		flags := MountFlagNoAtime
		if disk.Mode == bootconfig.ModeReadOnly {
			flags |= MountFlagReadOnly
		}

		plan.Entries = append(plan.Entries, MountPlanEntry{
			Target: path.Join(sysroot, strings.TrimRight(disk.Mountpoint, "/")),
			MountOptions: MountOptions{
				FSType: FSType(disk.FSType),
				Source: source,
				Flags:  flags,
			},
		})
	}

	slices.SortStableFunc(plan.Entries, func(a, b MountPlanEntry) int {
		return cmp.Compare(a.Target, b.Target)
	})

	return plan
}
