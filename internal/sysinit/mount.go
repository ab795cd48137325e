// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import "golang.org/x/sys/unix"

// FSType is a file system type.
type FSType string

// Pseudo file system types and the RAM backed types the initramfs may live
// in.
const (
	FSTypeDevTmp FSType = "devtmpfs"
	FSTypeProc   FSType = "proc"
	FSTypeSys    FSType = "sysfs"
	FSTypeRamfs  FSType = "ramfs"
	FSTypeTmp    FSType = "tmpfs"

	defaultDirMode = 0o755
)

// MountFlags are flags as defined by mount(2).
type MountFlags uintptr

// Mount flags used for disks.
const (
	MountFlagReadOnly MountFlags = unix.MS_RDONLY
	MountFlagNoAtime  MountFlags = unix.MS_NOATIME
)

// MountOptions contains parameters for a mount point.
type MountOptions struct {
	// FSType is the files system type.
	FSType FSType

	// Source is the source device to mount. Can be empty for pseudo file
	// systems. If empty it is set to the string of the type.
	Source string

	// Flags are optional mount flags.
	Flags MountFlags

	// Data are optional additional parameters that depend of the [FSType]
	// used.
	Data string
}

// PseudoFilesystem is a kernel provided file system mounted before disks are
// probed and moved into the new root before switching to it.
type PseudoFilesystem struct {
	Target string
	MountOptions
}

// DefaultPseudoFilesystems returns the pseudo file systems in the order they
// are mounted: proc, sysfs, devtmpfs. Every call returns a new slice.
func DefaultPseudoFilesystems() []PseudoFilesystem {
	return []PseudoFilesystem{
		{Target: "/proc", MountOptions: MountOptions{FSType: FSTypeProc, Source: "none"}},
		{Target: "/sys", MountOptions: MountOptions{FSType: FSTypeSys, Source: "none"}},
		{Target: "/dev", MountOptions: MountOptions{FSType: FSTypeDevTmp, Source: "devtmpfs"}},
	}
}
