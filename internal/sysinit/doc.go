// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sysinit implements the boot sequence of microhop.
//
// Running as PID 1 of the initramfs, the [Sequencer] loads kernel modules,
// mounts the pseudo filesystems, mounts the configured disks below the
// sysroot, deletes the initramfs content, switches the root to the sysroot
// and executes the final init program.
//
// All system interaction goes through [ModuleLoader], [MountService],
// [RootSwitcher] and [DeviceProber]. [System] implements them for the
// running kernel.
package sysinit
