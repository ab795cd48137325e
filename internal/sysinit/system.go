// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"fmt"
	"os"

	"github.com/isbm/microhop/internal/blockdev"
)

// ModuleLoader loads kernel modules.
type ModuleLoader interface {
	// Load loads the module with the given name. It returns an error
	// wrapping [ErrModuleLoaded] if the module is already loaded.
	Load(name string) error
}

// MountService mounts file systems.
type MountService interface {
	// Mount mounts a file system at target. The target directory is created
	// if it does not exist.
	Mount(target string, opts MountOptions) error

	// Unmount unmounts the file system at target.
	Unmount(target string) error

	// Move moves the mount at source to target.
	Move(source, target string) error
}

// RootSwitcher replaces the initramfs with the final root.
type RootSwitcher interface {
	// Purge deletes all files of the current root, except the sysroot and
	// the pseudo file systems.
	Purge(sysroot string) error

	// SwitchRoot makes the mount at newRoot the root of the process.
	SwitchRoot(newRoot string, fsType FSType) error

	// Exec replaces the current process with the program at path. It only
	// returns on failure.
	Exec(path string) error
}

// DeviceProber lists partitions.
type DeviceProber interface {
	Probe() (blockdev.Devices, error)
}

// System implements [MountService] and [RootSwitcher] with system calls.
type System struct{}

var (
	_ MountService = System{}
	_ RootSwitcher = System{}
)

// Mount implements [MountService].
func (System) Mount(target string, opts MountOptions) error {
	if err := os.MkdirAll(target, defaultDirMode); err != nil {
		return fmt.Errorf("mkdir %s: %w", target, err)
	}

	return mount(target, opts.Source, opts.FSType, opts.Flags, opts.Data)
}

// Unmount implements [MountService].
func (System) Unmount(target string) error {
	return unmount(target)
}

// Move implements [MountService].
func (System) Move(source, target string) error {
	if err := os.MkdirAll(target, defaultDirMode); err != nil {
		return fmt.Errorf("mkdir %s: %w", target, err)
	}

	return moveMount(source, target)
}

// Purge implements [RootSwitcher]. It refuses to delete anything if "/" is
// not a ramfs or tmpfs.
func (System) Purge(sysroot string) error {
	magic, err := statfsType("/")
	if err != nil {
		return err
	}

	if !isDisposableFSType(magic) {
		return fmt.Errorf("%w: magic %#x", ErrRootNotDisposable, magic)
	}

	return purge("/", sysroot)
}

// SwitchRoot implements [RootSwitcher].
func (System) SwitchRoot(newRoot string, fsType FSType) error {
	return switchRoot(newRoot, fsType)
}

// Exec implements [RootSwitcher].
func (System) Exec(path string) error {
	return execute(path)
}

// RunningKernelModules returns a [ModuleLoader] for the module tree of the
// running kernel.
func RunningKernelModules() (*KernelModules, error) {
	release, err := kernelRelease()
	if err != nil {
		return nil, err
	}

	return &KernelModules{Dir: ModulesDir(release)}, nil
}
