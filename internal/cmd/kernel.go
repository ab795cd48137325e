// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"errors"

	"golang.org/x/sys/unix"

	"github.com/isbm/microhop/internal/kmod"
)

// runningRelease is replaced in tests.
//
//nolint:gochecknoglobals
var runningRelease = func() string {
	var uname unix.Utsname
	if err := unix.Uname(&uname); err != nil {
		return ""
	}

	return unix.ByteSliceToString(uname.Release[:])
}

// selectKernel returns the kernel with the given version. Without version,
// the only installed kernel is used. If there are multiple, the running one
// is preferred.
func selectKernel(root, version string) (kmod.Kernel, error) {
	if version != "" {
		return kmod.FindKernel(root, version)
	}

	kernel, err := kmod.FindKernel(root, "")
	if !errors.Is(err, kmod.ErrAmbiguousKernel) {
		return kernel, err
	}

	release := runningRelease()
	if release == "" {
		return kmod.Kernel{}, err
	}

	running, runningErr := kmod.FindKernel(root, release)
	if runningErr != nil {
		return kmod.Kernel{}, err
	}

	return running, nil
}
