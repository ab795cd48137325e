// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kmod

import "errors"

var (
	// ErrKernelNotFound is returned if no module tree exists for a kernel
	// version.
	ErrKernelNotFound = errors.New("kernel not found")
	// ErrAmbiguousKernel is returned if no kernel version is requested and
	// more than one kernel is installed.
	ErrAmbiguousKernel = errors.New("more than one kernel installed")
	// ErrModuleNotFound is returned if a requested module is neither in the
	// module index nor built into the kernel.
	ErrModuleNotFound = errors.New("module not found")
	// ErrDependencyCycle is returned if module dependencies form a cycle.
	ErrDependencyCycle = errors.New("dependency cycle")
)
