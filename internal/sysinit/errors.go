// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import "errors"

var (
	// ErrNotPidOne is returned if the process is expected to be run as PID 1
	// but is not.
	ErrNotPidOne = errors.New("process does not have ID 1")
	// ErrPanic is returned if a boot step panicked.
	ErrPanic = errors.New("boot step panicked")
	// ErrModuleLoaded is returned if a kernel module is already loaded.
	ErrModuleLoaded = errors.New("module already loaded")
	// ErrModuleNotFound is returned if no file exists for a module name.
	ErrModuleNotFound = errors.New("module not found")
	// ErrNoRoot is returned if no root disk is configured or it could not
	// be mounted.
	ErrNoRoot = errors.New("no root filesystem mounted")
	// ErrRootNotDisposable is returned if the current root is not a RAM
	// backed filesystem and must not be deleted.
	ErrRootNotDisposable = errors.New("root is not a ramfs or tmpfs")
	// ErrExecReturned is returned if the init program could not replace the
	// current process.
	ErrExecReturned = errors.New("exec returned")
)
