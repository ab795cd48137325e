// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mount(path, source string, fsType FSType, flags MountFlags, data string) error {
	if source == "" {
		source = string(fsType)
	}

	if err := unix.Mount(source, path, string(fsType), uintptr(flags), data); err != nil {
		return fmt.Errorf("mount %s: %w", path, err)
	}

	return nil
}

func moveMount(source, target string) error {
	if err := unix.Mount(source, target, "", unix.MS_MOVE, ""); err != nil {
		return fmt.Errorf("move mount %s to %s: %w", source, target, err)
	}

	return nil
}

func unmount(path string) error {
	if err := unix.Unmount(path, 0); err != nil {
		return fmt.Errorf("unmount %s: %w", path, err)
	}

	return nil
}

func initModule(data []byte, params string) error {
	if err := unix.InitModule(data, params); err != nil {
		return fmt.Errorf("init_module: %w", moduleError(err))
	}

	return nil
}

func finitModule(fd int, params string, flags int) error {
	if err := unix.FinitModule(fd, params, flags); err != nil {
		// If finit_module is not available, EOPNOTSUPP is returned.
		if errors.Is(err, unix.EOPNOTSUPP) {
			err = errors.ErrUnsupported
		}

		return fmt.Errorf("finit_module: %w", moduleError(err))
	}

	return nil
}

func moduleError(err error) error {
	if errors.Is(err, unix.EEXIST) {
		return fmt.Errorf("%w: %w", ErrModuleLoaded, err)
	}

	return err
}

func kernelRelease() (string, error) {
	var uname unix.Utsname

	if err := unix.Uname(&uname); err != nil {
		return "", fmt.Errorf("uname: %w", err)
	}

	return unix.ByteSliceToString(uname.Release[:]), nil
}

func statfsType(path string) (int64, error) {
	var stat unix.Statfs_t

	if err := unix.Statfs(path, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}

	return int64(stat.Type), nil
}

// switchRoot moves the mount at newRoot onto "/" and changes the root
// directory of the process to it.
func switchRoot(newRoot string, fsType FSType) error {
	if err := unix.Chdir(newRoot); err != nil {
		return fmt.Errorf("chdir %s: %w", newRoot, err)
	}

	if err := unix.Mount(".", "/", string(fsType), unix.MS_MOVE, ""); err != nil {
		return fmt.Errorf("move mount %s to /: %w", newRoot, err)
	}

	if err := unix.Chroot("."); err != nil {
		return fmt.Errorf("chroot: %w", err)
	}

	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir /: %w", err)
	}

	return nil
}

func execute(path string) error {
	err := unix.Exec(path, []string{path}, os.Environ())

	return fmt.Errorf("%w: exec %s: %w", ErrExecReturned, path, err)
}

// IsPidOne returns true if the running process has PID 1.
func IsPidOne() bool {
	return os.Getpid() == 1
}
