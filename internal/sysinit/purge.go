// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// Directories that are kept on purge, both in the current root and in the
// sysroot.
//
//nolint:gochecknoglobals
var purgeExcludes = []string{"/proc", "/sys", "/dev"}

// isExcluded returns true if path must survive purging the root.
func isExcluded(path, sysroot string) bool {
	if path == sysroot {
		return true
	}

	for _, dir := range purgeExcludes {
		if path == dir || path == filepath.Join(sysroot, dir) {
			return true
		}
	}

	return false
}

func isDisposableFSType(magic int64) bool {
	return magic == unix.RAMFS_MAGIC || magic == unix.TMPFS_MAGIC
}

// purge deletes everything below root that lives on the same device as root,
// except the excluded paths and everything below them. The sysroot is given
// relative to root. All entries are tried. The returned error contains all
// failures.
func purge(root, sysroot string) error {
	rootInfo, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("stat root: %w", err)
	}

	purger := &purger{
		root:    root,
		sysroot: filepath.Join("/", sysroot),
		device:  deviceID(rootInfo),
	}

	purger.purgeDir("/")

	return errors.Join(purger.errs...)
}

type purger struct {
	root    string
	sysroot string
	device  uint64
	errs    []error
}

// purgeDir removes the content of dir, which is given relative to the purge
// root.
func (p *purger) purgeDir(dir string) {
	entries, err := os.ReadDir(filepath.Join(p.root, dir))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("read dir: %w", err))
		return
	}

	for _, entry := range entries {
		name := filepath.Join(dir, entry.Name())
		if isExcluded(name, p.sysroot) {
			continue
		}

		path := filepath.Join(p.root, name)

		info, err := os.Lstat(path)
		if err != nil {
			p.errs = append(p.errs, fmt.Errorf("stat: %w", err))
			continue
		}

		// Mount points of other devices are left alone.
		if deviceID(info) != p.device {
			continue
		}

		if info.IsDir() {
			p.purgeDir(name)
		}

		if err := os.Remove(path); err != nil && !ignoreRemoveError(err) {
			p.errs = append(p.errs, fmt.Errorf("remove: %w", err))
		}
	}
}

// ignoreRemoveError is true for directories that still contain entries that
// were left on purpose.
func ignoreRemoveError(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EEXIST) ||
		errors.Is(err, syscall.EBUSY)
}

func deviceID(info os.FileInfo) uint64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(stat.Dev) //nolint:unconvert // Not uint64 on all platforms.
	}

	return 0
}
