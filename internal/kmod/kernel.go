// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kmod

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ModulesDir is the location of kernel module trees relative to a system
// root.
const ModulesDir = "lib/modules"

// Kernel is an installed kernel module tree.
type Kernel struct {
	// Version is the kernel release as reported by uname -r.
	Version string

	// Dir is the module tree directory.
	Dir string
}

// Kernels returns all kernels installed below root in lexicographic order of
// their versions.
func Kernels(root string) ([]Kernel, error) {
	dir := filepath.Join(root, ModulesDir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read kernels: %w", err)
	}

	var kernels []Kernel

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		// Some distributions symlink module trees, so check the target.
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			continue
		}

		kernels = append(kernels, Kernel{
			Version: entry.Name(),
			Dir:     path,
		})
	}

	return kernels, nil
}

// FindKernel returns the kernel with the given version installed below
// root. If version is empty, the only installed kernel is returned.
func FindKernel(root, version string) (Kernel, error) {
	kernels, err := Kernels(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Kernel{}, fmt.Errorf("%w: %s", ErrKernelNotFound, root)
		}

		return Kernel{}, err
	}

	if version == "" {
		switch len(kernels) {
		case 0:
			return Kernel{}, fmt.Errorf("%w: %s", ErrKernelNotFound, root)
		case 1:
			return kernels[0], nil
		default:
			return Kernel{}, fmt.Errorf("%w: choose one of %s", ErrAmbiguousKernel, versions(kernels))
		}
	}

	for _, kernel := range kernels {
		if kernel.Version == version {
			return kernel, nil
		}
	}

	return Kernel{}, fmt.Errorf("%w: %s", ErrKernelNotFound, version)
}

func versions(kernels []Kernel) string {
	names := make([]string, len(kernels))
	for idx, kernel := range kernels {
		names[idx] = kernel.Version
	}

	return strings.Join(names, ", ")
}
