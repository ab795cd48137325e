// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package kmod

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// Index files written by depmod(8).
const (
	depFileName     = "modules.dep"
	builtinFileName = "modules.builtin"
)

// Module is a kernel module resolved for a specific kernel.
type Module struct {
	// Name is the normalized module name.
	Name string

	// Path is the module file path relative to the kernel module tree.
	Path string

	// Deps are the names of the modules this module depends on.
	Deps []string
}

// Resolver resolves kernel modules by name.
type Resolver interface {
	// Resolve returns the modules with the given names and all their
	// transitive dependencies. Each module occurs once and every module
	// comes after all of its dependencies.
	Resolve(kernelVersion string, names []string) ([]Module, error)
}

// ModuleName returns the normalized module name for the given module file
// name or path. Dashes and underscores are equivalent in module names, so
// dashes are replaced.
func ModuleName(file string) string {
	name := path.Base(file)
	if idx := strings.IndexByte(name, '.'); idx >= 0 {
		name = name[:idx]
	}

	return strings.ReplaceAll(name, "-", "_")
}

// DepResolver is a [Resolver] that uses the modules.dep index of the kernels
// installed below Root.
type DepResolver struct {
	// Root is the system root the kernels are installed in.
	Root string
}

var _ Resolver = (*DepResolver)(nil)

// Resolve implements [Resolver].
//
// Names may be module names or module paths relative to the kernel module
// tree. Modules that are built into the kernel are skipped.
func (r *DepResolver) Resolve(kernelVersion string, names []string) ([]Module, error) {
	kernel, err := FindKernel(r.Root, kernelVersion)
	if err != nil {
		return nil, err
	}

	index, err := readIndex(kernel.Dir)
	if err != nil {
		return nil, err
	}

	return index.closure(names)
}

type depIndex struct {
	modules map[string]Module
	paths   map[string]string
	builtin map[string]bool
}

func readIndex(kernelDir string) (*depIndex, error) {
	file, err := os.Open(filepath.Join(kernelDir, depFileName))
	if err != nil {
		return nil, fmt.Errorf("open module index: %w", err)
	}
	defer file.Close()

	index, err := parseDeps(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", depFileName, err)
	}

	builtin, err := os.Open(filepath.Join(kernelDir, builtinFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return index, nil
		}

		return nil, fmt.Errorf("open builtin index: %w", err)
	}
	defer builtin.Close()

	if err := index.parseBuiltin(builtin); err != nil {
		return nil, fmt.Errorf("parse %s: %w", builtinFileName, err)
	}

	return index, nil
}

// parseDeps parses modules.dep content. Each line has the format
// "path: [dependency path]...". Dependencies are listed in reverse load
// order.
func parseDeps(r io.Reader) (*depIndex, error) {
	index := &depIndex{
		modules: make(map[string]Module),
		paths:   make(map[string]string),
		builtin: make(map[string]bool),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		modPath, depList, found := strings.Cut(line, ":")
		if !found {
			return nil, fmt.Errorf("malformed line: %q", line)
		}

		depPaths := strings.Fields(depList)
		slices.Reverse(depPaths)

		deps := make([]string, len(depPaths))
		for idx, depPath := range depPaths {
			deps[idx] = ModuleName(depPath)
		}

		name := ModuleName(modPath)
		index.modules[name] = Module{
			Name: name,
			Path: modPath,
			Deps: deps,
		}
		index.paths[modPath] = name
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	return index, nil
}

func (i *depIndex) parseBuiltin(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			i.builtin[ModuleName(line)] = true
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	return nil
}

func (i *depIndex) lookup(name string) (string, bool) {
	if strings.Contains(name, "/") {
		resolved, exists := i.paths[strings.TrimPrefix(name, "/")]
		return resolved, exists
	}

	name = ModuleName(name)
	_, exists := i.modules[name]

	return name, exists
}

type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// closure returns the dependency ordered closure of the given modules. It
// is a depth first post-order traversal, so dependencies are emitted before
// dependents and requested modules keep their relative order where possible.
func (i *depIndex) closure(names []string) ([]Module, error) {
	var (
		result []Module
		states = make(map[string]visitState)
	)

	var visit func(name string, chain []string) error

	visit = func(name string, chain []string) error {
		switch states[name] {
		case visited:
			return nil
		case visiting:
			return fmt.Errorf("%w: %s", ErrDependencyCycle, strings.Join(append(chain, name), " -> "))
		}

		module, exists := i.modules[name]
		if !exists {
			return fmt.Errorf("%w: %s (required by %s)", ErrModuleNotFound, name, chain[len(chain)-1])
		}

		states[name] = visiting

		for _, dep := range module.Deps {
			if err := visit(dep, append(chain, name)); err != nil {
				return err
			}
		}

		states[name] = visited
		result = append(result, module)

		return nil
	}

	for _, requested := range names {
		name, exists := i.lookup(requested)
		if !exists {
			if i.builtin[name] {
				continue
			}

			return nil, fmt.Errorf("%w: %s", ErrModuleNotFound, requested)
		}

		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}

	return result, nil
}
