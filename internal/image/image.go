// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package image creates the directory tree of a microhop initramfs.
package image

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/samber/lo"

	"github.com/isbm/microhop/internal/bootconfig"
	"github.com/isbm/microhop/internal/initprog"
	"github.com/isbm/microhop/internal/kmod"
)

// Locations inside the image.
const (
	InitBinaryPath = "bin/microhop"
	InitLinkPath   = "init"
)

const (
	dirMode    = 0o755
	binaryMode = 0o755
	moduleMode = 0o644
)

// ErrDestinationExists is returned if the destination directory exists
// already.
var ErrDestinationExists = fmt.Errorf("destination exists: %w", fs.ErrExist)

// Spec describes the image to build.
type Spec struct {
	// Kernel is the kernel the modules are taken from.
	Kernel kmod.Kernel

	// Profile lists the requested modules, the disks and the remaining boot
	// settings.
	Profile *bootconfig.Config

	// Resolver resolves the requested modules with their dependencies.
	Resolver kmod.Resolver

	// Init is the path of the microhop binary to put into the image. If
	// empty, the embedded binary for Arch is used.
	Init string

	// Arch is the architecture of the embedded binary. Defaults to the
	// architecture microgen is built for.
	Arch string

	// Logger defaults to [slog.Default].
	Logger *slog.Logger
}

func (s *Spec) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}

	return s.Logger
}

func (s *Spec) openInit() (io.ReadCloser, error) {
	if s.Init != "" {
		file, err := os.Open(s.Init)
		if err != nil {
			return nil, fmt.Errorf("open init binary: %w", err)
		}

		return file, nil
	}

	arch := s.Arch
	if arch == "" {
		arch = runtime.GOARCH
	}

	file, err := initprog.For(arch)
	if err != nil {
		return nil, fmt.Errorf("embedded init binary: %w", err)
	}

	return file, nil
}

// Build creates the image tree in destDir, which must not exist.
//
// Modules are resolved and the init binary is opened before anything is
// written. Failures after that leave the partially written tree behind.
func Build(spec Spec, destDir string) error {
	if _, err := os.Lstat(destDir); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, destDir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("check destination: %w", err)
	}

	modules, err := spec.Resolver.Resolve(spec.Kernel.Version, spec.Profile.Modules)
	if err != nil {
		return fmt.Errorf("resolve modules: %w", err)
	}

	initBinary, err := spec.openInit()
	if err != nil {
		return err
	}
	defer initBinary.Close()

	builder := &builder{
		spec:       spec,
		dest:       destDir,
		modulesDir: filepath.Join(kmod.ModulesDir, spec.Kernel.Version),
	}

	if err := builder.createDirs(); err != nil {
		return err
	}

	if err := builder.writeInit(initBinary); err != nil {
		return err
	}

	if err := builder.copyModules(modules); err != nil {
		return err
	}

	return builder.writeConfig(modules)
}

type builder struct {
	spec       Spec
	dest       string
	modulesDir string
}

func (b *builder) path(name string) string {
	return filepath.Join(b.dest, filepath.FromSlash(strings.TrimPrefix(name, "/")))
}

func (b *builder) createDirs() error {
	dirs := []string{
		"bin",
		"etc",
		"proc",
		"dev",
		"sys",
		b.spec.Profile.Sysroot,
		b.modulesDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(b.path(dir), dirMode); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	return nil
}

func (b *builder) writeInit(source io.Reader) error {
	if err := copyFile(b.path(InitBinaryPath), source, binaryMode); err != nil {
		return fmt.Errorf("write init binary: %w", err)
	}

	if err := os.Symlink(InitBinaryPath, b.path(InitLinkPath)); err != nil {
		return fmt.Errorf("link init: %w", err)
	}

	return nil
}

func (b *builder) copyModules(modules []kmod.Module) error {
	for _, module := range modules {
		source := filepath.Join(b.spec.Kernel.Dir, filepath.FromSlash(module.Path))
		target := b.path(filepath.Join(b.modulesDir, module.Path))

		b.spec.logger().Debug("Copy module",
			slog.String("module", module.Name),
			slog.String("source", source),
			slog.String("target", target),
		)

		if err := copyModuleFile(source, target); err != nil {
			return fmt.Errorf("copy module %s: %w", module.Name, err)
		}
	}

	return nil
}

// copyModuleFile is replaced in tests.
//
//nolint:gochecknoglobals
var copyModuleFile = copyModule

func copyModule(source, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	file, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer file.Close()

	return copyFile(target, file, moduleMode)
}

func copyFile(target string, source io.Reader, mode fs.FileMode) error {
	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	_, err = io.Copy(file, source)

	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}

	// Not affected by umask, unlike the open mode.
	if err := os.Chmod(target, mode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}

	return nil
}

func (b *builder) writeConfig(modules []kmod.Module) error {
	cfg := *b.spec.Profile
	cfg.Modules = lo.Uniq(lo.Map(modules, func(module kmod.Module, _ int) string {
		return module.Name
	}))

	if err := cfg.WriteFile(b.path(bootconfig.Path)); err != nil {
		return fmt.Errorf("write boot config: %w", err)
	}

	return nil
}
