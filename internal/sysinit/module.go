// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

const (
	moduleTypeUnknown moduleType = ""
	moduleTypePlain   moduleType = ".ko"
	moduleTypeGZIP    moduleType = ".ko.gz"
	moduleTypeXZ      moduleType = ".ko.xz"
	moduleTypeZSTD    moduleType = ".ko.zst"
)

type moduleType string

func parseModuleType(fileName string) moduleType {
	types := []moduleType{
		moduleTypePlain,
		moduleTypeGZIP,
		moduleTypeXZ,
		moduleTypeZSTD,
	}

	for _, typ := range types {
		if strings.HasSuffix(fileName, string(typ)) {
			return typ
		}
	}

	return moduleTypeUnknown
}

// ModulesDir returns the module tree of the given kernel release.
func ModulesDir(release string) string {
	return filepath.Join("/lib/modules", release)
}

// KernelModules is a [ModuleLoader] for the module files in Dir.
type KernelModules struct {
	// Dir is the module tree of the running kernel.
	Dir string
}

var _ ModuleLoader = (*KernelModules)(nil)

// Load implements [ModuleLoader].
//
// A name without "/" and "." is looked up in the module tree. Otherwise, it
// is a path relative to the module tree. Compressed modules are decompressed
// before they are passed to the kernel.
func (m *KernelModules) Load(name string) error {
	path, err := findModule(m.Dir, name)
	if err != nil {
		return err
	}

	return LoadModule(path)
}

// findModule returns the path of the module file for the given name. A file
// with exactly that module name wins, otherwise the first module file in walk
// order whose name contains the name is used. Dashes and underscores are
// equivalent.
func findModule(dir, name string) (string, error) {
	if strings.ContainsAny(name, "/.") {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%w: %s: %w", ErrModuleNotFound, name, err)
		}

		return path, nil
	}

	name = normalizeModuleName(name)

	var candidate string

	err := filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		fileName := entry.Name()
		if !entry.Type().IsRegular() || parseModuleType(fileName) == moduleTypeUnknown {
			return nil
		}

		stem := normalizeModuleName(fileName)
		if idx := strings.IndexByte(stem, '.'); idx >= 0 {
			stem = stem[:idx]
		}

		if stem == name {
			candidate = path
			return fs.SkipAll
		}

		if candidate == "" && strings.Contains(stem, name) {
			candidate = path
		}

		return nil
	})
	if err != nil {
		return "", fmt.Errorf("search module %s: %w", name, err)
	}

	if candidate == "" {
		return "", fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}

	return candidate, nil
}

func normalizeModuleName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// LoadModule loads the kernel module located at the given path.
//
// Plain modules are passed to finit_module(2). Compressed modules are read
// into memory, decompressed and passed to init_module(2). The caller is
// responsible to ensure the module belongs to the running kernel and all
// dependencies are loaded.
func LoadModule(path string) error {
	module, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer module.Close()

	typ := parseModuleType(module.Name())
	if typ == moduleTypePlain {
		return finitModule(int(module.Fd()), "", 0)
	}

	data, err := readModule(module, typ)
	if err != nil {
		return fmt.Errorf("read module %s: %w", path, err)
	}

	return initModule(data, "")
}

func readModule(fileReader io.Reader, typ moduleType) ([]byte, error) {
	moduleReader, err := newModuleReader(fileReader, typ)
	if err != nil {
		return nil, err
	}

	if closer, ok := moduleReader.(io.Closer); ok {
		defer closer.Close()
	}

	var data bytes.Buffer

	if _, err := data.ReadFrom(moduleReader); err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}

	return data.Bytes(), nil
}

func newModuleReader(fileReader io.Reader, typ moduleType) (io.Reader, error) {
	switch typ {
	case moduleTypePlain:
		return fileReader, nil
	case moduleTypeGZIP:
		gzipReader, err := gzip.NewReader(fileReader)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}

		return gzipReader, nil
	case moduleTypeXZ:
		xzReader, err := xz.NewReader(fileReader)
		if err != nil {
			return nil, fmt.Errorf("xz reader: %w", err)
		}

		return xzReader, nil
	case moduleTypeZSTD:
		zstdReader, err := zstd.NewReader(fileReader, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}

		return zstdReader.IOReadCloser(), nil
	default:
		return nil, fmt.Errorf("extension %s: %w", typ, errors.ErrUnsupported)
	}
}
