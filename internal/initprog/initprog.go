// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package initprog provides the pre-built microhop init binaries that are
// put into generated images.
package initprog

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
)

// Pre-compile microhop for all supported architectures. Statically linked
// so the image does not need any libraries.
//
//go:generate env CGO_ENABLED=0 GOOS=linux GOARCH=amd64 go build -buildvcs=false -trimpath -ldflags "-s -w" -o bin/amd64 ../../cmd/microhop
//go:generate env CGO_ENABLED=0 GOOS=linux GOARCH=arm64 go build -buildvcs=false -trimpath -ldflags "-s -w" -o bin/arm64 ../../cmd/microhop
//go:generate env CGO_ENABLED=0 GOOS=linux GOARCH=riscv64 go build -buildvcs=false -trimpath -ldflags "-s -w" -o bin/riscv64 ../../cmd/microhop

//go:embed all:bin
var _inits embed.FS

var (
	// ErrArchNotSupported is returned for architectures microhop is not
	// built for.
	ErrArchNotSupported = errors.New("arch not supported")
	// ErrNotBuilt is returned if the binary for a supported architecture was
	// not generated before microgen was built.
	ErrNotBuilt = errors.New("init binary not embedded, run go generate")
)

// For returns the pre-built microhop binary for the arch.
func For(arch string) (fs.File, error) {
	switch arch {
	case "amd64", "arm64", "riscv64":
		file, err := _inits.Open(path.Join("bin", arch))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrNotBuilt, arch)
			}

			return nil, fmt.Errorf("open: %w", err)
		}

		return file, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrArchNotSupported, arch)
	}
}
