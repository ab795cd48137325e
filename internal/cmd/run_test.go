// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cavaliergopher/cpio"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isbm/microhop/internal/bootconfig"
	"github.com/isbm/microhop/internal/cmd"
)

const (
	testKernel = "0.0.1-microhop"
	modulesDep = `kernel/fs/xfs/xfs.ko.zst: kernel/lib/libcrc32c.ko.zst kernel/crypto/crc32c_generic.ko.zst
kernel/lib/libcrc32c.ko.zst: kernel/crypto/crc32c_generic.ko.zst
kernel/crypto/crc32c_generic.ko.zst:
`
)

func setupRoot(t *testing.T, versions ...string) string {
	t.Helper()

	root := t.TempDir()

	for _, version := range versions {
		dir := filepath.Join(root, "lib/modules", version)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "modules.dep"), []byte(modulesDep), 0o644))

		for _, module := range []string{
			"kernel/fs/xfs/xfs.ko.zst",
			"kernel/lib/libcrc32c.ko.zst",
			"kernel/crypto/crc32c_generic.ko.zst",
		} {
			path := filepath.Join(dir, module)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte(module), 0o644))
		}
	}

	return root
}

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	exitCode := cmd.Run(context.Background(), args, cmd.IO{
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
	})

	return exitCode, stdout.String(), stderr.String()
}

func archiveNames(t *testing.T, path string) []string {
	t.Helper()

	file, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = file.Close() })

	decoder, err := zstd.NewReader(file, zstd.WithDecoderConcurrency(1))
	require.NoError(t, err)
	t.Cleanup(decoder.Close)

	var names []string

	reader := cpio.NewReader(decoder)

	for {
		hdr, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		require.NoError(t, err)

		names = append(names, hdr.Name)
	}

	return names
}

func TestRun(t *testing.T) {
	root := setupRoot(t, testKernel, "0.0.2-microhop")

	tests := []struct {
		name             string
		args             []string
		expectedExitCode int
		expectedStdout   []string
		expectedStderr   string
	}{
		{
			name:           "version",
			args:           []string{"--version"},
			expectedStdout: []string{"Version: "},
		},
		{
			name:           "list kernels",
			args:           []string{"info", "--list", "--root", root},
			expectedStdout: []string{testKernel + "\n", "0.0.2-microhop\n"},
		},
		{
			name:           "info without flags prints help",
			args:           []string{"info"},
			expectedStdout: []string{"--list"},
		},
		{
			name: "extract module dependencies",
			args: []string{"new", "-r", root, "-k", testKernel, "-x", "xfs"},
			expectedStdout: []string{
				"crc32c_generic  kernel/crypto/crc32c_generic.ko.zst",
				"libcrc32c       kernel/lib/libcrc32c.ko.zst",
				"xfs             kernel/fs/xfs/xfs.ko.zst",
			},
		},
		{
			name:             "ambiguous kernel",
			args:             []string{"new", "-r", root, "-x", "xfs"},
			expectedExitCode: 1,
			expectedStderr:   "ambiguous",
		},
		{
			name:             "unknown module",
			args:             []string{"new", "-r", root, "-k", testKernel, "-x", "btrfs"},
			expectedExitCode: 1,
			expectedStderr:   "btrfs",
		},
		{
			name:             "no profile",
			args:             []string{"new", "-r", root, "-k", testKernel},
			expectedExitCode: 1,
			expectedStderr:   cmd.ErrNoProfile.Error(),
		},
		{
			name:             "unknown flag",
			args:             []string{"new", "--fancy"},
			expectedExitCode: 1,
			expectedStderr:   "fancy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exitCode, stdout, stderr := run(t, tt.args...)

			assert.Equal(t, tt.expectedExitCode, exitCode, stderr)

			for _, s := range tt.expectedStdout {
				assert.Contains(t, stdout, s)
			}

			if tt.expectedStderr != "" {
				assert.Contains(t, stderr, tt.expectedStderr)
			}
		})
	}
}

func TestRunNew(t *testing.T) {
	root := setupRoot(t, testKernel)
	work := t.TempDir()

	initPath := filepath.Join(work, "microhop")
	require.NoError(t, os.WriteFile(initPath, []byte("\x7fELF microhop"), 0o755))

	profile := bootconfig.Default()
	profile.Modules = []string{"xfs"}
	profile.Disks = []bootconfig.Disk{
		{Device: "root", FSType: "xfs", Mountpoint: "/", Mode: bootconfig.ModeReadWrite},
	}

	profilePath := filepath.Join(work, "profile.conf")
	require.NoError(t, profile.WriteFile(profilePath))

	output := filepath.Join(work, "build")
	archive := filepath.Join(work, "initramfs.zst")

	exitCode, stdout, stderr := run(t, "new",
		"-c", profilePath,
		"-r", root,
		"-o", output,
		"-f", archive,
		"--microhop", initPath,
	)
	require.Equal(t, 0, exitCode, stderr)
	assert.Contains(t, stdout, archive)

	names := archiveNames(t, archive)
	assert.Contains(t, names, "init")
	assert.Contains(t, names, "bin/microhop")
	assert.Contains(t, names, "etc/microhop.conf")
	assert.Contains(t, names, "lib/modules/"+testKernel+"/kernel/fs/xfs/xfs.ko.zst")

	cfg, err := bootconfig.Load(filepath.Join(output, bootconfig.Path))
	require.NoError(t, err)
	assert.Equal(t, []string{"crc32c_generic", "libcrc32c", "xfs"}, cfg.Modules)

	t.Run("existing output", func(t *testing.T) {
		exitCode, _, stderr := run(t, "new",
			"-c", profilePath,
			"-r", root,
			"-o", output,
			"-f", filepath.Join(work, "other.zst"),
			"--microhop", initPath,
		)
		assert.Equal(t, 1, exitCode)
		assert.Contains(t, stderr, "destination exists")
		assert.NoFileExists(t, filepath.Join(work, "other.zst"))
	})
}
