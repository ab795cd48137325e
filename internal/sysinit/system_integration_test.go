// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build integration_sysinit

package sysinit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func requireRoot(t *testing.T) {
	t.Helper()

	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
}

func withTmpfs(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, System{}.Mount(path, MountOptions{FSType: FSTypeTmp}))
	t.Cleanup(func() {
		if err := unix.Unmount(path, unix.MNT_DETACH); err != nil {
			t.Logf("Failed to unmount %s: %v", path, err)
		}
	})
}

func TestSystemMountMove(t *testing.T) {
	requireRoot(t)

	dir := t.TempDir()
	source := filepath.Join(dir, "source")
	target := filepath.Join(dir, "new/target")

	require.NoError(t, System{}.Mount(source, MountOptions{FSType: FSTypeTmp}))
	require.NoError(t, os.WriteFile(filepath.Join(source, "file"), []byte("moved"), 0o600))

	require.NoError(t, System{}.Move(source, target))

	t.Cleanup(func() { _ = unix.Unmount(target, unix.MNT_DETACH) })

	content, err := os.ReadFile(filepath.Join(target, "file"))
	require.NoError(t, err)
	assert.Equal(t, "moved", string(content))

	magic, err := statfsType(target)
	require.NoError(t, err)
	assert.True(t, isDisposableFSType(magic))

	require.NoError(t, System{}.Unmount(target))
	assert.NoFileExists(t, filepath.Join(target, "file"))
}

func TestSystemMountReadOnly(t *testing.T) {
	requireRoot(t)

	target := filepath.Join(t.TempDir(), "ro")

	require.NoError(t, System{}.Mount(target, MountOptions{
		FSType: FSTypeTmp,
		Flags:  MountFlagReadOnly | MountFlagNoAtime,
	}))

	t.Cleanup(func() { _ = unix.Unmount(target, unix.MNT_DETACH) })

	err := os.WriteFile(filepath.Join(target, "file"), nil, 0o600)
	assert.ErrorIs(t, err, unix.EROFS)
}

func TestPurgeStaysOnDevice(t *testing.T) {
	requireRoot(t)

	root := filepath.Join(t.TempDir(), "root")
	withTmpfs(t, root)

	other := filepath.Join(root, "mnt/other")
	withTmpfs(t, other)

	require.NoError(t, os.WriteFile(filepath.Join(root, "file"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(other, "kept"), nil, 0o600))

	require.NoError(t, purge(root, "/sysroot"))

	assert.NoFileExists(t, filepath.Join(root, "file"))
	assert.FileExists(t, filepath.Join(other, "kept"))
}
