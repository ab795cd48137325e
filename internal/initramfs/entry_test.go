// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isbm/microhop/internal/initramfs"
)

func TestCollect(t *testing.T) {
	source := setupTree(t)

	require.NoError(t, os.Mkdir(filepath.Join(source, "usr"), 0o755))
	require.NoError(t, os.Symlink("usr", filepath.Join(source, "lib")))

	entries, err := initramfs.Collect(source)
	require.NoError(t, err)

	var (
		names []string
		kinds []initramfs.Kind
	)

	for idx, entry := range entries {
		assert.EqualValues(t, idx+1, entry.Inode, entry.Name)

		names = append(names, entry.Name)
		kinds = append(kinds, entry.Kind)
	}

	assert.Equal(t, []string{
		"README",
		"bin",
		"bin/microhop",
		"etc",
		"etc/microhop.conf",
		"init",
		"lib",
		"usr",
	}, names)

	assert.Equal(t, []initramfs.Kind{
		initramfs.KindRegular,
		initramfs.KindDirectory,
		initramfs.KindRegular,
		initramfs.KindDirectory,
		initramfs.KindRegular,
		initramfs.KindSymlink,
		initramfs.KindSymlink,
		initramfs.KindDirectory,
	}, kinds)

	assert.Equal(t, "usr", entries[6].LinkTarget)
	assert.EqualValues(t, len("read me"), entries[0].Size)
}

func TestCollectEmpty(t *testing.T) {
	entries, err := initramfs.Collect(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollectDirectoryLinks(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(t *testing.T, dir string)
		expectedNames []string
		expectedKinds []initramfs.Kind
	}{
		{
			name: "link to directory is descended into",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.Mkdir(filepath.Join(dir, "real"), 0o755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, "real/f"), []byte("f"), 0o644))
				require.NoError(t, os.Symlink("real", filepath.Join(dir, "link")))
			},
			expectedNames: []string{"link", "link/f", "real", "real/f"},
			expectedKinds: []initramfs.Kind{
				initramfs.KindSymlink,
				initramfs.KindRegular,
				initramfs.KindDirectory,
				initramfs.KindRegular,
			},
		},
		{
			name: "link to root is not descended into",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.Symlink(".", filepath.Join(dir, "self")))
			},
			expectedNames: []string{"self"},
			expectedKinds: []initramfs.Kind{initramfs.KindSymlink},
		},
		{
			name: "link to parent is not descended into",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.Mkdir(filepath.Join(dir, "real"), 0o755))
				require.NoError(t, os.Symlink("..", filepath.Join(dir, "real/up")))
				require.NoError(t, os.Symlink("real", filepath.Join(dir, "link")))
			},
			expectedNames: []string{"link", "link/up", "real", "real/up"},
			expectedKinds: []initramfs.Kind{
				initramfs.KindSymlink,
				initramfs.KindSymlink,
				initramfs.KindDirectory,
				initramfs.KindSymlink,
			},
		},
		{
			name: "dangling link",
			setup: func(t *testing.T, dir string) {
				require.NoError(t, os.Symlink("absent", filepath.Join(dir, "dangling")))
			},
			expectedNames: []string{"dangling"},
			expectedKinds: []initramfs.Kind{initramfs.KindSymlink},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)

			entries, err := initramfs.Collect(dir)
			require.NoError(t, err)

			var (
				names []string
				kinds []initramfs.Kind
			)

			for idx, entry := range entries {
				assert.EqualValues(t, idx+1, entry.Inode, entry.Name)

				names = append(names, entry.Name)
				kinds = append(kinds, entry.Kind)
			}

			assert.Equal(t, tt.expectedNames, names)
			assert.Equal(t, tt.expectedKinds, kinds)
		})
	}
}
