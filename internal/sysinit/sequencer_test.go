// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit_test

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/isbm/microhop/internal/blockdev"
	"github.com/isbm/microhop/internal/bootconfig"
	"github.com/isbm/microhop/internal/sysinit"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const rootUUID = "0a3407de-014b-458b-b5c1-848e92a327a3"

// fakeSystem records all calls in order.
type fakeSystem struct {
	calls   []string
	devices blockdev.Devices

	loadErrs  map[string]error
	mountErrs map[string]error
	purgeErr  error
	switchErr error
	probeErr  error
	panicOn   string
}

func (f *fakeSystem) record(format string, args ...any) {
	call := fmt.Sprintf(format, args...)
	f.calls = append(f.calls, call)

	if f.panicOn != "" && call == f.panicOn {
		panic("boom")
	}
}

func (f *fakeSystem) Load(name string) error {
	f.record("load %s", name)
	return f.loadErrs[name]
}

func (f *fakeSystem) Mount(target string, opts sysinit.MountOptions) error {
	f.record("mount %s %s %s", opts.FSType, opts.Source, target)
	return f.mountErrs[target]
}

func (f *fakeSystem) Unmount(target string) error {
	f.record("unmount %s", target)
	return nil
}

func (f *fakeSystem) Move(source, target string) error {
	f.record("move %s %s", source, target)
	return nil
}

func (f *fakeSystem) Probe() (blockdev.Devices, error) {
	f.record("probe")
	return f.devices, f.probeErr
}

func (f *fakeSystem) Purge(sysroot string) error {
	f.record("purge %s", sysroot)
	return f.purgeErr
}

func (f *fakeSystem) SwitchRoot(newRoot string, fsType sysinit.FSType) error {
	f.record("switch %s %s", newRoot, fsType)
	return f.switchErr
}

func (f *fakeSystem) Exec(path string) error {
	f.record("exec %s", path)
	return nil
}

func newSequencer(system *fakeSystem, cfg *bootconfig.Config) *sysinit.Sequencer {
	return &sysinit.Sequencer{
		Config:  sysinit.NewConfig(cfg),
		Modules: system,
		Mounts:  system,
		Root:    system,
		Devices: system,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testConfig() *bootconfig.Config {
	cfg := bootconfig.Default()
	cfg.Modules = []string{"virtio_blk", "ext4"}
	cfg.Disks = []bootconfig.Disk{
		{Device: "DATA", FSType: "xfs", Mountpoint: "/data", Mode: bootconfig.ModeReadOnly},
		{Device: rootUUID, FSType: "ext4", Mountpoint: "/", Mode: bootconfig.ModeReadWrite},
		{Device: "MISSING", FSType: "vfat", Mountpoint: "/boot", Mode: bootconfig.ModeReadWrite},
	}

	return cfg
}

func testDevices() blockdev.Devices {
	return blockdev.Devices{
		{Path: "/dev/vda1", UUID: rootUUID, FSType: "ext4"},
		{Path: "/dev/vda2", Label: "DATA", FSType: "xfs"},
	}
}

func TestSequencerRun(t *testing.T) {
	system := &fakeSystem{
		devices:  testDevices(),
		loadErrs: map[string]error{"virtio_blk": sysinit.ErrModuleLoaded},
	}
	sequencer := newSequencer(system, testConfig())

	require.NoError(t, sequencer.Run())

	expected := []string{
		"load virtio_blk",
		"load ext4",
		"mount proc none /proc",
		"mount sysfs none /sys",
		"mount devtmpfs devtmpfs /dev",
		"probe",
		"mount ext4 /dev/vda1 /sysroot",
		"mount xfs /dev/vda2 /sysroot/data",
		"move /proc /sysroot/proc",
		"move /sys /sysroot/sys",
		"move /dev /sysroot/dev",
		"purge /sysroot",
		"switch /sysroot ext4",
		"exec /sbin/init",
	}

	assert.Equal(t, expected, system.calls)
	assert.Equal(t, sysinit.StageInitExecuted, sequencer.Stage())
}

func TestSequencerRunFailures(t *testing.T) {
	tests := []struct {
		name          string
		system        *fakeSystem
		config        func() *bootconfig.Config
		expectedErr   error
		expectedStage sysinit.Stage
		lastCall      string
	}{
		{
			name:   "no root disk",
			system: &fakeSystem{devices: testDevices()},
			config: func() *bootconfig.Config {
				cfg := testConfig()
				cfg.Disks = cfg.Disks[:1]

				return cfg
			},
			expectedErr:   sysinit.ErrNoRoot,
			expectedStage: sysinit.StagePseudoRehomed,
			lastCall:      "move /dev /sysroot/dev",
		},
		{
			name: "root mount fails",
			system: &fakeSystem{
				devices:   testDevices(),
				mountErrs: map[string]error{"/sysroot": errors.New("bad superblock")},
			},
			config:        testConfig,
			expectedErr:   sysinit.ErrNoRoot,
			expectedStage: sysinit.StagePseudoRehomed,
			lastCall:      "move /dev /sysroot/dev",
		},
		{
			name: "probe fails",
			system: &fakeSystem{
				probeErr: errors.New("no sysfs"),
			},
			config:        testConfig,
			expectedErr:   sysinit.ErrNoRoot,
			expectedStage: sysinit.StagePseudoRehomed,
			lastCall:      "move /dev /sysroot/dev",
		},
		{
			name: "switch fails",
			system: &fakeSystem{
				devices:   testDevices(),
				switchErr: errors.New("busy"),
			},
			config:        testConfig,
			expectedStage: sysinit.StageRootPurged,
			lastCall:      "switch /sysroot ext4",
		},
		{
			name: "panic",
			system: &fakeSystem{
				devices: testDevices(),
				panicOn: "purge /sysroot",
			},
			config:        testConfig,
			expectedErr:   sysinit.ErrPanic,
			expectedStage: sysinit.StagePseudoRehomed,
			lastCall:      "purge /sysroot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sequencer := newSequencer(tt.system, tt.config())

			err := sequencer.Run()
			require.Error(t, err)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			}

			assert.Equal(t, tt.expectedStage, sequencer.Stage())
			assert.Equal(t, tt.lastCall, tt.system.calls[len(tt.system.calls)-1])
			assert.NotContains(t, tt.system.calls, "exec /sbin/init")
		})
	}
}

func TestSequencerRunPurgeFailureContinues(t *testing.T) {
	system := &fakeSystem{
		devices:  testDevices(),
		purgeErr: sysinit.ErrRootNotDisposable,
	}
	sequencer := newSequencer(system, testConfig())

	require.NoError(t, sequencer.Run())
	assert.Equal(t, "exec /sbin/init", system.calls[len(system.calls)-1])
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "start", sysinit.StageStart.String())
	assert.Equal(t, "root-switched", sysinit.StageRootSwitched.String())
	assert.Equal(t, "stage(42)", sysinit.Stage(42).String())
}
