// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/isbm/microhop/internal/blockdev"
	"github.com/isbm/microhop/internal/bootconfig"
)

// Config is the input of a [Sequencer].
type Config struct {
	// Modules are loaded in the given order.
	Modules []string

	// Disks are resolved and mounted below Sysroot.
	Disks []bootconfig.Disk

	// Init is executed after the root switch.
	Init string

	// Sysroot is the mount point of the new root.
	Sysroot string

	// PseudoFilesystems are mounted in the given order before disks are
	// probed and moved below Sysroot before the root switch.
	PseudoFilesystems []PseudoFilesystem
}

// NewConfig returns the [Config] for the given boot configuration with the
// default pseudo file systems.
func NewConfig(cfg *bootconfig.Config) Config {
	return Config{
		Modules:           cfg.Modules,
		Disks:             cfg.Disks,
		Init:              cfg.Init,
		Sysroot:           filepath.Clean(cfg.Sysroot),
		PseudoFilesystems: DefaultPseudoFilesystems(),
	}
}

// State is the data passed between boot steps.
type State struct {
	Devices     blockdev.Devices
	Plan        MountPlan
	RootMounted bool
}

// Func is a boot step.
type Func func(*State) error

// Sequencer runs the boot sequence.
type Sequencer struct {
	Config  Config
	Modules ModuleLoader
	Mounts  MountService
	Root    RootSwitcher
	Devices DeviceProber
	Logger  *slog.Logger

	stage Stage
}

// Stage returns the last stage that was reached.
func (s *Sequencer) Stage() Stage {
	return s.stage
}

func (s *Sequencer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}

	return s.Logger
}

type step struct {
	stage Stage
	fn    Func
}

// Run runs all boot steps in order. Module loading and mounting are best
// effort: failures are logged and the sequence continues. It stops with an
// error if no root file system is mounted, if the root switch fails or if
// the init program could not be executed. On success, Run does not return
// since the process is replaced by the init program.
func (s *Sequencer) Run() error {
	steps := []step{
		{StageModulesLoaded, s.loadModules},
		{StagePseudoMounted, s.mountPseudoFilesystems},
		{StageDevicesProbed, s.probeDevices},
		{StageDisksResolved, s.resolveDisks},
		{StageDisksMounted, s.mountDisks},
		{StagePseudoRehomed, s.rehomePseudoFilesystems},
		{StageRootPurged, s.purgeRoot},
		{StageRootSwitched, s.switchRoot},
		{StageInitExecuted, s.execInit},
	}

	state := new(State)

	for _, step := range steps {
		if err := runFunc(state, step.fn); err != nil {
			return fmt.Errorf("%s: %w", step.stage, err)
		}

		s.stage = step.stage
		s.logger().Debug("Stage reached", slog.String("stage", s.stage.String()))
	}

	return nil
}

func runFunc(state *State, fn Func) (err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}

		if recoveredErr, ok := rec.(error); ok {
			err = fmt.Errorf("%w: %w", ErrPanic, recoveredErr)
		} else {
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()

	return fn(state)
}

func (s *Sequencer) loadModules(_ *State) error {
	for _, name := range s.Config.Modules {
		err := s.Modules.Load(name)

		switch {
		case err == nil:
			s.logger().Info("Loaded module", slog.String("module", name))
		case errors.Is(err, ErrModuleLoaded):
			s.logger().Warn("Module already loaded", slog.String("module", name))
		default:
			s.logger().Error("Load module", slog.String("module", name), slog.Any("error", err))
		}
	}

	return nil
}

func (s *Sequencer) mountPseudoFilesystems(_ *State) error {
	for _, pfs := range s.Config.PseudoFilesystems {
		if err := s.Mounts.Mount(pfs.Target, pfs.MountOptions); err != nil {
			s.logger().Error("Mount pseudo filesystem",
				slog.String("target", pfs.Target), slog.Any("error", err))
		}
	}

	return nil
}

func (s *Sequencer) probeDevices(state *State) error {
	devices, err := s.Devices.Probe()
	if err != nil {
		s.logger().Error("Probe devices", slog.Any("error", err))
		return nil
	}

	for _, dev := range devices {
		if dev.FSType == "" {
			continue
		}

		s.logger().Info("Found partition",
			slog.String("path", dev.Path),
			slog.String("fstype", dev.FSType),
			slog.String("uuid", dev.UUID),
			slog.String("label", dev.Label),
		)
	}

	state.Devices = devices

	return nil
}

func (s *Sequencer) resolveDisks(state *State) error {
	state.Plan = ResolveDisks(s.Config.Disks, state.Devices, s.Config.Sysroot)

	for _, disk := range state.Plan.Unresolved {
		s.logger().Warn("Unknown device", slog.String("device", disk.Device))
	}

	return nil
}

func (s *Sequencer) mountDisks(state *State) error {
	for _, entry := range state.Plan.Entries {
		err := s.Mounts.Mount(entry.Target, entry.MountOptions)
		if err != nil {
			s.logger().Error("Mount disk",
				slog.String("source", entry.Source),
				slog.String("target", entry.Target),
				slog.Any("error", err),
			)

			continue
		}

		s.logger().Info("Mounted disk",
			slog.String("source", entry.Source),
			slog.String("target", entry.Target),
			slog.String("fstype", string(entry.FSType)),
		)

		if entry.Target == s.Config.Sysroot {
			state.RootMounted = true
		}
	}

	return nil
}

func (s *Sequencer) rehomePseudoFilesystems(_ *State) error {
	for _, pfs := range s.Config.PseudoFilesystems {
		target := filepath.Join(s.Config.Sysroot, pfs.Target)

		if err := s.Mounts.Move(pfs.Target, target); err != nil {
			s.logger().Error("Move pseudo filesystem",
				slog.String("source", pfs.Target),
				slog.String("target", target),
				slog.Any("error", err),
			)
		}
	}

	return nil
}

func (s *Sequencer) purgeRoot(state *State) error {
	if state.Plan.RootFSType == "" {
		return fmt.Errorf("%w: no root disk configured", ErrNoRoot)
	}

	if !state.RootMounted {
		return fmt.Errorf("%w: %s", ErrNoRoot, s.Config.Sysroot)
	}

	if err := s.Root.Purge(s.Config.Sysroot); err != nil {
		s.logger().Warn("Purge initramfs", slog.Any("error", err))
	}

	return nil
}

func (s *Sequencer) switchRoot(state *State) error {
	return s.Root.SwitchRoot(s.Config.Sysroot, FSType(state.Plan.RootFSType))
}

func (s *Sequencer) execInit(_ *State) error {
	s.logger().Info("Starting init", slog.String("path", s.Config.Init))

	return s.Root.Exec(s.Config.Init)
}
