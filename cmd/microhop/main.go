// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Microhop is the init of microhop initramfs images. It loads the kernel
// modules, mounts the disks of the configuration and hands over to the init
// of the new root.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/isbm/microhop/internal/blockdev"
	"github.com/isbm/microhop/internal/bootconfig"
	"github.com/isbm/microhop/internal/logging"
	"github.com/isbm/microhop/internal/sysinit"
)

// halt blocks forever. Process 1 must not exit, as the kernel panics then.
func halt() {
	for {
		time.Sleep(time.Hour)
	}
}

func logConfig(cfg *bootconfig.Config) {
	slog.Debug("Configuration",
		slog.Any("modules", cfg.Modules),
		slog.String("init", cfg.Init),
		slog.String("sysroot", cfg.Sysroot),
		slog.String("log", cfg.Log),
	)

	for _, disk := range cfg.Disks {
		slog.Debug("Disk",
			slog.String("device", disk.Device),
			slog.String("options", disk.Options()),
		)
	}
}

func run() error {
	cfg, err := bootconfig.Load(bootconfig.Path)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(os.Stdout, logging.Options{
		Level:      cfg.Log,
		Timestamps: true,
	})

	slog.Info("Welcome to the Microhop")
	logConfig(cfg)

	modules, err := sysinit.RunningKernelModules()
	if err != nil {
		return fmt.Errorf("kernel modules: %w", err)
	}

	system := sysinit.System{}
	sequencer := &sysinit.Sequencer{
		Config:  sysinit.NewConfig(cfg),
		Modules: modules,
		Mounts:  system,
		Root:    system,
		Devices: &blockdev.Prober{},
	}

	err = sequencer.Run()
	if err == nil {
		err = sysinit.ErrExecReturned
	}

	return err
}

func main() {
	logging.Setup(os.Stdout, logging.Options{
		Level:      logging.LevelInfo,
		Timestamps: true,
	})

	if !sysinit.IsPidOne() {
		slog.Error(sysinit.ErrNotPidOne.Error())
		os.Exit(1)
	}

	err := run()
	if errors.Is(err, sysinit.ErrNoRoot) {
		slog.Error("No root file system mounted, check the disks of the configuration")
	}

	slog.Error("Boot failed", slog.Any("error", err))
	halt()
}
