// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package blockdev

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/prometheus/procfs/blockdevice"
	"github.com/siderolabs/go-blockdevice/v2/blkid"
)

// Default locations of the kernel interfaces used for probing.
const (
	DefaultProcPath = "/proc"
	DefaultSysPath  = "/sys"
)

// Identifier reads filesystem metadata of the device at the given path.
type Identifier func(path string) (Device, error)

// Prober enumerates partitions.
//
// The zero value probes the live system.
type Prober struct {
	// ProcPath is the procfs mount point. Defaults to [DefaultProcPath].
	ProcPath string

	// SysPath is the sysfs mount point. Defaults to [DefaultSysPath].
	SysPath string

	// DevPath is the directory device nodes are found in. Defaults to
	// [DevicePrefix].
	DevPath string

	// Identify reads the superblock metadata. Defaults to [Blkid].
	Identify Identifier
}

// Probe returns all partitions known to the kernel in the order the kernel
// lists them.
//
// Partitions are all block devices that have the name of a top level block
// device as prefix. Superblock errors result in empty metadata fields. An
// error is returned only if the kernel device lists can not be read.
func (p *Prober) Probe() (Devices, error) {
	fs, err := blockdevice.NewFS(p.procPath(), p.sysPath())
	if err != nil {
		return nil, fmt.Errorf("block device fs: %w", err)
	}

	stats, err := fs.ProcDiskstats()
	if err != nil {
		return nil, fmt.Errorf("read diskstats: %w", err)
	}

	disks, err := fs.SysBlockDevices()
	if err != nil {
		return nil, fmt.Errorf("read block devices: %w", err)
	}

	identify := p.Identify
	if identify == nil {
		identify = Blkid
	}

	var devices Devices

	for _, stat := range stats {
		name := stat.Info.DeviceName
		if !isPartition(name, disks) {
			continue
		}

		path := filepath.Join(p.devPath(), name)

		dev, err := identify(path)
		if err != nil {
			dev = Device{}
		}

		dev.Path = path
		devices = append(devices, dev)
	}

	return devices, nil
}

func isPartition(name string, disks []string) bool {
	if slices.Contains(disks, name) {
		return false
	}

	return slices.ContainsFunc(disks, func(disk string) bool {
		return strings.HasPrefix(name, disk)
	})
}

func (p *Prober) procPath() string {
	if p.ProcPath == "" {
		return DefaultProcPath
	}

	return p.ProcPath
}

func (p *Prober) sysPath() string {
	if p.SysPath == "" {
		return DefaultSysPath
	}

	return p.SysPath
}

func (p *Prober) devPath() string {
	if p.DevPath == "" {
		return DevicePrefix
	}

	return p.DevPath
}

// Blkid is an [Identifier] that reads the superblock of the device.
func Blkid(path string) (Device, error) {
	info, err := blkid.ProbePath(path, blkid.WithSkipLocking(true))
	if err != nil {
		return Device{}, fmt.Errorf("probe %s: %w", path, err)
	}

	dev := Device{
		Path:   path,
		FSType: info.Name,
	}

	if info.UUID != nil {
		dev.UUID = info.UUID.String()
	}

	if info.Label != nil {
		dev.Label = *info.Label
	}

	return dev, nil
}
