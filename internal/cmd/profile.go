// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"io"
	"os"
	"path"

	"github.com/prometheus/procfs"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/isbm/microhop/internal/blockdev"
	"github.com/isbm/microhop/internal/bootconfig"
)

// deviceProber lists the partitions of the system.
type deviceProber interface {
	Probe() (blockdev.Devices, error)
}

// profiler derives a profile from the mounts of the running system.
type profiler struct {
	procPath string
	prober   deviceProber
}

func newProfileCommand() *cobra.Command {
	var (
		mountpoints []string
		output      string
		defaults    = bootconfig.Default()
	)

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Create a profile from the running system",
		Long: `Create a profile that mounts the given mount points the way they are
mounted on the running system. Disks are selected by filesystem UUID, label or
device path, whatever is available first. The filesystem types are used as
module list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p := profiler{
				procPath: procfs.DefaultMountPoint,
				prober:   &blockdev.Prober{},
			}

			profile, err := p.profile(mountpoints)
			if err != nil {
				return err
			}

			profile.Init = defaults.Init
			profile.Sysroot = defaults.Sysroot
			profile.Log = defaults.Log

			return writeProfile(cmd.OutOrStdout(), profile, output)
		},
	}

	f := cmd.Flags()
	f.StringSliceVarP(&mountpoints, "mount", "m", []string{"/"},
		"mount points to add to the profile")
	f.StringVarP(&output, "output", "o", "-",
		"file to write the profile to, - for stdout")
	f.StringVar(&defaults.Init, "init", defaults.Init,
		"init to execute in the new root")
	f.StringVar(&defaults.Sysroot, "sysroot", defaults.Sysroot,
		"mount point of the new root in the initramfs")
	f.StringVar(&defaults.Log, "log", defaults.Log,
		"log level at boot")

	return cmd
}

func writeProfile(w io.Writer, profile *bootconfig.Config, output string) error {
	if output == "-" {
		return profile.Write(w)
	}

	if err := profile.WriteFile(output); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}

	return nil
}

func (p *profiler) profile(mountpoints []string) (*bootconfig.Config, error) {
	fs, err := procfs.NewFS(p.procPath)
	if err != nil {
		return nil, fmt.Errorf("procfs: %w", err)
	}

	self, err := fs.Self()
	if err != nil {
		return nil, fmt.Errorf("procfs self: %w", err)
	}

	mounts, err := self.MountInfo()
	if err != nil {
		return nil, fmt.Errorf("read mountinfo: %w", err)
	}

	devices, err := p.prober.Probe()
	if err != nil {
		return nil, fmt.Errorf("probe devices: %w", err)
	}

	return newProfile(mounts, devices, mountpoints)
}

// newProfile creates a profile with a disk for each mount point.
func newProfile(
	mounts []*procfs.MountInfo,
	devices blockdev.Devices,
	mountpoints []string,
) (*bootconfig.Config, error) {
	profile := bootconfig.Default()

	for _, mountpoint := range mountpoints {
		mountpoint = path.Clean(mountpoint)

		mount := findMount(mounts, mountpoint)
		if mount == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotMounted, mountpoint)
		}

		mode := bootconfig.ModeReadWrite
		if _, readOnly := mount.Options["ro"]; readOnly {
			mode = bootconfig.ModeReadOnly
		}

		profile.Disks = append(profile.Disks, bootconfig.Disk{
			Device:     selector(devices, mount.Source),
			FSType:     mount.FSType,
			Mountpoint: mountpoint,
			Mode:       mode,
		})
	}

	profile.Modules = lo.Uniq(lo.Map(profile.Disks, func(disk bootconfig.Disk, _ int) string {
		return disk.FSType
	}))

	return profile, nil
}

// findMount returns the last mount on the mount point, which is the one that
// is visible.
func findMount(mounts []*procfs.MountInfo, mountpoint string) *procfs.MountInfo {
	var found *procfs.MountInfo

	for _, mount := range mounts {
		if mount.MountPoint == mountpoint {
			found = mount
		}
	}

	return found
}

// selector returns the filesystem UUID, the label or the device path of the
// source, whatever is known first.
func selector(devices blockdev.Devices, source string) string {
	dev, found := devices.ByPath(source)
	if !found {
		if resolved, err := os.Readlink(source); err == nil && path.IsAbs(resolved) {
			dev, found = devices.ByPath(resolved)
		}
	}

	switch {
	case !found:
		return source
	case dev.UUID != "":
		return dev.UUID
	case dev.Label != "":
		return dev.Label
	default:
		return dev.Path
	}
}
