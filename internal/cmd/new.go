// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/isbm/microhop/internal/bootconfig"
	"github.com/isbm/microhop/internal/image"
	"github.com/isbm/microhop/internal/initramfs"
	"github.com/isbm/microhop/internal/kmod"
)

type newFlags struct {
	profile  string
	extract  []string
	kernel   string
	root     string
	output   string
	file     string
	initPath string
	arch     string
}

func newNewCommand() *cobra.Command {
	var flags newFlags

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new initramfs image",
		Long: `Create the image directory from a profile and pack it into a zstd
compressed cpio archive.

With --extract, print the modules that would be put into the image for the
given module names in load order instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(flags.extract) > 0 {
				return printModules(cmd.OutOrStdout(), flags)
			}

			return newImage(cmd.OutOrStdout(), flags)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.profile, "config", "c", "",
		"profile the image is generated from")
	f.StringSliceVarP(&flags.extract, "extract", "x", nil,
		"print the dependencies of the given comma separated modules")
	f.StringVarP(&flags.kernel, "kernel", "k", "",
		"kernel release (default: running kernel or the only one installed)")
	f.StringVarP(&flags.root, "root", "r", "/",
		"system root the kernel modules are taken from")
	f.StringVarP(&flags.output, "output", "o", "./build",
		"image directory, must not exist")
	f.StringVarP(&flags.file, "file", "f", "./initramfs-microhop.zst",
		"archive file")
	f.StringVar(&flags.initPath, "microhop", "",
		"microhop binary to use instead of the embedded one")
	f.StringVar(&flags.arch, "arch", "",
		"architecture of the embedded microhop binary (default: host)")

	return cmd
}

func printModules(w io.Writer, flags newFlags) error {
	kernel, err := selectKernel(flags.root, flags.kernel)
	if err != nil {
		return err
	}

	resolver := &kmod.DepResolver{Root: flags.root}

	modules, err := resolver.Resolve(kernel.Version, flags.extract)
	if err != nil {
		return fmt.Errorf("resolve modules: %w", err)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	for _, module := range modules {
		fmt.Fprintf(tw, "%s\t%s\t%s\n",
			module.Name, module.Path, strings.Join(module.Deps, ","))
	}

	return tw.Flush()
}

func newImage(w io.Writer, flags newFlags) error {
	if flags.profile == "" {
		return ErrNoProfile
	}

	profile, err := bootconfig.Load(flags.profile)
	if err != nil {
		return err
	}

	kernel, err := selectKernel(flags.root, flags.kernel)
	if err != nil {
		return err
	}

	slog.Debug("Selected kernel",
		slog.String("version", kernel.Version),
		slog.String("dir", kernel.Dir))

	spec := image.Spec{
		Kernel:   kernel,
		Profile:  profile,
		Resolver: &kmod.DepResolver{Root: flags.root},
		Init:     flags.initPath,
		Arch:     flags.arch,
	}

	if err := image.Build(spec, flags.output); err != nil {
		return fmt.Errorf("build image: %w", err)
	}

	slog.Debug("Created image directory", slog.String("path", flags.output))

	if err := initramfs.Pack(flags.output, flags.file); err != nil {
		return fmt.Errorf("pack image: %w", err)
	}

	fmt.Fprintf(w, "Image for kernel %s written to %s\n", kernel.Version, flags.file)

	return nil
}
