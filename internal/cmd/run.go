// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"context"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/isbm/microhop/internal/logging"
)

// IO provides input and output details for the command.
type IO struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func newRootCommand(cfg IO) *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "microgen",
		Short: "Generate initramfs images that boot with microhop",
		Long: `microgen creates initramfs images with microhop as init. The image
contains only the kernel modules and the configuration the profile asks for.`,
		Version:       version(),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(*cobra.Command, []string) {
			if verbose {
				logging.Setup(cfg.Stderr, logging.Options{Level: logging.LevelDebug})
			}
		},
	}

	root.SetIn(cfg.Stdin)
	root.SetOut(cfg.Stdout)
	root.SetErr(cfg.Stderr)
	root.SetVersionTemplate("Version: {{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug output")

	root.AddCommand(
		newNewCommand(),
		newInfoCommand(),
		newProfileCommand(),
	)

	return root
}

// Run is the main entry point for the CLI command.
func Run(ctx context.Context, args []string, cfg IO) int {
	logging.Setup(cfg.Stderr, logging.Options{Level: logging.LevelWarn})

	root := newRootCommand(cfg)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		slog.Error(err.Error())
		return 1
	}

	return 0
}

func version() string {
	buildInfo, err := getBuildInfo()
	if err != nil {
		return "unknown"
	}

	return buildInfo.Main.Version
}

func getBuildInfo() (*debug.BuildInfo, error) {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return nil, ErrReadBuildInfo
	}

	return buildInfo, nil
}
