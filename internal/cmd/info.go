// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/isbm/microhop/internal/kmod"
)

func newInfoCommand() *cobra.Command {
	var (
		list bool
		root string
	)

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show information about the system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !list {
				return cmd.Help()
			}

			return listKernels(cmd.OutOrStdout(), root)
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "list installed kernels")
	cmd.Flags().StringVarP(&root, "root", "r", "/", "system root to inspect")

	return cmd
}

func listKernels(w io.Writer, root string) error {
	kernels, err := kmod.Kernels(root)
	if err != nil {
		return fmt.Errorf("list kernels: %w", err)
	}

	running := runningRelease()

	for _, kernel := range kernels {
		marker := " "
		if kernel.Version == running {
			marker = "*"
		}

		fmt.Fprintf(w, "%s %s\n", marker, kernel.Version)
	}

	return nil
}
