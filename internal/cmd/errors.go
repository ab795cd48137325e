// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cmd

import "errors"

var (
	// ErrReadBuildInfo is returned if the build info can not be read.
	ErrReadBuildInfo = errors.New("failed to read build info")

	// ErrNoProfile is returned if an image is requested without profile.
	ErrNoProfile = errors.New("no profile given, use --config")

	// ErrNotMounted is returned if a requested mount point is not mounted.
	ErrNotMounted = errors.New("not mounted")
)
