// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package initramfs

import "errors"

var (
	// ErrUnsupportedFileType is returned for files other than directories,
	// regular files and symbolic links.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrFileChanged is returned if a file changed size between the walk
	// and writing it into the archive.
	ErrFileChanged = errors.New("file changed during packing")
)
