// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bootconfig

import "errors"

var (
	// ErrInvalidDiskOptions is returned if a disk value does not consist of
	// two or three comma separated fields.
	ErrInvalidDiskOptions = errors.New("invalid disk options")
	// ErrInvalidMode is returned for mount modes other than "rw" and "ro".
	ErrInvalidMode = errors.New("invalid mount mode")
	// ErrInvalidDocument is returned if the YAML document has an unexpected
	// structure.
	ErrInvalidDocument = errors.New("invalid document")
)
