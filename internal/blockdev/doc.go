// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package blockdev enumerates disk partitions of the running system and
// resolves them by path, filesystem UUID or filesystem label.
package blockdev
