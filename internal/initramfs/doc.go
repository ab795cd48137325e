// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package initramfs packs a directory tree into a zstd compressed newc CPIO
// archive as expected by the Linux kernel for an initial RAM filesystem.
//
// All entries are owned by root. Inode numbers are assigned sequentially in
// walk order, starting at 1.
package initramfs
