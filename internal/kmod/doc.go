// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package kmod discovers installed kernels and resolves kernel module
// dependencies from the depmod generated modules.dep index.
package kmod
