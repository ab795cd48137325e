// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bootconfig reads and writes the microhop configuration file.
//
// The same format serves as build profile for microgen and as boot
// configuration inside the image:
//
//	modules:
//	  - virtio_blk
//	  - ext4
//	disks:
//	  /dev/vda1: ext4,/,rw
//	  LABEL_DATA: xfs,/data,ro
//	init: /sbin/init
//	sysroot: /sysroot
//	log: info
//
// Disk values are "fstype,mountpoint[,mode]". The order of disks is kept
// as written.
package bootconfig
