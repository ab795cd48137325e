// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package sysinit

import "fmt"

// Stage is the progress of the boot sequence. Stages only move forward.
type Stage int

// Boot stages in the order they are reached.
const (
	StageStart Stage = iota
	StageModulesLoaded
	StagePseudoMounted
	StageDevicesProbed
	StageDisksResolved
	StageDisksMounted
	StagePseudoRehomed
	StageRootPurged
	StageRootSwitched
	StageInitExecuted
)

//nolint:gochecknoglobals
var stageNames = [...]string{
	StageStart:         "start",
	StageModulesLoaded: "modules-loaded",
	StagePseudoMounted: "pseudo-mounted",
	StageDevicesProbed: "devices-probed",
	StageDisksResolved: "disks-resolved",
	StageDisksMounted:  "disks-mounted",
	StagePseudoRehomed: "pseudo-rehomed",
	StageRootPurged:    "root-purged",
	StageRootSwitched:  "root-switched",
	StageInitExecuted:  "init-executed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}

	return stageNames[s]
}
