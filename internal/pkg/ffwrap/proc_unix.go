// Copyright 2025 CommunityBig
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build linux || darwin
// +build linux darwin

package ffwrap

import (
	"fmt"
	"os/exec"
	"syscall"
	"time"
)

// setNewProcessGroup makes the child a session leader so the whole ffmpeg
// process group can be signalled at once.
func setNewProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// terminateProcessGroup sends SIGTERM to the child's process group, grants it
// the grace period to exit cleanly, and escalates to SIGKILL if anything in
// the group is still alive.
func terminateProcessGroup(pid int, grace time.Duration) {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		// Already reaped.
		return
	}

	syscall.Kill(-pgid, syscall.SIGTERM)

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		// Signal 0 probes for liveness without delivering anything.
		if err := syscall.Kill(-pgid, syscall.Signal(0)); err != nil {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	syscall.Kill(-pgid, syscall.SIGKILL)
}

// reniceProcessGroup lowers the scheduling priority of the child's process
// group. Range is -20 to 19 where 19 is the least favorably scheduled.
func reniceProcessGroup(pid, niceValue int) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		return fmt.Errorf("Getpgid for pid: %v returned: %v", pid, err)
	}
	if err := syscall.Setpriority(syscall.PRIO_PGRP, pgid, niceValue); err != nil {
		return fmt.Errorf("Setpriority for pgid: %v returned: %v", pgid, err)
	}
	return nil
}
