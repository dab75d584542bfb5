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

//go:build windows
// +build windows

package ffwrap

import (
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/logger"
)

func setNewProcessGroup(cmd *exec.Cmd) {
	// Windows has no process groups in the POSIX sense; taskkill /T below
	// walks the tree from the child's pid instead.
}

// terminateProcessGroup asks the whole process tree rooted at pid to close,
// waits out the grace period, then force-kills whatever survived.
func terminateProcessGroup(pid int, grace time.Duration) {
	p := strconv.Itoa(pid)
	if err := exec.Command("taskkill", "/T", "/PID", p).Run(); err != nil {
		logger.Infof("taskkill for pid %d: %v", pid, err)
	}
	time.Sleep(grace)
	// A failure here means the tree already exited during the grace period.
	exec.Command("taskkill", "/T", "/F", "/PID", p).Run()
}

func reniceProcessGroup(pid, niceValue int) error {
	return fmt.Errorf("priority adjustment not supported on windows")
}
