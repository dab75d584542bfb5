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

package ffwrap

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/logger"
)

// DefaultStallTimeout is how long the supervisor waits without output before
// raising a stall notice.
const DefaultStallTimeout = 15 * time.Second

// killGrace is how long a terminated process group gets before the kill is
// escalated to SIGKILL.
const killGrace = 2 * time.Second

var errAlreadyStarted = errors.New("supervisor already started")

// ExitOutcome is the reaped state of a supervised process. Cancelled takes
// precedence: a cancellation requested while the process was still alive is
// reported as Cancelled regardless of the exit code, since the process was
// forcibly killed.
type ExitOutcome struct {
	Cancelled bool
	Code      int
}

// Supervisor owns the lifecycle of one spawned ffmpeg process: launch in its
// own process group, stream stderr line by line, handle cancellation with a
// group-wide kill, and reap the exit status. Configure the exported fields
// before Start; they must not change afterwards.
type Supervisor struct {
	// Binary is the ffmpeg executable path.
	Binary string
	// Dir is the working directory for the child; empty inherits.
	Dir string
	// Nice lowers the spawned process group's scheduling priority when >0
	// (unix only).
	Nice int
	// StallTimeout overrides DefaultStallTimeout when >0.
	StallTimeout time.Duration
	// OnLine receives every stderr and stdout line, invoked from the reader
	// goroutines.
	OnLine func(line string)
	// OnStall is invoked once per quiet period when no output arrived for
	// StallTimeout. The supervisor never cancels on its own.
	OnStall func()

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	started   bool
	cancelled bool
	exited    bool
	exitCode  int

	lastLine   time.Time
	notifiedAt time.Time

	stderrDone chan struct{}
	stdoutDone chan struct{}
	procDone   chan struct{}
}

// Start spawns the process as the leader of a new process group so that a
// later cancel can signal ffmpeg together with any helper children it forks.
// On launch failure it returns a SpawnError; there is no retry.
func (s *Supervisor) Start(args []string, env map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return &SpawnError{Err: errAlreadyStarted}
	}

	cmd := exec.Command(s.Binary, args...)
	cmd.Dir = s.Dir
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}
	setNewProcessGroup(cmd)

	// Keep stdin open: some ffmpeg builds poll it and exit early when the
	// pipe is closed.
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &SpawnError{Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &SpawnError{Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &SpawnError{Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &SpawnError{Err: err}
	}

	if s.Nice > 0 {
		if err := reniceProcessGroup(cmd.Process.Pid, s.Nice); err != nil {
			logger.Warningf("could not renice ffmpeg pid %d: %v", cmd.Process.Pid, err)
		}
	}

	s.cmd = cmd
	s.stdin = stdin
	s.started = true
	s.lastLine = time.Now()
	s.stderrDone = make(chan struct{})
	s.stdoutDone = make(chan struct{})
	s.procDone = make(chan struct{})

	go s.readLoop(stderr, s.stderrDone)
	go s.readLoop(stdout, s.stdoutDone)
	go s.watchdog()
	go s.reap()

	return nil
}

// readLoop streams one pipe line by line. Both stderr (the progress channel)
// and stdout (usually silent, but it must be drained or the child stalls on a
// full pipe buffer) go through the same path. Read errors mean the process
// terminated; the loop just ends and reaping proceeds.
func (s *Supervisor) readLoop(r io.Reader, done chan struct{}) {
	defer close(done)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		s.mu.Lock()
		s.lastLine = time.Now()
		cancelled := s.cancelled
		s.mu.Unlock()

		if s.OnLine != nil {
			s.OnLine(line)
		}
		if cancelled {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		// Broken pipe after a kill is the normal cancellation path; anything
		// else is logged but still treated as loop termination so the job
		// can never hang in Running.
		logger.Infof("ffmpeg output stream closed: %v", err)
	}
}

// watchdog raises a one-time stall notice per quiet period.
func (s *Supervisor) watchdog() {
	timeout := s.StallTimeout
	if timeout <= 0 {
		timeout = DefaultStallTimeout
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-s.procDone:
			return
		case <-ticker.C:
			s.mu.Lock()
			stalled := time.Since(s.lastLine) > timeout && !s.notifiedAt.Equal(s.lastLine)
			if stalled {
				s.notifiedAt = s.lastLine
			}
			s.mu.Unlock()
			if stalled && s.OnStall != nil {
				s.OnStall()
			}
		}
	}
}

// reap waits for both pipes to drain, then collects the exit status. Runs
// regardless of whether anyone called Wait yet, so a naturally finished
// process is observed as exited as soon as possible.
func (s *Supervisor) reap() {
	<-s.stderrDone
	<-s.stdoutDone

	err := s.cmd.Wait()
	code := 0
	if err != nil {
		if s.cmd.ProcessState != nil {
			code = s.cmd.ProcessState.ExitCode()
		} else {
			code = -1
		}
	}

	s.mu.Lock()
	s.exited = true
	s.exitCode = code
	s.stdin.Close()
	s.mu.Unlock()
	close(s.procDone)
}

// Cancel requests termination of the whole process group. It is idempotent,
// never blocks, and is a no-op once the process has already been reaped; a
// natural exit observed before the cancellation wins.
func (s *Supervisor) Cancel() {
	s.mu.Lock()
	if !s.started || s.cancelled || s.exited {
		s.mu.Unlock()
		return
	}
	s.cancelled = true
	pid := s.cmd.Process.Pid
	s.mu.Unlock()

	go terminateProcessGroup(pid, killGrace)
}

// Wait blocks until the output streams have drained and the process has been
// reaped, then reports the outcome. A cancellation flag set while the
// process was alive always yields Cancelled, even if the reaped exit code
// happens to be zero.
func (s *Supervisor) Wait() ExitOutcome {
	<-s.procDone

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return ExitOutcome{Cancelled: true}
	}
	return ExitOutcome{Code: s.exitCode}
}
