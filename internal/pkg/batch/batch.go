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

// Package batch runs a set of conversion jobs with bounded concurrency and
// shared cancellation.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/logger"
	"golang.org/x/sync/semaphore"

	"github.com/communitybig/comm-video-converter/internal/pkg/ffwrap"
)

// Runner is one unit of batch work. ffwrap.Job satisfies it. Run returns an
// error only when the job never launched; once launched, the terminal state
// comes from Result.
type Runner interface {
	Run(ctx context.Context) error
	Cancel()
	Result() (ffwrap.Result, bool)
}

// videoExtensions are the file suffixes ScanDirectory treats as convertible
// input.
var videoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".mov":  true,
	".avi":  true,
	".wmv":  true,
	".mpeg": true,
	".mpg":  true,
	".m4v":  true,
	".ts":   true,
	".flv":  true,
}

// ScanDirectory returns the video files directly inside dir, sorted by name.
// Subdirectories are not descended into.
func ScanDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if videoExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Coordinator executes Runners with at most Workers running concurrently.
// A shared Cancel stops running jobs and skips everything not yet started.
type Coordinator struct {
	workers int64
	sem     *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc

	wg sync.WaitGroup

	mu      sync.Mutex
	running map[Runner]struct{}

	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
	skipped   atomic.Int64
}

// NewCoordinator builds a Coordinator admitting at most workers jobs at a
// time. workers below 1 is treated as 1.
func NewCoordinator(workers int) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		workers: int64(workers),
		sem:     semaphore.NewWeighted(int64(workers)),
		ctx:     ctx,
		cancel:  cancel,
		running: map[Runner]struct{}{},
	}
}

// Add enqueues a job. It returns immediately; the job starts once a worker
// slot frees up. Jobs added after Cancel are counted as skipped without
// running.
func (c *Coordinator) Add(job Runner) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if err := c.sem.Acquire(c.ctx, 1); err != nil {
			c.skipped.Add(1)
			return
		}
		defer c.sem.Release(1)

		// Cancel may have landed between acquisition and this check.
		select {
		case <-c.ctx.Done():
			c.skipped.Add(1)
			return
		default:
		}

		c.mu.Lock()
		c.running[job] = struct{}{}
		c.mu.Unlock()
		c.active.Add(1)

		err := job.Run(c.ctx)

		c.active.Add(-1)
		c.mu.Lock()
		delete(c.running, job)
		c.mu.Unlock()

		c.record(job, err)
	}()
}

// record folds one finished job into the aggregate counters.
func (c *Coordinator) record(job Runner, err error) {
	if err != nil {
		logger.Errorf("batch job failed to start: %v", err)
		c.failed.Add(1)
		return
	}
	result, ok := job.Result()
	if !ok {
		// Run returned nil without a terminal result. Treat the job as
		// failed rather than silently counting it converted.
		logger.Errorf("batch job finished without reporting a result")
		c.failed.Add(1)
		return
	}
	switch result.Outcome {
	case ffwrap.OutcomeFailure:
		logger.Errorf("batch job failed: %s", result.Detail)
		c.failed.Add(1)
	case ffwrap.OutcomeCancelled:
		c.cancelled.Add(1)
	default:
		c.completed.Add(1)
	}
}

// Cancel stops the batch: running jobs are cancelled and queued jobs never
// start. Idempotent.
func (c *Coordinator) Cancel() {
	c.cancel()
	c.mu.Lock()
	defer c.mu.Unlock()
	for job := range c.running {
		job.Cancel()
	}
}

// Wait blocks until every added job has finished or been skipped.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Active reports how many jobs are currently running.
func (c *Coordinator) Active() int { return int(c.active.Load()) }

// Completed reports how many jobs converted successfully.
func (c *Coordinator) Completed() int { return int(c.completed.Load()) }

// Failed reports how many jobs errored, either before launching ffmpeg or
// with a failure exit.
func (c *Coordinator) Failed() int { return int(c.failed.Load()) }

// Cancelled reports how many running jobs were stopped by cancellation.
func (c *Coordinator) Cancelled() int { return int(c.cancelled.Load()) }

// Skipped reports how many jobs never started because of cancellation.
func (c *Coordinator) Skipped() int { return int(c.skipped.Load()) }
