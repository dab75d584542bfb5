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

package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/communitybig/comm-video-converter/internal/pkg/ffwrap"
)

// fakeJob is a Runner that records its concurrency and reacts to Cancel.
type fakeJob struct {
	current *atomic.Int64
	peak    *atomic.Int64
	err     error
	outcome ffwrap.Outcome

	cancelOnce sync.Once
	cancelled  chan struct{}
	block      bool

	mu     sync.Mutex
	done   bool
	result ffwrap.Result
}

func newFakeJob(current, peak *atomic.Int64) *fakeJob {
	return &fakeJob{
		current:   current,
		peak:      peak,
		outcome:   ffwrap.OutcomeSuccess,
		cancelled: make(chan struct{}),
	}
}

func (f *fakeJob) Run(ctx context.Context) error {
	n := f.current.Add(1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	defer f.current.Add(-1)

	if f.block {
		select {
		case <-f.cancelled:
		case <-ctx.Done():
		}
		f.finish(ffwrap.OutcomeCancelled)
		return nil
	}
	time.Sleep(20 * time.Millisecond)
	if f.err != nil {
		return f.err
	}
	f.finish(f.outcome)
	return nil
}

func (f *fakeJob) finish(outcome ffwrap.Outcome) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = true
	f.result = ffwrap.Result{Outcome: outcome}
}

func (f *fakeJob) Cancel() {
	f.cancelOnce.Do(func() { close(f.cancelled) })
}

func (f *fakeJob) Result() (ffwrap.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.done
}

func TestCoordinatorBoundsConcurrency(t *testing.T) {
	var current, peak atomic.Int64
	c := NewCoordinator(2)

	for i := 0; i < 7; i++ {
		c.Add(newFakeJob(&current, &peak))
	}
	c.Wait()

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want at most 2", got)
	}
	if got := c.Completed(); got != 7 {
		t.Errorf("Completed() = %d, want 7", got)
	}
	if got := c.Active(); got != 0 {
		t.Errorf("Active() = %d, want 0 after Wait", got)
	}
}

func TestCoordinatorCountsFailures(t *testing.T) {
	var current, peak atomic.Int64
	c := NewCoordinator(2)

	good := newFakeJob(&current, &peak)
	unlaunched := newFakeJob(&current, &peak)
	unlaunched.err = errors.New("bad input")
	crashed := newFakeJob(&current, &peak)
	crashed.outcome = ffwrap.OutcomeFailure

	c.Add(good)
	c.Add(unlaunched)
	c.Add(crashed)
	c.Wait()

	if got := c.Completed(); got != 1 {
		t.Errorf("Completed() = %d, want 1", got)
	}
	if got := c.Failed(); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
}

func TestCoordinatorCancelSkipsQueued(t *testing.T) {
	var current, peak atomic.Int64
	c := NewCoordinator(1)

	first := newFakeJob(&current, &peak)
	first.block = true
	c.Add(first)

	// Wait for the first job to hold the only worker slot.
	deadline := time.Now().Add(2 * time.Second)
	for current.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("first job never started")
		}
		time.Sleep(time.Millisecond)
	}

	queued := make([]*fakeJob, 3)
	for i := range queued {
		queued[i] = newFakeJob(&current, &peak)
		queued[i].block = true
		c.Add(queued[i])
	}

	c.Cancel()
	done := make(chan struct{})
	go func() { c.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Wait() did not return after Cancel")
	}

	if got := c.Completed(); got != 0 {
		t.Errorf("Completed() = %d, want 0", got)
	}
	if got := c.Cancelled(); got != 1 {
		t.Errorf("Cancelled() = %d, want only the running job", got)
	}
	if got := c.Skipped(); got != 3 {
		t.Errorf("Skipped() = %d, want 3", got)
	}

	// The running job must have seen an actual cancellation.
	select {
	case <-first.cancelled:
	default:
		t.Error("running job was not cancelled")
	}
}

func TestCoordinatorCancelIdempotent(t *testing.T) {
	c := NewCoordinator(1)
	c.Cancel()
	c.Cancel()
	c.Wait()
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	files := []string{"b.mkv", "a.mp4", "notes.txt", "clip.MOV", "cover.jpg"}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), nil, 0644); err != nil {
			t.Fatalf("failed to create %s: %v", f, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("failed to create subdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "nested.mp4"), nil, 0644); err != nil {
		t.Fatalf("failed to create nested file: %v", err)
	}

	got, err := ScanDirectory(dir)
	if err != nil {
		t.Fatalf("ScanDirectory() error: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.mp4"),
		filepath.Join(dir, "b.mkv"),
		filepath.Join(dir, "clip.MOV"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ScanDirectory() = %#v, want %#v", got, want)
	}
}

func TestScanDirectoryMissing(t *testing.T) {
	if _, err := ScanDirectory(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("ScanDirectory() on a missing directory should fail")
	}
}
