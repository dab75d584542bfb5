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
	"context"
	"sync"
	"time"

	"github.com/google/logger"
)

const eventQueueDepth = 256

type eventKind int

const (
	eventLine eventKind = iota
	eventStatus
	eventProgress
	eventStalled
	eventTerminal
)

type jobEvent struct {
	kind     eventKind
	line     string
	status   string
	fraction float64
	eta      float64
	hasETA   bool
	result   Result
}

// Job runs one conversion end to end: validate the options, probe the input
// when filter synthesis needs dimensions, build the command, supervise the
// ffmpeg process while translating its output into sink events, and resolve
// the final outcome. A Job is single use.
type Job struct {
	Opts EncodingOptions
	Sink Sink

	// DeleteOriginal removes the input file after a successful conversion,
	// subject to the output size sanity check.
	DeleteOriginal bool
	// Nice lowers the ffmpeg process group's scheduling priority when >0.
	Nice int
	// StallTimeout overrides the default quiet-period threshold when >0.
	StallTimeout time.Duration

	mu       sync.Mutex
	sup      *Supervisor
	finished bool
	result   Result

	cancelMu  sync.Mutex
	cancelled bool
}

// Run executes the job and blocks until the terminal state. Setup failures
// (invalid options, unlaunchable binary) are returned directly and produce
// no sink events; once ffmpeg is running the outcome is always delivered
// through OnTerminal and Run returns nil.
func (j *Job) Run(ctx context.Context) error {
	opts := j.Opts
	if err := opts.Validate(); err != nil {
		return err
	}

	// Crop synthesis needs the input dimensions; fill them from ffprobe when
	// the caller did not supply them.
	if opts.Crop.Enabled() && (opts.VideoWidth == 0 || opts.VideoHeight == 0) {
		meta, err := ProbeMetadata(ctx, opts.InputPath)
		if err != nil {
			return &ConfigError{Field: "crop", Reason: "could not probe input dimensions: " + err.Error()}
		}
		opts.VideoWidth = meta.Width
		opts.VideoHeight = meta.Height
	}

	command, err := BuildCommand(opts)
	if err != nil {
		return err
	}
	logger.Infof("ffmpeg args for %q: %#v", opts.InputPath, command.Args)

	events := make(chan jobEvent, eventQueueDepth)
	dispatcherDone := make(chan struct{})
	go j.dispatch(events, dispatcherDone)

	parser := NewParser()
	var parserMu sync.Mutex

	sup := &Supervisor{
		Binary:       ffmpegbinary,
		Nice:         j.Nice,
		StallTimeout: j.StallTimeout,
		OnLine: func(line string) {
			events <- jobEvent{kind: eventLine, line: line}
			parserMu.Lock()
			update, ok := parser.ConsumeLine(line)
			parserMu.Unlock()
			if !ok {
				return
			}
			switch update.Kind {
			case UpdateStatus:
				events <- jobEvent{kind: eventStatus, status: update.Status}
			case UpdateProgress:
				events <- jobEvent{
					kind:     eventProgress,
					fraction: update.Fraction,
					eta:      update.ETASeconds,
					hasETA:   update.HasETA,
				}
			}
		},
		OnStall: func() {
			events <- jobEvent{kind: eventStalled}
		},
	}

	if err := sup.Start(command.Args, command.Env); err != nil {
		close(events)
		<-dispatcherDone
		return err
	}

	j.mu.Lock()
	j.sup = sup
	j.mu.Unlock()

	// An early cancellation may have arrived between construction and the
	// supervisor becoming visible.
	j.cancelMu.Lock()
	if j.cancelled {
		sup.Cancel()
	}
	j.cancelMu.Unlock()

	exit := sup.Wait()

	parserMu.Lock()
	outputPath := parser.OutputFile()
	parserMu.Unlock()
	if outputPath == "" {
		outputPath = command.OutputPath
	}

	result := ResolveCompletion(exit, j.DeleteOriginal, opts.InputPath, outputPath)

	j.mu.Lock()
	j.finished = true
	j.result = result
	j.mu.Unlock()

	// The terminal event ends the dispatcher. The channel is deliberately
	// left open: the stall watchdog races the reaper and may still enqueue a
	// late event, which is simply never delivered.
	events <- jobEvent{kind: eventTerminal, result: result}
	<-dispatcherDone
	return nil
}

// dispatch delivers events to the sink from a single goroutine so that sink
// implementations observe them strictly in order. It ends on the terminal
// event or when the channel closes, whichever comes first.
func (j *Job) dispatch(events <-chan jobEvent, done chan struct{}) {
	defer close(done)
	for ev := range events {
		if j.Sink != nil {
			switch ev.kind {
			case eventLine:
				j.Sink.OnOutputLine(ev.line)
			case eventStatus:
				j.Sink.OnStatus(ev.status)
			case eventProgress:
				j.Sink.OnProgress(ev.fraction, ev.eta, ev.hasETA)
			case eventStalled:
				j.Sink.OnStalled()
			case eventTerminal:
				j.Sink.OnTerminal(ev.result)
			}
		}
		if ev.kind == eventTerminal {
			return
		}
	}
}

// Cancel requests termination. Safe to call at any point in the job's life,
// from any goroutine, and any number of times.
func (j *Job) Cancel() {
	j.cancelMu.Lock()
	j.cancelled = true
	j.cancelMu.Unlock()

	j.mu.Lock()
	sup := j.sup
	j.mu.Unlock()
	if sup != nil {
		sup.Cancel()
	}
}

// Result reports the terminal result. ok is false while the job is still
// running or if it failed before ffmpeg launched.
func (j *Job) Result() (result Result, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result, j.finished
}
