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

// Sink receives job lifecycle events. All methods on one Sink are invoked
// from a single dispatcher goroutine in event order, so implementations need
// no locking of their own. Callbacks must not block for long; the event
// queue is bounded and a slow sink eventually backpressures the log readers.
type Sink interface {
	// OnOutputLine receives every raw ffmpeg output line.
	OnOutputLine(line string)
	// OnStatus reports a coarse phase change such as "Processing video...".
	OnStatus(status string)
	// OnProgress reports the completed fraction in [0,1]. eta is the
	// estimated seconds remaining and only meaningful when hasETA is true.
	OnProgress(fraction, eta float64, hasETA bool)
	// OnStalled fires when no output arrived for the stall timeout. The job
	// keeps running; cancellation is the caller's decision.
	OnStalled()
	// OnTerminal delivers the final result exactly once, after which no
	// further events arrive.
	OnTerminal(result Result)
}

// NopSink discards all events. Useful as an embedding base when only some
// callbacks matter.
type NopSink struct{}

func (NopSink) OnOutputLine(string)               {}
func (NopSink) OnStatus(string)                   {}
func (NopSink) OnProgress(float64, float64, bool) {}
func (NopSink) OnStalled()                        {}
func (NopSink) OnTerminal(Result)                 {}
