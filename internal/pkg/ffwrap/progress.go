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
	"regexp"
	"strconv"
	"time"
)

var (
	// durationRegex extracts the total duration from ffmpeg's input banner.
	durationRegex = regexp.MustCompile(`Duration: (\d+):(\d+):(\d+(?:\.\d+)?)`)
	// timeRegex extracts the current position from ffmpeg's progress lines.
	timeRegex = regexp.MustCompile(`time=(\d+):(\d+):(\d+(?:\.\d+)?)`)
	// outputRegex extracts the destination path ffmpeg reports it is writing.
	outputRegex = regexp.MustCompile(`Output #0.*?'(.*?)'`)
)

const (
	// maxSamples bounds the throughput history.
	maxSamples = 10
	// etaWindow is how many of the newest samples feed the ETA slope.
	etaWindow = 5
)

// UpdateKind tags what a parsed line produced.
type UpdateKind int

const (
	// UpdateStatus carries a human readable status transition.
	UpdateStatus UpdateKind = iota
	// UpdateProgress carries a fraction and possibly an ETA.
	UpdateProgress
)

// Update is one parsed progress event.
type Update struct {
	Kind     UpdateKind
	Status   string
	Fraction float64
	// ETASeconds is only meaningful when HasETA is true.
	ETASeconds float64
	HasETA     bool
}

type sample struct {
	videoSecs float64
	wallSecs  float64
}

// Parser is a stateful line oriented parser over ffmpeg's stderr stream. It
// is not safe for concurrent use; feed it from the single goroutine reading
// the process output.
type Parser struct {
	durationSecs float64
	haveDuration bool
	currentSecs  float64
	outputFile   string

	start   time.Time
	samples []sample

	// now is swappable for tests.
	now func() time.Time
}

// NewParser returns a parser whose wall clock starts ticking immediately.
func NewParser() *Parser {
	p := &Parser{now: time.Now}
	p.start = p.now()
	return p
}

func parseClock(h, m, s string) float64 {
	hours, _ := strconv.ParseFloat(h, 64)
	mins, _ := strconv.ParseFloat(m, 64)
	secs, _ := strconv.ParseFloat(s, 64)
	return hours*3600 + mins*60 + secs
}

// Duration returns the detected total duration in seconds, or 0.
func (p *Parser) Duration() float64 { return p.durationSecs }

// CurrentTime returns the last parsed position in seconds.
func (p *Parser) CurrentTime() float64 { return p.currentSecs }

// OutputFile returns the destination path ffmpeg reported, or "".
func (p *Parser) OutputFile() string { return p.outputFile }

// ConsumeLine feeds one stderr line through the parser. It returns an update
// and true when the line changed the progress state; lines matching no known
// pattern return false and are simply raw output.
func (p *Parser) ConsumeLine(line string) (Update, bool) {
	if !p.haveDuration {
		if m := durationRegex.FindStringSubmatch(line); m != nil {
			p.durationSecs = parseClock(m[1], m[2], m[3])
			p.haveDuration = true
			return Update{Kind: UpdateStatus, Status: "Processing video..."}, true
		}
	}

	if m := outputRegex.FindStringSubmatch(line); m != nil {
		// ffmpeg can log several Output sections; the last one wins.
		p.outputFile = m[1]
		return Update{}, false
	}

	if p.haveDuration && p.durationSecs > 0 {
		if m := timeRegex.FindStringSubmatch(line); m != nil {
			p.currentSecs = parseClock(m[1], m[2], m[3])
			fraction := p.currentSecs / p.durationSecs
			if fraction > 1.0 {
				fraction = 1.0
			}

			p.samples = append(p.samples, sample{
				videoSecs: p.currentSecs,
				wallSecs:  p.now().Sub(p.start).Seconds(),
			})
			if len(p.samples) > maxSamples {
				p.samples = p.samples[len(p.samples)-maxSamples:]
			}

			eta, ok := p.estimateETA()
			return Update{
				Kind:       UpdateProgress,
				Fraction:   fraction,
				ETASeconds: eta,
				HasETA:     ok,
			}, true
		}
	}

	return Update{}, false
}

// estimateETA computes remaining wall seconds from the slope across the
// newest samples. A short recent window tracks the encoder's variable rate
// better than a whole-run average, especially near the end of long jobs.
func (p *Parser) estimateETA() (float64, bool) {
	if len(p.samples) < 2 {
		return 0, false
	}
	window := p.samples
	if len(window) > etaWindow {
		window = window[len(window)-etaWindow:]
	}
	oldest, newest := window[0], window[len(window)-1]
	dv := newest.videoSecs - oldest.videoSecs
	dw := newest.wallSecs - oldest.wallSecs
	if dv <= 0 || dw <= 0 {
		return 0, false
	}
	rate := dv / dw
	remaining := (p.durationSecs - p.currentSecs) / rate
	if remaining < 0 {
		remaining = 0
	}
	// Near-zero rates produce absurd estimates; cap at twice the video
	// length rather than report hours for a seconds-long clip.
	if limit := 2 * p.durationSecs; remaining > limit {
		remaining = limit
	}
	return remaining, true
}
