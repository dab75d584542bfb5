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
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/logger"
)

var (
	ffmpegbinary  = "ffmpeg"
	ffprobebinary = "ffprobe"
)

// SetBinaryLocations overrides the ffmpeg and ffprobe executables used for
// probing and frame extraction. Empty values keep the current setting.
func SetBinaryLocations(ffmpeg, ffprobe string) {
	if ffmpeg != "" {
		ffmpegbinary = ffmpeg
	}
	if ffprobe != "" {
		ffprobebinary = ffprobe
	}
}

// MediaMetadata describes the first video stream of a probed file.
type MediaMetadata struct {
	Duration float64
	Width    int
	Height   int
	FPS      float64
	Codec    string
}

// FfprobeOutput maps the subset of ffprobe's JSON output we consume.
type FfprobeOutput struct {
	Streams []struct {
		Codec     string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		FrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeMetadata retrieves codec, dimensions, frame rate and duration for the
// first video stream of source by running ffprobe and parsing its JSON
// output.
func ProbeMetadata(ctx context.Context, source string) (MediaMetadata, error) {
	args := []string{
		"-v", "error", "-select_streams", "v:0", "-show_format", "-show_entries",
		"stream=codec_name,width,height,r_frame_rate", "-print_format", "json", source,
	}
	logger.Infof("calling ffprobe with: %#v", args)
	cmd := exec.CommandContext(ctx, ffprobebinary, args...)
	sto, err := cmd.Output()
	if err != nil && cmd.ProcessState.ExitCode() != 0 {
		return MediaMetadata{}, fmt.Errorf("%q ffprobe unexpect output: %v or exit code: %q", source, err, cmd.ProcessState.ExitCode())
	}

	var ffp FfprobeOutput
	if err := json.Unmarshal(sto, &ffp); err != nil {
		return MediaMetadata{}, fmt.Errorf("unmarshall ffprobe data %#v: %w", sto, err)
	}

	if len(ffp.Streams) != 1 {
		return MediaMetadata{}, fmt.Errorf("got %d streams in ffprobe output; expected 1", len(ffp.Streams))
	}

	duration, err := strconv.ParseFloat(ffp.Format.Duration, 64)
	if err != nil {
		duration = 0
	}

	return MediaMetadata{
		Duration: duration,
		Codec:    ffp.Streams[0].Codec,
		Width:    ffp.Streams[0].Width,
		Height:   ffp.Streams[0].Height,
		FPS:      parseFrameRate(ffp.Streams[0].FrameRate),
	}, nil
}

// parseFrameRate converts ffprobe's rational frame rate ("30000/1001") to a
// float. Malformed or zero-denominator input yields 0.
func parseFrameRate(r string) float64 {
	num, den, found := strings.Cut(r, "/")
	if !found {
		f, err := strconv.ParseFloat(r, 64)
		if err != nil {
			return 0
		}
		return f
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// ExtractFrame writes a single frame from source at position seconds into
// outputPath as an image. quality follows ffmpeg's -q:v scale where lower is
// better; values outside 1..31 are clamped.
func ExtractFrame(ctx context.Context, source, outputPath string, position float64, quality int) error {
	if quality < 1 {
		quality = 1
	}
	if quality > 31 {
		quality = 31
	}
	args := []string{
		"-y", "-v", "error",
		"-ss", strconv.FormatFloat(position, 'f', -1, 64),
		"-i", source,
		"-vframes", "1",
		"-q:v", strconv.Itoa(quality),
		outputPath,
	}
	logger.Infof("extracting frame with args %#v", args)
	cmd := exec.CommandContext(ctx, ffmpegbinary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("failed to extract frame from %q: %v: %s", source, err, out)
	}
	return nil
}
