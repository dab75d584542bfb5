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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/communitybig/comm-video-converter/internal/pkg/ffwrap/codec"
)

// Command is a fully resolved ffmpeg invocation: the argument vector (without
// the binary itself), environment overrides and the output path the arguments
// will write to.
type Command struct {
	Args       []string
	Env        map[string]string
	OutputPath string
}

// resolveOutputPath picks the destination file. Explicit output_path wins;
// otherwise the input's basename lands in output_folder, or next to the
// input, with the extension replaced. A derived path that collides with the
// input (an .mp4 converted in place) gets a _converted suffix, since ffmpeg
// would truncate the file before reading it.
func resolveOutputPath(o *EncodingOptions, ext string) string {
	if o.OutputPath != "" {
		return o.OutputPath
	}
	stem := strings.TrimSuffix(filepath.Base(o.InputPath), filepath.Ext(o.InputPath))
	dir := filepath.Dir(o.InputPath)
	if o.OutputFolder != "" {
		dir = o.OutputFolder
	}
	out := filepath.Join(dir, stem+ext)
	if out == o.InputPath {
		out = filepath.Join(dir, stem+"_converted"+ext)
	}
	return out
}

// BuildCommand assembles the ffmpeg argument vector for one conversion. It
// validates the options, resolves and creates the output directory, and fails
// with a ConfigError before anything is spawned if it cannot.
func BuildCommand(opts EncodingOptions) (*Command, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	ext := ".mp4"
	if opts.OnlyExtractSubtitles {
		ext = ".srt"
	}
	output := resolveOutputPath(&opts, ext)
	if output == opts.InputPath {
		return nil, &ConfigError{Field: "output_path", Reason: "output would overwrite the input file"}
	}

	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &ConfigError{Field: "output", Reason: fmt.Sprintf("cannot create output directory %q: %v", dir, err)}
		}
	}

	var extra []string
	if strings.TrimSpace(opts.ExtraArgs) != "" {
		var err error
		extra, err = shellquote.Split(opts.ExtraArgs)
		if err != nil {
			return nil, &ConfigError{Field: "additional_options", Reason: fmt.Sprintf("cannot parse %q: %v", opts.ExtraArgs, err)}
		}
	}

	args := []string{"-y"}

	if opts.Trim.StartTime > 0 {
		args = append(args, "-ss", formatFloat(opts.Trim.StartTime))
	}
	args = append(args, "-i", opts.InputPath)
	if opts.Trim.EndTime > 0 {
		if opts.Trim.StartTime > 0 {
			// -to counts from the seeked position, so express the trim end as
			// a duration instead.
			args = append(args, "-t", formatFloat(opts.Trim.EndTime-opts.Trim.StartTime))
		} else {
			args = append(args, "-to", formatFloat(opts.Trim.EndTime))
		}
	}

	if opts.OnlyExtractSubtitles {
		args = append(args, "-map", "0:s:0?", "-c:s", "srt")
		args = append(args, extra...)
		args = append(args, output)
		return &Command{Args: args, Env: commandEnv(), OutputPath: output}, nil
	}

	if filters := BuildFilters(opts.Color, opts.Crop, opts.VideoWidth, opts.VideoHeight, opts.TargetResolution); len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	if opts.ForceCopyVideo {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args, codecArgs(opts)...)
	}

	switch opts.Audio {
	case AudioCopy:
		args = append(args, "-c:a", "copy")
	case AudioReencode:
		args = append(args, "-c:a", "aac")
		if opts.AudioBitrate != "" {
			args = append(args, "-b:a", opts.AudioBitrate)
		}
		if opts.AudioChannels > 0 {
			args = append(args, "-ac", fmt.Sprintf("%d", opts.AudioChannels))
		}
	case AudioNone:
		args = append(args, "-an")
	}

	switch opts.Subtitles {
	case SubtitleExtract:
		args = append(args, "-c:s", "mov_text")
	case SubtitleEmbedded:
		args = append(args, "-c:s", "copy")
	case SubtitleNone:
		args = append(args, "-sn")
	}

	args = append(args, extra...)
	args = append(args, output)

	return &Command{Args: args, Env: commandEnv(), OutputPath: output}, nil
}

// codecArgs builds the video encoder argument group. The auto GPU tier
// resolves to software here; vendor detection happens in configuration, not
// per invocation.
func codecArgs(o EncodingOptions) []string {
	gpu := o.GPU
	if gpu == GPUAuto {
		gpu = GPUSoftware
	}
	return codec.BuildVideo(string(gpu), string(o.Codec), string(o.Quality), string(o.Preset))
}

// commandEnv returns the environment overrides every conversion runs with.
// Colored log output would leak escape sequences into the parsed stderr
// stream.
func commandEnv() map[string]string {
	return map[string]string{"AV_LOG_FORCE_NOCOLOR": "1"}
}
