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

// Package ffwrap wraps the ffmpeg and ffprobe binaries: it builds argument
// vectors from encoding options, supervises spawned conversion processes,
// parses their stderr into progress updates and decides the terminal outcome
// of each conversion.
package ffwrap

import (
	"fmt"
	"os"
	"strings"
)

// GPU selects the hardware acceleration vendor for the video encode.
type GPU string

const (
	GPUAuto     GPU = "auto"
	GPUNvidia   GPU = "nvidia"
	GPUAmd      GPU = "amd"
	GPUIntel    GPU = "intel"
	GPUSoftware GPU = "software"
)

// VideoCodec names the target format; the concrete encoder depends on the
// selected GPU tier.
type VideoCodec string

const (
	CodecH264 VideoCodec = "h264"
	CodecH265 VideoCodec = "h265"
	CodecAV1  VideoCodec = "av1"
	CodecVP9  VideoCodec = "vp9"
)

// VideoQuality is a named tier mapped to codec specific numeric quality
// knobs by the codec subpackage.
type VideoQuality string

const (
	QualityVeryHigh VideoQuality = "veryhigh"
	QualityHigh     VideoQuality = "high"
	QualityMedium   VideoQuality = "medium"
	QualityLow      VideoQuality = "low"
	QualityVeryLow  VideoQuality = "verylow"
	QualitySuperLow VideoQuality = "superlow"
)

// Preset is the encoder speed/efficiency tradeoff.
type Preset string

const (
	PresetUltrafast Preset = "ultrafast"
	PresetVeryfast  Preset = "veryfast"
	PresetFaster    Preset = "faster"
	PresetMedium    Preset = "medium"
	PresetSlow      Preset = "slow"
	PresetVeryslow  Preset = "veryslow"
)

// AudioHandling selects what happens to the audio streams.
type AudioHandling string

const (
	AudioCopy     AudioHandling = "copy"
	AudioReencode AudioHandling = "reencode"
	AudioNone     AudioHandling = "none"
)

// SubtitleMode selects what happens to the subtitle streams.
type SubtitleMode string

const (
	SubtitleExtract  SubtitleMode = "extract"
	SubtitleEmbedded SubtitleMode = "embedded"
	SubtitleNone     SubtitleMode = "none"
)

// TrimSettings bounds the converted segment. EndTime <= 0 means "until the
// end of the source".
type TrimSettings struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// CropSettings holds pixel margins to remove from each edge.
type CropSettings struct {
	Left   int `json:"left"`
	Right  int `json:"right"`
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
}

// Enabled reports whether any margin was requested.
func (c CropSettings) Enabled() bool {
	return c.Left > 0 || c.Right > 0 || c.Top > 0 || c.Bottom > 0
}

// ColorAdjustments holds the UI scale color parameters. The neutral values
// are not all zero, so callers should start from DefaultColorAdjustments
// rather than the zero value.
type ColorAdjustments struct {
	Brightness  float64 `json:"brightness"`   // [-1, 1], neutral 0
	Contrast    float64 `json:"contrast"`     // [0, 2], neutral 1
	Saturation  float64 `json:"saturation"`   // [0, 2], neutral 1
	Gamma       float64 `json:"gamma"`        // [0, 16], neutral 1
	GammaR      float64 `json:"gamma_r"`      // [0, 16], neutral 1
	GammaG      float64 `json:"gamma_g"`      // [0, 16], neutral 1
	GammaB      float64 `json:"gamma_b"`      // [0, 16], neutral 1
	GammaWeight float64 `json:"gamma_weight"` // [0, 1], neutral 1
	Hue         float64 `json:"hue"`          // [-pi, pi] radians, neutral 0
}

// DefaultColorAdjustments returns the neutral adjustment set.
func DefaultColorAdjustments() ColorAdjustments {
	return ColorAdjustments{
		Contrast:    1,
		Saturation:  1,
		Gamma:       1,
		GammaR:      1,
		GammaG:      1,
		GammaB:      1,
		GammaWeight: 1,
	}
}

// EncodingOptions is the immutable description of one conversion. A job takes
// a snapshot of these at start time; mutating the source struct afterwards
// has no effect on a running conversion.
type EncodingOptions struct {
	InputPath    string `json:"input_path"`
	OutputPath   string `json:"output_path"`
	OutputFolder string `json:"output_folder"`

	GPU     GPU          `json:"gpu"`
	Codec   VideoCodec   `json:"video_codec"`
	Quality VideoQuality `json:"video_quality"`
	Preset  Preset       `json:"preset"`

	Audio         AudioHandling `json:"audio_handling"`
	AudioBitrate  string        `json:"audio_bitrate"`
	AudioChannels int           `json:"audio_channels"`

	Subtitles SubtitleMode `json:"subtitle_mode"`

	ForceCopyVideo       bool   `json:"force_copy_video"`
	OnlyExtractSubtitles bool   `json:"only_extract_subtitles"`
	ExtraArgs            string `json:"additional_options"`

	// Target output resolution as "WxH" or "W:H"; empty keeps the source size.
	TargetResolution string `json:"video_resolution"`

	// Source dimensions, needed for the crop filter math. Filled from
	// ProbeMetadata when left zero and a crop is requested.
	VideoWidth  int `json:"video_width"`
	VideoHeight int `json:"video_height"`

	Trim  TrimSettings     `json:"trim"`
	Crop  CropSettings     `json:"crop"`
	Color ColorAdjustments `json:"color"`
}

// ConfigError reports an options problem detected before any process was
// spawned, so callers can present "couldn't start" distinctly from a failed
// conversion.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid conversion options: %s: %s", e.Field, e.Reason)
}

// SpawnError reports an OS level launch failure (binary missing, permission).
type SpawnError struct {
	Err error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn ffmpeg: %v", e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

var validPresets = map[Preset]bool{
	PresetUltrafast: true,
	PresetVeryfast:  true,
	PresetFaster:    true,
	PresetMedium:    true,
	PresetSlow:      true,
	PresetVeryslow:  true,
}

var validQualities = map[VideoQuality]bool{
	QualityVeryHigh: true,
	QualityHigh:     true,
	QualityMedium:   true,
	QualityLow:      true,
	QualityVeryLow:  true,
	QualitySuperLow: true,
}

// Validate fills defaulted fields and rejects unknown enum values. Unknown
// values are an error rather than a silent fallback so that a corrupted
// settings store surfaces instead of quietly encoding with the wrong codec.
func (o *EncodingOptions) Validate() error {
	if strings.TrimSpace(o.InputPath) == "" {
		return &ConfigError{Field: "input_path", Reason: "must not be empty"}
	}
	if _, err := os.Stat(o.InputPath); err != nil {
		return &ConfigError{Field: "input_path", Reason: fmt.Sprintf("cannot stat %q: %v", o.InputPath, err)}
	}

	if o.Codec == "" {
		o.Codec = CodecH264
	}
	switch o.Codec {
	case CodecH264, CodecH265, CodecAV1, CodecVP9:
	default:
		return &ConfigError{Field: "video_codec", Reason: fmt.Sprintf("unknown codec %q", o.Codec)}
	}

	if o.Quality == "" {
		o.Quality = QualityMedium
	}
	if !validQualities[o.Quality] {
		return &ConfigError{Field: "video_quality", Reason: fmt.Sprintf("unknown quality %q", o.Quality)}
	}

	if o.Preset == "" {
		o.Preset = PresetMedium
	}
	if !validPresets[o.Preset] {
		return &ConfigError{Field: "preset", Reason: fmt.Sprintf("unknown preset %q", o.Preset)}
	}

	if o.GPU == "" {
		o.GPU = GPUAuto
	}
	switch o.GPU {
	case GPUAuto, GPUNvidia, GPUAmd, GPUIntel, GPUSoftware:
	default:
		return &ConfigError{Field: "gpu", Reason: fmt.Sprintf("unknown gpu selection %q", o.GPU)}
	}

	if o.Audio == "" {
		o.Audio = AudioCopy
	}
	switch o.Audio {
	case AudioCopy, AudioReencode, AudioNone:
	default:
		return &ConfigError{Field: "audio_handling", Reason: fmt.Sprintf("unknown audio handling %q", o.Audio)}
	}

	if o.Subtitles == "" {
		o.Subtitles = SubtitleNone
	}
	switch o.Subtitles {
	case SubtitleExtract, SubtitleEmbedded, SubtitleNone:
	default:
		return &ConfigError{Field: "subtitle_mode", Reason: fmt.Sprintf("unknown subtitle mode %q", o.Subtitles)}
	}

	if o.Trim.StartTime < 0 {
		return &ConfigError{Field: "trim.start_time", Reason: "must not be negative"}
	}
	if o.Trim.EndTime > 0 && o.Trim.EndTime <= o.Trim.StartTime {
		return &ConfigError{Field: "trim.end_time", Reason: "must be greater than start_time"}
	}

	if o.Crop.Left < 0 || o.Crop.Right < 0 || o.Crop.Top < 0 || o.Crop.Bottom < 0 {
		return &ConfigError{Field: "crop", Reason: "margins must not be negative"}
	}

	return nil
}
