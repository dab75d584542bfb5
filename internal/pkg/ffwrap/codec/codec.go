// Package codec generates ffmpeg video encoder arguments from a codec name,
// a named quality tier and a GPU vendor selection.
package codec

import "strings"

var nvencEncoders = map[string]string{
	"h264": "h264_nvenc",
	"h265": "hevc_nvenc",
}

var qsvEncoders = map[string]string{
	"h264": "h264_qsv",
	"h265": "hevc_qsv",
}

var amfEncoders = map[string]string{
	"h264": "h264_amf",
	"h265": "hevc_amf",
}

// BuildVideo generates the encoder argument group for the given codec,
// quality and preset on the selected GPU tier. Only h264/h265 have hardware
// paths; av1 and vp9 always use their software encoders. The function always
// returns a usable vector: an unrecognized codec falls back to libx264, so
// callers validating their inputs beforehand get strictness and everything
// else still gets a working command line.
func BuildVideo(gpu, codec, quality, preset string) []string {
	tier := TierFor(quality)
	codec = strings.ToLower(codec)
	gpu = strings.ToLower(gpu)

	switch gpu {
	case "nvidia":
		if enc, ok := nvencEncoders[codec]; ok {
			return buildNvenc(enc, tier.CRF, nvencPresetFor(preset))
		}
	case "intel":
		if enc, ok := qsvEncoders[codec]; ok {
			return buildQsv(enc, tier.GlobalQuality, preset)
		}
	case "amd":
		if enc, ok := amfEncoders[codec]; ok {
			return buildAmf(enc, tier.GlobalQuality)
		}
	}

	switch codec {
	case "h265":
		return buildLibx265(tier.CRF, preset)
	case "av1":
		return buildLibaomAv1(tier.CRF)
	case "vp9":
		return buildLibvpxVp9(tier.CRF)
	case "h264":
		return buildLibx264(tier.CRF, preset)
	default:
		return buildLibx264(tier.CRF, preset)
	}
}
