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
	"math"
	"strconv"
	"strings"
)

// floatThreshold is how far a color value must sit from its neutral default
// before it is emitted into the filter graph. Emitting exact-default values
// would add a no-op eq= clause that still changes ffmpeg's filter chain.
const floatThreshold = 0.01

func nonDefault(v, def float64) bool {
	return math.Abs(v-def) > floatThreshold
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// uiContrastToFFmpeg converts the UI contrast scale (0..2, neutral 1) to
// ffmpeg's eq contrast scale (-2..2, neutral 0).
func uiContrastToFFmpeg(c float64) float64 {
	return (c - 1.0) * 2
}

// uiHueToDegrees converts the UI hue in radians to the degrees ffmpeg's hue
// filter expects.
func uiHueToDegrees(h float64) float64 {
	return h * 180 / math.Pi
}

// NormalizeResolution accepts "WxH" or "W:H" and returns the "W:H" form
// ffmpeg's scale filter requires. Unrecognized input is returned as-is.
func NormalizeResolution(res string) string {
	res = strings.TrimSpace(res)
	if res == "" {
		return ""
	}
	res = strings.ReplaceAll(res, "X", "x")
	return strings.ReplaceAll(res, "x", ":")
}

// BuildFilters translates the adjustment parameters into an ordered list of
// ffmpeg filter expressions. Order is fixed: crop, hue, eq, scale. ffmpeg
// applies filters left to right and the crop must run against source
// dimensions, before any scale. An empty result means the caller must omit
// -vf entirely rather than pass an empty filter graph.
func BuildFilters(color ColorAdjustments, crop CropSettings, videoW, videoH int, targetResolution string) []string {
	var filters []string

	if crop.Enabled() && videoW > 0 && videoH > 0 {
		cw := videoW - crop.Left - crop.Right
		ch := videoH - crop.Top - crop.Bottom
		if cw > 0 && ch > 0 {
			filters = append(filters, fmt.Sprintf("crop=%d:%d:%d:%d", cw, ch, crop.Left, crop.Top))
		}
	}

	if nonDefault(color.Hue, 0) {
		filters = append(filters, fmt.Sprintf("hue=h=%s", formatFloat(uiHueToDegrees(color.Hue))))
	}

	var eq []string
	if nonDefault(color.Brightness, 0) {
		eq = append(eq, "brightness="+formatFloat(color.Brightness))
	}
	if nonDefault(color.Contrast, 1) {
		eq = append(eq, "contrast="+formatFloat(uiContrastToFFmpeg(color.Contrast)))
	}
	if nonDefault(color.Saturation, 1) {
		eq = append(eq, "saturation="+formatFloat(color.Saturation))
	}
	if nonDefault(color.Gamma, 1) {
		eq = append(eq, "gamma="+formatFloat(color.Gamma))
	}
	if nonDefault(color.GammaR, 1) {
		eq = append(eq, "gamma_r="+formatFloat(color.GammaR))
	}
	if nonDefault(color.GammaG, 1) {
		eq = append(eq, "gamma_g="+formatFloat(color.GammaG))
	}
	if nonDefault(color.GammaB, 1) {
		eq = append(eq, "gamma_b="+formatFloat(color.GammaB))
	}
	if nonDefault(color.GammaWeight, 1) {
		eq = append(eq, "gamma_weight="+formatFloat(color.GammaWeight))
	}
	if len(eq) > 0 {
		filters = append(filters, "eq="+strings.Join(eq, ":"))
	}

	if r := NormalizeResolution(targetResolution); r != "" {
		filters = append(filters, "scale="+r)
	}

	return filters
}
