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
	"math"
	"reflect"
	"testing"
)

func TestBuildFilters(t *testing.T) {
	tests := []struct {
		name   string
		color  ColorAdjustments
		crop   CropSettings
		width  int
		height int
		target string
		want   []string
	}{
		{
			name:  "neutral settings produce no filters",
			color: DefaultColorAdjustments(),
		},
		{
			name:   "crop only",
			color:  DefaultColorAdjustments(),
			crop:   CropSettings{Left: 10, Right: 10, Top: 20, Bottom: 20},
			width:  1920,
			height: 1080,
			want:   []string{"crop=1900:1040:10:20"},
		},
		{
			name:  "crop without source dimensions is skipped",
			color: DefaultColorAdjustments(),
			crop:  CropSettings{Left: 10},
			want:  nil,
		},
		{
			name:   "crop that removes the whole frame is skipped",
			color:  DefaultColorAdjustments(),
			crop:   CropSettings{Left: 1000, Right: 1000},
			width:  1920,
			height: 1080,
			want:   nil,
		},
		{
			name: "brightness only",
			color: func() ColorAdjustments {
				c := DefaultColorAdjustments()
				c.Brightness = 0.25
				return c
			}(),
			want: []string{"eq=brightness=0.25"},
		},
		{
			name: "contrast converts from ui scale",
			color: func() ColorAdjustments {
				c := DefaultColorAdjustments()
				c.Contrast = 1.5
				return c
			}(),
			want: []string{"eq=contrast=1"},
		},
		{
			name: "hue converts radians to degrees",
			color: func() ColorAdjustments {
				c := DefaultColorAdjustments()
				c.Hue = math.Pi / 2
				return c
			}(),
			want: []string{"hue=h=90"},
		},
		{
			name: "values within threshold of neutral are dropped",
			color: func() ColorAdjustments {
				c := DefaultColorAdjustments()
				c.Brightness = 0.005
				c.Saturation = 1.009
				return c
			}(),
			want: nil,
		},
		{
			name:   "scale from WxH form",
			color:  DefaultColorAdjustments(),
			target: "1280x720",
			want:   []string{"scale=1280:720"},
		},
		{
			name: "combined filters keep crop hue eq scale order",
			color: func() ColorAdjustments {
				c := DefaultColorAdjustments()
				c.Hue = math.Pi
				c.Gamma = 1.2
				c.GammaWeight = 0.5
				return c
			}(),
			crop:   CropSettings{Top: 140, Bottom: 140},
			width:  1920,
			height: 1080,
			target: "1280:720",
			want: []string{
				"crop=1920:800:0:140",
				"hue=h=180",
				"eq=gamma=1.2:gamma_weight=0.5",
				"scale=1280:720",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildFilters(tt.color, tt.crop, tt.width, tt.height, tt.target)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildFilters() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNormalizeResolution(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"already colon form", "1920:1080", "1920:1080"},
		{"lowercase x", "1920x1080", "1920:1080"},
		{"uppercase x", "1280X720", "1280:720"},
		{"whitespace trimmed", " 640x480 ", "640:480"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeResolution(tt.in); got != tt.want {
				t.Errorf("NormalizeResolution(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUIConversions(t *testing.T) {
	if got := uiContrastToFFmpeg(1.0); got != 0 {
		t.Errorf("uiContrastToFFmpeg(1.0) = %v, want 0", got)
	}
	if got := uiContrastToFFmpeg(2.0); got != 2 {
		t.Errorf("uiContrastToFFmpeg(2.0) = %v, want 2", got)
	}
	if got := uiContrastToFFmpeg(0); got != -2 {
		t.Errorf("uiContrastToFFmpeg(0) = %v, want -2", got)
	}
	if got := uiHueToDegrees(math.Pi); math.Abs(got-180) > 1e-9 {
		t.Errorf("uiHueToDegrees(pi) = %v, want 180", got)
	}
}
