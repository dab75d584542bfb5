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

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func buildFromConstants(t *testing.T) *CVCConfig {
	t.Helper()
	df := &CVCConfig{
		FfmpegPath:    new(string),
		FfprobePath:   new(string),
		ListenAddress: new(string),
		DBPath:        new(string),
		LogDirectory:  new(string),
		MaxWorkers:    new(int),
		NiceLevel:     new(int),
		StallTimeoutS: new(int),
	}
	*df.FfmpegPath = defaultFfmpegPath
	*df.FfprobePath = defaultFfprobePath
	*df.ListenAddress = defaultListenAddress
	*df.DBPath = defaultDBPath
	*df.LogDirectory = defaultLogDirectory
	*df.MaxWorkers = defaultMaxWorkers
	*df.NiceLevel = defaultNiceLevel
	*df.StallTimeoutS = defaultStallTimeoutS
	return df
}

func TestDefaultConfiguration(t *testing.T) {
	tests := []struct {
		name string
		want *CVCConfig
	}{
		{
			name: "default configuration",
			want: buildFromConstants(t),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultConfiguration(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DefaultConfiguration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		want     func(t *testing.T) *CVCConfig
	}{
		{
			name:     "empty file gets all defaults",
			contents: "",
			want:     buildFromConstants,
		},
		{
			name: "partial file keeps explicit values",
			contents: `
ffmpeg_path: /opt/ffmpeg/bin/ffmpeg
max_workers: 4
nice_level: 0
`,
			want: func(t *testing.T) *CVCConfig {
				c := buildFromConstants(t)
				*c.FfmpegPath = "/opt/ffmpeg/bin/ffmpeg"
				*c.MaxWorkers = 4
				*c.NiceLevel = 0
				return c
			},
		},
		{
			name: "full file overrides everything",
			contents: `
ffmpeg_path: /usr/local/bin/ffmpeg
ffprobe_path: /usr/local/bin/ffprobe
listen_address: 127.0.0.1:9000
db_path: /tmp/jobs.db
log_directory: /tmp/logs
max_workers: 8
nice_level: 19
stall_timeout_s: 60
`,
			want: func(t *testing.T) *CVCConfig {
				c := buildFromConstants(t)
				*c.FfmpegPath = "/usr/local/bin/ffmpeg"
				*c.FfprobePath = "/usr/local/bin/ffprobe"
				*c.ListenAddress = "127.0.0.1:9000"
				*c.DBPath = "/tmp/jobs.db"
				*c.LogDirectory = "/tmp/logs"
				*c.MaxWorkers = 8
				*c.NiceLevel = 19
				*c.StallTimeoutS = 60
				return c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.contents)
			got := ParseConfig(path)
			if got == nil {
				t.Fatal("ParseConfig() returned nil")
			}
			want := tt.want(t)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ParseConfig() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestParseConfigMissingFile(t *testing.T) {
	if got := ParseConfig(filepath.Join(t.TempDir(), "nope.yaml")); got != nil {
		t.Errorf("ParseConfig() on a missing file = %v, want nil", got)
	}
}

func TestParseConfigMalformed(t *testing.T) {
	path := writeConfigFile(t, "max_workers: [not a number")
	if got := ParseConfig(path); got != nil {
		t.Errorf("ParseConfig() on malformed yaml = %v, want nil", got)
	}
}

func TestParseEmbeddedDefault(t *testing.T) {
	// The shipped starter file is all comments, so parsing it must produce
	// exactly the defaults.
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := os.WriteFile(path, defaultConfig, 0644); err != nil {
		t.Fatalf("failed to write embedded default: %v", err)
	}
	got := ParseConfig(path)
	if got == nil {
		t.Fatal("ParseConfig() returned nil for the embedded default")
	}
	if !reflect.DeepEqual(got, buildFromConstants(t)) {
		t.Errorf("embedded default did not resolve to the constant defaults: %+v", got)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etc", "config.yaml")
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("starter config not written: %v", err)
	}
	if !reflect.DeepEqual(contents, defaultConfig) {
		t.Error("starter config does not match the embedded default")
	}

	// A second call must not clobber an existing file.
	if err := os.WriteFile(path, []byte("max_workers: 9\n"), 0644); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}
	if err := WriteDefaultConfig(path); err != nil {
		t.Fatalf("WriteDefaultConfig() error: %v", err)
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(after) != "max_workers: 9\n" {
		t.Error("WriteDefaultConfig() overwrote an existing file")
	}
}
