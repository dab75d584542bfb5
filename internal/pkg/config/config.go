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

// Package config loads the converter daemon's yaml configuration. Absent
// fields fall back to per-platform defaults.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type CVCConfig struct {
	FfmpegPath    *string `yaml:"ffmpeg_path,omitempty"`
	FfprobePath   *string `yaml:"ffprobe_path,omitempty"`
	ListenAddress *string `yaml:"listen_address,omitempty"`
	DBPath        *string `yaml:"db_path,omitempty"`
	LogDirectory  *string `yaml:"log_directory,omitempty"`
	MaxWorkers    *int    `yaml:"max_workers,omitempty"`
	NiceLevel     *int    `yaml:"nice_level,omitempty"`
	StallTimeoutS *int    `yaml:"stall_timeout_s,omitempty"`
}

// DefaultConfiguration returns a config populated entirely from the built-in
// platform defaults.
func DefaultConfiguration() *CVCConfig {
	config := &CVCConfig{}
	applyDefaults(config)
	return config
}

// ParseConfig reads the yaml file at path and fills any missing fields with
// defaults. It returns nil when the file cannot be read or parsed.
func ParseConfig(path string) *CVCConfig {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	config := &CVCConfig{}

	err = yaml.Unmarshal(f, config)
	if err != nil {
		return nil
	}

	applyDefaults(config)
	return config
}

func applyDefaults(config *CVCConfig) {
	if config.FfmpegPath == nil {
		config.FfmpegPath = new(string)
		*config.FfmpegPath = defaultFfmpegPath
	}
	if config.FfprobePath == nil {
		config.FfprobePath = new(string)
		*config.FfprobePath = defaultFfprobePath
	}
	if config.ListenAddress == nil {
		config.ListenAddress = new(string)
		*config.ListenAddress = defaultListenAddress
	}
	if config.DBPath == nil {
		config.DBPath = new(string)
		*config.DBPath = defaultDBPath
	}
	if config.LogDirectory == nil {
		config.LogDirectory = new(string)
		*config.LogDirectory = defaultLogDirectory
	}
	if config.MaxWorkers == nil {
		config.MaxWorkers = new(int)
		*config.MaxWorkers = defaultMaxWorkers
	}
	if config.NiceLevel == nil {
		config.NiceLevel = new(int)
		*config.NiceLevel = defaultNiceLevel
	}
	if config.StallTimeoutS == nil {
		config.StallTimeoutS = new(int)
		*config.StallTimeoutS = defaultStallTimeoutS
	}
}
