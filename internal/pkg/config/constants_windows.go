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

//go:build windows
// +build windows

package config

const (
	// windows defaults
	defaultFfmpegPath    = `c:\ffmpeg\ffmpeg.exe`
	defaultFfprobePath   = `c:\ffmpeg\ffprobe.exe`
	defaultListenAddress = "localhost:51220"
	defaultDBPath        = `c:\ProgramData\commvideoconverter\jobs.db`
	defaultLogDirectory  = `c:\ProgramData\commvideoconverter\logs`

	DefaultConfigPath = `c:\ProgramData\commvideoconverter\config.yaml`
)
