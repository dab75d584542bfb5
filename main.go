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

// comm-video-converter is a daemon that converts video files with ffmpeg.
// Jobs arrive over a small HTTP API, run with bounded concurrency, and
// report progress to a status page over websockets.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/logger"
	"github.com/kardianos/service"

	"github.com/communitybig/comm-video-converter/internal/pkg/batch"
	"github.com/communitybig/comm-video-converter/internal/pkg/config"
	"github.com/communitybig/comm-video-converter/internal/pkg/ffwrap"
	"github.com/communitybig/comm-video-converter/internal/pkg/store"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "path to the yaml configuration file")
	svcAction   = flag.String("service", "", "control the system service: install, uninstall, start, stop")
	logVerbose  = flag.Bool("verbose", false, "also log to stderr")
	logFileName = "comm-video-converter.log"
)

type daemon struct {
	cfg *config.CVCConfig

	store       *store.Store
	hub         *Hub
	active      *activeJobs
	coordinator *batch.Coordinator

	niceLevel    int
	stallTimeout time.Duration

	server  *http.Server
	logFile *os.File
}

// Start implements service.Interface. It brings up the database, the
// websocket hub and the HTTP API, then returns; the real work happens on the
// coordinator's goroutines.
func (d *daemon) Start(s service.Service) error {
	cfg := config.ParseConfig(*configPath)
	if cfg == nil {
		logger.Warningf("could not load config from %q, using defaults", *configPath)
		cfg = config.DefaultConfiguration()
	}
	d.cfg = cfg

	ffwrap.SetBinaryLocations(*cfg.FfmpegPath, *cfg.FfprobePath)
	d.niceLevel = *cfg.NiceLevel
	d.stallTimeout = time.Duration(*cfg.StallTimeoutS) * time.Second

	if err := os.MkdirAll(filepath.Dir(*cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}
	st, err := store.Open(*cfg.DBPath)
	if err != nil {
		return err
	}
	d.store = st

	d.hub = newHub()
	go d.hub.run()

	d.active = newActiveJobs()
	d.coordinator = batch.NewCoordinator(*cfg.MaxWorkers)

	mux := http.NewServeMux()
	mux.HandleFunc("/convert", d.convertHandler)
	mux.HandleFunc("/batch", d.batchHandler)
	mux.HandleFunc("/cancel", d.cancelHandler)
	mux.HandleFunc("/statusz", d.statuszHandler)
	mux.HandleFunc("/logstream", d.logStream)

	d.server = &http.Server{Addr: *cfg.ListenAddress, Handler: mux}
	go func() {
		logger.Infof("listening on %s", *cfg.ListenAddress)
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server failed: %v", err)
		}
	}()
	return nil
}

// Stop implements service.Interface: cancel everything in flight, then shut
// the API and database down.
func (d *daemon) Stop(s service.Service) error {
	logger.Info("shutting down")
	if d.coordinator != nil {
		d.coordinator.Cancel()
		d.coordinator.Wait()
	}
	if d.server != nil {
		d.server.Close()
	}
	if d.store != nil {
		d.store.Close()
	}
	if d.logFile != nil {
		d.logFile.Close()
	}
	return nil
}

// initLogging sends the log to a file under the configured directory. Falls
// back to discard-style stderr-only logging when the directory is unusable.
func initLogging(d *daemon) {
	logDir := ""
	if cfg := config.ParseConfig(*configPath); cfg != nil {
		logDir = *cfg.LogDirectory
	} else {
		logDir = *config.DefaultConfiguration().LogDirectory
	}

	if err := os.MkdirAll(logDir, 0755); err == nil {
		f, err := os.OpenFile(filepath.Join(logDir, logFileName),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			d.logFile = f
			logger.Init("comm-video-converter", *logVerbose, true, f)
			return
		}
	}
	logger.Init("comm-video-converter", *logVerbose, true, os.Stderr)
}

func main() {
	flag.Parse()

	d := &daemon{}
	initLogging(d)

	svcConfig := &service.Config{
		Name:        "comm-video-converter",
		DisplayName: "Community Video Converter",
		Description: "Converts video files with ffmpeg via an HTTP API.",
		Arguments:   []string{"-config", *configPath},
	}

	s, err := service.New(d, svcConfig)
	if err != nil {
		logger.Fatalf("failed to initialize service: %v", err)
	}

	if *svcAction != "" {
		if *svcAction == "install" {
			if err := config.WriteDefaultConfig(*configPath); err != nil {
				logger.Warningf("could not write starter config: %v", err)
			}
		}
		if err := service.Control(s, *svcAction); err != nil {
			logger.Fatalf("service %s failed: %v", *svcAction, err)
		}
		return
	}

	if err := s.Run(); err != nil {
		logger.Fatalf("service run failed: %v", err)
	}
}
