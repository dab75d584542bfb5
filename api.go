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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/logger"
	template "github.com/google/safehtml/template"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/communitybig/comm-video-converter/internal/pkg/batch"
	"github.com/communitybig/comm-video-converter/internal/pkg/ffwrap"
	"github.com/communitybig/comm-video-converter/internal/pkg/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type ConvertRequest struct {
	ffwrap.EncodingOptions
	DeleteOriginal bool `json:"delete_original"`
}

type BatchRequest struct {
	Directory      string                 `json:"directory"`
	Options        ffwrap.EncodingOptions `json:"options"`
	DeleteOriginal bool                   `json:"delete_original"`
}

type CancelRequest struct {
	Id string `json:"id"`
}

type trackedJob struct {
	job    *ffwrap.Job
	status jobStatus
}

// activeJobs tracks currently queued and running conversions by id.
type activeJobs struct {
	mu   sync.Mutex
	jobs map[string]*trackedJob
}

func newActiveJobs() *activeJobs {
	return &activeJobs{jobs: make(map[string]*trackedJob)}
}

func (a *activeJobs) add(id string, job *ffwrap.Job) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.jobs[id] = &trackedJob{
		job:    job,
		status: jobStatus{Input: job.Opts.InputPath, Status: "queued"},
	}
}

func (a *activeJobs) remove(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.jobs, id)
}

func (a *activeJobs) get(id string) *ffwrap.Job {
	a.mu.Lock()
	defer a.mu.Unlock()
	if t, ok := a.jobs[id]; ok {
		return t.job
	}
	return nil
}

// update mutates one job's status snapshot and returns a copy for broadcast.
func (a *activeJobs) update(id string, fn func(*jobStatus)) (jobStatus, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	t, ok := a.jobs[id]
	if !ok {
		return jobStatus{}, false
	}
	fn(&t.status)
	return t.status, true
}

type activeRow struct {
	Id      string
	Status  jobStatus
	Percent int
}

func (a *activeJobs) snapshot() []activeRow {
	a.mu.Lock()
	defer a.mu.Unlock()
	rows := make([]activeRow, 0, len(a.jobs))
	for id, t := range a.jobs {
		rows = append(rows, activeRow{
			Id:      id,
			Status:  t.status,
			Percent: int(t.status.Fraction * 100),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Id < rows[j].Id })
	return rows
}

// daemonSink bridges job events into the history database and the websocket
// hub. One sink per job; event ordering is guaranteed by the job dispatcher.
type daemonSink struct {
	id       string
	store    *store.Store
	hub      *Hub
	active   *activeJobs
	lastSave float64
}

func (s *daemonSink) OnOutputLine(line string) {
	if js, ok := s.active.update(s.id, func(j *jobStatus) { j.LastLine = line }); ok {
		s.hub.notifyJob(s.id, js)
	}
}

func (s *daemonSink) OnStatus(status string) {
	if err := s.store.UpdateStatus(s.id, status); err != nil {
		logger.Errorf("failed to persist status: %v", err)
	}
	if js, ok := s.active.update(s.id, func(j *jobStatus) { j.Status = status }); ok {
		s.hub.notifyJob(s.id, js)
	}
}

func (s *daemonSink) OnProgress(fraction, eta float64, hasETA bool) {
	// Progress rows are rewritten at most once per whole percent to keep the
	// database write rate sane.
	if fraction-s.lastSave >= 0.01 {
		s.lastSave = fraction
		if err := s.store.UpdateProgress(s.id, fraction); err != nil {
			logger.Errorf("failed to persist progress: %v", err)
		}
	}
	js, ok := s.active.update(s.id, func(j *jobStatus) {
		j.Fraction = fraction
		if hasETA {
			j.ETA = (time.Duration(eta) * time.Second).String()
		} else {
			j.ETA = "unknown"
		}
	})
	if ok {
		s.hub.notifyJob(s.id, js)
	}
}

func (s *daemonSink) OnStalled() {
	logger.Warningf("job %s produced no output within the stall window", s.id)
	if err := s.store.UpdateStatus(s.id, "stalled"); err != nil {
		logger.Errorf("failed to persist status: %v", err)
	}
	if js, ok := s.active.update(s.id, func(j *jobStatus) { j.Status = "stalled" }); ok {
		s.hub.notifyJob(s.id, js)
	}
}

func (s *daemonSink) OnTerminal(result ffwrap.Result) {
	detail := result.Detail
	if err := s.store.Complete(s.id, result.Outcome.String(), result.Deleted, detail); err != nil {
		logger.Errorf("failed to persist completion: %v", err)
	}
	s.active.remove(s.id)
	s.hub.notifyRefresh()
}

// trackedRunner adapts a Job for the batch coordinator and records setup
// failures that happen before ffmpeg ever launches.
type trackedRunner struct {
	id     string
	job    *ffwrap.Job
	store  *store.Store
	hub    *Hub
	active *activeJobs
}

func (r *trackedRunner) Run(ctx context.Context) error {
	r.active.update(r.id, func(j *jobStatus) { j.Status = "starting" })
	err := r.job.Run(ctx)
	if err != nil {
		if serr := r.store.Complete(r.id, "error", false, err.Error()); serr != nil {
			logger.Errorf("failed to persist job error: %v", serr)
		}
		r.active.remove(r.id)
		r.hub.notifyRefresh()
	}
	return err
}

func (r *trackedRunner) Cancel() {
	r.job.Cancel()
}

func (r *trackedRunner) Result() (ffwrap.Result, bool) {
	return r.job.Result()
}

// submitJob registers a conversion with the store, the active set and the
// coordinator, returning its id.
func (d *daemon) submitJob(opts ffwrap.EncodingOptions, deleteOriginal bool) string {
	id := uuid.New().String()

	job := &ffwrap.Job{
		Opts:           opts,
		DeleteOriginal: deleteOriginal,
		Nice:           d.niceLevel,
		StallTimeout:   d.stallTimeout,
		Sink: &daemonSink{
			id:     id,
			store:  d.store,
			hub:    d.hub,
			active: d.active,
		},
	}

	if err := d.store.CreateJob(id, opts.InputPath, opts.OutputPath); err != nil {
		logger.Errorf("failed to record job %s: %v", id, err)
	}
	d.active.add(id, job)
	d.coordinator.Add(&trackedRunner{
		id:     id,
		job:    job,
		store:  d.store,
		hub:    d.hub,
		active: d.active,
	})
	d.hub.notifyRefresh()
	return id
}

func (d *daemon) convertHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var cr ConvertRequest
	if err := json.NewDecoder(req.Body).Decode(&cr); err != nil {
		logger.Errorf("failed to decode request: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if cr.InputPath == "" {
		http.Error(w, `{"error": "input cannot be empty"}`, http.StatusBadRequest)
		return
	}

	id := d.submitJob(cr.EncodingOptions, cr.DeleteOriginal)
	logger.Infof("added job %s for %#v", id, cr.InputPath)
	fmt.Fprintf(w, `{"id": %q}`, id)
}

func (d *daemon) batchHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var br BatchRequest
	if err := json.NewDecoder(req.Body).Decode(&br); err != nil {
		logger.Errorf("failed to decode request: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if br.Directory == "" {
		http.Error(w, `{"error": "directory cannot be empty"}`, http.StatusBadRequest)
		return
	}

	files, err := batch.ScanDirectory(br.Directory)
	if err != nil {
		logger.Errorf("failed to scan %q: %v", br.Directory, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ids := make([]string, 0, len(files))
	for _, file := range files {
		opts := br.Options
		opts.InputPath = file
		opts.OutputPath = ""
		ids = append(ids, d.submitJob(opts, br.DeleteOriginal))
	}
	logger.Infof("added %d jobs from %q", len(ids), br.Directory)

	resp, _ := json.Marshal(map[string]any{"ids": ids, "count": len(ids)})
	w.Write(resp)
}

func (d *daemon) cancelHandler(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var cr CancelRequest
	if err := json.NewDecoder(req.Body).Decode(&cr); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := d.active.get(cr.Id)
	if job == nil {
		http.Error(w, `{"error": "no such active job"}`, http.StatusNotFound)
		return
	}
	job.Cancel()
	logger.Infof("cancellation requested for job %s", cr.Id)
	fmt.Fprintf(w, `{"id": %q, "cancelled": true}`, cr.Id)
}

type PageData struct {
	ActiveJobs []activeRow
	RecentJobs []store.JobRecord
}

var statuszTemplate = template.Must(
	template.New("statusz").ParseFromTrustedTemplate(template.MakeTrustedTemplate(html_template)))

func (d *daemon) statuszHandler(w http.ResponseWriter, req *http.Request) {
	page := PageData{ActiveJobs: d.active.snapshot()}

	var err error
	page.RecentJobs, err = d.store.List(20)
	if err != nil {
		logger.Errorf("failed to retrieve recent jobs: %v", err)
	}

	if err := statuszTemplate.Execute(w, page); err != nil {
		p, _ := json.Marshal(page)
		logger.Errorf("template with data '%s' failed: %v,", p, err)
	}
}

// logStream upgrades an HTTP connection to a WebSocket and integrates it into
// the websocket hub so browsers receive live job updates.
func (d *daemon) logStream(w http.ResponseWriter, r *http.Request) {
	wsconn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("failed to upgrade websocket: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	hubClient := &Client{
		hub:  d.hub,
		conn: wsconn,
		send: make(chan statusMessage, 10),
	}
	hubClient.hub.register <- hubClient
	go hubClient.writePump()
	go hubClient.readPump()
}
