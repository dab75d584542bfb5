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

// Package store persists conversion job history in sqlite.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// JobRecord is one row of conversion history.
type JobRecord struct {
	ID        string
	Input     string
	Output    string
	Status    string
	Outcome   string
	Fraction  float64
	Deleted   bool
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store wraps the job history database. Safe for concurrent use; database/sql
// serializes access to the single sqlite connection pool.
type Store struct {
	db *sql.DB
}

// Open connects to the sqlite database at path, creating the schema if
// needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if _, err := db.Exec(`
  CREATE TABLE IF NOT EXISTS conversion_jobs (
    id TEXT PRIMARY KEY,
    input TEXT,
    output TEXT,
    status TEXT,
    outcome TEXT,
    fraction REAL,
    deleted_original INTEGER,
    detail TEXT,
    created_at INTEGER,
    updated_at INTEGER
  );`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateJob inserts a new pending job row.
func (s *Store) CreateJob(id, input, output string) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO conversion_jobs(id, input, output, status, outcome, fraction, deleted_original, detail, created_at, updated_at)
     VALUES(?, ?, ?, 'queued', '', 0, 0, '', ?, ?)`,
		id, input, output, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert job %q: %w", id, err)
	}
	return nil
}

// UpdateStatus records a phase change such as "Processing video...".
func (s *Store) UpdateStatus(id, status string) error {
	_, err := s.db.Exec(
		`UPDATE conversion_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update status for %q: %w", id, err)
	}
	return nil
}

// UpdateProgress records the completed fraction.
func (s *Store) UpdateProgress(id string, fraction float64) error {
	_, err := s.db.Exec(
		`UPDATE conversion_jobs SET fraction = ?, updated_at = ? WHERE id = ?`,
		fraction, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update progress for %q: %w", id, err)
	}
	return nil
}

// Complete records the terminal outcome of a job.
func (s *Store) Complete(id, outcome string, deletedOriginal bool, detail string) error {
	deleted := 0
	if deletedOriginal {
		deleted = 1
	}
	_, err := s.db.Exec(
		`UPDATE conversion_jobs SET status = 'finished', outcome = ?, deleted_original = ?, detail = ?, updated_at = ? WHERE id = ?`,
		outcome, deleted, detail, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to complete job %q: %w", id, err)
	}
	return nil
}

// Get returns one job row.
func (s *Store) Get(id string) (JobRecord, error) {
	row := s.db.QueryRow(
		`SELECT id, input, output, status, outcome, fraction, deleted_original, detail, created_at, updated_at
     FROM conversion_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// List returns the most recent jobs, newest first.
func (s *Store) List(limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, input, output, status, outcome, fraction, deleted_original, detail, created_at, updated_at
     FROM conversion_jobs ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (JobRecord, error) {
	var j JobRecord
	var deleted int
	var created, updated int64
	if err := row.Scan(&j.ID, &j.Input, &j.Output, &j.Status, &j.Outcome,
		&j.Fraction, &deleted, &j.Detail, &created, &updated); err != nil {
		return JobRecord{}, fmt.Errorf("failed to scan job row: %w", err)
	}
	j.Deleted = deleted == 1
	j.CreatedAt = time.Unix(created, 0)
	j.UpdatedAt = time.Unix(updated, 0)
	return j, nil
}
