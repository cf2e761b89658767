// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

// Package runstore keeps a history of ingestion attempts.
//
// Every upload and every scheduled attempt that reached the source produces
// one Run. Runs are written to BadgerDB when a path is configured, or kept in
// memory otherwise, and listed newest first.
package runstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/csvingest/internal/ingest"
)

// Run is one recorded ingestion attempt.
type Run struct {
	ID         string    `json:"id"`
	Trigger    string    `json:"trigger"`
	Outcome    string    `json:"outcome"`
	Persisted  int       `json:"persisted"`
	Error      string    `json:"error,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
}

// NewRun builds a Run for an attempt that finished with err. The outcome
// label is derived from the error class.
func NewRun(trigger string, startedAt, finishedAt time.Time, persisted int, err error) Run {
	run := Run{
		ID:         uuid.NewString(),
		Trigger:    trigger,
		Outcome:    ingest.OutcomeLabel(err),
		Persisted:  persisted,
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
		DurationMs: finishedAt.Sub(startedAt).Milliseconds(),
	}
	if err != nil {
		run.Error = err.Error()
	}
	return run
}

// Succeeded reports whether the run persisted without error.
func (r Run) Succeeded() bool {
	return r.Outcome == ingest.OutcomeSuccess
}

// Store persists runs.
type Store interface {
	Save(ctx context.Context, run Run) error
	List(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
