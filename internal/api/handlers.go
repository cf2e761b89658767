// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

// Package api serves the HTTP surface of the ingestion service.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_upload.go: CSV upload
//   - handlers_scheduler.go: scheduler status and run history
//   - handlers_health.go: liveness and readiness checks
package api

import (
	"context"
	"time"

	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/runstore"
	"github.com/tomtom215/csvingest/internal/scheduler"
)

// defaultRunsLimit applies when no limit is given and no MaxRuns is configured.
const defaultRunsLimit = 100

// SchedulerStatus exposes the gate's health without its controls.
type SchedulerStatus interface {
	Snapshot() scheduler.Health
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// UserCounter is implemented by stores that can report how many users
// they hold. The readiness endpoint includes the count when DB offers it.
type UserCounter interface {
	CountUsers(ctx context.Context) (int64, error)
}

// HandlerConfig carries the collaborators of Handler. Ingester is
// required; the rest are optional and their endpoints degrade when absent.
type HandlerConfig struct {
	Ingester  ingest.Ingester
	Validator ingest.Validator
	Scheduler SchedulerStatus
	Recorder  *runstore.Recorder
	DB        Pinger

	// MaxRuns caps GET /api/csv/runs.
	MaxRuns int
}

// Handler contains dependencies for API handlers.
type Handler struct {
	ingester  ingest.Ingester
	validator ingest.Validator
	scheduler SchedulerStatus
	recorder  *runstore.Recorder
	db        Pinger
	maxRuns   int
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a handler. A nil Validator defaults to
// ingest.UploadValidator.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.Validator == nil {
		cfg.Validator = ingest.UploadValidator{}
	}
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = defaultRunsLimit
	}
	return &Handler{
		ingester:  cfg.Ingester,
		validator: cfg.Validator,
		scheduler: cfg.Scheduler,
		recorder:  cfg.Recorder,
		db:        cfg.DB,
		maxRuns:   cfg.MaxRuns,
		startTime: time.Now(),
		now:       time.Now,
	}
}
