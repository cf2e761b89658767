// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package services

import (
	"context"
	"fmt"
)

// StartStopper is a component with a Start/Stop lifecycle, such as
// *scheduler.Scheduler.
type StartStopper interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService adapts the CSV scheduler's Start/Stop lifecycle to
// suture's Serve.
//
// Stop waits for in-flight scheduled ingestions, so shutdown never cuts a
// DuckDB transaction short through this path.
type SchedulerService struct {
	scheduler StartStopper
}

// NewSchedulerService wraps scheduler.
func NewSchedulerService(scheduler StartStopper) *SchedulerService {
	return &SchedulerService{scheduler: scheduler}
}

// Serve starts the scheduler and stops it when ctx is cancelled. A Start
// failure is returned so suture restarts the service with backoff.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("csv scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("csv scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

func (s *SchedulerService) String() string {
	return "csv-scheduler"
}
