// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package runstore

import (
	"context"

	"github.com/rs/zerolog"
)

// Sink receives every recorded run, for example an event publisher.
type Sink interface {
	PublishRun(ctx context.Context, run Run) error
}

// Recorder stores each run and forwards it to the configured sinks.
// Failures are logged and never returned: history and events must not
// change the outcome of an ingestion.
type Recorder struct {
	store  Store
	sinks  []Sink
	logger zerolog.Logger
}

// NewRecorder creates a recorder. store may be nil to skip history.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRecorder(store Store, logger zerolog.Logger, sinks ...Sink) *Recorder {
	return &Recorder{
		store:  store,
		sinks:  sinks,
		logger: logger.With().Str("component", "runstore").Logger(),
	}
}

// Record saves run and publishes it.
func (r *Recorder) Record(ctx context.Context, run Run) {
	if r == nil {
		return
	}

	if r.store != nil {
		if err := r.store.Save(ctx, run); err != nil {
			r.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to save ingestion run")
		}
	}

	for _, sink := range r.sinks {
		if err := sink.PublishRun(ctx, run); err != nil {
			r.logger.Warn().Err(err).Str("run_id", run.ID).Str("trigger", run.Trigger).Msg("Failed to publish ingestion run")
		}
	}
}

// Store returns the underlying store.
func (r *Recorder) Store() Store {
	return r.store
}
