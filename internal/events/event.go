// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

// Package events publishes ingestion events through Watermill.
//
// Each recorded run becomes one JSON IngestionEvent on the topic
// <prefix>.<trigger>, for example csv.ingestion.upload. Without a NATS URL
// the in-process GoChannel pub/sub is used, which lets local subscribers
// observe ingestions without any broker.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/csvingest/internal/runstore"
)

// DefaultTopicPrefix is used when no prefix is configured.
const DefaultTopicPrefix = "csv.ingestion"

// IngestionEvent is the payload published for every recorded run.
type IngestionEvent struct {
	EventID    string    `json:"event_id"`
	RunID      string    `json:"run_id"`
	Trigger    string    `json:"trigger"`
	Outcome    string    `json:"outcome"`
	Persisted  int       `json:"persisted"`
	Error      string    `json:"error,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMs int64     `json:"duration_ms"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewIngestionEvent builds the event for run.
func NewIngestionEvent(run runstore.Run) IngestionEvent {
	return IngestionEvent{
		EventID:    uuid.NewString(),
		RunID:      run.ID,
		Trigger:    run.Trigger,
		Outcome:    run.Outcome,
		Persisted:  run.Persisted,
		Error:      run.Error,
		Filename:   run.Filename,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMs: run.DurationMs,
		OccurredAt: time.Now().UTC(),
	}
}

// Topic returns the topic for a trigger under prefix.
func Topic(prefix, trigger string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "." + trigger
}
