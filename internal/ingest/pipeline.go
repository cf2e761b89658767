// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package ingest

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/csvingest/internal/logging"
	"github.com/tomtom215/csvingest/internal/metrics"
	"github.com/tomtom215/csvingest/internal/models"
)

// UserStore persists users. SaveUsers must be all-or-nothing.
type UserStore interface {
	SaveUsers(ctx context.Context, users []models.User) error
}

// Ingester parses a stream and persists its rows, returning how many were saved.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, source string) (int, error)
}

// Pipeline is the shared parse-and-persist path used by uploads and the
// scheduler. It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	parser Parser
	store  UserStore
	logger zerolog.Logger
}

var _ Ingester = (*Pipeline)(nil)

// NewPipeline creates a pipeline writing to store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPipeline(store UserStore, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		logger: logger.With().Str("component", "ingest-pipeline").Logger(),
	}
}

// Ingest parses r and saves every row as a User tagged with source.
//
// Nothing is persisted when parsing fails. A store failure is returned as
// *PersistenceError. Zero data rows is a success that never touches the store.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, source string) (n int, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordIngestion(source, OutcomeLabel(err), time.Since(start), n)
	}()

	log := p.contextLogger(ctx, source)
	log.Info().Msg("Starting to upload CSV file...")

	records, err := p.parser.Parse(r)
	if err != nil {
		return 0, err
	}
	log.Debug().Int("items", len(records)).Msg("CSV file parsed successfully")

	if len(records) == 0 {
		log.Info().Msg("CSV file contained no data rows, nothing to persist")
		return 0, nil
	}

	users := make([]models.User, len(records))
	for i, rec := range records {
		users[i] = models.NewUser(rec, source)
	}

	log.Debug().Int("count", len(users)).Msg("Persisting users to the database")
	if err := p.store.SaveUsers(ctx, users); err != nil {
		return 0, &PersistenceError{Count: len(users), Cause: err}
	}

	log.Info().Int("count", len(users)).Msg("CSV file processed and users persisted successfully.")
	return len(users), nil
}

// contextLogger adds request and correlation IDs carried by ctx.
func (p *Pipeline) contextLogger(ctx context.Context, source string) zerolog.Logger {
	lc := p.logger.With().Str("source", source)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		lc = lc.Str("correlation_id", id)
	}
	return lc.Logger()
}
