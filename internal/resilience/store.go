// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package resilience

import (
	"context"

	"github.com/tomtom215/csvingest/internal/config"
	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/models"
)

// BreakerStore guards a UserStore with a circuit breaker. While the circuit
// is open saves fail fast without reaching the database.
type BreakerStore struct {
	next    ingest.UserStore
	breaker *Breaker
}

var _ ingest.UserStore = (*BreakerStore)(nil)

// NewBreakerStore wraps next with a breaker named "user-store".
func NewBreakerStore(next ingest.UserStore, cfg config.BreakerConfig) *BreakerStore {
	return &BreakerStore{
		next:    next,
		breaker: NewBreaker("user-store", cfg),
	}
}

// SaveUsers forwards to the wrapped store through the breaker.
func (s *BreakerStore) SaveUsers(ctx context.Context, users []models.User) error {
	return s.breaker.Execute(func() error {
		return s.next.SaveUsers(ctx, users)
	})
}

// Breaker exposes the underlying breaker for status reporting.
func (s *BreakerStore) Breaker() *Breaker {
	return s.breaker
}
