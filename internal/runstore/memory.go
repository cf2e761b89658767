// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package runstore

import (
	"context"
	"sync"
)

// InMemoryStore keeps the most recent runs in memory. It is used in tests
// and when no run store path is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	runs     []Run // oldest first
	capacity int
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a store holding at most capacity runs. A
// non-positive capacity defaults to 100.
func NewInMemoryStore(capacity int) *InMemoryStore {
	if capacity <= 0 {
		capacity = 100
	}
	return &InMemoryStore{capacity: capacity}
}

// Save appends run, evicting the oldest run when full.
func (s *InMemoryStore) Save(_ context.Context, run Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs = append(s.runs, run)
	if over := len(s.runs) - s.capacity; over > 0 {
		s.runs = append(s.runs[:0:0], s.runs[over:]...)
	}
	return nil
}

// List returns up to limit runs, newest first.
func (s *InMemoryStore) List(_ context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit > len(s.runs) {
		limit = len(s.runs)
	}
	if limit < 0 {
		limit = 0
	}

	out := make([]Run, 0, limit)
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.runs[i])
	}
	return out, nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error {
	return nil
}
