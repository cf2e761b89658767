// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/csvingest/internal/config"
	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/metrics"
	"github.com/tomtom215/csvingest/internal/models"
)

// flakyStore fails while failing is set.
type flakyStore struct {
	calls   atomic.Int32
	failing atomic.Bool
	err     error
}

func (s *flakyStore) SaveUsers(context.Context, []models.User) error {
	s.calls.Add(1)
	if s.failing.Load() {
		return s.err
	}
	return nil
}

func TestBreakerStore_OpensAfterConsecutiveFailures(t *testing.T) {
	next := &flakyStore{err: errors.New("database is locked")}
	next.failing.Store(true)

	store := NewBreakerStore(next, config.BreakerConfig{MaxFailures: 3, Timeout: time.Hour})
	ctx := context.Background()

	rejectedBefore := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("user-store", "rejected"))

	for i := 0; i < 3; i++ {
		err := store.SaveUsers(ctx, nil)
		if err == nil || IsRejected(err) {
			t.Fatalf("call %d: err = %v, want the store error", i+1, err)
		}
	}
	if store.Breaker().State() != "open" {
		t.Fatalf("State() = %s, want open", store.Breaker().State())
	}

	err := store.SaveUsers(ctx, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("err = %v, want ErrOpenState", err)
	}
	if next.calls.Load() != 3 {
		t.Errorf("open breaker reached the store: calls = %d", next.calls.Load())
	}

	// An open breaker is not a classified ingestion error.
	if ingest.OutcomeLabel(err) != ingest.OutcomeUnclassified {
		t.Errorf("OutcomeLabel = %s, want %s", ingest.OutcomeLabel(err), ingest.OutcomeUnclassified)
	}

	if got := testutil.ToFloat64(metrics.CircuitBreakerState.WithLabelValues("user-store")); got != 2 {
		t.Errorf("state gauge = %v, want 2 (open)", got)
	}
	if d := testutil.ToFloat64(metrics.CircuitBreakerRequests.WithLabelValues("user-store", "rejected")) - rejectedBefore; d != 1 {
		t.Errorf("rejected delta = %v, want 1", d)
	}
}

func TestBreakerStore_RecoversAfterTimeout(t *testing.T) {
	next := &flakyStore{err: errors.New("connection refused")}
	next.failing.Store(true)

	store := NewBreakerStore(next, config.BreakerConfig{MaxFailures: 1, Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	if err := store.SaveUsers(ctx, nil); err == nil {
		t.Fatal("expected failure")
	}
	if store.Breaker().State() != "open" {
		t.Fatalf("State() = %s, want open", store.Breaker().State())
	}

	next.failing.Store(false)
	time.Sleep(40 * time.Millisecond)

	if store.Breaker().State() != "half-open" {
		t.Fatalf("State() = %s, want half-open", store.Breaker().State())
	}
	if err := store.SaveUsers(ctx, nil); err != nil {
		t.Fatalf("half-open trial call failed: %v", err)
	}
	if store.Breaker().State() != "closed" {
		t.Errorf("State() = %s, want closed", store.Breaker().State())
	}
}

func TestBreakerStore_IgnoresCancellation(t *testing.T) {
	next := &flakyStore{err: context.Canceled}
	next.failing.Store(true)

	store := NewBreakerStore(next, config.BreakerConfig{MaxFailures: 1, Timeout: time.Hour})
	for i := 0; i < 3; i++ {
		if err := store.SaveUsers(context.Background(), nil); !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	}
	if store.Breaker().State() != "closed" {
		t.Errorf("cancellations tripped the breaker: %s", store.Breaker().State())
	}
}

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker("defaults-test", config.BreakerConfig{})
	if b.Name() != "defaults-test" || b.State() != "closed" {
		t.Errorf("Name() = %s, State() = %s", b.Name(), b.State())
	}

	failures := 0
	for i := 0; i < 10 && b.State() == "closed"; i++ {
		_ = b.Execute(func() error { return errors.New("fail") })
		failures++
	}
	if failures != 5 {
		t.Errorf("default breaker opened after %d failures, want 5", failures)
	}
}

func TestStateHelpers(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		str   string
		num   float64
	}{
		{gobreaker.StateClosed, "closed", 0},
		{gobreaker.StateHalfOpen, "half-open", 1},
		{gobreaker.StateOpen, "open", 2},
		{gobreaker.State(99), "unknown", -1},
	}
	for _, tt := range tests {
		if got := stateToString(tt.state); got != tt.str {
			t.Errorf("stateToString(%v) = %s, want %s", tt.state, got, tt.str)
		}
		if got := stateToFloat(tt.state); got != tt.num {
			t.Errorf("stateToFloat(%v) = %v, want %v", tt.state, got, tt.num)
		}
	}
}
