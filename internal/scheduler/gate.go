// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

// Package scheduler re-ingests a fixed CSV file on a timer.
//
// The Gate decides whether a tick does any work. It never overlaps itself:
// a tick that finds a run in progress is skipped, not queued. A missing
// source file counts toward a failure threshold, and reaching it disables
// scheduled ingestion until the process restarts. Any other failure resets
// the count.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/logging"
	"github.com/tomtom215/csvingest/internal/metrics"
	"github.com/tomtom215/csvingest/internal/models"
)

// DefaultFailureThreshold is the number of consecutive missing-source ticks
// that disable the gate.
const DefaultFailureThreshold = 3

// Outcome is the result of one Run.
type Outcome string

const (
	OutcomeDisabled      Outcome = "disabled"
	OutcomeSkipped       Outcome = "skipped"
	OutcomeSourceMissing Outcome = "source_missing"
	OutcomeSucceeded     Outcome = "succeeded"
	OutcomeFailed        Outcome = "failed"
)

// Manager is the failure bookkeeping the gate applies after each attempt.
type Manager interface {
	HandleMissingSource(path string)
	ResetFailureCounter()
	HandleProcessingError(err error)
	Enabled() bool
}

// GateConfig configures a Gate.
type GateConfig struct {
	Path             string
	FailureThreshold int
}

// Health is a point-in-time view of the gate.
type Health struct {
	Enabled             bool      `json:"enabled"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Threshold           int       `json:"failure_threshold"`
	Running             bool      `json:"running"`
	Path                string    `json:"path"`
	LastRunAt           time.Time `json:"last_run_at,omitempty"`
	LastOutcome         Outcome   `json:"last_outcome,omitempty"`
}

// RunResult describes one attempt that acquired the lock.
type RunResult struct {
	Outcome    Outcome
	Persisted  int
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// GateOption configures optional Gate behaviour.
type GateOption func(*Gate)

// WithRunObserver registers fn to receive every attempt that acquired the
// lock. Observers run synchronously on the run goroutine after the lock is
// released.
func WithRunObserver(fn func(context.Context, RunResult)) GateOption {
	return func(g *Gate) {
		if fn != nil {
			g.observers = append(g.observers, fn)
		}
	}
}

// WithLogger replaces the gate's logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WithLogger(logger zerolog.Logger) GateOption {
	return func(g *Gate) {
		g.logger = logger.With().Str("component", "scheduler-gate").Logger()
	}
}

type lastRun struct {
	at      time.Time
	outcome Outcome
}

// Gate guards scheduled ingestion of a single file.
type Gate struct {
	source   Source
	ingester ingest.Ingester
	cfg      GateConfig
	logger   zerolog.Logger

	mu       sync.Mutex
	enabled  atomic.Bool
	failures atomic.Int32
	running  atomic.Bool
	last     atomic.Pointer[lastRun]

	observers []func(context.Context, RunResult)
	inflight  sync.WaitGroup

	// beforeLock runs between the enabled check and TryLock. Tests only.
	beforeLock func()
}

var _ Manager = (*Gate)(nil)

// NewGate creates an enabled gate with a zero failure count.
func NewGate(source Source, ingester ingest.Ingester, cfg GateConfig, opts ...GateOption) *Gate {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if source == nil {
		source = FileSource{}
	}

	g := &Gate{
		source:   source,
		ingester: ingester,
		cfg:      cfg,
		logger:   logging.WithComponent("scheduler-gate"),
	}
	g.enabled.Store(true)

	for _, opt := range opts {
		opt(g)
	}

	metrics.SetSchedulerHealth(true, 0)
	return g
}

// Tick starts a Run in its own goroutine and returns immediately.
func (g *Gate) Tick(ctx context.Context) {
	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		g.Run(ctx)
	}()
}

// Wait blocks until every Run started by Tick has returned.
func (g *Gate) Wait() {
	g.inflight.Wait()
}

// Run performs one scheduled attempt. It never returns an error: every
// outcome is folded into the gate's health, a log line and a metric.
func (g *Gate) Run(ctx context.Context) Outcome {
	if !g.enabled.Load() {
		g.logger.Debug().Msg("Scheduler is currently disabled")
		g.recordTick(OutcomeDisabled)
		return OutcomeDisabled
	}

	if g.beforeLock != nil {
		g.beforeLock()
	}

	if !g.mu.TryLock() {
		g.logger.Debug().Msg("Skipping execution as file processing is already in progress")
		g.recordTick(OutcomeSkipped)
		return OutcomeSkipped
	}

	// The run holding the lock before us may have disabled the gate.
	if !g.enabled.Load() {
		g.mu.Unlock()
		g.logger.Debug().Msg("Scheduler is currently disabled")
		g.recordTick(OutcomeDisabled)
		return OutcomeDisabled
	}

	result := g.runLocked(ctx)

	g.last.Store(&lastRun{at: result.FinishedAt, outcome: result.Outcome})
	g.recordTick(result.Outcome)

	for _, observe := range g.observers {
		observe(ctx, result)
	}
	return result.Outcome
}

// runLocked holds the lock for the whole attempt and releases it on every
// path, including a recovered panic.
func (g *Gate) runLocked(ctx context.Context) (result RunResult) {
	defer g.mu.Unlock()

	g.running.Store(true)
	defer g.running.Store(false)

	result.StartedAt = time.Now()
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic during scheduled ingestion: %v", r)
			result.Outcome = OutcomeFailed
			g.HandleProcessingError(result.Err)
		}
		result.FinishedAt = time.Now()
	}()

	result.Outcome, result.Persisted, result.Err = g.attempt(ctx)
	return result
}

func (g *Gate) attempt(ctx context.Context) (Outcome, int, error) {
	rc, err := g.source.Open(g.cfg.Path)
	if err != nil {
		if errors.Is(err, ingest.ErrSourceMissing) {
			g.HandleMissingSource(g.cfg.Path)
			return OutcomeSourceMissing, 0, err
		}
		g.HandleProcessingError(err)
		return OutcomeFailed, 0, err
	}
	defer closeReader(rc, g.logger)

	n, err := g.ingester.Ingest(ctx, rc, models.SourceScheduled)
	if err != nil {
		g.HandleProcessingError(err)
		return OutcomeFailed, n, err
	}

	g.ResetFailureCounter()
	return OutcomeSucceeded, n, nil
}

// HandleMissingSource counts a missing-source tick and disables the gate
// once the threshold is reached.
func (g *Gate) HandleMissingSource(path string) {
	failures := int(g.failures.Add(1))
	g.logger.Error().
		Str("path", path).
		Int("failures", failures).
		Int("threshold", g.cfg.FailureThreshold).
		Msg("Data file not found")

	if failures >= g.cfg.FailureThreshold {
		g.enabled.Store(false)
		g.logger.Error().
			Int("failures", failures).
			Msg("Disabled scheduler due to consecutive failures")
	}
}

// ResetFailureCounter clears the consecutive failure count after a success.
func (g *Gate) ResetFailureCounter() {
	g.failures.Store(0)
	g.logger.Debug().Msg("Reset consecutive failure counter")
}

// HandleProcessingError logs a transient failure. Transient failures reset
// the count: only a missing source moves the gate toward disabling.
func (g *Gate) HandleProcessingError(err error) {
	g.logger.Error().Err(err).Msg("Error processing scheduled file")
	g.failures.Store(0)
}

// Enabled reports whether scheduled runs may execute.
func (g *Gate) Enabled() bool {
	return g.enabled.Load()
}

// ConsecutiveFailures returns the current missing-source streak.
func (g *Gate) ConsecutiveFailures() int {
	return int(g.failures.Load())
}

// Snapshot returns the gate's current health.
func (g *Gate) Snapshot() Health {
	h := Health{
		Enabled:             g.enabled.Load(),
		ConsecutiveFailures: int(g.failures.Load()),
		Threshold:           g.cfg.FailureThreshold,
		Running:             g.running.Load(),
		Path:                g.cfg.Path,
	}
	if last := g.last.Load(); last != nil {
		h.LastRunAt = last.at
		h.LastOutcome = last.outcome
	}
	return h
}

func (g *Gate) recordTick(outcome Outcome) {
	metrics.RecordSchedulerRun(string(outcome), g.enabled.Load(), int(g.failures.Load()))
}

func closeReader(rc io.Closer, logger zerolog.Logger) {
	if err := rc.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close scheduled source")
	}
}
