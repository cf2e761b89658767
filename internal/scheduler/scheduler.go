// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Ticker is the part of a Gate the scheduler drives.
type Ticker interface {
	Tick(ctx context.Context)
	Wait()
}

// Config holds scheduler configuration
type Config struct {
	// Interval between ticks. Ticks fire at a fixed rate regardless of how
	// long a run takes.
	Interval time.Duration

	// Enabled controls whether the scheduler ticks at all.
	Enabled bool

	// RunOnStart fires one tick immediately after Start.
	RunOnStart bool
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Interval:   10 * time.Second,
		Enabled:    true,
		RunOnStart: true,
	}
}

// Scheduler fires gate ticks on a fixed interval.
type Scheduler struct {
	gate   Ticker
	logger zerolog.Logger
	config Config

	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce *sync.Once
}

// NewScheduler creates a new scheduler around gate.
func NewScheduler(gate Ticker, logger *zerolog.Logger, config Config) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = 10 * time.Second
	}

	return &Scheduler{
		gate:   gate,
		logger: logger.With().Str("component", "csv-scheduler").Logger(),
		config: config,
	}
}

// Start starts the scheduler loop. Runs use ctx, so cancelling it stops
// in-flight database work as well as the loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.stopOnce = &sync.Once{}
	s.mu.Unlock()

	if !s.config.Enabled {
		s.logger.Info().Msg("CSV scheduler disabled")
		go func() {
			defer close(s.doneCh)
			<-s.stopCh
		}()
		return nil
	}

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Msg("Starting CSV scheduler")

	go s.run(ctx)
	return nil
}

// Stop stops the loop and waits for in-flight runs to finish. Concurrent
// callers all block until the loop has exited.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh, once := s.stopCh, s.doneCh, s.stopOnce
	s.mu.Unlock()

	once.Do(func() {
		s.logger.Info().Msg("Stopping CSV scheduler...")
		close(stopCh)
	})
	<-doneCh
	s.gate.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("CSV scheduler stopped")
	return nil
}

// IsRunning reports whether the loop is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	if s.config.RunOnStart {
		s.gate.Tick(ctx)
	}

	for {
		select {
		case <-ticker.C:
			s.gate.Tick(ctx)
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}
