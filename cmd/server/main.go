// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/csvingest/internal/api"
	"github.com/tomtom215/csvingest/internal/auth"
	"github.com/tomtom215/csvingest/internal/config"
	"github.com/tomtom215/csvingest/internal/database"
	"github.com/tomtom215/csvingest/internal/events"
	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/logging"
	"github.com/tomtom215/csvingest/internal/models"
	"github.com/tomtom215/csvingest/internal/resilience"
	"github.com/tomtom215/csvingest/internal/runstore"
	"github.com/tomtom215/csvingest/internal/scheduler"
	"github.com/tomtom215/csvingest/internal/supervisor"
	"github.com/tomtom215/csvingest/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("scheduler_path", cfg.Scheduler.Path).
		Dur("scheduler_interval", cfg.Scheduler.Interval).
		Str("auth_mode", cfg.Security.AuthMode).
		Msg("Starting CSVIngest with supervisor tree")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("CSVIngest stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run builds every component, serves until a signal arrives and then
// releases resources in reverse order.
func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	store, err := runstore.Open(cfg.RunStore)
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing run store")
		}
	}()

	publisher, err := newPublisher(cfg)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing event publisher")
			}
		}()
	}

	var sinks []runstore.Sink
	if publisher != nil {
		sinks = append(sinks, publisher)
	}
	recorder := runstore.NewRecorder(store, logging.Logger(), sinks...)

	userStore := resilience.NewBreakerStore(db, cfg.Breaker)
	pipeline := ingest.NewPipeline(userStore, logging.Logger())

	gate := scheduler.NewGate(scheduler.FileSource{}, pipeline,
		scheduler.GateConfig{
			Path:             cfg.Scheduler.Path,
			FailureThreshold: cfg.Scheduler.FailureThreshold,
		},
		scheduler.WithLogger(logging.Logger()),
		scheduler.WithRunObserver(scheduledRunRecorder(recorder, cfg.Scheduler.Path)),
	)

	schedLogger := logging.Logger()
	csvScheduler := scheduler.NewScheduler(gate, &schedLogger, scheduler.Config{
		Interval:   cfg.Scheduler.Interval,
		Enabled:    cfg.Scheduler.Enabled,
		RunOnStart: true,
	})

	router, err := newRouter(cfg, api.HandlerConfig{
		Ingester:  pipeline,
		Scheduler: gate,
		Recorder:  recorder,
		DB:        db,
		MaxRuns:   cfg.RunStore.MaxList,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddDataService(services.NewSchedulerService(csvScheduler))
	if publisher != nil && publisher.Backend() == events.BackendGoChannel {
		consumer := events.NewConsumer(publisher,
			[]string{models.SourceUpload, models.SourceScheduled}, nil, logging.Logger())
		tree.AddMessagingService(services.NewEventsService(consumer))
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logging.Logger()))

	logging.Info().Str("addr", server.Addr).Msg("HTTP server configured")
	return serveUntilSignal(tree)
}

func newPublisher(cfg *config.Config) (*events.Publisher, error) {
	if !cfg.Events.Enabled {
		logging.Info().Msg("Ingestion events disabled (EVENTS_ENABLED=false)")
		return nil, nil
	}
	publisher, err := events.NewPublisher(cfg.Events, cfg.Breaker, logging.NewWatermillAdapter())
	if err != nil {
		return nil, fmt.Errorf("create event publisher: %w", err)
	}
	logging.Info().
		Str("backend", publisher.Backend()).
		Str("topic_prefix", cfg.Events.TopicPrefix).
		Msg("Ingestion event publisher ready")
	return publisher, nil
}

func newRouter(cfg *config.Config, hc api.HandlerConfig) (*api.Router, error) {
	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == auth.AuthModeJWT {
		m, err := auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return nil, fmt.Errorf("configure jwt auth: %w", err)
		}
		jwtManager = m
	}
	return api.NewRouter(api.NewHandler(hc), &cfg.Security, jwtManager), nil
}

// scheduledRunRecorder turns each locked scheduler attempt into a run record.
func scheduledRunRecorder(recorder *runstore.Recorder, path string) func(context.Context, scheduler.RunResult) {
	return func(ctx context.Context, res scheduler.RunResult) {
		run := runstore.NewRun(models.SourceScheduled, res.StartedAt, res.FinishedAt, res.Persisted, res.Err)
		run.Filename = path
		// The scheduler context may already be cancelled at shutdown; the
		// record is still worth keeping.
		recorder.Record(context.WithoutCancel(ctx), run)
	}
}

func serveUntilSignal(tree *supervisor.SupervisorTree) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Starting supervisor tree...")
	// The channel receives exactly one value and is never closed.
	err := <-tree.ServeBackground(ctx)
	reportUnstopped(tree, logging.Logger())

	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
		return err
	}
	return nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func reportUnstopped(tree *supervisor.SupervisorTree, logger zerolog.Logger) {
	unstopped, err := tree.UnstoppedServiceReport()
	if err != nil || len(unstopped) == 0 {
		return
	}
	logger.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
	for _, svc := range unstopped {
		logger.Warn().Str("service", svc.Name).Msg("Service failed to stop")
	}
}
