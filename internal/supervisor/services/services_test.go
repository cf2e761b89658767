// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/csvingest/internal/scheduler"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*SchedulerService)(nil)
	_ suture.Service = (*EventsService)(nil)
	_ StartStopper   = (*scheduler.Scheduler)(nil)
)

// mockHTTPServer blocks in ListenAndServe until Shutdown unless listenErr is set.
type mockHTTPServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stopCh      chan struct{}
	shutdowns   atomic.Int32
}

func newMockHTTPServer() *mockHTTPServer {
	return &mockHTTPServer{
		started: make(chan struct{}, 1),
		stopCh:  make(chan struct{}),
	}
}

func (m *mockHTTPServer) ListenAndServe() error {
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.listenErr != nil {
		return m.listenErr
	}
	<-m.stopCh
	return http.ErrServerClosed
}

func (m *mockHTTPServer) Shutdown(context.Context) error {
	m.shutdowns.Add(1)
	close(m.stopCh)
	return m.shutdownErr
}

func serveAsync(svc suture.Service) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return cancel, errCh
}

func awaitErr(t *testing.T, errCh <-chan error) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestHTTPServerService(t *testing.T) {
	t.Run("default timeout", func(t *testing.T) {
		for _, d := range []time.Duration{0, -time.Second} {
			svc := NewHTTPServerService(newMockHTTPServer(), d, zerolog.Nop())
			if svc.shutdownTimeout != 10*time.Second {
				t.Errorf("timeout(%v) = %v, want 10s", d, svc.shutdownTimeout)
			}
		}
	})

	t.Run("graceful shutdown on cancel", func(t *testing.T) {
		server := newMockHTTPServer()
		cancel, errCh := serveAsync(NewHTTPServerService(server, time.Second, zerolog.Nop()))
		<-server.started
		cancel()

		if err := awaitErr(t, errCh); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
		if server.shutdowns.Load() != 1 {
			t.Errorf("Shutdown called %d times", server.shutdowns.Load())
		}
	})

	t.Run("listen failure", func(t *testing.T) {
		server := newMockHTTPServer()
		server.listenErr = errors.New("bind: address already in use")
		err := NewHTTPServerService(server, time.Second, zerolog.Nop()).Serve(context.Background())
		if !errors.Is(err, server.listenErr) {
			t.Errorf("err = %v, want wrapped listen error", err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		server := newMockHTTPServer()
		server.shutdownErr = errors.New("shutdown timeout")
		cancel, errCh := serveAsync(NewHTTPServerService(server, time.Second, zerolog.Nop()))
		<-server.started
		cancel()

		if err := awaitErr(t, errCh); !errors.Is(err, server.shutdownErr) {
			t.Errorf("err = %v, want shutdown error", err)
		}
	})

	t.Run("name", func(t *testing.T) {
		if got := NewHTTPServerService(newMockHTTPServer(), 0, zerolog.Nop()).String(); got != "http-server" {
			t.Errorf("String() = %q", got)
		}
	})
}

type mockStartStopper struct {
	startErr error
	stopErr  error
	started  chan struct{}
	stops    atomic.Int32
}

func (m *mockStartStopper) Start(context.Context) error {
	if m.started != nil {
		close(m.started)
	}
	return m.startErr
}

func (m *mockStartStopper) Stop() error {
	m.stops.Add(1)
	return m.stopErr
}

func TestSchedulerService(t *testing.T) {
	t.Run("start then stop on cancel", func(t *testing.T) {
		m := &mockStartStopper{started: make(chan struct{})}
		cancel, errCh := serveAsync(NewSchedulerService(m))
		<-m.started
		cancel()

		if err := awaitErr(t, errCh); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
		if m.stops.Load() != 1 {
			t.Errorf("Stop called %d times", m.stops.Load())
		}
	})

	t.Run("start failure", func(t *testing.T) {
		m := &mockStartStopper{startErr: errors.New("scheduler already running")}
		err := NewSchedulerService(m).Serve(context.Background())
		if !errors.Is(err, m.startErr) {
			t.Errorf("err = %v", err)
		}
		if m.stops.Load() != 0 {
			t.Error("Stop called after failed Start")
		}
	})

	t.Run("stop failure", func(t *testing.T) {
		m := &mockStartStopper{started: make(chan struct{}), stopErr: errors.New("stuck")}
		cancel, errCh := serveAsync(NewSchedulerService(m))
		<-m.started
		cancel()
		if err := awaitErr(t, errCh); !errors.Is(err, m.stopErr) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("real scheduler", func(t *testing.T) {
		ticks := make(chan struct{}, 8)
		ticker := tickerFunc(func(context.Context) {
			select {
			case ticks <- struct{}{}:
			default:
			}
		})
		logger := zerolog.Nop()
		sched := scheduler.NewScheduler(ticker, &logger, scheduler.Config{
			Interval:   10 * time.Millisecond,
			Enabled:    true,
			RunOnStart: true,
		})

		cancel, errCh := serveAsync(NewSchedulerService(sched))
		select {
		case <-ticks:
		case <-time.After(time.Second):
			t.Fatal("scheduler never ticked")
		}
		cancel()
		awaitErr(t, errCh)

		if sched.IsRunning() {
			t.Error("scheduler still running after service stopped")
		}
	})
}

// tickerFunc adapts a function to scheduler.Ticker.
type tickerFunc func(ctx context.Context)

func (f tickerFunc) Tick(ctx context.Context) { f(ctx) }
func (f tickerFunc) Wait()                    {}

type runnerFunc func(ctx context.Context) error

func (f runnerFunc) Run(ctx context.Context) error { return f(ctx) }

func TestEventsService(t *testing.T) {
	t.Run("returns ctx error after clean run", func(t *testing.T) {
		svc := NewEventsService(runnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return nil
		}))
		cancel, errCh := serveAsync(svc)
		cancel()
		if err := awaitErr(t, errCh); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("wraps consumer failure", func(t *testing.T) {
		cause := errors.New("subscribe csv.ingestion.upload: closed")
		err := NewEventsService(runnerFunc(func(context.Context) error { return cause })).Serve(context.Background())
		if !errors.Is(err, cause) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("name", func(t *testing.T) {
		if got := NewEventsService(nil).String(); got != "events-consumer" {
			t.Errorf("String() = %q", got)
		}
	})
}
