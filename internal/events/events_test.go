// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/csvingest/internal/config"
	"github.com/tomtom215/csvingest/internal/ingest"
	"github.com/tomtom215/csvingest/internal/logging"
	"github.com/tomtom215/csvingest/internal/metrics"
	"github.com/tomtom215/csvingest/internal/runstore"
)

func newLocalPublisher(t *testing.T) *Publisher {
	t.Helper()
	p, err := NewPublisher(config.EventsConfig{Enabled: true}, config.BreakerConfig{}, logging.NewWatermillAdapterWithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestTopic(t *testing.T) {
	tests := []struct {
		prefix, trigger, want string
	}{
		{"", "upload", "csv.ingestion.upload"},
		{"csv.ingestion", "scheduled", "csv.ingestion.scheduled"},
		{"acme.users", "upload", "acme.users.upload"},
	}
	for _, tt := range tests {
		if got := Topic(tt.prefix, tt.trigger); got != tt.want {
			t.Errorf("Topic(%q, %q) = %q, want %q", tt.prefix, tt.trigger, got, tt.want)
		}
	}
}

func TestNewIngestionEvent(t *testing.T) {
	start := time.Now().Add(-time.Second)
	run := runstore.NewRun("scheduled", start, time.Now(), 0, ingest.NewCsvFormatError(4, errors.New("bad age")))
	run.Filename = "data.csv"

	event := NewIngestionEvent(run)
	if event.EventID == "" || event.EventID == run.ID {
		t.Errorf("EventID = %q, want a fresh id", event.EventID)
	}
	if event.RunID != run.ID || event.Trigger != "scheduled" || event.Outcome != ingest.OutcomeCsvFormat {
		t.Errorf("event = %+v", event)
	}
	if event.Error == "" || event.Filename != "data.csv" {
		t.Errorf("error/filename not carried: %+v", event)
	}
	if event.OccurredAt.IsZero() {
		t.Error("OccurredAt not set")
	}
}

func TestPublisher_GoChannelRoundTrip(t *testing.T) {
	p := newLocalPublisher(t)
	if p.Backend() != BackendGoChannel {
		t.Fatalf("Backend() = %s, want %s", p.Backend(), BackendGoChannel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := p.Subscribe(ctx, "csv.ingestion.upload")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	before := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("csv.ingestion.upload", "success"))

	run := runstore.NewRun("upload", time.Now(), time.Now(), 3, nil)
	if err := p.PublishRun(ctx, run); err != nil {
		t.Fatalf("PublishRun() error = %v", err)
	}

	select {
	case msg := <-msgs:
		var event IngestionEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		msg.Ack()
		if event.RunID != run.ID || event.Persisted != 3 || event.Outcome != ingest.OutcomeSuccess {
			t.Errorf("event = %+v", event)
		}
		if msg.Metadata.Get("trigger") != "upload" || msg.Metadata.Get("run_id") != run.ID {
			t.Errorf("metadata = %v", msg.Metadata)
		}
		if msg.UUID != event.EventID {
			t.Errorf("message UUID = %s, want event id %s", msg.UUID, event.EventID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}

	if d := testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("csv.ingestion.upload", "success")) - before; d != 1 {
		t.Errorf("EventsPublished delta = %v, want 1", d)
	}
}

func TestPublisher_Closed(t *testing.T) {
	p := newLocalPublisher(t)
	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := p.PublishRun(context.Background(), runstore.NewRun("upload", time.Now(), time.Now(), 0, nil)); err == nil {
		t.Error("PublishRun() after Close should fail")
	}
}

func TestPublisher_AsRecorderSink(t *testing.T) {
	p := newLocalPublisher(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := p.Subscribe(ctx, p.Topic("scheduled"))
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	store := runstore.NewInMemoryStore(10)
	rec := runstore.NewRecorder(store, zerolog.Nop(), p)
	rec.Record(ctx, runstore.NewRun("scheduled", time.Now(), time.Now(), 1, nil))

	select {
	case msg := <-msgs:
		msg.Ack()
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not publish")
	}
	if runs, _ := store.List(ctx, 10); len(runs) != 1 {
		t.Errorf("stored runs = %d, want 1", len(runs))
	}
}

func TestConsumer_HandlesEvents(t *testing.T) {
	p := newLocalPublisher(t)

	received := make(chan IngestionEvent, 2)
	consumer := NewConsumer(p, []string{"upload", "scheduled"}, func(_ context.Context, e IngestionEvent) error {
		select {
		case received <- e:
		default:
		}
		return nil
	}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	// Publish until the subscription is live; GoChannel drops messages sent
	// before anyone subscribes.
	deadline := time.After(5 * time.Second)
	run := runstore.NewRun("scheduled", time.Now(), time.Now(), 2, nil)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

wait:
	for {
		select {
		case e := <-received:
			if e.RunID != run.ID {
				t.Errorf("RunID = %s, want %s", e.RunID, run.ID)
			}
			break wait
		case <-ticker.C:
			_ = p.PublishRun(ctx, run)
		case <-deadline:
			t.Fatal("consumer never received an event")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestNewConsumer_DefaultHandlerLogs(t *testing.T) {
	c := NewConsumer(nil, nil, nil, zerolog.Nop())
	if err := c.handler(context.Background(), IngestionEvent{Trigger: "upload"}); err != nil {
		t.Errorf("default handler error = %v", err)
	}
}
