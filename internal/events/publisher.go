// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/csvingest/internal/config"
	"github.com/tomtom215/csvingest/internal/metrics"
	"github.com/tomtom215/csvingest/internal/resilience"
	"github.com/tomtom215/csvingest/internal/runstore"
)

// ErrSubscribeUnsupported is returned by Subscribe on a NATS-backed publisher.
var ErrSubscribeUnsupported = errors.New("in-process subscribe requires the gochannel backend")

// Backend names reported by Publisher.Backend.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
)

// Publisher publishes ingestion events. It satisfies runstore.Sink.
type Publisher struct {
	publisher message.Publisher
	local     *gochannel.GoChannel // nil for NATS
	breaker   *resilience.Breaker
	prefix    string
	backend   string
	logger    watermill.LoggerAdapter

	mu     sync.RWMutex
	closed bool
}

var _ runstore.Sink = (*Publisher)(nil)

// NewPublisher creates a publisher from cfg. An empty NATS URL selects the
// in-process GoChannel backend.
func NewPublisher(cfg config.EventsConfig, breakerCfg config.BreakerConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	p := &Publisher{
		prefix:  cfg.TopicPrefix,
		logger:  logger,
		breaker: resilience.NewBreaker("events-publisher", breakerCfg),
	}
	if p.prefix == "" {
		p.prefix = DefaultTopicPrefix
	}

	if cfg.NATSURL == "" {
		p.local = gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, logger)
		p.publisher = p.local
		p.backend = BackendGoChannel
		return p, nil
	}

	pub, err := newNATSPublisher(cfg, logger)
	if err != nil {
		return nil, err
	}
	p.publisher = pub
	p.backend = BackendNATS
	return p, nil
}

func newNATSPublisher(cfg config.EventsConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	natsOpts := []natsgo.Option{
		natsgo.Name("csvingest"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	// Core NATS: ingestion events are notifications, not a durable log.
	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.NATSURL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill nats publisher: %w", err)
	}
	return pub, nil
}

// PublishRun publishes run as an IngestionEvent.
func (p *Publisher) PublishRun(ctx context.Context, run runstore.Run) error {
	event := NewIngestionEvent(run)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ingestion event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("trigger", event.Trigger)
	msg.Metadata.Set("outcome", event.Outcome)
	msg.Metadata.Set("run_id", event.RunID)

	return p.Publish(ctx, Topic(p.prefix, event.Trigger), msg)
}

// Publish sends msg to topic through the circuit breaker.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	msg.SetContext(ctx)
	err := p.breaker.Execute(func() error {
		return p.publisher.Publish(topic, msg)
	})
	metrics.RecordEventPublish(topic, err)
	return err
}

// Subscribe returns the messages published on topic. Only the GoChannel
// backend supports in-process subscription.
func (p *Publisher) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	if p.local == nil {
		return nil, ErrSubscribeUnsupported
	}
	return p.local.Subscribe(ctx, topic)
}

// Topic returns the topic used for trigger.
func (p *Publisher) Topic(trigger string) string {
	return Topic(p.prefix, trigger)
}

// Backend returns "gochannel" or "nats".
func (p *Publisher) Backend() string {
	return p.backend
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}
