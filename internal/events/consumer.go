// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Handler processes one decoded event. A returned error nacks the message.
type Handler func(ctx context.Context, event IngestionEvent) error

// Consumer drains in-process ingestion events for a set of triggers.
type Consumer struct {
	publisher *Publisher
	triggers  []string
	handler   Handler
	logger    zerolog.Logger
}

// NewConsumer creates a consumer for triggers. A nil handler logs each
// event at debug level.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewConsumer(publisher *Publisher, triggers []string, handler Handler, logger zerolog.Logger) *Consumer {
	c := &Consumer{
		publisher: publisher,
		triggers:  triggers,
		handler:   handler,
		logger:    logger.With().Str("component", "events").Logger(),
	}
	if c.handler == nil {
		c.handler = c.logEvent
	}
	return c
}

// Run subscribes to every trigger topic and blocks until ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, trigger := range c.triggers {
		topic := c.publisher.Topic(trigger)
		msgs, err := c.publisher.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.drain(ctx, topic, msgs)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func (c *Consumer) drain(ctx context.Context, topic string, msgs <-chan *message.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			c.handle(ctx, topic, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, topic string, msg *message.Message) {
	var event IngestionEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		c.logger.Warn().Err(err).Str("topic", topic).Str("message_id", msg.UUID).Msg("Dropping undecodable ingestion event")
		msg.Ack()
		return
	}

	if err := c.handler(ctx, event); err != nil {
		c.logger.Warn().Err(err).Str("topic", topic).Str("event_id", event.EventID).Msg("Ingestion event handler failed")
		msg.Nack()
		return
	}
	msg.Ack()
}

func (c *Consumer) logEvent(_ context.Context, event IngestionEvent) error {
	c.logger.Debug().
		Str("event_id", event.EventID).
		Str("run_id", event.RunID).
		Str("trigger", event.Trigger).
		Str("outcome", event.Outcome).
		Int("persisted", event.Persisted).
		Msg("Ingestion event")
	return nil
}
