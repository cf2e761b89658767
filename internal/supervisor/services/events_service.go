// CSVIngest - Scheduled and On-Demand CSV Record Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/csvingest

package services

import (
	"context"
	"fmt"
)

// Runner blocks until ctx is done, e.g. *events.Consumer.
type Runner interface {
	Run(ctx context.Context) error
}

// EventsService supervises the ingestion event consumer.
type EventsService struct {
	consumer Runner
}

// NewEventsService wraps consumer.
func NewEventsService(consumer Runner) *EventsService {
	return &EventsService{consumer: consumer}
}

// Serve runs the consumer. A subscription failure is returned for suture
// to restart; a clean return after cancellation reports ctx.Err().
func (s *EventsService) Serve(ctx context.Context) error {
	if err := s.consumer.Run(ctx); err != nil {
		return fmt.Errorf("events consumer failed: %w", err)
	}
	return ctx.Err()
}

func (s *EventsService) String() string {
	return "events-consumer"
}
