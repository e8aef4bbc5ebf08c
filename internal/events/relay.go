// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/mapcase/mapcase/internal/logging"
	"github.com/mapcase/mapcase/internal/metrics"
)

// Broadcaster receives serialized mutation events for fan-out to
// connected dashboard clients.
type Broadcaster interface {
	Broadcast(payload []byte)
}

// Relay consumes the mutation topic, keeps the mutation counters current
// and forwards each event to the dashboard broadcaster. It runs as a
// supervised service.
type Relay struct {
	router      *message.Router
	broadcaster Broadcaster
}

// NewRelay wires a Watermill router over the bus. broadcaster may be nil
// when the websocket surface is disabled; metrics are still recorded.
func NewRelay(bus *Bus, broadcaster Broadcaster, logger watermill.LoggerAdapter) (*Relay, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 10 * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create mutation router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	retry := middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		Logger:          logger,
	}
	router.AddMiddleware(retry.Middleware)

	r := &Relay{
		router:      router,
		broadcaster: broadcaster,
	}

	router.AddConsumerHandler(
		"record_mutation_relay",
		TopicRecordMutations,
		bus.Subscriber(),
		r.handle,
	)

	return r, nil
}

func (r *Relay) handle(msg *message.Message) error {
	event, err := DeserializeEvent(msg.Payload)
	if err != nil {
		// Malformed payloads cannot succeed on retry; drop with a log.
		logging.Error().Err(err).Str("message_id", msg.UUID).Msg("Dropping malformed mutation event")
		return nil
	}

	metrics.RecordMutations.WithLabelValues(event.Action).Inc()

	if r.broadcaster != nil {
		r.broadcaster.Broadcast(msg.Payload)
	}
	return nil
}

// Serve runs the relay until the context is cancelled. It satisfies the
// supervision tree's service contract.
func (r *Relay) Serve(ctx context.Context) error {
	return r.router.Run(ctx)
}

// Running closes when the relay's router is processing messages.
func (r *Relay) Running() <-chan struct{} {
	return r.router.Running()
}
