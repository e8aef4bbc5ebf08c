// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package events carries record-mutation notifications between the API
// handlers and downstream consumers (metrics, the dashboard websocket hub)
// over an in-process Watermill pub/sub.
package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// TopicRecordMutations is the topic all record create/update/delete
// notifications are published on.
const TopicRecordMutations = "records.mutations"

// RecordEvent describes one mutation of an incident record.
type RecordEvent struct {
	EventID   string    `json:"event_id"`
	RecordID  uuid.UUID `json:"record_id"`
	Action    string    `json:"action"` // create, update or delete
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordEvent builds an event for a mutation that just happened.
func NewRecordEvent(recordID uuid.UUID, action, username string) *RecordEvent {
	return &RecordEvent{
		EventID:   watermill.NewUUID(),
		RecordID:  recordID,
		Action:    action,
		Username:  username,
		Timestamp: time.Now().UTC(),
	}
}

// SerializeEvent encodes an event for the wire.
func SerializeEvent(event *RecordEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("serialize record event: %w", err)
	}
	return data, nil
}

// DeserializeEvent decodes an event from a message payload.
func DeserializeEvent(data []byte) (*RecordEvent, error) {
	var event RecordEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("deserialize record event: %w", err)
	}
	return &event, nil
}

// Bus is an in-process pub/sub for record mutations. Publishers and
// subscribers share one GoChannel instance; messages are not persisted,
// a subscriber only sees mutations that happen while it is attached.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger watermill.LoggerAdapter
}

// NewBus creates the mutation bus.
func NewBus(logger watermill.LoggerAdapter) *Bus {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, logger),
		logger: logger,
	}
}

// PublishMutation serializes and publishes a record event. Failures are
// reported to the caller but must not fail the mutation itself; the API
// layer logs and continues.
func (b *Bus) PublishMutation(event *RecordEvent) error {
	data, err := SerializeEvent(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("action", event.Action)
	msg.Metadata.Set("record_id", event.RecordID.String())

	if err := b.pubsub.Publish(TopicRecordMutations, msg); err != nil {
		return fmt.Errorf("publish record event: %w", err)
	}
	return nil
}

// Subscriber exposes the bus for Watermill router handlers.
func (b *Bus) Subscriber() message.Subscriber {
	return b.pubsub
}

// Close shuts down the pub/sub and unblocks all subscribers.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
