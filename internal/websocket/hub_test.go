// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"
)

// startTestHub runs a hub until test cleanup.
func startTestHub(t *testing.T) *Hub {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := hub.RunWithContext(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled from hub, got %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// newTestClient builds a client that is never started, so its send
// channel can be inspected directly.
func newTestClient(hub *Hub) *Client {
	return NewClient(hub, nil)
}

func waitForClientCount(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for client count %d, have %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	t.Parallel()

	hub := startTestHub(t)
	client := newTestClient(hub)

	hub.Register <- client
	waitForClientCount(t, hub, 1)

	hub.Unregister <- client
	waitForClientCount(t, hub, 0)

	// Unregistering closes the send channel.
	select {
	case _, open := <-client.send:
		if open {
			t.Error("Expected send channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for send channel close")
	}
}

func TestHub_UnregisterUnknownClient(t *testing.T) {
	t.Parallel()

	hub := startTestHub(t)

	// Must not panic or close anything twice.
	hub.Unregister <- newTestClient(hub)
	waitForClientCount(t, hub, 0)
}

func TestHub_BroadcastFansOut(t *testing.T) {
	t.Parallel()

	hub := startTestHub(t)
	first := newTestClient(hub)
	second := newTestClient(hub)

	hub.Register <- first
	hub.Register <- second
	waitForClientCount(t, hub, 2)

	hub.Broadcast([]byte(`{"event_id":"e1","action":"create"}`))

	for _, client := range []*Client{first, second} {
		select {
		case msg := <-client.send:
			if msg.Type != MessageTypeRecordMutation {
				t.Errorf("Expected type %q, got %q", MessageTypeRecordMutation, msg.Type)
			}
			data, ok := msg.Data.(map[string]interface{})
			if !ok {
				t.Fatalf("Expected map payload, got %T", msg.Data)
			}
			if data["action"] != "create" {
				t.Errorf("Expected action 'create', got %v", data["action"])
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Timed out waiting for broadcast")
		}
	}
}

func TestHub_BroadcastDropsMalformedPayload(t *testing.T) {
	t.Parallel()

	hub := startTestHub(t)
	client := newTestClient(hub)

	hub.Register <- client
	waitForClientCount(t, hub, 1)

	hub.Broadcast([]byte("{not json"))

	select {
	case msg := <-client.send:
		t.Errorf("Expected no delivery for malformed payload, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	t.Parallel()

	hub := startTestHub(t)
	slow := newTestClient(hub)

	hub.Register <- slow
	waitForClientCount(t, hub, 1)

	// Nothing reads slow.send; overflow its buffer.
	for i := 0; i < cap(slow.send)+8; i++ {
		hub.Broadcast([]byte(`{"event_id":"e","action":"update"}`))
		// Give the hub loop time to drain its own broadcast channel.
		if i%64 == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}

	waitForClientCount(t, hub, 0)
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- hub.RunWithContext(ctx)
	}()

	client := newTestClient(hub)
	hub.Register <- client
	waitForClientCount(t, hub, 1)

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for hub to stop")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients after shutdown, got %d", hub.ClientCount())
	}

	select {
	case _, open := <-client.send:
		if open {
			t.Error("Expected send channel to be closed on shutdown")
		}
	default:
		t.Error("Expected send channel to be closed on shutdown")
	}
}
