// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// mockBroadcaster collects broadcast payloads.
type mockBroadcaster struct {
	mu       sync.Mutex
	payloads [][]byte
	notify   chan struct{}
}

func newMockBroadcaster() *mockBroadcaster {
	return &mockBroadcaster{notify: make(chan struct{}, 16)}
}

func (m *mockBroadcaster) Broadcast(payload []byte) {
	m.mu.Lock()
	m.payloads = append(m.payloads, payload)
	m.mu.Unlock()
	m.notify <- struct{}{}
}

func (m *mockBroadcaster) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

// startTestRelay runs a relay over a fresh bus and tears both down with
// the test.
func startTestRelay(t *testing.T, broadcaster Broadcaster) *Bus {
	t.Helper()

	bus := NewBus(nil)
	relay, err := NewRelay(bus, broadcaster, nil)
	if err != nil {
		t.Fatalf("NewRelay failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := relay.Serve(ctx); err != nil {
			t.Errorf("Relay serve failed: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		bus.Close()
	})

	select {
	case <-relay.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for relay to start")
	}
	return bus
}

func TestRelay_ForwardsEventsToBroadcaster(t *testing.T) {
	t.Parallel()

	broadcaster := newMockBroadcaster()
	bus := startTestRelay(t, broadcaster)

	event := NewRecordEvent(uuid.New(), "create", "alice")
	if err := bus.PublishMutation(event); err != nil {
		t.Fatalf("PublishMutation failed: %v", err)
	}

	select {
	case <-broadcaster.notify:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for broadcast")
	}

	broadcaster.mu.Lock()
	defer broadcaster.mu.Unlock()
	got, err := DeserializeEvent(broadcaster.payloads[0])
	if err != nil {
		t.Fatalf("Broadcast payload did not decode: %v", err)
	}
	if got.EventID != event.EventID {
		t.Errorf("Expected event %s, got %s", event.EventID, got.EventID)
	}
}

func TestRelay_ForwardsEachEventOnce(t *testing.T) {
	t.Parallel()

	broadcaster := newMockBroadcaster()
	bus := startTestRelay(t, broadcaster)

	const published = 5
	for i := 0; i < published; i++ {
		if err := bus.PublishMutation(NewRecordEvent(uuid.New(), "update", "bob")); err != nil {
			t.Fatalf("PublishMutation %d failed: %v", i, err)
		}
	}

	deadline := time.After(5 * time.Second)
	for broadcaster.count() < published {
		select {
		case <-broadcaster.notify:
		case <-deadline:
			t.Fatalf("Timed out: got %d of %d broadcasts", broadcaster.count(), published)
		}
	}

	// Give any duplicate delivery a moment to appear.
	time.Sleep(100 * time.Millisecond)
	if got := broadcaster.count(); got != published {
		t.Errorf("Expected exactly %d broadcasts, got %d", published, got)
	}
}

func TestRelay_NilBroadcaster(t *testing.T) {
	t.Parallel()

	bus := startTestRelay(t, nil)

	// Must not panic; the event is consumed for metrics only.
	if err := bus.PublishMutation(NewRecordEvent(uuid.New(), "delete", "carol")); err != nil {
		t.Fatalf("PublishMutation failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
}
