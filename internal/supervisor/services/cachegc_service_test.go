// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// mockGC counts RunGC calls and can fail continuously.
type mockGC struct {
	calls atomic.Int64
	err   error
}

func (m *mockGC) RunGC() (bool, error) {
	m.calls.Add(1)
	if m.err != nil {
		return false, m.err
	}
	return true, nil
}

func TestCacheGCService_RunsOnTicker(t *testing.T) {
	t.Parallel()

	gc := &mockGC{}
	service := NewCacheGCService(gc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Serve(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for gc.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected at least 3 GC runs, got %d", gc.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for service to stop")
	}
}

func TestCacheGCService_ErrorsAreNotFatal(t *testing.T) {
	t.Parallel()

	gc := &mockGC{err: errors.New("gc failed")}
	service := NewCacheGCService(gc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- service.Serve(ctx)
	}()

	// The loop must keep ticking through failures.
	deadline := time.Now().Add(5 * time.Second)
	for gc.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected GC to keep retrying, got %d calls", gc.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
}

func TestCacheGCService_String(t *testing.T) {
	t.Parallel()

	if got := NewCacheGCService(&mockGC{}, 0).String(); got != "tilecache-gc" {
		t.Errorf("Expected 'tilecache-gc', got %q", got)
	}
}
