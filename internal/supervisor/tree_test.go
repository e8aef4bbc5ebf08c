// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// testService runs until cancelled, counting starts so restart behavior
// is observable.
type testService struct {
	name   string
	starts atomic.Int64
	fail   atomic.Bool
}

func (s *testService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	if s.fail.Load() {
		s.fail.Store(false)
		return errors.New("transient failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *testService) String() string { return s.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTree_RunsAndStopsServices(t *testing.T) {
	t.Parallel()

	tree := NewTree(discardLogger(), DefaultTreeConfig())
	dataSvc := &testService{name: "data-svc"}
	msgSvc := &testService{name: "msg-svc"}
	apiSvc := &testService{name: "api-svc"}

	tree.AddDataService(dataSvc)
	tree.AddMessagingService(msgSvc)
	tree.AddAPIService(apiSvc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tree.Serve(ctx)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for dataSvc.starts.Load() == 0 || msgSvc.starts.Load() == 0 || apiSvc.starts.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for services to start")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Unexpected serve error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for tree to stop")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport failed: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("Expected all services stopped, got %d unstopped", len(report))
	}
}

func TestTree_RestartsFailedService(t *testing.T) {
	t.Parallel()

	config := DefaultTreeConfig()
	config.FailureBackoff = 10 * time.Millisecond

	tree := NewTree(discardLogger(), config)
	svc := &testService{name: "flaky"}
	svc.fail.Store(true)
	tree.AddMessagingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tree.Serve(ctx) //nolint:errcheck // stopped via cancel

	// First run fails, the supervisor must start it again.
	deadline := time.Now().Add(5 * time.Second)
	for svc.starts.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected a restart after failure, got %d starts", svc.starts.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDefaultTreeConfig(t *testing.T) {
	t.Parallel()

	config := DefaultTreeConfig()
	if config.FailureThreshold != 5.0 || config.FailureDecay != 30.0 {
		t.Errorf("Unexpected failure parameters: %+v", config)
	}
	if config.FailureBackoff != 15*time.Second || config.ShutdownTimeout != 10*time.Second {
		t.Errorf("Unexpected timing parameters: %+v", config)
	}
}
