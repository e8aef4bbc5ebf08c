// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package services

import "context"

// ContextRunner matches the mutation relay's Serve method.
type ContextRunner interface {
	Serve(ctx context.Context) error
}

// RelayService runs the mutation event relay under supervision.
type RelayService struct {
	relay ContextRunner
}

// NewRelayService wraps the relay for supervision.
func NewRelayService(relay ContextRunner) *RelayService {
	return &RelayService{relay: relay}
}

// Serve implements suture.Service.
func (s *RelayService) Serve(ctx context.Context) error {
	return s.relay.Serve(ctx)
}

func (s *RelayService) String() string {
	return "mutation-relay"
}
