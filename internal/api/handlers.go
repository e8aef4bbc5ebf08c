// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package api provides the HTTP surface of the Mapcase core.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, shared helpers
//   - handlers_records.go: record listing, mutation, aggregation endpoints
//   - handlers_audit.go: audit log read surface
//   - handlers_tiles.go: tile query replay
//   - handlers_health.go: liveness/readiness
//   - handlers_websocket.go: dashboard feed upgrade
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mapcase/mapcase/internal/aggregation"
	"github.com/mapcase/mapcase/internal/audit"
	"github.com/mapcase/mapcase/internal/auth"
	"github.com/mapcase/mapcase/internal/authz"
	"github.com/mapcase/mapcase/internal/config"
	"github.com/mapcase/mapcase/internal/events"
	"github.com/mapcase/mapcase/internal/logging"
	"github.com/mapcase/mapcase/internal/models"
	"github.com/mapcase/mapcase/internal/query"
	"github.com/mapcase/mapcase/internal/tilecache"
	ws "github.com/mapcase/mapcase/internal/websocket"
)

// RecordStore is the record persistence interface the handlers depend on.
// Satisfied by *database.DB; tests use in-memory mocks.
type RecordStore interface {
	InsertRecord(ctx context.Context, record *models.Record) error
	UpdateRecord(ctx context.Context, record *models.Record) error
	DeleteRecord(ctx context.Context, id uuid.UUID) error
	GetRecord(ctx context.Context, id uuid.UUID) (*models.Record, error)
	ListRecords(ctx context.Context, pred query.Predicate, limit, offset int) ([]models.Record, int64, error)
	Ping(ctx context.Context) error
}

// Handler contains the dependencies for all API handlers.
type Handler struct {
	db        RecordStore
	engine    *aggregation.Engine
	tiles     tilecache.Cache
	audit     audit.Store
	recorder  *audit.Recorder
	enforcer  *authz.Enforcer
	bus       *events.Bus
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time
}

// NewHandler creates the API handler. bus and wsHub may be nil in tests;
// the corresponding side channels are then skipped.
func NewHandler(
	db RecordStore,
	engine *aggregation.Engine,
	tiles tilecache.Cache,
	auditStore audit.Store,
	recorder *audit.Recorder,
	enforcer *authz.Enforcer,
	bus *events.Bus,
	wsHub *ws.Hub,
	cfg *config.Config,
) *Handler {
	return &Handler{
		db:        db,
		engine:    engine,
		tiles:     tiles,
		audit:     auditStore,
		recorder:  recorder,
		enforcer:  enforcer,
		bus:       bus,
		wsHub:     wsHub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// requirePermission resolves the principal and checks the Casbin policy.
// On failure it writes the error response and returns ok=false.
func (h *Handler) requirePermission(w http.ResponseWriter, r *http.Request, resource, action string) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "AUTHENTICATION_ERROR", "authentication required", nil)
		return auth.Principal{}, false
	}

	allowed, err := h.enforcer.Allowed(principal, resource, action)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "authorization check failed", err)
		return auth.Principal{}, false
	}
	if !allowed {
		logging.Ctx(r.Context()).Warn().
			Str("username", principal.Username).
			Str("resource", resource).
			Str("action", action).
			Msg("Access denied")
		respondError(w, http.StatusForbidden, codeAuthorizationError, "insufficient permissions", nil)
		return auth.Principal{}, false
	}

	return principal, true
}

// publishMutation emits a mutation event for the dashboard feed. Publish
// failures never fail the request.
func (h *Handler) publishMutation(r *http.Request, event *events.RecordEvent) {
	if h.bus == nil {
		return
	}
	if err := h.bus.PublishMutation(event); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).
			Str("action", event.Action).
			Msg("Failed to publish mutation event")
	}
}
