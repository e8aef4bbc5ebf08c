// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mapcase/mapcase/internal/auth"
	"github.com/mapcase/mapcase/internal/middleware"
)

// Router wires the handler into the chi routing tree.
type Router struct {
	handler  *Handler
	verifier *auth.Verifier
}

// NewRouter creates the router.
func NewRouter(handler *Handler, verifier *auth.Verifier) *Router {
	return &Router{handler: handler, verifier: verifier}
}

// Setup builds the full routing tree with the global middleware stack.
func (router *Router) Setup() http.Handler {
	cfg := router.handler.config
	r := chi.NewRouter()

	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Security.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	// Health and metrics stay outside authentication so probes and
	// scrapers need no credentials.
	r.Route("/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/live", router.handler.Liveness)
		r.Get("/ready", router.handler.Readiness)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow))
		r.Use(middleware.PrometheusMetrics())
		r.Use(middleware.Authenticate(router.verifier))

		r.Route("/records", func(r chi.Router) {
			r.Get("/", router.handler.ListRecords)
			r.Post("/", router.handler.CreateRecord)
			r.Get("/toddow", router.handler.GetTodDow)
			r.Get("/stepwise", router.handler.GetStepwise)
			r.Get("/{id}", router.handler.GetRecord)
			r.Put("/{id}", router.handler.UpdateRecord)
			r.Delete("/{id}", router.handler.DeleteRecord)
		})

		r.Route("/audit-log", func(r chi.Router) {
			r.Get("/", router.handler.GetAuditLog)
			r.Post("/", router.handler.RejectAuditWrite)
		})

		r.Get("/tiles/query/{token}", router.handler.GetTileQuery)
		r.Get("/ws", router.handler.HandleWebSocket)
	})

	return r
}
