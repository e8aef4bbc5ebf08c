// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package middleware provides the HTTP middleware shared by the API
// router: request identification, Prometheus instrumentation and JWT
// authentication.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mapcase/mapcase/internal/logging"
)

// RequestID assigns each request a unique ID, honouring an upstream
// X-Request-ID when present, and seeds the logging context so every log
// line for the request carries request_id and correlation_id.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			ctx = logging.ContextWithNewCorrelationID(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
