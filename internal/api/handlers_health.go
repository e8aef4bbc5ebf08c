// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package api

import (
	"net/http"
	"time"
)

// Liveness handles GET /health/live. It answers as long as the process
// serves requests.
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"status": "alive",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// Readiness handles GET /health/ready. Ready means the record store
// answers a ping within the request deadline.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, codeDatabaseError, "record store not reachable", err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
	})
}
