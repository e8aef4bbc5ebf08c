// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mapcase/mapcase/internal/authz"
	"github.com/mapcase/mapcase/internal/tilecache"
)

// GetTileQuery handles GET /api/v1/tiles/query/{token}: the replay side of
// the tilekey flow. The tile renderer exchanges the opaque token for the
// serialized query it should execute. An unknown or expired token is a
// normal outcome, not a failure.
func (h *Handler) GetTileQuery(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, authz.ResourceTiles, authz.ActionRead); !ok {
		return
	}

	token := chi.URLParam(r, "token")
	if token == "" {
		respondError(w, http.StatusBadRequest, codeValidationError, "token is required", nil)
		return
	}

	serialized, err := h.tiles.Fetch(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, tilecache.ErrTokenNotFound):
			respondError(w, http.StatusNotFound, codeNotFound, "unknown or expired tile query token", nil)
		case errors.Is(err, tilecache.ErrUnavailable):
			respondError(w, http.StatusBadGateway, codeExternalServiceErr, "tile query cache unavailable", err)
		default:
			respondError(w, http.StatusInternalServerError, codeDatabaseError, "tile query fetch failed", err)
		}
		return
	}

	respondData(w, http.StatusOK, serialized)
}
