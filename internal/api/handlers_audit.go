// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/mapcase/mapcase/internal/audit"
	"github.com/mapcase/mapcase/internal/authz"
	"github.com/mapcase/mapcase/internal/models"
)

// GetAuditLog handles GET /api/v1/audit-log. The date bounds are required
// and the span is capped so a single query can never walk the whole log.
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, authz.ResourceAudit, authz.ActionRead); !ok {
		return
	}

	params := r.URL.Query()
	filter := audit.QueryFilter{
		Action:   audit.Action(params.Get("action")),
		Username: params.Get("username"),
	}

	var perr *audit.ValidationError
	if filter.MinDate, perr = parseDateParam(params.Get("min_date"), "min_date"); perr != nil {
		respondErrorDetails(w, http.StatusBadRequest, codeValidationError, perr.Error(), map[string]interface{}{
			"param": perr.Param,
		})
		return
	}
	if filter.MaxDate, perr = parseDateParam(params.Get("max_date"), "max_date"); perr != nil {
		respondErrorDetails(w, http.StatusBadRequest, codeValidationError, perr.Error(), map[string]interface{}{
			"param": perr.Param,
		})
		return
	}

	maxSpan := time.Duration(h.config.Audit.MaxQuerySpanDays) * 24 * time.Hour
	if err := filter.Validate(maxSpan); err != nil {
		var verr *audit.ValidationError
		if errors.As(err, &verr) {
			respondErrorDetails(w, http.StatusBadRequest, codeValidationError, verr.Error(), map[string]interface{}{
				"param": verr.Param,
			})
			return
		}
		respondError(w, http.StatusBadRequest, codeValidationError, err.Error(), nil)
		return
	}

	start := time.Now()
	entries, err := h.audit.Query(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "audit query failed", err)
		return
	}

	respondDataMeta(w, http.StatusOK, entries, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
	})
}

// RejectAuditWrite handles POST /api/v1/audit-log. The log has exactly one
// writer, the mutation path; external writes are refused for every caller,
// admin included.
func (h *Handler) RejectAuditWrite(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusForbidden, codeAuthorizationError, "audit log entries cannot be written through the API", nil)
}

// parseDateParam accepts RFC3339 timestamps and bare dates. A bare date is
// interpreted as midnight UTC of that day.
func parseDateParam(value, name string) (*time.Time, *audit.ValidationError) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return &t, nil
	}
	return nil, &audit.ValidationError{Param: name, Msg: "must be an RFC3339 timestamp or YYYY-MM-DD date"}
}
