// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mapcase/mapcase/internal/aggregation"
	"github.com/mapcase/mapcase/internal/audit"
	"github.com/mapcase/mapcase/internal/authz"
	"github.com/mapcase/mapcase/internal/database"
	"github.com/mapcase/mapcase/internal/events"
	"github.com/mapcase/mapcase/internal/logging"
	"github.com/mapcase/mapcase/internal/models"
	"github.com/mapcase/mapcase/internal/query"
	"github.com/mapcase/mapcase/internal/tilecache"
	"github.com/mapcase/mapcase/internal/validation"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// GetTodDow handles GET /api/v1/records/toddow.
// Returns the sparse time-of-day / day-of-week histogram for records
// matching the request predicate.
func (h *Handler) GetTodDow(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, authz.ResourceRecords, authz.ActionRead); !ok {
		return
	}

	pred, ok := h.parsePredicate(w, r)
	if !ok {
		return
	}

	start := time.Now()
	bins, err := h.engine.ComputeTodDow(r.Context(), pred)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "aggregation failed", err)
		return
	}

	respondDataMeta(w, http.StatusOK, bins, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
	})
}

// GetStepwise handles GET /api/v1/records/stepwise.
// Requires both occurred bounds on the predicate; missing bounds are a
// request error, never a full scan.
func (h *Handler) GetStepwise(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requirePermission(w, r, authz.ResourceRecords, authz.ActionRead); !ok {
		return
	}

	pred, ok := h.parsePredicate(w, r)
	if !ok {
		return
	}

	start := time.Now()
	bins, err := h.engine.ComputeStepwise(r.Context(), pred)
	if err != nil {
		if errors.Is(err, aggregation.ErrMissingBounds) {
			respondErrorDetails(w, http.StatusBadRequest, codeValidationError,
				"occurred_min and occurred_max are required", map[string]interface{}{
					"params": []string{"occurred_min", "occurred_max"},
				})
			return
		}
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "aggregation failed", err)
		return
	}

	respondDataMeta(w, http.StatusOK, bins, models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
	})
}

// recordListing is the data body of a listing response. Tilekey is only
// present when the request asked for one and the cache accepted it.
type recordListing struct {
	Records []interface{} `json:"records"`
	Total   int64         `json:"total"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
	Tilekey string        `json:"tilekey,omitempty"`
}

// ListRecords handles GET /api/v1/records.
//
// With tilekey=true the filtered query is serialized and stored under an
// opaque token the tile renderer can replay; without the flag the cache is
// never touched. A cache outage degrades the response (token omitted,
// metadata notes the outage) instead of failing the listing.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePermission(w, r, authz.ResourceRecords, authz.ActionRead)
	if !ok {
		return
	}

	pred, ok := h.parsePredicate(w, r)
	if !ok {
		return
	}

	limit := intParam(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := intParam(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	start := time.Now()
	records, total, err := h.db.ListRecords(r.Context(), pred, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "record listing failed", err)
		return
	}

	view := authz.SelectView(principal)
	listing := recordListing{
		Records: shapeRecords(records, view),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}
	meta := models.Metadata{
		QueryTimeMS: time.Since(start).Milliseconds(),
		View:        view.String(),
	}

	if r.URL.Query().Get("tilekey") == "true" {
		token, err := h.tiles.Store(r.Context(), pred.SelectSQL())
		switch {
		case err == nil:
			listing.Tilekey = token
		case errors.Is(err, tilecache.ErrUnavailable):
			logging.Ctx(r.Context()).Error().Err(err).Msg("Tile cache unavailable, listing served without tilekey")
			meta.TileCache = "unavailable"
		default:
			respondError(w, http.StatusInternalServerError, codeDatabaseError, "tile query store failed", err)
			return
		}
	}

	respondDataMeta(w, http.StatusOK, listing, meta)
}

// GetRecord handles GET /api/v1/records/{id}. Detail and list responses
// select the same view for the same caller.
func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePermission(w, r, authz.ResourceRecords, authz.ActionRead)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, "id must be a valid UUID", nil)
		return
	}

	record, err := h.db.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "record not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "record lookup failed", err)
		return
	}

	view := authz.SelectView(principal)
	respondDataMeta(w, http.StatusOK, shapeRecord(*record, view), models.Metadata{View: view.String()})
}

// createRecordRequest is the body of POST /api/v1/records. Schema
// validation of Data happens at the external interface layer; this core
// checks structure and invariants only.
type createRecordRequest struct {
	SchemaID     string          `json:"schema_id" validate:"required,uuid"`
	RecordTypeID string          `json:"record_type_id" validate:"required,uuid"`
	OccurredFrom time.Time       `json:"occurred_from" validate:"required"`
	OccurredTo   time.Time       `json:"occurred_to" validate:"required,gtefield=OccurredFrom"`
	Geom         string          `json:"geom" validate:"required"`
	LocationText string          `json:"location_text"`
	City         string          `json:"city"`
	Road         string          `json:"road"`
	State        string          `json:"state"`
	Data         json.RawMessage `json:"data"`
}

// CreateRecord handles POST /api/v1/records. A successful create emits
// exactly one audit entry and one mutation event.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePermission(w, r, authz.ResourceRecords, authz.ActionWrite)
	if !ok {
		return
	}

	var req createRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, "invalid JSON body", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondErrorDetails(w, http.StatusBadRequest, codeValidationError, verr.Error(), fieldDetails(verr))
		return
	}

	record := &models.Record{
		SchemaID:     uuid.MustParse(req.SchemaID),
		RecordTypeID: uuid.MustParse(req.RecordTypeID),
		OccurredFrom: req.OccurredFrom,
		OccurredTo:   req.OccurredTo,
		Geom:         req.Geom,
		LocationText: req.LocationText,
		City:         req.City,
		Road:         req.Road,
		State:        req.State,
		Data:         req.Data,
	}

	if err := h.db.InsertRecord(r.Context(), record); err != nil {
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "record create failed", err)
		return
	}

	// Audit failure is logged and counted inside the recorder; the create
	// itself already happened and is reported as success.
	_ = h.recorder.RecordMutation(r.Context(), principal.ID, principal.Username, record.ID.String(), audit.ActionCreate)
	h.publishMutation(r, events.NewRecordEvent(record.ID, string(audit.ActionCreate), principal.Username))

	view := authz.SelectView(principal)
	respondDataMeta(w, http.StatusCreated, shapeRecord(*record, view), models.Metadata{View: view.String()})
}

// updateRecordRequest is the body of PUT /api/v1/records/{id}. The schema
// and record type bindings are fixed at create time.
type updateRecordRequest struct {
	OccurredFrom time.Time       `json:"occurred_from" validate:"required"`
	OccurredTo   time.Time       `json:"occurred_to" validate:"required,gtefield=OccurredFrom"`
	Geom         string          `json:"geom" validate:"required"`
	LocationText string          `json:"location_text"`
	City         string          `json:"city"`
	Road         string          `json:"road"`
	State        string          `json:"state"`
	Data         json.RawMessage `json:"data"`
}

// UpdateRecord handles PUT /api/v1/records/{id}.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePermission(w, r, authz.ResourceRecords, authz.ActionWrite)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, "id must be a valid UUID", nil)
		return
	}

	var req updateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, "invalid JSON body", nil)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondErrorDetails(w, http.StatusBadRequest, codeValidationError, verr.Error(), fieldDetails(verr))
		return
	}

	record, err := h.db.GetRecord(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "record not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "record lookup failed", err)
		return
	}

	record.OccurredFrom = req.OccurredFrom
	record.OccurredTo = req.OccurredTo
	record.Geom = req.Geom
	record.LocationText = req.LocationText
	record.City = req.City
	record.Road = req.Road
	record.State = req.State
	record.Data = req.Data

	if err := h.db.UpdateRecord(r.Context(), record); err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "record not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "record update failed", err)
		return
	}

	_ = h.recorder.RecordMutation(r.Context(), principal.ID, principal.Username, record.ID.String(), audit.ActionUpdate)
	h.publishMutation(r, events.NewRecordEvent(record.ID, string(audit.ActionUpdate), principal.Username))

	view := authz.SelectView(principal)
	respondDataMeta(w, http.StatusOK, shapeRecord(*record, view), models.Metadata{View: view.String()})
}

// DeleteRecord handles DELETE /api/v1/records/{id}.
func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	principal, ok := h.requirePermission(w, r, authz.ResourceRecords, authz.ActionWrite)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidationError, "id must be a valid UUID", nil)
		return
	}

	if err := h.db.DeleteRecord(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrRecordNotFound) {
			respondError(w, http.StatusNotFound, codeNotFound, "record not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, codeDatabaseError, "record delete failed", err)
		return
	}

	_ = h.recorder.RecordMutation(r.Context(), principal.ID, principal.Username, id.String(), audit.ActionDelete)
	h.publishMutation(r, events.NewRecordEvent(id, string(audit.ActionDelete), principal.Username))

	w.WriteHeader(http.StatusNoContent)
}

// parsePredicate builds the record predicate from query parameters,
// writing a 400 naming the offending parameter on failure.
func (h *Handler) parsePredicate(w http.ResponseWriter, r *http.Request) (query.Predicate, bool) {
	pred, err := query.FromParams(r.URL.Query())
	if err != nil {
		var perr *query.ParseError
		if errors.As(err, &perr) {
			respondErrorDetails(w, http.StatusBadRequest, codeValidationError, perr.Error(), map[string]interface{}{
				"param": perr.Param,
			})
		} else {
			respondError(w, http.StatusBadRequest, codeValidationError, "invalid query parameters", nil)
		}
		return query.Predicate{}, false
	}
	return pred, true
}

// shapeRecord renders a record for the caller's view. The full view is
// the model as stored; the read-only view drops schema linkage and audit
// timestamps and filters the payload to its "...Details" sections.
func shapeRecord(record models.Record, view authz.ViewKind) interface{} {
	if view == authz.ViewFull {
		return record
	}
	return readOnlyRecord{
		ID:           record.ID,
		RecordTypeID: record.RecordTypeID,
		OccurredFrom: record.OccurredFrom,
		OccurredTo:   record.OccurredTo,
		Geom:         record.Geom,
		LocationText: record.LocationText,
		City:         record.City,
		Road:         record.Road,
		State:        record.State,
		Data:         filterDetailsSections(record.Data),
	}
}

func shapeRecords(records []models.Record, view authz.ViewKind) []interface{} {
	shaped := make([]interface{}, len(records))
	for i := range records {
		shaped[i] = shapeRecord(records[i], view)
	}
	return shaped
}

// readOnlyRecord is the reduced representation for non-admin callers.
type readOnlyRecord struct {
	ID           uuid.UUID       `json:"id"`
	RecordTypeID uuid.UUID       `json:"record_type_id"`
	OccurredFrom time.Time       `json:"occurred_from"`
	OccurredTo   time.Time       `json:"occurred_to"`
	Geom         string          `json:"geom"`
	LocationText string          `json:"location_text,omitempty"`
	City         string          `json:"city,omitempty"`
	Road         string          `json:"road,omitempty"`
	State        string          `json:"state,omitempty"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// filterDetailsSections keeps only the payload's public "...Details"
// sections. Internal sections (reviewer notes, quality flags) use other
// suffixes and are withheld from non-admin callers.
func filterDetailsSections(data json.RawMessage) json.RawMessage {
	if len(data) == 0 {
		return nil
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(data, &payload); err != nil {
		// Non-object payloads carry no sections to expose.
		return nil
	}

	filtered := make(map[string]json.RawMessage)
	for key, value := range payload {
		if strings.HasSuffix(key, "Details") {
			filtered[key] = value
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	out, err := json.Marshal(filtered)
	if err != nil {
		return nil
	}
	return out
}

// fieldDetails converts a validation error to response details.
func fieldDetails(verr *validation.RequestError) map[string]interface{} {
	fields := verr.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Field
	}
	return map[string]interface{}{"fields": names}
}

// intParam extracts an integer query parameter with a default.
func intParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
