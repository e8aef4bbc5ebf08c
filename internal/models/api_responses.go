// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package models

import "time"

// APIResponse is the standard envelope for every API response.
//
// Success:
//
//	{"status": "success", "data": {...}, "metadata": {"timestamp": "..."}}
//
// Error:
//
//	{"status": "error", "error": {"code": "VALIDATION_ERROR", "message": "..."},
//	 "metadata": {"timestamp": "..."}}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries per-response observability fields. TileCache is set to
// "unavailable" on listings where a requested tile token could not be
// stored; the listing itself still succeeds.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	TileCache   string    `json:"tile_cache,omitempty"`
	View        string    `json:"view,omitempty"`
}

// APIError is a machine-readable error body.
//
// Codes in use: VALIDATION_ERROR (400), AUTHENTICATION_ERROR (401),
// AUTHORIZATION_ERROR (403), NOT_FOUND (404), DATABASE_ERROR (500),
// EXTERNAL_SERVICE_ERROR (502).
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
