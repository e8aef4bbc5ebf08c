// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package models defines the core data structures shared across Mapcase:
// incident records, their types and schema versions, and the derived
// aggregation bins served to dashboards.
package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Record is a single schema-validated, geolocated incident report.
//
// Records are immutable once created except through the explicit update
// path, which also emits an audit entry. The `data` payload is shaped by
// the RecordSchema version the record was validated against; this core
// treats it as opaque JSON.
type Record struct {
	ID uuid.UUID `json:"id"`

	// SchemaID references the RecordSchema version `data` was validated against.
	SchemaID uuid.UUID `json:"schema_id"`

	// RecordTypeID is the category of this record (crash, hazard, ...).
	RecordTypeID uuid.UUID `json:"record_type_id"`

	// OccurredFrom and OccurredTo bound the incident in time.
	// Invariant: OccurredFrom <= OccurredTo. Both are timezone-aware.
	OccurredFrom time.Time `json:"occurred_from"`
	OccurredTo   time.Time `json:"occurred_to"`

	// Geom is the incident geometry in WKT (POINT or POLYGON).
	Geom string `json:"geom"`

	// Free-text location fields.
	LocationText string `json:"location_text,omitempty"`
	City         string `json:"city,omitempty"`
	Road         string `json:"road,omitempty"`
	State        string `json:"state,omitempty"`

	// Data is the schema-shaped payload, opaque to this core.
	Data json.RawMessage `json:"data,omitempty"`

	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// RecordType categorizes records. Owned by the external CRUD layer;
// referenced, never mutated, here.
type RecordType struct {
	ID          uuid.UUID `json:"id"`
	Label       string    `json:"label"`
	PluralLabel string    `json:"plural_label"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecordSchema is a versioned JSON shape used to validate Record.Data.
// Referenced, never mutated, by this core.
type RecordSchema struct {
	ID           uuid.UUID       `json:"id"`
	RecordTypeID uuid.UUID       `json:"record_type_id"`
	Version      int             `json:"version"`
	Schema       json.RawMessage `json:"schema"`
	CreatedAt    time.Time       `json:"created_at"`
}
