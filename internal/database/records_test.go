// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mapcase/mapcase/internal/models"
	"github.com/mapcase/mapcase/internal/query"
)

// setupTestDB opens an isolated in-memory DuckDB with the schema applied.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(":memory:", 30*time.Second)
	if err != nil {
		t.Fatalf("Failed to open in-memory duckdb: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	if err := db.CreateTables(context.Background()); err != nil {
		t.Fatalf("Failed to create tables: %v", err)
	}
	return db
}

func newTestRecord(occurredFrom time.Time) *models.Record {
	return &models.Record{
		SchemaID:     uuid.New(),
		RecordTypeID: uuid.New(),
		OccurredFrom: occurredFrom,
		OccurredTo:   occurredFrom.Add(time.Hour),
		Geom:         "POINT (121.0 14.6)",
		LocationText: "EDSA corner Ortigas",
		City:         "Manila",
		Road:         "EDSA",
		State:        "NCR",
		Data:         json.RawMessage(`{"crashDetails":{"severity":3}}`),
	}
}

func mustInsert(t *testing.T, db *DB, record *models.Record) *models.Record {
	t.Helper()

	if err := db.InsertRecord(context.Background(), record); err != nil {
		t.Fatalf("Failed to insert record: %v", err)
	}
	return record
}

func TestInsertRecord_AssignsIdentityAndTimestamps(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	record := newTestRecord(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))

	mustInsert(t, db, record)

	if record.ID == uuid.Nil {
		t.Error("Expected ID to be assigned")
	}
	if record.CreatedAt.IsZero() || record.ModifiedAt.IsZero() {
		t.Error("Expected timestamps to be assigned")
	}
	if !record.CreatedAt.Equal(record.ModifiedAt) {
		t.Error("Expected created_at == modified_at on insert")
	}
}

func TestGetRecord_Roundtrip(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	want := mustInsert(t, db, newTestRecord(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))

	got, err := db.GetRecord(context.Background(), want.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}

	if got.ID != want.ID || got.SchemaID != want.SchemaID || got.RecordTypeID != want.RecordTypeID {
		t.Errorf("Identity mismatch: got %+v", got)
	}
	if !got.OccurredFrom.Equal(want.OccurredFrom) || !got.OccurredTo.Equal(want.OccurredTo) {
		t.Errorf("Time bounds mismatch: got %v..%v", got.OccurredFrom, got.OccurredTo)
	}
	if got.Geom != want.Geom || got.City != want.City || got.Road != want.Road {
		t.Errorf("Location fields mismatch: got %+v", got)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(got.Data, &payload); err != nil {
		t.Fatalf("Payload did not survive roundtrip: %v", err)
	}
	if _, ok := payload["crashDetails"]; !ok {
		t.Errorf("Expected crashDetails in payload, got %s", got.Data)
	}
}

func TestGetRecord_NotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	_, err := db.GetRecord(context.Background(), uuid.New())
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestUpdateRecord(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	record := mustInsert(t, db, newTestRecord(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))
	created := record.CreatedAt

	record.Road = "C5"
	record.Data = json.RawMessage(`{"crashDetails":{"severity":5}}`)
	if err := db.UpdateRecord(context.Background(), record); err != nil {
		t.Fatalf("UpdateRecord failed: %v", err)
	}

	got, err := db.GetRecord(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.Road != "C5" {
		t.Errorf("Expected updated road, got %q", got.Road)
	}
	if !got.CreatedAt.Equal(created) {
		t.Error("Expected created_at to be immutable")
	}
	if got.ModifiedAt.Before(created) {
		t.Error("Expected modified_at to advance")
	}
}

func TestUpdateRecord_NotFound(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	record := newTestRecord(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	record.ID = uuid.New()

	err := db.UpdateRecord(context.Background(), record)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}

func TestDeleteRecord(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	record := mustInsert(t, db, newTestRecord(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)))

	if err := db.DeleteRecord(context.Background(), record.ID); err != nil {
		t.Fatalf("DeleteRecord failed: %v", err)
	}

	if _, err := db.GetRecord(context.Background(), record.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected record to be gone, got %v", err)
	}

	if err := db.DeleteRecord(context.Background(), record.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound on second delete, got %v", err)
	}
}

func TestQueryRecords_PredicateFilters(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	typeA := uuid.New()
	typeB := uuid.New()

	first := newTestRecord(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	first.RecordTypeID = typeA
	mustInsert(t, db, first)

	second := newTestRecord(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	second.RecordTypeID = typeB
	mustInsert(t, db, second)

	records, err := db.QueryRecords(context.Background(), query.Predicate{}.WithRecordType(typeA))
	if err != nil {
		t.Fatalf("QueryRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != first.ID {
		t.Errorf("Expected only the typeA record, got %d records", len(records))
	}
}

func TestQueryRecords_OccurredBoundsInclusive(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	min := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	mustInsert(t, db, newTestRecord(min.Add(-time.Second)))
	onMin := mustInsert(t, db, newTestRecord(min))
	onMax := mustInsert(t, db, newTestRecord(max))
	mustInsert(t, db, newTestRecord(max.Add(time.Second)))

	records, err := db.QueryRecords(context.Background(), query.Predicate{}.WithOccurredRange(&min, &max))
	if err != nil {
		t.Fatalf("QueryRecords failed: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records inside inclusive bounds, got %d", len(records))
	}
	// Newest first.
	if records[0].ID != onMax.ID || records[1].ID != onMin.ID {
		t.Errorf("Unexpected ordering: %v, %v", records[0].ID, records[1].ID)
	}
}

func TestQueryRecords_PayloadFilter(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	severe := newTestRecord(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	severe.Data = json.RawMessage(`{"severity":"5"}`)
	mustInsert(t, db, severe)

	minor := newTestRecord(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	minor.Data = json.RawMessage(`{"severity":"1"}`)
	mustInsert(t, db, minor)

	records, err := db.QueryRecords(context.Background(),
		query.Predicate{}.WithField("severity", query.OpGte, "3"))
	if err != nil {
		t.Fatalf("QueryRecords failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != severe.ID {
		t.Errorf("Expected only the severe record, got %d records", len(records))
	}
}

func TestListRecords_Pagination(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		mustInsert(t, db, newTestRecord(base.Add(time.Duration(i)*time.Hour)))
	}

	records, total, err := db.ListRecords(context.Background(), query.Predicate{}, 2, 0)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if total != 5 {
		t.Errorf("Expected total 5, got %d", total)
	}
	if len(records) != 2 {
		t.Errorf("Expected page of 2, got %d", len(records))
	}

	// Second page continues the newest-first order without overlap.
	nextPage, _, err := db.ListRecords(context.Background(), query.Predicate{}, 2, 2)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(nextPage) != 2 {
		t.Fatalf("Expected second page of 2, got %d", len(nextPage))
	}
	if nextPage[0].ID == records[0].ID || nextPage[0].ID == records[1].ID {
		t.Error("Expected pages not to overlap")
	}
	if records[0].OccurredFrom.Before(nextPage[0].OccurredFrom) {
		t.Error("Expected newest-first ordering across pages")
	}
}

func TestListRecords_EmptyTable(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)

	records, total, err := db.ListRecords(context.Background(), query.Predicate{}, 10, 0)
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if total != 0 || len(records) != 0 {
		t.Errorf("Expected empty result, got total=%d len=%d", total, len(records))
	}
}

func TestInsertRecord_NullableFields(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	record := &models.Record{
		SchemaID:     uuid.New(),
		RecordTypeID: uuid.New(),
		OccurredFrom: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		OccurredTo:   time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
		Geom:         "POINT (121.0 14.6)",
	}
	mustInsert(t, db, record)

	got, err := db.GetRecord(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if got.LocationText != "" || got.City != "" {
		t.Errorf("Expected empty optional fields, got %+v", got)
	}
	if got.Data != nil {
		t.Errorf("Expected nil payload, got %s", got.Data)
	}
}
