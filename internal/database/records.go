// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mapcase/mapcase/internal/metrics"
	"github.com/mapcase/mapcase/internal/models"
	"github.com/mapcase/mapcase/internal/query"
)

// ErrRecordNotFound indicates the record id does not exist.
var ErrRecordNotFound = errors.New("record not found")

const recordColumns = `id, schema_id, record_type_id, occurred_from, occurred_to,
	geom, location_text, city, road, state, data, created_at, modified_at`

// InsertRecord persists a new record. ID, CreatedAt and ModifiedAt are
// assigned here; the caller's schema validation has already run.
func (db *DB) InsertRecord(ctx context.Context, record *models.Record) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.ModifiedAt = now

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(), record.SchemaID.String(), record.RecordTypeID.String(),
		record.OccurredFrom, record.OccurredTo, record.Geom,
		record.LocationText, record.City, record.Road, record.State,
		jsonOrNull(record.Data), record.CreatedAt, record.ModifiedAt,
	)
	metrics.DBQueryDuration.WithLabelValues("insert_record").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// UpdateRecord replaces the mutable fields of an existing record and bumps
// modified_at. Returns ErrRecordNotFound if the id does not exist.
func (db *DB) UpdateRecord(ctx context.Context, record *models.Record) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	record.ModifiedAt = time.Now().UTC()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE records SET occurred_from = ?, occurred_to = ?, geom = ?,
			location_text = ?, city = ?, road = ?, state = ?, data = ?, modified_at = ?
		 WHERE id = ?`,
		record.OccurredFrom, record.OccurredTo, record.Geom,
		record.LocationText, record.City, record.Road, record.State,
		jsonOrNull(record.Data), record.ModifiedAt, record.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return requireOneRow(result)
}

// DeleteRecord removes a record. Returns ErrRecordNotFound if absent.
func (db *DB) DeleteRecord(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	result, err := db.conn.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return requireOneRow(result)
}

// GetRecord fetches one record by id.
func (db *DB) GetRecord(ctx context.Context, id uuid.UUID) (*models.Record, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id.String())
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// QueryRecords returns all records matching the predicate, newest first.
// This is the RecordSource the aggregation engine projects over.
func (db *DB) QueryRecords(ctx context.Context, pred query.Predicate) ([]models.Record, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	serialized := pred.SelectSQL()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, serialized.SQL, serialized.Args...)
	metrics.DBQueryDuration.WithLabelValues("query_records").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}

// ListRecords returns one page of records matching the predicate plus the
// total match count for pagination.
func (db *DB) ListRecords(ctx context.Context, pred query.Predicate, limit, offset int) ([]models.Record, int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := pred.WhereClause()

	var total int64
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM records WHERE %s`, where)
	if err := db.conn.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count records: %w", err)
	}

	listSQL := fmt.Sprintf(
		`SELECT `+recordColumns+` FROM records WHERE %s ORDER BY occurred_from DESC, id LIMIT %d OFFSET %d`,
		where, limit, offset,
	)
	rows, err := db.conn.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating records: %w", err)
	}
	return records, total, nil
}

// scanner abstracts sql.Row and sql.Rows for scanRecord.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (*models.Record, error) {
	var (
		record               models.Record
		id, schemaID, typeID string
		locText, city        sql.NullString
		road, state          sql.NullString
		data                 interface{}
	)
	err := s.Scan(&id, &schemaID, &typeID, &record.OccurredFrom, &record.OccurredTo,
		&record.Geom, &locText, &city, &road, &state, &data,
		&record.CreatedAt, &record.ModifiedAt)
	if err != nil {
		return nil, err
	}

	for _, pair := range []struct {
		dst *uuid.UUID
		src string
	}{{&record.ID, id}, {&record.SchemaID, schemaID}, {&record.RecordTypeID, typeID}} {
		parsed, err := uuid.Parse(pair.src)
		if err != nil {
			return nil, fmt.Errorf("malformed uuid %q: %w", pair.src, err)
		}
		*pair.dst = parsed
	}

	record.LocationText = locText.String
	record.City = city.String
	record.Road = road.String
	record.State = state.String
	payload, err := decodePayload(data)
	if err != nil {
		return nil, err
	}
	record.Data = payload
	return &record, nil
}

// decodePayload normalizes the JSON column value. The driver materializes
// JSON columns as Go maps rather than text, so structured values are
// re-encoded before being handed out as a raw message.
func decodePayload(data interface{}) (json.RawMessage, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return json.RawMessage(v), nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return json.RawMessage(v), nil
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		return json.RawMessage(encoded), nil
	}
}

// jsonOrNull stores empty payloads as NULL rather than empty strings.
func jsonOrNull(data json.RawMessage) interface{} {
	if len(data) == 0 {
		return nil
	}
	return string(data)
}

func requireOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
