// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mapcase/mapcase/internal/logging"
)

// DuckDBStore implements Store on DuckDB, sharing the server's database
// handle with the record store.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a DuckDB-backed audit store. Call CreateTable
// during database initialization before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the audit_log table and its indexes if absent.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	stmts := `
		CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			actor_id TEXT NOT NULL,
			username TEXT NOT NULL,
			record_id TEXT NOT NULL,
			action TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);
		CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
		CREATE INDEX IF NOT EXISTS idx_audit_log_username ON audit_log(username);
	`
	for _, stmt := range strings.Split(stmts, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}

	logging.Info().Msg("audit log table created/verified")
	return nil
}

// Append persists one entry.
func (s *DuckDBStore) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry cannot be nil")
	}
	if !entry.Action.IsValid() {
		return fmt.Errorf("invalid audit action %q", entry.Action)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, actor_id, username, record_id, action, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.ActorID, entry.Username, entry.RecordID,
		string(entry.Action), entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Query returns entries matching the filter, ordered by timestamp ascending.
func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Entry, error) {
	conditions := []string{"timestamp >= ?", "timestamp <= ?"}
	args := []interface{}{*filter.MinDate, *filter.MaxDate}

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, string(filter.Action))
	}
	if filter.Username != "" {
		conditions = append(conditions, "username = ?")
		args = append(args, filter.Username)
	}

	query := fmt.Sprintf(
		`SELECT id, actor_id, username, record_id, action, timestamp
		 FROM audit_log WHERE %s ORDER BY timestamp, id`,
		strings.Join(conditions, " AND "),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry  Entry
			id     string
			action string
			ts     time.Time
		)
		if err := rows.Scan(&id, &entry.ActorID, &entry.Username, &entry.RecordID, &action, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("malformed audit entry id %q: %w", id, err)
		}
		entry.ID = parsed
		entry.Action = Action(action)
		entry.Timestamp = ts
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}
	return entries, nil
}
