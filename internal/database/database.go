// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package database implements the DuckDB-backed record store: the shared
// resource the aggregation, listing, and tile paths read concurrently and
// the mutation path writes through. Reads run against DuckDB snapshots,
// so a single query never observes a partial write.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/mapcase/mapcase/internal/logging"
)

// DB wraps the DuckDB connection for the record store.
type DB struct {
	conn *sql.DB

	// queryTimeout bounds queries whose context carries no deadline, so a
	// weak predicate cannot become an unbounded full-table scan.
	queryTimeout time.Duration
}

// Open opens (or creates) the DuckDB database at path. ":memory:" gives a
// fully in-memory store, used by tests.
func Open(path string, queryTimeout time.Duration) (*DB, error) {
	conn, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb at %s: %w", path, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to duckdb at %s: %w", path, err)
	}

	if queryTimeout <= 0 {
		queryTimeout = 30 * time.Second
	}

	db := &DB{conn: conn, queryTimeout: queryTimeout}
	logging.Info().Str("path", path).Msg("duckdb opened")
	return db, nil
}

// Conn exposes the underlying handle for stores sharing the database
// (the audit store keeps its table in the same file).
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// ensureContext applies the default query timeout when the caller supplied
// no deadline of its own.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, db.queryTimeout)
}

// CreateTables creates the records table and its indexes if absent.
func (db *DB) CreateTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			schema_id TEXT NOT NULL,
			record_type_id TEXT NOT NULL,
			occurred_from TIMESTAMPTZ NOT NULL,
			occurred_to TIMESTAMPTZ NOT NULL,
			geom TEXT NOT NULL,
			location_text TEXT,
			city TEXT,
			road TEXT,
			state TEXT,
			data JSON,
			created_at TIMESTAMPTZ NOT NULL,
			modified_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_type ON records(record_type_id)`,
		`CREATE INDEX IF NOT EXISTS idx_records_occurred_from ON records(occurred_from)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Info().Msg("records table created/verified")
	return nil
}

// Ping verifies the database connection is alive. The readiness probe
// calls this on every check.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
