// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package query

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWhereClause_EmptyPredicate(t *testing.T) {
	t.Parallel()

	where, args := Predicate{}.WhereClause()

	if where != "1=1" {
		t.Errorf("Expected '1=1', got %q", where)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestWhereClause_AllConstraints(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	min := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	max := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	p := Predicate{}.
		WithRecordType(id).
		WithOccurredRange(&min, &max).
		WithField("severity", OpGte, "3")

	where, args := p.WhereClause()

	want := "1=1 AND record_type_id = ? AND occurred_from >= ? AND occurred_from <= ?" +
		" AND json_extract_string(data, '$.severity') >= ?"
	if where != want {
		t.Errorf("Expected %q, got %q", want, where)
	}

	if len(args) != 4 {
		t.Fatalf("Expected 4 args, got %d", len(args))
	}
	if args[0] != id.String() {
		t.Errorf("Expected first arg %q, got %v", id.String(), args[0])
	}
	if args[3] != "3" {
		t.Errorf("Expected last arg '3', got %v", args[3])
	}
}

func TestWhereClause_ContainsUsesLike(t *testing.T) {
	t.Parallel()

	p := Predicate{}.WithField("road", OpContains, "Main")

	where, args := p.WhereClause()

	if !strings.Contains(where, "LIKE ?") {
		t.Errorf("Expected LIKE clause, got %q", where)
	}
	if len(args) != 1 || args[0] != "%Main%" {
		t.Errorf("Expected wildcarded arg '%%Main%%', got %v", args)
	}
}

func TestWhereClause_OperatorRendering(t *testing.T) {
	t.Parallel()

	cases := []struct {
		op   Op
		want string
	}{
		{OpEq, "= ?"},
		{OpLt, "< ?"},
		{OpLte, "<= ?"},
		{OpGt, "> ?"},
		{OpGte, ">= ?"},
	}

	for _, tc := range cases {
		p := Predicate{}.WithField("x", tc.op, "1")
		where, _ := p.WhereClause()
		if !strings.HasSuffix(where, tc.want) {
			t.Errorf("Op %s: expected suffix %q, got %q", tc.op, tc.want, where)
		}
	}
}

func TestSelectSQL_ShapeAndOrdering(t *testing.T) {
	t.Parallel()

	min := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	p := Predicate{}.WithOccurredRange(&min, nil)

	q := p.SelectSQL()

	if !strings.HasPrefix(q.SQL, "SELECT id, schema_id, record_type_id") {
		t.Errorf("Unexpected SELECT prefix: %q", q.SQL)
	}
	if !strings.Contains(q.SQL, "FROM records WHERE 1=1 AND occurred_from >= ?") {
		t.Errorf("Unexpected WHERE rendering: %q", q.SQL)
	}
	if !strings.Contains(q.SQL, "ORDER BY occurred_from DESC, id") {
		t.Errorf("Expected stable ordering clause, got %q", q.SQL)
	}
	if len(q.Args) != 1 {
		t.Errorf("Expected 1 arg, got %d", len(q.Args))
	}
}
