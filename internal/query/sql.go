// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package query

import (
	"fmt"
	"strings"
)

// SerializedQuery is the backend-executable form of a predicate: a SQL
// statement with bound parameters. This is exactly what the tile query
// cache stores under a token so the tile renderer can replay the query.
type SerializedQuery struct {
	SQL  string        `json:"sql"`
	Args []interface{} `json:"args"`
}

// WhereClause renders the predicate as a parameterized WHERE clause over the
// records table, starting from "1=1" for safe AND concatenation. Payload
// filters compare against json_extract_string over the data column.
func (p Predicate) WhereClause() (string, []interface{}) {
	clauses := []string{}
	args := []interface{}{}

	if p.recordType != nil {
		clauses = append(clauses, "record_type_id = ?")
		args = append(args, p.recordType.String())
	}
	if p.occurredMin != nil {
		clauses = append(clauses, "occurred_from >= ?")
		args = append(args, *p.occurredMin)
	}
	if p.occurredMax != nil {
		clauses = append(clauses, "occurred_from <= ?")
		args = append(args, *p.occurredMax)
	}

	for _, f := range p.fields {
		clause, arg := f.sqlCondition()
		clauses = append(clauses, clause)
		args = append(args, arg)
	}

	if len(clauses) == 0 {
		return "1=1", args
	}
	return "1=1 AND " + strings.Join(clauses, " AND "), args
}

// sqlCondition renders one payload filter. The path was validated against
// fieldPathPattern at parse time, so interpolating it into the JSON path
// literal is safe.
func (f FieldFilter) sqlCondition() (string, interface{}) {
	expr := fmt.Sprintf("json_extract_string(data, '$.%s')", f.Path)
	switch f.Op {
	case OpLt:
		return expr + " < ?", f.Value
	case OpLte:
		return expr + " <= ?", f.Value
	case OpGt:
		return expr + " > ?", f.Value
	case OpGte:
		return expr + " >= ?", f.Value
	case OpContains:
		return expr + " LIKE ?", "%" + f.Value + "%"
	default:
		return expr + " = ?", f.Value
	}
}

// SelectSQL renders the full listing query for the predicate, the form the
// tile cache serializes. Results are ordered newest first for stable replay.
func (p Predicate) SelectSQL() SerializedQuery {
	where, args := p.WhereClause()
	sql := fmt.Sprintf(`SELECT id, schema_id, record_type_id, occurred_from, occurred_to,
		geom, location_text, city, road, state, data, created_at, modified_at
	FROM records WHERE %s ORDER BY occurred_from DESC, id`, where)
	return SerializedQuery{SQL: sql, Args: args}
}
