// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package query builds immutable record-selection predicates from request
// parameters and renders them as parameterized SQL for the record store.
//
// A Predicate is the one description of "which records" shared by the
// aggregation engine, the listing path, and the tile query cache: the cache
// stores exactly the SQL a predicate renders to, so the downstream tile
// renderer replays the same filtered set without re-parsing parameters.
package query

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Op is a field-filter comparison operator.
type Op string

const (
	OpEq       Op = "eq"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpContains Op = "contains"
)

// validOps maps operator names accepted in request parameters.
var validOps = map[Op]bool{
	OpEq: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true, OpContains: true,
}

// FieldFilter is a generic predicate node over the schema-shaped payload:
// a dotted field path, an operator, and a comparison value. Representing
// payload filters this way keeps them extensible without dynamic typing.
type FieldFilter struct {
	Path  string
	Op    Op
	Value string
}

// fieldParamPrefix introduces payload filters: data__severity__gte=3,
// data__vehicle.kind=truck (operator defaults to eq).
const fieldParamPrefix = "data__"

// Reserved parameter names understood by the builder. Everything else that
// does not carry the data__ prefix is ignored, never an error.
const (
	ParamRecordType  = "record_type"
	ParamOccurredMin = "occurred_min"
	ParamOccurredMax = "occurred_max"
)

// fieldPathPattern restricts payload paths to identifier-ish segments so a
// request parameter can never smuggle SQL through the JSON path argument.
var fieldPathPattern = regexp.MustCompile(`^[A-Za-z0-9_ ]+(\.[A-Za-z0-9_ ]+)*$`)

// ParseError reports a recognized parameter whose value could not be parsed.
type ParseError struct {
	Param string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid value for parameter %q: %v", e.Param, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Predicate is an immutable, composable description of record-selection
// criteria. The zero value matches every record. Predicates are safe to
// share across goroutines and reuse across calls.
type Predicate struct {
	recordType  *uuid.UUID
	occurredMin *time.Time
	occurredMax *time.Time
	fields      []FieldFilter
}

// FromParams builds a predicate from request query parameters.
//
// Recognized: record_type (UUID), occurred_min / occurred_max (RFC3339,
// inclusive), and data__<path>[__<op>] payload filters. Unrecognized
// parameters are ignored. min <= max is deliberately NOT enforced here;
// range validation is the calling endpoint's concern.
func FromParams(params url.Values) (Predicate, error) {
	var p Predicate

	if v := params.Get(ParamRecordType); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return Predicate{}, &ParseError{Param: ParamRecordType, Err: err}
		}
		p.recordType = &id
	}

	var err error
	if p.occurredMin, err = parseTimeParam(params, ParamOccurredMin); err != nil {
		return Predicate{}, err
	}
	if p.occurredMax, err = parseTimeParam(params, ParamOccurredMax); err != nil {
		return Predicate{}, err
	}

	// Sort keys so field-filter order, and therefore the rendered SQL,
	// is deterministic for identical input.
	keys := make([]string, 0, len(params))
	for key := range params {
		if strings.HasPrefix(key, fieldParamPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		filter, ok, err := parseFieldParam(key, params.Get(key))
		if err != nil {
			return Predicate{}, err
		}
		if ok {
			p.fields = append(p.fields, filter)
		}
	}

	return p, nil
}

func parseTimeParam(params url.Values, name string) (*time.Time, error) {
	v := params.Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, &ParseError{Param: name, Err: err}
	}
	return &t, nil
}

// parseFieldParam decodes data__<path>[__<op>]=<value>. A malformed path or
// an unrecognized trailing operator is a parse error.
func parseFieldParam(key, value string) (FieldFilter, bool, error) {
	rest := strings.TrimPrefix(key, fieldParamPrefix)
	if rest == "" {
		return FieldFilter{}, false, nil
	}

	op := OpEq
	if idx := strings.LastIndex(rest, "__"); idx >= 0 {
		if candidate := Op(rest[idx+2:]); validOps[candidate] {
			op = candidate
			rest = rest[:idx]
		}
	}

	// A double underscore left after operator extraction means an
	// unrecognized operator suffix, never a legitimate path segment.
	if strings.Contains(rest, "__") {
		return FieldFilter{}, false, &ParseError{Param: key, Err: fmt.Errorf("unknown operator in %q", rest)}
	}
	if !fieldPathPattern.MatchString(rest) {
		return FieldFilter{}, false, &ParseError{Param: key, Err: fmt.Errorf("malformed field path %q", rest)}
	}

	return FieldFilter{Path: rest, Op: op, Value: value}, true, nil
}

// WithRecordType returns a copy of the predicate constrained to a record type.
func (p Predicate) WithRecordType(id uuid.UUID) Predicate {
	q := p.clone()
	q.recordType = &id
	return q
}

// WithOccurredRange returns a copy with occurred_from bounds (inclusive).
// Nil leaves the corresponding bound open.
func (p Predicate) WithOccurredRange(min, max *time.Time) Predicate {
	q := p.clone()
	if min != nil {
		t := *min
		q.occurredMin = &t
	}
	if max != nil {
		t := *max
		q.occurredMax = &t
	}
	return q
}

// WithField returns a copy with an additional payload filter.
func (p Predicate) WithField(path string, op Op, value string) Predicate {
	q := p.clone()
	q.fields = append(q.fields, FieldFilter{Path: path, Op: op, Value: value})
	return q
}

func (p Predicate) clone() Predicate {
	q := p
	q.fields = append([]FieldFilter(nil), p.fields...)
	return q
}

// RecordType returns the record type constraint, or uuid.Nil, false.
func (p Predicate) RecordType() (uuid.UUID, bool) {
	if p.recordType == nil {
		return uuid.Nil, false
	}
	return *p.recordType, true
}

// OccurredMin returns the inclusive lower occurred_from bound, if set.
func (p Predicate) OccurredMin() (time.Time, bool) {
	if p.occurredMin == nil {
		return time.Time{}, false
	}
	return *p.occurredMin, true
}

// OccurredMax returns the inclusive upper occurred_from bound, if set.
func (p Predicate) OccurredMax() (time.Time, bool) {
	if p.occurredMax == nil {
		return time.Time{}, false
	}
	return *p.occurredMax, true
}

// HasOccurredBounds reports whether both time bounds are present.
func (p Predicate) HasOccurredBounds() bool {
	return p.occurredMin != nil && p.occurredMax != nil
}

// Fields returns a copy of the payload filters.
func (p Predicate) Fields() []FieldFilter {
	return append([]FieldFilter(nil), p.fields...)
}
