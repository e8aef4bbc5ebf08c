// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package aggregation computes time-bucketed histograms over filtered
// record sets: the TODDOW (time-of-day/day-of-week) histogram behind the
// dashboard heatmap, and the stepwise weekly series behind trend charts.
//
// Both computations are pure projections over a RecordSource: no mutation,
// safe to run repeatedly and concurrently with other reads. All date-part
// extraction happens in the tenant's configured reference timezone.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mapcase/mapcase/internal/models"
	"github.com/mapcase/mapcase/internal/query"
)

// ErrMissingBounds is returned by ComputeStepwise when the predicate lacks
// an occurred_min or occurred_max bound. Requiring bounds up front keeps a
// weak predicate from turning into a silent full-table scan.
var ErrMissingBounds = errors.New("stepwise aggregation requires occurred_min and occurred_max bounds")

// RecordSource supplies the records matching a predicate. The production
// implementation is the DuckDB record store; tests use in-memory sources.
type RecordSource interface {
	QueryRecords(ctx context.Context, pred query.Predicate) ([]models.Record, error)
}

// Engine derives aggregation bins from a record source.
//
// The zero Engine is not usable; construct with NewEngine so the reference
// timezone is always set.
type Engine struct {
	source RecordSource
	tz     *time.Location
}

// NewEngine creates an aggregation engine using tz for all date-part
// extraction. tz is the tenant's configured reference zone, not the
// server's local zone.
func NewEngine(source RecordSource, tz *time.Location) *Engine {
	if tz == nil {
		tz = time.UTC
	}
	return &Engine{source: source, tz: tz}
}

// todDowKey identifies one histogram cell.
type todDowKey struct {
	dow int
	tod int
}

// ComputeTodDow builds the time-of-day / day-of-week histogram for records
// matching the predicate.
//
// For each record: tod is the hour (0-23) of occurred_from in the reference
// zone; dow is the ISO weekday plus one, giving the 2 (Monday) .. 8 (Sunday)
// domain existing consumers index by. Only non-empty cells are emitted,
// sorted by (dow, tod) so identical input yields identical output.
func (e *Engine) ComputeTodDow(ctx context.Context, pred query.Predicate) ([]models.TodDowBin, error) {
	records, err := e.source.QueryRecords(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("toddow aggregation: %w", err)
	}

	counts := make(map[todDowKey]int)
	for i := range records {
		occurred := records[i].OccurredFrom.In(e.tz)
		key := todDowKey{
			dow: isoWeekday(occurred) + 1,
			tod: occurred.Hour(),
		}
		counts[key]++
	}

	bins := make([]models.TodDowBin, 0, len(counts))
	for key, count := range counts {
		bins = append(bins, models.TodDowBin{Dow: key.dow, Tod: key.tod, Count: count})
	}
	sort.Slice(bins, func(i, j int) bool {
		if bins[i].Dow != bins[j].Dow {
			return bins[i].Dow < bins[j].Dow
		}
		return bins[i].Tod < bins[j].Tod
	})
	return bins, nil
}

// ComputeStepwise buckets records matching the predicate by ISO calendar
// week of occurred_from in the reference zone. The predicate must carry
// both occurred bounds; ErrMissingBounds is returned otherwise. Only
// non-empty buckets are emitted, sorted by week number.
func (e *Engine) ComputeStepwise(ctx context.Context, pred query.Predicate) ([]models.WeekBin, error) {
	if !pred.HasOccurredBounds() {
		return nil, ErrMissingBounds
	}

	records, err := e.source.QueryRecords(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("stepwise aggregation: %w", err)
	}

	counts := make(map[int]int)
	for i := range records {
		_, week := records[i].OccurredFrom.In(e.tz).ISOWeek()
		counts[week]++
	}

	bins := make([]models.WeekBin, 0, len(counts))
	for week, count := range counts {
		bins = append(bins, models.WeekBin{Week: week, Count: count})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Week < bins[j].Week })
	return bins, nil
}

// isoWeekday returns the ISO weekday, Monday=1 .. Sunday=7.
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
