// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package models

// TodDowBin is one cell of the time-of-day / day-of-week histogram.
//
// Dow is the ISO weekday of occurred_from plus one, so the domain is 2
// (Monday) through 8 (Sunday). The +1 is a deliberate compatibility quirk:
// existing map and dashboard consumers index weekdays this way, so the
// engine preserves it rather than emitting 1..7.
type TodDowBin struct {
	Dow   int `json:"dow"`
	Tod   int `json:"tod"`
	Count int `json:"count"`
}

// WeekBin is one bucket of the stepwise (weekly) aggregation, keyed by
// ISO calendar week number of occurred_from.
type WeekBin struct {
	Week  int `json:"week"`
	Count int `json:"count"`
}
