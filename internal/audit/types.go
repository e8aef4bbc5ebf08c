// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package audit provides the append-only record mutation log kept for
// compliance review. Every successful record create, update, and delete
// produces exactly one entry; entries are never updated or deleted by
// this core, and the read path enforces a bounded query span.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is the mutation kind an entry records.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// IsValid reports whether the action is one of the known mutation kinds.
func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// Entry is one immutable audit log row.
//
// Username is a snapshot taken at write time, not a live reference:
// renaming or deleting the account later must not retroactively alter
// historical log lines.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	ActorID   string    `json:"actor_id"`
	Username  string    `json:"username"`
	RecordID  string    `json:"record_id"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the persistence interface for audit entries. The mutation path
// is the sole writer; everything else reads.
type Store interface {
	// Append persists one entry. Called synchronously after a successful
	// mutation, never for a failed one.
	Append(ctx context.Context, entry *Entry) error

	// Query returns entries matching the filter, ordered by timestamp.
	// The filter must have passed Validate; Query does not re-validate.
	Query(ctx context.Context, filter QueryFilter) ([]Entry, error)
}

// QueryFilter selects audit entries for the read path.
type QueryFilter struct {
	// MinDate and MaxDate bound entry timestamps, inclusive on both ends.
	// Both are required.
	MinDate *time.Time
	MaxDate *time.Time

	// Action, when non-empty, must match exactly.
	Action Action

	// Username, when non-empty, must match the snapshot exactly.
	Username string
}

// ValidationError reports a rejected audit query parameter.
type ValidationError struct {
	Param string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Msg)
}

// Validate enforces the read-path constraints before any store access:
// both date bounds present, span no longer than maxSpan, and a known
// action value when one is supplied.
func (f QueryFilter) Validate(maxSpan time.Duration) error {
	if f.MinDate == nil {
		return &ValidationError{Param: "min_date", Msg: "required"}
	}
	if f.MaxDate == nil {
		return &ValidationError{Param: "max_date", Msg: "required"}
	}
	if f.MaxDate.Before(*f.MinDate) {
		return &ValidationError{Param: "max_date", Msg: "must not precede min_date"}
	}
	if f.MaxDate.Sub(*f.MinDate) > maxSpan {
		return &ValidationError{
			Param: "max_date",
			Msg:   fmt.Sprintf("span must not exceed %s", maxSpan),
		}
	}
	if f.Action != "" && !f.Action.IsValid() {
		return &ValidationError{Param: "action", Msg: "must be create, update, or delete"}
	}
	return nil
}

// NewEntry builds an entry for a mutation, snapshotting the username and
// stamping the current time.
func NewEntry(actorID, username, recordID string, action Action) *Entry {
	return &Entry{
		ID:        uuid.New(),
		ActorID:   actorID,
		Username:  username,
		RecordID:  recordID,
		Action:    action,
		Timestamp: time.Now().UTC(),
	}
}
