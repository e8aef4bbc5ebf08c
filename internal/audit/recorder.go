// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package audit

import (
	"context"
	"fmt"

	"github.com/mapcase/mapcase/internal/logging"
	"github.com/mapcase/mapcase/internal/metrics"
)

// Recorder is the write-side facade the mutation path calls after a record
// mutation succeeds. It must never be called for a failed mutation.
//
// An append failure after a successful mutation is a correctness gap: the
// mutation stands, but its audit trail is missing. Recorder makes that
// visible (error log + failure counter) and returns the error so the
// handler can decide how loudly to report it. Best-effort, never silent.
type Recorder struct {
	store Store
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store}
}

// RecordMutation appends one entry for a successful mutation, snapshotting
// the actor's username at write time.
func (r *Recorder) RecordMutation(ctx context.Context, actorID, username, recordID string, action Action) error {
	entry := NewEntry(actorID, username, recordID, action)

	if err := r.store.Append(ctx, entry); err != nil {
		metrics.AuditAppendFailures.Inc()
		logging.Ctx(ctx).Error().
			Err(err).
			Str("record_id", recordID).
			Str("action", string(action)).
			Msg("audit append failed after successful mutation")
		return fmt.Errorf("audit append for %s of record %s: %w", action, recordID, err)
	}

	metrics.AuditEntriesWritten.WithLabelValues(string(action)).Inc()
	return nil
}
