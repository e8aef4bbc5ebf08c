// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package tilecache snapshots an expensive filtered record query behind a
// short-lived opaque token so the downstream tile renderer can replay it
// without re-parsing request parameters.
//
// The cache is modeled as a capability interface so the engine is testable
// without a live backend; the production implementation is Badger with
// native TTL entries, wrapped in a circuit breaker so an unavailable cache
// degrades loudly rather than silently.
package tilecache

import (
	"context"
	"errors"

	"github.com/mapcase/mapcase/internal/query"
)

// ErrTokenNotFound is the normal outcome for an unknown or expired token.
// The caller decides how to react; the cache layer does not treat this as
// a failure.
var ErrTokenNotFound = errors.New("tile query token not found")

// ErrUnavailable indicates the cache backend could not be reached or the
// circuit breaker is open. Distinct from ErrTokenNotFound: callers may
// proceed without a token, but the failure must not be mistaken for a miss.
var ErrUnavailable = errors.New("tile query cache unavailable")

// Cache stores serialized record queries under generated opaque tokens.
//
// Store is invoked only when a request explicitly asks for a tile key;
// absent that flag no cache interaction happens at all.
type Cache interface {
	// Store writes the serialized query under a fresh globally-unique token
	// with the configured TTL and returns the token.
	Store(ctx context.Context, q query.SerializedQuery) (string, error)

	// Fetch returns the serialized query for a token, or ErrTokenNotFound
	// for unknown and expired tokens alike.
	Fetch(ctx context.Context, token string) (query.SerializedQuery, error)
}
