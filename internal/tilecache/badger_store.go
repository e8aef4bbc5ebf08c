// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package tilecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/mapcase/mapcase/internal/metrics"
	"github.com/mapcase/mapcase/internal/query"
)

// tileKeyPrefix namespaces tile query tokens in the shared Badger keyspace.
const tileKeyPrefix = "tilequery:"

// BadgerStore implements Cache on BadgerDB using native TTL entries.
// Expired tokens vanish without a sweeper; value log GC runs separately
// (see RunGC).
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerStore creates a Badger-backed tile query cache. Entries live
// for ttl; the tile renderer must replay a token within that window.
func NewBadgerStore(db *badger.DB, ttl time.Duration) *BadgerStore {
	return &BadgerStore{db: db, ttl: ttl}
}

// Store serializes the query and writes it under a fresh UUID token.
func (s *BadgerStore) Store(_ context.Context, q query.SerializedQuery) (string, error) {
	data, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("marshal tile query: %w", err)
	}

	token := uuid.New().String()
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(tileKeyPrefix+token), data).WithTTL(s.ttl)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return "", fmt.Errorf("store tile query: %w", err)
	}

	metrics.TileQueriesCached.Inc()
	return token, nil
}

// Fetch retrieves the serialized query for a token. Unknown and expired
// tokens both return ErrTokenNotFound.
func (s *BadgerStore) Fetch(_ context.Context, token string) (query.SerializedQuery, error) {
	var q query.SerializedQuery

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(tileKeyPrefix + token))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrTokenNotFound
		}
		if err != nil {
			return fmt.Errorf("get tile query: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &q)
		})
	})
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			metrics.TileTokenMisses.Inc()
			return query.SerializedQuery{}, ErrTokenNotFound
		}
		return query.SerializedQuery{}, err
	}

	metrics.TileTokenHits.Inc()
	return q, nil
}

// RunGC triggers one round of Badger value log garbage collection.
// badger.ErrNoRewrite (nothing to collect) is reported as done=false, nil.
func (s *BadgerStore) RunGC() (bool, error) {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("badger value log gc: %w", err)
	}
	return true, nil
}
