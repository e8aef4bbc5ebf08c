// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package services

import (
	"context"
	"time"

	"github.com/mapcase/mapcase/internal/logging"
)

// ValueLogGC matches the tile cache store's GC trigger.
type ValueLogGC interface {
	RunGC() (bool, error)
}

// CacheGCService periodically runs Badger value log garbage collection
// for the tile query cache. Expired tokens disappear via TTL on their
// own; this loop only reclaims value log space.
type CacheGCService struct {
	store    ValueLogGC
	interval time.Duration
}

// NewCacheGCService creates the GC loop. interval <= 0 defaults to 5m.
func NewCacheGCService(store ValueLogGC, interval time.Duration) *CacheGCService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &CacheGCService{store: store, interval: interval}
}

// Serve implements suture.Service. GC errors are logged, not fatal: the
// next tick retries, and the cache remains usable throughout.
func (s *CacheGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			reclaimed, err := s.store.RunGC()
			if err != nil {
				logging.Warn().Err(err).Msg("Tile cache value log GC failed")
				continue
			}
			if reclaimed {
				logging.Debug().Msg("Tile cache value log GC reclaimed space")
			}
		}
	}
}

func (s *CacheGCService) String() string {
	return "tilecache-gc"
}
