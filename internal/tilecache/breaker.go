// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package tilecache

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/mapcase/mapcase/internal/logging"
	"github.com/mapcase/mapcase/internal/metrics"
	"github.com/mapcase/mapcase/internal/query"
)

// BreakerCache wraps a Cache with a circuit breaker. The cache is a shared,
// independently-failing resource: when it misbehaves, requests should fail
// fast with ErrUnavailable instead of stacking up behind a dead backend.
//
// ErrTokenNotFound is a normal outcome and never counts as a failure.
type BreakerCache struct {
	inner Cache
	cb    *gobreaker.CircuitBreaker[query.SerializedQuery]
	name  string
}

// NewBreakerCache wraps inner with a circuit breaker.
// The breaker opens after a 60% failure rate over at least 10 requests,
// and probes recovery after 30 seconds.
func NewBreakerCache(inner Cache) *BreakerCache {
	const cbName = "tile-cache"

	cb := gobreaker.NewCircuitBreaker[query.SerializedQuery](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("tile cache circuit breaker state change")
			metrics.TileCacheBreakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			// A missing token is a normal result, not backend failure.
			return err == nil || errors.Is(err, ErrTokenNotFound)
		},
	})

	return &BreakerCache{inner: inner, cb: cb, name: cbName}
}

// Store writes through the breaker. Backend failures and an open circuit
// both surface as ErrUnavailable so callers can distinguish "no caching
// happened" from a token miss.
func (b *BreakerCache) Store(ctx context.Context, q query.SerializedQuery) (string, error) {
	var token string
	_, err := b.cb.Execute(func() (query.SerializedQuery, error) {
		var storeErr error
		token, storeErr = b.inner.Store(ctx, q)
		return query.SerializedQuery{}, storeErr
	})
	if err != nil {
		metrics.TileCacheFailures.Inc()
		logging.Ctx(ctx).Error().Err(err).Msg("tile cache store failed")
		return "", errors.Join(ErrUnavailable, err)
	}
	return token, nil
}

// Fetch reads through the breaker. ErrTokenNotFound passes through
// untouched; backend failures surface as ErrUnavailable.
func (b *BreakerCache) Fetch(ctx context.Context, token string) (query.SerializedQuery, error) {
	q, err := b.cb.Execute(func() (query.SerializedQuery, error) {
		return b.inner.Fetch(ctx, token)
	})
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return query.SerializedQuery{}, ErrTokenNotFound
		}
		metrics.TileCacheFailures.Inc()
		return query.SerializedQuery{}, errors.Join(ErrUnavailable, err)
	}
	return q, nil
}
