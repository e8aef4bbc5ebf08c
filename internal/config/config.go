// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Package config defines the Mapcase server configuration and its loader.
//
// Configuration is layered via Koanf: built-in defaults, then an optional
// YAML file, then environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Mapcase server.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Cache       CacheConfig       `koanf:"cache"`
	Aggregation AggregationConfig `koanf:"aggregation"`
	Audit       AuditConfig       `koanf:"audit"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds DuckDB settings for the record and audit stores.
type DatabaseConfig struct {
	// Path is the DuckDB database file. ":memory:" runs fully in memory.
	Path string `koanf:"path"`

	// QueryTimeout is the default deadline applied to store queries when the
	// caller supplies none; weak predicates must not turn into unbounded scans.
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// CacheConfig holds the tile query cache settings.
type CacheConfig struct {
	// Path is the Badger directory. Empty selects in-memory mode.
	Path string `koanf:"path"`

	// TileTTL is the lifetime of a cached tile query token.
	TileTTL time.Duration `koanf:"tile_ttl"`

	// GCInterval is how often the Badger value log is garbage collected.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// AggregationConfig holds aggregation engine settings.
type AggregationConfig struct {
	// Timezone is the tenant reference zone for all date-part extraction,
	// e.g. "Asia/Manila". Histogram bins shift with this zone.
	Timezone string `koanf:"timezone"`
}

// AuditConfig holds audit log settings.
type AuditConfig struct {
	// MaxQuerySpanDays caps the min_date..max_date range of audit queries.
	MaxQuerySpanDays int `koanf:"max_query_span_days"`
}

// SecurityConfig holds request authentication and rate limiting settings.
//
// Authentication itself (issuing tokens, sessions, the admin bootstrap) is
// external to this service; operators seed an admin principal in their
// identity provider and point it here. Only token verification and
// role-to-capability mapping happen in process.
type SecurityConfig struct {
	// JWTSecret verifies bearer tokens minted by the external auth service.
	JWTSecret string `koanf:"jwt_secret"`

	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	CORSOrigins []string `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Cache.TileTTL <= 0 {
		return fmt.Errorf("cache.tile_ttl must be positive, got %s", c.Cache.TileTTL)
	}
	if c.Audit.MaxQuerySpanDays <= 0 {
		return fmt.Errorf("audit.max_query_span_days must be positive, got %d", c.Audit.MaxQuerySpanDays)
	}
	if _, err := LoadLocation(c.Aggregation.Timezone); err != nil {
		return fmt.Errorf("aggregation.timezone: %w", err)
	}
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret must be set")
	}
	return nil
}

// LoadLocation resolves the configured timezone name.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("timezone must not be empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
