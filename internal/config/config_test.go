// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package config

import (
	"strings"
	"testing"
	"time"
)

// newValidConfig returns defaults patched to pass validation.
func newValidConfig() *Config {
	cfg := defaultConfig()
	cfg.Security.JWTSecret = "unit-test-secret"
	return cfg
}

func TestLoad_DefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("MAPCASE_SECURITY_JWT_SECRET", "env-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 4326 {
		t.Errorf("Expected default port 4326, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TileTTL != 30*time.Second {
		t.Errorf("Expected default tile TTL 30s, got %s", cfg.Cache.TileTTL)
	}
	if cfg.Audit.MaxQuerySpanDays != 31 {
		t.Errorf("Expected default audit span 31 days, got %d", cfg.Audit.MaxQuerySpanDays)
	}
	if cfg.Aggregation.Timezone != "UTC" {
		t.Errorf("Expected default timezone UTC, got %q", cfg.Aggregation.Timezone)
	}
	if cfg.Security.JWTSecret != "env-secret" {
		t.Errorf("Expected env secret to apply, got %q", cfg.Security.JWTSecret)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MAPCASE_SECURITY_JWT_SECRET", "env-secret")
	t.Setenv("MAPCASE_SERVER_PORT", "9090")
	t.Setenv("MAPCASE_CACHE_TILE_TTL", "45s")
	t.Setenv("MAPCASE_AGGREGATION_TIMEZONE", "Asia/Manila")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Cache.TileTTL != 45*time.Second {
		t.Errorf("Expected tile TTL 45s, got %s", cfg.Cache.TileTTL)
	}
	if cfg.Aggregation.Timezone != "Asia/Manila" {
		t.Errorf("Expected timezone Asia/Manila, got %q", cfg.Aggregation.Timezone)
	}
}

func TestLoad_CORSOriginsFromEnv(t *testing.T) {
	t.Setenv("MAPCASE_SECURITY_JWT_SECRET", "env-secret")
	t.Setenv("MAPCASE_SECURITY_CORS_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Security.CORSOrigins) != 2 {
		t.Fatalf("Expected 2 origins, got %v", cfg.Security.CORSOrigins)
	}
	if cfg.Security.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("Expected trimmed origin, got %q", cfg.Security.CORSOrigins[1])
	}
}

func TestLoad_MissingSecretFailsValidation(t *testing.T) {
	t.Setenv("MAPCASE_SECURITY_JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected validation failure without a JWT secret")
	}
	if !strings.Contains(err.Error(), "jwt_secret") {
		t.Errorf("Expected error to name jwt_secret, got: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero tile ttl", func(c *Config) { c.Cache.TileTTL = 0 }, "tile_ttl"},
		{"zero audit span", func(c *Config) { c.Audit.MaxQuerySpanDays = 0 }, "max_query_span_days"},
		{"bad timezone", func(c *Config) { c.Aggregation.Timezone = "Mars/Olympus" }, "timezone"},
		{"missing secret", func(c *Config) { c.Security.JWTSecret = "" }, "jwt_secret"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := newValidConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error mentioning %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestConfig_ValidateAcceptsDefaults(t *testing.T) {
	t.Parallel()

	if err := newValidConfig().Validate(); err != nil {
		t.Errorf("Expected patched defaults to validate, got: %v", err)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	t.Parallel()

	c := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if c.Addr() != "127.0.0.1:8080" {
		t.Errorf("Expected '127.0.0.1:8080', got %q", c.Addr())
	}
}

func TestEnvTransform(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"MAPCASE_SERVER_PORT", "server.port"},
		{"MAPCASE_CACHE_TILE_TTL", "cache.tile_ttl"},
		{"MAPCASE_AUDIT_MAX_QUERY_SPAN_DAYS", "audit.max_query_span_days"},
		{"MAPCASE_LOGGING_LEVEL", "logging.level"},
	}

	for _, tc := range cases {
		if got := envTransform(tc.in); got != tc.want {
			t.Errorf("envTransform(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()

	loc, err := LoadLocation("Asia/Manila")
	if err != nil {
		t.Fatalf("LoadLocation failed: %v", err)
	}
	if loc.String() != "Asia/Manila" {
		t.Errorf("Expected Asia/Manila, got %s", loc)
	}

	if _, err := LoadLocation(""); err == nil {
		t.Error("Expected error for empty timezone")
	}
	if _, err := LoadLocation("Not/AZone"); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}
