// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

// Command server runs the Mapcase core: the record aggregation and
// listing API, the tile query cache, and the audit log, supervised as a
// single process.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"
	"github.com/thejerf/suture/v4"

	"github.com/mapcase/mapcase/internal/aggregation"
	"github.com/mapcase/mapcase/internal/api"
	"github.com/mapcase/mapcase/internal/audit"
	"github.com/mapcase/mapcase/internal/auth"
	"github.com/mapcase/mapcase/internal/authz"
	"github.com/mapcase/mapcase/internal/config"
	"github.com/mapcase/mapcase/internal/database"
	"github.com/mapcase/mapcase/internal/events"
	"github.com/mapcase/mapcase/internal/logging"
	"github.com/mapcase/mapcase/internal/supervisor"
	"github.com/mapcase/mapcase/internal/supervisor/services"
	"github.com/mapcase/mapcase/internal/tilecache"
	ws "github.com/mapcase/mapcase/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("database", cfg.Database.Path).
		Msg("Starting mapcase server")

	if err := run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
	logging.Info().Msg("Server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Record and audit stores share one DuckDB database.
	db, err := database.Open(cfg.Database.Path, cfg.Database.QueryTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()
	if err := db.CreateTables(ctx); err != nil {
		return err
	}

	auditStore := audit.NewDuckDBStore(db.Conn())
	if err := auditStore.CreateTable(ctx); err != nil {
		return err
	}
	recorder := audit.NewRecorder(auditStore)

	// Tile query cache: Badger with TTL entries, behind a circuit breaker.
	badgerOpts := badger.DefaultOptions(cfg.Cache.Path).WithLogger(nil)
	if cfg.Cache.Path == "" {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return err
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close tile cache")
		}
	}()
	tileStore := tilecache.NewBadgerStore(badgerDB, cfg.Cache.TileTTL)
	tiles := tilecache.NewBreakerCache(tileStore)

	tz, err := config.LoadLocation(cfg.Aggregation.Timezone)
	if err != nil {
		return err
	}
	engine := aggregation.NewEngine(db, tz)

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}
	verifier := auth.NewVerifier(cfg.Security.JWTSecret)

	// Mutation fan-out: bus -> relay -> websocket hub.
	wmLogger := events.NewLoggerAdapter()
	bus := events.NewBus(wmLogger)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close event bus")
		}
	}()
	hub := ws.NewHub()
	relay, err := events.NewRelay(bus, hub, wmLogger)
	if err != nil {
		return err
	}

	handler := api.NewHandler(db, engine, tiles, auditStore, recorder, enforcer, bus, hub, cfg)
	router := api.NewRouter(handler, verifier)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if cfg.Cache.Path != "" {
		// In-memory Badger has no value log on disk to collect.
		tree.AddDataService(services.NewCacheGCService(tileStore, cfg.Cache.GCInterval))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewRelayService(relay))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)

	if unstopped, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}

	if errors.Is(err, suture.ErrTerminateSupervisorTree) {
		return nil
	}
	return err
}
