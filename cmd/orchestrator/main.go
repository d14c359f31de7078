// Protagonist - IIIF Asset Delivery and Orchestration
// Copyright 2026 DLCS contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/dlcs/protagonist-sub009

// Package main is the entry point for the Protagonist orchestrator.
//
// The orchestrator sits in front of the IIIF image server and decides,
// per request, where each asset is served from: the downstream caching
// proxy, the image server itself, pre-generated thumbnails, or S3 for
// file-family assets. Image-family assets are copied from slow origin
// storage onto local fast disk ("orchestration") before the image
// server touches them, so that tile rendering never waits on origin
// latency.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file and environment (Koanf v2)
//  2. Stores: BadgerDB for orchestration status and auth sessions
//  3. Metadata: PostgreSQL asset repository behind a read-through cache
//  4. Origin: S3 reader wrapped in a circuit breaker
//  5. Auth: session store, cookies, bearer tokens, role hierarchy (Casbin)
//  6. HTTP: Chi router, reverse-proxy forwarder, Prometheus metrics
//  7. Supervision: suture tree running the server and maintenance loops
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (CONFIG_PATH or
// the default search paths), built-in defaults.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM: it stops
// accepting new connections, drains in-flight requests within the
// configured shutdown timeout, then closes the stores.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/dlcs/protagonist-sub009/internal/auth"
	"github.com/dlcs/protagonist-sub009/internal/config"
	"github.com/dlcs/protagonist-sub009/internal/faststorage"
	"github.com/dlcs/protagonist-sub009/internal/handlers"
	"github.com/dlcs/protagonist-sub009/internal/keylock"
	"github.com/dlcs/protagonist-sub009/internal/logging"
	"github.com/dlcs/protagonist-sub009/internal/orchestrator"
	"github.com/dlcs/protagonist-sub009/internal/origin"
	"github.com/dlcs/protagonist-sub009/internal/proxy"
	"github.com/dlcs/protagonist-sub009/internal/repository"
	"github.com/dlcs/protagonist-sub009/internal/status"
	"github.com/dlcs/protagonist-sub009/internal/supervisor"
	"github.com/dlcs/protagonist-sub009/internal/supervisor/services"
	"github.com/dlcs/protagonist-sub009/internal/tracker"
)

const maintenanceInterval = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, use the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("fast_storage", cfg.FastStorage.Root).
		Str("origin_bucket", cfg.Origin.Bucket).
		Msg("Starting Protagonist orchestrator")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Orchestration status and auth sessions live in separate badger
	// instances so a session wipe never touches warming state.
	statusDB, err := openBadger(cfg.Orchestrate.StatusStorePath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Orchestrate.StatusStorePath).Msg("Failed to open status store")
	}
	defer closeQuietly("status store", statusDB)

	sessionDB, err := openBadger(cfg.Auth.SessionStorePath)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Auth.SessionStorePath).Msg("Failed to open session store")
	}
	defer closeQuietly("session store", sessionDB)

	pool, err := repository.Connect(ctx, cfg.Database.DSN)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to connect to metadata database")
	}
	defer pool.Close()
	logging.Info().Msg("Metadata database connected")

	repo := repository.NewPostgres(pool)
	assetTracker := tracker.New(repo, repo, cfg.Orchestrate.TrackerCacheTTL)

	s3Reader, err := origin.NewS3Reader(origin.S3Config{
		Endpoint:  cfg.Origin.Endpoint,
		Region:    cfg.Origin.Region,
		Bucket:    cfg.Origin.Bucket,
		AccessKey: cfg.Origin.AccessKey,
		SecretKey: cfg.Origin.SecretKey,
		UseSSL:    cfg.Origin.UseSSL,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build origin reader")
	}
	originReader := origin.NewBreakerReader(s3Reader)

	fastStore, err := faststorage.New(cfg.FastStorage.Root, cfg.FastStorage.FlushEvery)
	if err != nil {
		logging.Fatal().Err(err).Str("root", cfg.FastStorage.Root).Msg("Failed to prepare fast storage")
	}

	statusStore := status.NewStore(statusDB, cfg.Orchestrate.OrchestratingTTL)
	imageOrchestrator := orchestrator.New(
		statusStore,
		keylock.New(),
		originReader,
		fastStore,
		cfg.Orchestrate.LockTimeout,
	)

	validator, sessionStore, err := buildAuth(cfg, sessionDB)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build auth stack")
	}

	destinations, err := proxy.ParseDestinations(
		cfg.Proxy.CachingProxyURL,
		cfg.Proxy.OrchestratorURL,
		cfg.Proxy.S3URL,
		cfg.Proxy.ThumbsURL,
	)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid proxy destinations")
	}
	forwarder := proxy.NewForwarder(destinations, nil)

	requestHandlers := handlers.New(
		assetTracker,
		imageOrchestrator,
		validator,
		repo,
		statusStore,
		forwarder,
	)

	health := handlers.NewHealthHandler()
	health.Register("database", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	health.Register("status_store", func(ctx context.Context) error {
		if statusDB.IsClosed() {
			return errors.New("status store closed")
		}
		return nil
	})
	health.Register("fast_storage", func(ctx context.Context) error {
		_, err := os.Stat(cfg.FastStorage.Root)
		return err
	})

	router := handlers.NewRouter(requestHandlers, health, handlers.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimit:          cfg.Server.RateLimit,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	tree.AddDataService(services.NewBadgerGCService(statusDB, maintenanceInterval))
	tree.AddDataService(services.NewBadgerGCService(sessionDB, maintenanceInterval))
	tree.AddDataService(services.NewSessionCleanupService(sessionStore, maintenanceInterval))
	tree.AddDataService(services.NewCachePruneService("tracker-prune", assetTracker, maintenanceInterval))

	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	logging.Info().Msg("Orchestrator stopped gracefully")
}

// buildAuth wires sessions, cookies, bearer tokens and the role
// hierarchy into an asset access validator.
func buildAuth(cfg *config.Config, db *badger.DB) (*auth.AssetAccessValidator, *auth.BadgerSessionStore, error) {
	sessionStore := auth.NewBadgerSessionStore(db)
	bearer := auth.NewBearerTokenManager([]byte(cfg.Auth.JWTSecret), cfg.Auth.JWTIssuer, cfg.Auth.BearerTTL)
	sessions := auth.NewSessionAuthService(sessionStore, bearer, cfg.Auth.SessionTTL)
	cookies := auth.NewCookieManager(cfg.Auth.CookieDomain, cfg.Auth.CookieSecure, cfg.Auth.SessionTTL)

	checker, err := auth.NewAccessChecker()
	if err != nil {
		return nil, nil, fmt.Errorf("access checker: %w", err)
	}
	for _, ri := range cfg.Auth.RoleInheritance {
		if err := checker.AddRoleInheritance(ri.Customer, ri.Role, ri.Inherits); err != nil {
			return nil, nil, fmt.Errorf("role inheritance %s->%s: %w", ri.Role, ri.Inherits, err)
		}
	}

	return auth.NewAssetAccessValidator(sessions, cookies, checker), sessionStore, nil
}

func openBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	return badger.Open(opts)
}

func closeQuietly(name string, db *badger.DB) {
	if err := db.Close(); err != nil {
		logging.Error().Err(err).Str("store", name).Msg("Error closing store")
	}
}
