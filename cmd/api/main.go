// Package main is the entry point for the taxi analytics API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pkordes/taxi-analytics/backend/apidoc"
	"github.com/pkordes/taxi-analytics/backend/internal/config"
	"github.com/pkordes/taxi-analytics/backend/internal/handler"
	"github.com/pkordes/taxi-analytics/backend/internal/metrics"
	"github.com/pkordes/taxi-analytics/backend/internal/middleware"
	"github.com/pkordes/taxi-analytics/backend/internal/repo"
	"github.com/pkordes/taxi-analytics/backend/internal/service"
	"github.com/pkordes/taxi-analytics/backend/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := migrate(ctx, pool); err != nil {
			slog.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
	}

	// --- Pipeline ---------------------------------------------------------
	pipelineMetrics, err := metrics.NewGlobal()
	if err != nil {
		slog.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	vendorRepo := repo.NewVendorRepo(pool)
	zoneRepo := repo.NewZoneRepo(pool)

	resolverCfg := service.DefaultResolverConfig
	resolverCfg.MatchRadiusKm = cfg.ZoneMatchRadiusKm
	resolver := service.NewResolver(vendorRepo, zoneRepo, resolverCfg, pipelineMetrics, logger)

	summarySvc := service.NewSummaryService(repo.NewSummaryRepo(pool), cfg.SummaryCacheTTL)
	ingestSvc := service.NewIngestService(repo.NewTripRepo(pool), resolver, service.IngestOptions{
		Concurrency: cfg.IngestConcurrency,
		Invalidator: summarySvc,
		Metrics:     pipelineMetrics,
		Logger:      logger,
	})

	// --- Router -----------------------------------------------------------
	// RequestID must precede the logger so each line carries the ID.
	// Recoverer turns a handler panic into a 500.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	handler.NewServer(ingestSvc, summarySvc, vendorRepo, zoneRepo).
		WithAPIDoc(apidoc.OpenAPI).
		Register(r)

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout is generous because a large batch resolves and inserts
	// every record before the response is written.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelhttp.NewHandler(r, "taxi-analytics"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies pending migrations through a database/sql handle that
// shares the pool's connections.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := migrations.NewProvider(db)
	if err != nil {
		return err
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		slog.Info("migration applied", "version", res.Source.Version, "duration_ms", res.Duration.Milliseconds())
	}
	return nil
}
