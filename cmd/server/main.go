package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/config"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/fee"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/ingest"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/logging"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/reconcile"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/report"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/store"
	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"ingest_max_concurrent", cfg.Ingest.MaxConcurrent,
		"batch_size", cfg.Ingest.BatchSize,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	// Pick the store: PostgreSQL when a database URL is configured,
	// otherwise the in-memory store.
	var st store.Store
	if cfg.Database.URL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}

		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		} else {
			slog.Info("connected to database")
		}

		st = store.NewPostgres(pool)
	} else {
		slog.Warn("no database URL configured, using in-memory store")
		st = store.NewMemory()
	}

	// Wire the pipeline: fee engine, reconciler, ingestion service, reports.
	engine := fee.NewEngine(fee.DefaultRules())
	rec := reconcile.New(st, engine)

	service := ingest.NewService(st, rec, ingest.Options{
		BatchSize:     cfg.Ingest.BatchSize,
		MaxFileSize:   cfg.Ingest.MaxFileSize,
		MaxConcurrent: cfg.Ingest.MaxConcurrent,
		WaitTimeout:   cfg.Ingest.MaxWaitTime,
		Timeout:       cfg.Ingest.Timeout,
	})

	reports := report.NewAggregator(st, engine)

	server := web.NewServer(service, reports, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active ingestions to finish (with timeout)
		if active := service.ActiveCount(); active > 0 {
			slog.Info("waiting for ingestions to complete", "active", active)
			if err := service.Wait(shutdownCtx); err != nil {
				slog.Warn("ingestions did not complete in time", "error", err)
			} else {
				slog.Info("all ingestions completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
