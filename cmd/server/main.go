package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/CSRExport/internal/app"
	"github.com/JonMunkholm/CSRExport/internal/config"
	"github.com/JonMunkholm/CSRExport/internal/core"
	"github.com/JonMunkholm/CSRExport/internal/logging"
	"github.com/JonMunkholm/CSRExport/internal/web"
)

// requestsPerMinute is the per-client rate limit on the job API.
const requestsPerMinute = 120

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

	closeLog := logging.Setup(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer closeLog()

	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	a, err := app.Open(ctx, cfg, app.Options{})
	if err != nil {
		slog.Error("failed to start export service", "error", err)
		os.Exit(1)
	}

	// Background history maintenance
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go a.Service.StartRetention(jobCtx, core.RetentionConfig{
		MaxAge:        cfg.Export.HistoryRetention,
		CheckInterval: cfg.Export.RetentionInterval,
	})

	server := web.NewServer(a.Service, web.Options{
		Server:    cfg.Server,
		Security:  cfg.Security,
		RateLimit: requestsPerMinute,
		Files:     a.Downloads,
	})

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}

		// Wait for running exports, then cancel what is left
		status := a.Service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for exports to complete", "active", status.Active)
		}
		if err := a.Close(shutdownCtx); err != nil {
			slog.Error("close error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		_ = a.Close(ctx)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
