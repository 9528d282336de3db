// Package app wires configuration into a running export service. The HTTP
// server and the CLI share it so both see the same stores and renderers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/config"
	"github.com/JonMunkholm/CSRExport/internal/core"
	_ "github.com/JonMunkholm/CSRExport/internal/core/entities" // Register all entity types
	"github.com/JonMunkholm/CSRExport/internal/download"
	"github.com/JonMunkholm/CSRExport/internal/metrics"
	"github.com/JonMunkholm/CSRExport/internal/notify"
	"github.com/JonMunkholm/CSRExport/internal/provider"
	_ "github.com/JonMunkholm/CSRExport/internal/render/delimited" // Register format builders
	_ "github.com/JonMunkholm/CSRExport/internal/render/document"
	_ "github.com/JonMunkholm/CSRExport/internal/render/spreadsheet"
	_ "github.com/JonMunkholm/CSRExport/internal/render/structured"
	"github.com/JonMunkholm/CSRExport/internal/store"
	"github.com/JonMunkholm/CSRExport/internal/store/postgres"
	"github.com/JonMunkholm/CSRExport/internal/store/redis"
	"github.com/JonMunkholm/CSRExport/internal/store/sqlite"
)

// App holds the service and every resource it owns.
type App struct {
	Config    *config.Config
	Service   *core.Service
	Store     store.KV
	Downloads *download.Directory
	Metrics   *metrics.Setup
}

// Options adjust wiring for callers that are not the long-running server.
type Options struct {
	// DownloadDir overrides the configured artifact directory.
	DownloadDir string
	// DisableNotify skips desktop notifications even when configured.
	DisableNotify bool
}

// Open connects the history store, restores job history and builds the
// service. Close releases everything Open acquired.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	kv, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	dir := cfg.Export.DownloadDir
	if opts.DownloadDir != "" {
		dir = opts.DownloadDir
	}
	downloads, err := download.NewDirectory(dir)
	if err != nil {
		kv.Close()
		return nil, err
	}

	m, err := metrics.New(metrics.Config{Enabled: cfg.Metrics.Enabled, Interval: cfg.Metrics.Interval})
	if err != nil {
		kv.Close()
		return nil, err
	}

	loc := cfg.Export.Location()
	svc, err := core.NewService(core.ServiceConfig{
		Namespace:     cfg.Export.Namespace,
		Organization:  cfg.Export.Organization,
		Language:      cfg.Export.Language,
		ChunkSize:     cfg.Export.ChunkSize,
		MaxConcurrent: cfg.Export.MaxConcurrent,
		MaxWait:       cfg.Export.MaxWait,
		JobTimeout:    cfg.Export.JobTimeout,
	}, core.ServiceDeps{
		Provider:   provider.NewDirectory(cfg.Export.DataDir),
		Downloader: downloads,
		History:    core.NewHistoryStore(kv, ""),
		Notifier:   notify.New(cfg.Notify.Desktop && !opts.DisableNotify),
		Recorder:   m.Recorder(),
		Now:        func() time.Time { return time.Now().In(loc) },
	})
	if err != nil {
		_ = m.Shutdown(ctx)
		kv.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}
	if err := svc.Init(ctx); err != nil {
		_ = m.Shutdown(ctx)
		kv.Close()
		return nil, fmt.Errorf("restore job history: %w", err)
	}

	slog.Info("export service ready",
		"store", cfg.Store.Driver,
		"entities", len(svc.Entities()),
		"formats", core.RendererFormats(),
		"templates", len(svc.Templates()),
		"downloads", downloads.Dir(),
	)

	return &App{
		Config:    cfg,
		Service:   svc,
		Store:     kv,
		Downloads: downloads,
		Metrics:   m,
	}, nil
}

// Close drains the service, flushes metrics and closes the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Service.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close service: %w", err))
	}
	if err := a.Metrics.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown metrics: %w", err))
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}

// OpenStore connects the configured history backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.KV, error) {
	switch cfg.Driver {
	case "memory":
		return store.NewMemory(), nil
	case "sqlite":
		return sqlite.Open(ctx, cfg.SQLitePath)
	case "postgres":
		return postgres.Open(ctx, postgres.Config{
			URL:      cfg.PostgresURL,
			MaxConns: int32(cfg.PostgresMaxConns),
			MinConns: int32(cfg.PostgresMinConns),
		})
	case "redis":
		return redis.Open(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
