package core

// scheduler.go runs history maintenance in the background.
//
// Settled jobs older than the retention window are pruned from the job list
// and the history store. Running jobs are never touched. A failed cycle is
// logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig holds configuration for the history retention scheduler.
type RetentionConfig struct {
	MaxAge        time.Duration // Settled jobs older than this are pruned (default: 30 days)
	CheckInterval time.Duration // How often to run (default: 1h)
}

const (
	DefaultHistoryRetention = 30 * 24 * time.Hour
	DefaultRetentionCheck   = time.Hour
)

// StartRetention prunes old settled jobs immediately, then every
// CheckInterval, until ctx is cancelled. It blocks; run it on its own
// goroutine.
func (s *Service) StartRetention(ctx context.Context, cfg RetentionConfig) {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultHistoryRetention
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultRetentionCheck
	}
	slog.Info("history retention started", "max_age", cfg.MaxAge, "interval", cfg.CheckInterval)

	s.PruneHistory(ctx, cfg.MaxAge)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("history retention stopped")
			return
		case <-ticker.C:
			s.PruneHistory(ctx, cfg.MaxAge)
		}
	}
}

// PruneHistory removes settled jobs that ended more than maxAge ago and
// returns how many were removed.
func (s *Service) PruneHistory(ctx context.Context, maxAge time.Duration) int {
	start := time.Now()
	cutoff := s.now().Add(-maxAge)

	n := s.jobs.Prune(ctx, cutoff)
	if n > 0 {
		slog.Info("pruned job history",
			"jobs_removed", n,
			"cutoff", cutoff,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return n
}
