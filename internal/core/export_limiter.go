package core

// export_limiter.go bounds how many export jobs render at once.
//
// Each job holds one slot from acquire until its final transition. Jobs that
// cannot get a slot within maxWait fail with ErrTooManyExports instead of
// queueing indefinitely. Drain blocks shutdown until in-flight jobs settle.

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTooManyExports is returned when every export slot stays occupied for
// the whole wait period.
var ErrTooManyExports = errors.New("too many concurrent exports, please try again later")

const (
	// DefaultMaxConcurrentExports is the default number of parallel renders.
	DefaultMaxConcurrentExports = 3
	// DefaultExportWait is how long a job waits for a slot before failing.
	DefaultExportWait = 30 * time.Second
)

// ExportLimiter is a counting semaphore with drain support.
type ExportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	active  atomic.Int64
	waiting atomic.Int64
	settled sync.WaitGroup
}

// NewExportLimiter allows at most maxConcurrent jobs to render at once.
// Non-positive arguments use the defaults.
func NewExportLimiter(maxConcurrent int, maxWait time.Duration) *ExportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultExportWait
	}
	return &ExportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to maxWait. The caller must call Release
// exactly once after a nil return.
func (l *ExportLimiter) Acquire(ctx context.Context) error {
	l.waiting.Add(1)
	defer l.waiting.Add(-1)

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.settled.Add(1)
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyExports
	}
}

// TryAcquire takes a slot only if one is free right now.
func (l *ExportLimiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.settled.Add(1)
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *ExportLimiter) Release() {
	l.active.Add(-1)
	<-l.slots
	l.settled.Done()
}

// Run executes fn while holding a slot.
func (l *ExportLimiter) Run(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Drain blocks until every held slot is released or ctx ends.
func (l *ExportLimiter) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		l.settled.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExportLimiterStatus is a point-in-time view of the limiter.
type ExportLimiterStatus struct {
	Active        int `json:"active"`
	Waiting       int `json:"waiting"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status reports current usage for health endpoints.
func (l *ExportLimiter) Status() ExportLimiterStatus {
	return ExportLimiterStatus{
		Active:        int(l.active.Load()),
		Waiting:       int(l.waiting.Load()),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}
