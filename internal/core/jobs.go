package core

// jobs.go owns export job records and their state machine.
//
//	pending ──► processing ──► completed
//	   │            ├────────► failed
//	   └────────────┴────────► cancelled
//
// JobManager is the only writer of job records. Every transition mutates the
// in-memory list and writes a snapshot of the full list to the history store
// while holding the same lock, so transitions from concurrent jobs are
// serialized and never lose updates. Persistence is best-effort: a failed
// write is logged and the in-memory state stands.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of an export job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// transitions lists the allowed next states for each state.
var transitions = map[JobStatus][]JobStatus{
	JobPending:    {JobProcessing, JobCancelled},
	JobProcessing: {JobCompleted, JobFailed, JobCancelled},
}

// CanTransition reports whether from -> to is a legal move.
func CanTransition(from, to JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	// ErrJobNotFound is returned for unknown job ids.
	ErrJobNotFound = errors.New("export job not found")
	// ErrInvalidTransition is returned when a transition is not allowed.
	ErrInvalidTransition = errors.New("invalid job transition")
)

// ExportJob is the lifecycle record of one export request.
type ExportJob struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Config      ExportConfig `json:"config"`
	Status      JobStatus    `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	StartedAt   *time.Time   `json:"startedAt,omitempty"`
	CompletedAt *time.Time   `json:"completedAt,omitempty"`
	FailedAt    *time.Time   `json:"failedAt,omitempty"`
	CancelledAt *time.Time   `json:"cancelledAt,omitempty"`
	RowCount    int          `json:"rowCount"`
	FileSize    int64        `json:"fileSize"`
	FileName    string       `json:"fileName,omitempty"`
	Error       string       `json:"error,omitempty"`
	Progress    int          `json:"progress"`
}

// clone returns a deep copy so callers never share mutable state with the manager.
func (j *ExportJob) clone() ExportJob {
	c := *j
	c.Config = j.Config.Clone()
	c.StartedAt = cloneTime(j.StartedAt)
	c.CompletedAt = cloneTime(j.CompletedAt)
	c.FailedAt = cloneTime(j.FailedAt)
	c.CancelledAt = cloneTime(j.CancelledAt)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// JobManager owns the job list and persists it on every mutation.
type JobManager struct {
	history *HistoryStore
	now     func() time.Time

	mu   sync.Mutex
	jobs map[string]*ExportJob
}

// NewJobManager creates a manager persisting through history.
// Call Init before use.
func NewJobManager(history *HistoryStore, now func() time.Time) *JobManager {
	if now == nil {
		now = time.Now
	}
	return &JobManager{
		history: history,
		now:     now,
		jobs:    make(map[string]*ExportJob),
	}
}

// Init loads job history from the store. Jobs that were still pending or
// processing when the previous process stopped cannot resume and are failed.
func (m *JobManager) Init(ctx context.Context) error {
	jobs, err := m.history.Load(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs = make(map[string]*ExportJob, len(jobs))
	interrupted := 0
	for i := range jobs {
		j := jobs[i]
		if !j.Status.Terminal() {
			t := m.now()
			j.Status = JobFailed
			j.FailedAt = &t
			j.Error = "interrupted"
			interrupted++
		}
		m.jobs[j.ID] = &j
	}

	slog.Info("job history loaded", "jobs", len(jobs), "interrupted", interrupted)
	if interrupted > 0 {
		m.persistLocked(ctx)
	}
	return nil
}

// Close flushes the current list to the store.
func (m *JobManager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.history.Save(ctx, m.snapshotLocked())
}

// Create records a new pending job.
func (m *JobManager) Create(ctx context.Context, name string, cfg ExportConfig) (ExportJob, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return ExportJob{}, fmt.Errorf("generate job id: %w", err)
	}

	job := &ExportJob{
		ID:        id.String(),
		Name:      name,
		Config:    cfg.Clone(),
		Status:    JobPending,
		CreatedAt: m.now(),
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs[job.ID] = job
	m.persistLocked(ctx)
	return job.clone(), nil
}

// Start moves a pending job to processing.
func (m *JobManager) Start(ctx context.Context, id string) (ExportJob, error) {
	return m.transition(ctx, id, JobProcessing, func(j *ExportJob, t time.Time) {
		j.StartedAt = &t
		j.Progress = 0
	})
}

// Complete stamps a processing job with its final row count and file size.
func (m *JobManager) Complete(ctx context.Context, id string, rowCount int, fileSize int64, fileName string) (ExportJob, error) {
	return m.transition(ctx, id, JobCompleted, func(j *ExportJob, t time.Time) {
		j.CompletedAt = &t
		j.RowCount = rowCount
		j.FileSize = fileSize
		j.FileName = fileName
		j.Progress = 100
	})
}

// Fail stamps a processing job with the error message.
func (m *JobManager) Fail(ctx context.Context, id string, cause error) (ExportJob, error) {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return m.transition(ctx, id, JobFailed, func(j *ExportJob, t time.Time) {
		j.FailedAt = &t
		j.Error = msg
	})
}

// Cancel moves a pending or processing job to cancelled.
func (m *JobManager) Cancel(ctx context.Context, id string) (ExportJob, error) {
	return m.transition(ctx, id, JobCancelled, func(j *ExportJob, t time.Time) {
		j.CancelledAt = &t
	})
}

// SetProgress records render progress for a processing job. Progress is
// clamped to 0-99; only Complete reports 100.
func (m *JobManager) SetProgress(ctx context.Context, id string, pct int) error {
	if pct < 0 {
		pct = 0
	}
	if pct > 99 {
		pct = 99
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if j.Status != JobProcessing {
		return fmt.Errorf("%w: progress on %s job", ErrInvalidTransition, j.Status)
	}
	if j.Progress == pct {
		return nil
	}
	j.Progress = pct
	m.persistLocked(ctx)
	return nil
}

func (m *JobManager) transition(ctx context.Context, id string, to JobStatus, stamp func(*ExportJob, time.Time)) (ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return ExportJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !CanTransition(j.Status, to) {
		return j.clone(), fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, to)
	}

	j.Status = to
	stamp(j, m.now())
	m.persistLocked(ctx)
	return j.clone(), nil
}

// Get returns a copy of one job.
func (m *JobManager) Get(id string) (ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.jobs[id]
	if !ok {
		return ExportJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return j.clone(), nil
}

// List returns copies of all jobs, newest first.
func (m *JobManager) List() []ExportJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Delete removes one job from memory and the store.
func (m *JobManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	delete(m.jobs, id)
	m.persistLocked(ctx)
	return nil
}

// Clear removes every job from memory and the store.
func (m *JobManager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.jobs = make(map[string]*ExportJob)
	return m.history.Clear(ctx)
}

// snapshotLocked copies the list sorted by creation time, newest first.
// Ties keep id order, which is creation order for UUIDv7 ids.
func (m *JobManager) snapshotLocked() []ExportJob {
	out := make([]ExportJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j.clone())
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].CreatedAt.After(out[b].CreatedAt)
		}
		return out[a].ID > out[b].ID
	})
	return out
}

// persistLocked writes the full list. Errors are logged, not returned.
func (m *JobManager) persistLocked(ctx context.Context) {
	if err := m.history.Save(ctx, m.snapshotLocked()); err != nil {
		slog.Error("persist job history", "error", err)
	}
}

// Prune removes settled jobs that ended before cutoff and returns the count.
func (m *JobManager) Prune(ctx context.Context, cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, j := range m.jobs {
		if j.Status.Terminal() && j.settledAt().Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	if n > 0 {
		m.persistLocked(ctx)
	}
	return n
}

// settledAt is when the job reached its terminal state, or its creation
// time for records without a stamp.
func (j *ExportJob) settledAt() time.Time {
	for _, t := range []*time.Time{j.CompletedAt, j.FailedAt, j.CancelledAt} {
		if t != nil {
			return *t
		}
	}
	return j.CreatedAt
}
