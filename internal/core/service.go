package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultNamespace prefixes every generated filename.
const DefaultNamespace = "csr_platform"

// DefaultJobTimeout bounds one export from submission to settlement.
var DefaultJobTimeout = 10 * time.Minute

// ErrServiceClosed is returned by Submit after Close.
var ErrServiceClosed = errors.New("export service closed")

// ServiceConfig holds the tunables of the export service.
type ServiceConfig struct {
	Namespace     string
	Organization  string
	Language      string
	ChunkSize     int
	MaxConcurrent int
	MaxWait       time.Duration
	JobTimeout    time.Duration
}

// Recorder receives one observation per settled job.
type Recorder interface {
	RecordJob(ctx context.Context, job ExportJob, elapsed time.Duration)
}

// ServiceDeps are the collaborators of the export service.
// Provider, Downloader and History are required.
type ServiceDeps struct {
	Provider   RecordProvider
	Downloader Downloader
	History    *HistoryStore
	Notifier   Notifier
	Recorder   Recorder
	Templates  *TemplateCatalog
	Now        func() time.Time
}

// Service is the single entry point for exports. It validates requests,
// owns the job manager and runs each job on its own goroutine under the
// export limiter.
type Service struct {
	cfg       ServiceConfig
	provider  RecordProvider
	download  Downloader
	notifier  Notifier
	recorder  Recorder
	templates *TemplateCatalog
	now       func() time.Time

	jobs      *JobManager
	limiter   *ExportLimiter
	validator *RequestValidator
	pipeline  *Pipeline

	mu     sync.Mutex
	active map[string]*activeExport
	closed bool
}

type activeExport struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewService wires a service. Call Init before submitting jobs.
func NewService(cfg ServiceConfig, deps ServiceDeps) (*Service, error) {
	if deps.Provider == nil {
		return nil, errors.New("record provider is required")
	}
	if deps.Downloader == nil {
		return nil, errors.New("downloader is required")
	}
	if deps.History == nil {
		return nil, errors.New("history store is required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = DefaultNamespace
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Templates == nil {
		tpl, err := DefaultTemplates()
		if err != nil {
			return nil, err
		}
		deps.Templates = tpl
	}

	return &Service{
		cfg:       cfg,
		provider:  deps.Provider,
		download:  deps.Downloader,
		notifier:  deps.Notifier,
		recorder:  deps.Recorder,
		templates: deps.Templates,
		now:       deps.Now,
		jobs:      NewJobManager(deps.History, deps.Now),
		limiter:   NewExportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		validator: NewRequestValidator(),
		pipeline:  NewPipeline(cfg.Language, deps.Now),
		active:    make(map[string]*activeExport),
	}, nil
}

// Init restores job history.
func (s *Service) Init(ctx context.Context) error {
	return s.jobs.Init(ctx)
}

// Close stops accepting jobs, waits for running ones until ctx ends, then
// cancels whatever is left and flushes history.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	if err := s.limiter.Drain(ctx); err != nil {
		slog.Warn("export drain interrupted, cancelling running jobs", "error", err)
		s.mu.Lock()
		for _, a := range s.active {
			a.cancel()
		}
		s.mu.Unlock()
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return s.jobs.Close(flushCtx)
}

// Submit validates the request, records a pending job and starts it in the
// background. Validation failures return ValidationErrors and create no job.
func (s *Service) Submit(ctx context.Context, name string, cfg ExportConfig) (ExportJob, error) {
	if err := s.validator.Validate(name, cfg); err != nil {
		return ExportJob{}, err
	}
	if cfg.SortOrder == "" {
		cfg.SortOrder = SortAsc
	}
	cfg.IncludeColumns = cfg.Columns()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ExportJob{}, ErrServiceClosed
	}
	job, err := s.jobs.Create(ctx, name, cfg)
	if err != nil {
		s.mu.Unlock()
		return ExportJob{}, err
	}

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.JobTimeout)
	a := &activeExport{cancel: cancel, done: make(chan struct{})}
	s.active[job.ID] = a
	s.mu.Unlock()

	slog.Info("export submitted",
		"job_id", job.ID,
		"name", name,
		"format", cfg.Format,
		"entity", cfg.EntityType,
		"requester", RequesterFromContext(ctx),
		"ip", IPAddressFromContext(ctx),
	)

	go s.run(jobCtx, job, a)
	return job, nil
}

// Export submits a job and waits for it to settle.
func (s *Service) Export(ctx context.Context, name string, cfg ExportConfig) (ExportJob, error) {
	job, err := s.Submit(ctx, name, cfg)
	if err != nil {
		return ExportJob{}, err
	}
	return s.Wait(ctx, job.ID)
}

// Wait blocks until the job settles or ctx ends, then returns its record.
func (s *Service) Wait(ctx context.Context, id string) (ExportJob, error) {
	s.mu.Lock()
	a, running := s.active[id]
	s.mu.Unlock()

	if running {
		select {
		case <-a.done:
		case <-ctx.Done():
			return ExportJob{}, ctx.Err()
		}
	}
	return s.jobs.Get(id)
}

// Cancel moves a pending or processing job to cancelled and stops its work.
// The artifact of a cancelled job is never handed to the downloader.
func (s *Service) Cancel(ctx context.Context, id string) (ExportJob, error) {
	job, err := s.jobs.Cancel(ctx, id)
	if err != nil {
		return job, err
	}

	s.mu.Lock()
	if a, ok := s.active[id]; ok {
		a.cancel()
	}
	s.mu.Unlock()

	slog.Info("export cancelled", "job_id", id)
	s.settled(ctx, job, 0)
	return job, nil
}

// Jobs returns every job, newest first.
func (s *Service) Jobs() []ExportJob {
	return s.jobs.List()
}

// Job returns one job.
func (s *Service) Job(id string) (ExportJob, error) {
	return s.jobs.Get(id)
}

// DeleteJob removes one settled job. Running jobs must be cancelled first.
func (s *Service) DeleteJob(ctx context.Context, id string) error {
	job, err := s.jobs.Get(id)
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return fmt.Errorf("%w: cannot delete %s job", ErrInvalidTransition, job.Status)
	}
	return s.jobs.Delete(ctx, id)
}

// ClearHistory cancels running jobs and removes every job record.
func (s *Service) ClearHistory(ctx context.Context) error {
	s.mu.Lock()
	for _, a := range s.active {
		a.cancel()
	}
	s.mu.Unlock()
	return s.jobs.Clear(ctx)
}

// Templates returns the predefined report catalog.
func (s *Service) Templates() []ReportTemplate {
	return s.templates.List()
}

// SubmitTemplate starts the report template id with overrides applied.
func (s *Service) SubmitTemplate(ctx context.Context, id string, overrides ExportConfig) (ExportJob, error) {
	tpl, err := s.templates.Get(id)
	if err != nil {
		return ExportJob{}, err
	}
	return s.Submit(ctx, tpl.Label, tpl.Apply(overrides))
}

// Entities returns the registered entity catalog.
func (s *Service) Entities() []EntityDefinition {
	return Entities()
}

// LimiterStatus reports export slot usage.
func (s *Service) LimiterStatus() ExportLimiterStatus {
	return s.limiter.Status()
}

// Filename builds <namespace>_<entity>_<YYYY-MM-DD>.<ext>.
func (s *Service) Filename(cfg ExportConfig, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s.%s", s.cfg.Namespace, cfg.EntityType, at.Format("2006-01-02"), cfg.Format.Extension())
}

// run drives one job to a terminal state.
func (s *Service) run(ctx context.Context, job ExportJob, a *activeExport) {
	start := s.now()
	logger := slog.With("job_id", job.ID, "format", job.Config.Format, "entity", job.Config.EntityType)
	// Job records are written even after the job context ends.
	persist := context.WithoutCancel(ctx)

	defer func() {
		a.cancel()
		s.mu.Lock()
		delete(s.active, job.ID)
		s.mu.Unlock()
		close(a.done)
	}()

	err := s.limiter.Acquire(ctx)
	if err == nil {
		defer s.limiter.Release()
	}
	if _, serr := s.jobs.Start(persist, job.ID); serr != nil {
		logger.Debug("export stopped before start", "error", serr)
		return
	}

	var done ExportJob
	if err == nil {
		done, err = s.execute(ctx, persist, job, logger)
	}

	switch {
	case err == nil:
		s.settled(persist, done, s.now().Sub(start))
		return
	case errors.Is(err, ErrInvalidTransition):
		logger.Debug("export stopped by state change", "error", err)
		return
	case s.isCancelled(job.ID):
		logger.Debug("export cancelled during render", "error", err)
		return
	}

	logger.Error("export failed", "error", err)
	failed, ferr := s.jobs.Fail(persist, job.ID, err)
	if ferr != nil {
		logger.Debug("could not mark export failed", "error", ferr)
		return
	}
	s.settled(persist, failed, s.now().Sub(start))
}

// execute runs fetch, pipeline, render and download for a processing job.
func (s *Service) execute(ctx, persist context.Context, job ExportJob, logger *slog.Logger) (ExportJob, error) {
	cfg := job.Config
	def, ok := Lookup(cfg.EntityType)
	if !ok {
		return ExportJob{}, fmt.Errorf("unknown entity type %q", cfg.EntityType)
	}
	renderer, ok := LookupRenderer(cfg.Format)
	if !ok {
		return ExportJob{}, &RenderError{Format: cfg.Format, Err: errors.New("no renderer installed")}
	}

	records, err := s.provider.Records(ctx, cfg.EntityType)
	if err != nil {
		return ExportJob{}, fmt.Errorf("load records for %s: %w", cfg.EntityType, err)
	}
	s.progress(persist, job.ID, 10)

	result := s.pipeline.Transform(def, records, cfg)
	logger.Debug("pipeline complete", "source", len(records), "rows", len(result.Rows))
	s.progress(persist, job.ID, 20)

	now := s.now()
	in := RenderInput{
		Config:       cfg,
		Entity:       def,
		Columns:      result.Columns,
		Rows:         result.Rows,
		Records:      result.Records,
		GeneratedAt:  now,
		Organization: s.cfg.Organization,
		Generator:    RequesterFromContext(ctx),
		ChunkSize:    s.cfg.ChunkSize,
		Progress: func(done, total int) {
			if total > 0 {
				s.progress(persist, job.ID, 20+done*75/total)
			}
		},
	}

	data, err := safeRender(ctx, renderer, in)
	if err != nil {
		return ExportJob{}, err
	}
	if err := ctx.Err(); err != nil {
		return ExportJob{}, err
	}

	artifact := Artifact{
		Data:     data,
		Filename: s.Filename(cfg, now),
		MIMEType: cfg.Format.MIMEType(),
	}
	if err := s.download.Download(ctx, artifact); err != nil {
		return ExportJob{}, fmt.Errorf("download %s: %w", artifact.Filename, err)
	}

	done, err := s.jobs.Complete(persist, job.ID, len(result.Rows), int64(len(data)), artifact.Filename)
	if err != nil {
		return ExportJob{}, err
	}
	logger.Info("export completed",
		"rows", done.RowCount,
		"size", humanize.Bytes(uint64(done.FileSize)),
		"file", done.FileName,
	)
	return done, nil
}

// safeRender converts renderer panics and plain errors into RenderErrors.
// Context errors pass through unchanged so cancellation stays recognizable.
func safeRender(ctx context.Context, r Renderer, in RenderInput) (data []byte, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in renderer",
				"format", r.Format(),
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			err = &RenderError{Format: r.Format(), Err: fmt.Errorf("renderer panic: %v", rec)}
		}
	}()

	data, err = r.Render(ctx, in)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	var re *RenderError
	if errors.As(err, &re) {
		return nil, err
	}
	return nil, &RenderError{Format: r.Format(), Err: err}
}

func (s *Service) progress(ctx context.Context, id string, pct int) {
	if err := s.jobs.SetProgress(ctx, id, pct); err != nil {
		slog.Debug("progress update skipped", "job_id", id, "error", err)
	}
}

func (s *Service) isCancelled(id string) bool {
	j, err := s.jobs.Get(id)
	return err == nil && j.Status == JobCancelled
}

// settled reports a terminal job to the notifier and recorder.
func (s *Service) settled(ctx context.Context, job ExportJob, elapsed time.Duration) {
	if s.recorder != nil {
		s.recorder.RecordJob(ctx, job, elapsed)
	}
	if s.notifier == nil {
		return
	}
	switch job.Status {
	case JobCompleted:
		s.notifier.JobCompleted(ctx, job)
	case JobFailed:
		s.notifier.JobFailed(ctx, job)
	}
}
