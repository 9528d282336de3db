// Package metrics records export job outcomes with OpenTelemetry.
package metrics

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

const meterName = "github.com/JonMunkholm/CSRExport"

// Attribute keys.
var (
	AttrFormat = attribute.Key("export.format")
	AttrEntity = attribute.Key("export.entity")
	AttrStatus = attribute.Key("export.status")
)

// Config controls the meter provider.
type Config struct {
	Enabled  bool
	Interval time.Duration
	// Writer receives the periodic stdout export (default: os.Stdout).
	Writer io.Writer
}

// Setup owns the meter provider and the job recorder.
type Setup struct {
	provider *sdkmetric.MeterProvider
	recorder *Recorder
}

// New builds a periodic stdout pipeline when enabled. When disabled the
// recorder is backed by a no-op meter.
func New(cfg Config) (*Setup, error) {
	if !cfg.Enabled {
		rec, err := NewRecorder(noop.NewMeterProvider().Meter(meterName))
		if err != nil {
			return nil, err
		}
		return &Setup{recorder: rec}, nil
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, fmt.Errorf("create stdout exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
	)
	otel.SetMeterProvider(provider)

	rec, err := NewRecorder(provider.Meter(meterName))
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("create job recorder: %w", err)
	}
	return &Setup{provider: provider, recorder: rec}, nil
}

// Recorder returns the job recorder.
func (s *Setup) Recorder() *Recorder { return s.recorder }

// Shutdown flushes and stops the provider.
func (s *Setup) Shutdown(ctx context.Context) error {
	if s.provider == nil {
		return nil
	}
	return s.provider.Shutdown(ctx)
}

// Recorder implements core.Recorder.
type Recorder struct {
	jobs     metric.Int64Counter
	rows     metric.Int64Counter
	bytes    metric.Int64Counter
	duration metric.Float64Histogram
}

// NewRecorder creates the export instruments on meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	r := &Recorder{}

	var err error
	r.jobs, err = meter.Int64Counter(
		"export.jobs",
		metric.WithDescription("Settled export jobs by format, entity and status"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	r.rows, err = meter.Int64Counter(
		"export.rows",
		metric.WithDescription("Rows written by completed exports"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, err
	}

	r.bytes, err = meter.Int64Counter(
		"export.bytes",
		metric.WithDescription("Artifact bytes produced by completed exports"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	r.duration, err = meter.Float64Histogram(
		"export.duration",
		metric.WithDescription("Export run time in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// RecordJob records one settled job.
func (r *Recorder) RecordJob(ctx context.Context, job core.ExportJob, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		AttrFormat.String(string(job.Config.Format)),
		AttrEntity.String(string(job.Config.EntityType)),
		AttrStatus.String(string(job.Status)),
	)

	r.jobs.Add(ctx, 1, attrs)
	r.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
	if job.Status == core.JobCompleted {
		r.rows.Add(ctx, int64(job.RowCount), attrs)
		r.bytes.Add(ctx, job.FileSize, attrs)
	}
}
