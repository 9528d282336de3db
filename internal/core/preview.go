package core

import (
	"context"
	"fmt"
	"time"
)

// DefaultPreviewRows is the sample size when a preview asks for none.
const DefaultPreviewRows = 10

// MaxPreviewRows caps the preview sample.
const MaxPreviewRows = 100

// PreviewSummary contains the record counts of a previewed export.
type PreviewSummary struct {
	SourceRecords int `json:"sourceRecords"`
	MatchedRows   int `json:"matchedRows"`
	SampleRows    int `json:"sampleRows"`
}

// PreviewResponse shows what an export would contain without creating a job.
type PreviewResponse struct {
	Summary          PreviewSummary     `json:"summary"`
	Columns          []ColumnDefinition `json:"columns"`
	Rows             []Row              `json:"rows"`
	Metrics          []Metric           `json:"metrics,omitempty"`
	ProcessingTimeMs int64              `json:"processingTimeMs"`
}

// Preview validates cfg and returns the first limit rows it would export.
// It is read-only: no job is recorded and nothing is rendered. Metrics are
// included when the request asks for metadata.
func (s *Service) Preview(ctx context.Context, cfg ExportConfig, limit int) (*PreviewResponse, error) {
	startTime := time.Now()

	if err := s.validator.Validate("preview", cfg); err != nil {
		return nil, err
	}
	def, ok := Lookup(cfg.EntityType)
	if !ok {
		return nil, fmt.Errorf("unknown entity type %q", cfg.EntityType)
	}

	switch {
	case limit <= 0:
		limit = DefaultPreviewRows
	case limit > MaxPreviewRows:
		limit = MaxPreviewRows
	}

	records, err := s.provider.Records(ctx, cfg.EntityType)
	if err != nil {
		return nil, fmt.Errorf("load records for %s: %w", cfg.EntityType, err)
	}

	result := s.pipeline.Transform(def, records, cfg)
	sample := result.Rows
	if len(sample) > limit {
		sample = sample[:limit]
	}

	resp := &PreviewResponse{
		Summary: PreviewSummary{
			SourceRecords: len(records),
			MatchedRows:   len(result.Rows),
			SampleRows:    len(sample),
		},
		Columns: result.Columns,
		Rows:    sample,
	}
	if cfg.IncludeMetadata {
		resp.Metrics = def.Adapter.Summary(result.Records)
	}
	resp.ProcessingTimeMs = time.Since(startTime).Milliseconds()
	return resp, nil
}
