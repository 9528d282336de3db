package spreadsheet

import (
	"context"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.RegisterRenderer(Renderer{})
}

// Renderer builds one data sheet per export, plus the summary and
// analytics sheets when metadata is requested.
type Renderer struct{}

func (Renderer) Format() core.Format { return core.FormatXLSX }

func (Renderer) Render(ctx context.Context, in core.RenderInput) ([]byte, error) {
	cols, rows := core.ApplyDerived(in.Entity.Adapter, in.Columns, in.Rows)

	sheet := SheetConfig{
		Name:    in.Entity.Label,
		Columns: Columns(cols),
		Rows:    rows,
	}
	opts := Options{
		Title:       in.Title(),
		Author:      in.Generator,
		GeneratedAt: in.GeneratedAt,
		ChunkSize:   in.ChunkSize,
		Progress:    in.Progress,
	}
	if in.Config.IncludeMetadata {
		opts.Analytics = true
		if in.Entity.Adapter != nil {
			opts.Summary = &SummarySheet{
				Name:    "Summary",
				Metrics: in.Entity.Adapter.Summary(in.Records),
			}
		}
	}
	return Build(ctx, []SheetConfig{sheet}, opts)
}

// Columns maps catalog columns to sheet columns.
func Columns(defs []core.ColumnDefinition) []Column {
	out := make([]Column, len(defs))
	for i, d := range defs {
		out[i] = Column{Header: d.Label, Format: formatFor(d.Type)}
	}
	return out
}

func formatFor(t core.ColumnType) NumberFormat {
	switch t {
	case core.ColumnCurrency:
		return FormatCurrency
	case core.ColumnDate:
		return FormatDate
	}
	return FormatGeneral
}
