package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.RegisterRenderer(Renderer{})
}

// Renderer prints one table per export. With metadata requested it adds
// the adapter summary below the table and an appendix page.
type Renderer struct {
	// Uncompressed is used by tests that inspect page text.
	Uncompressed bool
}

func (Renderer) Format() core.Format { return core.FormatPDF }

func (r Renderer) Render(ctx context.Context, in core.RenderInput) ([]byte, error) {
	cols, rows := core.ApplyDerived(in.Entity.Adapter, in.Columns, in.Rows)

	table := TableConfig{
		Title:   fmt.Sprintf("%s (%d)", in.Entity.Label, len(rows)),
		Columns: Columns(cols),
		Rows:    rows,
	}
	if in.Config.IncludeMetadata && in.Entity.Adapter != nil {
		table.Summary = in.Entity.Adapter.Summary(in.Records)
	}

	doc, err := Build(ctx, []TableConfig{table}, Options{
		Orientation:  in.Config.Orientation,
		Title:        in.Title(),
		Subtitle:     subtitle(in),
		Organization: in.Organization,
		Generator:    in.Generator,
		Format:       strings.ToUpper(string(core.FormatPDF)),
		GeneratedAt:  in.GeneratedAt,
		Appendix:     in.Config.IncludeMetadata,
		Uncompressed: r.Uncompressed,
		ChunkSize:    in.ChunkSize,
		Progress:     in.Progress,
	})
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

func subtitle(in core.RenderInput) string {
	parts := []string{fmt.Sprintf("%d records", len(in.Rows))}
	if dr := in.Config.DateRange; dr.Active() {
		start, end := dr.Resolve(in.GeneratedAt)
		switch {
		case !start.IsZero() && !end.IsZero():
			parts = append(parts, start.Format(DateLayout)+" to "+end.Format(DateLayout))
		case !start.IsZero():
			parts = append(parts, "from "+start.Format(DateLayout))
		case !end.IsZero():
			parts = append(parts, "until "+end.Format(DateLayout))
		}
	}
	if f := in.Config.Filters; !f.Empty() && len(f.Status) > 0 {
		parts = append(parts, "status: "+strings.Join(f.Status, ", "))
	}
	return strings.Join(parts, " | ")
}

// Columns maps catalog columns to table columns, weighting text wider
// than numbers and right-aligning amounts.
func Columns(defs []core.ColumnDefinition) []Column {
	out := make([]Column, len(defs))
	for i, d := range defs {
		c := Column{Header: d.Label, Weight: 2, Align: AlignLeft}
		switch d.Type {
		case core.ColumnNumber, core.ColumnCurrency:
			c.Weight, c.Align = 1.4, AlignRight
		case core.ColumnDate:
			c.Weight = 1.4
		case core.ColumnBoolean:
			c.Weight, c.Align = 1, AlignCenter
		}
		if d.ID == "title" || d.ID == "name" || d.ID == "description" {
			c.Weight = 3
		}
		out[i] = c
	}
	return out
}
