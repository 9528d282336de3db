package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

var generatedAt = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func projectTable(n int) TableConfig {
	rows := make([]core.Row, n)
	for i := range rows {
		rows[i] = core.Row{
			core.String(fmt.Sprintf("Project %d", i+1)),
			core.Number(float64(1000 * (i + 1))),
			core.Bool(i%2 == 0),
		}
	}
	return TableConfig{
		Title: "Projects",
		Columns: []Column{
			{Header: "Title", Weight: 3},
			{Header: "Budget", Align: AlignRight},
			{Header: "Active", Align: AlignCenter},
		},
		Rows: rows,
	}
}

func TestBuild_SinglePage(t *testing.T) {
	doc, err := Build(context.Background(), []TableConfig{projectTable(3)}, Options{
		Title:        "Portfolio",
		Organization: "Hope Foundation",
		GeneratedAt:  generatedAt,
		Uncompressed: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, doc.Pages)
	assert.True(t, bytes.HasPrefix(doc.Data, []byte("%PDF-")))
	assert.Contains(t, string(doc.Data), "(Page 1 of 1)")
	assert.Contains(t, string(doc.Data), "(Hope Foundation)")
	assert.Contains(t, string(doc.Data), "(PKR 3,000)")
}

func TestBuild_FooterUsesFinalPageCount(t *testing.T) {
	doc, err := Build(context.Background(), []TableConfig{projectTable(120)}, Options{
		Title:        "Portfolio",
		GeneratedAt:  generatedAt,
		Appendix:     true,
		Uncompressed: true,
	})
	require.NoError(t, err)
	require.Greater(t, doc.Pages, 2)

	text := string(doc.Data)
	for p := 1; p <= doc.Pages; p++ {
		assert.Contains(t, text, fmt.Sprintf("(Page %d of %d)", p, doc.Pages))
	}
	assert.NotContains(t, text, fmt.Sprintf("of %d)", doc.Pages-1))
	assert.Contains(t, text, "(Export Metadata)")
}

func TestBuild_Landscape(t *testing.T) {
	portrait, err := Build(context.Background(), []TableConfig{projectTable(60)}, Options{GeneratedAt: generatedAt})
	require.NoError(t, err)
	landscape, err := Build(context.Background(), []TableConfig{projectTable(60)}, Options{
		GeneratedAt: generatedAt,
		Orientation: core.Landscape,
	})
	require.NoError(t, err)

	assert.Greater(t, landscape.Pages, portrait.Pages, "landscape pages hold fewer rows")
}

func TestBuild_Summary(t *testing.T) {
	table := projectTable(2)
	table.Summary = []core.Metric{{Label: "Total budget", Value: core.Number(3000)}}

	doc, err := Build(context.Background(), []TableConfig{table}, Options{GeneratedAt: generatedAt, Uncompressed: true})
	require.NoError(t, err)
	assert.Contains(t, string(doc.Data), "(Total budget)")
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, []TableConfig{projectTable(5)}, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuild_NoColumns(t *testing.T) {
	_, err := Build(context.Background(), []TableConfig{{Title: "Empty"}}, Options{})
	assert.Error(t, err)
}

func TestBuild_Progress(t *testing.T) {
	var seen []int
	_, err := Build(context.Background(), []TableConfig{projectTable(5), projectTable(2)}, Options{
		ChunkSize: 2,
		Progress:  func(done, total int) { seen = append(seen, done*100/total) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{28, 57, 71, 100}, seen)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   core.Value
		want string
	}{
		{"null", core.Null, ""},
		{"small number", core.Number(999.5), "999.5"},
		{"threshold", core.Number(1000), "PKR 1,000"},
		{"large number", core.Number(12345.4), "PKR 12,345.4"},
		{"cents kept", core.Number(1234.56), "PKR 1,234.56"},
		{"cents rounded", core.Number(1234.567), "PKR 1,234.57"},
		{"negative large", core.Number(-2500), "PKR -2,500"},
		{"beyond int64", core.Number(1e19), "PKR 10,000,000,000,000,000,000"},
		{"true", core.Bool(true), "Yes"},
		{"false", core.Bool(false), "No"},
		{"time", core.Time(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)), "05 Mar 2024"},
		{"iso string", core.String("2024-03-05T10:00:00Z"), "05 Mar 2024"},
		{"iso date", core.String("2024-03-05"), "05 Mar 2024"},
		{"plain string", core.String("Lahore"), "Lahore"},
		{"day first string", core.String("05/03/2024"), "05/03/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "HF", Initials("Hope Foundation Trust"))
	assert.Equal(t, "E", Initials("edhi"))
	assert.Equal(t, "CSR", Initials(""))
}

type budgetAdapter struct{}

func (budgetAdapter) Derived() []core.DerivedColumn {
	return []core.DerivedColumn{{
		Column:   core.ColumnDefinition{ID: "remaining", Label: "Remaining", Type: core.ColumnCurrency},
		Requires: []string{"budget", "spent"},
		Compute: func(get func(string) core.Value) core.Value {
			return core.Difference(get("budget"), get("spent"))
		},
	}}
}

func (budgetAdapter) Summary(rs []core.Record) []core.Metric {
	return []core.Metric{{Label: "Projects counted", Value: core.Number(float64(len(rs)))}}
}

func TestRenderer(t *testing.T) {
	r, ok := core.LookupRenderer(core.FormatPDF)
	require.True(t, ok)
	assert.Equal(t, core.FormatPDF, r.Format())

	in := core.RenderInput{
		Config: core.ExportConfig{
			Format:          core.FormatPDF,
			EntityType:      core.EntityProjects,
			IncludeMetadata: true,
			Title:           "Portfolio Review",
		},
		Entity: core.EntityDefinition{Type: core.EntityProjects, Label: "Projects", Adapter: budgetAdapter{}},
		Columns: []core.ColumnDefinition{
			{ID: "title", Label: "Title", Type: core.ColumnString},
			{ID: "budget", Label: "Budget", Type: core.ColumnCurrency},
			{ID: "spent", Label: "Spent", Type: core.ColumnCurrency},
		},
		Rows: []core.Row{
			{core.String("Clean Water"), core.Number(50000), core.Number(12000)},
		},
		Organization: "Hope Foundation",
		GeneratedAt:  generatedAt,
	}

	data, err := Renderer{Uncompressed: true}.Render(context.Background(), in)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "(Portfolio Review)")
	assert.Contains(t, text, "(Remaining)")
	assert.Contains(t, text, "(PKR 38,000)")
	assert.Contains(t, text, "(Projects counted)")
	assert.Contains(t, text, "(Page 2 of 2)", "appendix page is counted")
}

func TestColumns(t *testing.T) {
	cols := Columns([]core.ColumnDefinition{
		{ID: "name", Label: "Name", Type: core.ColumnString},
		{ID: "amount", Label: "Amount", Type: core.ColumnCurrency},
		{ID: "verified", Label: "Verified", Type: core.ColumnBoolean},
	})
	require.Len(t, cols, 3)
	assert.Equal(t, 3.0, cols[0].Weight)
	assert.Equal(t, AlignRight, cols[1].Align)
	assert.Equal(t, AlignCenter, cols[2].Align)
}
