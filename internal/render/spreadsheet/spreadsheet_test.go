package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

var generatedAt = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

var raw = excelize.Options{RawCellValue: true}

func paymentSheet() SheetConfig {
	paid := core.Time(time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC))
	return SheetConfig{
		Name: "Payments",
		Columns: []Column{
			{Header: "Reference"},
			{Header: "Amount", Format: FormatCurrency},
			{Header: "Paid At", Format: FormatDate},
		},
		Rows: []core.Row{
			{core.String("P-1"), core.Number(10), paid},
			{core.String("P-2"), core.Number(20), paid},
			{core.String("P-3"), core.Number(30), paid},
		},
	}
}

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestBuild_TotalRow(t *testing.T) {
	data, err := Build(context.Background(), []SheetConfig{paymentSheet()}, Options{GeneratedAt: generatedAt})
	require.NoError(t, err)
	f := open(t, data)

	assert.Equal(t, 6, SummaryRow(3))

	formula, err := f.GetCellFormula("Payments", "B6")
	require.NoError(t, err)
	assert.Equal(t, "SUM(B2:B4)", formula)

	total, err := f.CalcCellValue("Payments", "B6", raw)
	require.NoError(t, err)
	assert.Equal(t, "60", total)

	label, err := f.GetCellValue("Payments", "A6")
	require.NoError(t, err)
	assert.Equal(t, "TOTAL", label)

	blank, err := f.GetCellValue("Payments", "A5")
	require.NoError(t, err)
	assert.Empty(t, blank)

	dateFormula, err := f.GetCellFormula("Payments", "C6")
	require.NoError(t, err)
	assert.Empty(t, dateFormula, "date columns are not summed")
}

func TestBuild_Header(t *testing.T) {
	data, err := Build(context.Background(), []SheetConfig{paymentSheet()}, Options{})
	require.NoError(t, err)
	f := open(t, data)

	for cell, want := range map[string]string{"A1": "Reference", "B1": "Amount", "C1": "Paid At"} {
		got, err := f.GetCellValue("Payments", cell)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	panes, err := f.GetPanes("Payments")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
	assert.Equal(t, "A2", panes.TopLeftCell)

	first, err := f.GetCellStyle("Payments", "A2")
	require.NoError(t, err)
	second, err := f.GetCellStyle("Payments", "A3")
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "data rows alternate fill")
}

func TestBuild_CustomSummaryFormula(t *testing.T) {
	s := paymentSheet()
	s.Columns[2].SummaryFormula = "MAX(B2:B4)"

	data, err := Build(context.Background(), []SheetConfig{s}, Options{})
	require.NoError(t, err)
	f := open(t, data)

	formula, err := f.GetCellFormula("Payments", "C6")
	require.NoError(t, err)
	assert.Equal(t, "MAX(B2:B4)", formula)

	got, err := f.CalcCellValue("Payments", "C6", raw)
	require.NoError(t, err)
	assert.Equal(t, "30", got)
}

func TestBuild_NoSummaryForEmptySheet(t *testing.T) {
	s := paymentSheet()
	s.Rows = nil

	data, err := Build(context.Background(), []SheetConfig{s}, Options{})
	require.NoError(t, err)
	f := open(t, data)

	rows, err := f.GetRows("Payments")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestBuild_Analytics(t *testing.T) {
	empty := SheetConfig{Name: "Cases", Columns: []Column{{Header: "Title"}, {Header: "Status"}}}

	data, err := Build(context.Background(), []SheetConfig{paymentSheet(), empty}, Options{
		Title:       "Quarterly",
		GeneratedAt: generatedAt,
		Analytics:   true,
	})
	require.NoError(t, err)
	f := open(t, data)

	assert.Equal(t, []string{"Payments", "Cases", "Analytics"}, f.GetSheetList())

	title, err := f.GetCellValue("Analytics", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Quarterly", title)

	count, err := f.GetCellFormula("Analytics", "B4")
	require.NoError(t, err)
	assert.Equal(t, "ROWS('Payments'!A2:A4)", count)

	total, err := f.GetCellFormula("Analytics", "B6")
	require.NoError(t, err)
	assert.Equal(t, "SUM(B4:B5)", total)

	got, err := f.CalcCellValue("Analytics", "B6", raw)
	require.NoError(t, err)
	assert.Equal(t, "3", got)
}

func TestBuild_AnalyticsCountsRowsWithBlankFirstColumn(t *testing.T) {
	contacts := SheetConfig{
		Name:    "Volunteers",
		Columns: []Column{{Header: "Email"}, {Header: "Hours"}},
		Rows: []core.Row{
			{core.Null, core.Number(4)},
			{core.String("a@x.org"), core.Number(2)},
			{core.Null, core.Number(1)},
		},
	}

	data, err := Build(context.Background(), []SheetConfig{contacts}, Options{GeneratedAt: generatedAt, Analytics: true})
	require.NoError(t, err)
	f := open(t, data)

	count, err := f.CalcCellValue("Analytics", "B4", raw)
	require.NoError(t, err)
	assert.Equal(t, "3", count)

	total, err := f.CalcCellValue("Analytics", "B5", raw)
	require.NoError(t, err)
	assert.Equal(t, "3", total)
}

func TestBuild_SummarySheet(t *testing.T) {
	data, err := Build(context.Background(), []SheetConfig{paymentSheet()}, Options{
		Summary: &SummarySheet{Name: "Summary", Metrics: []core.Metric{
			{Label: "Total payments", Value: core.Number(3)},
			{Label: "Currency", Value: core.String("PKR")},
		}},
	})
	require.NoError(t, err)
	f := open(t, data)

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Metric", "Value"}, {"Total payments", "3"}, {"Currency", "PKR"}}, rows)
}

func TestBuild_Progress(t *testing.T) {
	var seen []int
	_, err := Build(context.Background(), []SheetConfig{paymentSheet()}, Options{
		ChunkSize: 2,
		Progress:  func(done, total int) { seen = append(seen, done) },
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, seen)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Build(ctx, []SheetConfig{paymentSheet()}, Options{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(context.Background(), nil, Options{})
	assert.Error(t, err)

	_, err = Build(context.Background(), []SheetConfig{{Name: "Empty"}}, Options{})
	assert.Error(t, err)
}

func TestSummable(t *testing.T) {
	tests := []struct {
		name string
		col  Column
		rows []core.Row
		want bool
	}{
		{"numbers", Column{}, []core.Row{{core.Number(1)}, {core.Number(2)}}, true},
		{"nulls ignored", Column{}, []core.Row{{core.Null}, {core.Number(2)}}, true},
		{"all null", Column{}, []core.Row{{core.Null}}, false},
		{"mixed", Column{}, []core.Row{{core.Number(1)}, {core.String("x")}}, false},
		{"percent", Column{Format: FormatPercent}, []core.Row{{core.Number(0.5)}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summable(tt.col, tt.rows, 0))
		})
	}
}

func TestSheetNames(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Payments", "Payments"},
		{"forbidden chars", "Q1/Q2 [draft]", "Q1 Q2  draft"},
		{"blank", "  ", "Fallback"},
		{"too long", "Volunteer Opportunities And Placements", "Volunteer Opportunities And Pla"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeName(tt.in, "Fallback"))
		})
	}

	assert.Equal(t, "Payments (2)", uniqueName("Payments", []string{"payments"}))
}

type derivingAdapter struct{}

func (derivingAdapter) Derived() []core.DerivedColumn {
	return []core.DerivedColumn{{
		Column:   core.ColumnDefinition{ID: "net", Label: "Net", Type: core.ColumnCurrency},
		Requires: []string{"amount", "fee"},
		Compute: func(get func(string) core.Value) core.Value {
			return core.Difference(get("amount"), get("fee"))
		},
	}}
}

func (derivingAdapter) Summary(rs []core.Record) []core.Metric {
	return []core.Metric{{Label: "Total payments", Value: core.Number(float64(len(rs)))}}
}

func TestRenderer(t *testing.T) {
	r, ok := core.LookupRenderer(core.FormatXLSX)
	require.True(t, ok)

	in := core.RenderInput{
		Config: core.ExportConfig{Format: core.FormatXLSX, EntityType: core.EntityPayments, IncludeMetadata: true},
		Entity: core.EntityDefinition{Type: core.EntityPayments, Label: "Payments", Adapter: derivingAdapter{}},
		Columns: []core.ColumnDefinition{
			{ID: "reference", Label: "Reference", Type: core.ColumnString},
			{ID: "amount", Label: "Amount", Type: core.ColumnCurrency},
			{ID: "fee", Label: "Fee", Type: core.ColumnCurrency},
		},
		Rows: []core.Row{
			{core.String("P-1"), core.Number(1000), core.Number(25)},
			{core.String("P-2"), core.Number(500), core.Number(10)},
		},
		GeneratedAt: generatedAt,
	}

	data, err := r.Render(context.Background(), in)
	require.NoError(t, err)
	f := open(t, data)

	assert.Equal(t, []string{"Payments", "Summary", "Analytics"}, f.GetSheetList())

	header, err := f.GetCellValue("Payments", "D1")
	require.NoError(t, err)
	assert.Equal(t, "Net", header)

	net, err := f.CalcCellValue("Payments", "D5", raw)
	require.NoError(t, err)
	assert.Equal(t, "1465", net)
}

func TestRenderer_NoMetadata(t *testing.T) {
	in := core.RenderInput{
		Config:  core.ExportConfig{Format: core.FormatXLSX, EntityType: core.EntityUsers},
		Entity:  core.EntityDefinition{Type: core.EntityUsers, Label: "Users"},
		Columns: []core.ColumnDefinition{{ID: "name", Label: "Name", Type: core.ColumnString}},
		Rows:    []core.Row{{core.String("Ayesha")}},
	}

	data, err := Renderer{}.Render(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, []string{"Users"}, open(t, data).GetSheetList())
}
