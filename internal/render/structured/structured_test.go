package structured

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

var exportedAt = time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

func testColumns() []core.ColumnDefinition {
	return []core.ColumnDefinition{
		{ID: "name", Label: "Name", Field: "name", Type: core.ColumnString},
		{ID: "amount", Label: "Amount", Field: "amount", Type: core.ColumnCurrency},
		{ID: "verified", Label: "Verified", Field: "verified", Type: core.ColumnBoolean},
		{ID: "note", Label: "Note", Field: "note", Type: core.ColumnString},
	}
}

func TestEncode_EnvelopeShape(t *testing.T) {
	cfg := core.ExportConfig{
		Format:     core.FormatJSON,
		EntityType: core.EntityPayments,
		Filters:    &core.Filters{Status: []string{"completed"}},
	}
	rows := []core.Row{
		{core.String("Zakat Fund"), core.Number(1500.5), core.Bool(true), core.Null},
	}

	data, err := Encode(cfg, testColumns(), rows, exportedAt)
	require.NoError(t, err)

	text := string(data)
	assert.True(t, strings.HasPrefix(text, "{\n  \"metadata\": {\n    \"exportedAt\": \"2024-05-10T08:00:00Z\""), text)
	assert.Contains(t, text, `"rowCount": 1`)
	assert.Contains(t, text, `"entityType": "payments"`)

	var generic map[string]any
	require.NoError(t, json.Unmarshal(data, &generic))
	meta := generic["metadata"].(map[string]any)
	assert.Equal(t, "json", meta["format"])
	assert.Equal(t, []any{"name", "amount", "verified", "note"}, meta["columns"])
	assert.Nil(t, meta["dateRange"])
}

func TestEncode_KeysKeepProjectionOrder(t *testing.T) {
	rows := []core.Row{{core.String("A"), core.Number(1), core.Bool(false), core.String("x")}}
	data, err := Encode(core.ExportConfig{EntityType: core.EntityPayments}, testColumns(), rows, exportedAt)
	require.NoError(t, err)

	text := string(data)
	order := []string{`"name"`, `"amount"`, `"verified"`, `"note"`}
	dataStart := strings.Index(text, `"data"`)
	last := dataStart
	for _, k := range order {
		i := strings.Index(text[dataStart:], k) + dataStart
		assert.Greater(t, i, last, "key %s out of order", k)
		last = i
	}
}

func TestRoundTrip(t *testing.T) {
	columns := testColumns()
	rows := []core.Row{
		{core.String(`quote " and, comma`), core.Number(-12.75), core.Bool(true), core.Null},
		{core.String("ٹرسٹ"), core.Number(0), core.Bool(false), core.String("")},
	}

	data, err := Encode(core.ExportConfig{EntityType: core.EntityNGOs}, columns, rows, exportedAt)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 2, env.Metadata.RowCount)
	assert.True(t, env.Metadata.ExportedAt.Equal(exportedAt))
	require.Len(t, env.Data, 2)

	for i, row := range rows {
		obj := env.Data[i]
		assert.Equal(t, []string{"name", "amount", "verified", "note"}, obj.Keys)
		for j, want := range row {
			assert.True(t, want.Equal(obj.Values[j]), "row %d col %d: want %v got %v", i, j, want, obj.Values[j])
		}
	}
}

func TestEncode_EmptyDataIsArray(t *testing.T) {
	data, err := Encode(core.ExportConfig{EntityType: core.EntityUsers}, testColumns(), nil, exportedAt)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"data": []`)
}

type stubAdapter struct{}

func (stubAdapter) Derived() []core.DerivedColumn { return nil }
func (stubAdapter) Summary(rs []core.Record) []core.Metric {
	return []core.Metric{{Label: "Total", Value: core.Number(float64(len(rs)))}}
}

func TestRenderer_SummaryWithMetadata(t *testing.T) {
	in := core.RenderInput{
		Config:      core.ExportConfig{Format: core.FormatJSON, EntityType: core.EntityPayments, IncludeMetadata: true},
		Entity:      core.EntityDefinition{Type: core.EntityPayments, Label: "Payments", Adapter: stubAdapter{}},
		Columns:     testColumns()[:1],
		Rows:        []core.Row{{core.String("a")}, {core.String("b")}},
		GeneratedAt: exportedAt,
		ChunkSize:   1,
	}

	data, err := Renderer{}.Render(context.Background(), in)
	require.NoError(t, err)

	env, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "Payments Report", env.Metadata.Title)
	require.Len(t, env.Metadata.Summary, 1)
	assert.Equal(t, 0.0, env.Metadata.Summary[0].Value.Num())
	assert.Len(t, env.Data, 2)
}
