package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProjectConfig() ExportConfig {
	return ExportConfig{
		Format:         FormatCSV,
		EntityType:     EntityProjects,
		IncludeColumns: []string{"title", "budget"},
	}
}

func TestRequestValidator(t *testing.T) {
	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := later.AddDate(0, -1, 0)

	tests := []struct {
		name   string
		job    string
		mutate func(*ExportConfig)
		fields []string
	}{
		{name: "valid", job: "Projects", mutate: func(*ExportConfig) {}},
		{name: "missing name", job: "  ", mutate: func(*ExportConfig) {}, fields: []string{"name"}},
		{name: "unsupported format", job: "x", mutate: func(c *ExportConfig) { c.Format = "docx" }, fields: []string{"format"}},
		{name: "empty format", job: "x", mutate: func(c *ExportConfig) { c.Format = "" }, fields: []string{"format"}},
		{name: "unknown entity type", job: "x", mutate: func(c *ExportConfig) { c.EntityType = "donors" }, fields: []string{"entityType"}},
		{name: "known but unregistered entity", job: "x", mutate: func(c *ExportConfig) { c.EntityType = EntityPayments }, fields: []string{"entityType"}},
		{name: "no columns", job: "x", mutate: func(c *ExportConfig) { c.IncludeColumns = nil }, fields: []string{"includeColumns"}},
		{name: "blank columns only", job: "x", mutate: func(c *ExportConfig) { c.IncludeColumns = []string{" "} }, fields: []string{"includeColumns"}},
		{name: "unknown column", job: "x", mutate: func(c *ExportConfig) { c.IncludeColumns = []string{"title", "donor"} }, fields: []string{"includeColumns"}},
		{name: "unknown sort column", job: "x", mutate: func(c *ExportConfig) { c.SortBy = "donor" }, fields: []string{"sortBy"}},
		{name: "bad sort order", job: "x", mutate: func(c *ExportConfig) { c.SortOrder = "up" }, fields: []string{"sortOrder"}},
		{name: "negative max rows", job: "x", mutate: func(c *ExportConfig) { c.MaxRows = -1 }, fields: []string{"maxRows"}},
		{name: "bad orientation", job: "x", mutate: func(c *ExportConfig) { c.Orientation = "sideways" }, fields: []string{"orientation"}},
		{name: "inverted amount range", job: "x", mutate: func(c *ExportConfig) {
			c.Filters = &Filters{AmountMin: ptr(10), AmountMax: ptr(5)}
		}, fields: []string{"filters"}},
		{name: "inverted date range", job: "x", mutate: func(c *ExportConfig) {
			c.DateRange = &DateRange{Start: &later, End: &earlier}
		}, fields: []string{"dateRange"}},
		{name: "unbound filter dimensions", job: "x", mutate: func(c *ExportConfig) {
			c.EntityType = EntityCases
			c.IncludeColumns = []string{"title"}
			c.Filters = &Filters{Location: []string{"Lahore"}}
		}, fields: []string{"filters"}},
		{name: "bound dimension on a narrow entity", job: "x", mutate: func(c *ExportConfig) {
			c.EntityType = EntityCases
			c.IncludeColumns = []string{"title"}
			c.Filters = &Filters{Status: []string{"open"}}
		}},
		{name: "several problems reported together", job: "", mutate: func(c *ExportConfig) {
			c.Format = "docx"
			c.IncludeColumns = nil
		}, fields: []string{"name", "format", "includeColumns"}},
	}

	v := NewRequestValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validProjectConfig()
			tt.mutate(&cfg)

			err := v.Validate(tt.job, cfg)
			if len(tt.fields) == 0 {
				require.NoError(t, err)
				return
			}

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs), "want ValidationErrors, got %v", err)
			for _, f := range tt.fields {
				assert.True(t, verrs.Has(f), "missing error for %s in %v", f, verrs)
			}
		})
	}
}

func TestExportConfig_Columns(t *testing.T) {
	cfg := ExportConfig{IncludeColumns: []string{"title", " budget ", "", "title", "status"}}
	assert.Equal(t, []string{"title", "budget", "status"}, cfg.Columns())
}

func TestRequestValidator_UnboundDimensions(t *testing.T) {
	apply := func(f *Filters) error {
		return NewRequestValidator().Validate("x", ExportConfig{
			Format:         FormatCSV,
			EntityType:     EntityCases,
			IncludeColumns: []string{"title"},
			Filters:        f,
		})
	}

	tests := []struct {
		name    string
		filters *Filters
		dim     string
	}{
		{"category", &Filters{Category: []string{"health"}}, "category"},
		{"location", &Filters{Location: []string{"Lahore"}}, "location"},
		{"tags", &Filters{Tags: []string{"urgent"}}, "tags"},
		{"amount min", &Filters{AmountMin: ptr(10)}, "amount"},
		{"amount max", &Filters{AmountMax: ptr(10)}, "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := apply(tt.filters)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, "filters", verrs[0].Field)
			assert.Contains(t, verrs[0].Message, "cases cannot be filtered by "+tt.dim)
		})
	}

	assert.NoError(t, apply(&Filters{Status: []string{"open"}}))
}
