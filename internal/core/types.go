// Package core provides the business logic for export and report generation.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Format identifies an output document format.
type Format string

const (
	FormatCSV  Format = "csv"  // delimited text
	FormatXLSX Format = "xlsx" // spreadsheet with formulas
	FormatPDF  Format = "pdf"  // paginated document
	FormatJSON Format = "json" // structured text
)

// Formats lists every supported format in display order.
var Formats = []Format{FormatCSV, FormatXLSX, FormatPDF, FormatJSON}

// Extension returns the file extension used for the format.
func (f Format) Extension() string {
	return string(f)
}

// MIMEType returns the content type handed to the download trigger.
func (f Format) MIMEType() string {
	switch f {
	case FormatCSV:
		return "text/csv;charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	case FormatJSON:
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Valid reports whether f is one of the supported formats.
func (f Format) Valid() bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// EntityType is the closed set of record categories that can be exported.
type EntityType string

const (
	EntityProjects      EntityType = "projects"
	EntityNGOs          EntityType = "ngos"
	EntityVolunteers    EntityType = "volunteers"
	EntityOpportunities EntityType = "opportunities"
	EntityPayments      EntityType = "payments"
	EntityAuditLogs     EntityType = "audit_logs"
	EntityCases         EntityType = "cases"
	EntityUsers         EntityType = "users"
)

// EntityTypes lists every entity type in display order.
var EntityTypes = []EntityType{
	EntityProjects, EntityNGOs, EntityVolunteers, EntityOpportunities,
	EntityPayments, EntityAuditLogs, EntityCases, EntityUsers,
}

// Valid reports whether e is a known entity type.
func (e EntityType) Valid() bool {
	for _, known := range EntityTypes {
		if e == known {
			return true
		}
	}
	return false
}

// ColumnType is the semantic type of a column, used to pick formatting.
type ColumnType string

const (
	ColumnString   ColumnType = "string"
	ColumnNumber   ColumnType = "number"
	ColumnDate     ColumnType = "date"
	ColumnCurrency ColumnType = "currency"
	ColumnBoolean  ColumnType = "boolean"
)

// Numeric reports whether values of this type take part in sums.
func (t ColumnType) Numeric() bool {
	return t == ColumnNumber || t == ColumnCurrency
}

// ColumnDefinition is one catalog entry for an entity type.
type ColumnDefinition struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Field    string     `json:"field"`
	Type     ColumnType `json:"type"`
	Required bool       `json:"required"`
}

// SortOrder selects ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Orientation selects the page orientation of paginated documents.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// DatePreset names a relative date range.
type DatePreset string

const (
	PresetToday      DatePreset = "today"
	PresetLast7Days  DatePreset = "last_7_days"
	PresetLast30Days DatePreset = "last_30_days"
	PresetThisMonth  DatePreset = "this_month"
	PresetLastMonth  DatePreset = "last_month"
	PresetThisYear   DatePreset = "this_year"
	PresetCustom     DatePreset = "custom"
)

// DateRange restricts records by their canonical timestamp, inclusive.
type DateRange struct {
	Start  *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End    *time.Time `json:"end,omitempty" yaml:"end,omitempty"`
	Preset DatePreset `json:"preset,omitempty" yaml:"preset,omitempty" validate:"omitempty,oneof=today last_7_days last_30_days this_month last_month this_year custom"`
}

// Clone returns a deep copy of d.
func (d *DateRange) Clone() *DateRange {
	if d == nil {
		return nil
	}
	c := &DateRange{Preset: d.Preset}
	if d.Start != nil {
		start := *d.Start
		c.Start = &start
	}
	if d.End != nil {
		end := *d.End
		c.End = &end
	}
	return c
}

// Resolve returns the concrete bounds of the range relative to now.
// Explicit Start/End take precedence over the preset.
func (d DateRange) Resolve(now time.Time) (start, end time.Time) {
	if d.Start != nil {
		start = *d.Start
	}
	if d.End != nil {
		end = *d.End
	}
	if d.Start != nil || d.End != nil {
		return start, end
	}

	y, m, day := now.Date()
	loc := now.Location()
	today := time.Date(y, m, day, 0, 0, 0, 0, loc)
	endOfDay := today.Add(24*time.Hour - time.Nanosecond)

	switch d.Preset {
	case PresetToday:
		return today, endOfDay
	case PresetLast7Days:
		return today.AddDate(0, 0, -6), endOfDay
	case PresetLast30Days:
		return today.AddDate(0, 0, -29), endOfDay
	case PresetThisMonth:
		first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return first, endOfDay
	case PresetLastMonth:
		first := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return first.AddDate(0, -1, 0), first.Add(-time.Nanosecond)
	case PresetThisYear:
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc), endOfDay
	}
	return time.Time{}, time.Time{}
}

// Active reports whether the range restricts anything.
func (d *DateRange) Active() bool {
	if d == nil {
		return false
	}
	return d.Start != nil || d.End != nil || (d.Preset != "" && d.Preset != PresetCustom)
}

// Filters holds every optional filter dimension.
// Dimensions combine with AND; values within a dimension combine with OR.
type Filters struct {
	Status    []string `json:"status,omitempty" yaml:"status,omitempty"`
	Category  []string `json:"category,omitempty" yaml:"category,omitempty"`
	Tags      []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Location  []string `json:"location,omitempty" yaml:"location,omitempty"`
	AmountMin *float64 `json:"amountMin,omitempty" yaml:"amountMin,omitempty"`
	AmountMax *float64 `json:"amountMax,omitempty" yaml:"amountMax,omitempty"`
}

// Clone returns a deep copy of f.
func (f *Filters) Clone() *Filters {
	if f == nil {
		return nil
	}
	return &Filters{
		Status:    slices.Clone(f.Status),
		Category:  slices.Clone(f.Category),
		Tags:      slices.Clone(f.Tags),
		Location:  slices.Clone(f.Location),
		AmountMin: cloneFloat(f.AmountMin),
		AmountMax: cloneFloat(f.AmountMax),
	}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

// Empty reports whether no dimension is active.
func (f *Filters) Empty() bool {
	if f == nil {
		return true
	}
	return len(f.Status) == 0 && len(f.Category) == 0 && len(f.Tags) == 0 &&
		len(f.Location) == 0 && f.AmountMin == nil && f.AmountMax == nil
}

// ExportConfig is the input contract of an export.
type ExportConfig struct {
	Format          Format      `json:"format" yaml:"format" validate:"export_format"`
	EntityType      EntityType  `json:"entityType" yaml:"entityType" validate:"entity_type"`
	IncludeColumns  []string    `json:"includeColumns" yaml:"includeColumns" validate:"required,min=1,dive,required"`
	Filters         *Filters    `json:"filters,omitempty" yaml:"filters,omitempty"`
	DateRange       *DateRange  `json:"dateRange,omitempty" yaml:"dateRange,omitempty"`
	SortBy          string      `json:"sortBy,omitempty" yaml:"sortBy,omitempty"`
	SortOrder       SortOrder   `json:"sortOrder,omitempty" yaml:"sortOrder,omitempty" validate:"omitempty,oneof=asc desc"`
	MaxRows         int         `json:"maxRows,omitempty" yaml:"maxRows,omitempty" validate:"gte=0"`
	IncludeMetadata bool        `json:"includeMetadata" yaml:"includeMetadata"`
	Orientation     Orientation `json:"orientation,omitempty" yaml:"orientation,omitempty" validate:"omitempty,oneof=portrait landscape"`
	Title           string      `json:"title,omitempty" yaml:"title,omitempty"`
}

// Clone returns a copy of c that shares no slices or pointers with it.
func (c ExportConfig) Clone() ExportConfig {
	c.IncludeColumns = slices.Clone(c.IncludeColumns)
	c.Filters = c.Filters.Clone()
	c.DateRange = c.DateRange.Clone()
	return c
}

// Columns returns IncludeColumns with duplicates removed, keeping the first
// occurrence of each key.
func (c ExportConfig) Columns() []string {
	seen := make(map[string]bool, len(c.IncludeColumns))
	out := make([]string, 0, len(c.IncludeColumns))
	for _, col := range c.IncludeColumns {
		col = strings.TrimSpace(col)
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		out = append(out, col)
	}
	return out
}

// Record is one typed entity instance. Each entity type has its own struct;
// render logic reads fields only through this interface.
type Record interface {
	Entity() EntityType
	// Field returns the value of a source field, or Null for unknown fields.
	Field(name string) Value
	// Tags returns the record's tags, if the entity has any.
	Tags() []string
	// Timestamp returns the canonical timestamp used by date-range filters.
	Timestamp() time.Time
}

// Row is one projected record, aligned with the projected columns.
type Row []Value

// RecordProvider supplies raw records for an entity type.
type RecordProvider interface {
	Records(ctx context.Context, entity EntityType) ([]Record, error)
}

// Artifact is a rendered document ready for download.
type Artifact struct {
	Data     []byte
	Filename string
	MIMEType string
}

// Downloader hands artifacts to the host environment's save mechanism.
type Downloader interface {
	Download(ctx context.Context, a Artifact) error
}

// Notifier surfaces settled jobs to the user.
type Notifier interface {
	JobCompleted(ctx context.Context, job ExportJob)
	JobFailed(ctx context.Context, job ExportJob)
}

// ReportTemplate maps a human label to a partial export configuration.
type ReportTemplate struct {
	ID          string       `json:"id" yaml:"id"`
	Label       string       `json:"label" yaml:"label"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Config      ExportConfig `json:"config" yaml:"config"`
}
