package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// stringList decodes either a JSON array of strings or a single comma
// separated string.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}
	var arr []string
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = splitList(arr)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected string list, got %s", data)
	}
	*l = splitList([]string{s})
	return nil
}

// firstText returns the first non-empty text among aliased source fields.
func firstText(fields ...core.Loose) string {
	for _, f := range fields {
		if t := f.Text(); t != "" {
			return t
		}
	}
	return ""
}

// firstAmount returns the first parseable amount among aliased source fields.
func firstAmount(fields ...core.Loose) *float64 {
	for _, f := range fields {
		if a := f.Amount(); a != nil {
			return a
		}
	}
	return nil
}

// firstDate returns the first parseable date among aliased source fields.
func firstDate(fields ...core.Loose) time.Time {
	for _, f := range fields {
		if d := f.Date(); !d.IsZero() {
			return d
		}
	}
	return time.Time{}
}

// firstList returns the first non-empty list among aliased source fields.
func firstList(lists ...stringList) stringList {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

// decode unmarshals one source object and reports which entity failed.
func decode(entity core.EntityType, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s record: %w", entity, err)
	}
	return nil
}

// joined renders a list field as one cell.
func joined(items []string) core.Value {
	if len(items) == 0 {
		return core.Null
	}
	return core.String(strings.Join(items, ", "))
}

// adapter is a table-driven core.Adapter.
type adapter struct {
	derived []core.DerivedColumn
	summary func(records []core.Record) []core.Metric
}

func (a adapter) Derived() []core.DerivedColumn { return a.derived }

func (a adapter) Summary(records []core.Record) []core.Metric {
	if a.summary == nil {
		return core.NoAdapter{}.Summary(records)
	}
	return a.summary(records)
}

func count(label string, n int) core.Metric {
	return core.Metric{Label: label, Value: core.Number(float64(n))}
}

func sum(label string, records []core.Record, field string) core.Metric {
	return core.Metric{Label: label, Value: core.Number(core.SumField(records, field))}
}

func average(label string, records []core.Record, field string) core.Metric {
	return core.Metric{Label: label, Value: core.AverageField(records, field)}
}

// difference declares a derived column computed as a minus b.
func difference(id, label, a, b string, t core.ColumnType) core.DerivedColumn {
	return core.DerivedColumn{
		Column:   core.ColumnDefinition{ID: id, Label: label, Field: id, Type: t},
		Requires: []string{a, b},
		Compute: func(get func(string) core.Value) core.Value {
			return core.Difference(get(a), get(b))
		},
	}
}

// rawRef is a nested reference object such as {"ngo": {"name": "..."}}.
type rawRef struct {
	ID   core.Loose `json:"id"`
	Name core.Loose `json:"name"`
}
