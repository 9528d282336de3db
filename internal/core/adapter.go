package core

import (
	"fmt"
	"sort"
	"strings"
)

// DerivedColumn is a computed column an entity adapter can append to a sheet
// or table. It is added only when every column in Requires is projected.
type DerivedColumn struct {
	Column   ColumnDefinition
	Requires []string
	// Compute receives a lookup over the projected row by column id.
	Compute func(get func(id string) Value) Value
}

// Metric is one precomputed label/value pair for summary sheets and blocks.
type Metric struct {
	Label string `json:"label"`
	Value Value  `json:"value"`
}

// Adapter translates typed records of one entity into builder-ready shapes.
type Adapter interface {
	// Derived lists computed columns for the entity.
	Derived() []DerivedColumn
	// Summary precomputes aggregate metrics (counts, sums, averages).
	Summary(records []Record) []Metric
}

// NoAdapter derives nothing and summarizes only the record count.
type NoAdapter struct{}

func (NoAdapter) Derived() []DerivedColumn { return nil }

func (NoAdapter) Summary(records []Record) []Metric {
	return []Metric{{Label: "Total records", Value: Number(float64(len(records)))}}
}

// ApplyDerived appends the adapter's derived columns whose inputs are all
// present in columns. The input slices are not modified.
func ApplyDerived(a Adapter, columns []ColumnDefinition, rows []Row) ([]ColumnDefinition, []Row) {
	if a == nil {
		return columns, rows
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		index[c.ID] = i
	}

	var active []DerivedColumn
	for _, d := range a.Derived() {
		if _, dup := index[d.Column.ID]; dup {
			continue
		}
		ok := true
		for _, req := range d.Requires {
			if _, found := index[req]; !found {
				ok = false
				break
			}
		}
		if ok {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return columns, rows
	}

	outCols := make([]ColumnDefinition, 0, len(columns)+len(active))
	outCols = append(outCols, columns...)
	for _, d := range active {
		outCols = append(outCols, d.Column)
	}

	outRows := make([]Row, len(rows))
	for i, row := range rows {
		get := func(id string) Value {
			if pos, ok := index[id]; ok && pos < len(row) {
				return row[pos]
			}
			return Null
		}
		r := make(Row, 0, len(outCols))
		r = append(r, row...)
		for _, d := range active {
			r = append(r, d.Compute(get))
		}
		outRows[i] = r
	}
	return outCols, outRows
}

// Difference returns a-b when both are numbers, otherwise Null.
func Difference(a, b Value) Value {
	if !a.IsNumber() || !b.IsNumber() {
		return Null
	}
	return Number(a.Num() - b.Num())
}

// CountRecords is the "Total <label>" metric.
func CountRecords(label string, records []Record) Metric {
	return Metric{Label: "Total " + label, Value: Number(float64(len(records)))}
}

// SumField sums a numeric field across records, skipping non-numbers.
func SumField(records []Record, field string) float64 {
	var total float64
	for _, r := range records {
		if v := r.Field(field); v.IsNumber() {
			total += v.Num()
		}
	}
	return total
}

// AverageField averages a numeric field across records that have it.
// Returns Null when no record has a number.
func AverageField(records []Record, field string) Value {
	var total float64
	var n int
	for _, r := range records {
		if v := r.Field(field); v.IsNumber() {
			total += v.Num()
			n++
		}
	}
	if n == 0 {
		return Null
	}
	return Number(total / float64(n))
}

// CountWhere counts records whose field equals value, case-insensitively.
func CountWhere(records []Record, field, value string) int {
	n := 0
	for _, r := range records {
		if strings.EqualFold(r.Field(field).Text(), value) {
			n++
		}
	}
	return n
}

// CountByField returns one metric per distinct value of field, sorted by label.
func CountByField(records []Record, field, prefix string) []Metric {
	counts := make(map[string]int)
	for _, r := range records {
		key := r.Field(field).Text()
		if key == "" {
			key = "unspecified"
		}
		counts[key]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Metric, 0, len(keys))
	for _, k := range keys {
		out = append(out, Metric{
			Label: fmt.Sprintf("%s: %s", prefix, k),
			Value: Number(float64(counts[k])),
		})
	}
	return out
}
