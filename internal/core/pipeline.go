package core

// pipeline.go transforms an in-memory record set into projected rows.
//
// The stages always run in this order:
//  1. Filter: AND across dimensions, OR within a dimension
//  2. Sort: stable, locale-aware for string columns
//  3. Cap: keep the first MaxRows records after sorting
//  4. Project: exactly the requested columns, in request order
//
// None of the stages can fail on a validated config.

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Pipeline applies filters, sorting, row caps and projection.
type Pipeline struct {
	lang language.Tag
	now  func() time.Time
}

// NewPipeline creates a pipeline collating strings in the given language.
// Unparseable tags fall back to English.
func NewPipeline(lang string, now func() time.Time) *Pipeline {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	if now == nil {
		now = time.Now
	}
	return &Pipeline{lang: tag, now: now}
}

// Result is the output of Transform.
type Result struct {
	// Records are the filtered, sorted and capped source records.
	Records []Record
	// Columns are the projected column definitions in request order.
	Columns []ColumnDefinition
	// Rows are the projected values, aligned with Columns.
	Rows []Row
}

// Transform runs every stage against records for the given entity.
func (p *Pipeline) Transform(def EntityDefinition, records []Record, cfg ExportConfig) Result {
	kept := p.Filter(def, records, cfg)
	p.Sort(def, kept, cfg.SortBy, cfg.SortOrder)
	if cfg.MaxRows > 0 && len(kept) > cfg.MaxRows {
		kept = kept[:cfg.MaxRows]
	}
	cols := ProjectColumns(def, cfg.Columns())
	return Result{
		Records: kept,
		Columns: cols,
		Rows:    Project(kept, cols),
	}
}

// Filter returns the records that satisfy every active filter dimension.
// The input slice is not modified.
func (p *Pipeline) Filter(def EntityDefinition, records []Record, cfg ExportConfig) []Record {
	f := cfg.Filters
	dateActive := cfg.DateRange.Active()
	var start, end time.Time
	if dateActive {
		start, end = cfg.DateRange.Resolve(p.now())
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		if !f.Empty() && !matchFilters(def.Filters, f, r) {
			continue
		}
		if dateActive && !inRange(r.Timestamp(), start, end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func matchFilters(b FilterBindings, f *Filters, r Record) bool {
	if len(f.Status) > 0 && (b.Status == "" || !matchAny(r.Field(b.Status).Text(), f.Status)) {
		return false
	}
	if len(f.Category) > 0 && (b.Category == "" || !matchAny(r.Field(b.Category).Text(), f.Category)) {
		return false
	}
	if len(f.Location) > 0 && (b.Location == "" || !matchAny(r.Field(b.Location).Text(), f.Location)) {
		return false
	}
	if len(f.Tags) > 0 && (b.Tags == "" || !matchTags(r.Tags(), f.Tags)) {
		return false
	}
	if f.AmountMin != nil || f.AmountMax != nil {
		if b.Amount == "" {
			return false
		}
		v := r.Field(b.Amount)
		if !v.IsNumber() {
			return false
		}
		if f.AmountMin != nil && v.Num() < *f.AmountMin {
			return false
		}
		if f.AmountMax != nil && v.Num() > *f.AmountMax {
			return false
		}
	}
	return true
}

func matchAny(value string, wanted []string) bool {
	for _, w := range wanted {
		if strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(w)) {
			return true
		}
	}
	return false
}

func matchTags(have, wanted []string) bool {
	for _, h := range have {
		if matchAny(h, wanted) {
			return true
		}
	}
	return false
}

func inRange(t, start, end time.Time) bool {
	if t.IsZero() {
		return false
	}
	if !start.IsZero() && t.Before(start) {
		return false
	}
	if !end.IsZero() && t.After(end) {
		return false
	}
	return true
}

// Sort orders records in place by the column sortBy. An empty sortBy keeps
// input order. Nulls sort after every value in ascending order.
func (p *Pipeline) Sort(def EntityDefinition, records []Record, sortBy string, order SortOrder) {
	if sortBy == "" {
		return
	}
	field, colType := sortBy, ColumnString
	if col, ok := def.Column(sortBy); ok {
		field, colType = col.Field, col.Type
	}

	// A collator is not safe for concurrent use, so each sort gets its own.
	coll := collate.New(p.lang)
	desc := order == SortDesc

	sort.SliceStable(records, func(i, j int) bool {
		c := compareValues(coll, colType, records[i].Field(field), records[j].Field(field))
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(coll *collate.Collator, t ColumnType, a, b Value) int {
	switch {
	case a.IsNull() && b.IsNull():
		return 0
	case a.IsNull():
		return 1
	case b.IsNull():
		return -1
	}

	if a.Kind() == b.Kind() {
		switch a.Kind() {
		case KindNumber:
			return cmpFloat(a.Num(), b.Num())
		case KindTime:
			return a.TimeValue().Compare(b.TimeValue())
		case KindBool:
			return cmpBool(a.Boolean(), b.Boolean())
		}
	}
	if t == ColumnString || a.Kind() == KindString || b.Kind() == KindString {
		return coll.CompareString(a.Text(), b.Text())
	}
	return strings.Compare(a.Text(), b.Text())
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

// ProjectColumns resolves column ids against the entity catalog. Ids without
// a catalog entry are kept as string columns reading the field of that name.
func ProjectColumns(def EntityDefinition, ids []string) []ColumnDefinition {
	cols := make([]ColumnDefinition, 0, len(ids))
	for _, id := range ids {
		if col, ok := def.Column(id); ok {
			cols = append(cols, col)
			continue
		}
		cols = append(cols, ColumnDefinition{ID: id, Label: id, Field: id, Type: ColumnString})
	}
	return cols
}

// Project builds one row per record containing exactly the given columns.
func Project(records []Record, cols []ColumnDefinition) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		row := make(Row, len(cols))
		for j, c := range cols {
			row[j] = r.Field(c.Field)
		}
		rows[i] = row
	}
	return rows
}

// ProjectRows re-projects already projected rows onto keep, by column id.
// Projecting twice with the same columns yields the same rows.
func ProjectRows(cols []ColumnDefinition, rows []Row, keep []string) ([]ColumnDefinition, []Row) {
	index := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, dup := index[c.ID]; !dup {
			index[c.ID] = i
		}
	}

	outCols := make([]ColumnDefinition, 0, len(keep))
	positions := make([]int, 0, len(keep))
	for _, id := range keep {
		pos, ok := index[id]
		if !ok {
			continue
		}
		outCols = append(outCols, cols[pos])
		positions = append(positions, pos)
	}

	outRows := make([]Row, len(rows))
	for i, row := range rows {
		r := make(Row, len(positions))
		for j, pos := range positions {
			if pos < len(row) {
				r[j] = row[pos]
			}
		}
		outRows[i] = r
	}
	return outCols, outRows
}
