// Package spreadsheet builds xlsx workbooks with live summary formulas.
//
// Every data sheet has the same layout:
//
//	row 1            header (bold, filled, bordered, frozen, auto-filtered)
//	rows 2..n+1      data, alternating fill by row parity
//	row n+2          blank separator
//	row n+3          TOTAL row: SUM(<col>2:<col>n+1) for numeric columns
//
// An optional analytics sheet counts the records of every data sheet with
// ROWS formulas over the data range and totals them. Blank cells in the
// first column do not change the count.
package spreadsheet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/CSRExport/internal/core"
	"github.com/JonMunkholm/CSRExport/internal/render/cellref"
)

// NumberFormat selects how a column's numbers are displayed.
type NumberFormat string

const (
	FormatGeneral  NumberFormat = ""
	FormatCurrency NumberFormat = "currency"
	FormatDate     NumberFormat = "date"
	FormatPercent  NumberFormat = "percent"
)

// Custom number format codes.
const (
	currencyFormat = `"PKR "#,##0.00`
	dateFormat     = "dd/mm/yyyy"
	percentFormat  = "0.00%"
)

// Layout constants.
const (
	headerRow       = 1
	firstDataRow    = 2
	defaultWidth    = 14
	maxWidth        = 50
	sheetNameLimit  = 31
	summaryLabel    = "TOTAL"
	analyticsSheet  = "Analytics"
	defaultChunk    = core.DefaultChunkSize
	headerFillColor = "1F4E78"
	stripeColor     = "F2F6FA"
	borderColor     = "BFBFBF"
)

// Column declares one sheet column.
type Column struct {
	Header string
	Width  float64
	Format NumberFormat
	// SummaryFormula, if set, is written verbatim into the TOTAL row
	// instead of the default SUM. It has no leading '='.
	SummaryFormula string
}

// SheetConfig describes one data sheet. It is consumed once by Build.
type SheetConfig struct {
	Name    string
	Columns []Column
	Rows    []core.Row
	// NoSummary suppresses the blank separator and TOTAL row.
	NoSummary bool
}

// SummarySheet is a two-column label/value sheet of precomputed literals.
type SummarySheet struct {
	Name    string
	Metrics []core.Metric
}

// Options control workbook-level features.
type Options struct {
	Title       string
	Author      string
	GeneratedAt time.Time
	// Analytics adds the per-sheet record count sheet.
	Analytics bool
	Summary   *SummarySheet
	ChunkSize int
	Progress  func(done, total int)
}

// FirstDataRow returns the sheet row of the first data row.
func FirstDataRow() int { return firstDataRow }

// LastDataRow returns the sheet row of the last data row for n rows.
func LastDataRow(n int) int { return firstDataRow + n - 1 }

// SummaryRow returns the sheet row of the TOTAL row for n data rows.
func SummaryRow(n int) int { return LastDataRow(n) + 2 }

// Build renders sheets into an xlsx document.
func Build(ctx context.Context, sheets []SheetConfig, opts Options) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("spreadsheet: no sheets")
	}
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	f := excelize.NewFile()
	defer f.Close()

	b := &builder{f: f, opts: opts}
	for _, s := range sheets {
		b.total += len(s.Rows)
	}
	if err := b.initStyles(); err != nil {
		return nil, err
	}

	names := uniqueNames(sheets)
	for i, s := range sheets {
		if err := b.addSheet(i, names[i]); err != nil {
			return nil, err
		}
		if err := b.writeSheet(ctx, names[i], s); err != nil {
			return nil, err
		}
	}
	if opts.Summary != nil {
		if err := b.writeSummarySheet(*opts.Summary, names); err != nil {
			return nil, err
		}
	}
	if opts.Analytics {
		if err := b.writeAnalytics(sheets, names); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   opts.Title,
		Creator: opts.Author,
		Created: opts.GeneratedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("set document properties: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type builder struct {
	f     *excelize.File
	opts  Options
	total int
	done  int

	header int
	title  int
	label  int
	// cell styles by format, indexed [striped]
	cells map[NumberFormat][2]int
	// summary row styles by format
	totals map[NumberFormat]int
}

var formats = []NumberFormat{FormatGeneral, FormatCurrency, FormatDate, FormatPercent}

func numFmt(f NumberFormat) *string {
	var code string
	switch f {
	case FormatCurrency:
		code = currencyFormat
	case FormatDate:
		code = dateFormat
	case FormatPercent:
		code = percentFormat
	default:
		return nil
	}
	return &code
}

func thinBorder() []excelize.Border {
	sides := []string{"left", "top", "right", "bottom"}
	out := make([]excelize.Border, len(sides))
	for i, s := range sides {
		out[i] = excelize.Border{Type: s, Color: borderColor, Style: 1}
	}
	return out
}

func (b *builder) initStyles() error {
	var err error
	b.header, err = b.f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
		Border:    thinBorder(),
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	b.cells = make(map[NumberFormat][2]int, len(formats))
	b.totals = make(map[NumberFormat]int, len(formats))
	for _, nf := range formats {
		plain, err := b.f.NewStyle(&excelize.Style{Border: thinBorder(), CustomNumFmt: numFmt(nf)})
		if err != nil {
			return fmt.Errorf("cell style: %w", err)
		}
		striped, err := b.f.NewStyle(&excelize.Style{
			Border:       thinBorder(),
			Fill:         excelize.Fill{Type: "pattern", Color: []string{stripeColor}, Pattern: 1},
			CustomNumFmt: numFmt(nf),
		})
		if err != nil {
			return fmt.Errorf("striped style: %w", err)
		}
		total, err := b.f.NewStyle(&excelize.Style{
			Font:         &excelize.Font{Bold: true},
			Border:       []excelize.Border{{Type: "top", Color: "000000", Style: 2}},
			CustomNumFmt: numFmt(nf),
		})
		if err != nil {
			return fmt.Errorf("total style: %w", err)
		}
		b.cells[nf] = [2]int{plain, striped}
		b.totals[nf] = total
	}

	b.title, err = b.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	if err != nil {
		return fmt.Errorf("title style: %w", err)
	}
	b.label, err = b.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("label style: %w", err)
	}
	return nil
}

// addSheet renames the default sheet for the first call and creates the rest.
func (b *builder) addSheet(i int, name string) error {
	if i == 0 {
		if err := b.f.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("name sheet %q: %w", name, err)
		}
		return nil
	}
	if _, err := b.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	return nil
}

func (b *builder) writeSheet(ctx context.Context, name string, s SheetConfig) error {
	f := b.f
	ncols := len(s.Columns)
	if ncols == 0 {
		return fmt.Errorf("spreadsheet: sheet %q has no columns", name)
	}
	lastCol := cellref.ColumnName(ncols)

	for j, c := range s.Columns {
		col := cellref.ColumnName(j + 1)
		if err := f.SetCellValue(name, cellref.Cell(j+1, headerRow), c.Header); err != nil {
			return err
		}
		if err := f.SetColWidth(name, col, col, columnWidth(c, s.Rows, j)); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(name, "A1", cellref.Cell(ncols, headerRow), b.header); err != nil {
		return err
	}
	if err := f.SetPanes(name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}
	filterEnd := max(LastDataRow(len(s.Rows)), headerRow)
	if err := f.AutoFilter(name, "A1:"+lastCol+fmt.Sprint(filterEnd), nil); err != nil {
		return fmt.Errorf("auto filter: %w", err)
	}

	if err := b.writeRows(ctx, name, s); err != nil {
		return err
	}
	if s.NoSummary || len(s.Rows) == 0 {
		return nil
	}
	return b.writeTotals(name, s)
}

func (b *builder) writeRows(ctx context.Context, name string, s SheetConfig) error {
	size := b.opts.ChunkSize
	if size <= 0 {
		size = defaultChunk
	}

	for start := 0; start < len(s.Rows); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(s.Rows))
		for i := start; i < end; i++ {
			if err := b.writeRow(name, i, s.Columns, s.Rows[i]); err != nil {
				return err
			}
		}
		b.done += end - start
		if b.opts.Progress != nil {
			b.opts.Progress(b.done, b.total)
		}
	}
	return ctx.Err()
}

func (b *builder) writeRow(name string, i int, cols []Column, row core.Row) error {
	r := firstDataRow + i
	stripe := i % 2
	for j, c := range cols {
		cell := cellref.Cell(j+1, r)
		if j < len(row) {
			if v := cellValue(row[j]); v != nil {
				if err := b.f.SetCellValue(name, cell, v); err != nil {
					return err
				}
			}
		}
		if err := b.f.SetCellStyle(name, cell, cell, b.cells[c.Format][stripe]); err != nil {
			return err
		}
	}
	return nil
}

func cellValue(v core.Value) any {
	switch v.Kind() {
	case core.KindString:
		return v.Str()
	case core.KindNumber:
		return v.Num()
	case core.KindBool:
		return v.Boolean()
	case core.KindTime:
		return v.TimeValue()
	}
	return nil
}

// writeTotals writes the blank separator and the TOTAL row.
func (b *builder) writeTotals(name string, s SheetConfig) error {
	n := len(s.Rows)
	row := SummaryRow(n)

	for j, c := range s.Columns {
		col := j + 1
		cell := cellref.Cell(col, row)

		formula := c.SummaryFormula
		if formula == "" && j > 0 && Summable(c, s.Rows, j) {
			formula = cellref.Sum(cellref.ColumnRange(col, firstDataRow, LastDataRow(n)))
		}
		if formula != "" {
			if err := b.f.SetCellFormula(name, cell, formula); err != nil {
				return fmt.Errorf("summary formula %s: %w", cell, err)
			}
		}
		if err := b.f.SetCellStyle(name, cell, cell, b.totals[c.Format]); err != nil {
			return err
		}
	}
	return b.f.SetCellValue(name, cellref.Cell(1, row), summaryLabel)
}

// Summable reports whether column j gets a SUM in the TOTAL row: at least
// one number and every non-null value numeric. Date and percent columns
// are never summed.
func Summable(c Column, rows []core.Row, j int) bool {
	if c.Format == FormatDate || c.Format == FormatPercent {
		return false
	}
	numbers := 0
	for _, row := range rows {
		if j >= len(row) || row[j].IsNull() {
			continue
		}
		if !row[j].IsNumber() {
			return false
		}
		numbers++
	}
	return numbers > 0
}

func (b *builder) writeSummarySheet(s SummarySheet, taken []string) error {
	name := uniqueName(sanitizeName(s.Name, "Summary"), taken)
	if _, err := b.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	f := b.f
	if err := f.SetCellValue(name, "A1", "Metric"); err != nil {
		return err
	}
	if err := f.SetCellValue(name, "B1", "Value"); err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", "B1", b.header); err != nil {
		return err
	}
	for i, m := range s.Metrics {
		r := firstDataRow + i
		if err := f.SetCellValue(name, cellref.Cell(1, r), m.Label); err != nil {
			return err
		}
		if v := cellValue(m.Value); v != nil {
			if err := f.SetCellValue(name, cellref.Cell(2, r), v); err != nil {
				return err
			}
		}
	}
	if err := f.SetColWidth(name, "A", "A", 32); err != nil {
		return err
	}
	return f.SetColWidth(name, "B", "B", 18)
}

// writeAnalytics adds the record count sheet:
//
//	row 1    title
//	row 2    export timestamp
//	row 3    header: Sheet | Records | Columns
//	row 4..  one row per data sheet
//	last     TOTAL with SUM over the record counts
func (b *builder) writeAnalytics(sheets []SheetConfig, names []string) error {
	name := uniqueName(analyticsSheet, names)
	if _, err := b.f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	f := b.f

	title := b.opts.Title
	if title == "" {
		title = "Export Analytics"
	}
	if err := f.SetCellValue(name, "A1", title); err != nil {
		return err
	}
	if err := f.SetCellStyle(name, "A1", "A1", b.title); err != nil {
		return err
	}
	if err := f.SetCellValue(name, "A2", "Exported: "+b.opts.GeneratedAt.Format("02 Jan 2006 15:04 MST")); err != nil {
		return err
	}
	for j, h := range []string{"Sheet", "Records", "Columns"} {
		if err := f.SetCellValue(name, cellref.Cell(j+1, 3), h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(name, "A3", "C3", b.header); err != nil {
		return err
	}

	first := 4
	for i, s := range sheets {
		r := first + i
		if err := f.SetCellValue(name, cellref.Cell(1, r), names[i]); err != nil {
			return err
		}
		count := cellref.Cell(2, r)
		if len(s.Rows) == 0 {
			if err := f.SetCellValue(name, count, 0); err != nil {
				return err
			}
		} else {
			ref := cellref.SheetRange(names[i], cellref.ColumnRange(1, firstDataRow, LastDataRow(len(s.Rows))))
			if err := f.SetCellFormula(name, count, cellref.Rows(ref)); err != nil {
				return err
			}
		}
		if err := f.SetCellValue(name, cellref.Cell(3, r), len(s.Columns)); err != nil {
			return err
		}
	}

	totalRow := first + len(sheets)
	if err := f.SetCellValue(name, cellref.Cell(1, totalRow), summaryLabel); err != nil {
		return err
	}
	sum := cellref.Sum(cellref.ColumnRange(2, first, totalRow-1))
	if err := f.SetCellFormula(name, cellref.Cell(2, totalRow), sum); err != nil {
		return err
	}
	if err := f.SetCellStyle(name, cellref.Cell(1, totalRow), cellref.Cell(3, totalRow), b.totals[FormatGeneral]); err != nil {
		return err
	}
	return f.SetColWidth(name, "A", "A", 28)
}

func columnWidth(c Column, rows []core.Row, j int) float64 {
	if c.Width > 0 {
		return c.Width
	}
	w := float64(len(c.Header) + 2)
	// Sample the first rows only; long exports should not pay for a full scan.
	for i := 0; i < len(rows) && i < 100; i++ {
		if j < len(rows[i]) {
			w = max(w, float64(len(rows[i][j].Text())+2))
		}
	}
	if c.Format == FormatCurrency {
		w += 4
	}
	return min(max(w, defaultWidth), maxWidth)
}

// sanitizeName removes characters sheet names may not contain and trims
// to the length limit.
func sanitizeName(name, fallback string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return ' '
		}
		return r
	}, name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	if name == "" {
		name = fallback
	}
	if r := []rune(name); len(r) > sheetNameLimit {
		name = string(r[:sheetNameLimit])
	}
	return name
}

func uniqueName(name string, taken []string) string {
	candidate := name
	for n := 2; contains(taken, candidate); n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(name)
		if len(base)+len(suffix) > sheetNameLimit {
			base = base[:sheetNameLimit-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	return candidate
}

func uniqueNames(sheets []SheetConfig) []string {
	names := make([]string, 0, len(sheets))
	for i, s := range sheets {
		names = append(names, uniqueName(sanitizeName(s.Name, fmt.Sprintf("Sheet%d", i+1)), names))
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
