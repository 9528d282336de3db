// Package document lays out paginated A4 reports with fpdf.
//
// Content is laid out first; the footer with "Page X of Y" is drawn in a
// finishing pass over every page, so Y is always the final page count.
package document

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pdf/fpdf"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// Page geometry in millimetres.
const (
	marginLeft   = 15.0
	marginTop    = 15.0
	marginRight  = 15.0
	footerHeight = 18.0
	rowHeight    = 7.0
	headerHeight = 8.0
	titleHeight  = 9.0
	badgeSize    = 14.0
)

// CurrencyThreshold is the magnitude from which numbers get a currency
// prefix and thousands separators.
const CurrencyThreshold = 1000

// CurrencyPrefix is printed before large amounts.
const CurrencyPrefix = "PKR "

// DateLayout is used for dates in table cells.
const DateLayout = "02 Jan 2006"

// Align values for columns.
const (
	AlignLeft   = "L"
	AlignCenter = "C"
	AlignRight  = "R"
)

type rgb struct{ r, g, b int }

var (
	brandColor  = rgb{31, 78, 120}
	stripeColor = rgb{242, 246, 250}
	ruleColor   = rgb{191, 191, 191}
	mutedColor  = rgb{110, 110, 110}
	textColor   = rgb{33, 33, 33}
	white       = rgb{255, 255, 255}
)

// Column declares one table column. Widths are proportional to Weight
// across the printable width; a zero weight counts as 1.
type Column struct {
	Header string
	Weight float64
	Align  string
}

// TableConfig describes one table section. It is consumed once by Build.
type TableConfig struct {
	Title   string
	Columns []Column
	Rows    []core.Row
	// Summary is printed as label/value pairs below the table.
	Summary []core.Metric
}

// Options control page setup and the surrounding blocks.
type Options struct {
	Orientation  core.Orientation
	Title        string
	Subtitle     string
	Organization string
	Generator    string
	Format       string
	GeneratedAt  time.Time
	// Appendix adds a final metadata page.
	Appendix bool
	// Uncompressed writes plain content streams.
	Uncompressed bool
	ChunkSize    int
	Progress     func(done, total int)
}

// Document is a finished PDF.
type Document struct {
	Data  []byte
	Pages int
}

// Build lays out all tables and returns the encoded document.
func Build(ctx context.Context, tables []TableConfig, opts Options) (Document, error) {
	if opts.GeneratedAt.IsZero() {
		opts.GeneratedAt = time.Now()
	}

	orientation := "P"
	if opts.Orientation == core.Landscape {
		orientation = "L"
	}
	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, footerHeight)
	pdf.SetCompression(!opts.Uncompressed)
	pdf.SetCreationDate(opts.GeneratedAt)
	pdf.SetTitle(opts.Title, true)
	pdf.SetAuthor(opts.Organization, true)
	pdf.SetCreator(opts.Generator, true)

	l := &layout{pdf: pdf, opts: opts, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	l.pageW, l.pageH = pdf.GetPageSize()
	l.width = l.pageW - marginLeft - marginRight
	l.limit = l.pageH - footerHeight
	for _, t := range tables {
		l.total += len(t.Rows)
	}

	pdf.AddPage()
	l.header()
	for _, t := range tables {
		if err := l.table(ctx, t); err != nil {
			return Document{}, err
		}
	}
	if opts.Appendix {
		l.appendix(len(tables))
	}
	l.footers()

	if err := pdf.Error(); err != nil {
		return Document{}, fmt.Errorf("layout document: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Document{}, fmt.Errorf("write document: %w", err)
	}
	return Document{Data: buf.Bytes(), Pages: pdf.PageCount()}, nil
}

type layout struct {
	pdf  *fpdf.Fpdf
	opts Options
	tr   func(string) string

	pageW, pageH float64
	width        float64
	limit        float64

	total int
	done  int
}

func (l *layout) color(fill, text rgb) {
	l.pdf.SetFillColor(fill.r, fill.g, fill.b)
	l.pdf.SetTextColor(text.r, text.g, text.b)
}

func (l *layout) rule(y float64) {
	l.pdf.SetDrawColor(ruleColor.r, ruleColor.g, ruleColor.b)
	l.pdf.SetLineWidth(0.3)
	l.pdf.Line(marginLeft, y, l.pageW-marginRight, y)
}

// header draws the brand badge, title, subtitle and timestamp on page 1.
func (l *layout) header() {
	pdf := l.pdf

	pdf.SetFillColor(brandColor.r, brandColor.g, brandColor.b)
	pdf.RoundedRect(marginLeft, marginTop, badgeSize, badgeSize, 3, "1234", "F")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(white.r, white.g, white.b)
	pdf.SetXY(marginLeft, marginTop)
	pdf.CellFormat(badgeSize, badgeSize, l.tr(Initials(l.opts.Organization)), "", 0, AlignCenter, false, 0, "")

	x := marginLeft + badgeSize + 4
	pdf.SetXY(x, marginTop)
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(textColor.r, textColor.g, textColor.b)
	pdf.CellFormat(l.width-badgeSize-4, 7, l.tr(l.opts.Title), "", 2, AlignLeft, false, 0, "")

	if l.opts.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(mutedColor.r, mutedColor.g, mutedColor.b)
		pdf.CellFormat(l.width-badgeSize-4, 5, l.tr(l.opts.Subtitle), "", 2, AlignLeft, false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(mutedColor.r, mutedColor.g, mutedColor.b)
	pdf.CellFormat(l.width-badgeSize-4, 4, "Generated "+l.opts.GeneratedAt.Format("02 Jan 2006 15:04 MST"), "", 2, AlignLeft, false, 0, "")

	y := max(pdf.GetY(), marginTop+badgeSize) + 3
	l.rule(y)
	pdf.SetXY(marginLeft, y+5)
}

func (l *layout) widths(cols []Column) []float64 {
	var sum float64
	for _, c := range cols {
		sum += weight(c)
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		out[i] = l.width * weight(c) / sum
	}
	return out
}

func weight(c Column) float64 {
	if c.Weight <= 0 {
		return 1
	}
	return c.Weight
}

func (l *layout) fits(h float64) bool {
	return l.pdf.GetY()+h <= l.limit
}

func (l *layout) newPage() {
	l.pdf.AddPage()
	l.pdf.SetXY(marginLeft, marginTop)
}

func (l *layout) table(ctx context.Context, t TableConfig) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("document: table %q has no columns", t.Title)
	}
	pdf := l.pdf
	widths := l.widths(t.Columns)

	// The title, header and first row start together.
	need := headerHeight + rowHeight
	if t.Title != "" {
		need += titleHeight
	}
	if !l.fits(need) {
		l.newPage()
	}
	if t.Title != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(textColor.r, textColor.g, textColor.b)
		pdf.CellFormat(l.width, titleHeight, l.tr(t.Title), "", 1, AlignLeft, false, 0, "")
	}
	l.tableHeader(t.Columns, widths)

	size := l.opts.ChunkSize
	if size <= 0 {
		size = core.DefaultChunkSize
	}
	for start := 0; start < len(t.Rows); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(t.Rows))
		for i := start; i < end; i++ {
			if !l.fits(rowHeight) {
				l.newPage()
				l.tableHeader(t.Columns, widths)
			}
			l.row(t.Columns, widths, t.Rows[i], i%2 == 1)
		}
		l.done += end - start
		if l.opts.Progress != nil {
			l.opts.Progress(l.done, l.total)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.summary(t.Summary)
	pdf.Ln(6)
	return nil
}

func (l *layout) tableHeader(cols []Column, widths []float64) {
	pdf := l.pdf
	pdf.SetFont("Helvetica", "B", 9)
	l.color(brandColor, white)
	for i, c := range cols {
		pdf.CellFormat(widths[i], headerHeight, l.fit(c.Header, widths[i]), "", 0, align(c), true, 0, "")
	}
	pdf.Ln(headerHeight)
}

func (l *layout) row(cols []Column, widths []float64, row core.Row, striped bool) {
	pdf := l.pdf
	pdf.SetFont("Helvetica", "", 8)
	l.color(stripeColor, textColor)
	for i, c := range cols {
		var text string
		if i < len(row) {
			text = FormatValue(row[i])
		}
		pdf.CellFormat(widths[i], rowHeight, l.fit(text, widths[i]), "", 0, align(c), striped, 0, "")
	}
	pdf.Ln(rowHeight)
}

func align(c Column) string {
	if c.Align == "" {
		return AlignLeft
	}
	return c.Align
}

// fit translates text for the core fonts and truncates it to the cell.
func (l *layout) fit(text string, w float64) string {
	text = l.tr(text)
	limit := w - 2
	if l.pdf.GetStringWidth(text) <= limit {
		return text
	}
	r := []rune(text)
	for len(r) > 0 && l.pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

func (l *layout) summary(metrics []core.Metric) {
	if len(metrics) == 0 {
		return
	}
	pdf := l.pdf
	pdf.Ln(3)
	for _, m := range metrics {
		if !l.fits(6) {
			l.newPage()
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(textColor.r, textColor.g, textColor.b)
		pdf.CellFormat(l.width*0.4, 6, l.fit(m.Label, l.width*0.4), "", 0, AlignLeft, false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(l.width*0.6, 6, l.fit(FormatValue(m.Value), l.width*0.6), "", 1, AlignLeft, false, 0, "")
	}
}

func (l *layout) appendix(tables int) {
	pdf := l.pdf
	l.newPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(textColor.r, textColor.g, textColor.b)
	pdf.CellFormat(l.width, 10, "Export Metadata", "", 1, AlignLeft, false, 0, "")
	l.rule(pdf.GetY() + 1)
	pdf.Ln(5)

	generator := l.opts.Generator
	if generator == "" {
		generator = l.opts.Organization
	}
	items := [][2]string{
		{"Export date", l.opts.GeneratedAt.Format("02 Jan 2006 15:04 MST")},
		{"Generated by", generator},
		{"Format", l.opts.Format},
		{"Tables included", strconv.Itoa(tables)},
	}
	for _, it := range items {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 7, it[0], "", 0, AlignLeft, false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(l.width-45, 7, l.tr(it[1]), "", 1, AlignLeft, false, 0, "")
	}
}

// footers draws the rule, organization and page number on every page.
func (l *layout) footers() {
	pdf := l.pdf
	total := pdf.PageCount()
	y := l.pageH - footerHeight + 5
	for p := 1; p <= total; p++ {
		pdf.SetPage(p)
		l.rule(y)
		pdf.SetXY(marginLeft, y+2)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(mutedColor.r, mutedColor.g, mutedColor.b)
		pdf.CellFormat(l.width/2, 5, l.tr(l.opts.Organization), "", 0, AlignLeft, false, 0, "")
		pdf.CellFormat(l.width/2, 5, fmt.Sprintf("Page %d of %d", p, total), "", 0, AlignRight, false, 0, "")
	}
}

// FormatValue renders a cell for print: large numbers as currency with at
// most two decimals, booleans as Yes/No and dates in DateLayout.
func FormatValue(v core.Value) string {
	switch v.Kind() {
	case core.KindNumber:
		n := v.Num()
		if math.Abs(n) >= CurrencyThreshold {
			return CurrencyPrefix + humanize.CommafWithDigits(math.Round(n*100)/100, 2)
		}
		return strconv.FormatFloat(n, 'f', -1, 64)
	case core.KindBool:
		if v.Boolean() {
			return "Yes"
		}
		return "No"
	case core.KindTime:
		return v.TimeValue().Format(DateLayout)
	case core.KindString:
		s := v.Str()
		if core.LooksLikeISODate(s) {
			if t, ok := core.ParseDate(s); ok {
				return t.Format(DateLayout)
			}
		}
		return s
	}
	return ""
}

// Initials returns up to two leading letters for the brand badge.
func Initials(name string) string {
	var out []rune
	for _, word := range strings.Fields(name) {
		r := []rune(word)
		out = append(out, r[0])
		if len(out) == 2 {
			break
		}
	}
	if len(out) == 0 {
		return "CSR"
	}
	return strings.ToUpper(string(out))
}
