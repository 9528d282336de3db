// Package delimited encodes projected rows as comma separated text.
//
// Output rules:
//   - The header row holds column keys, not labels
//   - Lines are separated by "\n" with no newline after the last line
//   - A field is quoted only when it contains a comma, a double quote,
//     "\r" or "\n"; embedded quotes are doubled
//   - Nulls are empty fields; a line holding a single empty field is
//     written as "" so it is not mistaken for a blank line
//
// Decode reads the same text back byte for byte, including "\r\n" inside
// quoted fields, which makes encode/decode round trips lossless for string
// data.
package delimited

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// BOM is the UTF-8 byte order mark spreadsheet programs use to detect the
// encoding of delimited files.
const BOM = "\uFEFF"

func init() {
	core.RegisterRenderer(Renderer{WithBOM: true})
}

// Renderer is the core.Renderer for core.FormatCSV.
type Renderer struct {
	WithBOM bool
}

func (Renderer) Format() core.Format { return core.FormatCSV }

// Render writes the header and rows, checking ctx between chunks.
func (r Renderer) Render(ctx context.Context, in core.RenderInput) ([]byte, error) {
	var buf bytes.Buffer
	if r.WithBOM {
		buf.WriteString(BOM)
	}
	enc := NewEncoder(&buf)
	enc.WriteHeader(in.Columns)
	err := in.EachChunk(ctx, func(start, end int) error {
		for _, row := range in.Rows[start:end] {
			enc.WriteRow(row)
		}
		return enc.Err()
	})
	if err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode returns the delimited text for columns and rows.
func Encode(columns []core.ColumnDefinition, rows []core.Row) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteHeader(columns)
	for _, row := range rows {
		enc.WriteRow(row)
	}
	_ = enc.Flush() // bytes.Buffer writes cannot fail
	return buf.Bytes()
}

// EncodeWithBOM is Encode prefixed with the UTF-8 byte order mark.
func EncodeWithBOM(columns []core.ColumnDefinition, rows []core.Row) []byte {
	return append([]byte(BOM), Encode(columns, rows)...)
}

// Encoder writes delimited lines to an io.Writer.
type Encoder struct {
	w     *bufio.Writer
	lines int
	err   error
}

// NewEncoder creates an encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// WriteHeader writes the column keys.
func (e *Encoder) WriteHeader(columns []core.ColumnDefinition) {
	fields := make([]string, len(columns))
	for i, c := range columns {
		fields[i] = c.ID
	}
	e.writeLine(fields)
}

// WriteRow writes one projected row.
func (e *Encoder) WriteRow(row core.Row) {
	fields := make([]string, len(row))
	for i, v := range row {
		fields[i] = v.Text()
	}
	e.writeLine(fields)
}

// WriteFields writes one line of raw field text.
func (e *Encoder) WriteFields(fields []string) {
	e.writeLine(fields)
}

func (e *Encoder) writeLine(fields []string) {
	if e.err != nil {
		return
	}
	if e.lines > 0 {
		e.w.WriteByte('\n')
	}
	if len(fields) == 1 && fields[0] == "" {
		_, e.err = e.w.WriteString(`""`)
		e.lines++
		return
	}
	for i, f := range fields {
		if i > 0 {
			e.w.WriteByte(',')
		}
		_, e.err = e.w.WriteString(Quote(f))
	}
	e.lines++
}

// Err returns the first write error.
func (e *Encoder) Err() error {
	return e.err
}

// Flush writes buffered data to the underlying writer.
func (e *Encoder) Flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}

// Quote returns field quoted if it contains a comma, a double quote or a
// line break, and unchanged otherwise.
func Quote(field string) string {
	if !strings.ContainsAny(field, ",\"\r\n") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ErrNoHeader is returned by Decode for empty input.
var ErrNoHeader = errors.New("delimited: missing header row")

// Decode parses delimited text, skipping a leading byte order mark.
// It returns the header and the data records. Quoted fields keep their
// content verbatim; blank lines between records are skipped.
func Decode(r io.Reader) (header []string, records [][]string, err error) {
	// BOMOverride strips a UTF-8 BOM and replaces invalid bytes with U+FFFD.
	data, err := io.ReadAll(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if err != nil {
		return nil, nil, fmt.Errorf("decode delimited text: %w", err)
	}

	all, err := parse(string(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decode delimited text: %w", err)
	}
	if len(all) == 0 {
		return nil, nil, ErrNoHeader
	}
	return all[0], all[1:], nil
}

// parse splits text into records. Unquoted "\r\n" ends a line like "\n".
func parse(text string) ([][]string, error) {
	var (
		records [][]string
		record  []string
		field   strings.Builder
		line    = 1
	)
	endRecord := func() {
		record = append(record, field.String())
		field.Reset()
		records = append(records, record)
		record = nil
	}

	for i := 0; i < len(text); {
		// Blank line between records.
		if len(record) == 0 && field.Len() == 0 && (text[i] == '\n' || strings.HasPrefix(text[i:], "\r\n")) {
			if text[i] == '\r' {
				i++
			}
			i++
			line++
			continue
		}

		if text[i] == '"' {
			i++
			for {
				if i >= len(text) {
					return nil, fmt.Errorf("line %d: unterminated quoted field", line)
				}
				c := text[i]
				if c == '"' {
					if i+1 < len(text) && text[i+1] == '"' {
						field.WriteByte('"')
						i += 2
						continue
					}
					i++
					break
				}
				if c == '\n' {
					line++
				}
				field.WriteByte(c)
				i++
			}
			if i < len(text) && text[i] != ',' && text[i] != '\n' && !strings.HasPrefix(text[i:], "\r\n") {
				return nil, fmt.Errorf("line %d: unexpected %q after quoted field", line, text[i])
			}
		} else {
			for i < len(text) && text[i] != ',' && text[i] != '\n' && !strings.HasPrefix(text[i:], "\r\n") {
				if text[i] == '"' {
					return nil, fmt.Errorf("line %d: bare quote in unquoted field", line)
				}
				field.WriteByte(text[i])
				i++
			}
		}

		switch {
		case i >= len(text):
			endRecord()
		case text[i] == ',':
			record = append(record, field.String())
			field.Reset()
			i++
			if i == len(text) {
				endRecord()
			}
		default:
			if text[i] == '\r' {
				i++
			}
			i++
			line++
			endRecord()
		}
	}
	return records, nil
}
