// Package structured encodes projected rows as a JSON document with an
// export metadata envelope:
//
//	{
//	  "metadata": {"exportedAt": ..., "format": "json", "entityType": ..., ...},
//	  "data": [{"<column>": <value>, ...}, ...]
//	}
//
// Keys inside each data object keep the projected column order.
package structured

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

func init() {
	core.RegisterRenderer(Renderer{})
}

// Metadata describes how the document was produced.
type Metadata struct {
	ExportedAt   time.Time       `json:"exportedAt"`
	Format       core.Format     `json:"format"`
	EntityType   core.EntityType `json:"entityType"`
	Title        string          `json:"title,omitempty"`
	Organization string          `json:"organization,omitempty"`
	RowCount     int             `json:"rowCount"`
	Columns      []string        `json:"columns"`
	Filters      *core.Filters   `json:"filters"`
	DateRange    *core.DateRange `json:"dateRange"`
	Summary      []core.Metric   `json:"summary,omitempty"`
}

// Envelope is the top-level document.
type Envelope struct {
	Metadata Metadata `json:"metadata"`
	Data     []Object `json:"data"`
}

// Object is one row as an ordered JSON object.
type Object struct {
	Keys   []string
	Values []core.Value
}

// Get returns the value stored under key, or Null.
func (o Object) Get(key string) core.Value {
	for i, k := range o.Keys {
		if k == key {
			return o.Values[i]
		}
	}
	return core.Null
}

// MarshalJSON writes keys in order.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := o.Values[i].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads an object of scalars, keeping key order.
func (o *Object) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("structured: expected object, got %v", tok)
	}

	*o = Object{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("structured: expected key, got %v", tok)
		}
		var v core.Value
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("structured: value for %q: %w", key, err)
		}
		o.Keys = append(o.Keys, key)
		o.Values = append(o.Values, v)
	}
	_, err = dec.Token()
	return err
}

// Objects converts rows to ordered objects keyed by column id.
func Objects(columns []core.ColumnDefinition, rows []core.Row) []Object {
	keys := make([]string, len(columns))
	for i, c := range columns {
		keys[i] = c.ID
	}
	out := make([]Object, len(rows))
	for i, row := range rows {
		out[i] = Object{Keys: keys, Values: row}
	}
	return out
}

// Encode builds the envelope for cfg and indents it with two spaces.
func Encode(cfg core.ExportConfig, columns []core.ColumnDefinition, rows []core.Row, exportedAt time.Time) ([]byte, error) {
	return marshal(Envelope{
		Metadata: metadata(cfg, columns, len(rows), exportedAt),
		Data:     Objects(columns, rows),
	})
}

// Decode parses a document produced by Encode.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode structured document: %w", err)
	}
	return env, nil
}

func metadata(cfg core.ExportConfig, columns []core.ColumnDefinition, rowCount int, exportedAt time.Time) Metadata {
	ids := make([]string, len(columns))
	for i, c := range columns {
		ids[i] = c.ID
	}
	return Metadata{
		ExportedAt: exportedAt.UTC(),
		Format:     core.FormatJSON,
		EntityType: cfg.EntityType,
		Title:      cfg.Title,
		RowCount:   rowCount,
		Columns:    ids,
		Filters:    cfg.Filters,
		DateRange:  cfg.DateRange,
	}
}

func marshal(env Envelope) ([]byte, error) {
	if env.Data == nil {
		env.Data = []Object{}
	}
	return json.MarshalIndent(env, "", "  ")
}

// Renderer is the core.Renderer for core.FormatJSON.
type Renderer struct{}

func (Renderer) Format() core.Format { return core.FormatJSON }

// Render encodes the rows, checking ctx between chunks. With
// IncludeMetadata the adapter summary is added to the metadata.
func (Renderer) Render(ctx context.Context, in core.RenderInput) ([]byte, error) {
	keys := make([]string, len(in.Columns))
	for i, c := range in.Columns {
		keys[i] = c.ID
	}

	data := make([]Object, 0, len(in.Rows))
	err := in.EachChunk(ctx, func(start, end int) error {
		for _, row := range in.Rows[start:end] {
			data = append(data, Object{Keys: keys, Values: row})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	meta := metadata(in.Config, in.Columns, len(in.Rows), in.GeneratedAt)
	meta.Organization = in.Organization
	if meta.Title == "" {
		meta.Title = in.Title()
	}
	if in.Config.IncludeMetadata && in.Entity.Adapter != nil {
		meta.Summary = in.Entity.Adapter.Summary(in.Records)
	}
	return marshal(Envelope{Metadata: meta, Data: data})
}
