package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultChunkSize is the number of rows a builder writes between
// cancellation checks.
const DefaultChunkSize = 500

// RenderInput is everything a format builder needs for one export.
type RenderInput struct {
	Config ExportConfig
	Entity EntityDefinition
	// Columns and Rows are the projected pipeline output.
	Columns []ColumnDefinition
	Rows    []Row
	// Records are the filtered source records, for adapter summaries.
	Records []Record

	GeneratedAt  time.Time
	Organization string
	Generator    string
	ChunkSize    int

	// Progress, if set, receives the number of rows written so far.
	Progress func(done, total int)
}

// Title returns the configured title or a default built from the entity label.
func (in RenderInput) Title() string {
	if in.Config.Title != "" {
		return in.Config.Title
	}
	label := in.Entity.Label
	if label == "" {
		label = string(in.Config.EntityType)
	}
	return label + " Report"
}

// EachChunk calls fn for consecutive [start, end) windows of the rows,
// checking ctx before every window and reporting progress after it.
func (in RenderInput) EachChunk(ctx context.Context, fn func(start, end int) error) error {
	size := in.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	total := len(in.Rows)
	for start := 0; start < total; start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, total)
		if err := fn(start, end); err != nil {
			return err
		}
		if in.Progress != nil {
			in.Progress(end, total)
		}
	}
	return ctx.Err()
}

// Renderer turns projected rows into a complete document.
type Renderer interface {
	Format() Format
	Render(ctx context.Context, in RenderInput) ([]byte, error)
}

var (
	renderers   = make(map[Format]Renderer)
	renderersMu sync.RWMutex
)

// RegisterRenderer installs the builder for a format.
// Panics on an unknown format or a second registration.
func RegisterRenderer(r Renderer) {
	renderersMu.Lock()
	defer renderersMu.Unlock()

	f := r.Format()
	if !f.Valid() {
		panic(fmt.Sprintf("unknown format: %s", f))
	}
	if _, exists := renderers[f]; exists {
		panic(fmt.Sprintf("renderer already registered: %s", f))
	}
	renderers[f] = r
}

// LookupRenderer returns the builder for a format.
func LookupRenderer(f Format) (Renderer, bool) {
	renderersMu.RLock()
	defer renderersMu.RUnlock()
	r, ok := renderers[f]
	return r, ok
}

// RendererFormats lists formats with an installed builder, in Formats order.
func RendererFormats() []Format {
	renderersMu.RLock()
	defer renderersMu.RUnlock()

	out := make([]Format, 0, len(renderers))
	for _, f := range Formats {
		if _, ok := renderers[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// RenderFunc adapts a function to the Renderer interface.
type RenderFunc struct {
	F  Format
	Fn func(ctx context.Context, in RenderInput) ([]byte, error)
}

func (r RenderFunc) Format() Format { return r.F }

func (r RenderFunc) Render(ctx context.Context, in RenderInput) ([]byte, error) {
	return r.Fn(ctx, in)
}
