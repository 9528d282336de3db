// Package provider supplies raw entity records to the export service.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/CSRExport/internal/core"
)

// DefaultPath is the gjson path tried when a document's root is not an array.
const DefaultPath = "data"

// ErrMalformed is returned when a source file is not a JSON array of records.
var ErrMalformed = errors.New("malformed record source")

// Directory reads <Dir>/<entity>.json for every request. The file is either
// a JSON array of records or an object holding the array under Path.
type Directory struct {
	Dir  string
	Path string
}

// NewDirectory returns a provider rooted at dir.
func NewDirectory(dir string) *Directory {
	return &Directory{Dir: dir, Path: DefaultPath}
}

// File returns the source path for an entity.
func (d *Directory) File(entity core.EntityType) string {
	return filepath.Join(d.Dir, string(entity)+".json")
}

// Records implements core.RecordProvider. A missing file is an empty
// collection.
func (d *Directory) Records(ctx context.Context, entity core.EntityType) ([]core.Record, error) {
	def, ok := core.Lookup(entity)
	if !ok {
		return nil, fmt.Errorf("unknown entity type: %s", entity)
	}

	path := d.File(entity)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("record source missing, exporting no rows", "entity", entity, "path", path)
		return []core.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(newSourceReader(f))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return Decode(ctx, def, data, d.Path)
}

// Decode selects the record array in data and decodes every element with
// the entity's decoder.
func Decode(ctx context.Context, def core.EntityDefinition, data []byte, path string) ([]core.Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	list := gjson.ParseBytes(data)
	if !list.IsArray() {
		if path == "" {
			path = DefaultPath
		}
		list = list.Get(path)
		if !list.IsArray() {
			return nil, fmt.Errorf("%w: expected an array or %q array", ErrMalformed, path)
		}
	}

	elems := list.Array()
	records := make([]core.Record, 0, len(elems))
	for i, elem := range elems {
		if i%core.DefaultChunkSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if !elem.IsObject() {
			return nil, fmt.Errorf("%w: element %d is %s, not an object", ErrMalformed, i, elem.Type)
		}
		rec, err := def.Decode(json.RawMessage(elem.Raw))
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Static serves fixed records, for tests and embedded callers.
type Static map[core.EntityType][]core.Record

func (s Static) Records(ctx context.Context, entity core.EntityType) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s[entity], nil
}
