package core

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed report_templates.yaml
var builtinTemplates []byte

// ErrTemplateNotFound is returned for unknown template ids.
var ErrTemplateNotFound = errors.New("report template not found")

// TemplateCatalog is the read-only list of predefined reports.
type TemplateCatalog struct {
	templates []ReportTemplate
	byID      map[string]int
}

type templateFile struct {
	Templates []ReportTemplate `yaml:"templates"`
}

// LoadTemplates parses a YAML template catalog. Unknown keys, duplicate ids
// and templates without an id or entity type are rejected.
func LoadTemplates(data []byte) (*TemplateCatalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file templateFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}

	c := &TemplateCatalog{byID: make(map[string]int, len(file.Templates))}
	for _, t := range file.Templates {
		if t.ID == "" {
			return nil, fmt.Errorf("report template %q has no id", t.Label)
		}
		if !t.Config.EntityType.Valid() {
			return nil, fmt.Errorf("report template %s: unknown entity type %q", t.ID, t.Config.EntityType)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate report template id: %s", t.ID)
		}
		c.byID[t.ID] = len(c.templates)
		c.templates = append(c.templates, t)
	}
	return c, nil
}

// DefaultTemplates returns the embedded catalog.
func DefaultTemplates() (*TemplateCatalog, error) {
	return LoadTemplates(builtinTemplates)
}

// List returns the templates in file order.
func (c *TemplateCatalog) List() []ReportTemplate {
	out := make([]ReportTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}

// Get returns one template by id.
func (c *TemplateCatalog) Get(id string) (ReportTemplate, error) {
	i, ok := c.byID[id]
	if !ok {
		return ReportTemplate{}, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	return c.templates[i], nil
}

// Apply layers the non-zero fields of overrides on top of the template's
// configuration. The entity type always comes from the template.
func (t ReportTemplate) Apply(overrides ExportConfig) ExportConfig {
	cfg := t.Config.Clone()

	if overrides.Format != "" {
		cfg.Format = overrides.Format
	}
	if len(overrides.IncludeColumns) > 0 {
		cfg.IncludeColumns = append([]string(nil), overrides.IncludeColumns...)
	}
	if overrides.Filters != nil {
		cfg.Filters = overrides.Filters
	}
	if overrides.DateRange != nil {
		cfg.DateRange = overrides.DateRange
	}
	if overrides.SortBy != "" {
		cfg.SortBy = overrides.SortBy
	}
	if overrides.SortOrder != "" {
		cfg.SortOrder = overrides.SortOrder
	}
	if overrides.MaxRows > 0 {
		cfg.MaxRows = overrides.MaxRows
	}
	if overrides.IncludeMetadata {
		cfg.IncludeMetadata = true
	}
	if overrides.Orientation != "" {
		cfg.Orientation = overrides.Orientation
	}
	if overrides.Title != "" {
		cfg.Title = overrides.Title
	}
	if cfg.Title == "" {
		cfg.Title = t.Label
	}
	return cfg
}
