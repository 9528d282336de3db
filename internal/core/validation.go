package core

// validation.go rejects malformed export requests before a job exists.
//
// Validation happens at two levels:
//  1. Struct tags: required fields, enum values and bounds, checked by
//     go-playground/validator with JSON field names
//  2. Catalog checks: the entity is registered, every column and the sort
//     column exist in its catalog, and ranges are not inverted
//
// All problems are collected and returned together as ValidationErrors.

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RequestValidator validates export requests.
type RequestValidator struct {
	v *validator.Validate
}

// NewRequestValidator creates a validator with the export-specific rules registered.
func NewRequestValidator() *RequestValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("export_format", func(fl validator.FieldLevel) bool {
		return Format(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("entity_type", func(fl validator.FieldLevel) bool {
		return EntityType(fl.Field().String()).Valid()
	})

	return &RequestValidator{v: v}
}

// Validate checks a job name and config. Returns ValidationErrors or nil.
func (rv *RequestValidator) Validate(name string, cfg ExportConfig) error {
	var errs ValidationErrors

	if strings.TrimSpace(name) == "" {
		errs = append(errs, ValidationError{Field: "name", Message: "job name is required"})
	}

	if err := rv.v.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return append(errs, ValidationError{Message: err.Error()})
		}
		for _, fe := range fieldErrs {
			errs = append(errs, fieldError(fe))
		}
	}

	if len(cfg.Columns()) == 0 && !errs.Has("includeColumns") {
		errs = append(errs, ValidationError{Field: "includeColumns", Message: "no columns selected"})
	}

	errs = append(errs, catalogErrors(cfg)...)

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func fieldError(fe validator.FieldError) ValidationError {
	field := fe.Field()
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}

	switch fe.Tag() {
	case "export_format":
		return ValidationError{Field: field, Message: fmt.Sprintf("unsupported format %q", fe.Value())}
	case "entity_type":
		return ValidationError{Field: field, Message: fmt.Sprintf("unknown entity type %q", fe.Value())}
	case "required":
		if field == "includeColumns" {
			return ValidationError{Field: field, Message: "no columns selected"}
		}
		if field == "format" {
			return ValidationError{Field: field, Message: "unsupported format \"\""}
		}
		return ValidationError{Field: field, Message: "is required"}
	case "min":
		if field == "includeColumns" {
			return ValidationError{Field: field, Message: "no columns selected"}
		}
		return ValidationError{Field: field, Message: "must have at least " + fe.Param() + " items"}
	case "oneof":
		return ValidationError{Field: field, Message: fmt.Sprintf("invalid value %q, must be one of: %s", fe.Value(), fe.Param())}
	case "gte":
		return ValidationError{Field: field, Message: "must be >= " + fe.Param()}
	default:
		return ValidationError{Field: field, Message: "failed " + fe.Tag() + " check"}
	}
}

func catalogErrors(cfg ExportConfig) ValidationErrors {
	var errs ValidationErrors

	if cfg.EntityType.Valid() {
		def, ok := Lookup(cfg.EntityType)
		if !ok {
			errs = append(errs, ValidationError{Field: "entityType", Message: fmt.Sprintf("unknown entity type %q", cfg.EntityType)})
		} else {
			for _, col := range cfg.Columns() {
				if _, found := def.Column(col); !found {
					errs = append(errs, ValidationError{Field: "includeColumns", Message: fmt.Sprintf("unknown column %q for %s", col, cfg.EntityType)})
				}
			}
			if cfg.SortBy != "" {
				if _, found := def.Column(cfg.SortBy); !found {
					errs = append(errs, ValidationError{Field: "sortBy", Message: fmt.Sprintf("unknown column %q for %s", cfg.SortBy, cfg.EntityType)})
				}
			}
			errs = append(errs, unboundFilters(def, cfg.Filters)...)
		}
	}

	if f := cfg.Filters; f != nil && f.AmountMin != nil && f.AmountMax != nil && *f.AmountMin > *f.AmountMax {
		errs = append(errs, ValidationError{Field: "filters", Message: "invalid range: amountMin is greater than amountMax"})
	}
	if d := cfg.DateRange; d != nil && d.Start != nil && d.End != nil && d.Start.After(*d.End) {
		errs = append(errs, ValidationError{Field: "dateRange", Message: "invalid range: start is after end"})
	}

	return errs
}

// unboundFilters reports filter dimensions the entity cannot evaluate.
func unboundFilters(def EntityDefinition, f *Filters) ValidationErrors {
	if f == nil {
		return nil
	}
	b := def.Filters
	var errs ValidationErrors
	for _, d := range []struct {
		name    string
		active  bool
		binding string
	}{
		{"status", len(f.Status) > 0, b.Status},
		{"category", len(f.Category) > 0, b.Category},
		{"location", len(f.Location) > 0, b.Location},
		{"tags", len(f.Tags) > 0, b.Tags},
		{"amount", f.AmountMin != nil || f.AmountMax != nil, b.Amount},
	} {
		if d.active && d.binding == "" {
			errs = append(errs, ValidationError{Field: "filters", Message: fmt.Sprintf("%s cannot be filtered by %s", def.Type, d.name)})
		}
	}
	return errs
}
