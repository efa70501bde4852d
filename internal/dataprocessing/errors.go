package dataprocessing

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned when a filter criterion cannot be interpreted.
var ErrInvalidFilter = errors.New("invalid filter")

// SchemaErrorKind tells which structural element of a workbook is missing.
type SchemaErrorKind string

const (
	// SchemaMissingSheet is raised when a required sheet is absent
	SchemaMissingSheet SchemaErrorKind = "missing_sheet"
	// SchemaMissingColumn is raised when a required column is absent under every accepted name
	SchemaMissingColumn SchemaErrorKind = "missing_column"
)

// SchemaError is a structural problem that aborts the whole load.
// No partial dataset is produced when it is returned.
type SchemaError struct {
	Kind         SchemaErrorKind `json:"kind"`
	Name         string          `json:"name"`
	Alternatives []string        `json:"alternatives,omitempty"`
}

func (e *SchemaError) Error() string {
	switch e.Kind {
	case SchemaMissingSheet:
		return fmt.Sprintf("schema error: sheet %q not found", e.Name)
	case SchemaMissingColumn:
		if len(e.Alternatives) > 1 {
			return fmt.Sprintf("schema error: column %q not found (accepted names: %s)",
				e.Name, strings.Join(e.Alternatives, ", "))
		}
		return fmt.Sprintf("schema error: column %q not found", e.Name)
	}
	return fmt.Sprintf("schema error: %s %q", e.Kind, e.Name)
}

func missingSheet(name string) *SchemaError {
	return &SchemaError{Kind: SchemaMissingSheet, Name: name}
}

func missingColumn(name string, alternatives ...string) *SchemaError {
	return &SchemaError{Kind: SchemaMissingColumn, Name: name, Alternatives: alternatives}
}
