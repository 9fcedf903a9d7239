package merge

import (
	"encoding/json"
	"fmt"
	"os"
)

type ColumnType string

const (
	ColumnNumber  ColumnType = "Number"
	ColumnText    ColumnType = "Text"
	ColumnBoolean ColumnType = "Boolean"
)

type MergeMode string

const (
	ModeAccumulate MergeMode = "Accumulate"
	ModeGroupBy    MergeMode = "GroupBy"
)

// ColumnDefinition is one typed column of a form task's schema. It is
// read-only during a merge run.
type ColumnDefinition struct {
	Name         string     `json:"name"`
	Type         ColumnType `json:"type"`
	Required     bool       `json:"required"`
	MergeMode    MergeMode  `json:"mergeMode"`
	GroupByField string     `json:"groupByField,omitempty"`
}

// Schema is the ordered column set of a form task, stored as schema.json
// next to the task's collection folder.
type Schema struct {
	Title   string             `json:"title"`
	Columns []ColumnDefinition `json:"columns"`
}

// LoadSchema reads and validates a schema file. A missing file maps to
// ErrSourceMissing, an empty column set to ErrSchemaInvalid.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSourceMissing, path)
		}
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	if len(s.Columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSchemaInvalid, path)
	}
	for i := range s.Columns {
		if s.Columns[i].Type == "" {
			s.Columns[i].Type = ColumnText
		}
		if s.Columns[i].MergeMode == "" {
			s.Columns[i].MergeMode = ModeAccumulate
		}
	}
	return &s, nil
}

// SaveSchema writes the schema as pretty-printed JSON.
func SaveSchema(path string, s *Schema) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write schema %s: %w", path, err)
	}
	return nil
}
