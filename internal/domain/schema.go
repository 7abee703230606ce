package domain

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"
	"time"
)

//go:embed schema/aftershock.schema.json
var defaultSchemaJSON []byte

// FieldType is the value type a column must parse as.
type FieldType string

const (
	TypeString   FieldType = "string"
	TypeNumber   FieldType = "number"
	TypeDateTime FieldType = "date-time"
)

// FieldSpec declares the type and constraints of one column.
type FieldSpec struct {
	Name        string
	Type        FieldType
	Required    bool
	Nullable    bool
	Unique      bool
	Minimum     *float64
	Maximum     *float64
	MinLength   int
	Enum        []string
	After       *time.Time // values must be strictly later
	Description string
}

// Schema is the machine-checkable contract of an aftershock record.
type Schema struct {
	ID      string
	Version string

	columns []string
	fields  map[string]FieldSpec
	pairs   [][2]string
}

// DefaultSchema returns the schema embedded in the binary.
func DefaultSchema() (*Schema, error) {
	return LoadSchema(bytes.NewReader(defaultSchemaJSON))
}

// DefaultSchemaJSON returns the raw embedded schema document.
func DefaultSchemaJSON() []byte {
	return slices.Clone(defaultSchemaJSON)
}

// schemaDocument is the subset of JSON Schema the validator understands.
type schemaDocument struct {
	ID          string                      `json:"$id"`
	Version     string                      `json:"version"`
	ColumnOrder []string                    `json:"x-column-order"`
	Pairs       [][]string                  `json:"x-pairs"`
	Required    []string                    `json:"required"`
	Properties  map[string]propertyDocument `json:"properties"`
}

type propertyDocument struct {
	Type        typeList `json:"type"`
	Format      string   `json:"format"`
	Minimum     *float64 `json:"minimum"`
	Maximum     *float64 `json:"maximum"`
	MinLength   int      `json:"minLength"`
	Enum        []string `json:"enum"`
	After       string   `json:"x-after"`
	Unique      bool     `json:"x-unique"`
	Description string   `json:"description"`
}

// typeList accepts both "type": "number" and "type": ["number", "null"].
type typeList []string

func (t *typeList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = typeList{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("type must be a string or an array of strings: %w", err)
	}
	*t = many
	return nil
}

// LoadSchema parses a JSON Schema document into a Schema.
func LoadSchema(r io.Reader) (*Schema, error) {
	var doc schemaDocument
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if len(doc.Properties) == 0 {
		return nil, errors.New("schema declares no properties")
	}

	s := &Schema{
		ID:      doc.ID,
		Version: doc.Version,
		fields:  make(map[string]FieldSpec, len(doc.Properties)),
	}

	for name, prop := range doc.Properties {
		spec, err := fieldFromProperty(name, prop)
		if err != nil {
			return nil, err
		}
		s.fields[name] = spec
	}

	for _, name := range doc.Required {
		spec, ok := s.fields[name]
		if !ok {
			return nil, fmt.Errorf("required field %q is not a declared property", name)
		}
		spec.Required = true
		s.fields[name] = spec
	}

	for _, pair := range doc.Pairs {
		if len(pair) != 2 {
			return nil, fmt.Errorf("x-pairs entry %v must name exactly two fields", pair)
		}
		for _, name := range pair {
			if _, ok := s.fields[name]; !ok {
				return nil, fmt.Errorf("paired field %q is not a declared property", name)
			}
		}
		s.pairs = append(s.pairs, [2]string{pair[0], pair[1]})
	}

	columns, err := columnOrder(doc.ColumnOrder, s.fields)
	if err != nil {
		return nil, err
	}
	s.columns = columns

	return s, nil
}

func fieldFromProperty(name string, prop propertyDocument) (FieldSpec, error) {
	spec := FieldSpec{
		Name:        name,
		Minimum:     prop.Minimum,
		Maximum:     prop.Maximum,
		MinLength:   prop.MinLength,
		Enum:        prop.Enum,
		Unique:      prop.Unique,
		Description: prop.Description,
	}

	for _, t := range prop.Type {
		switch t {
		case "null":
			spec.Nullable = true
		case "string":
			spec.Type = TypeString
		case "number":
			spec.Type = TypeNumber
		default:
			return FieldSpec{}, fmt.Errorf("property %q: unsupported type %q", name, t)
		}
	}
	if spec.Type == "" {
		return FieldSpec{}, fmt.Errorf("property %q: missing type", name)
	}

	if prop.Format == "date-time" {
		if spec.Type != TypeString {
			return FieldSpec{}, fmt.Errorf("property %q: date-time format requires string type", name)
		}
		spec.Type = TypeDateTime
	}

	if prop.After != "" {
		if spec.Type != TypeDateTime {
			return FieldSpec{}, fmt.Errorf("property %q: x-after requires date-time format", name)
		}
		after, err := time.Parse(time.RFC3339, prop.After)
		if err != nil {
			return FieldSpec{}, fmt.Errorf("property %q: invalid x-after: %w", name, err)
		}
		after = after.UTC()
		spec.After = &after
	}

	if spec.Minimum != nil && spec.Maximum != nil && *spec.Minimum > *spec.Maximum {
		return FieldSpec{}, fmt.Errorf("property %q: minimum %g exceeds maximum %g", name, *spec.Minimum, *spec.Maximum)
	}
	return spec, nil
}

// columnOrder returns the declared column order, or the property names sorted
// when the document does not declare one. A declared order must list every
// property exactly once.
func columnOrder(declared []string, fields map[string]FieldSpec) ([]string, error) {
	if len(declared) == 0 {
		return slices.Sorted(maps.Keys(fields)), nil
	}
	seen := make(map[string]bool, len(declared))
	for _, name := range declared {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("x-column-order: %q is not a declared property", name)
		}
		if seen[name] {
			return nil, fmt.Errorf("x-column-order: %q listed twice", name)
		}
		seen[name] = true
	}
	if len(seen) != len(fields) {
		var missing []string
		for name := range fields {
			if !seen[name] {
				missing = append(missing, name)
			}
		}
		sort.Strings(missing)
		return nil, fmt.Errorf("x-column-order: properties not listed: %s", strings.Join(missing, ", "))
	}
	return slices.Clone(declared), nil
}

// Columns returns the template column names in order.
func (s *Schema) Columns() []string { return slices.Clone(s.columns) }

// Field returns the spec of the named column.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	f, ok := s.fields[name]
	return f, ok
}

// Fields returns every field spec in column order.
func (s *Schema) Fields() []FieldSpec {
	out := make([]FieldSpec, len(s.columns))
	for i, name := range s.columns {
		out[i] = s.fields[name]
	}
	return out
}

// Pairs returns the co-occurrence constraints.
func (s *Schema) Pairs() [][2]string { return slices.Clone(s.pairs) }

// partner returns the field paired with name, if any.
func (s *Schema) partner(name string) (string, bool) {
	for _, p := range s.pairs {
		switch name {
		case p[0]:
			return p[1], true
		case p[1]:
			return p[0], true
		}
	}
	return "", false
}

// MainShock returns the lower chronological bound on datetime, or the zero
// time when the schema declares none.
func (s *Schema) MainShock() time.Time {
	f, ok := s.fields[FieldDatetime]
	if !ok || f.After == nil {
		return time.Time{}
	}
	return *f.After
}

// WithMainShock returns a copy of the schema whose datetime field must be
// strictly later than t.
func (s *Schema) WithMainShock(t time.Time) *Schema {
	out := *s
	out.fields = maps.Clone(s.fields)
	if f, ok := out.fields[FieldDatetime]; ok {
		after := t.UTC()
		f.After = &after
		out.fields[FieldDatetime] = f
	}
	return &out
}

// CheckColumns compares a header row with the schema column set. Order does
// not matter; missing, unknown and repeated columns are all reported.
func (s *Schema) CheckColumns(header []string) error {
	seen := make(map[string]int, len(header))
	var unexpected []string
	for _, h := range header {
		h = strings.TrimSpace(h)
		seen[h]++
		if _, ok := s.fields[h]; !ok {
			unexpected = append(unexpected, h)
		} else if seen[h] == 2 {
			unexpected = append(unexpected, h+" (repeated)")
		}
	}

	var missing []string
	for _, name := range s.columns {
		if seen[name] == 0 {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}
	return &SchemaMismatchError{Missing: missing, Unexpected: unexpected}
}
