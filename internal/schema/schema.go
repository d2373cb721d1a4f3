package schema

import (
	"fmt"

	"github.com/roach88/aql/internal/ir"
)

// TombstoneField is the conventional soft-delete column name.
const TombstoneField = "tombstone"

// Field describes one column.
type Field struct {
	Name string
	Type ir.Type

	// Ref names the table this field joins to. Only id fields may set it.
	Ref string

	// Tombstone marks the soft-delete column. A field named "tombstone"
	// is a tombstone whether or not the flag is set.
	Tombstone bool
}

// IsTombstone reports whether f is the soft-delete column.
func (f Field) IsTombstone() bool {
	return f.Tombstone || f.Name == TombstoneField
}

// Table is an ordered list of fields.
type Table struct {
	Name   string
	Fields []Field
	index  map[string]int
}

// NewTable creates a table from fields in declaration order.
func NewTable(name string, fields ...Field) *Table {
	t := &Table{Name: name, Fields: fields}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Fields))
	for i, f := range t.Fields {
		if _, dup := t.index[f.Name]; !dup {
			t.index[f.Name] = i
		}
	}
}

// Field looks up a field by name.
func (t *Table) Field(name string) (Field, bool) {
	i, ok := t.index[name]
	if !ok {
		return Field{}, false
	}
	return t.Fields[i], true
}

// FieldNames returns field names in declaration order.
func (t *Table) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Tombstone returns the soft-delete column, if the table has one.
func (t *Table) Tombstone() (string, bool) {
	for _, f := range t.Fields {
		if f.IsTombstone() {
			return f.Name, true
		}
	}
	return "", false
}

// Schema is an immutable, validated set of tables.
type Schema struct {
	tables []*Table
	index  map[string]*Table
}

// New validates tables and builds a Schema.
//
// Validation rules:
//   - table and field names are non-empty and unique
//   - every field has a schema type (see ir.ParseSchemaType)
//   - ref targets exist and ref fields have type id
//   - a table has at most one tombstone field
func New(tables ...*Table) (*Schema, error) {
	s := &Schema{index: make(map[string]*Table, len(tables))}

	for _, t := range tables {
		if t.Name == "" {
			return nil, &Error{Path: "tables", Message: "table name is required"}
		}
		if _, dup := s.index[t.Name]; dup {
			return nil, &Error{Path: "tables." + t.Name, Message: "duplicate table"}
		}
		t.reindex()
		s.index[t.Name] = t
		s.tables = append(s.tables, t)
	}

	for _, t := range s.tables {
		if err := s.validateTable(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Schema) validateTable(t *Table) error {
	seen := make(map[string]bool, len(t.Fields))
	tombstones := 0
	for _, f := range t.Fields {
		path := t.Name + "." + f.Name
		if f.Name == "" {
			return &Error{Path: t.Name, Message: "field name is required"}
		}
		if seen[f.Name] {
			return &Error{Path: path, Message: "duplicate field"}
		}
		seen[f.Name] = true

		if _, err := ir.ParseSchemaType(string(f.Type)); err != nil {
			return &Error{Path: path, Message: err.Error()}
		}
		if f.Ref != "" {
			if f.Type != ir.TypeID {
				return &Error{Path: path, Message: fmt.Sprintf("ref field must have type id, got %s", f.Type)}
			}
			if _, ok := s.index[f.Ref]; !ok {
				return &Error{Path: path, Message: fmt.Sprintf("ref target table %q does not exist", f.Ref)}
			}
		}
		if f.IsTombstone() {
			tombstones++
		}
	}
	if tombstones > 1 {
		return &Error{Path: t.Name, Message: "more than one tombstone field"}
	}
	return nil
}

// MustNew is New for schemas known to be valid, such as test fixtures.
func MustNew(tables ...*Table) *Schema {
	s, err := New(tables...)
	if err != nil {
		panic(err)
	}
	return s
}

// Table looks up a table by name.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.index[name]
	return t, ok
}

// Tables returns tables in declaration order.
func (s *Schema) Tables() []*Table {
	return s.tables
}
