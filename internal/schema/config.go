package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/aql/internal/queryir"
)

// ViewOptions is the context a view resolver receives.
type ViewOptions struct {
	WithDead     bool
	IsJoin       bool
	TableOptions map[string]any
}

// View maps a table onto the relation it is read from.
type View struct {
	// Name is the view the compiler reads instead of the table.
	Name string `json:"name" yaml:"name"`

	// Fields maps public field names to internal column names. Fields not
	// listed keep their name.
	Fields map[string]string `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// Config customizes compilation for one deployment of a schema.
//
// Every member is optional. The zero Config reads tables directly and
// adds no implicit filters.
type Config struct {
	// TableView resolves the relation a table is read from. When nil,
	// Views[name].Name is used, falling back to the table name.
	TableView func(name string, opts ViewOptions) string

	// TableFilters returns implicit filters for a table. When nil,
	// Filters[name] is used. Filters must be plain condition objects
	// whose keys are fields of that table (no paths).
	TableFilters func(name string) []any

	// CustomizeQuery rewrites a query before it is compiled.
	CustomizeQuery func(q queryir.Query) queryir.Query

	Views   map[string]View
	Filters map[string][]any
}

// StaticViews returns a TableView resolver over a fixed table → view map.
func StaticViews(views map[string]string) func(string, ViewOptions) string {
	return func(name string, _ ViewOptions) string {
		return views[name]
	}
}

// ResolveView returns the relation name for table, never "".
func (c *Config) ResolveView(name string, opts ViewOptions) string {
	if c == nil {
		return name
	}
	var view string
	if c.TableView != nil {
		view = c.TableView(name, opts)
	} else if v, ok := c.Views[name]; ok {
		view = v.Name
	}
	if view == "" {
		return name
	}
	return view
}

// FiltersFor returns the implicit filters of table.
func (c *Config) FiltersFor(name string) []any {
	if c == nil {
		return nil
	}
	if c.TableFilters != nil {
		return c.TableFilters(name)
	}
	return c.Filters[name]
}

// Customize applies the rewrite hook, if any.
func (c *Config) Customize(q queryir.Query) queryir.Query {
	if c == nil || c.CustomizeQuery == nil {
		return q
	}
	return c.CustomizeQuery(q)
}

// ColumnName returns the internal column backing a public field.
func (c *Config) ColumnName(table, field string) string {
	if c == nil {
		return field
	}
	if col, ok := c.Views[table].Fields[field]; ok && col != "" {
		return col
	}
	return field
}

// Validate checks static view and filter definitions against s.
//
// The id and tombstone columns cannot be remapped: reference validation
// joins the raw table and reads them by name.
func (c *Config) Validate(s *Schema) error {
	if c == nil {
		return nil
	}
	for _, name := range slices.Sorted(maps.Keys(c.Views)) {
		t, ok := s.Table(name)
		if !ok {
			return &Error{Path: "views." + name, Message: "table does not exist"}
		}
		for _, field := range slices.Sorted(maps.Keys(c.Views[name].Fields)) {
			f, ok := t.Field(field)
			if !ok {
				return &Error{Path: "views." + name + ".fields." + field, Message: "field does not exist"}
			}
			if f.Name == "id" || f.IsTombstone() {
				return &Error{Path: "views." + name + ".fields." + field, Message: "id and tombstone fields cannot be remapped"}
			}
		}
	}
	for _, name := range slices.Sorted(maps.Keys(c.Filters)) {
		t, ok := s.Table(name)
		if !ok {
			return &Error{Path: "filters." + name, Message: "table does not exist"}
		}
		for i, filter := range c.Filters[name] {
			m, ok := filter.(map[string]any)
			if !ok {
				return &Error{Path: fmt.Sprintf("filters.%s[%d]", name, i), Message: "only object filters are supported"}
			}
			for _, key := range FilterFields(m) {
				if strings.Contains(key, ".") {
					return &Error{Path: fmt.Sprintf("filters.%s[%d]", name, i), Message: "field names cannot contain paths"}
				}
				if _, ok := t.Field(key); !ok {
					return &Error{Path: fmt.Sprintf("filters.%s[%d].%s", name, i, key), Message: "field does not exist"}
				}
			}
		}
	}
	return nil
}

// FilterFields lists the field names a condition object constrains,
// descending into $and and $or groups. Operator objects under a field are
// not inspected.
func FilterFields(filter map[string]any) []string {
	var fields []string
	for _, key := range slices.Sorted(maps.Keys(filter)) {
		if key != "$and" && key != "$or" {
			if !strings.HasPrefix(key, "$") {
				fields = append(fields, key)
			}
			continue
		}
		switch group := filter[key].(type) {
		case map[string]any:
			fields = append(fields, FilterFields(group)...)
		case []any:
			for _, item := range group {
				if m, ok := item.(map[string]any); ok {
					fields = append(fields, FilterFields(m)...)
				}
			}
		}
	}
	return fields
}
