package queryir

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a Query, as read from YAML or JSON
// (JSON is accepted because it is a subset of YAML).
//
//	table: transactions
//	select: [id, {categoryName: category.name}]
//	filter: {amount: {$gt: 0}}
//	orderBy: [{date: desc}]
//	limit: 10
//
// Clause fields accept a single entry or a list.
type Document struct {
	Table        string         `yaml:"table" json:"table"`
	Select       any            `yaml:"select,omitempty" json:"select,omitempty"`
	Filter       any            `yaml:"filter,omitempty" json:"filter,omitempty"`
	GroupBy      any            `yaml:"groupBy,omitempty" json:"groupBy,omitempty"`
	OrderBy      any            `yaml:"orderBy,omitempty" json:"orderBy,omitempty"`
	Limit        *int           `yaml:"limit,omitempty" json:"limit,omitempty"`
	Offset       *int           `yaml:"offset,omitempty" json:"offset,omitempty"`
	WithDead     bool           `yaml:"withDead,omitempty" json:"withDead,omitempty"`
	RawMode      bool           `yaml:"rawMode,omitempty" json:"rawMode,omitempty"`
	ValidateRefs *bool          `yaml:"validateRefs,omitempty" json:"validateRefs,omitempty"`
	Calculation  bool           `yaml:"calculation,omitempty" json:"calculation,omitempty"`
	TableOptions map[string]any `yaml:"tableOptions,omitempty" json:"tableOptions,omitempty"`
}

// Query converts the document into a Query. validateRefs defaults to true.
func (d Document) Query() (Query, error) {
	if d.Table == "" {
		return Query{}, fmt.Errorf("table is required")
	}

	q := Query{
		Table:        d.Table,
		SelectExprs:  listOf(d.Select),
		FilterExprs:  listOf(d.Filter),
		GroupExprs:   listOf(d.GroupBy),
		OrderExprs:   listOf(d.OrderBy),
		LimitRows:    d.Limit,
		OffsetRows:   d.Offset,
		IncludeDead:  d.WithDead,
		RawMode:      d.RawMode,
		Calculation:  d.Calculation,
		TableOptions: d.TableOptions,
	}
	if d.ValidateRefs != nil {
		q.SkipRefValidation = !*d.ValidateRefs
	}
	return q, nil
}

// DecodeQuery reads a YAML or JSON query document. Unknown top-level keys
// are rejected.
func DecodeQuery(r io.Reader) (Query, error) {
	var doc Document
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&doc); err != nil {
		if err == io.EOF {
			return Query{}, fmt.Errorf("empty query document")
		}
		return Query{}, fmt.Errorf("failed to parse query: %w", err)
	}
	return doc.Query()
}

// ParseQuery is DecodeQuery over a byte slice.
func ParseQuery(data []byte) (Query, error) {
	return DecodeQuery(bytes.NewReader(data))
}

func listOf(v any) []any {
	if v == nil {
		return nil
	}
	if list, ok := asList(v); ok {
		return list
	}
	return []any{v}
}
