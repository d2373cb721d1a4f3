package queryir

import (
	"maps"
	"slices"
)

// Query is a JSON-shaped query description.
//
// Clause entries are kept in their raw form:
//
//	SelectExprs: "amount", "*", "category.*", {"total": {"$sum": "$amount"}},
//	             {"categoryName": "category.name"}
//	FilterExprs: condition objects, ANDed together
//	GroupExprs:  "field" or a function object
//	OrderExprs:  "field", {"field": "desc"}, or {"$month": "$date", "$dir": "asc"}
//
// A Query is a value. The builder methods return modified copies and never
// mutate the receiver, so a base query can be shared and refined freely.
type Query struct {
	Table       string
	SelectExprs []any
	FilterExprs []any
	GroupExprs  []any
	OrderExprs  []any
	LimitRows   *int
	OffsetRows  *int

	// IncludeDead includes soft-deleted rows on the root table and on joins.
	IncludeDead bool

	// RawMode skips the configured implicit filters of the root table.
	RawMode bool

	// SkipRefValidation turns off dead-reference nulling for id fields.
	SkipRefValidation bool

	// Calculation marks a query built with Calculate: one aggregate value.
	Calculation bool

	// TableOptions is passed through to schema view resolution.
	TableOptions map[string]any
}

// Q starts a query on table.
func Q(table string) Query {
	return Query{Table: table}
}

func (q Query) clone() Query {
	q.SelectExprs = slices.Clone(q.SelectExprs)
	q.FilterExprs = slices.Clone(q.FilterExprs)
	q.GroupExprs = slices.Clone(q.GroupExprs)
	q.OrderExprs = slices.Clone(q.OrderExprs)
	q.TableOptions = maps.Clone(q.TableOptions)
	if q.LimitRows != nil {
		n := *q.LimitRows
		q.LimitRows = &n
	}
	if q.OffsetRows != nil {
		n := *q.OffsetRows
		q.OffsetRows = &n
	}
	return q
}

// Filter adds a condition object. Filters accumulate and are ANDed.
func (q Query) Filter(cond map[string]any) Query {
	out := q.clone()
	out.FilterExprs = append(out.FilterExprs, cond)
	return out
}

// Unfilter drops every filter object that constrains one of fields at
// its top level.
func (q Query) Unfilter(fields ...string) Query {
	out := q.clone()
	out.FilterExprs = slices.DeleteFunc(out.FilterExprs, func(f any) bool {
		m, ok := f.(map[string]any)
		if !ok {
			return false
		}
		for _, field := range fields {
			if _, ok := m[field]; ok {
				return true
			}
		}
		return false
	})
	return out
}

// Select replaces the select list.
func (q Query) Select(exprs ...any) Query {
	out := q.clone()
	out.SelectExprs = slices.Clone(exprs)
	out.Calculation = false
	return out
}

// Calculate selects a single named expression, {result: expr}.
func (q Query) Calculate(expr any) Query {
	out := q.clone()
	out.SelectExprs = []any{map[string]any{"result": expr}}
	out.Calculation = true
	return out
}

// GroupBy appends group-by expressions.
func (q Query) GroupBy(exprs ...any) Query {
	out := q.clone()
	out.GroupExprs = append(out.GroupExprs, exprs...)
	return out
}

// OrderBy appends order-by expressions.
func (q Query) OrderBy(exprs ...any) Query {
	out := q.clone()
	out.OrderExprs = append(out.OrderExprs, exprs...)
	return out
}

// Limit sets LIMIT.
func (q Query) Limit(n int) Query {
	out := q.clone()
	out.LimitRows = &n
	return out
}

// Offset sets OFFSET.
func (q Query) Offset(n int) Query {
	out := q.clone()
	out.OffsetRows = &n
	return out
}

// Raw skips the root table's implicit filters.
func (q Query) Raw() Query {
	out := q.clone()
	out.RawMode = true
	return out
}

// WithDead includes soft-deleted rows.
func (q Query) WithDead() Query {
	out := q.clone()
	out.IncludeDead = true
	return out
}

// WithoutValidatedRefs turns off dead-reference nulling.
func (q Query) WithoutValidatedRefs() Query {
	out := q.clone()
	out.SkipRefValidation = true
	return out
}

// Options sets the table options handed to view resolution.
func (q Query) Options(opts map[string]any) Query {
	out := q.clone()
	out.TableOptions = maps.Clone(opts)
	return out
}

// ValidateRefs reports whether dead-reference nulling is on.
func (q Query) ValidateRefs() bool {
	return !q.SkipRefValidation
}

// Description returns the JSON-shaped form of the query, the same shape
// DecodeQuery accepts. It is the input to cache keys.
func (q Query) Description() map[string]any {
	d := map[string]any{
		"table":        q.Table,
		"select":       orEmpty(q.SelectExprs),
		"filter":       orEmpty(q.FilterExprs),
		"groupBy":      orEmpty(q.GroupExprs),
		"orderBy":      orEmpty(q.OrderExprs),
		"withDead":     q.IncludeDead,
		"rawMode":      q.RawMode,
		"validateRefs": q.ValidateRefs(),
	}
	if q.LimitRows != nil {
		d["limit"] = *q.LimitRows
	}
	if q.OffsetRows != nil {
		d["offset"] = *q.OffsetRows
	}
	if q.Calculation {
		d["calculation"] = true
	}
	if len(q.TableOptions) > 0 {
		d["tableOptions"] = q.TableOptions
	}
	return d
}

func orEmpty(list []any) []any {
	if list == nil {
		return []any{}
	}
	return list
}
