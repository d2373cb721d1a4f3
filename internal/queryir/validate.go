package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/aql/internal/ir"
)

// SelectItem is one output column of a select clause.
//
// Star items ("*", "category.*") expand against the schema in the
// compiler; their Expr is nil.
type SelectItem struct {
	Name   string
	Expr   Expr
	Star   bool
	Source any
}

// OrderItem is one order-by entry. Dir is "", "asc" or "desc".
type OrderItem struct {
	Expr   Expr
	Dir    string
	Source any
}

// ParseSelectItem parses one select entry. Object entries may name
// several outputs; they are returned in sorted name order.
func ParseSelectItem(raw any) ([]SelectItem, error) {
	switch v := raw.(type) {
	case string:
		if strings.Contains(v, "*") {
			return []SelectItem{{Name: v, Star: true, Source: raw}}, nil
		}
		return []SelectItem{{Name: v, Expr: FieldRef{Path: v, Source: "$" + v}, Source: raw}}, nil
	case map[string]any:
		items := make([]SelectItem, 0, len(v))
		for _, name := range sortedKeys(v) {
			if strings.HasPrefix(name, "$") {
				return nil, UnnamedFunctionError(name)
			}
			expr, err := parseNamedExpr(v[name])
			if err != nil {
				return nil, err
			}
			items = append(items, SelectItem{Name: name, Expr: expr, Source: map[string]any{name: v[name]}})
		}
		return items, nil
	}
	return nil, ir.NewSyntaxError("Invalid select expression: %s", describe(raw))
}

// UnnamedFunctionError is raised when a select entry is a bare function.
func UnnamedFunctionError(name string) *ir.CompileError {
	return ir.NewSyntaxError("Invalid field “%s”, are you trying to select a function? You need to name the expression", name)
}

// parseNamedExpr parses the value of a named select entry: a string is a
// field path, an object a function call, anything else a literal.
func parseNamedExpr(raw any) (Expr, error) {
	switch v := raw.(type) {
	case string:
		return FieldRef{Path: v, Source: "$" + v}, nil
	case map[string]any:
		call, err := ParseFunction(v)
		if err != nil {
			return nil, err
		}
		return call, nil
	}
	return ParseLiteral(raw)
}

// ParseGroupItem parses one group-by entry.
func ParseGroupItem(raw any) (Expr, error) {
	if s, ok := raw.(string); ok {
		return FieldRef{Path: s, Source: "$" + s}, nil
	}
	call, err := ParseFunction(raw)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// ParseOrderItem parses one order-by entry:
//
//	"date"                              → date
//	{"date": "desc"}                    → date desc
//	{"$month": "$date", "$dir": "asc"}  → CAST(...) asc
func ParseOrderItem(raw any) (OrderItem, error) {
	switch v := raw.(type) {
	case string:
		return OrderItem{Expr: FieldRef{Path: v, Source: "$" + v}, Source: raw}, nil
	case map[string]any:
		if len(v) == 1 && !hasFunctionKey(v) {
			for field, dir := range v {
				d, err := orderDirection(dir)
				if err != nil {
					return OrderItem{}, err
				}
				return OrderItem{Expr: FieldRef{Path: field, Source: "$" + field}, Dir: d, Source: raw}, nil
			}
		}

		fn := make(map[string]any, len(v))
		var dir any
		for k, val := range v {
			if k == "$dir" {
				dir = val
				continue
			}
			fn[k] = val
		}
		d, err := orderDirection(dir)
		if err != nil {
			return OrderItem{}, err
		}
		call, err := ParseFunction(fn)
		if err != nil {
			return OrderItem{}, err
		}
		return OrderItem{Expr: call, Dir: d, Source: raw}, nil
	}
	return OrderItem{}, ir.NewSyntaxError("Invalid order expression: %s", describe(raw))
}

func orderDirection(dir any) (string, error) {
	if dir == nil {
		return "", nil
	}
	if s, ok := dir.(string); ok && (s == "asc" || s == "desc") {
		return s, nil
	}
	return "", ir.NewSyntaxError("Invalid order direction: %v", dir)
}

// IsAggregate reports whether q computes grouped results: it has a
// group-by clause, or a select expression calls an aggregate function at
// any depth.
func IsAggregate(q Query) bool {
	if len(q.GroupExprs) > 0 {
		return true
	}
	for _, raw := range q.SelectExprs {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for _, value := range m {
			if containsAggregate(value) {
				return true
			}
		}
	}
	return false
}

func containsAggregate(raw any) bool {
	m, ok := raw.(map[string]any)
	if !ok {
		return false
	}
	for name, args := range m {
		if f, ok := LookupFunc(name); ok && f.IsAggregate() {
			return true
		}
		list, ok := asList(args)
		if !ok {
			list = []any{args}
		}
		for _, arg := range list {
			if containsAggregate(arg) {
				return true
			}
		}
	}
	return false
}

// Validate checks the structure of every clause without consulting a
// schema. It returns the first problem found as an *ir.CompileError.
//
// Validate is a pure function with no side effects.
func Validate(q Query) error {
	if q.Table == "" {
		return ir.NewSyntaxError("Query has no table")
	}
	for _, raw := range q.SelectExprs {
		if _, err := ParseSelectItem(raw); err != nil {
			return fmt.Errorf("select: %w", err)
		}
	}
	if _, err := ParseConditions(q.FilterExprs); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	for _, raw := range q.GroupExprs {
		if _, err := ParseGroupItem(raw); err != nil {
			return fmt.Errorf("groupBy: %w", err)
		}
	}
	for _, raw := range q.OrderExprs {
		if _, err := ParseOrderItem(raw); err != nil {
			return fmt.Errorf("orderBy: %w", err)
		}
	}
	if q.LimitRows != nil && *q.LimitRows < 0 {
		return ir.NewSyntaxError("Invalid limit: %d", *q.LimitRows)
	}
	if q.OffsetRows != nil && *q.OffsetRows < 0 {
		return ir.NewSyntaxError("Invalid offset: %d", *q.OffsetRows)
	}
	return nil
}
