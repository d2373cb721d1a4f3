package queryir

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/roach88/aql/internal/ir"
)

// ParseExpr parses one JSON-shaped expression.
//
//	"$amount"            → FieldRef{Path: "amount"}
//	"$category.name"     → FieldRef{Path: "category.name"}
//	":minAmount"         → Param{Name: "minAmount"}
//	{"$sum": "$amount"}  → Call{Func: FuncSum, Args: [FieldRef]}
//	"groceries", 5, nil  → Literal
//
// Objects without a "$" key and other unsupported shapes fail with a
// LITERAL_ERROR.
func ParseExpr(raw any) (Expr, error) {
	switch v := raw.(type) {
	case string:
		if strings.HasPrefix(v, "$") {
			return FieldRef{Path: v[1:], Source: raw}, nil
		}
		if strings.HasPrefix(v, ":") {
			if len(v) == 1 {
				return nil, ir.NewSyntaxError("Invalid parameter reference: %s", v)
			}
			return Param{Name: v[1:], Source: raw}, nil
		}
	case map[string]any:
		if hasFunctionKey(v) {
			call, err := ParseFunction(v)
			if err != nil {
				return nil, err
			}
			return call, nil
		}
	}
	return ParseLiteral(raw)
}

// ParseLiteral classifies a native value as a Literal.
func ParseLiteral(raw any) (Literal, error) {
	if t, ok := raw.(time.Time); ok {
		return Literal{Value: ir.Int(ir.DateToInt(t)), Type: ir.TypeDate, Source: raw}, nil
	}

	v, err := ir.FromNative(raw)
	if err != nil {
		return Literal{}, ir.NewLiteralError("Unsupported type of expression: %v", err)
	}

	switch val := v.(type) {
	case ir.Null:
		return Literal{Value: val, Type: ir.TypeNull, Source: raw}, nil
	case ir.String:
		// "\$" escapes a leading dollar so the string is not a field reference
		s := strings.ReplaceAll(string(val), `\$`, "$")
		return Literal{Value: ir.String(s), Type: ir.TypeString, Source: raw}, nil
	case ir.Int:
		return Literal{Value: val, Type: ir.TypeInteger, Source: raw}, nil
	case ir.Float:
		return Literal{Value: val, Type: ir.TypeFloat, Source: raw}, nil
	case ir.Bool:
		return Literal{Value: val, Type: ir.TypeBoolean, Source: raw}, nil
	case ir.Array:
		return Literal{Value: val, Type: ir.TypeArray, Source: raw}, nil
	case ir.Object:
		return Literal{}, ir.NewLiteralError("Unsupported type of expression: %s", describe(raw))
	}
	return Literal{}, ir.NewLiteralError("Unsupported type of expression: %T", raw)
}

// ParseFunction parses an object of the form {"$name": arg} or
// {"$name": [arg, ...]}.
func ParseFunction(raw any) (Call, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Call{}, ir.NewSyntaxError("Expected a function call, got %s", describe(raw))
	}
	if len(m) != 1 {
		keys := sortedKeys(m)
		return Call{}, ir.NewSyntaxError("A function call must have exactly one key, got %v", keys)
	}

	var name string
	var argValue any
	for k, v := range m {
		name, argValue = k, v
	}

	if !strings.HasPrefix(name, "$") {
		return Call{}, ir.NewSyntaxError("Unknown property “%s.” Did you mean to call a function? Try prefixing it with $", name)
	}

	f, ok := LookupFunc(name)
	if !ok {
		return Call{}, within(ir.NewUnknownFunctionError(name, suggest(name, funcNames)), raw)
	}

	rawArgs, ok := asList(argValue)
	if !ok {
		rawArgs = []any{argValue}
	}

	call := Call{Func: f, NArgs: len(rawArgs), Source: raw}
	if f == FuncCondition {
		if len(rawArgs) == 1 {
			conds, err := ParseConditions(rawArgs[0])
			if err != nil {
				return Call{}, within(err, raw)
			}
			call.Conds = conds
		}
		return call, nil
	}

	call.Args = make([]Expr, len(rawArgs))
	for i, arg := range rawArgs {
		expr, err := ParseExpr(arg)
		if err != nil {
			return Call{}, within(err, raw)
		}
		call.Args[i] = expr
	}
	return call, nil
}

// ParseConditions parses a filter tree: an object (one condition per key,
// visited in sorted order) or an array of such objects. Falsy array
// entries are skipped. A nil tree has no conditions.
func ParseConditions(raw any) ([]Condition, error) {
	if raw == nil {
		return nil, nil
	}
	if m, ok := raw.(map[string]any); ok {
		return parseConditionObject(m)
	}

	list, ok := asList(raw)
	if !ok {
		return nil, ir.NewSyntaxError("Invalid condition: %s", describe(raw))
	}

	var conds []Condition
	for _, elem := range list {
		if isFalsy(elem) {
			continue
		}
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, ir.NewSyntaxError("Invalid condition: %s", describe(elem))
		}
		parsed, err := parseConditionObject(m)
		if err != nil {
			return nil, err
		}
		conds = append(conds, parsed...)
	}
	return conds, nil
}

func parseConditionObject(m map[string]any) ([]Condition, error) {
	conds := make([]Condition, 0, len(m))
	for _, key := range sortedKeys(m) {
		value := m[key]
		source := map[string]any{key: value}

		if key == "$and" || key == "$or" {
			kind := And
			if key == "$or" {
				kind = Or
			}
			if isFalsy(value) {
				conds = append(conds, Logical{Kind: kind, Omitted: true, Source: source})
				continue
			}
			nested, err := ParseConditions(value)
			if err != nil {
				return nil, err
			}
			conds = append(conds, Logical{Kind: kind, Conds: nested, Source: source})
			continue
		}

		ops, err := parseFieldOps(key, value)
		if err != nil {
			return nil, err
		}
		conds = append(conds, FieldCond{Field: key, Ops: ops, Source: source})
	}
	return conds, nil
}

// parseFieldOps handles the three value forms of a field condition:
// scalar (implicit $eq), operator object, or array of either.
func parseFieldOps(field string, value any) ([]OpCond, error) {
	if m, ok := value.(map[string]any); ok {
		return parseOpObject(field, m)
	}

	if list, ok := asList(value); ok {
		var ops []OpCond
		for _, elem := range list {
			parsed, err := parseFieldOps(field, elem)
			if err != nil {
				return nil, err
			}
			ops = append(ops, parsed...)
		}
		return ops, nil
	}

	operand, err := ParseExpr(value)
	if err != nil {
		return nil, within(err, map[string]any{field: value})
	}
	return []OpCond{{Op: OpEq, Operand: operand, Source: map[string]any{"$eq": value}}}, nil
}

func parseOpObject(field string, m map[string]any) ([]OpCond, error) {
	rawTransform, hasTransform := m["$transform"]

	var transform *Call
	if hasTransform && rawTransform != nil {
		var fn any
		switch t := rawTransform.(type) {
		case string:
			// "$lower" is shorthand for {"$lower": "$"}
			fn = map[string]any{t: "$"}
		case map[string]any:
			fn = t
		default:
			return nil, ir.NewSyntaxError("Invalid $transform for field “%s”: %s", field, describe(rawTransform))
		}
		call, err := ParseFunction(fn)
		if err != nil {
			return nil, err
		}
		transform = &call
	}

	var ops []OpCond
	for _, key := range sortedKeys(m) {
		if key == "$transform" {
			continue
		}
		node := map[string]any{field: map[string]any{key: m[key]}}
		op, ok := LookupOperator(key)
		if !ok {
			return nil, within(ir.NewUnknownOperatorError(key, suggest(key, operatorNames)), node)
		}
		operand, err := ParseExpr(m[key])
		if err != nil {
			return nil, within(err, node)
		}

		source := map[string]any{key: m[key]}
		if hasTransform {
			source["$transform"] = rawTransform
		}
		ops = append(ops, OpCond{Op: op, Operand: operand, Transform: transform, Source: source})
	}

	if len(ops) == 0 {
		return nil, ir.NewSyntaxError("Missing operator for field “%s”", field)
	}
	return ops, nil
}

// within records node on a compile error raised beneath it.
func within(err error, node any) error {
	var ce *ir.CompileError
	if errors.As(err, &ce) {
		ce.Within(node)
	}
	return err
}

func hasFunctionKey(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

// asList normalises the slice shapes callers commonly build.
func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case []map[string]any:
		out := make([]any, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, true
	case []string:
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// isFalsy matches the values a filter may use to switch a clause off.
func isFalsy(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case bool:
		return !val
	case string:
		return val == ""
	case int:
		return val == 0
	case int64:
		return val == 0
	case float64:
		return val == 0
	case json.Number:
		f, err := val.Float64()
		return err == nil && f == 0
	case ir.Null:
		return true
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func describe(v any) string {
	b, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
