package querysql

import (
	"strings"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/textnorm"
)

// compileConditions compiles a condition list into SQL terms. Omitted
// groups contribute nothing; the caller decides how terms combine.
func (c *compileContext) compileConditions(conds []queryir.Condition) ([]string, error) {
	out := make([]string, 0, len(conds))
	for _, cond := range conds {
		switch n := cond.(type) {
		case queryir.Logical:
			if n.Omitted {
				continue
			}
			sql, err := c.compileGroup(n.Kind, n.Conds)
			if err != nil {
				return nil, err
			}
			out = append(out, sql)
		case queryir.FieldCond:
			terms := make([]string, 0, len(n.Ops))
			for _, op := range n.Ops {
				sql, err := c.compileOp(n.Field, op)
				if err != nil {
					return nil, err
				}
				terms = append(terms, sql)
			}
			out = append(out, strings.Join(terms, " AND "))
		}
	}
	return out, nil
}

// compileGroup joins conditions under AND or OR. An empty group is the
// identity of its operator: 1 for AND, 0 for OR.
func (c *compileContext) compileGroup(kind queryir.LogicalKind, conds []queryir.Condition) (string, error) {
	terms, err := c.compileConditions(conds)
	if err != nil {
		return "", err
	}
	if len(terms) == 0 {
		if kind == queryir.Or {
			return "0", nil
		}
		return "1", nil
	}
	sep := "\n  AND "
	if kind == queryir.Or {
		sep = "\n  OR "
	}
	return "(" + strings.Join(terms, sep) + ")", nil
}

// compileOp compiles one operator applied to a field. The left side
// compiles first so placeholders appear in text order.
func (c *compileContext) compileOp(field string, op queryir.OpCond) (sql string, err error) {
	defer c.enter(frameOp, field, op.Source)(&err)

	start := len(c.params)

	var lhs typedValue
	if op.Transform != nil {
		saved := c.implicitField
		c.implicitField = field
		lhs, err = c.compileFunction(*op.Transform)
		c.implicitField = saved
	} else {
		lhs, err = c.compileParsed(queryir.FieldRef{Path: field, Source: "$" + field})
	}
	if err != nil {
		return "", err
	}

	rhs, err := c.compileParsed(op.Operand)
	if err != nil {
		return "", err
	}

	switch op.Op {
	case queryir.OpGte, queryir.OpLte, queryir.OpGt, queryir.OpLt:
		left, right, err := c.sides(lhs, rhs, ir.TypeUnset, lhs.typ)
		if err != nil {
			return "", err
		}
		return left + " " + comparison[op.Op] + " " + right, nil

	case queryir.OpEq, queryir.OpNe:
		return c.compileEquality(op.Op, lhs, rhs, start)

	case queryir.OpOneof:
		return c.compileOneof(lhs, rhs)

	case queryir.OpLike, queryir.OpNotlike:
		left, right, err := c.sides(lhs, rhs, ir.TypeString, ir.TypeString)
		if err != nil {
			return "", err
		}
		pattern := "NORMALISE(" + right + ")"
		if casted, _ := c.cast(rhs, ir.TypeString); casted.literal {
			if s, ok := casted.value.(ir.String); ok {
				pattern = quoteString(textnorm.Normalise(string(s)))
			}
		}
		like := "UNICODE_LIKE(" + pattern + ", NORMALISE(" + left + "))"
		if op.Op == queryir.OpNotlike {
			return "(NOT " + like + "\n OR " + left + " IS NULL)", nil
		}
		return like, nil

	case queryir.OpRegexp:
		left, right, err := c.sides(lhs, rhs, ir.TypeString, ir.TypeString)
		if err != nil {
			return "", err
		}
		return "REGEXP(" + right + ", " + left + ")", nil
	}

	return "", ir.NewUnknownOperatorError(op.Op.String(), "")
}

var comparison = map[queryir.Operator]string{
	queryir.OpGte: ">=",
	queryir.OpLte: "<=",
	queryir.OpGt:  ">",
	queryir.OpLt:  "<",
}

// sides renders both operands, casting each to its target when set.
func (c *compileContext) sides(lhs, rhs typedValue, lt, rt ir.Type) (string, string, error) {
	left, err := c.val(lhs, lt)
	if err != nil {
		return "", "", err
	}
	right, err := c.val(rhs, rt)
	if err != nil {
		return "", "", err
	}
	return left, right, nil
}

// compileEquality handles $eq and $ne.
//
// Semantics:
//   - against a literal null: IS NULL / IS NOT NULL
//   - against a parameter: a CASE that treats a NULL column and a NULL
//     argument as equal; the operator's placeholders are bound twice
//   - otherwise: plain comparison, with $ne also matching NULL columns
func (c *compileContext) compileEquality(op queryir.Operator, lhs, rhs typedValue, start int) (string, error) {
	casted, err := c.cast(rhs, lhs.typ)
	if err != nil {
		return "", err
	}
	left, err := c.val(lhs, ir.TypeUnset)
	if err != nil {
		return "", err
	}

	if casted.typ == ir.TypeNull {
		if op == queryir.OpNe {
			return left + " IS NOT NULL", nil
		}
		return left + " IS NULL", nil
	}

	right, err := render(casted)
	if err != nil {
		return "", err
	}

	if rhs.typ == ir.TypeParam {
		c.params = append(c.params, c.params[start:]...)
		if op == queryir.OpNe {
			return "CASE WHEN " + left + " IS NULL THEN " + right + " IS NOT NULL ELSE " + left + " IS NOT " + right + " END", nil
		}
		return "CASE WHEN " + left + " IS NULL THEN " + right + " IS NULL ELSE " + left + " = " + right + " END", nil
	}

	if op == queryir.OpNe {
		return "(" + left + " != " + right + " OR " + left + " IS NULL)", nil
	}
	return left + " = " + right, nil
}

// compileOneof renders an IN list from a literal array, casting every
// element to the field's type and dropping duplicates.
func (c *compileContext) compileOneof(lhs, rhs typedValue) (string, error) {
	arr, ok := rhs.value.(ir.Array)
	if !rhs.literal || !ok {
		return "", ir.NewCastError("Can’t convert %s to array", rhs.typ)
	}
	left, err := c.val(lhs, ir.TypeUnset)
	if err != nil {
		return "", err
	}

	seen := make(map[string]bool, len(arr))
	items := make([]string, 0, len(arr))
	for _, elem := range arr {
		item, err := c.val(literalOf(elem, literalType(elem)), lhs.typ)
		if err != nil {
			return "", err
		}
		if seen[item] {
			continue
		}
		seen[item] = true
		items = append(items, item)
	}
	return left + " IN (" + strings.Join(items, ",") + ")", nil
}

func literalType(v ir.Value) ir.Type {
	switch v.(type) {
	case ir.Null:
		return ir.TypeNull
	case ir.String:
		return ir.TypeString
	case ir.Int:
		return ir.TypeInteger
	case ir.Float:
		return ir.TypeFloat
	case ir.Bool:
		return ir.TypeBoolean
	case ir.Array:
		return ir.TypeArray
	}
	return ir.TypeAny
}
