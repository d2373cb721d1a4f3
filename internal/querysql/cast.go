package querysql

import (
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/aql/internal/ir"
)

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	yearRe  = regexp.MustCompile(`^\d{4}$`)
)

// paramCasts lists, per target type, the already-inferred parameter types
// a later use may still convert from.
var paramCasts = map[ir.Type][]ir.Type{
	ir.TypeDate:      {ir.TypeString},
	ir.TypeDateMonth: {ir.TypeDate},
	ir.TypeDateYear:  {ir.TypeDate, ir.TypeDateMonth},
	ir.TypeID:        {ir.TypeString},
	ir.TypeFloat:     {ir.TypeInteger},
}

// inferParam fixes a parameter's type on first use and checks later uses
// against it.
func (c *compileContext) inferParam(name string, target ir.Type) error {
	existing := c.paramTypes[name]
	if existing == ir.TypeUnset {
		c.paramTypes[name] = target
		return nil
	}
	if existing != target && !slices.Contains(paramCasts[target], existing) {
		return ir.NewCastError("Parameter “%s” can’t convert to %s (already inferred as %s)", name, target, existing)
	}
	return nil
}

// cast converts e to target following the implicit cast table:
//
//	string  → date, date-month, date-year   (literals in YYYY[-MM[-DD]] form)
//	date    → date-month → date-year        (truncation)
//	string  → id
//	integer → float
//	any     → anything
//	param   → inferred on first use
//	null    → boolean yields literal 0; otherwise stays NULL
func (c *compileContext) cast(e typedValue, target ir.Type) (typedValue, error) {
	if e.typ == target {
		return e, nil
	}

	switch e.typ {
	case ir.TypeParam:
		if err := c.inferParam(e.param, target); err != nil {
			return typedValue{}, err
		}
		return typedValue{sql: e.sql, typ: target, param: e.param}, nil
	case ir.TypeNull:
		if !e.literal {
			return typedValue{}, ir.NewLiteralError("A non-literal null doesn’t make sense")
		}
		if target == ir.TypeBoolean {
			return literalOf(ir.Bool(false), ir.TypeBoolean), nil
		}
		return e, nil
	case ir.TypeAny:
		e.typ = target
		return e, nil
	}

	switch target {
	case ir.TypeDate:
		if e.typ != ir.TypeString {
			return typedValue{}, ir.NewCastError("Can’t cast %s to date", e.typ)
		}
		if !e.literal {
			return typedValue{}, ir.NewCastError("Casting string fields to dates is not supported")
		}
		if d, ok := parseDateLiteral(e, dateRe); ok {
			return d, nil
		}
		return typedValue{}, badDateFormat(e, target)

	case ir.TypeDateMonth:
		src := e
		switch {
		case e.typ == ir.TypeDate:
		case e.typ == ir.TypeString && e.literal:
			var ok bool
			if src, ok = parseDateLiteral(e, monthRe, dateRe); !ok {
				return typedValue{}, badDateFormat(e, target)
			}
		case e.typ == ir.TypeString:
			return typedValue{}, ir.NewCastError("Casting string fields to dates is not supported")
		default:
			return typedValue{}, ir.NewCastError("Can’t cast %s to date-month", e.typ)
		}
		return truncateDate(src, 6, ir.TypeDateMonth), nil

	case ir.TypeDateYear:
		src := e
		switch {
		case e.typ == ir.TypeDate, e.typ == ir.TypeDateMonth:
		case e.typ == ir.TypeString && e.literal:
			var ok bool
			if src, ok = parseDateLiteral(e, yearRe, monthRe, dateRe); !ok {
				return typedValue{}, badDateFormat(e, target)
			}
		case e.typ == ir.TypeString:
			return typedValue{}, ir.NewCastError("Casting string fields to dates is not supported")
		default:
			return typedValue{}, ir.NewCastError("Can’t cast %s to date-year", e.typ)
		}
		return truncateDate(src, 4, ir.TypeDateYear), nil

	case ir.TypeID:
		if e.typ == ir.TypeString {
			e.typ = ir.TypeID
			return e, nil
		}

	case ir.TypeFloat:
		if e.typ == ir.TypeInteger {
			e.typ = ir.TypeFloat
			return e, nil
		}

	case ir.TypeAny:
		return e, nil
	}

	return typedValue{}, ir.NewCastError("Can’t convert %s to %s", e.typ, target)
}

// parseDateLiteral matches a string literal against the given shapes and
// returns it as an integer-encoded date (dashes removed).
func parseDateLiteral(e typedValue, shapes ...*regexp.Regexp) (typedValue, bool) {
	s, ok := e.value.(ir.String)
	if !ok {
		return typedValue{}, false
	}
	for _, re := range shapes {
		if re.MatchString(string(s)) {
			n, err := strconv.ParseInt(strings.ReplaceAll(string(s), "-", ""), 10, 64)
			if err != nil {
				return typedValue{}, false
			}
			return literalOf(ir.Int(n), ir.TypeDate), true
		}
	}
	return typedValue{}, false
}

func badDateFormat(e typedValue, target ir.Type) error {
	s, _ := e.value.(ir.String)
	return ir.NewCastError("Bad %s format: %s", target, string(s))
}

// truncateDate keeps the first digits of an integer-encoded date:
// 20240315 → 202403 (6) → 2024 (4).
func truncateDate(e typedValue, digits int, t ir.Type) typedValue {
	if e.literal {
		if n, ok := e.value.(ir.Int); ok {
			s := strconv.FormatInt(int64(n), 10)
			if len(s) > digits {
				s = s[:digits]
			}
			v, err := strconv.ParseInt(s, 10, 64)
			if err == nil {
				return literalOf(ir.Int(v), t)
			}
		}
	}
	sql := e.sql
	if e.literal {
		sql, _ = render(e)
	}
	return fragment("CAST(SUBSTR("+sql+", 1, "+strconv.Itoa(digits)+") AS integer)", t)
}

// render turns a compiled value into SQL text. Strings and ids are single
// quoted with embedded quotes doubled.
func render(e typedValue) (string, error) {
	if !e.literal {
		return e.sql, nil
	}
	switch v := e.value.(type) {
	case ir.Null:
		return "NULL", nil
	case ir.String:
		return quoteString(string(v)), nil
	case ir.Int:
		return strconv.FormatInt(int64(v), 10), nil
	case ir.Float:
		return strconv.FormatFloat(float64(v), 'f', -1, 64), nil
	case ir.Bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case ir.Array:
		return "", ir.NewLiteralError("An array can only be used with $oneof")
	case ir.Object:
		return "", ir.NewLiteralError("An object is not a valid query value")
	}
	return "", ir.NewLiteralError("Unsupported literal %T", e.value)
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// val casts e to target (when set) and renders it.
func (c *compileContext) val(e typedValue, target ir.Type) (string, error) {
	if target != ir.TypeUnset {
		var err error
		if e, err = c.cast(e, target); err != nil {
			return "", err
		}
	}
	return render(e)
}
