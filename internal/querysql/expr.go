package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/queryir"
)

// compileExpr parses and compiles a raw JSON-shaped expression.
func (c *compileContext) compileExpr(raw any) (tv typedValue, err error) {
	defer c.enter(frameExpr, raw)(&err)

	e, err := queryir.ParseExpr(raw)
	if err != nil {
		return typedValue{}, err
	}
	return c.compileNode(e)
}

// compileParsed compiles an already parsed expression.
func (c *compileContext) compileParsed(e queryir.Expr) (tv typedValue, err error) {
	defer c.enter(frameExpr, e.Raw())(&err)
	return c.compileNode(e)
}

func (c *compileContext) compileNode(e queryir.Expr) (typedValue, error) {
	switch n := e.(type) {
	case queryir.Literal:
		return literalOf(n.Value, n.Type), nil
	case queryir.FieldRef:
		path := n.Path
		if n.Implicit() {
			if c.implicitField == "" {
				return typedValue{}, ir.NewSyntaxError("Invalid field reference: $")
			}
			path = c.implicitField
		}
		return c.transformField(path)
	case queryir.Param:
		c.addParam(n.Name)
		return typedValue{sql: "?", typ: ir.TypeParam, param: n.Name}, nil
	case queryir.Call:
		return c.compileFunction(n)
	}
	return typedValue{}, ir.NewSyntaxError("Unsupported expression %T", e)
}

// compileFunction compiles one catalog function call. Arguments compile
// left to right before the function body, so parameter order follows the
// text.
func (c *compileContext) compileFunction(call queryir.Call) (tv typedValue, err error) {
	defer c.enter(frameFunction, call.Source)(&err)

	minArgs, maxArgs := call.Func.Arity()
	if call.NArgs < minArgs {
		return typedValue{}, ir.NewArityError("Too few arguments")
	}
	if call.NArgs > maxArgs {
		return typedValue{}, ir.NewArityError("Too many arguments")
	}

	if call.Func == queryir.FuncCondition {
		conds, err := c.compileConditions(call.Conds)
		if err != nil {
			return typedValue{}, err
		}
		if len(conds) == 0 {
			return fragment("1", ir.TypeBoolean), nil
		}
		return fragment(strings.Join(conds, " AND "), ir.TypeBoolean), nil
	}

	args := make([]typedValue, len(call.Args))
	for i, arg := range call.Args {
		if args[i], err = c.compileParsed(arg); err != nil {
			return typedValue{}, err
		}
	}

	switch call.Func {
	case queryir.FuncSum:
		arg, typ, err := c.numeric(args[0], ir.TypeFloat)
		if err != nil {
			return typedValue{}, err
		}
		return fragment("SUM("+arg+")", typ), nil

	case queryir.FuncSumOver:
		arg, typ, err := c.numeric(args[0], ir.TypeFloat)
		if err != nil {
			return typedValue{}, err
		}
		window := "ROWS BETWEEN CURRENT ROW AND UNBOUNDED FOLLOWING"
		if len(c.orders) > 0 {
			orders := c.orders
			// the window's own order-by must not see the orders again
			c.orders = nil
			order, err := c.compileOrderBy(orders)
			c.orders = orders
			if err != nil {
				return typedValue{}, err
			}
			window = "ORDER BY " + order + " " + window
		}
		return fragment(fmt.Sprintf("(SUM(%s) OVER (%s))", arg, window), typ), nil

	case queryir.FuncCount:
		arg, err := c.val(args[0], ir.TypeUnset)
		if err != nil {
			return typedValue{}, err
		}
		return fragment("COUNT("+arg+")", ir.TypeInteger), nil

	case queryir.FuncSubstr:
		targets := []ir.Type{ir.TypeString, ir.TypeInteger, ir.TypeInteger}
		parts := make([]string, len(args))
		for i, arg := range args {
			if parts[i], err = c.val(arg, targets[i]); err != nil {
				return typedValue{}, err
			}
		}
		return fragment("SUBSTR("+strings.Join(parts, ", ")+")", ir.TypeString), nil

	case queryir.FuncLower:
		arg, err := c.val(args[0], ir.TypeString)
		if err != nil {
			return typedValue{}, err
		}
		return fragment("UNICODE_LOWER("+arg+")", ir.TypeString), nil

	case queryir.FuncNeg:
		arg, typ, err := c.numeric(args[0], ir.TypeFloat)
		if err != nil {
			return typedValue{}, err
		}
		return fragment("(-"+arg+")", typ), nil

	case queryir.FuncAbs:
		arg, typ, err := c.numeric(args[0], ir.TypeFloat)
		if err != nil {
			return typedValue{}, err
		}
		return fragment("ABS("+arg+")", typ), nil

	case queryir.FuncIdiv:
		a, typ, err := c.numeric(args[0], ir.TypeInteger)
		if err != nil {
			return typedValue{}, err
		}
		b, err := c.val(args[1], ir.TypeInteger)
		if err != nil {
			return typedValue{}, err
		}
		return fragment("("+a+" / "+b+")", typ), nil

	case queryir.FuncID:
		arg, err := c.val(args[0], ir.TypeUnset)
		if err != nil {
			return typedValue{}, err
		}
		return fragment(arg, args[0].typ), nil

	case queryir.FuncDay:
		return c.cast(args[0], ir.TypeDate)
	case queryir.FuncMonth:
		return c.cast(args[0], ir.TypeDateMonth)
	case queryir.FuncYear:
		return c.cast(args[0], ir.TypeDateYear)

	case queryir.FuncNocase:
		arg, err := c.val(args[0], ir.TypeString)
		if err != nil {
			return typedValue{}, err
		}
		typ := args[0].typ
		if typ == ir.TypeParam {
			typ = ir.TypeString
		}
		return fragment(arg+" COLLATE NOCASE", typ), nil

	case queryir.FuncLiteral:
		if !args[0].literal {
			return typedValue{}, ir.NewLiteralError("Literal not passed to $literal")
		}
		return args[0], nil
	}

	return typedValue{}, ir.NewUnknownFunctionError(call.Func.String(), "")
}

// numeric checks that e converts to target and renders the original
// value, keeping an integer argument integer. A parameter takes the
// target type.
func (c *compileContext) numeric(e typedValue, target ir.Type) (string, ir.Type, error) {
	casted, err := c.cast(e, target)
	if err != nil {
		return "", "", err
	}
	typ := e.typ
	if typ == ir.TypeParam || typ == ir.TypeAny {
		typ = casted.typ
	}
	sql, err := render(e)
	if err != nil {
		return "", "", err
	}
	return sql, typ, nil
}
