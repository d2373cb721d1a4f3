package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/testutil"
)

func newTestContext(t *testing.T) *compileContext {
	t.Helper()
	return newCompileContext(testutil.BudgetSchema(), nil, queryir.Q("transactions"), false)
}

func TestCast_IntegerToFloat(t *testing.T) {
	c := newTestContext(t)

	out, err := c.cast(literalOf(ir.Int(5), ir.TypeInteger), ir.TypeFloat)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeFloat, out.typ)
	assert.True(t, out.literal)
	assert.Equal(t, ir.Int(5), out.value)

	sql, err := render(out)
	require.NoError(t, err)
	assert.Equal(t, "5", sql)
}

func TestCast_BooleanToDateFails(t *testing.T) {
	c := newTestContext(t)

	_, err := c.cast(literalOf(ir.Bool(true), ir.TypeBoolean), ir.TypeDate)
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeCast, ir.CodeOf(err))
	assert.Contains(t, err.Error(), "Can’t cast boolean to date")

	_, err = c.cast(fragment("t.cleared", ir.TypeBoolean), ir.TypeDate)
	assert.Equal(t, ir.ErrCodeCast, ir.CodeOf(err))
}

func TestCast_DateRoundTrip(t *testing.T) {
	c := newTestContext(t)

	day, err := c.cast(literalOf(ir.String("2024-03-15"), ir.TypeString), ir.TypeDate)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(20240315), day.value)
	assert.Equal(t, ir.TypeDate, day.typ)

	month, err := c.cast(day, ir.TypeDateMonth)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(202403), month.value)
	assert.Equal(t, ir.TypeDateMonth, month.typ)

	year, err := c.cast(month, ir.TypeDateYear)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2024), year.value)

	year, err = c.cast(day, ir.TypeDateYear)
	require.NoError(t, err)
	assert.Equal(t, ir.Int(2024), year.value)
}

func TestCast_DateLiteralShapes(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		target ir.Type
		want   ir.Int
		errMsg string
	}{
		{name: "full date", input: "2024-03-15", target: ir.TypeDate, want: 20240315},
		{name: "month as date fails", input: "2024-03", target: ir.TypeDate, errMsg: "Bad date format: 2024-03"},
		{name: "month", input: "2024-03", target: ir.TypeDateMonth, want: 202403},
		{name: "date as month", input: "2024-03-15", target: ir.TypeDateMonth, want: 202403},
		{name: "year as month fails", input: "2024", target: ir.TypeDateMonth, errMsg: "Bad date-month format: 2024"},
		{name: "year", input: "2024", target: ir.TypeDateYear, want: 2024},
		{name: "month as year", input: "2024-03", target: ir.TypeDateYear, want: 2024},
		{name: "garbage", input: "March", target: ir.TypeDateYear, errMsg: "Bad date-year format: March"},
		{name: "slashes", input: "2024/03/15", target: ir.TypeDate, errMsg: "Bad date format: 2024/03/15"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestContext(t)
			out, err := c.cast(literalOf(ir.String(tt.input), ir.TypeString), tt.target)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Equal(t, ir.ErrCodeCast, ir.CodeOf(err))
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.value)
			assert.Equal(t, tt.target, out.typ)
		})
	}
}

func TestCast_NonLiteralDates(t *testing.T) {
	c := newTestContext(t)

	month, err := c.cast(fragment("t.date", ir.TypeDate), ir.TypeDateMonth)
	require.NoError(t, err)
	assert.Equal(t, "CAST(SUBSTR(t.date, 1, 6) AS integer)", month.sql)

	year, err := c.cast(fragment("t.date", ir.TypeDate), ir.TypeDateYear)
	require.NoError(t, err)
	assert.Equal(t, "CAST(SUBSTR(t.date, 1, 4) AS integer)", year.sql)

	_, err = c.cast(fragment("t.payee", ir.TypeString), ir.TypeDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Casting string fields to dates is not supported")
}

func TestCast_Null(t *testing.T) {
	c := newTestContext(t)

	out, err := c.cast(literalOf(ir.Null{}, ir.TypeNull), ir.TypeString)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeNull, out.typ)

	out, err = c.cast(literalOf(ir.Null{}, ir.TypeNull), ir.TypeBoolean)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeBoolean, out.typ)
	assert.Equal(t, ir.Bool(false), out.value)

	_, err = c.cast(fragment("NULL", ir.TypeNull), ir.TypeString)
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeLiteral, ir.CodeOf(err))
}

func TestCast_Params(t *testing.T) {
	c := newTestContext(t)
	p := typedValue{sql: "?", typ: ir.TypeParam, param: "when"}

	out, err := c.cast(p, ir.TypeString)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeString, out.typ)
	assert.Equal(t, "?", out.sql)

	// string → date is a legal re-inference
	_, err = c.cast(p, ir.TypeDate)
	require.NoError(t, err)

	_, err = c.cast(p, ir.TypeBoolean)
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeCast, ir.CodeOf(err))
	assert.Contains(t, err.Error(), "Parameter “when” can’t convert to boolean (already inferred as string)")

	assert.Equal(t, ir.TypeString, c.paramTypes["when"])
}

func TestCast_Unsupported(t *testing.T) {
	c := newTestContext(t)

	_, err := c.cast(literalOf(ir.Float(1.5), ir.TypeFloat), ir.TypeInteger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Can’t convert float to integer")

	out, err := c.cast(literalOf(ir.String("abc"), ir.TypeString), ir.TypeID)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeID, out.typ)

	out, err = c.cast(fragment("t.x", ir.TypeAny), ir.TypeInteger)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeInteger, out.typ)

	out, err = c.cast(fragment("t.amount", ir.TypeInteger), ir.TypeAny)
	require.NoError(t, err)
	assert.Equal(t, ir.TypeInteger, out.typ)
}

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		in   typedValue
		want string
	}{
		{"string", literalOf(ir.String("it's"), ir.TypeString), "'it''s'"},
		{"null", literalOf(ir.Null{}, ir.TypeNull), "NULL"},
		{"int", literalOf(ir.Int(-3), ir.TypeInteger), "-3"},
		{"float", literalOf(ir.Float(1.25), ir.TypeFloat), "1.25"},
		{"true", literalOf(ir.Bool(true), ir.TypeBoolean), "1"},
		{"false", literalOf(ir.Bool(false), ir.TypeBoolean), "0"},
		{"fragment", fragment("t.amount", ir.TypeInteger), "t.amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := render(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := render(literalOf(ir.Array{ir.Int(1)}, ir.TypeArray))
	assert.Equal(t, ir.ErrCodeLiteral, ir.CodeOf(err))
}
