package queryir

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aql/internal/ir"
)

func TestParseExpr_FieldAndParam(t *testing.T) {
	expr, err := ParseExpr("$category.name")
	require.NoError(t, err)
	assert.Equal(t, FieldRef{Path: "category.name", Source: "$category.name"}, expr)

	expr, err = ParseExpr("$")
	require.NoError(t, err)
	assert.True(t, expr.(FieldRef).Implicit())

	expr, err = ParseExpr(":minAmount")
	require.NoError(t, err)
	assert.Equal(t, Param{Name: "minAmount", Source: ":minAmount"}, expr)

	_, err = ParseExpr(":")
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeSyntax, ir.CodeOf(err))
}

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		name  string
		input any
		value ir.Value
		typ   ir.Type
	}{
		{"null", nil, ir.Null{}, ir.TypeNull},
		{"string", "groceries", ir.String("groceries"), ir.TypeString},
		{"escaped dollar", `\$5 off`, ir.String("$5 off"), ir.TypeString},
		{"integer", 42, ir.Int(42), ir.TypeInteger},
		{"whole float is integer", float64(3), ir.Int(3), ir.TypeInteger},
		{"float", 2.5, ir.Float(2.5), ir.TypeFloat},
		{"boolean", true, ir.Bool(true), ir.TypeBoolean},
		{"date", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), ir.Int(20240315), ir.TypeDate},
		{"array", []any{"a", "b"}, ir.Array{ir.String("a"), ir.String("b")}, ir.TypeArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseExpr(tt.input)
			require.NoError(t, err)
			lit, ok := expr.(Literal)
			require.True(t, ok, "expected Literal, got %T", expr)
			assert.Equal(t, tt.value, lit.Value)
			assert.Equal(t, tt.typ, lit.Type)
		})
	}
}

func TestParseLiteral_PlainObjectRejected(t *testing.T) {
	_, err := ParseExpr(map[string]any{"amount": 1})
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeLiteral, ir.CodeOf(err))
	assert.Contains(t, err.Error(), "Unsupported type of expression")
}

func TestParseFunction(t *testing.T) {
	expr, err := ParseExpr(map[string]any{"$substr": []any{"$name", 1, 3}})
	require.NoError(t, err)

	call, ok := expr.(Call)
	require.True(t, ok)
	assert.Equal(t, FuncSubstr, call.Func)
	assert.Equal(t, 3, call.NArgs)
	require.Len(t, call.Args, 3)
	assert.Equal(t, FieldRef{Path: "name", Source: "$name"}, call.Args[0])
}

func TestParseFunction_SingleArgument(t *testing.T) {
	call, err := ParseFunction(map[string]any{"$sum": "$amount"})
	require.NoError(t, err)
	assert.Equal(t, FuncSum, call.Func)
	assert.Equal(t, 1, call.NArgs)
}

func TestParseFunction_Condition(t *testing.T) {
	call, err := ParseFunction(map[string]any{"$condition": map[string]any{"amount": map[string]any{"$gt": 0}}})
	require.NoError(t, err)
	assert.Equal(t, FuncCondition, call.Func)
	assert.Empty(t, call.Args)
	require.Len(t, call.Conds, 1)
	assert.Equal(t, "amount", call.Conds[0].(FieldCond).Field)
}

func TestParseFunction_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		code     ir.ErrorCode
		contains string
	}{
		{"unknown function", map[string]any{"$summ": "$amount"}, ir.ErrCodeUnknownFunction, "did you mean $sum?"},
		{"missing dollar", map[string]any{"sum": "$amount"}, ir.ErrCodeSyntax, "Try prefixing it with $"},
		{"two keys", map[string]any{"$sum": "$a", "$count": "$b"}, ir.ErrCodeSyntax, "exactly one key"},
		{"not an object", "sum", ir.ErrCodeSyntax, "Expected a function call"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFunction(tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.code, ir.CodeOf(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestParseConditions_Shorthands(t *testing.T) {
	conds, err := ParseConditions(map[string]any{
		"category": "groceries",
		"amount":   []any{map[string]any{"$gt": 0}, map[string]any{"$lt": 100}},
	})
	require.NoError(t, err)
	require.Len(t, conds, 2)

	// Sorted key order: amount before category
	amount := conds[0].(FieldCond)
	assert.Equal(t, "amount", amount.Field)
	require.Len(t, amount.Ops, 2)
	assert.Equal(t, OpGt, amount.Ops[0].Op)
	assert.Equal(t, OpLt, amount.Ops[1].Op)

	category := conds[1].(FieldCond)
	require.Len(t, category.Ops, 1)
	assert.Equal(t, OpEq, category.Ops[0].Op)
	assert.Equal(t, map[string]any{"$eq": "groceries"}, category.Ops[0].Source)
}

func TestParseConditions_MultipleOperatorsSorted(t *testing.T) {
	conds, err := ParseConditions(map[string]any{"amount": map[string]any{"$lt": 10, "$gt": 0}})
	require.NoError(t, err)
	ops := conds[0].(FieldCond).Ops
	require.Len(t, ops, 2)
	assert.Equal(t, OpGt, ops[0].Op)
	assert.Equal(t, OpLt, ops[1].Op)
}

func TestParseConditions_Logical(t *testing.T) {
	conds, err := ParseConditions([]any{
		map[string]any{"$or": []any{map[string]any{"a": 1}, map[string]any{"b": 2}}},
		nil,
		false,
		map[string]any{"$and": nil},
		map[string]any{"$or": []any{}},
	})
	require.NoError(t, err)
	require.Len(t, conds, 3)

	or := conds[0].(Logical)
	assert.Equal(t, Or, or.Kind)
	assert.Len(t, or.Conds, 2)
	assert.False(t, or.Omitted)

	and := conds[1].(Logical)
	assert.Equal(t, And, and.Kind)
	assert.True(t, and.Omitted)

	empty := conds[2].(Logical)
	assert.False(t, empty.Omitted)
	assert.Empty(t, empty.Conds)
}

func TestParseConditions_Transform(t *testing.T) {
	conds, err := ParseConditions(map[string]any{
		"name": map[string]any{"$like": "%coffee%", "$transform": "$lower"},
	})
	require.NoError(t, err)

	op := conds[0].(FieldCond).Ops[0]
	require.NotNil(t, op.Transform)
	assert.Equal(t, FuncLower, op.Transform.Func)
	require.Len(t, op.Transform.Args, 1)
	assert.True(t, op.Transform.Args[0].(FieldRef).Implicit())
	assert.Equal(t, "$lower", op.Source["$transform"])
}

func TestParseConditions_Errors(t *testing.T) {
	_, err := ParseConditions(map[string]any{"amount": map[string]any{"$gtt": 0}})
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeUnknownOperator, ir.CodeOf(err))
	assert.Contains(t, err.Error(), "Unknown operator: $gtt (did you mean $gt?)")

	_, err = ParseConditions(map[string]any{"amount": map[string]any{"$transform": "$lower"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing operator")

	_, err = ParseConditions([]any{"amount"})
	require.Error(t, err)
	assert.Equal(t, ir.ErrCodeSyntax, ir.CodeOf(err))
}
