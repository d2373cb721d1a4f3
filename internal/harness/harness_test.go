package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/queryir"
)

func loadAndRun(t *testing.T, path string) *Result {
	t.Helper()
	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(scenario)
	require.NoError(t, err)
	return result
}

func TestRun_Scenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			result := loadAndRun(t, path)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestRun_CompileError(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/unknown_function.yaml")

	assert.True(t, result.Pass)
	assert.Empty(t, result.SQL)
	assert.Equal(t, ir.ErrCodeUnknownFunction, result.ErrorCode)
	assert.Contains(t, result.Error, "Expression stack:")
}

func TestRun_ResultFields(t *testing.T) {
	result := loadAndRun(t, "testdata/scenarios/like_params.yaml")

	require.Len(t, result.Params, 1)
	assert.Equal(t, "pattern", result.Params[0].Name)
	assert.Equal(t, ir.TypeString, result.Params[0].Type)
	assert.Equal(t, []string{"payee", "id"}, result.Columns)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Café Rouge", result.Rows[0]["payee"])
}

func budgetScenario(q queryir.Document) *Scenario {
	return &Scenario{
		Name:        "inline",
		Description: "inline scenario",
		Schema:      "testdata/budget.yaml",
		Rows: map[string][]map[string]any{
			"transactions": {
				{"id": "t1", "amount": 10, "date": "2024-01-05"},
				{"id": "t2", "amount": 20, "date": "2024-02-05"},
			},
		},
		Query: q,
	}
}

func TestRun_FailedExpectations(t *testing.T) {
	tests := []struct {
		name    string
		expect  *ExpectClause
		wantErr string
	}{
		{
			name:    "sql mismatch",
			expect:  &ExpectClause{SQL: "SELECT 1"},
			wantErr: "SQL mismatch",
		},
		{
			name:    "columns mismatch",
			expect:  &ExpectClause{Columns: []string{"amount"}},
			wantErr: "columns mismatch",
		},
		{
			name:    "row count",
			expect:  &ExpectClause{Rows: []map[string]any{{"amount": 10, "id": "t1"}}},
			wantErr: "row count mismatch: expected 1, got 2",
		},
		{
			name: "row value",
			expect: &ExpectClause{Rows: []map[string]any{
				{"amount": 10, "id": "t1"},
				{"amount": 21, "id": "t2"},
			}},
			wantErr: "row 1: amount = 20 (type int64), expected 21 (type int)",
		},
		{
			name:    "error expected",
			expect:  &ExpectClause{Code: "SCHEMA_ERROR"},
			wantErr: `expected error "SCHEMA_ERROR", query compiled and ran`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario := budgetScenario(queryir.Document{
				Table:   "transactions",
				Select:  []any{"amount"},
				OrderBy: []any{"date"},
			})
			scenario.Expect = tt.expect

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.NotEmpty(t, result.Errors)
			assert.Contains(t, result.Errors[0], tt.wantErr)
		})
	}
}

func TestRun_UnexpectedCompileError(t *testing.T) {
	scenario := budgetScenario(queryir.Document{Table: "transactions", Select: []any{"nope"}})
	scenario.Assertions = []Assertion{{Type: AssertRowCount, Count: 0}}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "unexpected error: Field “nope” does not exist")
	assert.Equal(t, ir.ErrCodeSchema, result.ErrorCode)
}

func TestRun_WrongErrorCode(t *testing.T) {
	scenario := budgetScenario(queryir.Document{Table: "transactions", Select: []any{"nope"}})
	scenario.Expect = &ExpectClause{Code: "CAST_ERROR", Error: "does not exist"}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `error code mismatch: expected CAST_ERROR, got "SCHEMA_ERROR"`)
}

func TestRun_MissingParamIsRunError(t *testing.T) {
	scenario := budgetScenario(queryir.Document{
		Table:  "transactions",
		Filter: map[string]any{"amount": ":min"},
	})
	scenario.Expect = &ExpectClause{Error: `missing parameter "min"`}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.ErrorCode)
}

func TestRun_BadFixtures(t *testing.T) {
	scenario := budgetScenario(queryir.Document{Table: "transactions"})
	scenario.Rows = map[string][]map[string]any{"budgets": {{"id": "b1"}}}
	scenario.Expect = &ExpectClause{Rows: []map[string]any{}}

	_, err := Run(scenario)
	assert.ErrorContains(t, err, "failed to seed rows")
}

func TestRun_BadSchema(t *testing.T) {
	scenario := budgetScenario(queryir.Document{Table: "transactions"})
	scenario.Schema = "testdata/missing.yaml"

	_, err := Run(scenario)
	assert.ErrorContains(t, err, "failed to load schema")
}
