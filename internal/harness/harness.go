package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/querysql"
	"github.com/roach88/aql/internal/schema"
	"github.com/roach88/aql/internal/store"
	"github.com/roach88/aql/internal/testutil"
)

// Harness is the scenario execution engine.
type Harness struct {
	schema   *schema.Schema
	config   *schema.Config
	compiler *querysql.Compiler
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load the schema and its config
// 2. Compile the query
// 3. Seed fixture rows and execute the query
// 4. Check the expect clause and evaluate assertions
//
// The returned error covers harness failures (unreadable schema, bad
// fixtures). Compile failures are part of the Result.
func Run(scenario *Scenario) (*Result, error) {
	s, cfg, err := schema.LoadFile(scenario.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	h := &Harness{
		schema:   s,
		config:   cfg,
		compiler: querysql.NewCompiler(s, cfg, querysql.WithProduction(true), querysql.WithLogger(logger)),
		logger:   logger,
	}

	ctx := context.Background()
	result := NewResult()

	res, err := h.compile(scenario)
	if err != nil {
		result.Error = err.Error()
		result.ErrorCode = ir.CodeOf(err)
	} else {
		result.SQL = res.SQL
		result.Params = res.Params
		if err := h.execute(ctx, scenario, res, result); err != nil {
			return nil, err
		}
	}

	checkExpect(scenario.Expect, result)

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"rows", len(result.Rows),
	)
	return result, nil
}

func (h *Harness) compile(scenario *Scenario) (*querysql.Result, error) {
	q, err := scenario.Query.Query()
	if err != nil {
		return nil, err
	}
	return h.compiler.Compile(q)
}

// execute seeds a fresh database and runs the compiled query. A failing
// query is recorded on the result; failing fixtures abort the scenario.
func (h *Harness) execute(ctx context.Context, scenario *Scenario, res *querysql.Result, result *Result) error {
	st, err := store.Open(":memory:", h.schema, h.config,
		store.WithIDGenerator(testutil.NewSequentialIDs("row")),
		store.WithLogger(h.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.ApplySchema(ctx); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if err := st.Seed(ctx, scenario.Rows); err != nil {
		return fmt.Errorf("failed to seed rows: %w", err)
	}

	rows, err := st.Run(ctx, res, scenario.Params)
	if err != nil {
		result.Error = err.Error()
		return nil
	}
	result.Columns = rows.Columns
	result.Rows = rows.Rows
	return nil
}

// checkExpect compares the outcome with the expect clause.
func checkExpect(expect *ExpectClause, result *Result) {
	if expect == nil {
		if result.Error != "" {
			result.AddError(fmt.Sprintf("unexpected error: %s", result.Error))
		}
		return
	}

	if expect.expectsFailure() {
		if result.Error == "" {
			result.AddError(fmt.Sprintf("expected error %q, query compiled and ran", expectedFailure(expect)))
			return
		}
		if expect.Error != "" && !strings.Contains(result.Error, expect.Error) {
			result.AddError(fmt.Sprintf("error mismatch:\n  Expected substring: %s\n  Actual: %s", expect.Error, result.Error))
		}
		if expect.Code != "" && string(result.ErrorCode) != expect.Code {
			result.AddError(fmt.Sprintf("error code mismatch: expected %s, got %q", expect.Code, result.ErrorCode))
		}
		return
	}

	if result.Error != "" {
		result.AddError(fmt.Sprintf("unexpected error: %s", result.Error))
		return
	}

	if expect.SQL != "" && strings.TrimSpace(expect.SQL) != strings.TrimSpace(result.SQL) {
		result.AddError(fmt.Sprintf("SQL mismatch:\n  Expected:\n%s\n  Actual:\n%s",
			indent(strings.TrimSpace(expect.SQL)), indent(result.SQL)))
	}

	if expect.Columns != nil && !slices.Equal(expect.Columns, result.Columns) {
		result.AddError(fmt.Sprintf("columns mismatch: expected %v, got %v", expect.Columns, result.Columns))
	}

	if expect.Rows != nil {
		if err := compareRows(expect.Rows, result.Rows); err != nil {
			result.AddError(err.Error())
		}
	}
}

func expectedFailure(expect *ExpectClause) string {
	if expect.Error != "" {
		return expect.Error
	}
	return expect.Code
}

// compareRows checks rows in order, every column.
func compareRows(expected, actual []map[string]any) error {
	if len(expected) != len(actual) {
		return fmt.Errorf("row count mismatch: expected %d, got %d", len(expected), len(actual))
	}
	var errs []error
	for i := range expected {
		if len(expected[i]) != len(actual[i]) {
			errs = append(errs, fmt.Errorf("row %d: expected %d columns, got %d", i, len(expected[i]), len(actual[i])))
			continue
		}
		for _, col := range slices.Sorted(maps.Keys(expected[i])) {
			want := expected[i][col]
			got, ok := actual[i][col]
			if !ok {
				errs = append(errs, fmt.Errorf("row %d: column %q missing", i, col))
				continue
			}
			if !valuesEqual(want, got) {
				errs = append(errs, fmt.Errorf("row %d: %s = %v (type %T), expected %v (type %T)", i, col, got, got, want, want))
			}
		}
	}
	return errors.Join(errs...)
}

func indent(s string) string {
	return "    " + strings.ReplaceAll(s, "\n", "\n    ")
}
