package harness

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/roach88/aql/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	SQL      string // Compiled SQL for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if e.SQL != "" {
		fmt.Fprintf(&buf, "\nSQL:\n%s\n", indent(e.SQL))
	}

	return buf.String()
}

// assertSQLContains checks the compiled SQL contains the assertion text.
func assertSQLContains(result *Result, assertion Assertion) error {
	if strings.Contains(result.SQL, assertion.Text) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSQLContains,
		Expected: fmt.Sprintf("SQL containing %q", assertion.Text),
		Actual:   "not found",
		SQL:      result.SQL,
	}
}

// assertSQLOrder checks fragments appear in the SQL in the given order.
// Fragments don't need to be adjacent.
func assertSQLOrder(result *Result, assertion Assertion) error {
	pos := 0
	for i, frag := range assertion.Fragments {
		idx := strings.Index(result.SQL[pos:], frag)
		if idx < 0 {
			actual := fmt.Sprintf("missing fragment: %q", frag)
			if strings.Contains(result.SQL, frag) {
				actual = fmt.Sprintf("%q appears before %q", frag, assertion.Fragments[i-1])
			}
			return &AssertionError{
				Type:     AssertSQLOrder,
				Expected: fmt.Sprintf("fragments in order: %q", assertion.Fragments),
				Actual:   actual,
				SQL:      result.SQL,
			}
		}
		pos += idx + len(frag)
	}
	return nil
}

// assertRowCount checks the query returned exactly Count rows.
func assertRowCount(result *Result, assertion Assertion) error {
	if len(result.Rows) == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertRowCount,
		Expected: fmt.Sprintf("%d rows", assertion.Count),
		Actual:   fmt.Sprintf("%d rows", len(result.Rows)),
		SQL:      result.SQL,
	}
}

// assertRow finds the single row matching Where and validates Expect
// using subset semantics.
func assertRow(result *Result, assertion Assertion) error {
	var matches []map[string]any
	for _, row := range result.Rows {
		if matchRow(row, assertion.Where) {
			matches = append(matches, row)
		}
	}

	whereDesc := formatWhereClause(assertion.Where)
	switch len(matches) {
	case 0:
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("row where %s", whereDesc),
			Actual:   "row not found",
			SQL:      result.SQL,
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("exactly one row where %s", whereDesc),
			Actual:   fmt.Sprintf("%d rows matched (assertion is ambiguous)", len(matches)),
			SQL:      result.SQL,
		}
	}

	row := matches[0]
	for _, key := range slices.Sorted(maps.Keys(assertion.Expect)) {
		expectedValue := assertion.Expect[key]
		actualValue, exists := row[key]
		if !exists {
			return &AssertionError{
				Type:     AssertRow,
				Expected: fmt.Sprintf("column %q to exist", key),
				Actual:   fmt.Sprintf("column %q not present in result columns: %v", key, result.Columns),
				SQL:      result.SQL,
			}
		}
		if !valuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertRow,
				Expected: fmt.Sprintf("column %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("column %q = %v (type %T)", key, actualValue, actualValue),
				SQL:      result.SQL,
			}
		}
	}
	return nil
}

// formatWhereClause creates a human-readable description of row conditions.
func formatWhereClause(where map[string]any) string {
	if len(where) == 0 {
		return "(no conditions)"
	}

	keys := slices.Sorted(maps.Keys(where))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

// matchRow checks if the row has all expected values. Extra columns are
// ignored.
func matchRow(row map[string]any, where map[string]any) bool {
	for key, expectedVal := range where {
		actualVal, exists := row[key]
		if !exists || !valuesEqual(expectedVal, actualVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares an expected value from scenario YAML with a value
// produced by the store. YAML and SQLite disagree on number widths (int
// vs int64, whole float64 vs int64), so both sides are normalised through
// ir.FromNative first. YAML dates decode to time.Time and compare as
// YYYY-MM-DD strings.
func valuesEqual(expected, actual any) bool {
	if t, ok := expected.(time.Time); ok {
		expected = t.Format(time.DateOnly)
	}

	exp, err := ir.FromNative(expected)
	if err != nil {
		return reflect.DeepEqual(expected, actual)
	}
	act, err := ir.FromNative(actual)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(exp, act)
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSQLContains:
			err = assertSQLContains(result, assertion)
		case AssertSQLOrder:
			err = assertSQLOrder(result, assertion)
		case AssertRowCount:
			err = assertRowCount(result, assertion)
		case AssertRow:
			err = assertRow(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
