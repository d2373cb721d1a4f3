package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/aql/internal/queryir"
)

// Scenario defines a conformance test scenario: a schema, fixture rows, a
// query and what compiling and running it must produce.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to a schema file (.yaml, .json or .cue) or CUE
	// package directory. Relative paths are resolved against the scenario
	// file by LoadScenario.
	Schema string `yaml:"schema"`

	// Rows are fixture rows by table, written with public field names.
	Rows map[string][]map[string]any `yaml:"rows,omitempty"`

	// Query is the query under test.
	Query queryir.Document `yaml:"query"`

	// Params are bound to named parameters when the query runs.
	Params map[string]any `yaml:"params,omitempty"`

	// Expect holds the expected compile and run outcome.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the SQL and result rows.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ExpectClause specifies the expected outcome. Unset fields are not checked.
type ExpectClause struct {
	// SQL is the exact compiled statement. Surrounding whitespace is ignored.
	SQL string `yaml:"sql,omitempty"`

	// Error is a substring of the expected error message.
	Error string `yaml:"error,omitempty"`

	// Code is the expected compile error code, e.g. SCHEMA_ERROR.
	Code string `yaml:"code,omitempty"`

	// Columns are the expected result columns, in order.
	Columns []string `yaml:"columns,omitempty"`

	// Rows are the expected result rows, in order. Every column is compared.
	Rows []map[string]any `yaml:"rows,omitempty"`
}

// expectsFailure reports whether the scenario expects an error.
func (e *ExpectClause) expectsFailure() bool {
	return e != nil && (e.Error != "" || e.Code != "")
}

// Assertion validates the compiled SQL or the result rows.
type Assertion struct {
	// Type specifies the assertion type:
	// - "sql_contains": Check the SQL contains Text
	// - "sql_order": Check Fragments appear in order
	// - "row_count": Check exactly Count rows were returned
	// - "row": Find the single row matching Where and check Expect
	Type string `yaml:"type"`

	// Text is the expected SQL substring (used by sql_contains).
	Text string `yaml:"text,omitempty"`

	// Fragments are SQL substrings in expected order (used by sql_order).
	Fragments []string `yaml:"fragments,omitempty"`

	// Count is the expected number of rows (used by row_count).
	Count int `yaml:"count,omitempty"`

	// Where selects the row (used by row). All fields must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected column values (used by row).
	// Subset match - only specified columns are validated.
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertSQLContains = "sql_contains"
	AssertSQLOrder    = "sql_order"
	AssertRowCount    = "row_count"
	AssertRow         = "row"
)

// LoadScenario reads and parses a scenario YAML file. The schema path is
// resolved relative to the scenario file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the schema path relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) && basePath != "" {
		scenario.Schema = filepath.Join(basePath, scenario.Schema)
	}

	if _, err := os.Stat(scenario.Schema); os.IsNotExist(err) {
		return nil, fmt.Errorf("invalid scenario: schema file not found: %s", scenario.Schema)
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML without touching the filesystem.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}

	if s.Query.Table == "" {
		return fmt.Errorf("query.table is required")
	}

	if s.Expect == nil && len(s.Assertions) == 0 {
		return fmt.Errorf("expect or assertions is required")
	}

	if s.Expect.expectsFailure() && (len(s.Expect.Rows) > 0 || len(s.Expect.Columns) > 0) {
		return fmt.Errorf("expect: error and rows are mutually exclusive")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertSQLContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for sql_contains", index)
		}
	case AssertSQLOrder:
		if len(a.Fragments) < 2 {
			return fmt.Errorf("assertions[%d]: at least two fragments are required for sql_order", index)
		}
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertRow:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
