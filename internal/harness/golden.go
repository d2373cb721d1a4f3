package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/aql/internal/ir"
)

// Snapshot captures the outcome of a scenario execution.
// Serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	SQL          string
	Params       []any
	Columns      []any
	Rows         []any
	Error        string
}

// NewSnapshot builds a snapshot from a result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		ScenarioName: name,
		SQL:          result.SQL,
		Error:        result.Error,
	}
	for _, p := range result.Params {
		s.Params = append(s.Params, map[string]any{"name": p.Name, "type": string(p.Type)})
	}
	for _, c := range result.Columns {
		s.Columns = append(s.Columns, c)
	}
	for _, r := range result.Rows {
		s.Rows = append(s.Rows, r)
	}
	return s
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization. Empty fields are omitted.
func (s *Snapshot) toCanonicalMap() map[string]any {
	result := map[string]any{
		"scenario_name": s.ScenarioName,
	}
	if s.SQL != "" {
		result["sql"] = s.SQL
	}
	if len(s.Params) > 0 {
		result["params"] = s.Params
	}
	if len(s.Columns) > 0 {
		result["columns"] = s.Columns
	}
	if s.Rows != nil {
		result["rows"] = s.Rows
	}
	if s.Error != "" {
		result["error"] = s.Error
	}
	return result
}

// MarshalCanonical renders the snapshot as canonical JSON.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file. The golden file is stored in
// testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewSnapshot(scenarioName, result)
	data, err := snapshot.MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
