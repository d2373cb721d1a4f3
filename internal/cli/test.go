package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aql/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run query scenarios using the harness.

Each scenario names a schema, seeds rows into an in-memory database,
compiles and runs one query, and checks the SQL, result rows or expected
error. When <dir>/golden/<name>.golden exists the compiled SQL and rows
must also match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  aql test ./scenarios
  aql test ./scenarios --filter "budget-*"
  aql test ./scenarios --update
  aql test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(scenariosDir); errors.Is(err, os.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("scenarios directory not found: %s", scenariosDir))
	}

	paths, err := harness.FindScenarios(scenariosDir, opts.Filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeScenarios, fmt.Errorf("failed to find scenarios: %w", err))
	}

	if len(paths) == 0 {
		if formatter.JSON() {
			return formatter.Success(harness.SuiteResult{Scenarios: []harness.ScenarioResult{}})
		}
		fmt.Fprintln(formatter.Writer, "No scenarios found.")
		return nil
	}

	suite := harness.RunSuite(paths)
	for i := range suite.Scenarios {
		sr := &suite.Scenarios[i]
		checkGolden(opts, sr)
		formatter.VerboseLog("ran %s (%s)", sr.Name, sr.Path)
	}
	suite.Passed, suite.Failed = 0, 0
	for _, sr := range suite.Scenarios {
		if sr.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}

	if formatter.JSON() {
		return outputTestJSON(formatter, suite)
	}
	return outputTestText(formatter, suite)
}

// checkGolden compares (or with --update, rewrites) the scenario's golden
// file. Scenarios that failed to load or run are left alone.
func checkGolden(opts *TestOptions, sr *harness.ScenarioResult) {
	if sr.Result == nil {
		return
	}
	goldenPath := goldenFilePath(sr.Path)

	snapshot := harness.NewSnapshot(sr.Name, sr.Result)
	current, err := snapshot.MarshalCanonical()
	if err != nil {
		fail(sr, fmt.Sprintf("failed to marshal snapshot: %v", err))
		return
	}

	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			fail(sr, fmt.Sprintf("failed to create golden directory: %v", err))
			return
		}
		if err := os.WriteFile(goldenPath, current, 0644); err != nil {
			fail(sr, fmt.Sprintf("failed to write golden file: %v", err))
		}
		return
	}

	golden, err := os.ReadFile(goldenPath)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		fail(sr, fmt.Sprintf("failed to read golden file: %v", err))
		return
	}
	if !bytes.Equal(golden, current) {
		fail(sr, "golden file mismatch (run with --update to regenerate)")
	}
}

func fail(sr *harness.ScenarioResult, msg string) {
	sr.Pass = false
	sr.Errors = append(sr.Errors, msg)
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// outputTestJSON outputs the suite result as JSON.
func outputTestJSON(formatter *OutputFormatter, suite *harness.SuiteResult) error {
	if suite.Failed == 0 {
		return formatter.Success(suite)
	}

	msg := fmt.Sprintf("%d scenario(s) failed", suite.Failed)
	if err := formatter.Error("E_TEST_FAILED", msg, suite); err != nil {
		return err
	}
	return NewExitError(ExitFailure, msg)
}

// outputTestText outputs per-scenario lines and a summary.
func outputTestText(formatter *OutputFormatter, suite *harness.SuiteResult) error {
	w := formatter.Writer
	for _, sr := range suite.Scenarios {
		if sr.Pass {
			fmt.Fprintf(w, "✓ %s\n", sr.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", sr.Name)
		for _, e := range sr.Errors {
			fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", suite.Passed, suite.Failed, suite.Total)

	if suite.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", suite.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
