package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FindScenarios returns the .yaml/.yml files under dir, sorted. A non-empty
// filter is a glob matched against the file name without extension.
func FindScenarios(dir, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// SuiteResult aggregates the results of running many scenario files.
type SuiteResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// ScenarioResult is the outcome of one scenario file.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`

	// Result is nil when the scenario could not be loaded or run.
	Result *Result `json:"-"`
}

// RunSuite loads and runs each scenario file. Load and harness failures
// count as failed scenarios rather than aborting the suite.
func RunSuite(paths []string) *SuiteResult {
	suite := &SuiteResult{
		Scenarios: make([]ScenarioResult, 0, len(paths)),
		Total:     len(paths),
	}

	for _, path := range paths {
		sr := runScenarioFile(path)
		suite.Scenarios = append(suite.Scenarios, sr)
		if sr.Pass {
			suite.Passed++
		} else {
			suite.Failed++
		}
	}

	return suite
}

func runScenarioFile(path string) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	scenario, err := LoadScenario(path)
	if err != nil {
		return ScenarioResult{Name: name, Path: path, Errors: []string{err.Error()}}
	}

	result, err := Run(scenario)
	if err != nil {
		return ScenarioResult{Name: scenario.Name, Path: path, Errors: []string{err.Error()}}
	}

	return ScenarioResult{
		Name:   scenario.Name,
		Path:   path,
		Pass:   result.Pass,
		Errors: result.Errors,
		Result: result,
	}
}
