package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios", "")
	require.NoError(t, err)
	assert.Contains(t, paths, filepath.Join("testdata", "scenarios", "join_scenario.yaml"))
	assert.IsIncreasing(t, paths)

	paths, err = FindScenarios("testdata/scenarios", "unknown_*")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join("testdata", "scenarios", "unknown_field.yaml"),
		filepath.Join("testdata", "scenarios", "unknown_function.yaml"),
	}, paths)

	_, err = FindScenarios("testdata/scenarios", "[")
	assert.ErrorContains(t, err, "invalid filter pattern")

	_, err = FindScenarios("testdata/nope", "")
	assert.Error(t, err)
}

func TestRunSuite(t *testing.T) {
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(broken, []byte("name: [unterminated"), 0644))

	suite := RunSuite([]string{
		"testdata/scenarios/join_scenario.yaml",
		"testdata/scenarios/dead_refs.yaml",
		broken,
	})

	assert.Equal(t, 3, suite.Total)
	assert.Equal(t, 2, suite.Passed)
	assert.Equal(t, 1, suite.Failed)

	assert.Equal(t, "join_scenario", suite.Scenarios[0].Name)
	assert.True(t, suite.Scenarios[0].Pass)
	assert.NotNil(t, suite.Scenarios[0].Result)

	assert.Equal(t, "broken", suite.Scenarios[2].Name)
	assert.False(t, suite.Scenarios[2].Pass)
	assert.Contains(t, suite.Scenarios[2].Errors[0], "failed to parse YAML")
	assert.Nil(t, suite.Scenarios[2].Result)
}
