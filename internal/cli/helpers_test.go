package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	budgetSchema  = "testdata/budget.yaml"
	budgetSeed    = "testdata/seed.yaml"
	spendingQuery = "testdata/queries/spending.yaml"
)

// clearEnv unsets every AQL_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"AQL_ENV", "AQL_LOG_LEVEL", "AQL_LISTEN_ADDR", "AQL_DB", "AQL_SCHEMA", "AQL_CACHE_SIZE", "AQL_RATE_LIMIT", "AQL_RATE_BURST", "AQL_CORS_ORIGINS"} {
		t.Setenv(key, "")
	}
}

type cliRun struct {
	stdout string
	stderr string
	err    error
}

// execute runs the root command with args, the way main does.
func execute(t *testing.T, args ...string) cliRun {
	t.Helper()
	return executeWithInput(t, "", args...)
}

func executeWithInput(t *testing.T, stdin string, args ...string) cliRun {
	t.Helper()
	clearEnv(t)
	return runRoot(t, stdin, args...)
}

// runRoot runs the root command without touching the environment.
func runRoot(t *testing.T, stdin string, args ...string) cliRun {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return cliRun{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// decodeResponse parses a JSON envelope from stdout.
func decodeResponse(t *testing.T, out string) CLIResponse {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

// dataMap returns the envelope's data as an object.
func dataMap(t *testing.T, resp CLIResponse) map[string]any {
	t.Helper()
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok, "data is %T", resp.Data)
	return data
}
