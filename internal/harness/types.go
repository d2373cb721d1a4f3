package harness

import (
	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/querysql"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation and assertion held.
	Pass bool `json:"pass"`

	// SQL is the compiled statement, empty when compilation failed.
	SQL string `json:"sql,omitempty"`

	// Params lists the placeholders in bind order.
	Params []querysql.NamedParam `json:"params,omitempty"`

	// Columns and Rows hold the executed result.
	Columns []string         `json:"columns,omitempty"`
	Rows    []map[string]any `json:"rows,omitempty"`

	// Error is the compile or execution error message, if any.
	Error string `json:"error,omitempty"`

	// ErrorCode is set when Error came from the compiler.
	ErrorCode ir.ErrorCode `json:"error_code,omitempty"`

	// Errors contains validation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
