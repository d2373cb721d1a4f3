package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/querysql"
	"github.com/roach88/aql/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Schema string
	Query  string
	Config string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a query to SQL",
		Long: `Compile an AQL query document against a schema and print the SQL.

Alongside the statement the command reports the output columns and their
types, the placeholder parameters in binding order, and the tables the
query reads.

Examples:
  aql compile --schema budget.cue --query monthly.yaml
  aql compile --schema budget.yaml --query - --format json < q.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file or CUE package directory (default $AQL_SCHEMA)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document (YAML or JSON, - for stdin)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "views/filters file replacing the schema's own")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res, _, _, err := compileQuery(opts.RootOptions, cmd, opts.Schema, opts.Config, opts.Query)
	if err != nil {
		return reportError(formatter, err)
	}
	formatter.VerboseLog("Compiled %s: %d column(s), %d param(s)", res.Dependencies[0], len(res.Columns), len(res.Params))

	if formatter.JSON() {
		return formatter.Success(res)
	}
	writeCompileText(formatter, res)
	return nil
}

// compileQuery loads the schema and query and compiles them.
func compileQuery(opts *RootOptions, cmd *cobra.Command, schemaPath, configPath, queryPath string) (*querysql.Result, *schema.Schema, *schema.Config, error) {
	if schemaPath == "" {
		schemaPath = opts.settings().SchemaPath
	}
	s, cfg, err := loadSchema(schemaPath, configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	q, err := loadQuery(queryPath, cmd.InOrStdin())
	if err != nil {
		return nil, nil, nil, err
	}

	compiler := querysql.NewCompiler(s, cfg,
		querysql.WithProduction(opts.settings().IsProduction()),
		querysql.WithLogger(opts.logger()),
	)
	res, err := compiler.Compile(q)
	if err != nil {
		return nil, nil, nil, err
	}
	return res, s, cfg, nil
}

func writeCompileText(formatter *OutputFormatter, res *querysql.Result) {
	w := formatter.Writer
	fmt.Fprintln(w, res.SQL)
	fmt.Fprintln(w)

	cols := make([]string, len(res.Columns))
	for i, col := range res.Columns {
		cols[i] = fmt.Sprintf("%s (%s)", col, res.OutputTypes[col])
	}
	fmt.Fprintf(w, "Columns:   %s\n", strings.Join(cols, ", "))

	if len(res.Params) > 0 {
		params := make([]string, len(res.Params))
		for i, p := range res.Params {
			t := string(p.Type)
			if t == "" {
				t = "any"
			}
			params[i] = fmt.Sprintf("%s (%s)", p.Name, t)
		}
		fmt.Fprintf(w, "Params:    %s\n", strings.Join(params, ", "))
	}

	fmt.Fprintf(w, "Tables:    %s\n", strings.Join(res.Dependencies, ", "))
	fmt.Fprintf(w, "Aggregate: %t\n", res.Aggregate)
}

// reportError prints err and returns the ExitError for it. Compile errors
// are query failures (exit 1); everything else is a command error.
func reportError(formatter *OutputFormatter, err error) error {
	var ce *ir.CompileError
	if !errors.As(err, &ce) {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err)
	}

	if !formatter.JSON() {
		fmt.Fprintf(formatter.Writer, "Error [%s]: %s\n", ce.Code, ce.Error())
		if formatter.Verbose {
			if stack := ce.StackTrace(); stack != "" {
				fmt.Fprintf(formatter.GetErrWriter(), "\nGo stack:\n%s", stack)
			}
		}
		return WrapExitError(ExitFailure, string(ce.Code), err)
	}

	details := map[string]string{}
	if ce.Suggestion != "" {
		details["suggestion"] = ce.Suggestion
	}
	if ce.Trace != "" {
		details["trace"] = ce.Trace
	}
	var payload any
	if len(details) > 0 {
		payload = details
	}
	_ = formatter.Error(string(ce.Code), ce.Message, payload)
	return WrapExitError(ExitFailure, string(ce.Code), err)
}
