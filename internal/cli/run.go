package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/aql/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Schema   string
	Query    string
	Config   string
	Database string
	Seed     string
	Params   []string

	// IDGenerator overrides row id generation for seeded rows (for testing).
	// If nil, the store assigns UUIDv7 ids.
	IDGenerator store.IDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compile a query and execute it against SQLite",
		Long: `Compile a query and run it against a SQLite database.

The database is created if it does not exist and the schema's tables and
views are applied before the query runs. --seed loads rows from a YAML
file of the form {table: [{field: value, ...}, ...]}.

Example:
  aql run --schema budget.cue --query monthly.yaml --db ./budget.db
  aql run -s budget.yaml -q search.yaml --param term=cafe --param since=2024-03-01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file or CUE package directory (default $AQL_SCHEMA)")
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "query document (YAML or JSON, - for stdin)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "views/filters file replacing the schema's own")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $AQL_DB or :memory:)")
	cmd.Flags().StringVar(&opts.Seed, "seed", "", "YAML file of rows to insert before running")
	cmd.Flags().StringArrayVarP(&opts.Params, "param", "p", nil, "query parameter as name=value (repeatable)")

	return cmd
}

func runQuery(opts *RunOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	params, err := parseParams(opts.Params)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err)
	}

	res, s, cfg, err := compileQuery(opts.RootOptions, cmd, opts.Schema, opts.Config, opts.Query)
	if err != nil {
		return reportError(formatter, err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.settings().DBPath
	}
	storeOpts := []store.Option{store.WithLogger(logger)}
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}

	logger.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath, s, cfg, storeOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Errorf("failed to open database: %w", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := st.ApplySchema(ctx); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	if opts.Seed != "" {
		if err := seedFromFile(ctx, st, opts.Seed); err != nil {
			return formatter.Fail(ExitCommandError, loadErrorCode(err), err)
		}
	}

	rows, err := st.Run(ctx, res, params)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStore, err)
	}
	formatter.VerboseLog("%d row(s)", len(rows.Rows))

	if formatter.JSON() {
		return formatter.Success(rows)
	}
	return writeRowsText(formatter, rows)
}

func seedFromFile(ctx context.Context, st *store.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("seed file not found: %s", path)}
		}
		return &LoadError{Code: ErrCodeGeneric, Message: "failed to read seed file", Err: err}
	}
	var rows map[string][]map[string]any
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return &LoadError{Code: ErrCodeGeneric, Message: "failed to parse seed file", Err: err}
	}
	if err := st.Seed(ctx, rows); err != nil {
		return &LoadError{Code: ErrCodeStore, Message: "failed to seed rows", Err: err}
	}
	return nil
}

func writeRowsText(formatter *OutputFormatter, rows *store.Rows) error {
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(rows.Columns, "\t"))
	for _, row := range rows.Rows {
		cells := make([]string, len(rows.Columns))
		for i, col := range rows.Columns {
			if v := row[col]; v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "\n(%d row(s))\n", len(rows.Rows))
	return nil
}
