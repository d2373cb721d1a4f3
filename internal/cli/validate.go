package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/aql/internal/schema"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Schema string
	Config string
}

// TableSummary describes one validated table.
type TableSummary struct {
	Name      string   `json:"name"`
	Fields    []string `json:"fields"`
	Refs      []string `json:"refs,omitempty"`
	Tombstone string   `json:"tombstone,omitempty"`
	View      string   `json:"view,omitempty"`
	Filters   int      `json:"filters,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool           `json:"valid"`
	Tables []TableSummary `json:"tables"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a schema and its configuration",
		Long: `Load a schema and check it without compiling anything.

Checks field types, ref targets, tombstone columns, and that configured
views and implicit filters name real tables and fields.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file or CUE package directory (default $AQL_SCHEMA)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "views/filters file replacing the schema's own")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	schemaPath := opts.Schema
	if schemaPath == "" {
		schemaPath = opts.settings().SchemaPath
	}
	s, cfg, err := loadSchema(schemaPath, opts.Config)
	if err != nil {
		code := loadErrorCode(err)
		if code == ErrCodeSchema {
			return formatter.Fail(ExitFailure, code, err)
		}
		return formatter.Fail(ExitCommandError, code, err)
	}

	result := ValidationResult{Valid: true, Tables: summarize(s, cfg)}
	formatter.VerboseLog("Validated %d table(s) from %s", len(result.Tables), schemaPath)

	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Schema valid: %d table(s)\n\n", len(result.Tables))
	for _, t := range result.Tables {
		fmt.Fprintf(formatter.Writer, "  %s: %d field(s)", t.Name, len(t.Fields))
		if len(t.Refs) > 0 {
			fmt.Fprintf(formatter.Writer, ", %d ref(s)", len(t.Refs))
		}
		if t.Filters > 0 {
			fmt.Fprintf(formatter.Writer, ", %d filter(s)", t.Filters)
		}
		if t.View != "" {
			fmt.Fprintf(formatter.Writer, " → %s", t.View)
		}
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func summarize(s *schema.Schema, cfg *schema.Config) []TableSummary {
	var views map[string]schema.View
	var filters map[string][]any
	if cfg != nil {
		views, filters = cfg.Views, cfg.Filters
	}

	tables := s.Tables()
	out := make([]TableSummary, len(tables))
	for i, t := range tables {
		sum := TableSummary{
			Name:    t.Name,
			Fields:  t.FieldNames(),
			View:    views[t.Name].Name,
			Filters: len(filters[t.Name]),
		}
		for _, f := range t.Fields {
			if f.Ref != "" {
				sum.Refs = append(sum.Refs, fmt.Sprintf("%s→%s", f.Name, f.Ref))
			}
		}
		sum.Tombstone, _ = t.Tombstone()
		out[i] = sum
	}
	return out
}
