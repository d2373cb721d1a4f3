package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/schema"
)

// columnTypes maps field types to SQLite column affinities.
var columnTypes = map[ir.Type]string{
	ir.TypeString:    "TEXT",
	ir.TypeID:        "TEXT",
	ir.TypeInteger:   "INTEGER",
	ir.TypeBoolean:   "INTEGER",
	ir.TypeDate:      "INTEGER",
	ir.TypeDateMonth: "INTEGER",
	ir.TypeDateYear:  "INTEGER",
	ir.TypeFloat:     "REAL",
	ir.TypeAny:       "",
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// TableDDL returns the CREATE TABLE statement for t. Fields remapped by
// the config are stored under their internal column name.
func TableDDL(t *schema.Table, cfg *schema.Config) string {
	cols := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		col := quoteIdent(cfg.ColumnName(t.Name, f.Name))
		if typ := columnTypes[f.Type]; typ != "" {
			col += " " + typ
		}
		switch {
		case f.Name == "id":
			col += " PRIMARY KEY"
		case f.IsTombstone():
			col += " NOT NULL DEFAULT 0"
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(t.Name), strings.Join(cols, ", "))
}

// ViewDDL returns the CREATE VIEW statement for a configured view, or ""
// when the table has no static view.
func ViewDDL(t *schema.Table, cfg *schema.Config) string {
	if cfg == nil {
		return ""
	}
	view, ok := cfg.Views[t.Name]
	if !ok || view.Name == "" || view.Name == t.Name {
		return ""
	}

	cols := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		cols = append(cols, "_."+quoteIdent(cfg.ColumnName(t.Name, f.Name))+" AS "+quoteIdent(f.Name))
	}
	return fmt.Sprintf("CREATE VIEW IF NOT EXISTS %s AS SELECT %s FROM %s _",
		quoteIdent(view.Name), strings.Join(cols, ", "), quoteIdent(t.Name))
}

// ApplySchema creates every table of the schema and every static view of
// the config. It is idempotent.
func (s *Store) ApplySchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("apply schema: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, t := range s.schema.Tables() {
		if _, err := tx.ExecContext(ctx, TableDDL(t, s.config)); err != nil {
			return fmt.Errorf("apply schema: create table %s: %w", t.Name, err)
		}
	}
	for _, t := range s.schema.Tables() {
		ddl := ViewDDL(t, s.config)
		if ddl == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("apply schema: create view for %s: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("apply schema: commit: %w", err)
	}
	return nil
}
