package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/aql/internal/querysql"
)

// Rows is the result of running a compiled query.
type Rows struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Run executes a compiled query.
//
// params maps parameter names to values. Each placeholder is bound in
// res.Params order, converted with the type the compiler inferred, so a
// parameter used twice is bound twice. A missing parameter is an error.
//
// Returns an empty Rows.Rows (not nil) when nothing matches.
func (s *Store) Run(ctx context.Context, res *querysql.Result, params map[string]any) (*Rows, error) {
	args, err := bindParams(res.Params, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, res.SQL, args...)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("run query: columns: %w", err)
	}

	out := &Rows{Columns: cols, Rows: []map[string]any{}}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("run query: scan: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = fromStorage(res.OutputTypes[col], values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("run query: iterate: %w", err)
	}

	s.logger.Debug("query executed",
		"table", res.Dependencies[0],
		"rows", len(out.Rows),
		"params", len(args),
		"duration", time.Since(start),
	)
	return out, nil
}

func bindParams(named []querysql.NamedParam, values map[string]any) ([]any, error) {
	args := make([]any, len(named))
	for i, p := range named {
		v, ok := values[p.Name]
		if !ok {
			return nil, fmt.Errorf("missing parameter %q", p.Name)
		}
		conv, err := toStorage(p.Type, v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
		}
		args[i] = conv
	}
	return args, nil
}
