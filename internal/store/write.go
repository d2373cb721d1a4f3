package store

import (
	"context"
	"fmt"
	"strings"
)

// Insert writes one row given by public field names and returns its id.
//
// A missing id is generated. Values are converted to the column encoding
// of their field (dates, booleans); unknown fields are rejected.
func (s *Store) Insert(ctx context.Context, table string, row map[string]any) (string, error) {
	t, ok := s.schema.Table(table)
	if !ok {
		return "", fmt.Errorf("insert: table %q does not exist", table)
	}

	for name := range row {
		if _, ok := t.Field(name); !ok {
			return "", fmt.Errorf("insert %s: field %q does not exist", table, name)
		}
	}

	id, _ := row["id"].(string)
	if id == "" {
		id = s.ids.NewID()
	}

	var (
		cols         []string
		placeholders []string
		args         []any
	)
	for _, f := range t.Fields {
		var value any
		switch {
		case f.Name == "id":
			value = id
		default:
			v, present := row[f.Name]
			if !present {
				continue
			}
			conv, err := toStorage(f.Type, v)
			if err != nil {
				return "", fmt.Errorf("insert %s.%s: %w", table, f.Name, err)
			}
			value = conv
		}
		cols = append(cols, quoteIdent(s.config.ColumnName(table, f.Name)))
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(cols, ", "), strings.Join(placeholders, ", "))
	if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
		return "", fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}

// SoftDelete sets the tombstone of one row. Tables without a tombstone
// column cannot be soft-deleted.
func (s *Store) SoftDelete(ctx context.Context, table, id string) error {
	t, ok := s.schema.Table(table)
	if !ok {
		return fmt.Errorf("soft delete: table %q does not exist", table)
	}
	tomb, ok := t.Tombstone()
	if !ok {
		return fmt.Errorf("soft delete: table %q has no tombstone column", table)
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s = 1 WHERE id = ?", quoteIdent(table), quoteIdent(tomb))
	if _, err := s.db.ExecContext(ctx, stmt, id); err != nil {
		return fmt.Errorf("soft delete %s: %w", table, err)
	}
	return nil
}

// Seed inserts fixture rows table by table, in schema order.
func (s *Store) Seed(ctx context.Context, rows map[string][]map[string]any) error {
	for table := range rows {
		if _, ok := s.schema.Table(table); !ok {
			return fmt.Errorf("seed: table %q does not exist", table)
		}
	}
	for _, t := range s.schema.Tables() {
		for _, row := range rows[t.Name] {
			if _, err := s.Insert(ctx, t.Name, row); err != nil {
				return err
			}
		}
	}
	return nil
}
