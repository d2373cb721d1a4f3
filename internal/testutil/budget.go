package testutil

import (
	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/schema"
)

// BudgetSchema returns the four-table budget schema used across tests.
//
//	transactions ─category→ categories ─group→ category_groups
//	             ─account→  accounts
//
// Every table has a tombstone column.
func BudgetSchema() *schema.Schema {
	return schema.MustNew(
		schema.NewTable("transactions",
			schema.Field{Name: "id", Type: ir.TypeID},
			schema.Field{Name: "date", Type: ir.TypeDate},
			schema.Field{Name: "amount", Type: ir.TypeInteger},
			schema.Field{Name: "payee", Type: ir.TypeString},
			schema.Field{Name: "notes", Type: ir.TypeString},
			schema.Field{Name: "cleared", Type: ir.TypeBoolean},
			schema.Field{Name: "category", Type: ir.TypeID, Ref: "categories"},
			schema.Field{Name: "account", Type: ir.TypeID, Ref: "accounts"},
			schema.Field{Name: "tombstone", Type: ir.TypeBoolean},
		),
		schema.NewTable("categories",
			schema.Field{Name: "id", Type: ir.TypeID},
			schema.Field{Name: "name", Type: ir.TypeString},
			schema.Field{Name: "group", Type: ir.TypeID, Ref: "category_groups"},
			schema.Field{Name: "hidden", Type: ir.TypeBoolean},
			schema.Field{Name: "tombstone", Type: ir.TypeBoolean},
		),
		schema.NewTable("category_groups",
			schema.Field{Name: "id", Type: ir.TypeID},
			schema.Field{Name: "name", Type: ir.TypeString},
			schema.Field{Name: "tombstone", Type: ir.TypeBoolean},
		),
		schema.NewTable("accounts",
			schema.Field{Name: "id", Type: ir.TypeID},
			schema.Field{Name: "name", Type: ir.TypeString},
			schema.Field{Name: "offbudget", Type: ir.TypeBoolean},
			schema.Field{Name: "tombstone", Type: ir.TypeBoolean},
		),
	)
}

// BudgetConfig reads transactions through v_transactions, where the
// payee column is stored as description, and hides hidden categories.
func BudgetConfig() *schema.Config {
	return &schema.Config{
		Views: map[string]schema.View{
			"transactions": {
				Name:   "v_transactions",
				Fields: map[string]string{"payee": "description"},
			},
		},
		Filters: map[string][]any{
			"categories": {map[string]any{"hidden": false}},
		},
	}
}

// MinimalSchema is the two-table schema with no tombstones:
// transactions{id, amount, category→categories}, categories{id, name}.
func MinimalSchema() *schema.Schema {
	return schema.MustNew(
		schema.NewTable("transactions",
			schema.Field{Name: "id", Type: ir.TypeID},
			schema.Field{Name: "amount", Type: ir.TypeInteger},
			schema.Field{Name: "category", Type: ir.TypeID, Ref: "categories"},
		),
		schema.NewTable("categories",
			schema.Field{Name: "id", Type: ir.TypeID},
			schema.Field{Name: "name", Type: ir.TypeString},
		),
	)
}
