package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/querysql"
	"github.com/roach88/aql/internal/testutil"
)

// createTestStore opens a budget store in a temp dir with the budget
// config (transactions view, hidden-category filter) applied.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, testutil.BudgetSchema(), testutil.BudgetConfig(),
		WithIDGenerator(testutil.NewSequentialIDs("row")))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.ApplySchema(context.Background()))
	return s
}

// seedBudget inserts a small fixture:
//
//	t1 2024-03-15  -1000   Café Rouge   Groceries (Food)  cleared
//	t2 2024-03-01  -50000  Landlord     Rent (Bills)
//	t3 2024-04-02  200000  Employer     no category, notes "salary"
//	t4 2024-04-10  -300    Secret shop  Secret (hidden)
func seedBudget(t *testing.T, s *Store) {
	t.Helper()
	err := s.Seed(context.Background(), map[string][]map[string]any{
		"category_groups": {
			{"id": "g1", "name": "Bills"},
			{"id": "g2", "name": "Food"},
		},
		"categories": {
			{"id": "c1", "name": "Rent", "group": "g1", "hidden": false},
			{"id": "c2", "name": "Groceries", "group": "g2", "hidden": false},
			{"id": "c3", "name": "Secret", "group": "g2", "hidden": true},
		},
		"accounts": {
			{"id": "a1", "name": "Checking", "offbudget": false},
		},
		"transactions": {
			{"id": "t1", "date": "2024-03-15", "amount": -1000, "payee": "Café Rouge", "category": "c2", "account": "a1", "cleared": true},
			{"id": "t2", "date": "2024-03-01", "amount": -50000, "payee": "Landlord", "category": "c1", "account": "a1", "cleared": false},
			{"id": "t3", "date": "2024-04-02", "amount": 200000, "payee": "Employer", "notes": "salary", "account": "a1"},
			{"id": "t4", "date": "2024-04-10", "amount": -300, "payee": "Secret shop", "category": "c3"},
		},
	})
	require.NoError(t, err)
}

func run(t *testing.T, s *Store, q queryir.Query, params map[string]any) *Rows {
	t.Helper()
	res, err := querysql.NewCompiler(s.Schema(), testutil.BudgetConfig()).Compile(q)
	require.NoError(t, err)
	rows, err := s.Run(context.Background(), res, params)
	require.NoError(t, err)
	return rows
}
