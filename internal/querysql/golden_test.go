package querysql

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/schema"
	"github.com/roach88/aql/internal/testutil"
)

// TestCompile_Golden snapshots full statements. Regenerate with:
//
//	go test ./internal/querysql -run Golden -update
func TestCompile_Golden(t *testing.T) {
	tests := []struct {
		name   string
		schema *schema.Schema
		config *schema.Config
		query  queryir.Query
	}{
		{
			name:   "join_scenario",
			schema: testutil.MinimalSchema(),
			query: queryir.Q("transactions").
				Select("id", map[string]any{"categoryName": "category.name"}).
				Filter(map[string]any{"amount": map[string]any{"$gt": 0}}),
		},
		{
			name:   "budget_view",
			schema: testutil.BudgetSchema(),
			config: testutil.BudgetConfig(),
			query: queryir.Q("transactions").
				Select("payee", "category.name").
				Filter(map[string]any{"amount": map[string]any{"$lt": 0}}).
				OrderBy(map[string]any{"date": "desc"}).
				Limit(50),
		},
		{
			name:   "monthly_totals",
			schema: testutil.BudgetSchema(),
			query: queryir.Q("transactions").
				Select(
					map[string]any{"month": map[string]any{"$month": "$date"}},
					map[string]any{"total": map[string]any{"$sum": "$amount"}},
				).
				Filter(map[string]any{"date": map[string]any{"$gte": "2024-01-01"}}).
				GroupBy(map[string]any{"$month": "$date"}).
				OrderBy(map[string]any{"$month": "$date", "$dir": "asc"}),
		},
		{
			name:   "shadow_ref",
			schema: testutil.BudgetSchema(),
			query:  queryir.Q("transactions").Select("category", "account"),
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewCompiler(tt.schema, tt.config).Compile(tt.query)
			require.NoError(t, err)
			g.Assert(t, tt.name, []byte(res.SQL+"\n"))
		})
	}
}
