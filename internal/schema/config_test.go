package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/aql/internal/queryir"
)

func TestConfigResolveView(t *testing.T) {
	var nilCfg *Config
	assert.Equal(t, "transactions", nilCfg.ResolveView("transactions", ViewOptions{}))

	static := &Config{TableView: StaticViews(map[string]string{"transactions": "v_transactions"})}
	assert.Equal(t, "v_transactions", static.ResolveView("transactions", ViewOptions{}))
	assert.Equal(t, "accounts", static.ResolveView("accounts", ViewOptions{}))

	dynamic := &Config{TableView: func(name string, opts ViewOptions) string {
		if opts.WithDead {
			return name + "_all"
		}
		return ""
	}}
	assert.Equal(t, "transactions_all", dynamic.ResolveView("transactions", ViewOptions{WithDead: true}))
	assert.Equal(t, "transactions", dynamic.ResolveView("transactions", ViewOptions{}))
}

func TestConfigFiltersAndCustomize(t *testing.T) {
	cfg := &Config{
		Filters: map[string][]any{"categories": {map[string]any{"hidden": false}}},
		CustomizeQuery: func(q queryir.Query) queryir.Query {
			return q.Limit(5)
		},
	}
	assert.Len(t, cfg.FiltersFor("categories"), 1)
	assert.Empty(t, cfg.FiltersFor("accounts"))

	q := cfg.Customize(queryir.Q("transactions"))
	assert.Equal(t, 5, *q.LimitRows)

	cfg.TableFilters = func(string) []any { return nil }
	assert.Empty(t, cfg.FiltersFor("categories"))
}
