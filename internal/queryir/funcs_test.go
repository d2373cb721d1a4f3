package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuncNamesRoundTrip(t *testing.T) {
	for name, f := range funcNames {
		assert.Equal(t, name, f.String())
		lo, hi := f.Arity()
		assert.GreaterOrEqual(t, hi, lo, name)
		assert.Positive(t, lo, name)
	}
	for name, op := range operatorNames {
		assert.Equal(t, name, op.String())
	}
}

func TestFuncAggregates(t *testing.T) {
	assert.True(t, FuncSum.IsAggregate())
	assert.True(t, FuncCount.IsAggregate())
	assert.False(t, FuncSumOver.IsAggregate())
	assert.False(t, FuncLower.IsAggregate())
}

func TestSuggest(t *testing.T) {
	assert.Equal(t, "$month", suggest("$mnth", funcNames))
	assert.Equal(t, "$notlike", suggest("$notLike", operatorNames))
	assert.Equal(t, "", suggest("$frobnicate", funcNames))
}
