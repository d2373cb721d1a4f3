package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryKeyStable(t *testing.T) {
	a := map[string]any{
		"table":  "transactions",
		"filter": []any{map[string]any{"amount": map[string]any{"$gt": 0}}},
		"select": []any{"id", "amount"},
	}
	b := map[string]any{
		"select": []any{"id", "amount"},
		"table":  "transactions",
		"filter": []any{map[string]any{"amount": map[string]any{"$gt": 0}}},
	}

	ka, err := QueryKey(a)
	require.NoError(t, err)
	kb, err := QueryKey(b)
	require.NoError(t, err)

	assert.Equal(t, ka, kb)
	assert.Len(t, ka, 64)
}

func TestQueryKeyDiffers(t *testing.T) {
	ka, err := QueryKey(map[string]any{"table": "transactions"})
	require.NoError(t, err)
	kb, err := QueryKey(map[string]any{"table": "accounts"})
	require.NoError(t, err)

	assert.NotEqual(t, ka, kb)
}

func TestHashWithDomainSeparation(t *testing.T) {
	data := []byte(`{"table":"t"}`)
	assert.NotEqual(t, hashWithDomain("aql/query/v1", data), hashWithDomain("aql/query/v2", data))
}

func TestQueryKeyKeepsNormalizationForms(t *testing.T) {
	nfc, err := QueryKey(map[string]any{"table": "payees", "filter": map[string]any{"name": "Caf\u00e9"}})
	require.NoError(t, err)
	nfd, err := QueryKey(map[string]any{"table": "payees", "filter": map[string]any{"name": "Cafe\u0301"}})
	require.NoError(t, err)

	assert.NotEqual(t, nfc, nfd)

	// diagnostics still print both spellings the same way
	a, err := MarshalCanonical("Caf\u00e9")
	require.NoError(t, err)
	b, err := MarshalCanonical("Cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
