package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/aql/internal/store"
	"github.com/roach88/aql/internal/testutil"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	return New(testutil.BudgetSchema(), testutil.BudgetConfig(), opts...)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "server.db"), testutil.BudgetSchema(), testutil.BudgetConfig(),
		store.WithIDGenerator(testutil.NewSequentialIDs("row")))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ctx := context.Background()
	require.NoError(t, st.ApplySchema(ctx))
	require.NoError(t, st.Seed(ctx, map[string][]map[string]any{
		"transactions": {
			{"id": "t1", "date": "2024-03-15", "amount": -1000, "payee": "Café Rouge"},
			{"id": "t2", "date": "2024-04-02", "amount": 200000, "payee": "Employer"},
			{"id": "t3", "date": "2024-04-10", "amount": -300, "payee": "Corner shop"},
		},
	}))
	return st
}

func post(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, false, body["store"])
}

func TestRequestID_PassThrough(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestCompile(t *testing.T) {
	s := newTestServer(t)

	rec := post(t, s, "/v1/compile",
		`{"query": {"table": "transactions", "select": ["payee", "category.name"], "filter": {"amount": {"$lt": ":max"}}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[compileResponse](t, rec)
	assert.Contains(t, body.SQL, "FROM v_transactions")
	assert.Contains(t, body.SQL, "LEFT JOIN categories categories1")
	assert.Equal(t, []string{"payee", "category.name", "id"}, body.Columns)
	assert.Equal(t, []string{"transactions", "categories"}, body.Dependencies)
	require.Len(t, body.Params, 1)
	assert.Equal(t, "max", body.Params[0].Name)
	assert.EqualValues(t, "integer", body.Params[0].Type)
	assert.EqualValues(t, "string", body.OutputTypes["payee"])
	assert.False(t, body.Aggregate)
	assert.False(t, body.Cached)
}

func TestCompile_Cache(t *testing.T) {
	s := newTestServer(t)

	first := post(t, s, "/v1/compile", `{"query": {"table": "transactions", "select": ["payee"], "limit": 5}}`)
	require.Equal(t, http.StatusOK, first.Code)
	assert.False(t, decode[compileResponse](t, first).Cached)

	// same query, different key order
	second := post(t, s, "/v1/compile", `{"query": {"limit": 5, "select": ["payee"], "table": "transactions"}}`)
	require.Equal(t, http.StatusOK, second.Code)
	assert.True(t, decode[compileResponse](t, second).Cached)

	third := post(t, s, "/v1/compile", `{"query": {"table": "transactions", "select": ["payee"], "limit": 6}}`)
	require.Equal(t, http.StatusOK, third.Code)
	assert.False(t, decode[compileResponse](t, third).Cached)

	assert.Equal(t, CacheStats{Entries: 2, Hits: 1, Misses: 2}, s.CacheStats())
}

func TestCompile_Errors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		body     string
		status   int
		code     string
		contains string
	}{
		{
			name:     "unknown field",
			body:     `{"query": {"table": "transactions", "select": ["nope"]}}`,
			status:   http.StatusBadRequest,
			code:     "SCHEMA_ERROR",
			contains: "Field “nope” does not exist",
		},
		{
			name:     "unknown function",
			body:     `{"query": {"table": "transactions", "select": [{"t": {"$summ": "$amount"}}]}}`,
			status:   http.StatusBadRequest,
			code:     "UNKNOWN_FUNCTION",
			contains: "did you mean $sum?",
		},
		{
			name:     "missing table",
			body:     `{"query": {"select": ["id"]}}`,
			status:   http.StatusBadRequest,
			code:     "SYNTAX_ERROR",
			contains: "table is required",
		},
		{
			name:     "missing query",
			body:     `{}`,
			status:   http.StatusBadRequest,
			code:     "INVALID_REQUEST",
			contains: "query is required",
		},
		{
			name:     "unknown request field",
			body:     `{"query": {"table": "transactions"}, "extra": 1}`,
			status:   http.StatusBadRequest,
			code:     "INVALID_REQUEST",
			contains: "unknown field",
		},
		{
			name:     "malformed json",
			body:     `{"query": `,
			status:   http.StatusBadRequest,
			code:     "INVALID_REQUEST",
			contains: "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s, "/v1/compile", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Contains(t, body.Error, tt.contains)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestCompile_ProductionKeepsTrace(t *testing.T) {
	s := newTestServer(t, WithProduction(true))

	rec := post(t, s, "/v1/compile", `{"query": {"table": "transactions", "select": ["nope"]}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "Expression stack:")
}

func TestCompile_ContentType(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/compile", bytes.NewBufferString(`{"query": {"table": "transactions"}}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestQuery_NoStore(t *testing.T) {
	s := newTestServer(t)

	rec := post(t, s, "/v1/query", `{"query": {"table": "transactions"}}`)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "NO_STORE", decode[errorResponse](t, rec).Code)
}

func TestQuery(t *testing.T) {
	s := newTestServer(t, WithStore(newTestStore(t)))

	rec := post(t, s, "/v1/query", `{
		"query": {"table": "transactions", "select": ["payee", "date"], "filter": {"date": {"$gte": ":since"}}, "orderBy": ["date"]},
		"params": {"since": "2024-04-01"}
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[store.Rows](t, rec)
	assert.Equal(t, []string{"payee", "date", "id"}, body.Columns)
	require.Len(t, body.Rows, 2)
	assert.Equal(t, "Employer", body.Rows[0]["payee"])
	assert.Equal(t, "2024-04-02", body.Rows[0]["date"])
	assert.Equal(t, "Corner shop", body.Rows[1]["payee"])
}

func TestQuery_Aggregate(t *testing.T) {
	s := newTestServer(t, WithStore(newTestStore(t)))

	rec := post(t, s, "/v1/query", `{"query": {"table": "transactions", "select": [{"total": {"$sum": "$amount"}}]}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[store.Rows](t, rec)
	require.Len(t, body.Rows, 1)
	assert.Equal(t, float64(198700), body.Rows[0]["total"])
}

func TestQuery_CacheKeepsNormalizationForms(t *testing.T) {
	s := newTestServer(t, WithStore(newTestStore(t)))

	rec := post(t, s, "/v1/query", `{"query": {"table": "transactions", "select": ["payee"], "filter": {"payee": "Caf\u00e9 Rouge"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, decode[store.Rows](t, rec).Rows, 1)

	rec = post(t, s, "/v1/query", `{"query": {"table": "transactions", "select": ["payee"], "filter": {"payee": "Cafe\u0301 Rouge"}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, decode[store.Rows](t, rec).Rows)

	assert.Equal(t, CacheStats{Entries: 2, Hits: 0, Misses: 2}, s.CacheStats())
}

func TestQuery_Failures(t *testing.T) {
	s := newTestServer(t, WithStore(newTestStore(t)))

	rec := post(t, s, "/v1/query", `{"query": {"table": "transactions", "filter": {"amount": ":min"}}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.Contains(t, body.Error, `missing parameter "min"`)

	rec = post(t, s, "/v1/query", `{"query": {"table": "budgets"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SCHEMA_ERROR", decode[errorResponse](t, rec).Code)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	cancel()
	assert.NoError(t, <-done)
}
