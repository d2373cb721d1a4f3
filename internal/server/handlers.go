package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/querysql"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// queryRequest is the body of /v1/compile and /v1/query.
type queryRequest struct {
	Query  *queryir.Document `json:"query"`
	Params map[string]any    `json:"params,omitempty"`
}

// compileResponse is the body returned by /v1/compile.
type compileResponse struct {
	SQL          string                `json:"sql"`
	Params       []querysql.NamedParam `json:"params"`
	OutputTypes  map[string]ir.Type    `json:"outputTypes"`
	Columns      []string              `json:"columns"`
	Dependencies []string              `json:"dependencies"`
	Aggregate    bool                  `json:"aggregate"`
	Cached       bool                  `json:"cached"`
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON marshals v as JSON and writes it with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("writeJSON encode error", "error", err)
	}
}

// writeError writes a structured JSON error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      code,
		RequestID: RequestIDFrom(r.Context()),
	})
}

// writeFailure maps an error to a response: compile errors are the
// caller's fault, everything else is ours.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var ce *ir.CompileError
	if errors.As(err, &ce) {
		s.writeError(w, r, http.StatusBadRequest, string(ce.Code), ce.Error())
		return
	}
	s.logger.Error("request failed", "request_id", RequestIDFrom(r.Context()), "error", err)
	s.writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}

// decodeRequest decodes the JSON body. Numbers are kept as json.Number so
// large integers survive.
func decodeRequest(w http.ResponseWriter, r *http.Request) (*queryRequest, error) {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()

	var req queryRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Query == nil {
		return nil, fmt.Errorf("invalid request body: query is required")
	}
	return &req, nil
}

// compile resolves a request's query through the cache.
func (s *Server) compile(req *queryRequest) (*querysql.Result, bool, error) {
	q, err := req.Query.Query()
	if err != nil {
		return nil, false, ir.NewSyntaxError("%s", err.Error())
	}

	key, err := ir.QueryKey(q.Description())
	if err != nil {
		return nil, false, err
	}
	return s.cache.get(key, func() (*querysql.Result, error) {
		return s.compiler.Compile(q)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"store":  s.store != nil,
		"cache":  s.CacheStats(),
	})
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	res, cached, err := s.compile(req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, compileResponse{
		SQL:          res.SQL,
		Params:       res.Params,
		OutputTypes:  res.OutputTypes,
		Columns:      res.Columns,
		Dependencies: res.Dependencies,
		Aggregate:    res.Aggregate,
		Cached:       cached,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, http.StatusNotImplemented, "NO_STORE", "query execution is not configured")
		return
	}

	req, err := decodeRequest(w, r)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	res, _, err := s.compile(req)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	rows, err := s.store.Run(r.Context(), res, req.Params)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}
