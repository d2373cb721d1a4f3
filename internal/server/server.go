// Package server exposes the query compiler over HTTP.
//
//	POST /v1/compile  {"query": {...}}                  → compiled SQL and metadata
//	POST /v1/query    {"query": {...}, "params": {...}} → result rows (needs a store)
//	GET  /healthz
//
// Compile failures are reported as 400 with the diagnostic message and
// error code; anything else is a 500. When rate limiting is on, clients
// over budget on /v1 get 429 RATE_LIMITED.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/roach88/aql/internal/querysql"
	"github.com/roach88/aql/internal/schema"
	"github.com/roach88/aql/internal/store"
)

// Server serves compile and query requests for one schema.
type Server struct {
	schema     *schema.Schema
	config     *schema.Config
	compiler   *querysql.Compiler
	store      *store.Store
	cache      *queryCache
	logger     *slog.Logger
	production bool
	limit      RateLimit
	limiters   *clientLimiters
	origins    []string
	router     chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables POST /v1/query against st.
func WithStore(st *store.Store) Option {
	return func(s *Server) {
		s.store = st
	}
}

// WithLogger sets the request and compile logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCacheSize bounds the compiled-query cache. 0 or less disables it.
func WithCacheSize(n int) Option {
	return func(s *Server) {
		s.cache = newQueryCache(n)
	}
}

// WithProduction drops internal stacks from compile errors.
func WithProduction(production bool) Option {
	return func(s *Server) {
		s.production = production
	}
}

// WithRateLimit enables a per-client token bucket on /v1 routes.
func WithRateLimit(cfg RateLimit) Option {
	return func(s *Server) {
		s.limit = cfg
	}
}

// WithCORS allows browser requests from origins. "*" allows any origin.
func WithCORS(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// New creates a server for schema sch. cfg may be nil.
func New(sch *schema.Schema, cfg *schema.Config, opts ...Option) *Server {
	s := &Server{
		schema: sch,
		config: cfg,
		cache:  newQueryCache(256),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.compiler = querysql.NewCompiler(sch, cfg,
		querysql.WithProduction(s.production),
		querysql.WithLogger(s.logger),
	)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(chimw.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", RequestIDHeader},
			ExposedHeaders: []string{RequestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		if s.limit.RequestsPerSecond > 0 {
			s.limiters = newClientLimiters(s.limit)
			r.Use(s.rateLimit(s.limiters))
		}
		r.Use(chimw.AllowContentType("application/json"))
		r.Post("/compile", s.handleCompile)
		r.Post("/query", s.handleQuery)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("HTTP server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// CacheStats is a snapshot of compiled-query cache usage.
type CacheStats struct {
	Entries int `json:"entries"`
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
}

// CacheStats returns the current cache counters.
func (s *Server) CacheStats() CacheStats {
	entries, hits, misses := s.cache.stats()
	return CacheStats{Entries: entries, Hits: hits, Misses: misses}
}
