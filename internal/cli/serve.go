package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/aql/internal/server"
	"github.com/roach88/aql/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Schema        string
	Config        string
	Database      string
	Addr          string
	NoStore       bool
	CacheSize     int
	RateLimit     float64
	RateBurst     int
	CORSOrigins   []string
	StatsInterval time.Duration
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the compiler over HTTP",
		Long: `Start an HTTP server that compiles (and optionally runs) queries.

  POST /v1/compile  {"query": {...}}
  POST /v1/query    {"query": {...}, "params": {...}}
  GET  /healthz

The server stops gracefully on SIGINT or SIGTERM.

Example:
  aql serve --schema budget.cue --db ./budget.db --addr :8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Schema, "schema", "s", "", "schema file or CUE package directory (default $AQL_SCHEMA)")
	cmd.Flags().StringVar(&opts.Config, "config", "", "views/filters file replacing the schema's own")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $AQL_DB or :memory:)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default $AQL_LISTEN_ADDR or :8080)")
	cmd.Flags().BoolVar(&opts.NoStore, "no-store", false, "compile only; disable POST /v1/query")
	cmd.Flags().IntVar(&opts.CacheSize, "cache-size", -1, "compiled-query cache entries, 0 disables (default $AQL_CACHE_SIZE or 256)")
	cmd.Flags().Float64Var(&opts.RateLimit, "rate-limit", -1, "per-client requests per second on /v1, 0 disables (default $AQL_RATE_LIMIT or 0)")
	cmd.Flags().IntVar(&opts.RateBurst, "rate-burst", 0, "per-client burst (default $AQL_RATE_BURST or 10)")
	cmd.Flags().StringSliceVar(&opts.CORSOrigins, "cors-origin", nil, "allowed browser origin, repeatable (default $AQL_CORS_ORIGINS)")
	cmd.Flags().DurationVar(&opts.StatsInterval, "stats-interval", 0, "log cache statistics at this interval (0 disables)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	settings := opts.settings()
	logger := opts.logger()

	schemaPath := opts.Schema
	if schemaPath == "" {
		schemaPath = settings.SchemaPath
	}
	s, cfg, err := loadSchema(schemaPath, opts.Config)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err)
	}

	addr := opts.Addr
	if addr == "" {
		addr = settings.ListenAddr
	}
	cacheSize := opts.CacheSize
	if cacheSize < 0 {
		cacheSize = settings.CacheSize
	}

	limit := server.RateLimit{RequestsPerSecond: settings.RateLimit, Burst: settings.RateBurst}
	if opts.RateLimit >= 0 {
		limit.RequestsPerSecond = opts.RateLimit
	}
	if opts.RateBurst > 0 {
		limit.Burst = opts.RateBurst
	}
	origins := settings.CORSOrigins
	if len(opts.CORSOrigins) > 0 {
		origins = opts.CORSOrigins
	}

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithCacheSize(cacheSize),
		server.WithProduction(settings.IsProduction()),
		server.WithRateLimit(limit),
		server.WithCORS(origins...),
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opts.NoStore {
		dbPath := opts.Database
		if dbPath == "" {
			dbPath = settings.DBPath
		}
		st, err := store.Open(dbPath, s, cfg, store.WithLogger(logger))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Errorf("failed to open database: %w", err))
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		if err := st.ApplySchema(ctx); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, err)
		}
		serverOpts = append(serverOpts, server.WithStore(st))
		logger.Info("database ready", "path", dbPath)
	}

	srv := server.New(s, cfg, serverOpts...)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx, addr)
	})
	if opts.StatsInterval > 0 {
		g.Go(func() error {
			reportStats(ctx, srv, logger, opts.StatsInterval)
			return nil
		})
	}

	fmt.Fprintf(formatter.GetErrWriter(), "Serving on %s. Press Ctrl-C to stop.\n", addr)
	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "server error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// reportStats logs cache counters every interval until ctx is done.
func reportStats(ctx context.Context, srv *server.Server, logger *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := srv.CacheStats()
			logger.Info("query cache", "entries", stats.Entries, "hits", stats.Hits, "misses", stats.Misses)
		}
	}
}
