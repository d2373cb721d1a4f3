package querysql

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/schema"
)

// Compiler compiles queries against one schema and configuration.
//
// A Compiler holds no per-compilation state and is safe for concurrent
// use. Each Compile call gets a fresh alias counter, so identical queries
// always produce identical SQL.
type Compiler struct {
	schema     *schema.Schema
	config     *schema.Config
	production bool
	logger     *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithProduction drops Go call stacks from compile errors. Expression
// traces are kept.
func WithProduction(production bool) Option {
	return func(c *Compiler) {
		c.production = production
	}
}

// WithLogger sets the logger used for per-compilation debug output.
//
// Default: a logger that discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// NewCompiler creates a Compiler. cfg may be nil.
func NewCompiler(s *schema.Schema, cfg *schema.Config, opts ...Option) *Compiler {
	c := &Compiler{
		schema: s,
		config: cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SQLPieces are the clauses of a compiled query. Empty strings mean the
// clause is absent. Where always starts with "WHERE".
type SQLPieces struct {
	Select  string `json:"select"`
	From    string `json:"from"`
	Joins   string `json:"joins,omitempty"`
	Where   string `json:"where"`
	GroupBy string `json:"groupBy,omitempty"`
	OrderBy string `json:"orderBy,omitempty"`
	Limit   *int   `json:"limit,omitempty"`
	Offset  *int   `json:"offset,omitempty"`
}

// NamedParam is one positional placeholder. A parameter used more than
// once appears once per placeholder.
type NamedParam struct {
	Name string  `json:"name"`
	Type ir.Type `json:"type,omitempty"`
}

// Result is a compiled query.
type Result struct {
	Pieces SQLPieces `json:"pieces"`

	// SQL is the assembled statement (see BuildSQL).
	SQL string `json:"sql"`

	// OutputTypes maps each output column to its type tag.
	OutputTypes map[string]ir.Type `json:"outputTypes"`

	// Columns lists output columns in select order.
	Columns []string `json:"columns"`

	// Dependencies lists the tables read, root table first.
	Dependencies []string `json:"dependencies"`

	// Params lists placeholders in binding order.
	Params []NamedParam `json:"params"`

	// Aggregate is true when the query groups or calls an aggregate.
	Aggregate bool `json:"aggregate"`
}

// Compile compiles q into SQL.
//
// Compilation order:
//  1. CustomizeQuery rewrites the query
//  2. select, where, groupBy and orderBy compile, planning joins
//  3. joins compile last, once every path is known
//
// Placeholders are reordered to match the SQL text: select, joins, where,
// groupBy, orderBy.
//
// Errors are *ir.CompileError values carrying an expression trace, or a
// plain error when the query itself is nil-shaped.
func (cp *Compiler) Compile(q queryir.Query) (res *Result, err error) {
	q = cp.config.Customize(q)
	if q.Table == "" {
		return nil, ir.NewSyntaxError("Query has no table")
	}

	c := newCompileContext(cp.schema, cp.config, q, cp.production)
	defer func() {
		var ce *ir.CompileError
		if errors.As(err, &ce) && !ce.Annotated() {
			ce.Annotate("", !cp.production)
		}
		if err != nil {
			cp.logger.Debug("compile failed", "table", q.Table, "error", err)
		}
	}()

	if _, ok := cp.schema.Table(q.Table); !ok {
		return nil, ir.NewSchemaError("Table “%s” does not exist in the schema", q.Table)
	}

	aggregate := queryir.IsAggregate(q)

	selectSQL, err := c.compileSelect(q.SelectExprs, aggregate)
	if err != nil {
		return nil, err
	}
	selectParams := c.takeParams()

	where, err := cp.compileWhere(c, q)
	if err != nil {
		return nil, err
	}
	whereParams := c.takeParams()

	var groupBy, orderBy string
	if len(q.GroupExprs) > 0 {
		g, err := c.compileGroupBy(q.GroupExprs)
		if err != nil {
			return nil, err
		}
		groupBy = "GROUP BY " + g
	}
	groupParams := c.takeParams()

	if len(q.OrderExprs) > 0 {
		o, err := c.compileOrderBy(q.OrderExprs)
		if err != nil {
			return nil, err
		}
		orderBy = "ORDER BY " + o
	}
	orderParams := c.takeParams()

	joins, err := c.compileJoins()
	if err != nil {
		return nil, err
	}
	joinParams := c.takeParams()

	var names []string
	for _, group := range [][]string{selectParams, joinParams, whereParams, groupParams, orderParams} {
		names = append(names, group...)
	}
	params := make([]NamedParam, len(names))
	for i, name := range names {
		params[i] = NamedParam{Name: name, Type: c.paramTypes[name]}
	}

	res = &Result{
		Pieces: SQLPieces{
			Select:  selectSQL,
			From:    c.implicitID,
			Joins:   joins,
			Where:   where,
			GroupBy: groupBy,
			OrderBy: orderBy,
			Limit:   q.LimitRows,
			Offset:  q.OffsetRows,
		},
		OutputTypes:  c.outputTypes,
		Columns:      c.columns,
		Dependencies: c.dependencies,
		Params:       params,
		Aggregate:    aggregate,
	}
	res.SQL = BuildSQL(res.Pieces)

	cp.logger.Debug("compiled query",
		"table", q.Table,
		"joins", len(c.pathOrder),
		"params", len(params),
		"aggregate", aggregate,
	)
	return res, nil
}

// compileWhere builds the WHERE clause: user filters, then the root
// table's implicit filters (skipped in raw mode), then its tombstone check
// (skipped when dead rows are requested).
func (cp *Compiler) compileWhere(c *compileContext, q queryir.Query) (string, error) {
	where := "WHERE 1"
	if len(q.FilterExprs) > 0 {
		cond, err := c.compileWhere(q.FilterExprs)
		if err != nil {
			return "", err
		}
		where = "WHERE " + cond
	}

	if !q.RawMode {
		filters, err := c.internalFilters(q.Table)
		if err != nil {
			return "", err
		}
		if len(filters) > 0 {
			cond, err := c.compileWhere(filters)
			if err != nil {
				return "", err
			}
			where += " AND " + cond
		}
	}

	if !c.withDead {
		if tomb, ok := c.tombstone(q.Table); ok {
			where += " AND " + c.implicitID + "." + tomb + " = 0"
		}
	}
	return where, nil
}

// BuildSQL assembles pieces into one statement, one clause per line.
// An offset without a limit is emitted as LIMIT -1 OFFSET n.
func BuildSQL(p SQLPieces) string {
	lines := []string{fmt.Sprintf("SELECT %s FROM %s", p.Select, p.From)}
	for _, clause := range []string{p.Joins, p.Where, p.GroupBy, p.OrderBy} {
		if clause != "" {
			lines = append(lines, clause)
		}
	}
	switch {
	case p.Limit != nil:
		lines = append(lines, fmt.Sprintf("LIMIT %d", *p.Limit))
	case p.Offset != nil:
		lines = append(lines, "LIMIT -1")
	}
	if p.Offset != nil {
		lines = append(lines, fmt.Sprintf("OFFSET %d", *p.Offset))
	}
	return strings.Join(lines, "\n")
}
