package querysql

import (
	"fmt"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/schema"
)

// typedValue is the result of compiling one expression.
//
// A literal carries a native value that is quoted or inlined on render;
// anything else carries a finished SQL fragment that must not be quoted
// again.
type typedValue struct {
	sql     string
	value   ir.Value
	typ     ir.Type
	literal bool

	// param is the parameter name when typ is param or was cast from it.
	param string
}

func literalOf(v ir.Value, t ir.Type) typedValue {
	return typedValue{value: v, typ: t, literal: true}
}

func fragment(sql string, t ir.Type) typedValue {
	return typedValue{sql: sql, typ: t}
}

// pathDesc is one join planned for a dotted path.
type pathDesc struct {
	tableName string
	tableID   string // unique alias
	joinField string
	joinTable string // alias (or root relation) joined from

	// relation is the view or table the join reads.
	relation string

	// noMapping joins the raw table instead of its configured view.
	noMapping bool
}

// compileContext is the per-call state of one compilation.
type compileContext struct {
	schema *schema.Schema
	config *schema.Config
	query  queryir.Query

	implicitTable string
	implicitID    string
	implicitField string

	// implicitRelation is what implicitID reads from; columns are mapped
	// to their internal names only when it is the raw table.
	implicitRelation string

	paths     map[string]*pathDesc
	pathOrder []string
	aliasSeq  int

	dependencies []string
	outputTypes  map[string]ir.Type
	columns      []string

	validateRefs bool
	withDead     bool

	params     []string
	paramTypes map[string]ir.Type

	// orders is visible to $sumOver while select expressions compile.
	orders []any

	stack      []frame
	production bool
}

func newCompileContext(s *schema.Schema, cfg *schema.Config, q queryir.Query, production bool) *compileContext {
	c := &compileContext{
		schema:        s,
		config:        cfg,
		query:         q,
		implicitTable: q.Table,
		paths:         make(map[string]*pathDesc),
		dependencies:  []string{q.Table},
		outputTypes:   make(map[string]ir.Type),
		validateRefs:  q.ValidateRefs(),
		withDead:      q.IncludeDead,
		paramTypes:    make(map[string]ir.Type),
		production:    production,
	}
	c.implicitID = c.tableRef(q.Table, false)
	c.implicitRelation = c.implicitID
	return c
}

// uid allocates the next table alias.
func (c *compileContext) uid(tableName string) string {
	c.aliasSeq++
	return fmt.Sprintf("%s%d", tableName, c.aliasSeq)
}

func (c *compileContext) tableRef(name string, isJoin bool) string {
	return c.config.ResolveView(name, schema.ViewOptions{
		WithDead:     c.query.IncludeDead,
		IsJoin:       isJoin,
		TableOptions: c.query.TableOptions,
	})
}

// column names field as seen through relation. A view exposes public
// names; the raw table stores the mapped internal column.
func (c *compileContext) column(table, relation, field string) string {
	if relation != table {
		return field
	}
	return c.config.ColumnName(table, field)
}

func (c *compileContext) addDependency(table string) {
	for _, dep := range c.dependencies {
		if dep == table {
			return
		}
	}
	c.dependencies = append(c.dependencies, table)
}

func (c *compileContext) setOutput(name string, t ir.Type) {
	if _, seen := c.outputTypes[name]; !seen {
		c.columns = append(c.columns, name)
	}
	c.outputTypes[name] = t
}

func (c *compileContext) addParam(name string) {
	c.params = append(c.params, name)
}

// takeParams returns the parameters emitted since the last call.
func (c *compileContext) takeParams() []string {
	out := c.params
	c.params = nil
	return out
}
