package querysql

import (
	"strings"

	"github.com/roach88/aql/internal/ir"
	"github.com/roach88/aql/internal/queryir"
	"github.com/roach88/aql/internal/schema"
)

// compileSelect compiles the select list. Unless the query aggregates,
// the root id is always selected.
func (c *compileContext) compileSelect(exprs []any, aggregate bool) (sql string, err error) {
	defer c.enter(frameSelect, exprs)(&err)

	if !aggregate && !containsString(exprs, "id") && !containsString(exprs, "*") {
		exprs = append(exprs[:len(exprs):len(exprs)], "id")
	}

	// $sumOver windows follow the query's order
	c.orders = c.query.OrderExprs
	defer func() { c.orders = nil }()

	parts := make([]string, 0, len(exprs))
	for _, raw := range exprs {
		items, err := c.selectItems(raw)
		if err != nil {
			return "", err
		}
		for _, item := range items {
			if item.Star {
				cols, err := c.expandStar(item.Name)
				if err != nil {
					return "", err
				}
				for _, col := range cols {
					tv, err := c.compileExpr("$" + col.ref)
					if err != nil {
						return "", err
					}
					c.setOutput(col.name, tv.typ)
					parts = append(parts, tv.sql+" AS "+quoteAlias(col.name))
				}
				continue
			}

			tv, err := c.compileParsed(item.Expr)
			if err != nil {
				return "", err
			}
			out, err := c.val(tv, ir.TypeUnset)
			if err != nil {
				return "", err
			}
			c.setOutput(item.Name, tv.typ)
			parts = append(parts, out+" AS "+quoteAlias(item.Name))
		}
	}
	return strings.Join(parts, ", "), nil
}

// selectItems parses one select entry. An unnamed function is reported
// with the entry itself on the stack.
func (c *compileContext) selectItems(raw any) (items []queryir.SelectItem, err error) {
	if m, ok := raw.(map[string]any); ok {
		for k := range m {
			if strings.HasPrefix(k, "$") {
				defer c.enter(frameValue, raw)(&err)
				return nil, queryir.UnnamedFunctionError(k)
			}
		}
	}
	return queryir.ParseSelectItem(raw)
}

func (c *compileContext) compileGroupBy(exprs []any) (sql string, err error) {
	defer c.enter(frameGroupBy, exprs)(&err)

	parts := make([]string, 0, len(exprs))
	for _, raw := range exprs {
		e, err := queryir.ParseGroupItem(raw)
		if err != nil {
			return "", err
		}
		tv, err := c.compileParsed(e)
		if err != nil {
			return "", err
		}
		out, err := c.val(tv, ir.TypeUnset)
		if err != nil {
			return "", err
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, ", "), nil
}

func (c *compileContext) compileOrderBy(exprs []any) (sql string, err error) {
	defer c.enter(frameOrderBy, exprs)(&err)

	parts := make([]string, 0, len(exprs))
	for _, raw := range exprs {
		item, err := queryir.ParseOrderItem(raw)
		if err != nil {
			return "", err
		}
		tv, err := c.compileParsed(item.Expr)
		if err != nil {
			return "", err
		}
		out, err := c.val(tv, ir.TypeUnset)
		if err != nil {
			return "", err
		}
		if item.Dir != "" {
			out += " " + item.Dir
		}
		parts = append(parts, out)
	}
	return strings.Join(parts, ", "), nil
}

// compileWhere compiles filter entries as one AND group.
func (c *compileContext) compileWhere(conds []any) (sql string, err error) {
	defer c.enter(frameFilter, conds)(&err)

	parsed, err := queryir.ParseConditions(conds)
	if err != nil {
		return "", err
	}
	return c.compileGroup(queryir.And, parsed)
}

// internalFilters returns the configured filters of table after checking
// their shape: plain objects keyed by fields of that table.
func (c *compileContext) internalFilters(table string) ([]any, error) {
	filters := c.config.FiltersFor(table)
	for _, f := range filters {
		m, ok := f.(map[string]any)
		if !ok {
			return nil, ir.NewSyntaxError("Invalid internal table filter: only object filters are supported")
		}
		for _, key := range schema.FilterFields(m) {
			if strings.Contains(key, ".") {
				return nil, ir.NewSyntaxError("Invalid internal table filter: field names cannot contain paths")
			}
		}
	}
	return filters, nil
}

// compileJoins emits one LEFT JOIN per planned path, in the order the
// paths were first seen. Each join carries the target table's implicit
// filters and, unless dead rows are requested, its tombstone check.
func (c *compileContext) compileJoins() (sql string, err error) {
	var joins []string

	// join filters may plan further paths, so the bound is re-read
	for i := 0; i < len(c.pathOrder); i++ {
		desc := c.paths[c.pathOrder[i]]

		on := desc.tableID + ".id = " + desc.joinTable + "." + quoteAlias(desc.joinField)

		filters, err := c.internalFilters(desc.tableName)
		if err != nil {
			return "", err
		}
		if len(filters) > 0 {
			cond, err := c.compileJoinFilters(desc, filters)
			if err != nil {
				return "", err
			}
			on += " AND " + cond
		}

		if !c.withDead {
			if tomb, ok := c.tombstone(desc.tableName); ok {
				on += " AND " + desc.tableID + "." + tomb + " = 0"
			}
		}

		joins = append(joins, "LEFT JOIN "+desc.relation+" "+desc.tableID+" ON "+on)
		c.addDependency(desc.tableName)
	}
	return strings.Join(joins, "\n"), nil
}

// compileJoinFilters compiles a joined table's filters with that table as
// the implicit one. References are not re-validated inside a join.
func (c *compileContext) compileJoinFilters(desc *pathDesc, filters []any) (sql string, err error) {
	defer c.enter(frameJoins, desc.tableName)(&err)

	table, id, relation, validate := c.implicitTable, c.implicitID, c.implicitRelation, c.validateRefs
	c.implicitTable, c.implicitID, c.implicitRelation, c.validateRefs = desc.tableName, desc.tableID, desc.relation, false
	defer func() {
		c.implicitTable, c.implicitID, c.implicitRelation, c.validateRefs = table, id, relation, validate
	}()

	parsed, err := queryir.ParseConditions(filters)
	if err != nil {
		return "", err
	}
	return c.compileGroup(queryir.And, parsed)
}

func (c *compileContext) tombstone(table string) (string, bool) {
	t, ok := c.schema.Table(table)
	if !ok {
		return "", false
	}
	return t.Tombstone()
}

func containsString(list []any, s string) bool {
	for _, v := range list {
		if str, ok := v.(string); ok && str == s {
			return true
		}
	}
	return false
}
