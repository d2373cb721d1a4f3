package querysql

import (
	"strings"

	"github.com/roach88/aql/internal/ir"
)

// popPath splits "a.b.field" into ("a.b", "field").
func popPath(name string) (string, string) {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// resolvePath plans (or reuses) the joins needed to reach the table at
// the end of a dotted path relative to the implicit table. Every prefix
// of the path gets its own entry so sibling paths share joins.
func (c *compileContext) resolvePath(path string) (*pathDesc, error) {
	parts := strings.Split(path, ".")
	full := c.implicitTable

	var desc *pathDesc
	for _, part := range parts {
		full += "." + part
		if existing, ok := c.paths[full]; ok {
			desc = existing
			continue
		}
		d, err := c.makePath(full)
		if err != nil {
			return nil, err
		}
		c.paths[full] = d
		c.pathOrder = append(c.pathOrder, full)
		desc = d
	}
	return desc, nil
}

// makePath describes the join for the last segment of a full path
// ("transactions.category.group"). The parent must already be planned.
func (c *compileContext) makePath(full string) (*pathDesc, error) {
	parts := strings.Split(full, ".")
	if len(parts) < 2 {
		return nil, ir.NewSchemaError("Invalid path: %s", full)
	}

	parentPath := strings.Join(parts[:len(parts)-1], ".")
	joinField := parts[len(parts)-1]

	var (
		parentTable    string
		parentRelation string
		joinTable      string
	)
	if len(parts) == 2 {
		parentTable = parts[0]
		parentRelation = c.implicitRelation
		joinTable = c.implicitID
	} else {
		parent, ok := c.paths[parentPath]
		if !ok {
			return nil, ir.NewSchemaError("Path does not exist: %s", parentPath)
		}
		parentTable = parent.tableName
		parentRelation = parent.relation
		joinTable = parent.tableID
	}

	table, ok := c.schema.Table(parentTable)
	if !ok {
		return nil, ir.NewSchemaError("Path error: %s table does not exist", parentTable)
	}
	field, ok := table.Field(joinField)
	if !ok || field.Ref == "" {
		return nil, ir.NewSchemaError("Field not joinable on table %s: “%s”", parentTable, joinField)
	}

	return &pathDesc{
		tableName: field.Ref,
		tableID:   c.uid(field.Ref),
		joinField: c.column(parentTable, parentRelation, joinField),
		joinTable: joinTable,
		relation:  c.tableRef(field.Ref, true),
	}, nil
}

// transformField compiles a (possibly dotted) field name into a column
// reference on the right table alias.
//
// A foreign key read directly ("category") is routed through a join on
// the raw target table, so a key to a deleted row reads as NULL. The
// shadow join is skipped when reference validation is off.
func (c *compileContext) transformField(name string) (typedValue, error) {
	path, field := popPath(name)

	tableName := c.implicitTable
	tableID := c.implicitID
	relation := c.implicitRelation
	if path != "" {
		desc, err := c.resolvePath(path)
		if err != nil {
			return typedValue{}, err
		}
		tableName = desc.tableName
		tableID = desc.tableID
		relation = desc.relation
	}

	table, ok := c.schema.Table(tableName)
	if !ok {
		return typedValue{}, ir.NewSchemaError("Table “%s” does not exist in the schema", tableName)
	}
	desc, ok := table.Field(field)
	if !ok {
		return typedValue{}, ir.NewSchemaError("Field “%s” does not exist in table “%s”", field, tableName)
	}

	if c.validateRefs && desc.Ref != "" && desc.Type == ir.TypeID && field != "id" {
		refPath := c.implicitTable + "." + name
		ref, ok := c.paths[refPath]
		if !ok {
			var err error
			if ref, err = c.makePathFrom(path, field, refPath); err != nil {
				return typedValue{}, err
			}
			ref.noMapping = true
			ref.relation = ref.tableName
		}
		return fragment(ref.tableID+".id", desc.Type), nil
	}

	return fragment(tableID+"."+c.column(tableName, relation, field), desc.Type), nil
}

// makePathFrom plans the join for refPath, resolving the prefix first when
// the reference sits behind other joins.
func (c *compileContext) makePathFrom(prefix, field, refPath string) (*pathDesc, error) {
	if prefix != "" {
		if _, err := c.resolvePath(prefix); err != nil {
			return nil, err
		}
	}
	d, err := c.makePath(refPath)
	if err != nil {
		return nil, err
	}
	c.paths[refPath] = d
	c.pathOrder = append(c.pathOrder, refPath)
	return d, nil
}

// expandStar lists the output columns for "*" or "path.*" in schema
// declaration order.
func (c *compileContext) expandStar(name string) ([]starColumn, error) {
	var (
		prefix    string
		tableName = c.implicitTable
	)
	switch {
	case name == "*":
	case strings.HasSuffix(name, ".*"):
		prefix = strings.TrimSuffix(name, ".*")
		desc, err := c.resolvePath(prefix)
		if err != nil {
			return nil, err
		}
		tableName = desc.tableName
	default:
		return nil, ir.NewSyntaxError("Invalid field “%s”: only * or path.* can expand", name)
	}
	table, ok := c.schema.Table(tableName)
	if !ok {
		return nil, ir.NewSchemaError("Table “%s” does not exist in the schema", tableName)
	}

	cols := make([]starColumn, 0, len(table.Fields))
	for _, f := range table.Fields {
		ref := f.Name
		if prefix != "" {
			ref = prefix + "." + f.Name
		}
		cols = append(cols, starColumn{name: ref, ref: ref})
	}
	return cols, nil
}

type starColumn struct {
	name string
	ref  string
}

// quoteAlias quotes output and join field names that SQLite would
// otherwise misread.
func quoteAlias(name string) string {
	if strings.Contains(name, ".") || name == "group" {
		return `"` + name + `"`
	}
	return name
}
