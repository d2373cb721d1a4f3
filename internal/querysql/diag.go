package querysql

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/aql/internal/ir"
)

// Frame kinds. The first frame pushed in a compilation is the root and is
// rendered as kind(args).
const (
	frameExpr     = "expr"
	frameFunction = "function"
	frameOp       = "op"
	frameValue    = "value"
	frameSelect   = "select"
	frameFilter   = "filter"
	frameGroupBy  = "groupBy"
	frameOrderBy  = "orderBy"
	frameJoins    = "joins"
)

// prettyLimit is the JSON length above which trace entries are indented.
const prettyLimit = 70

type frame struct {
	kind string
	args []any
}

// enter pushes a frame and returns its exit guard:
//
//	defer c.enter(frameExpr, raw)(&err)
//
// On exit a CompileError that has not been annotated yet receives the
// trace of the stack as it stood at the failure, then the frame is popped.
// The pop happens on every return path.
func (c *compileContext) enter(kind string, args ...any) func(*error) {
	c.stack = append(c.stack, frame{kind: kind, args: args})
	return func(errp *error) {
		if errp != nil && *errp != nil {
			var ce *ir.CompileError
			if errors.As(*errp, &ce) && !ce.Annotated() {
				ce.Annotate(c.trace(ce.Enclosing()...), !c.production)
			}
		}
		c.stack = c.stack[:len(c.stack)-1]
	}
}

// trace renders the stack innermost first, the root frame last. Nodes
// recorded while parsing sit inside the top frame and come first.
func (c *compileContext) trace(enclosing ...any) string {
	if len(c.stack) == 0 {
		return ""
	}

	var b strings.Builder
	for _, node := range enclosing {
		b.WriteString("\n  ")
		b.WriteString(prettyValue(node))
	}
	for i := len(c.stack) - 1; i >= 1; i-- {
		b.WriteString("\n  ")
		b.WriteString(c.stack[i].render())
	}

	root := c.stack[0]
	var arg any
	if len(root.args) > 0 {
		arg = root.args[0]
	}
	if list, ok := arg.([]any); ok && len(list) == 1 {
		arg = list[0]
	}
	fmt.Fprintf(&b, "\n  %s(%s)", root.kind, prettyValue(arg))
	return b.String()
}

func (f frame) render() string {
	switch f.kind {
	case frameExpr, frameFunction, frameValue:
		if len(f.args) > 0 {
			return prettyValue(f.args[0])
		}
	case frameOp:
		if len(f.args) == 2 {
			field, _ := f.args[0].(string)
			return prettyValue(map[string]any{field: f.args[1]})
		}
	}
	return ""
}

// prettyValue prints strings bare and everything else as JSON, indented
// when long.
func prettyValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	if len(data) <= prettyLimit {
		return string(data)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return strings.ReplaceAll(buf.String(), "\n", "\n  ")
}
