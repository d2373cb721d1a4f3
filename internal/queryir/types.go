package queryir

import "github.com/roach88/aql/internal/ir"

// Expr is a parsed AQL expression.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the compiler.
//
// Expression types:
//   - Literal: native constant, inlined into SQL
//   - FieldRef: column reference, resolved through the join planner
//   - Param: named placeholder bound at execution time
//   - Call: function application
//
// Raw returns the JSON-shaped form the node was parsed from. The compiler
// renders it in expression traces.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
	Raw() any
}

// Condition is a parsed node of the filter DSL.
//
// This is a sealed interface - only Logical and FieldCond implement it.
type Condition interface {
	conditionNode() // Marker method - seals interface to this package
	Raw() any
}

// Literal is a native constant.
//
// Type is the tag implied by the Go value: null, string, integer (no
// fractional part), float, boolean, date (time.Time input) or array.
// Booleans are carried as ir.Bool and lowered to 1/0 when rendered.
type Literal struct {
	Value  ir.Value
	Type   ir.Type
	Source any
}

func (Literal) exprNode()  {}
func (l Literal) Raw() any { return l.Source }

// FieldRef references a column, possibly through a dotted join path.
//
// Path is the reference without its "$" prefix. An empty Path is the
// implicit field ("$"), which only has a meaning inside a $transform.
type FieldRef struct {
	Path   string
	Source any
}

func (FieldRef) exprNode()  {}
func (f FieldRef) Raw() any { return f.Source }

// Implicit reports whether the reference is the bare "$".
func (f FieldRef) Implicit() bool { return f.Path == "" }

// Param is a named parameter (":name").
type Param struct {
	Name   string
	Source any
}

func (Param) exprNode()  {}
func (p Param) Raw() any { return p.Source }

// Call applies a catalog function.
//
// Args holds the parsed arguments for every function except $condition,
// whose single argument is a condition tree carried in Conds instead.
// NArgs is the argument count as written. Counts are not checked here; the
// compiler enforces Func.Arity so arity errors carry an expression trace.
type Call struct {
	Func   Func
	Args   []Expr
	Conds  []Condition
	NArgs  int
	Source any
}

func (Call) exprNode()  {}
func (c Call) Raw() any { return c.Source }

// LogicalKind distinguishes $and from $or groups.
type LogicalKind int

const (
	And LogicalKind = iota + 1
	Or
)

// String returns the group's key form.
func (k LogicalKind) String() string {
	switch k {
	case And:
		return "$and"
	case Or:
		return "$or"
	}
	return "$unknown"
}

// Logical is a $and or $or group.
//
// Omitted is set when the group's value was falsy (null, false, 0, "").
// An omitted group contributes nothing to its parent, which allows
// conditionally built filters such as {"$or": includeHidden && [...]}.
// An empty but present group compiles to its identity: 1 for $and, 0
// for $or.
type Logical struct {
	Kind    LogicalKind
	Conds   []Condition
	Omitted bool
	Source  any
}

func (Logical) conditionNode() {}
func (l Logical) Raw() any     { return l.Source }

// FieldCond constrains one field with one or more operators. Multiple
// operators are combined with AND.
type FieldCond struct {
	Field  string
	Ops    []OpCond
	Source any
}

func (FieldCond) conditionNode() {}
func (f FieldCond) Raw() any     { return f.Source }

// OpCond is one operator application inside a FieldCond.
//
// Transform, when set, is applied to the field before comparison. Its
// implicit field reference ("$") resolves to FieldCond.Field.
//
// Source is the operator object ({"$gt": 0} or with its $transform) used
// in expression traces.
type OpCond struct {
	Op        Operator
	Operand   Expr
	Transform *Call
	Source    map[string]any
}
