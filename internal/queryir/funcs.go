package queryir

import (
	"slices"
	"strings"

	"github.com/agext/levenshtein"
)

// Func identifies a function in the AQL catalog.
type Func int

const (
	FuncSum Func = iota + 1
	FuncSumOver
	FuncCount
	FuncSubstr
	FuncLower
	FuncNeg
	FuncAbs
	FuncIdiv
	FuncID
	FuncDay
	FuncMonth
	FuncYear
	FuncCondition
	FuncNocase
	FuncLiteral
)

var funcNames = map[string]Func{
	"$sum":       FuncSum,
	"$sumOver":   FuncSumOver,
	"$count":     FuncCount,
	"$substr":    FuncSubstr,
	"$lower":     FuncLower,
	"$neg":       FuncNeg,
	"$abs":       FuncAbs,
	"$idiv":      FuncIdiv,
	"$id":        FuncID,
	"$day":       FuncDay,
	"$month":     FuncMonth,
	"$year":      FuncYear,
	"$condition": FuncCondition,
	"$nocase":    FuncNocase,
	"$literal":   FuncLiteral,
}

// LookupFunc resolves a "$name" to its Func.
func LookupFunc(name string) (Func, bool) {
	f, ok := funcNames[name]
	return f, ok
}

// String returns the function's "$name" form.
func (f Func) String() string {
	switch f {
	case FuncSum:
		return "$sum"
	case FuncSumOver:
		return "$sumOver"
	case FuncCount:
		return "$count"
	case FuncSubstr:
		return "$substr"
	case FuncLower:
		return "$lower"
	case FuncNeg:
		return "$neg"
	case FuncAbs:
		return "$abs"
	case FuncIdiv:
		return "$idiv"
	case FuncID:
		return "$id"
	case FuncDay:
		return "$day"
	case FuncMonth:
		return "$month"
	case FuncYear:
		return "$year"
	case FuncCondition:
		return "$condition"
	case FuncNocase:
		return "$nocase"
	case FuncLiteral:
		return "$literal"
	}
	return "$unknown"
}

// Arity returns the inclusive argument count range.
func (f Func) Arity() (minArgs, maxArgs int) {
	switch f {
	case FuncSubstr:
		return 2, 3
	case FuncIdiv:
		return 2, 2
	case FuncSum, FuncSumOver, FuncCount, FuncLower, FuncNeg, FuncAbs,
		FuncID, FuncDay, FuncMonth, FuncYear, FuncCondition, FuncNocase, FuncLiteral:
		return 1, 1
	}
	return 0, 0
}

// IsAggregate reports whether calling f makes a query an aggregate query.
// $sumOver is a window function and does not.
func (f Func) IsAggregate() bool {
	return f == FuncSum || f == FuncCount
}

// Operator identifies a comparison operator in a field condition.
type Operator int

const (
	OpGte Operator = iota + 1
	OpLte
	OpGt
	OpLt
	OpEq
	OpNe
	OpOneof
	OpLike
	OpNotlike
	OpRegexp
)

var operatorNames = map[string]Operator{
	"$gte":     OpGte,
	"$lte":     OpLte,
	"$gt":      OpGt,
	"$lt":      OpLt,
	"$eq":      OpEq,
	"$ne":      OpNe,
	"$oneof":   OpOneof,
	"$like":    OpLike,
	"$notlike": OpNotlike,
	"$regexp":  OpRegexp,
}

// LookupOperator resolves a "$name" to its Operator.
func LookupOperator(name string) (Operator, bool) {
	op, ok := operatorNames[name]
	return op, ok
}

// String returns the operator's "$name" form.
func (op Operator) String() string {
	switch op {
	case OpGte:
		return "$gte"
	case OpLte:
		return "$lte"
	case OpGt:
		return "$gt"
	case OpLt:
		return "$lt"
	case OpEq:
		return "$eq"
	case OpNe:
		return "$ne"
	case OpOneof:
		return "$oneof"
	case OpLike:
		return "$like"
	case OpNotlike:
		return "$notlike"
	case OpRegexp:
		return "$regexp"
	}
	return "$unknown"
}

// suggest returns the closest known name within a small edit distance,
// or "" when nothing is close enough.
func suggest[T any](input string, known map[string]T) string {
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	slices.Sort(names)

	maxDist := max(2, len(input)/3)
	best, bestDist := "", maxDist+1
	for _, name := range names {
		d := levenshtein.Distance(strings.ToLower(input), strings.ToLower(name), nil)
		if d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
