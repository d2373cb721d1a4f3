// Package querysql compiles AQL queries into SQLite SQL.
//
// A Compiler is bound to one schema and config and is safe for concurrent
// use: every Compile call owns a fresh compile context (join paths, alias
// counter, parameter list, expression stack) that is discarded when the
// call returns.
//
// # Output
//
// Compile returns the SQL pieces (select list, from, joins, where,
// group by, order by, limit, offset), the assembled statement, the output
// type of every selected column, the tables the query depends on (root
// first, then joined tables), and the named parameters in binding order.
//
// Parameters are rendered as positional "?" placeholders. Result.Params
// lists one entry per placeholder, so a parameter compared with $eq or $ne
// appears twice: the comparison expands to a CASE over NULL and needs the
// value on both branches.
//
// # Joins
//
// A dotted field path ("category.group.name") is resolved hop by hop
// against the schema's refs. Each distinct path gets one LEFT JOIN with a
// fresh alias (table name plus a per-compile counter), in first-use
// order, so compiling the same query twice yields identical SQL.
//
// When reference validation is on, selecting an id field that refs
// another table reads the id back through a join on the raw table. A
// soft-deleted target then yields NULL instead of a dangling id.
//
// # Errors
//
// Compile failures are *ir.CompileError values annotated with the
// expression stack active at the failure:
//
//	Can’t cast boolean to date
//
//	Expression stack:
//	  {"date":{"$eq":"$cleared"}}
//	  filter({"date":{"$eq":"$cleared"}})
//
// In production mode the Go call stack captured with the error is
// dropped. Errors of any other type are returned unannotated.
package querysql
