// Package queryir defines the AQL query description and its closed
// expression and condition AST.
//
// A query arrives as JSON-shaped data (decoded YAML/JSON, or built with Q).
// Clause entries stay in that raw form on Query so they can be echoed in
// diagnostics and hashed for cache keys. The compiler turns each entry into
// the AST with ParseExpr, ParseFunction and ParseConditions before any
// schema lookup happens.
//
// # Expressions
//
// An expression is one of:
//
//   - Literal: null, string, number, boolean, date (time.Time), or array
//   - FieldRef: "$field", "$path.to.field", or "$" for the implicit field
//   - Param: ":name", bound by name at execution time
//   - Call: an object with a single "$function" key whose value is one
//     argument or an array of arguments
//
// A literal string may start with an escaped dollar ("\$5") to avoid being
// read as a field reference.
//
// # Conditions
//
// Conditions use an object/array shorthand:
//
//	{"amount": {"$gt": 0}}                   // operator
//	{"category": "groceries"}                // scalar means $eq
//	{"amount": [{"$gt": 0}, {"$lt": 100}]}   // array is an implicit AND
//	{"$or": [{"a": 1}, {"b": 2}]}            // boolean groups
//	{"name": {"$like": "%foo%", "$transform": "$lower"}}
//
// Keys of an object-form condition are visited in sorted order; arrays keep
// caller order.
//
// # Functions and operators
//
// Function and operator names map onto the Func and Operator enums. Every
// switch over them in this module is exhaustive, so adding a function is a
// compiler-checked change. Unknown names fail with a "did you mean"
// suggestion.
package queryir
