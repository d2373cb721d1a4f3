// Package schema describes the tables a query can read.
//
// A Schema is an ordered set of tables, each an ordered set of typed
// fields. Field order is declaration order; star selects expand in that
// order. A field with a Ref joins to another table by id. A table with a
// tombstone field is soft-deletable: the compiler filters out rows whose
// tombstone is set unless dead rows are requested.
//
// Schemas are validated once when built (New, LoadCUE, LoadYAML), so
// compilation can assume every ref target exists and every ref field is
// an id.
//
// Config carries per-deployment behaviour that is not part of the table
// shapes: which view a table is read from, implicit filters per table, a
// query rewrite hook, and view field remapping.
package schema
