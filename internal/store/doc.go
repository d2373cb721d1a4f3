// Package store executes compiled AQL queries against SQLite.
//
// The store owns one database/sql handle opened through a custom
// go-sqlite3 driver that registers the SQL functions compiled queries
// call:
//   - NORMALISE(text): diacritic-, width- and case-folded text
//   - UNICODE_LIKE(pattern, text): LIKE over all of Unicode
//   - UNICODE_LOWER(text): Unicode lower-casing
//   - REGEXP(pattern, text): Go regular expression match
//
// All four return NULL for a NULL argument.
//
// # Values
//
// Dates are stored as integers (YYYYMMDD, YYYYMM, YYYY) and booleans as
// 0/1. Parameters are converted to that encoding when bound, using the
// type the compiler inferred for them, and result columns are converted
// back using the compiled output types: dates become "2024-03-15",
// "2024-03" or "2024", booleans become bool.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
