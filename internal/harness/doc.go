// Package harness runs conformance scenarios against the query compiler
// and the SQLite store.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: join_scenario
//	description: "Category names come through a LEFT JOIN"
//	schema: ../schema/budget.yaml
//	rows:
//	  categories:
//	    - {id: c1, name: Rent}
//	  transactions:
//	    - {id: t1, amount: -500, category: c1}
//	query:
//	  table: transactions
//	  select: [amount, category.name]
//	params: {}
//	expect:
//	  sql: |
//	    SELECT ...
//	  columns: [amount, category.name, id]
//	  rows:
//	    - {amount: -500, category.name: Rent, id: t1}
//	assertions:
//	  - type: sql_contains
//	    text: LEFT JOIN categories categories1
//	  - type: row_count
//	    count: 1
//
// The schema path is resolved relative to the scenario file. A scenario
// that expects a compile failure sets expect.error (a substring of the
// message) and/or expect.code (an ir.ErrorCode) instead of rows.
//
// # Assertion Types
//
//   - sql_contains: the compiled SQL contains text
//   - sql_order: fragments appear in the SQL in the given order
//   - row_count: the query returned exactly count rows
//   - row: exactly one row matches where, and it has the expect values
//
// # Deterministic Testing
//
// Each scenario runs in a fresh in-memory database with sequential row
// ids, so compiled SQL and results are identical across runs and can be
// compared against golden files (see RunWithGolden).
package harness
