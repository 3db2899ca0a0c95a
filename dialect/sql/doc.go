// Package sql provides the database/sql backed driver, SQL statement
// builders and query statistics used by sqlorm.
//
// # Builder Types
//
// Statements are built from a Dialect, which knows how to quote identifiers
// and literals and how to map column types:
//
//   - Builder: Low-level SQL string builder with identifier quoting
//   - Selector: SELECT query builder with joins, predicates, and pagination
//   - InsertBuilder: INSERT statement builder
//   - UpdateBuilder: UPDATE statement builder with SET and WHERE clauses
//   - DeleteBuilder: DELETE statement builder with WHERE predicates
//   - TableBuilder and DropBuilder: CREATE TABLE and DROP TABLE
//
// Values are rendered inline as literals through the dialect's conversion
// handlers. A TypeResolver tells the builder the column type of a
// (qualified) column so the right handler is picked:
//
//	d := sql.NewDialect(dialect.Postgres)
//	q, err := d.Select("gallery.*").
//	    From("gallery", "gallery").
//	    Where(sql.EQ("gallery.name", "Foo Gallery")).
//	    SQL(nil)
//	// SELECT "gallery".* FROM "gallery" WHERE "gallery"."name" = 'Foo Gallery'
//
// # Predicates
//
//	sql.EQ("name", "john")           // "name" = 'john'
//	sql.NEQ("status", "deleted")     // "status" <> 'deleted'
//	sql.GT("age", 18)                // "age" > 18
//	sql.In("id", 1, 2)               // "id" IN (1, 2)
//	sql.IsNull("deleted_at")         // "deleted_at" IS NULL
//	sql.Conditions{"name": "john"}   // "name" = 'john'
//
// Prefix qualifies the unqualified columns of a predicate with a table alias.
//
// # Driver
//
// Driver pins one session of a database/sql pool. Query results are read
// into a buffered Cursor before returning, so the session is never busy
// with an open result set.
//
// # Statistics
//
// StatsDriver and DebugDriver decorate any dialect.Driver with statistics
// and debug logging. StatsCollector exports the statistics to prometheus.
package sql
