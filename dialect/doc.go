// Package dialect defines the connection contract used by sqlorm and the
// names and feature flags of the supported SQL dialects.
//
// # Supported Dialects
//
//   - Postgres: PostgreSQL database
//   - MySQL: MySQL/MariaDB database
//   - SQLite: SQLite database
//
// # Driver Interface
//
// Statements are sent as fully rendered SQL text. A Driver returns buffered
// cursors of column to value rows:
//
//	type Driver interface {
//	    Query(ctx context.Context, query string) (Cursor, error)
//	    Exec(ctx context.Context, query string) (Result, error)
//	    LastInsertID(ctx context.Context, sequence string) (any, error)
//	    Dialect() string
//	    Close() error
//	}
//
// # Features
//
// Dialects advertise optional capabilities through Features. The transaction
// manager checks Savepoints before nesting, and the persistence layer checks
// Defaults before inserting a record without a key:
//
//	fs := dialect.DefaultFeatures(dialect.SQLite)
//	fs.Has(dialect.Savepoints) // true
//	fs.Has(dialect.Defaults)   // false
//
// # Sub-packages
//
//   - dialect/sql: database/sql driver, statement builders and query statistics
//   - dialect/sql/sqlgraph: driver error classification
package dialect
