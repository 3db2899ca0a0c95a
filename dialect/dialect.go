package dialect

import (
	"context"
	"database/sql"
	"strings"
)

// Dialect names.
const (
	MySQL    = "mysql"
	SQLite   = "sqlite"
	Postgres = "postgres"
)

// Name normalizes a database/sql driver name into a dialect name.
func Name(driverName string) string {
	switch n := strings.ToLower(driverName); {
	case strings.HasPrefix(n, "sqlite"):
		return SQLite
	case strings.HasPrefix(n, "postgres"), n == "pgx", n == "pq":
		return Postgres
	case strings.HasPrefix(n, "mysql"):
		return MySQL
	default:
		return n
	}
}

// Cursor iterates over the rows returned by a query. Rows are plain
// column to value mappings.
type Cursor interface {
	// Next advances to the next row.
	Next() bool
	// Row returns the current row.
	Row() map[string]any
	// Columns returns the result column names.
	Columns() []string
	// Len returns the number of rows held by the cursor.
	Len() int
	// Err returns the error, if any, that was encountered during iteration.
	Err() error
	// Close releases the cursor.
	Close() error
}

// Result is the summary of an executed statement.
type Result = sql.Result

// ExecQuerier wraps the two statement entry points of a connection.
type ExecQuerier interface {
	// Query runs a statement returning rows.
	Query(ctx context.Context, query string) (Cursor, error)
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, query string) (Result, error)
}

// Driver is the connection consumed by the ORM.
type Driver interface {
	ExecQuerier
	// LastInsertID returns the key generated by the last INSERT. The
	// sequence name is used by dialects without a generic last-id call.
	LastInsertID(ctx context.Context, sequence string) (any, error)
	// Dialect returns the dialect name of the driver.
	Dialect() string
	// Close closes the underlying connection.
	Close() error
}

// Feature is an optional capability of a dialect.
type Feature string

// Known features.
const (
	Transactions Feature = "transactions"
	Savepoints   Feature = "savepoints"
	// Defaults reports whether the DEFAULT keyword may be used for
	// omitted keys in an INSERT.
	Defaults Feature = "default"
	Booleans Feature = "booleans"
	Arrays   Feature = "arrays"
)

// Features is a set of enabled features.
type Features map[Feature]bool

// Has reports whether f is enabled.
func (fs Features) Has(f Feature) bool { return fs[f] }

// Merge returns a copy of fs with the given overrides applied.
func (fs Features) Merge(o map[Feature]bool) Features {
	m := make(Features, len(fs)+len(o))
	for k, v := range fs {
		m[k] = v
	}
	for k, v := range o {
		m[k] = v
	}
	return m
}

// DefaultFeatures returns the features supported by the named dialect.
func DefaultFeatures(name string) Features {
	switch name {
	case Postgres:
		return Features{Transactions: true, Savepoints: true, Defaults: true, Booleans: true, Arrays: true}
	case MySQL:
		return Features{Transactions: true, Savepoints: true, Defaults: true, Booleans: true}
	case SQLite:
		return Features{Transactions: true, Savepoints: true, Booleans: true}
	default:
		return Features{Transactions: true}
	}
}
