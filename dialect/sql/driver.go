package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/syssam/sqlorm/dialect"
)

// Driver is a dialect.Driver implementation for SQL based databases.
//
// Statements are sent as rendered text on a single session, so that
// transaction control statements (BEGIN, SAVEPOINT, ROLLBACK TO SAVEPOINT)
// and the statements they guard run on the same connection.
type Driver struct {
	Conn
	db *sql.DB
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(dialect string, c Conn) *Driver {
	c.dialect = dialect
	if c.lastID == nil {
		c.lastID = new(atomic.Int64)
	}
	return &Driver{Conn: c}
}

// Open wraps the database/sql.Open method and pins a single session of the
// opened pool.
func Open(ctx context.Context, driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	drv, err := OpenDB(ctx, driverName, db)
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}
	return drv, nil
}

// OpenDB wraps the given database/sql.DB with a Driver bound to one of its
// connections.
func OpenDB(ctx context.Context, driverName string, db *sql.DB) (*Driver, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: acquire connection: %w", err)
	}
	drv := NewDriver(dialect.Name(driverName), Conn{ExecQuerier: conn})
	drv.db = db
	return drv, nil
}

// DB returns the underlying *sql.DB instance, or nil if the driver was
// built from a bare connection.
func (d *Driver) DB() *sql.DB { return d.db }

// Dialect implements the dialect.Driver method.
func (d *Driver) Dialect() string { return d.dialect }

// LastInsertID implements the dialect.Driver method. Postgres reads the
// current value of the sequence, other dialects return the id reported by
// the last INSERT.
func (d *Driver) LastInsertID(ctx context.Context, sequence string) (any, error) {
	if d.dialect != dialect.Postgres {
		return d.lastID.Load(), nil
	}
	cur, err := d.Query(ctx, "SELECT currval('"+strings.ReplaceAll(sequence, "'", "''")+"')")
	if err != nil {
		return nil, err
	}
	defer cur.Close()
	if !cur.Next() {
		return nil, fmt.Errorf("dialect/sql: sequence %q returned no value", sequence)
	}
	for _, v := range cur.Row() {
		return v, nil
	}
	return nil, nil
}

// Close closes the underlying connection and pool.
func (d *Driver) Close() error {
	var err error
	if c, ok := d.ExecQuerier.(interface{ Close() error }); ok {
		err = c.Close()
	}
	if d.db != nil {
		err = errors.Join(err, d.db.Close())
	}
	return err
}

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn implements dialect.ExecQuerier given ExecQuerier.
type Conn struct {
	ExecQuerier
	dialect string
	lastID  *atomic.Int64
}

// Exec implements the dialect.Exec method.
func (c Conn) Exec(ctx context.Context, query string) (Result, error) {
	res, err := c.ExecContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: exec: %w", err)
	}
	if c.lastID != nil && c.dialect != dialect.Postgres && isInsert(query) {
		if id, err := res.LastInsertId(); err == nil {
			c.lastID.Store(id)
		}
	}
	return res, nil
}

// Query implements the dialect.Query method. The result set is read
// completely and the rows are closed before returning.
func (c Conn) Query(ctx context.Context, query string) (dialect.Cursor, error) {
	rows, err := c.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	cur, err := ScanCursor(rows)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: query: %w", err)
	}
	return cur, nil
}

func isInsert(query string) bool {
	q := strings.TrimSpace(query)
	return len(q) >= 6 && strings.EqualFold(q[:6], "insert")
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Result is an alias to sql.Result.
	Result = sql.Result
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)

// ColumnScanner is the interface that wraps the standard
// sql.Rows methods used for scanning database rows.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}
