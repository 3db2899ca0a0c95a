package sql

import (
	"errors"

	"github.com/syssam/sqlorm/dialect"
)

// Cursor is a buffered dialect.Cursor.
type Cursor struct {
	columns []string
	rows    []map[string]any
	pos     int
}

// NewCursor returns a cursor over the given rows.
func NewCursor(columns []string, rows []map[string]any) *Cursor {
	return &Cursor{columns: columns, rows: rows}
}

// ScanCursor reads every row of rs into a Cursor and closes rs. Byte slices
// returned by the driver are copied into strings.
func ScanCursor(rs ColumnScanner) (_ *Cursor, rerr error) {
	defer func() { rerr = errors.Join(rerr, rs.Close()) }()
	columns, err := rs.Columns()
	if err != nil {
		return nil, err
	}
	var rows []map[string]any
	for rs.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rs.Scan(dest...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		rows = append(rows, row)
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return NewCursor(columns, rows), nil
}

// Next implements dialect.Cursor.
func (c *Cursor) Next() bool {
	if c.pos >= len(c.rows) {
		return false
	}
	c.pos++
	return true
}

// Row implements dialect.Cursor.
func (c *Cursor) Row() map[string]any {
	if c.pos == 0 || c.pos > len(c.rows) {
		return nil
	}
	return c.rows[c.pos-1]
}

// Columns implements dialect.Cursor.
func (c *Cursor) Columns() []string { return c.columns }

// Len implements dialect.Cursor.
func (c *Cursor) Len() int { return len(c.rows) }

// Err implements dialect.Cursor.
func (*Cursor) Err() error { return nil }

// Close implements dialect.Cursor.
func (c *Cursor) Close() error {
	c.pos = len(c.rows)
	return nil
}

// All returns every row of the cursor.
func (c *Cursor) All() []map[string]any { return c.rows }

// Rows drains a cursor into a slice.
func Rows(cur dialect.Cursor) ([]map[string]any, error) {
	if c, ok := cur.(*Cursor); ok && c.pos == 0 {
		return c.All(), c.Close()
	}
	var rows []map[string]any
	for cur.Next() {
		rows = append(rows, cur.Row())
	}
	return rows, errors.Join(cur.Err(), cur.Close())
}

var _ dialect.Cursor = (*Cursor)(nil)
