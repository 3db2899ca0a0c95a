package sqlgraph

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsDeadlock(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"pq deadlock", &pq.Error{Code: "40P01"}, true},
		{"pq serialization", &pq.Error{Code: "40001"}, true},
		{"pq unique", &pq.Error{Code: "23505"}, false},
		{"pgx deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, true},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, true},
		{"wrapped", fmt.Errorf("dialect/sql: exec: %w", &mysql.MySQLError{Number: 1213}), true},
		{"sqlite locked", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"mixed case", errors.New("Deadlock found when trying to get lock; try restarting transaction"), true},
		{"mssql victim", errors.New("Transaction (Process ID 52) was deadlocked on lock resources with another process and has been chosen as the deadlock victim"), true},
		{"other", errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDeadlock(tt.err))
		})
	}
}

func TestIsLostConnection(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"conn done", fmt.Errorf("rollback: %w", sql.ErrConnDone), true},
		{"pq failure", &pq.Error{Code: "08006"}, true},
		{"pgx shutdown", &pgconn.PgError{Code: "57P01"}, true},
		{"mysql gone", &mysql.MySQLError{Number: 2006}, true},
		{"message", errors.New("SQLSTATE[HY000]: General error: 2006 MySQL server has gone away"), true},
		{"peer", errors.New("read tcp 127.0.0.1:5432: connection reset by peer"), true},
		{"deadlock", errors.New("deadlock detected"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLostConnection(tt.err))
		})
	}
}

func TestIsConstraintError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		unique bool
		fk     bool
		check  bool
	}{
		{"pq unique", &pq.Error{Code: "23505"}, true, false, false},
		{"pgx foreign key", &pgconn.PgError{Code: "23503"}, false, true, false},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, true, false, false},
		{"mysql child row", &mysql.MySQLError{Number: 1452}, false, true, false},
		{"mysql check", &mysql.MySQLError{Number: 3819}, false, false, true},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: tag.name (2067)"), true, false, false},
		{"sqlite foreign key", errors.New("FOREIGN KEY constraint failed"), false, true, false},
		{"sqlite check", errors.New("CHECK constraint failed: price"), false, false, true},
		{"other", errors.New("no such table: tag"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.fk, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.fk || tt.check, IsConstraintError(tt.err))
		})
	}
	assert.False(t, IsConstraintError(nil))
}
