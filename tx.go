package sqlorm

import (
	"context"
	"errors"
	"strconv"

	"github.com/syssam/sqlorm/dialect"
)

// TxOption configures Transaction.
type TxOption func(*txOptions)

type txOptions struct {
	attempts int
}

// WithAttempts sets how many times Transaction runs its function when it
// fails on a deadlock. Defaults to 1.
func WithAttempts(n int) TxOption {
	return func(o *txOptions) { o.attempts = n }
}

func savepoint(level int) string {
	return "TRANS" + strconv.Itoa(level)
}

// TransactionLevel returns the current transaction nesting level. Zero
// means no transaction is active.
func (db *Database) TransactionLevel() int { return db.level }

// BeginTransaction starts a transaction, or a savepoint when a transaction
// is already active. Without savepoint support a nested begin only
// increments the level.
func (db *Database) BeginTransaction(ctx context.Context) error {
	if db.level == 0 {
		if _, err := db.drv.Exec(ctx, "BEGIN"); err != nil {
			return err
		}
		db.level++
		db.log.DebugContext(ctx, "sqlorm: transaction started", "level", db.level)
		return nil
	}
	if db.features.Has(dialect.Savepoints) {
		if _, err := db.drv.Exec(ctx, "SAVEPOINT "+savepoint(db.level+1)); err != nil {
			return err
		}
	} else {
		db.log.WarnContext(ctx, "sqlorm: savepoints are not supported, nested transaction ignored",
			"dialect", db.dialect.Name(), "level", db.level+1)
	}
	db.level++
	db.log.DebugContext(ctx, "sqlorm: savepoint created", "level", db.level)
	return nil
}

// Commit commits the transaction when leaving the outermost level. Nested
// levels are only released.
func (db *Database) Commit(ctx context.Context) error {
	if db.level == 0 {
		return ErrNoTransaction
	}
	if db.level == 1 {
		if _, err := db.drv.Exec(ctx, "COMMIT"); err != nil {
			return err
		}
		db.log.DebugContext(ctx, "sqlorm: transaction committed")
	}
	db.level--
	return nil
}

// Rollback rolls back to the given level, which defaults to the enclosing
// one. Rolling back to level 0 aborts the transaction. Levels outside of
// [0, TransactionLevel()) are ignored.
func (db *Database) Rollback(ctx context.Context, toLevel ...int) error {
	to := db.level - 1
	if len(toLevel) > 0 {
		to = toLevel[0]
	}
	if to < 0 || to >= db.level {
		db.log.WarnContext(ctx, "sqlorm: rollback ignored", "level", db.level, "to", to)
		return nil
	}
	var query string
	switch {
	case to == 0:
		query = "ROLLBACK"
	case db.features.Has(dialect.Savepoints):
		query = "ROLLBACK TO SAVEPOINT " + savepoint(to+1)
	}
	if query != "" {
		if _, err := db.drv.Exec(ctx, query); err != nil {
			if IsLostConnection(err) {
				db.level = 0
			}
			return err
		}
	}
	db.level = to
	db.log.DebugContext(ctx, "sqlorm: rolled back", "level", db.level)
	return nil
}

// Transaction runs fn in a transaction, or in a savepoint when called
// within one. A deadlock restarts an outermost transaction while attempts
// remain; a nested one is propagated so that the outermost transaction
// restarts. Other errors roll back and are returned.
func (db *Database) Transaction(ctx context.Context, fn func(ctx context.Context) error, opts ...TxOption) error {
	o := txOptions{attempts: 1}
	for _, opt := range opts {
		opt(&o)
	}
	for attempt := 1; ; attempt++ {
		if err := db.BeginTransaction(ctx); err != nil {
			return err
		}
		retry := attempt < o.attempts
		if err := fn(ctx); err != nil {
			if IsDeadlock(err) && db.level > 1 {
				db.level--
				return err
			}
			if rerr := db.Rollback(ctx); rerr != nil {
				return &RollbackError{Err: errors.Join(err, rerr)}
			}
			if IsDeadlock(err) && retry {
				db.log.WarnContext(ctx, "sqlorm: deadlock, retrying transaction", "attempt", attempt, "error", err)
				continue
			}
			return err
		}
		if err := db.Commit(ctx); err != nil {
			if IsDeadlock(err) {
				db.level--
				return err
			}
			if rerr := db.Rollback(ctx); rerr != nil {
				return &RollbackError{Err: errors.Join(err, rerr)}
			}
			if retry {
				db.log.WarnContext(ctx, "sqlorm: commit failed, retrying transaction", "attempt", attempt, "error", err)
				continue
			}
			return err
		}
		return nil
	}
}
