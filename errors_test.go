package sqlorm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqlorm"
)

func TestMissingSchemaError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		assert.Equal(t, "sqlorm: missing schema for this query", (&sqlorm.MissingSchemaError{}).Error())
		assert.Equal(t, `sqlorm: schema "tag" is not registered`, (&sqlorm.MissingSchemaError{Name: "tag"}).Error())
	})

	t.Run("As", func(t *testing.T) {
		err := fmt.Errorf("wrapper: %w", &sqlorm.MissingSchemaError{Name: "tag"})
		var serr *sqlorm.MissingSchemaError
		assert.True(t, errors.As(err, &serr))
		assert.Equal(t, "tag", serr.Name)
	})
}

func TestQueryErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"MissingModel", &sqlorm.MissingModelError{Source: "gallery"}, `sqlorm: missing model for "gallery", use ReturnArray or bind a model`},
		{"MissingTableName", &sqlorm.MissingTableNameError{}, "sqlorm: missing table name for this schema"},
		{"UnboundAlias", &sqlorm.UnboundAliasError{Path: "images.tags"}, `sqlorm: no alias has been defined for "images.tags"`},
		{"InvalidReturnMode", &sqlorm.InvalidReturnModeError{Mode: "list"}, `sqlorm: invalid return mode "list"`},
		{"InvalidOption", &sqlorm.InvalidOptionError{Option: "limit", Value: -1}, `sqlorm: invalid value -1 for option "limit"`},
		{"UndefinedRelation", &sqlorm.UndefinedRelationError{Source: "gallery", Name: "owner"}, `sqlorm: relation "owner" is not defined on "gallery"`},
		{"MissingIdentifier", &sqlorm.MissingIdentifierError{Source: "image"}, `sqlorm: existing entity of "image" has no identifier`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConstraintError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sqlorm.NewConstraintError("UNIQUE constraint failed", nil)
		assert.Equal(t, "sqlorm: constraint failed: UNIQUE constraint failed", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("db error")
		err := sqlorm.NewConstraintError("constraint violated", underlying)
		assert.True(t, errors.Is(err, underlying))
	})

	t.Run("IsConstraintError", func(t *testing.T) {
		err := sqlorm.NewConstraintError("check failed", nil)
		assert.True(t, sqlorm.IsConstraintError(err))

		// Wrapped error
		wrapped := fmt.Errorf("wrapper: %w", err)
		assert.True(t, sqlorm.IsConstraintError(wrapped))

		assert.False(t, sqlorm.IsConstraintError(errors.New("other error")))
		assert.False(t, sqlorm.IsConstraintError(nil))
	})
}

func TestValidationError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := sqlorm.NewValidationError("name", errors.New("too long"))
		assert.Equal(t, `sqlorm: validator failed for "name": too long`, err.Error())
	})

	t.Run("IsValidationError", func(t *testing.T) {
		underlying := errors.New("too short")
		err := fmt.Errorf("wrapper: %w", sqlorm.NewValidationError("name", underlying))
		assert.True(t, sqlorm.IsValidationError(err))
		assert.True(t, errors.Is(err, underlying))
		assert.False(t, sqlorm.IsValidationError(errors.New("other error")))
		assert.False(t, sqlorm.IsValidationError(nil))
	})
}

func TestRollbackError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := &sqlorm.RollbackError{Err: errors.New("connection lost")}
		assert.Equal(t, "sqlorm: rollback failed: connection lost", err.Error())
	})

	t.Run("Unwrap", func(t *testing.T) {
		underlying := errors.New("timeout")
		err := &sqlorm.RollbackError{Err: errors.Join(underlying, errors.New("rollback"))}
		assert.True(t, errors.Is(err, underlying))
	})
}

func TestQueryError(t *testing.T) {
	underlying := errors.New("no such table: tag")
	err := sqlorm.NewQueryError("tag", "select", underlying)
	assert.Equal(t, "sqlorm: querying tag (select): no such table: tag", err.Error())
	assert.Equal(t, "sqlorm: querying tag: no such table: tag", sqlorm.NewQueryError("tag", "", underlying).Error())
	assert.True(t, errors.Is(err, underlying))
	assert.True(t, sqlorm.IsQueryError(fmt.Errorf("wrapper: %w", err)))
	assert.False(t, sqlorm.IsQueryError(underlying))
}

func TestMutationError(t *testing.T) {
	underlying := errors.New("no such column: unknown")
	err := sqlorm.NewMutationError("gallery", "insert", underlying)
	assert.Equal(t, "sqlorm: insert gallery: no such column: unknown", err.Error())
	assert.True(t, errors.Is(err, underlying))
	assert.True(t, sqlorm.IsMutationError(err))
	assert.False(t, sqlorm.IsMutationError(nil))
}

func TestDriverErrors(t *testing.T) {
	assert.True(t, sqlorm.IsDeadlock(errors.New("Error 1213: Deadlock found when trying to get lock")))
	assert.True(t, sqlorm.IsDeadlock(errors.New("database is locked")))
	assert.False(t, sqlorm.IsDeadlock(errors.New("syntax error")))
	assert.True(t, sqlorm.IsLostConnection(errors.New("write: broken pipe")))
	assert.False(t, sqlorm.IsLostConnection(nil))
}

func TestSentinelErrors(t *testing.T) {
	assert.Contains(t, sqlorm.ErrNoTransaction.Error(), "transaction")
	assert.Contains(t, sqlorm.ErrMissingConnection.Error(), "connection")
}

// BenchmarkErrors benchmarks error creation and checking.
func BenchmarkErrors(b *testing.B) {
	b.Run("NewConstraintError", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			_ = sqlorm.NewConstraintError("unique", nil)
		}
	})

	b.Run("IsConstraintError", func(b *testing.B) {
		err := sqlorm.NewConstraintError("unique", nil)
		for i := 0; i < b.N; i++ {
			_ = sqlorm.IsConstraintError(err)
		}
	})

	b.Run("IsDeadlock", func(b *testing.B) {
		err := errors.New("deadlock detected")
		for i := 0; i < b.N; i++ {
			_ = sqlorm.IsDeadlock(err)
		}
	})
}
