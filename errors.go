package sqlorm

import (
	"errors"
	"fmt"

	"github.com/syssam/sqlorm/convert"
	"github.com/syssam/sqlorm/dialect/sql/sqlgraph"
)

// Standard sentinel errors for common operations.
var (
	// ErrNoTransaction is returned by Commit when no transaction is active.
	ErrNoTransaction = errors.New("sqlorm: no active transaction")

	// ErrMissingConnection is returned when a schema is used without a
	// database.
	ErrMissingConnection = errors.New("sqlorm: missing connection")
)

// MissingSchemaError is returned when a query is built without a schema,
// or when a schema name is not registered.
type MissingSchemaError struct {
	Name string // Optional: the schema that was looked up
}

// Error returns the error string.
func (e *MissingSchemaError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("sqlorm: schema %q is not registered", e.Name)
	}
	return "sqlorm: missing schema for this query"
}

// MissingModelError is returned when entities are requested from a query
// without a record model.
type MissingModelError struct {
	Source string
}

// Error returns the error string.
func (e *MissingModelError) Error() string {
	return fmt.Sprintf("sqlorm: missing model for %q, use ReturnArray or bind a model", e.Source)
}

// MissingTableNameError is returned by DDL operations on a schema without
// a source table.
type MissingTableNameError struct{}

// Error returns the error string.
func (*MissingTableNameError) Error() string {
	return "sqlorm: missing table name for this schema"
}

// UnboundAliasError is returned when an alias is read for a relation path
// that was never bound.
type UnboundAliasError struct {
	Path string
}

// Error returns the error string.
func (e *UnboundAliasError) Error() string {
	return fmt.Sprintf("sqlorm: no alias has been defined for %q", e.Path)
}

// InvalidReturnModeError is returned for an unknown fetch return mode.
type InvalidReturnModeError struct {
	Mode ReturnMode
}

// Error returns the error string.
func (e *InvalidReturnModeError) Error() string {
	return fmt.Sprintf("sqlorm: invalid return mode %q", e.Mode)
}

// InvalidOptionError is returned for an out of range query option.
type InvalidOptionError struct {
	Option string
	Value  any
}

// Error returns the error string.
func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("sqlorm: invalid value %v for option %q", e.Value, e.Option)
}

// UndefinedRelationError is returned when a relation name is not declared
// on a schema.
type UndefinedRelationError struct {
	Source string
	Name   string
}

// Error returns the error string.
func (e *UndefinedRelationError) Error() string {
	return fmt.Sprintf("sqlorm: relation %q is not defined on %q", e.Name, e.Source)
}

// MissingIdentifierError is returned when an existing record is updated or
// deleted without a key value.
type MissingIdentifierError struct {
	Source string
}

// Error returns the error string.
func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("sqlorm: existing entity of %q has no identifier", e.Source)
}

// InvalidDateError is returned when a value cannot be formatted as a date.
type InvalidDateError = convert.InvalidDateError

// ConstraintError represents a database constraint violation error.
type ConstraintError struct {
	msg  string
	wrap error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return fmt.Sprintf("sqlorm: constraint failed: %s", e.msg)
}

// Unwrap returns the underlying error.
func (e *ConstraintError) Unwrap() error {
	return e.wrap
}

// NewConstraintError returns a new ConstraintError with the given message.
func NewConstraintError(msg string, wrap error) *ConstraintError {
	return &ConstraintError{msg: msg, wrap: wrap}
}

// IsConstraintError returns true if the error is a ConstraintError.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConstraintError
	return errors.As(err, &e)
}

// ValidationError is returned by a schema validator to reject a record.
// Save reports a rejected record as not saved rather than as an error.
type ValidationError struct {
	Name string // Field or entity name
	Err  error  // Underlying validation error
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("sqlorm: validator failed for %q: %s", e.Name, e.Err)
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError returns a new ValidationError for the given field.
func NewValidationError(name string, err error) *ValidationError {
	return &ValidationError{Name: name, Err: err}
}

// IsValidationError returns true if the error is a ValidationError.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error joined with the rollback failure
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("sqlorm: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Source being queried
	Op     string // Operation (e.g., "select", "count")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("sqlorm: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("sqlorm: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Source being mutated
	Op     string // Operation (e.g., "insert", "update", "delete")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("sqlorm: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

// IsDeadlock reports whether err was caused by a deadlock or a
// serialization failure.
func IsDeadlock(err error) bool { return sqlgraph.IsDeadlock(err) }

// IsLostConnection reports whether err was caused by a lost connection.
func IsLostConnection(err error) bool { return sqlgraph.IsLostConnection(err) }

// mutationError classifies a failed write.
func mutationError(source, op string, err error) error {
	if sqlgraph.IsConstraintError(err) {
		return NewConstraintError(err.Error(), err)
	}
	return NewMutationError(source, op, err)
}
