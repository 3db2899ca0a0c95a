package mixin

import (
	"time"

	"github.com/syssam/sqlorm/schema"
	"github.com/syssam/sqlorm/schema/field"
)

// Schema is the default implementation for the schema.Mixin interface.
// It should be embedded in all custom mixin definitions.
//
// Example:
//
//	type Audit struct {
//	    mixin.Schema
//	}
//
//	func (Audit) Fields() []schema.Field {
//	    return []schema.Field{
//	        field.String("created_by"),
//	    }
//	}
type Schema struct{}

// Fields returns the fields of the mixin.
func (Schema) Fields() []schema.Field { return nil }

// Edges returns the edges of the mixin.
func (Schema) Edges() []schema.Edge { return nil }

// Indexes returns the indexes of the mixin.
func (Schema) Indexes() []schema.Index { return nil }

var _ schema.Mixin = (*Schema)(nil)

// now returns the current time in UTC.
func now() any { return time.Now().UTC() }

// ID adds a serial "id" key.
type ID struct {
	Schema
}

// Fields returns the key field.
func (ID) Fields() []schema.Field {
	return []schema.Field{
		field.Serial("id"),
	}
}

// UUID adds a uuid "id" key generated on insert.
type UUID struct {
	Schema
}

// Fields returns the key field.
func (UUID) Fields() []schema.Field {
	return []schema.Field{
		field.UUID("id").Required(),
	}
}

// Time adds created_at and updated_at timestamp fields to a schema.
// created_at is set on insert, updated_at on insert and on each update.
//
// Example:
//
//	sqlorm.NewSchema("image", sqlorm.Mixins(mixin.ID{}, mixin.Time{}))
type Time struct {
	Schema
}

// Fields returns the time tracking fields.
func (Time) Fields() []schema.Field {
	return append(CreateTime{}.Fields(), UpdateTime{}.Fields()...)
}

// CreateTime adds only the created_at timestamp field to a schema.
type CreateTime struct {
	Schema
}

// Fields returns the created_at field.
func (CreateTime) Fields() []schema.Field {
	return []schema.Field{
		field.Datetime("created_at").
			DefaultFunc(now).
			Comment("Timestamp when the record was created"),
	}
}

// UpdateTime adds only the updated_at timestamp field to a schema.
type UpdateTime struct {
	Schema
}

// Fields returns the updated_at field.
func (UpdateTime) Fields() []schema.Field {
	return []schema.Field{
		field.Datetime("updated_at").
			DefaultFunc(now).
			UpdateDefault(now).
			Comment("Timestamp when the record was last updated"),
	}
}

// SoftDelete adds a nullable deleted_at field.
type SoftDelete struct {
	Schema
}

// Fields returns the soft delete field.
func (SoftDelete) Fields() []schema.Field {
	return []schema.Field{
		field.Datetime("deleted_at").
			Nullable().
			Comment("Timestamp when the record was soft deleted (NULL means not deleted)"),
	}
}

// TenantID adds a required tenant_id field. Combined with the tenant rules
// of the privacy package it isolates the rows of each tenant.
type TenantID struct {
	Schema
}

// Fields returns the tenant field.
func (TenantID) Fields() []schema.Field {
	return []schema.Field{
		field.String("tenant_id").
			Required().
			Length(64),
	}
}

// TimeSoftDelete combines Time and SoftDelete mixins.
type TimeSoftDelete struct {
	Schema
}

// Fields returns all timestamp and soft delete fields.
func (TimeSoftDelete) Fields() []schema.Field {
	return append(Time{}.Fields(), SoftDelete{}.Fields()...)
}
