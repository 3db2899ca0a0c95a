package schema

import (
	"github.com/syssam/sqlorm/schema/edge"
	"github.com/syssam/sqlorm/schema/field"
	"github.com/syssam/sqlorm/schema/index"
)

// Field is implemented by the builders of the field package.
type Field interface {
	Descriptor() *field.Descriptor
}

// Edge is implemented by the builders of the edge package.
type Edge interface {
	Descriptor() *edge.Descriptor
}

// Index is implemented by the builders of the index package.
type Index interface {
	Descriptor() *index.Descriptor
}

// Mixin is a reusable set of fields, edges and indexes.
type Mixin interface {
	Fields() []Field
	Edges() []Edge
	Indexes() []Index
}
