// Package mixin provides reusable schema components.
//
// Mixins share fields, edges and indexes across schemas.
//
// # Built-in Mixins
//
//	mixin.ID{}             // serial id key
//	mixin.UUID{}           // uuid id key
//	mixin.Time{}           // created_at and updated_at
//	mixin.CreateTime{}     // created_at
//	mixin.UpdateTime{}     // updated_at
//	mixin.SoftDelete{}     // deleted_at
//	mixin.TimeSoftDelete{} // Time and SoftDelete
//
// # Using Mixins
//
// Mixin fields come before the fields declared on the schema:
//
//	sqlorm.NewSchema("image",
//	    sqlorm.Mixins(mixin.ID{}, mixin.Time{}),
//	    sqlorm.Fields(field.String("name")),
//	)
//
// # Custom Mixins
//
// Embed Schema and override the methods you need:
//
//	type Owned struct {
//	    mixin.Schema
//	}
//
//	func (Owned) Fields() []schema.Field {
//	    return []schema.Field{field.Integer("owner_id")}
//	}
//
//	func (Owned) Edges() []schema.Edge {
//	    return []schema.Edge{edge.BelongsTo("owner", "user")}
//	}
//
//	func (Owned) Indexes() []schema.Index {
//	    return []schema.Index{index.Fields("owner_id")}
//	}
package mixin
