// Package schema provides the building blocks of sqlorm schemas.
//
// It defines the interfaces implemented by the builders of its
// subpackages:
//
//   - [field]: column builders
//   - [edge]: relation builders
//   - [index]: index builders
//   - [mixin]: reusable schema components
//
// # Quick Start
//
//	gallery := sqlorm.NewSchema("gallery",
//	    sqlorm.Mixins(mixin.ID{}),
//	    sqlorm.Fields(
//	        field.String("name").Required(),
//	    ),
//	    sqlorm.Edges(
//	        edge.HasMany("images", "image"),
//	        edge.HasOne("detail", "gallery_detail"),
//	    ),
//	)
//
//	image := sqlorm.NewSchema("image",
//	    sqlorm.Mixins(mixin.ID{}, mixin.Time{}),
//	    sqlorm.Fields(
//	        field.Integer("gallery_id"),
//	        field.String("name"),
//	        field.String("title"),
//	    ),
//	    sqlorm.Edges(
//	        edge.BelongsTo("gallery", "gallery"),
//	        edge.HasMany("images_tags", "image_tag"),
//	        edge.HasManyThrough("tags", "images_tags", "tag"),
//	    ),
//	    sqlorm.Indexes(index.Fields("gallery_id")),
//	)
//
//	db.Register(gallery, image)
package schema
