// Package edge provides fluent builders for the relations of a schema.
//
// A relation is a closed variant over four kinds:
//
//   - BelongsTo: the foreign key lives on the declaring schema
//   - HasOne: one related record holds a foreign key to the declaring schema
//   - HasMany: many related records hold a foreign key to the declaring schema
//   - HasManyThrough: a many-to-many relation over an intermediate schema
//
// # Keys
//
// Key columns default from the relation and table names:
//
//	// image schema
//	edge.BelongsTo("gallery", "gallery")   // image.gallery_id = gallery.id
//
//	// gallery schema
//	edge.HasMany("images", "image")        // gallery.id = image.gallery_id
//	edge.HasOne("detail", "gallery_detail") // gallery.id = gallery_detail.gallery_id
//
// Keys overrides them:
//
//	edge.BelongsTo("parent", "gallery").Keys("parent_id", "id")
//
// # Through Relations
//
// A HasManyThrough relation names an intermediate HasMany relation of the
// declaring schema and the relation of the intermediate schema leading to
// the target. It is joined in two hops and never directly:
//
//	// image schema
//	edge.HasMany("images_tags", "image_tag")
//	edge.HasManyThrough("tags", "images_tags", "tag")
//
//	// image_tag schema
//	edge.BelongsTo("image", "image")
//	edge.BelongsTo("tag", "tag")
package edge
