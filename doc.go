// Package sqlorm binds relational tables to schemas, builds queries across
// their relations and persists graphs of records.
//
// # Database
//
// A Database pins one session of a SQL database and holds the registered
// schemas:
//
//	db, err := sqlorm.Open(ctx, "sqlite", "file::memory:")
//	if err != nil {
//	    return err
//	}
//	db.Register(gallery, image, imageTag, tag)
//
// # Queries
//
// Queries select the rows of a schema. Has constrains the rows through a
// relation path, joining the related tables under aliases minted per path;
// Embed eager loads relations with one query per relation:
//
//	q, _ := image.Query()
//	coll, err := q.Has("tags", sql.EQ("name", "Landscape")).
//	    Embed("gallery", "tags").
//	    Order("title").
//	    Limit(10).
//	    All(ctx)
//
// # Persistence
//
// Save writes a record with its relations. Records owned through BelongsTo
// are written first so that their key can be copied into the foreign key,
// then the record, then the records it owns. Many-to-many relations
// rebuild their join records.
//
//	img := image.Create(map[string]any{
//	    "name": "amiga_1200.jpg",
//	    "gallery": map[string]any{"name": "Gallery 1"},
//	    "tags": []map[string]any{{"name": "tag1"}},
//	})
//	ok, err := image.Save(ctx, img)
//
// Save does not run in a transaction. Use Database.Transaction to make a
// cascade atomic; nested calls run in savepoints.
//
// # Validation
//
// A schema validator runs before each record is written when Save is given
// WithValidation. The privacy package builds validators from write
// policies.
package sqlorm
