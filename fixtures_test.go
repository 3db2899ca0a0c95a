package sqlorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/syssam/sqlorm/schema/edge"
	"github.com/syssam/sqlorm/schema/field"
	"github.com/syssam/sqlorm/schema/index"
)

// fixture is an in-memory sqlite database holding the gallery schemas.
type fixture struct {
	db       *Database
	gallery  *Schema
	detail   *Schema
	image    *Schema
	imageTag *Schema
	tag      *Schema
}

func newSchemas() (gallery, detail, image, imageTag, tag *Schema) {
	gallery = NewSchema("gallery",
		Fields(
			field.Serial("id"),
			field.String("name"),
		),
		Edges(
			edge.HasOne("detail", "gallery_detail"),
			edge.HasMany("images", "image"),
		),
	)
	detail = NewSchema("gallery_detail",
		Fields(
			field.Serial("id"),
			field.String("description"),
			field.Integer("gallery_id"),
		),
		Edges(
			edge.BelongsTo("gallery", "gallery"),
		),
	)
	image = NewSchema("image",
		Fields(
			field.Serial("id"),
			field.Integer("gallery_id"),
			field.String("name"),
			field.String("title"),
		),
		Edges(
			edge.BelongsTo("gallery", "gallery"),
			edge.HasMany("images_tags", "image_tag"),
			edge.HasManyThrough("tags", "images_tags", "tag"),
		),
		Indexes(
			index.Fields("gallery_id"),
		),
	)
	imageTag = NewSchema("image_tag",
		Fields(
			field.Serial("id"),
			field.Integer("image_id"),
			field.Integer("tag_id"),
		),
		Edges(
			edge.BelongsTo("image", "image"),
			edge.BelongsTo("tag", "tag"),
		),
		Indexes(
			index.Fields("image_id", "tag_id").Unique(),
		),
	)
	tag = NewSchema("tag",
		Fields(
			field.Serial("id"),
			field.String("name").Length(50),
		),
		Edges(
			edge.HasMany("images_tags", "image_tag"),
			edge.HasManyThrough("images", "images_tags", "image"),
		),
	)
	return gallery, detail, image, imageTag, tag
}

// newFixture opens an empty database with the gallery schemas created.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", ":memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db}
	f.gallery, f.detail, f.image, f.imageTag, f.tag = newSchemas()
	db.Register(f.gallery, f.detail, f.image, f.imageTag, f.tag)
	for _, s := range []*Schema{f.gallery, f.detail, f.image, f.imageTag, f.tag} {
		require.NoError(t, s.CreateTable(ctx))
	}
	return f
}

// populate inserts the gallery data set.
func (f *fixture) populate(t *testing.T) *fixture {
	t.Helper()
	insert := func(s *Schema, rows ...map[string]any) {
		for _, row := range rows {
			require.NoError(t, s.Insert(context.Background(), row))
		}
	}
	insert(f.gallery,
		map[string]any{"id": 1, "name": "Foo Gallery"},
		map[string]any{"id": 2, "name": "Bar Gallery"},
	)
	insert(f.detail,
		map[string]any{"id": 1, "description": "Foo Gallery Description", "gallery_id": 1},
		map[string]any{"id": 2, "description": "Bar Gallery Description", "gallery_id": 2},
	)
	insert(f.image,
		map[string]any{"id": 1, "gallery_id": 1, "name": "amiga_1200.jpg", "title": "Amiga 1200"},
		map[string]any{"id": 2, "gallery_id": 1, "name": "srinivasa_ramanujan.jpg", "title": "Srinivasa Ramanujan"},
		map[string]any{"id": 3, "gallery_id": 1, "name": "las_vegas.jpg", "title": "Las Vegas"},
		map[string]any{"id": 4, "gallery_id": 2, "name": "silicon_valley.jpg", "title": "Silicon Valley"},
		map[string]any{"id": 5, "gallery_id": 2, "name": "unknown.gif", "title": "Unknown"},
	)
	insert(f.imageTag,
		map[string]any{"id": 1, "image_id": 1, "tag_id": 1},
		map[string]any{"id": 2, "image_id": 1, "tag_id": 3},
		map[string]any{"id": 3, "image_id": 2, "tag_id": 5},
		map[string]any{"id": 4, "image_id": 3, "tag_id": 6},
		map[string]any{"id": 5, "image_id": 4, "tag_id": 6},
		map[string]any{"id": 6, "image_id": 4, "tag_id": 3},
		map[string]any{"id": 7, "image_id": 4, "tag_id": 1},
	)
	insert(f.tag,
		map[string]any{"id": 1, "name": "High Tech"},
		map[string]any{"id": 2, "name": "Sport"},
		map[string]any{"id": 3, "name": "Computer"},
		map[string]any{"id": 4, "name": "Art"},
		map[string]any{"id": 5, "name": "Science"},
		map[string]any{"id": 6, "name": "City"},
	)
	return f
}

// count returns the number of rows of s.
func (f *fixture) count(t *testing.T, s *Schema) int64 {
	t.Helper()
	q, err := s.Query()
	require.NoError(t, err)
	n, err := q.Count(context.Background())
	require.NoError(t, err)
	return n
}

// names returns the values of column name of the records of c.
func names(c *Collection, name string) []any {
	out := make([]any, 0, c.Len())
	for _, r := range c.Items() {
		out = append(out, r.Get(name))
	}
	return out
}
