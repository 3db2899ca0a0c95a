package sqlorm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlorm/convert"
	"github.com/syssam/sqlorm/dialect"
	"github.com/syssam/sqlorm/schema/field"
)

func TestDatabase(t *testing.T) {
	f := newFixture(t)

	t.Run("Defaults", func(t *testing.T) {
		assert.Equal(t, dialect.SQLite, f.db.Dialect().Name())
		assert.Equal(t, Meta{Key: "id", Locked: true}, f.db.Meta())
		assert.True(t, f.db.Features().Has(dialect.Savepoints))
		assert.False(t, f.db.Features().Has(dialect.Defaults))
		assert.Nil(t, f.db.Cache())
		assert.NotNil(t, f.db.Logger())
	})

	t.Run("Schema", func(t *testing.T) {
		s, err := f.db.Schema("tag")
		require.NoError(t, err)
		assert.Same(t, f.tag, s)
		assert.Same(t, f.db, s.Database())

		_, err = f.db.Schema("unknown")
		var serr *MissingSchemaError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "unknown", serr.Name)
	})

	t.Run("Format", func(t *testing.T) {
		s, err := f.db.Format(convert.TypeString, "O'Reilly")
		require.NoError(t, err)
		assert.Equal(t, `'O''Reilly'`, s)

		v, err := f.db.Convert(convert.ToRuntime, convert.TypeInteger, "42")
		require.NoError(t, err)
		assert.Equal(t, int64(42), v)
	})
}

func TestDatabaseMeta(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, "sqlite", ":memory:", WithMeta(Meta{Key: "uid", Locked: false}))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	post := NewSchema("post", Fields(field.Serial("uid"), field.String("title")))
	db.Register(post)
	require.NoError(t, post.CreateTable(ctx))
	assert.Equal(t, "uid", post.Key())
	assert.False(t, post.Locked())

	locked := NewSchema("locked_post", Key("id"), Locked(true))
	db.Register(locked)
	assert.Equal(t, "id", locked.Key())
	assert.True(t, locked.Locked())
}

func TestDatabaseCatalog(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t).populate(t)

	t.Run("Sources", func(t *testing.T) {
		sources, err := f.db.Sources(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"gallery", "gallery_detail", "image", "image_tag", "tag"}, sources)
	})

	t.Run("Fields", func(t *testing.T) {
		fields, err := f.db.Fields(ctx, "tag")
		require.NoError(t, err)
		require.Len(t, fields, 2)
		assert.Equal(t, "id", fields[0].Name)
		assert.Equal(t, convert.TypeSerial, fields[0].Type)
		assert.Equal(t, "name", fields[1].Name)
		assert.Equal(t, convert.TypeString, fields[1].Type)
		assert.Equal(t, 50, fields[1].Length)
		assert.True(t, fields[1].Nullable)
	})

	t.Run("Defaults", func(t *testing.T) {
		_, err := f.db.Exec(ctx, `CREATE TABLE "post" (`+
			`"id" INTEGER PRIMARY KEY, `+
			`"status" VARCHAR(20) NOT NULL DEFAULT 'draft', `+
			`"views" INTEGER DEFAULT 0, `+
			`"price" DECIMAL(8,2), `+
			`"created" DATETIME DEFAULT CURRENT_TIMESTAMP)`)
		require.NoError(t, err)
		fields, err := f.db.Fields(ctx, "post")
		require.NoError(t, err)
		require.Len(t, fields, 5)

		status := fields[1]
		assert.Equal(t, convert.TypeString, status.Type)
		assert.Equal(t, 20, status.Length)
		assert.False(t, status.Nullable)
		assert.Equal(t, "draft", status.Default)

		assert.Equal(t, convert.TypeInteger, fields[2].Type)
		assert.Equal(t, int64(0), fields[2].Default)

		price := fields[3]
		assert.Equal(t, convert.TypeDecimal, price.Type)
		assert.Equal(t, 8, price.Precision)
		assert.Equal(t, 2, price.Scale)

		assert.Equal(t, convert.TypeDatetime, fields[4].Type)
		assert.Equal(t, convert.Plain("CURRENT_TIMESTAMP"), fields[4].Default)
	})

	t.Run("Describe", func(t *testing.T) {
		s, err := f.db.Describe(ctx, "image")
		require.NoError(t, err)
		assert.Equal(t, "id", s.Key())
		assert.Equal(t, []string{"id", "gallery_id", "name", "title"}, s.Names())
		_, err = f.db.Schema("image")
		require.NoError(t, err)

		q, err := s.Query()
		require.NoError(t, err)
		n, err := q.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), n)
	})

	t.Run("Query", func(t *testing.T) {
		rows, err := f.db.Query(ctx, `SELECT "name" FROM "tag" WHERE "id" = 3`)
		require.NoError(t, err)
		assert.Equal(t, []map[string]any{{"name": "Computer"}}, rows)
	})
}
