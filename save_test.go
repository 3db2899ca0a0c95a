package sqlorm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlorm/dialect/sql"
)

func TestSaveRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingConnection", func(t *testing.T) {
		s := NewSchema("gallery")
		_, err := s.Save(ctx, s.Create(nil))
		require.ErrorIs(t, err, ErrMissingConnection)
	})

	t.Run("Insert", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec := f.gallery.Create(map[string]any{"name": "Baz Gallery"})
		ok, err := f.gallery.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, rec.Exists())
		assert.False(t, rec.Modified())
		assert.Equal(t, int64(3), rec.ID())
		assert.Equal(t, int64(3), f.count(t, f.gallery))
	})

	t.Run("Update", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.gallery.Load(ctx, 1)
		require.NoError(t, err)
		rec.Set("name", "Renamed")
		assert.True(t, rec.Modified())
		ok, err := f.gallery.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, rec.Modified())

		stored, err := f.gallery.Load(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", stored.Get("name"))
		assert.Equal(t, int64(2), f.count(t, f.gallery))
	})

	t.Run("MissingIdentifier", func(t *testing.T) {
		f := newFixture(t)
		rec := NewEntity(f.gallery, map[string]any{"name": "Foo"}, true)
		rec.Set("name", "Bar")
		ok, err := f.gallery.Save(ctx, rec)
		assert.False(t, ok)
		var merr *MissingIdentifierError
		require.ErrorAs(t, err, &merr)
		assert.Equal(t, "gallery", merr.Source)
	})

	t.Run("Whitelist", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec := f.image.Create(map[string]any{"name": "new.jpg", "title": "New", "gallery_id": 1})
		ok, err := f.image.Save(ctx, rec, WithWhitelist("name"))
		require.NoError(t, err)
		assert.True(t, ok)

		q, err := f.image.Query()
		require.NoError(t, err)
		row, err := q.Where(sql.EQ("id", rec.ID())).FirstRow(ctx)
		require.NoError(t, err)
		assert.Equal(t, "new.jpg", row["name"])
		assert.Nil(t, row["title"])
		assert.Nil(t, row["gallery_id"])
	})

	t.Run("Locked", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec := f.gallery.Create(map[string]any{"name": "Baz Gallery", "unknown": "x"})
		ok, err := f.gallery.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)

		rec = f.gallery.Create(map[string]any{"name": "Qux Gallery", "unknown": "x"})
		ok, err = f.gallery.Save(ctx, rec, WithLocked(false))
		require.Error(t, err)
		assert.True(t, IsMutationError(err))
		assert.False(t, ok)
	})

	t.Run("Delete", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.gallery.Load(ctx, 2)
		require.NoError(t, err)
		require.NoError(t, rec.(*Entity).Delete(ctx))
		assert.False(t, rec.Exists())
		assert.Equal(t, int64(1), f.count(t, f.gallery))
	})
}

func TestSaveRelations(t *testing.T) {
	ctx := context.Background()

	t.Run("BelongsTo", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec := f.image.Create(map[string]any{
			"name":    "new.jpg",
			"gallery": map[string]any{"name": "New Gallery"},
		})
		ok, err := f.image.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)

		parent := rec.Get("gallery").(Record)
		assert.True(t, parent.Exists())
		assert.Equal(t, int64(3), parent.ID())
		assert.Equal(t, int64(3), rec.Get("gallery_id"))

		stored, err := f.image.Load(ctx, rec.ID(), "gallery")
		require.NoError(t, err)
		assert.Equal(t, "New Gallery", stored.Get("gallery").(Record).Get("name"))
	})

	t.Run("HasOne", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec := f.gallery.Create(map[string]any{
			"name":   "New Gallery",
			"detail": map[string]any{"description": "New Gallery Description"},
		})
		ok, err := f.gallery.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)

		detail := rec.Get("detail").(Record)
		assert.Equal(t, rec.ID(), detail.Get("gallery_id"))
		stored, err := f.gallery.Load(ctx, rec.ID(), "detail")
		require.NoError(t, err)
		assert.Equal(t, "New Gallery Description", stored.Get("detail").(Record).Get("description"))
	})

	t.Run("HasMany", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.gallery.Load(ctx, 1, "images")
		require.NoError(t, err)
		images := rec.Get("images").(*Collection)
		require.Equal(t, 3, images.Len())
		removed := images.Remove(0)
		images.Push(f.image.Create(map[string]any{"name": "new.jpg", "title": "New"}))

		ok, err := f.gallery.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)

		q, err := f.image.Query()
		require.NoError(t, err)
		row, err := q.Where(sql.EQ("id", removed.ID())).FirstRow(ctx)
		require.NoError(t, err)
		assert.Nil(t, row["gallery_id"], "detached records lose their foreign key")

		stored, err := f.gallery.Load(ctx, 1, "images")
		require.NoError(t, err)
		assert.Equal(t, 3, stored.Get("images").(*Collection).Len())
		assert.Contains(t, names(stored.Get("images").(*Collection), "name"), "new.jpg")
		assert.Equal(t, int64(6), f.count(t, f.image))
	})

	t.Run("HasManyJunction", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.image.Load(ctx, 4, "images_tags")
		require.NoError(t, err)
		joins := rec.Get("images_tags").(*Collection)
		require.Equal(t, 3, joins.Len())
		joins.Remove(0)

		ok, err := f.image.Save(ctx, rec, WithEmbed("images_tags"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(6), f.count(t, f.imageTag), "detached join records are deleted")
	})

	t.Run("Embed", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.gallery.Load(ctx, 1, "images")
		require.NoError(t, err)
		img := rec.Get("images").(*Collection).At(0)
		img.Set("title", "Changed")

		ok, err := f.gallery.Save(ctx, rec, WithEmbed())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, img.Modified(), "relations are not saved with an empty embed list")

		ok, err = f.gallery.Save(ctx, rec, WithEmbedAll())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, img.Modified())
		stored, err := f.image.Load(ctx, img.ID())
		require.NoError(t, err)
		assert.Equal(t, "Changed", stored.Get("title"))
	})

	t.Run("Validation", func(t *testing.T) {
		f := newFixture(t).populate(t)
		errEmpty := errors.New("empty name")
		f.tag.validator = func(_ context.Context, rec Record) error {
			if rec.Get("name") == "" {
				return NewValidationError("name", errEmpty)
			}
			return nil
		}
		rec := f.image.Create(map[string]any{
			"name": "new.jpg",
			"tags": []map[string]any{{"name": "Valid"}, {"name": ""}},
		})
		ok, err := f.image.Save(ctx, rec, WithValidation())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, rec.Exists(), "the record is written before its owned relations")
		tags := rec.Get("tags").(*Collection)
		assert.True(t, tags.At(0).Exists())
		assert.False(t, tags.At(1).Exists())
		assert.Equal(t, int64(7), f.count(t, f.imageTag), "join records are not rebuilt")

		ok, err = f.tag.Save(ctx, f.tag.Create(map[string]any{"name": ""}))
		require.NoError(t, err)
		assert.True(t, ok, "validators only run on request")

		f.tag.validator = func(context.Context, Record) error { return errEmpty }
		_, err = f.tag.Save(ctx, f.tag.Create(map[string]any{"name": "x"}), WithValidation())
		require.ErrorIs(t, err, errEmpty)
	})
}

func TestSaveThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("Append", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.image.Load(ctx, 5)
		require.NoError(t, err)
		tag, err := f.tag.Load(ctx, 1)
		require.NoError(t, err)
		rec.Set("tags", []any{tag, map[string]any{"name": "New Tag"}})

		ok, err := f.image.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(7), f.count(t, f.tag))
		assert.Equal(t, int64(9), f.count(t, f.imageTag))
		joins := rec.Get("images_tags").(*Collection)
		require.Equal(t, 2, joins.Len())
		for _, j := range joins.Items() {
			assert.True(t, j.Exists())
			assert.Equal(t, int64(5), j.Get("image_id"))
		}

		stored, err := f.image.Load(ctx, 5, "tags")
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"High Tech", "New Tag"}, names(stored.Get("tags").(*Collection), "name"))
	})

	t.Run("Remove", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.image.Load(ctx, 4, "tags")
		require.NoError(t, err)
		tags := rec.Get("tags").(*Collection)
		require.Equal(t, 3, tags.Len())
		kept := NewCollection(f.tag)
		for _, tag := range tags.Items() {
			if tag.Get("name") != "Computer" {
				kept.Push(tag)
			}
		}
		rec.Set("tags", kept)

		ok, err := f.image.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(6), f.count(t, f.imageTag))
		assert.Equal(t, int64(6), f.count(t, f.tag), "targets are kept")

		stored, err := f.image.Load(ctx, 4, "tags")
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"City", "High Tech"}, names(stored.Get("tags").(*Collection), "name"))
	})

	t.Run("ReuseJoins", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.image.Load(ctx, 1, "tags")
		require.NoError(t, err)
		before := rec.Get("images_tags").(*Collection).IDs()

		ok, err := f.image.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.ElementsMatch(t, before, rec.Get("images_tags").(*Collection).IDs())
		assert.Equal(t, int64(7), f.count(t, f.imageTag))
	})

	t.Run("InsertAndUpdateJoins", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec, err := f.image.Load(ctx, 1, "tags")
		require.NoError(t, err)
		find := func(c *Collection, name string, v any) Record {
			for _, r := range c.Items() {
				if r.Get(name) == v {
					return r
				}
			}
			return nil
		}
		joins := rec.Get("images_tags").(*Collection)
		require.Equal(t, 2, joins.Len())
		moved := find(joins, "tag_id", int64(1))
		require.NotNil(t, moved)
		movedID := moved.ID()
		sport, err := f.tag.Load(ctx, 2)
		require.NoError(t, err)
		moved.Set("tag", sport)
		kept := find(rec.Get("tags").(*Collection), "name", "Computer")
		require.NotNil(t, kept)
		rec.Set("tags", []any{sport, kept, map[string]any{"name": "Fresh"}})

		ok, err := f.image.Save(ctx, rec)
		require.NoError(t, err)
		assert.True(t, ok)
		joins = rec.Get("images_tags").(*Collection)
		require.Equal(t, 3, joins.Len())
		for _, j := range joins.Items() {
			assert.True(t, j.Exists())
			assert.False(t, j.Modified())
		}
		assert.Same(t, moved, joins.At(0))
		assert.Equal(t, movedID, moved.ID())
		assert.Equal(t, int64(2), moved.Get("tag_id"))
		assert.Equal(t, int64(8), f.count(t, f.imageTag))

		stored, err := f.image.Load(ctx, 1, "tags")
		require.NoError(t, err)
		assert.ElementsMatch(t, []any{"Sport", "Computer", "Fresh"}, names(stored.Get("tags").(*Collection), "name"))
	})

	t.Run("Nested", func(t *testing.T) {
		f := newFixture(t).populate(t)
		rec := f.image.Create(map[string]any{
			"name":    "nested.jpg",
			"title":   "Nested",
			"gallery": map[string]any{"name": "Nested Gallery"},
			"tags": []map[string]any{
				{"name": "Tag 1"},
				{"name": "Tag 2"},
				{"name": "Tag 3"},
			},
		})
		ok, err := f.image.Save(ctx, rec, WithEmbed("gallery", "tags"))
		require.NoError(t, err)
		assert.True(t, ok)

		assert.Equal(t, int64(3), f.count(t, f.gallery))
		assert.Equal(t, int64(6), f.count(t, f.image))
		assert.Equal(t, int64(9), f.count(t, f.tag))
		assert.Equal(t, int64(10), f.count(t, f.imageTag))

		stored, err := f.image.Load(ctx, rec.ID(), "gallery", "tags")
		require.NoError(t, err)
		assert.Equal(t, "Nested Gallery", stored.Get("gallery").(Record).Get("name"))
		assert.ElementsMatch(t, []any{"Tag 1", "Tag 2", "Tag 3"}, names(stored.Get("tags").(*Collection), "name"))
	})
}

func TestSaveInTransaction(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t).populate(t)
	errAbort := errors.New("abort")

	err := f.db.Transaction(ctx, func(ctx context.Context) error {
		rec := f.image.Create(map[string]any{
			"name":    "tx.jpg",
			"gallery": map[string]any{"name": "Tx Gallery"},
			"tags":    []map[string]any{{"name": "Tx Tag"}},
		})
		if _, err := f.image.Save(ctx, rec); err != nil {
			return err
		}
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)
	assert.Equal(t, 0, f.db.TransactionLevel())
	assert.Equal(t, int64(2), f.count(t, f.gallery))
	assert.Equal(t, int64(5), f.count(t, f.image))
	assert.Equal(t, int64(6), f.count(t, f.tag))
	assert.Equal(t, int64(7), f.count(t, f.imageTag))

	err = f.db.Transaction(ctx, func(ctx context.Context) error {
		_, err := f.gallery.Save(ctx, f.gallery.Create(map[string]any{"name": "Kept"}))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.count(t, f.gallery))
}
