package edge

import (
	"github.com/go-openapi/inflect"
)

// Kind is the kind of a relation.
type Kind uint8

// Relation kinds.
const (
	// KindBelongsTo is a relation whose foreign key lives on the declaring schema.
	KindBelongsTo Kind = iota + 1
	// KindHasOne is a relation to one record holding a foreign key to the declaring schema.
	KindHasOne
	// KindHasMany is a relation to many records holding a foreign key to the declaring schema.
	KindHasMany
	// KindHasManyThrough is a many-to-many relation realized by an intermediate
	// HasMany relation and a relation declared on its target.
	KindHasManyThrough
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindBelongsTo:
		return "belongsTo"
	case KindHasOne:
		return "hasOne"
	case KindHasMany:
		return "hasMany"
	case KindHasManyThrough:
		return "hasManyThrough"
	default:
		return "unknown"
	}
}

// Owning reports whether the foreign key of the relation lives on the
// declaring schema. Owning relations are persisted before their owner.
func (k Kind) Owning() bool { return k == KindBelongsTo }

// Many reports whether the relation holds a collection.
func (k Kind) Many() bool { return k == KindHasMany || k == KindHasManyThrough }

// Descriptor holds the definition of a relation.
type Descriptor struct {
	// Name is the relation name, used in relation paths.
	Name string
	// Kind is the relation kind.
	Kind Kind
	// Target is the source name of the related schema. Empty for
	// HasManyThrough relations, whose target is resolved from Through and Using.
	Target string
	// From is the column of the declaring schema. Empty means the default.
	From string
	// To is the column of the related schema. Empty means the default.
	To string
	// Through is the name of the intermediate HasMany relation.
	Through string
	// Using is the name of the relation of the intermediate schema that
	// leads to the final target.
	Using string
}

// Builder is the fluent builder of a Descriptor.
type Builder struct {
	desc *Descriptor
}

// BelongsTo returns a builder for a relation holding the foreign key.
//
//	edge.BelongsTo("gallery", "gallery") // image.gallery_id = gallery.id
func BelongsTo(name, target string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Kind: KindBelongsTo, Target: target}}
}

// HasOne returns a builder for a relation to one record referencing the
// declaring schema.
//
//	edge.HasOne("detail", "gallery_detail") // gallery.id = gallery_detail.gallery_id
func HasOne(name, target string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Kind: KindHasOne, Target: target}}
}

// HasMany returns a builder for a relation to many records referencing the
// declaring schema.
//
//	edge.HasMany("images", "image") // gallery.id = image.gallery_id
func HasMany(name, target string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Kind: KindHasMany, Target: target}}
}

// HasManyThrough returns a builder for a many-to-many relation. through
// names a HasMany relation of the declaring schema and using names a
// relation of the through target.
//
//	edge.HasMany("images_tags", "image_tag")
//	edge.HasManyThrough("tags", "images_tags", "tag")
func HasManyThrough(name, through, using string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Kind: KindHasManyThrough, Through: through, Using: using}}
}

// Keys overrides the default key columns. from is a column of the
// declaring schema and to a column of the related schema.
func (b *Builder) Keys(from, to string) *Builder {
	b.desc.From, b.desc.To = from, to
	return b
}

// Descriptor implements the schema.Edge interface.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// ForeignKey returns the default foreign key column referencing a table
// or naming a relation: gallery -> gallery_id, images -> image_id.
func ForeignKey(name string) string {
	return inflect.Underscore(inflect.Singularize(name)) + "_id"
}

// DefaultKeys returns the key columns of d declared on a schema with the
// given source and key, for the related schema key targetKey. Explicit
// keys win over the defaults.
func DefaultKeys(d *Descriptor, source, key, targetKey string) (from, to string) {
	from, to = d.From, d.To
	switch d.Kind {
	case KindBelongsTo:
		if from == "" {
			from = ForeignKey(d.Name)
		}
		if to == "" {
			to = targetKey
		}
	case KindHasOne, KindHasMany:
		if from == "" {
			from = key
		}
		if to == "" {
			to = ForeignKey(source)
		}
	}
	return from, to
}
