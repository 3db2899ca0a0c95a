// Package index provides fluent builders for the indexes of a schema.
//
//	index.Fields("gallery_id")
//	index.Fields("image_id", "tag_id").Unique()
//	index.Fields("name").StorageKey("tag_name_idx")
package index

import "strings"

// Descriptor holds the definition of an index.
type Descriptor struct {
	// Name is the index name. Empty means <table>_<columns>.
	Name string
	// Fields are the indexed columns.
	Fields []string
	// Unique reports whether the index is unique.
	Unique bool
}

// Builder is the fluent builder of a Descriptor.
type Builder struct {
	desc *Descriptor
}

// Fields returns a builder for an index over the given columns.
func Fields(fields ...string) *Builder {
	return &Builder{desc: &Descriptor{Fields: fields}}
}

// Unique marks the index as unique.
func (b *Builder) Unique() *Builder {
	b.desc.Unique = true
	return b
}

// StorageKey sets the index name.
func (b *Builder) StorageKey(name string) *Builder {
	b.desc.Name = name
	return b
}

// Descriptor implements the schema.Index interface.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// NameFor returns the name of the index on table.
func (d *Descriptor) NameFor(table string) string {
	if d.Name != "" {
		return d.Name
	}
	return table + "_" + strings.Join(d.Fields, "_")
}
