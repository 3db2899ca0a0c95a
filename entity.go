package sqlorm

import (
	"context"
	"reflect"
	"slices"

	"github.com/syssam/sqlorm/dialect/sql"
)

// Record is a row of a schema held in memory. Implementations must be
// pointer types: records are compared by identity when join records are
// matched to their targets.
type Record interface {
	// Schema returns the schema of the record.
	Schema() *Schema
	// Get returns the value of a column or a loaded relation.
	Get(name string) any
	// Set sets the value of a column or a relation.
	Set(name string, v any)
	// Has reports whether a value is set for name.
	Has(name string) bool
	// ID returns the key value.
	ID() any
	// Exists reports whether the record is stored.
	Exists() bool
	// Modified reports whether a column changed since the record was
	// loaded or saved.
	Modified() bool
	// Amend merges data into the record, sets its existence and marks it
	// unmodified.
	Amend(data map[string]any, exists bool)
	// Data returns the record as a plain map, relations included.
	Data() map[string]any
	// Hierarchy returns the paths of the loaded relations.
	Hierarchy() []string
}

// Model builds the records of a schema.
type Model func(s *Schema, data map[string]any, exists bool) Record

// EntityModel is the default Model.
func EntityModel(s *Schema, data map[string]any, exists bool) Record {
	return NewEntity(s, data, exists)
}

// Entity is the default Record implementation.
type Entity struct {
	schema   *Schema
	data     map[string]any
	original map[string]any
	exists   bool
}

// NewEntity returns an entity of s holding a copy of data. Relation values
// given as maps or slices of maps are turned into entities and collections
// of the related schema.
func NewEntity(s *Schema, data map[string]any, exists bool) *Entity {
	e := &Entity{schema: s, data: make(map[string]any, len(data)), exists: exists}
	for k, v := range data {
		e.Set(k, v)
	}
	e.original = e.columns()
	return e
}

// Schema implements Record.
func (e *Entity) Schema() *Schema { return e.schema }

// Get implements Record.
func (e *Entity) Get(name string) any { return e.data[name] }

// Has implements Record.
func (e *Entity) Has(name string) bool {
	_, ok := e.data[name]
	return ok
}

// Set implements Record.
func (e *Entity) Set(name string, v any) {
	if e.schema != nil && e.schema.HasRelation(name) {
		if rel, err := e.schema.Relation(name); err == nil {
			v = hydrate(rel, v)
		}
	}
	e.data[name] = v
}

// Unset removes a value.
func (e *Entity) Unset(name string) { delete(e.data, name) }

// ID implements Record.
func (e *Entity) ID() any { return e.data[e.schema.Key()] }

// Exists implements Record.
func (e *Entity) Exists() bool { return e.exists }

// Modified implements Record.
func (e *Entity) Modified() bool {
	cur := e.columns()
	if len(cur) != len(e.original) {
		return true
	}
	for k, v := range cur {
		o, ok := e.original[k]
		if !ok || !reflect.DeepEqual(o, v) {
			return true
		}
	}
	return false
}

// Amend implements Record.
func (e *Entity) Amend(data map[string]any, exists bool) {
	for k, v := range data {
		e.Set(k, v)
	}
	e.exists = exists
	e.original = e.columns()
}

// columns returns a copy of the non relation values.
func (e *Entity) columns() map[string]any {
	m := make(map[string]any, len(e.data))
	for k, v := range e.data {
		if e.schema != nil && e.schema.HasRelation(k) {
			continue
		}
		m[k] = v
	}
	return m
}

// Data implements Record. A related record already being converted on the
// current path is left out, so back references do not recurse.
func (e *Entity) Data() map[string]any {
	return recordData(e, map[Record]bool{})
}

func recordData(rec Record, visiting map[Record]bool) map[string]any {
	e, ok := rec.(*Entity)
	if !ok {
		return rec.Data()
	}
	visiting[rec] = true
	defer delete(visiting, rec)
	m := make(map[string]any, len(e.data))
	for k, v := range e.data {
		switch v := v.(type) {
		case Record:
			if !visiting[v] {
				m[k] = recordData(v, visiting)
			}
		case *Collection:
			m[k] = v.data(visiting)
		default:
			m[k] = v
		}
	}
	return m
}

// Hierarchy implements Record.
func (e *Entity) Hierarchy() []string {
	return hierarchy(e, map[Record]bool{})
}

func hierarchy(rec Record, visited map[Record]bool) []string {
	if visited[rec] {
		return nil
	}
	visited[rec] = true
	var paths []string
	add := func(p string) {
		if !slices.Contains(paths, p) {
			paths = append(paths, p)
		}
	}
	for _, name := range rec.Schema().Relations() {
		var children []Record
		switch v := rec.Get(name).(type) {
		case Record:
			children = []Record{v}
		case *Collection:
			children = v.items
		default:
			continue
		}
		add(name)
		for _, child := range children {
			for _, p := range hierarchy(child, visited) {
				add(name + "." + p)
			}
		}
	}
	return paths
}

// Save saves the entity and its relations.
func (e *Entity) Save(ctx context.Context, opts ...SaveOption) (bool, error) {
	return e.schema.Save(ctx, e, opts...)
}

// Delete deletes the stored row of the entity.
func (e *Entity) Delete(ctx context.Context) error {
	if !e.exists {
		return nil
	}
	id := e.ID()
	if id == nil {
		return &MissingIdentifierError{Source: e.schema.Source()}
	}
	if err := e.schema.Truncate(ctx, sql.EQ(e.schema.Key(), id)); err != nil {
		return err
	}
	e.exists = false
	e.original = map[string]any{}
	return nil
}

// hydrate turns a relation value into records of the related schema.
func hydrate(rel *Relation, v any) any {
	target := rel.To()
	if rel.Many() {
		switch v := v.(type) {
		case *Collection:
			return v
		case []Record:
			return NewCollection(target, v...)
		case []map[string]any:
			c := NewCollection(target)
			for _, m := range v {
				c.Push(target.Create(m))
			}
			return c
		case []any:
			c := NewCollection(target)
			for _, item := range v {
				switch item := item.(type) {
				case Record:
					c.Push(item)
				case map[string]any:
					c.Push(target.Create(item))
				}
			}
			return c
		}
		return v
	}
	if m, ok := v.(map[string]any); ok {
		return target.Create(m)
	}
	return v
}

// Collection is an ordered list of records of one schema.
type Collection struct {
	schema *Schema
	items  []Record
	meta   map[string]any
	exists bool
}

// NewCollection returns a collection of s holding items.
func NewCollection(s *Schema, items ...Record) *Collection {
	return &Collection{schema: s, items: slices.Clone(items), meta: map[string]any{}}
}

// Schema returns the schema of the collection.
func (c *Collection) Schema() *Schema { return c.schema }

// Len returns the number of records.
func (c *Collection) Len() int { return len(c.items) }

// At returns the record at index i, or nil when out of range.
func (c *Collection) At(i int) Record {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	return c.items[i]
}

// Items returns the records.
func (c *Collection) Items() []Record { return slices.Clone(c.items) }

// Push appends records.
func (c *Collection) Push(items ...Record) {
	c.items = append(c.items, items...)
}

// Remove removes and returns the record at index i, or nil when out of range.
func (c *Collection) Remove(i int) Record {
	if i < 0 || i >= len(c.items) {
		return nil
	}
	r := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	return r
}

// Meta returns the metadata of the collection. Paginated fetches store
// the total number of matching records under "count".
func (c *Collection) Meta() map[string]any { return c.meta }

// Exists reports whether the collection is a page of stored records.
func (c *Collection) Exists() bool { return c.exists }

// IDs returns the key values of the records.
func (c *Collection) IDs() []any {
	ids := make([]any, 0, len(c.items))
	for _, r := range c.items {
		ids = append(ids, r.ID())
	}
	return ids
}

// Data returns the records as plain maps.
func (c *Collection) Data() []map[string]any {
	return c.data(map[Record]bool{})
}

func (c *Collection) data(visiting map[Record]bool) []map[string]any {
	out := make([]map[string]any, 0, len(c.items))
	for _, r := range c.items {
		if !visiting[r] {
			out = append(out, recordData(r, visiting))
		}
	}
	return out
}
