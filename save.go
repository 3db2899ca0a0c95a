package sqlorm

import (
	"context"
	"errors"
	"slices"
	"sort"

	"github.com/syssam/sqlorm/dialect/sql"
	"github.com/syssam/sqlorm/schema/edge"
)

// SaveOption configures Save.
type SaveOption func(*saveOptions)

type saveOptions struct {
	embed     []string
	embedAll  bool
	whitelist []string
	locked    *bool
	validate  bool
}

// WithEmbed saves the given relation paths with the record. Without paths
// only the record row is written.
func WithEmbed(paths ...string) SaveOption {
	return func(o *saveOptions) {
		o.embed = append(slices.Clip(o.embed), paths...)
		if o.embed == nil {
			o.embed = []string{}
		}
	}
}

// WithEmbedAll saves every relation loaded on the record, at any depth.
func WithEmbedAll() SaveOption {
	return func(o *saveOptions) { o.embedAll = true }
}

// WithWhitelist restricts the columns written for the root record.
func WithWhitelist(fields ...string) SaveOption {
	return func(o *saveOptions) { o.whitelist = append(o.whitelist, fields...) }
}

// WithLocked overrides the locked policy of the saved schemas.
func WithLocked(v bool) SaveOption {
	return func(o *saveOptions) { o.locked = &v }
}

// WithValidation runs the schema validators before writing.
func WithValidation() SaveOption {
	return func(o *saveOptions) { o.validate = true }
}

// saver persists one relation of a record.
type saver func(s *Schema, ctx context.Context, rec Record, rel *Relation, node *relNode, o saveOptions) (bool, error)

var savers map[edge.Kind]saver

func init() {
	savers = map[edge.Kind]saver{
		edge.KindBelongsTo:      (*Schema).saveBelongsTo,
		edge.KindHasOne:         (*Schema).saveHasOne,
		edge.KindHasMany:        (*Schema).saveHasMany,
		edge.KindHasManyThrough: (*Schema).saveThrough,
	}
}

// Save writes rec and the related records selected by the options. By
// default the direct relations set on rec are saved. BelongsTo relations
// are saved first and their key copied into the foreign key, then the row
// is inserted or updated, then the other relations get their foreign key
// and are saved. It reports false when a record was rejected by
// validation or a related record could not be saved. Writes are not
// undone on failure; use Database.Transaction for atomicity.
func (s *Schema) Save(ctx context.Context, rec Record, opts ...SaveOption) (bool, error) {
	if s.db == nil {
		return false, ErrMissingConnection
	}
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}
	var tree *relTree
	switch {
	case o.embedAll:
		tree = treeify(rec.Hierarchy()...)
	case o.embed != nil:
		tree = treeify(o.embed...)
	default:
		tree = treeify(s.Relations()...)
	}
	return s.save(ctx, rec, tree, o)
}

func (s *Schema) save(ctx context.Context, rec Record, tree *relTree, o saveOptions) (bool, error) {
	if o.validate && s.validator != nil {
		if err := s.validator(ctx, rec); err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) {
				s.db.log.DebugContext(ctx, "sqlorm: record rejected", "source", s.source, "error", err)
				return false, nil
			}
			return false, err
		}
	}
	rels := make(map[string]*Relation, len(tree.names))
	throughs := map[string]bool{}
	for _, name := range tree.names {
		rel, err := s.Relation(name)
		if err != nil {
			return false, err
		}
		rels[name] = rel
		if rel.Kind() == edge.KindHasManyThrough {
			throughs[rel.Through()] = true
		}
	}
	for _, name := range tree.names {
		rel := rels[name]
		if !rel.Kind().Owning() {
			continue
		}
		ok, err := savers[rel.Kind()](s, ctx, rec, rel, tree.nodes[name], o)
		if err != nil || !ok {
			return false, err
		}
	}
	if !rec.Exists() || rec.Modified() {
		if err := s.persist(ctx, rec, o); err != nil {
			return false, err
		}
	}
	saved := true
	for _, name := range tree.names {
		rel := rels[name]
		// Join records of a saved HasManyThrough relation are rebuilt by it.
		if rel.Kind().Owning() || throughs[name] {
			continue
		}
		ok, err := savers[rel.Kind()](s, ctx, rec, rel, tree.nodes[name], o)
		if err != nil {
			return false, err
		}
		saved = saved && ok
	}
	return saved, nil
}

// saveRecord saves a related record with the relations under node.
func saveRecord(ctx context.Context, rec Record, node *relNode, o saveOptions) (bool, error) {
	children := newTree()
	if node != nil && node.children != nil {
		children = node.children
	}
	o.whitelist = nil
	return rec.Schema().save(ctx, rec, children, o)
}

func (s *Schema) saveBelongsTo(ctx context.Context, rec Record, rel *Relation, node *relNode, o saveOptions) (bool, error) {
	parent, ok := rec.Get(rel.Name()).(Record)
	if !ok {
		return true, nil
	}
	if saved, err := saveRecord(ctx, parent, node, o); err != nil || !saved {
		return false, err
	}
	fk, tk := rel.Keys()
	rec.Set(fk, parent.Get(tk))
	return true, nil
}

func (s *Schema) saveHasOne(ctx context.Context, rec Record, rel *Relation, node *relNode, o saveOptions) (bool, error) {
	child, ok := rec.Get(rel.Name()).(Record)
	if !ok {
		return true, nil
	}
	fk, tk := rel.Keys()
	child.Set(tk, rec.Get(fk))
	return saveRecord(ctx, child, node, o)
}

// saveHasMany saves the records of the collection and detaches the stored
// ones it no longer holds. Detached join records are deleted; other
// records get a NULL foreign key.
func (s *Schema) saveHasMany(ctx context.Context, rec Record, rel *Relation, node *relNode, o saveOptions) (bool, error) {
	coll, ok := rec.Get(rel.Name()).(*Collection)
	if !ok {
		return true, nil
	}
	fk, tk := rel.Keys()
	target := rel.To()
	id := rec.Get(fk)
	if id != nil {
		stale, err := target.stale(ctx, sql.EQ(tk, id), coll.items)
		if err != nil {
			return false, err
		}
		if len(stale) > 0 {
			cond := sql.In(target.Key(), stale...)
			if s.junction(rel.Name()) {
				err = target.Truncate(ctx, cond)
			} else {
				err = target.Update(ctx, map[string]any{tk: nil}, cond)
			}
			if err != nil {
				return false, err
			}
		}
	}
	saved := true
	for _, item := range coll.items {
		item.Set(tk, id)
		ok, err := saveRecord(ctx, item, node, o)
		if err != nil {
			return false, err
		}
		saved = saved && ok
	}
	return saved, nil
}

// stale returns the keys of the stored rows matching cond that are not
// held by keep.
func (s *Schema) stale(ctx context.Context, cond sql.Expr, keep []Record) ([]any, error) {
	kept := make(map[string]bool, len(keep))
	for _, r := range keep {
		if id := r.ID(); id != nil {
			kept[matchKey(id)] = true
		}
	}
	q, err := s.Query()
	if err != nil {
		return nil, err
	}
	rows, err := q.Fields(s.Key()).Where(cond).Rows(ctx)
	if err != nil {
		return nil, err
	}
	var ids []any
	for _, row := range rows {
		if id := row[s.Key()]; id != nil && !kept[matchKey(id)] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// saveThrough saves the targets of a HasManyThrough relation and rebuilds
// its join records. Stored join records are reused when they point to a
// target, new ones are inserted and the others are deleted.
func (s *Schema) saveThrough(ctx context.Context, rec Record, rel *Relation, node *relNode, o saveOptions) (bool, error) {
	targets, ok := rec.Get(rel.Name()).(*Collection)
	if !ok {
		return true, nil
	}
	through, err := s.Relation(rel.Through())
	if err != nil {
		return false, err
	}
	junction := through.To()
	using, err := junction.Relation(rel.Using())
	if err != nil {
		return false, err
	}
	for _, t := range targets.items {
		if saved, err := saveRecord(ctx, t, node, o); err != nil || !saved {
			return false, err
		}
	}
	fk, tk := through.Keys()
	ufk, utk := using.Keys()
	var prev []Record
	switch v := rec.Get(rel.Through()).(type) {
	case *Collection:
		prev = v.items
	default:
		if rec.Exists() {
			q, err := junction.Query()
			if err != nil {
				return false, err
			}
			stored, err := q.Where(sql.EQ(tk, rec.Get(fk))).All(ctx)
			if err != nil {
				return false, err
			}
			prev = stored.items
		}
	}
	joins := NewCollection(junction)
	used := make(map[Record]bool, len(prev))
	for _, t := range targets.items {
		var j Record
		for _, p := range prev {
			if !used[p] && points(p, t, rel.Using(), ufk, utk) {
				j = p
				break
			}
		}
		if j == nil {
			j = junction.Create(nil)
		}
		used[j] = true
		j.Set(rel.Using(), t)
		j.Set(ufk, t.Get(utk))
		j.Set(tk, rec.Get(fk))
		joins.Push(j)
	}
	var stale []sql.Expr
	for _, p := range prev {
		if used[p] || !p.Exists() {
			continue
		}
		if id := p.ID(); id != nil {
			stale = append(stale, sql.EQ(junction.Key(), id))
		} else {
			stale = append(stale, sql.And(sql.EQ(tk, rec.Get(fk)), sql.EQ(ufk, p.Get(ufk))))
		}
	}
	if len(stale) > 0 {
		if err := junction.Truncate(ctx, sql.Or(stale...)); err != nil {
			return false, err
		}
	}
	rec.Set(rel.Through(), joins)
	var inserts, updates []Record
	for _, j := range joins.items {
		switch {
		case !j.Exists():
			inserts = append(inserts, j)
		case j.Modified():
			updates = append(updates, j)
		}
	}
	// New join records are written before the modified ones.
	if err := junction.persistAll(ctx, append(inserts, updates...), o); err != nil {
		return false, err
	}
	return true, nil
}

// points reports whether the join record j leads to the target t, by
// identity or by foreign key.
func points(j, t Record, using, fk, tk string) bool {
	if u, ok := j.Get(using).(Record); ok && u == t {
		return true
	}
	v, k := j.Get(fk), t.Get(tk)
	return v != nil && k != nil && matchKey(v) == matchKey(k)
}

// persistAll persists every column of recs, ignoring the whitelist of o.
func (s *Schema) persistAll(ctx context.Context, recs []Record, o saveOptions) error {
	o.whitelist = nil
	for _, r := range recs {
		if err := s.persist(ctx, r, o); err != nil {
			return err
		}
	}
	return nil
}

// values returns the columns of rec written by persist.
func (s *Schema) values(rec Record, o saveOptions) map[string]any {
	key := s.Key()
	names := s.Names()
	if !s.Has(key) {
		names = append(names, key)
	}
	locked := s.Locked()
	if o.locked != nil {
		locked = *o.locked
	}
	if !locked {
		var extra []string
		for k := range rec.Data() {
			if !slices.Contains(names, k) && !s.HasRelation(k) {
				extra = append(extra, k)
			}
		}
		sort.Strings(extra)
		names = append(names, extra...)
	}
	values := make(map[string]any, len(names))
	for _, name := range names {
		if len(o.whitelist) > 0 && name != key && !slices.Contains(o.whitelist, name) {
			continue
		}
		if rec.Has(name) {
			values[name] = rec.Get(name)
		}
	}
	return values
}

// persist inserts or updates the row of rec and marks it stored and
// unmodified.
func (s *Schema) persist(ctx context.Context, rec Record, o saveOptions) error {
	values := s.values(rec, o)
	key := s.Key()
	if !rec.Exists() {
		for _, c := range s.columns {
			if _, ok := values[c.Name]; !ok && c.DefaultFunc != nil {
				values[c.Name] = c.DefaultFunc()
			}
		}
		id, err := s.insert(ctx, values)
		if err != nil {
			return err
		}
		if id == nil {
			if id, err = s.LastInsertID(ctx); err != nil {
				return err
			}
		}
		values[key] = id
		rec.Amend(values, true)
		return nil
	}
	id := rec.ID()
	if id == nil {
		return &MissingIdentifierError{Source: s.source}
	}
	for _, c := range s.columns {
		if c.UpdateDefault != nil {
			values[c.Name] = c.UpdateDefault()
		}
	}
	delete(values, key)
	if err := s.Update(ctx, values, sql.EQ(key, id)); err != nil {
		return err
	}
	rec.Amend(values, true)
	return nil
}
