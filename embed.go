package sqlorm

import (
	"context"
	"fmt"

	"github.com/syssam/sqlorm/dialect/sql"
	"github.com/syssam/sqlorm/schema/edge"
)

// entry is one fetched row, either a record or a plain map.
type entry struct {
	rec Record
	row map[string]any
}

func (e entry) get(name string) any {
	if e.rec != nil {
		return e.rec.Get(name)
	}
	return e.row[name]
}

func (e entry) set(name string, v any) {
	if e.rec != nil {
		e.rec.Set(name, v)
		return
	}
	e.row[name] = v
}

func (e entry) value() any {
	if e.rec != nil {
		return e.rec
	}
	return e.row
}

func (r *Result) entries() []entry {
	if r.collection != nil {
		es := make([]entry, len(r.collection.items))
		for i, rec := range r.collection.items {
			es[i] = entry{rec: rec}
		}
		return es
	}
	es := make([]entry, len(r.rows))
	for i, row := range r.rows {
		es[i] = entry{row: row}
	}
	return es
}

// many returns the value of a to-many relation holding es.
func many(mode ReturnMode, target *Schema, es []entry) any {
	if mode == ReturnEntity {
		c := NewCollection(target)
		for _, e := range es {
			c.Push(e.rec)
		}
		return c
	}
	rows := make([]map[string]any, 0, len(es))
	for _, e := range es {
		rows = append(rows, e.row)
	}
	return rows
}

// one returns the value of a to-one relation.
func one(es []entry) any {
	if len(es) == 0 {
		return nil
	}
	return es[0].value()
}

// matchKey normalizes key values of different integer types.
func matchKey(v any) string { return fmt.Sprint(v) }

// embed loads the relations of tree into the rows of res, one query per
// relation. HasManyThrough relations sharing an intermediate relation
// load it once, so that the targets of the relation are the very records
// held by the join records.
func (s *Schema) embed(ctx context.Context, res *Result, tree *relTree, o fetchOptions) error {
	if tree.empty() || res.Len() == 0 {
		return nil
	}
	rels := make(map[string]*Relation, len(tree.names))
	throughs := map[string]bool{}
	for _, name := range tree.names {
		rel, err := s.Relation(name)
		if err != nil {
			return err
		}
		rels[name] = rel
		if rel.Kind() == edge.KindHasManyThrough {
			throughs[rel.Through()] = true
		}
	}
	loaded := map[string]bool{}
	for _, name := range tree.names {
		rel := rels[name]
		switch {
		case throughs[name]:
			// Loaded with the relations going through it.
		case rel.Kind() == edge.KindHasManyThrough:
			if !loaded[rel.Through()] {
				if err := s.embedJunction(ctx, res, tree, rels, rel.Through(), o); err != nil {
					return err
				}
				loaded[rel.Through()] = true
			}
			s.collectThrough(res, rel, o)
		default:
			if err := s.embedDirect(ctx, res, rel, tree.nodes[name], o); err != nil {
				return err
			}
		}
	}
	return nil
}

// embedJunction loads the intermediate relation through with the using
// relation of every HasManyThrough relation of tree going through it.
func (s *Schema) embedJunction(ctx context.Context, res *Result, tree *relTree, rels map[string]*Relation, through string, o fetchOptions) error {
	rel, err := s.Relation(through)
	if err != nil {
		return err
	}
	node := &relNode{children: newTree()}
	if n, ok := tree.nodes[through]; ok {
		node = n.clone()
	}
	for _, name := range tree.names {
		r := rels[name]
		if r.Kind() != edge.KindHasManyThrough || r.Through() != through {
			continue
		}
		n := tree.nodes[name]
		u := node.children.add(r.Using())
		u.conds = append(u.conds, n.conds...)
		u.handlers = append(u.handlers, n.handlers...)
		u.children.merge(n.children)
	}
	return s.embedDirect(ctx, res, rel, node, o)
}

// collectThrough sets rel on every row to the targets held by its loaded
// join records.
func (s *Schema) collectThrough(res *Result, rel *Relation, o fetchOptions) {
	for _, e := range res.entries() {
		var targets []entry
		switch joins := e.get(rel.Through()).(type) {
		case *Collection:
			for _, j := range joins.items {
				if t, ok := j.Get(rel.Using()).(Record); ok {
					targets = append(targets, entry{rec: t})
				}
			}
		case []map[string]any:
			for _, j := range joins {
				if t, ok := j[rel.Using()].(map[string]any); ok {
					targets = append(targets, entry{row: t})
				}
			}
		}
		e.set(rel.Name(), many(o.mode, rel.To(), targets))
	}
}

// embedDirect loads a BelongsTo, HasOne or HasMany relation.
func (s *Schema) embedDirect(ctx context.Context, res *Result, rel *Relation, node *relNode, o fetchOptions) error {
	fromKey, toKey := rel.Keys()
	es := res.entries()
	var keys []any
	seen := map[string]bool{}
	for _, e := range es {
		v := e.get(fromKey)
		if v == nil || seen[matchKey(v)] {
			continue
		}
		seen[matchKey(v)] = true
		keys = append(keys, v)
	}
	index := map[string][]entry{}
	if len(keys) > 0 {
		q, err := rel.To().Query()
		if err != nil {
			return err
		}
		q.Where(sql.In(toKey, keys...))
		if node != nil {
			for _, c := range node.conds {
				q.Where(c)
			}
			for _, h := range node.handlers {
				h(q)
			}
			if !node.children.empty() {
				q.embed = node.children.clone()
			}
		}
		related, err := q.Get(ctx, Return(o.mode))
		if err != nil {
			return err
		}
		for _, r := range related.entries() {
			k := matchKey(r.get(toKey))
			index[k] = append(index[k], r)
		}
	}
	for _, e := range es {
		var matches []entry
		if v := e.get(fromKey); v != nil {
			matches = index[matchKey(v)]
		}
		if rel.Many() {
			e.set(rel.Name(), many(o.mode, rel.To(), matches))
		} else {
			e.set(rel.Name(), one(matches))
		}
	}
	return nil
}
