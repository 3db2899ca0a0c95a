package sqlorm

import (
	"fmt"

	"github.com/syssam/sqlorm/schema/edge"
)

// Relation is a relation of a schema resolved against the schemas
// registered on its database.
type Relation struct {
	name    string
	kind    edge.Kind
	from    *Schema
	to      *Schema
	fromKey string
	toKey   string
	through string
	using   string
}

// Relation resolves the named relation. HasManyThrough relations are
// resolved through their intermediate relation, so their target is the
// target of the using relation.
func (s *Schema) Relation(name string) (*Relation, error) {
	d := s.edge(name)
	if d == nil {
		return nil, &UndefinedRelationError{Source: s.source, Name: name}
	}
	if s.db == nil {
		return nil, ErrMissingConnection
	}
	if d.Kind == edge.KindHasManyThrough {
		through, err := s.Relation(d.Through)
		if err != nil {
			return nil, err
		}
		if through.kind != edge.KindHasMany {
			return nil, fmt.Errorf("sqlorm: relation %q of %q goes through %s relation %q, expected hasMany",
				name, s.source, through.kind, d.Through)
		}
		using, err := through.to.Relation(d.Using)
		if err != nil {
			return nil, err
		}
		return &Relation{
			name:    name,
			kind:    edge.KindHasManyThrough,
			from:    s,
			to:      using.to,
			through: d.Through,
			using:   d.Using,
		}, nil
	}
	target, err := s.db.Schema(d.Target)
	if err != nil {
		return nil, err
	}
	from, to := edge.DefaultKeys(d, s.source, s.Key(), target.Key())
	return &Relation{
		name:    name,
		kind:    d.Kind,
		from:    s,
		to:      target,
		fromKey: from,
		toKey:   to,
	}, nil
}

// Name returns the relation name.
func (r *Relation) Name() string { return r.name }

// Kind returns the relation kind.
func (r *Relation) Kind() edge.Kind { return r.kind }

// From returns the declaring schema.
func (r *Relation) From() *Schema { return r.from }

// To returns the related schema.
func (r *Relation) To() *Schema { return r.to }

// Keys returns the key column of the declaring schema and the key column
// of the related schema. Both are empty for HasManyThrough relations.
func (r *Relation) Keys() (from, to string) { return r.fromKey, r.toKey }

// Through returns the intermediate relation of a HasManyThrough relation.
func (r *Relation) Through() string { return r.through }

// Using returns the relation of the intermediate schema leading to the
// target of a HasManyThrough relation.
func (r *Relation) Using() string { return r.using }

// Many reports whether the relation holds a collection.
func (r *Relation) Many() bool { return r.kind.Many() }
