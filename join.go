package sqlorm

import (
	"github.com/syssam/sqlorm/dialect/sql"
	"github.com/syssam/sqlorm/schema/edge"
)

// joiner adds the LEFT JOIN clauses of a relation tree to a statement,
// binding one alias per relation path.
type joiner struct {
	sel     *sql.Selector
	aliases *aliases
}

// plan joins the relations of tree declared on s, whose rows are aliased
// as from and reached through basePath.
func (j *joiner) plan(s *Schema, tree *relTree, basePath, from string) error {
	if tree.empty() {
		return nil
	}
	for _, name := range tree.names {
		rel, err := s.Relation(name)
		if err != nil {
			return err
		}
		path := joinPath(basePath, name)
		var to string
		if rel.Kind() == edge.KindHasManyThrough {
			through, err := s.Relation(rel.Through())
			if err != nil {
				return err
			}
			via := j.join(joinPath(basePath, rel.Through()), through, from)
			using, err := through.To().Relation(rel.Using())
			if err != nil {
				return err
			}
			to = j.join(path, using, via)
		} else {
			to = j.join(path, rel, from)
		}
		if err := j.plan(rel.To(), tree.nodes[name].children, path, to); err != nil {
			return err
		}
	}
	return nil
}

// join adds one LEFT JOIN for rel from the from alias. A path joined
// before is not joined again.
func (j *joiner) join(path string, rel *Relation, from string) string {
	if alias, ok := j.aliases.paths[path]; ok {
		return alias
	}
	to := j.aliases.bind(path, rel.To())
	fromKey, toKey := rel.Keys()
	j.sel.LeftJoin(rel.To().Source(), to, sql.ColumnsEQ(from+"."+fromKey, to+"."+toKey))
	return to
}
