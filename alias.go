package sqlorm

import (
	"maps"
	"strconv"
	"strings"
)

// aliases maps the relation paths of a query to table aliases. A path
// keeps its alias for the lifetime of the query.
type aliases struct {
	paths   map[string]string
	counter map[string]int
	schemas map[string]*Schema
}

func newAliases() *aliases {
	return &aliases{
		paths:   map[string]string{},
		counter: map[string]int{},
		schemas: map[string]*Schema{},
	}
}

// bind returns the alias of path, minting one for s if the path is not
// bound yet. The first use of a table is aliased to the table name, the
// next ones to <table>__0, <table>__1, ...
func (a *aliases) bind(path string, s *Schema) string {
	if alias, ok := a.paths[path]; ok {
		return alias
	}
	base := s.Source()
	alias := base
	if n, ok := a.counter[base]; ok {
		alias = base + "__" + strconv.Itoa(n)
		a.counter[base] = n + 1
	} else {
		a.counter[base] = 0
	}
	a.paths[path] = alias
	a.schemas[alias] = s
	return alias
}

// lookup returns the alias bound to path.
func (a *aliases) lookup(path string) (string, error) {
	alias, ok := a.paths[path]
	if !ok {
		return "", &UnboundAliasError{Path: path}
	}
	return alias, nil
}

func (a *aliases) clone() *aliases {
	return &aliases{
		paths:   maps.Clone(a.paths),
		counter: maps.Clone(a.counter),
		schemas: maps.Clone(a.schemas),
	}
}

// types resolves the column types of qualified columns through the schema
// bound to their alias. Unqualified columns belong to root.
func (a *aliases) types(root *Schema) func(string) string {
	return func(col string) string {
		i := strings.LastIndexByte(col, '.')
		if i < 0 {
			return root.Type(col)
		}
		if s, ok := a.schemas[col[:i]]; ok {
			return s.Type(col[i+1:])
		}
		return ""
	}
}

// joinPath joins a base relation path and a relation name.
func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}
