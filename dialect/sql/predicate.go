package sql

import (
	"reflect"
	"sort"
	"strings"
)

// Expr is a SQL expression tree node: a condition, a column reference or a
// raw fragment.
type Expr interface {
	// Render writes the expression into b.
	Render(b *Builder)
	// Prefix returns a copy of the expression where unqualified column
	// names are qualified with alias.
	Prefix(alias string) Expr
}

// qualify prefixes name with alias unless it is already qualified.
func qualify(alias, name string) string {
	if alias == "" || strings.Contains(name, ".") || !isValidIdentifier(name) {
		return name
	}
	return alias + "." + name
}

// Qualify prefixes a column name with alias unless it is already
// qualified or is not a plain identifier.
func Qualify(alias, name string) string { return qualify(alias, name) }

// Prefix qualifies the columns of e with alias. A nil expression stays nil.
func Prefix(e Expr, alias string) Expr {
	if e == nil {
		return nil
	}
	return e.Prefix(alias)
}

// Conditions is a column to value mapping. Entries are rendered in key
// order and joined with AND. A nil value checks for NULL, a slice expands
// to IN and an Expr value is compared as-is.
type Conditions map[string]any

// Render implements Expr.
func (c Conditions) Render(b *Builder) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]Expr, 0, len(keys))
	for _, k := range keys {
		items = append(items, condition(k, c[k]))
	}
	And(items...).Render(b)
}

// Prefix implements Expr.
func (c Conditions) Prefix(alias string) Expr {
	p := make(Conditions, len(c))
	for k, v := range c {
		p[qualify(alias, k)] = v
	}
	return p
}

func condition(col string, v any) Expr {
	if v == nil {
		return IsNull(col)
	}
	if _, ok := v.(Expr); ok {
		return EQ(col, v)
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		vs := make([]any, rv.Len())
		for i := range vs {
			vs[i] = rv.Index(i).Interface()
		}
		return In(col, vs...)
	}
	return EQ(col, v)
}

type column string

// Column returns a reference to a possibly qualified column.
func Column(name string) Expr { return column(name) }

func (c column) Render(b *Builder)         { b.Ident(string(c)) }
func (c column) Prefix(alias string) Expr { return column(qualify(alias, string(c))) }

type raw struct{ s string }

// Raw returns a SQL fragment rendered verbatim.
func Raw(s string) Expr { return raw{s} }

func (r raw) Render(b *Builder)   { b.WriteString(r.s) }
func (r raw) Prefix(string) Expr { return r }

type alias struct {
	e    Expr
	name string
}

// As renames an expression in a field list.
func As(e Expr, name string) Expr { return alias{e, name} }

func (a alias) Render(b *Builder) {
	a.e.Render(b)
	b.WriteString(" AS ")
	b.Ident(a.name)
}

func (a alias) Prefix(p string) Expr { return alias{a.e.Prefix(p), a.name} }

type compare struct {
	op  string
	col string
	v   any
}

func (c compare) Render(b *Builder) {
	b.Ident(c.col)
	b.WriteString(" " + c.op + " ")
	b.Value(c.col, c.v)
}

func (c compare) Prefix(alias string) Expr {
	if e, ok := c.v.(Expr); ok {
		c.v = e.Prefix(alias)
	}
	c.col = qualify(alias, c.col)
	return c
}

// EQ returns a "col = v" predicate.
func EQ(col string, v any) Expr { return compare{"=", col, v} }

// NEQ returns a "col <> v" predicate.
func NEQ(col string, v any) Expr { return compare{"<>", col, v} }

// GT returns a "col > v" predicate.
func GT(col string, v any) Expr { return compare{">", col, v} }

// GTE returns a "col >= v" predicate.
func GTE(col string, v any) Expr { return compare{">=", col, v} }

// LT returns a "col < v" predicate.
func LT(col string, v any) Expr { return compare{"<", col, v} }

// LTE returns a "col <= v" predicate.
func LTE(col string, v any) Expr { return compare{"<=", col, v} }

// Like returns a "col LIKE pattern" predicate.
func Like(col, pattern string) Expr { return compare{"LIKE", col, pattern} }

// Contains returns a predicate matching columns containing sub.
func Contains(col, sub string) Expr { return Like(col, "%"+sub+"%") }

// HasPrefix returns a predicate matching columns starting with prefix.
func HasPrefix(col, prefix string) Expr { return Like(col, prefix+"%") }

// ColumnsEQ returns a "a = b" predicate between two columns.
func ColumnsEQ(a, b string) Expr { return compare{"=", a, column(b)} }

type in struct {
	col string
	vs  []any
	not bool
}

func (p in) Render(b *Builder) {
	if len(p.vs) == 0 {
		if p.not {
			b.WriteString("1 = 1")
		} else {
			b.WriteString("1 = 0")
		}
		return
	}
	b.Ident(p.col)
	if p.not {
		b.WriteString(" NOT")
	}
	b.WriteString(" IN (")
	for i, v := range p.vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Value(p.col, v)
	}
	b.WriteString(")")
}

func (p in) Prefix(alias string) Expr {
	p.col = qualify(alias, p.col)
	return p
}

// In returns a "col IN (...)" predicate. An empty list never matches.
func In(col string, vs ...any) Expr { return in{col: col, vs: vs} }

// NotIn returns a "col NOT IN (...)" predicate.
func NotIn(col string, vs ...any) Expr { return in{col: col, vs: vs, not: true} }

type null struct {
	col string
	not bool
}

func (p null) Render(b *Builder) {
	b.Ident(p.col)
	if p.not {
		b.WriteString(" IS NOT NULL")
	} else {
		b.WriteString(" IS NULL")
	}
}

func (p null) Prefix(alias string) Expr {
	p.col = qualify(alias, p.col)
	return p
}

// IsNull returns a "col IS NULL" predicate.
func IsNull(col string) Expr { return null{col: col} }

// NotNull returns a "col IS NOT NULL" predicate.
func NotNull(col string) Expr { return null{col: col, not: true} }

type logic struct {
	op    string
	items []Expr
}

func (l logic) Render(b *Builder) {
	items := make([]Expr, 0, len(l.items))
	for _, e := range l.items {
		if e != nil {
			items = append(items, e)
		}
	}
	for i, e := range items {
		if i > 0 {
			b.WriteString(" " + l.op + " ")
		}
		if len(items) > 1 && isCompound(e) {
			b.WriteString("(")
			e.Render(b)
			b.WriteString(")")
			continue
		}
		e.Render(b)
	}
}

func (l logic) Prefix(alias string) Expr {
	items := make([]Expr, len(l.items))
	for i, e := range l.items {
		items[i] = Prefix(e, alias)
	}
	return logic{l.op, items}
}

func isCompound(e Expr) bool {
	switch e := e.(type) {
	case logic:
		return len(e.items) > 1
	case Conditions:
		return len(e) > 1
	}
	return false
}

// And joins predicates with AND.
func And(items ...Expr) Expr { return logic{"AND", items} }

// Or joins predicates with OR.
func Or(items ...Expr) Expr { return logic{"OR", items} }

type not struct{ e Expr }

func (n not) Render(b *Builder) {
	b.WriteString("NOT (")
	n.e.Render(b)
	b.WriteString(")")
}

func (n not) Prefix(alias string) Expr { return not{n.e.Prefix(alias)} }

// Not negates a predicate.
func Not(e Expr) Expr { return not{e} }

// Field is a typed column reference.
//
//	var Name = sql.Field[string]("name")
//	q.Where(Name.EQ("Foo Gallery"))
type Field[T any] string

// Name returns the column name.
func (f Field[T]) Name() string { return string(f) }

// EQ returns a predicate that checks if the field equals the given value.
func (f Field[T]) EQ(v T) Expr { return EQ(string(f), v) }

// NEQ returns a predicate that checks if the field does not equal the given value.
func (f Field[T]) NEQ(v T) Expr { return NEQ(string(f), v) }

// GT returns a predicate that checks if the field is greater than the given value.
func (f Field[T]) GT(v T) Expr { return GT(string(f), v) }

// LT returns a predicate that checks if the field is less than the given value.
func (f Field[T]) LT(v T) Expr { return LT(string(f), v) }

// In returns a predicate that checks if the field value is in the given list.
func (f Field[T]) In(vs ...T) Expr {
	args := make([]any, len(vs))
	for i, v := range vs {
		args[i] = v
	}
	return In(string(f), args...)
}

// IsNull returns a predicate that checks if the field is NULL.
func (f Field[T]) IsNull() Expr { return IsNull(string(f)) }
