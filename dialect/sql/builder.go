package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/sqlorm/dialect"
)

// TypeResolver returns the column type of a possibly qualified column name,
// or "" when the column is unknown.
type TypeResolver func(column string) string

// Builder is the low-level SQL string builder used by every statement.
// Errors raised while rendering values are accumulated and returned by Err.
type Builder struct {
	sb      strings.Builder
	dialect *Dialect
	types   TypeResolver
	errs    []error
}

// NewBuilder returns a Builder for d. types may be nil.
func NewBuilder(d *Dialect, types TypeResolver) *Builder {
	return &Builder{dialect: d, types: types}
}

// WriteString appends s verbatim.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Ident appends a quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	b.sb.WriteString(b.dialect.Ident(name))
	return b
}

// Value appends v as a literal of the column type of col. Expressions are
// rendered as-is.
func (b *Builder) Value(col string, v any) *Builder {
	if e, ok := v.(Expr); ok {
		e.Render(b)
		return b
	}
	var typ string
	if b.types != nil {
		typ = b.types(col)
	}
	s, err := b.dialect.Value(typ, v)
	if err != nil {
		b.AddError(fmt.Errorf("dialect/sql: column %q: %w", col, err))
		return b
	}
	b.sb.WriteString(s)
	return b
}

// AddError records a rendering error.
func (b *Builder) AddError(err error) { b.errs = append(b.errs, err) }

// Err returns the accumulated rendering errors.
func (b *Builder) Err() error { return errors.Join(b.errs...) }

// String returns the rendered SQL.
func (b *Builder) String() string { return b.sb.String() }

// field renders one entry of a field list.
func (b *Builder) field(f any) {
	switch f := f.(type) {
	case Expr:
		f.Render(b)
	case string:
		if f == "*" || strings.HasSuffix(f, ".*") || isValidIdentifier(f) {
			b.Ident(f)
			return
		}
		b.WriteString(f)
	default:
		b.AddError(fmt.Errorf("dialect/sql: invalid field type %T", f))
	}
}

// Join kinds.
const (
	LeftJoin  = "LEFT JOIN"
	InnerJoin = "JOIN"
)

// Join is a JOIN clause of a Selector.
type Join struct {
	Kind  string
	Table string
	Alias string
	On    Expr
}

// OrderTerm is one ORDER BY entry.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Asc returns an ascending order term.
func Asc(col string) OrderTerm { return OrderTerm{Column: col} }

// Desc returns a descending order term.
func Desc(col string) OrderTerm { return OrderTerm{Column: col, Desc: true} }

// ParseOrder reads "name", "name ASC" or "name DESC" into an OrderTerm.
func ParseOrder(s string) OrderTerm {
	f := strings.Fields(s)
	if len(f) == 2 && strings.EqualFold(f[1], "desc") {
		return Desc(f[0])
	}
	if len(f) >= 1 && (len(f) == 1 || strings.EqualFold(f[1], "asc")) {
		return Asc(f[0])
	}
	return Asc(s)
}

// Selector is a SELECT statement builder.
type Selector struct {
	dialect  *Dialect
	distinct bool
	fields   []any
	from     string
	as       string
	sub      *Selector
	joins    []Join
	where    Expr
	group    []string
	having   Expr
	order    []OrderTerm
	limit    *int
	offset   *int
}

// Select starts a SELECT statement.
func (d *Dialect) Select(fields ...any) *Selector {
	return &Selector{dialect: d, fields: fields}
}

// Dialect returns the dialect of the statement.
func (s *Selector) Dialect() *Dialect { return s.dialect }

// Distinct adds DISTINCT to the statement.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// Fields returns the selected fields.
func (s *Selector) Fields() []any { return s.fields }

// Select appends fields to the selection.
func (s *Selector) Select(fields ...any) *Selector {
	s.fields = append(s.fields, fields...)
	return s
}

// SetFields replaces the selection.
func (s *Selector) SetFields(fields ...any) *Selector {
	s.fields = fields
	return s
}

// From sets the source table and its alias.
func (s *Selector) From(table, as string) *Selector {
	s.from, s.as, s.sub = table, as, nil
	return s
}

// FromSelect uses a sub-query as source.
func (s *Selector) FromSelect(sub *Selector, as string) *Selector {
	s.from, s.as, s.sub = "", as, sub
	return s
}

// Table returns the source table.
func (s *Selector) Table() string { return s.from }

// Join appends a JOIN clause.
func (s *Selector) Join(kind, table, as string, on Expr) *Selector {
	s.joins = append(s.joins, Join{Kind: kind, Table: table, Alias: as, On: on})
	return s
}

// LeftJoin appends a LEFT JOIN clause.
func (s *Selector) LeftJoin(table, as string, on Expr) *Selector {
	return s.Join(LeftJoin, table, as, on)
}

// Joins returns a copy of the JOIN clauses.
func (s *Selector) Joins() []Join { return append([]Join(nil), s.joins...) }

// SetJoins replaces the JOIN clauses.
func (s *Selector) SetJoins(joins []Join) *Selector {
	s.joins = append([]Join(nil), joins...)
	return s
}

// Where ANDs e into the WHERE clause.
func (s *Selector) Where(e Expr) *Selector {
	switch {
	case e == nil:
	case s.where == nil:
		s.where = e
	default:
		s.where = And(s.where, e)
	}
	return s
}

// Predicate returns the WHERE clause.
func (s *Selector) Predicate() Expr { return s.where }

// GroupBy appends GROUP BY columns.
func (s *Selector) GroupBy(cols ...string) *Selector {
	s.group = append(s.group, cols...)
	return s
}

// Groups returns the GROUP BY columns.
func (s *Selector) Groups() []string { return s.group }

// Having ANDs e into the HAVING clause.
func (s *Selector) Having(e Expr) *Selector {
	switch {
	case e == nil:
	case s.having == nil:
		s.having = e
	default:
		s.having = And(s.having, e)
	}
	return s
}

// OrderBy appends ORDER BY terms.
func (s *Selector) OrderBy(terms ...OrderTerm) *Selector {
	s.order = append(s.order, terms...)
	return s
}

// Orders returns the ORDER BY terms.
func (s *Selector) Orders() []OrderTerm { return s.order }

// ClearOrder removes the ORDER BY terms.
func (s *Selector) ClearOrder() *Selector {
	s.order = nil
	return s
}

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// ClearLimit removes the LIMIT and OFFSET clauses.
func (s *Selector) ClearLimit() *Selector {
	s.limit, s.offset = nil, nil
	return s
}

// Clone returns a copy of the statement that can be changed independently.
func (s *Selector) Clone() *Selector {
	c := *s
	c.fields = append([]any(nil), s.fields...)
	c.joins = append([]Join(nil), s.joins...)
	c.group = append([]string(nil), s.group...)
	c.order = append([]OrderTerm(nil), s.order...)
	if s.sub != nil {
		c.sub = s.sub.Clone()
	}
	return &c
}

// SQL renders the statement. types resolves the column types used to
// format literal values.
func (s *Selector) SQL(types TypeResolver) (string, error) {
	b := NewBuilder(s.dialect, types)
	s.render(b)
	if err := b.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// String renders the statement, ignoring rendering errors.
func (s *Selector) String() string {
	b := NewBuilder(s.dialect, nil)
	s.render(b)
	return b.String()
}

func (s *Selector) render(b *Builder) {
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.fields) == 0 {
		b.WriteString("*")
	}
	for i, f := range s.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		b.field(f)
	}
	switch {
	case s.sub != nil:
		b.WriteString(" FROM (")
		s.sub.render(b)
		b.WriteString(") ")
		b.Ident(s.as)
	case s.from != "":
		b.WriteString(" FROM ")
		b.Ident(s.from)
		if s.as != "" && s.as != s.from {
			b.WriteString(" AS ")
			b.Ident(s.as)
		}
	}
	for _, j := range s.joins {
		b.WriteString(" " + j.Kind + " ")
		b.Ident(j.Table)
		if j.Alias != "" && j.Alias != j.Table {
			b.WriteString(" AS ")
			b.Ident(j.Alias)
		}
		if j.On != nil {
			b.WriteString(" ON ")
			j.On.Render(b)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.Render(b)
	}
	if len(s.group) > 0 {
		b.WriteString(" GROUP BY ")
		for i, g := range s.group {
			if i > 0 {
				b.WriteString(", ")
			}
			b.field(g)
		}
	}
	if s.having != nil {
		b.WriteString(" HAVING ")
		s.having.Render(b)
	}
	if len(s.order) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range s.order {
			if i > 0 {
				b.WriteString(", ")
			}
			b.field(o.Column)
			if o.Desc {
				b.WriteString(" DESC")
			} else {
				b.WriteString(" ASC")
			}
		}
	}
	if s.limit != nil {
		b.WriteString(" LIMIT " + strconv.Itoa(*s.limit))
	}
	if s.offset != nil && *s.offset > 0 {
		b.WriteString(" OFFSET " + strconv.Itoa(*s.offset))
	}
}

// InsertBuilder is an INSERT statement builder. Columns keep the order in
// which they were set.
type InsertBuilder struct {
	dialect *Dialect
	table   string
	columns []string
	values  []any
}

// Insert starts an INSERT statement.
func (d *Dialect) Insert(table string) *InsertBuilder {
	return &InsertBuilder{dialect: d, table: table}
}

// Set adds a column value.
func (i *InsertBuilder) Set(col string, v any) *InsertBuilder {
	i.columns = append(i.columns, col)
	i.values = append(i.values, v)
	return i
}

// SQL renders the statement.
func (i *InsertBuilder) SQL(types TypeResolver) (string, error) {
	b := NewBuilder(i.dialect, types)
	b.WriteString("INSERT INTO ").Ident(i.table)
	switch {
	case len(i.columns) > 0:
		b.WriteString(" (")
		for n, c := range i.columns {
			if n > 0 {
				b.WriteString(", ")
			}
			b.Ident(c)
		}
		b.WriteString(") VALUES (")
		for n, v := range i.values {
			if n > 0 {
				b.WriteString(", ")
			}
			b.Value(i.columns[n], v)
		}
		b.WriteString(")")
	case i.dialect.Name() == dialect.MySQL:
		b.WriteString(" () VALUES ()")
	default:
		b.WriteString(" DEFAULT VALUES")
	}
	if err := b.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// UpdateBuilder is an UPDATE statement builder.
type UpdateBuilder struct {
	dialect *Dialect
	table   string
	columns []string
	values  []any
	where   Expr
}

// Update starts an UPDATE statement.
func (d *Dialect) Update(table string) *UpdateBuilder {
	return &UpdateBuilder{dialect: d, table: table}
}

// Set adds a column assignment.
func (u *UpdateBuilder) Set(col string, v any) *UpdateBuilder {
	u.columns = append(u.columns, col)
	u.values = append(u.values, v)
	return u
}

// Empty reports whether the statement has no assignment.
func (u *UpdateBuilder) Empty() bool { return len(u.columns) == 0 }

// Where ANDs e into the WHERE clause.
func (u *UpdateBuilder) Where(e Expr) *UpdateBuilder {
	if u.where == nil {
		u.where = e
	} else if e != nil {
		u.where = And(u.where, e)
	}
	return u
}

// SQL renders the statement.
func (u *UpdateBuilder) SQL(types TypeResolver) (string, error) {
	if u.Empty() {
		return "", fmt.Errorf("dialect/sql: update %q: no columns to set", u.table)
	}
	b := NewBuilder(u.dialect, types)
	b.WriteString("UPDATE ").Ident(u.table).WriteString(" SET ")
	for n, c := range u.columns {
		if n > 0 {
			b.WriteString(", ")
		}
		b.Ident(c).WriteString(" = ").Value(c, u.values[n])
	}
	if u.where != nil {
		b.WriteString(" WHERE ")
		u.where.Render(b)
	}
	if err := b.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DeleteBuilder is a DELETE statement builder.
type DeleteBuilder struct {
	dialect *Dialect
	table   string
	where   Expr
}

// Delete starts a DELETE statement.
func (d *Dialect) Delete(table string) *DeleteBuilder {
	return &DeleteBuilder{dialect: d, table: table}
}

// Where ANDs e into the WHERE clause.
func (d *DeleteBuilder) Where(e Expr) *DeleteBuilder {
	if d.where == nil {
		d.where = e
	} else if e != nil {
		d.where = And(d.where, e)
	}
	return d
}

// SQL renders the statement.
func (d *DeleteBuilder) SQL(types TypeResolver) (string, error) {
	b := NewBuilder(d.dialect, types)
	b.WriteString("DELETE FROM ").Ident(d.table)
	if d.where != nil {
		b.WriteString(" WHERE ")
		d.where.Render(b)
	}
	if err := b.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// ColumnDef describes a column in a CREATE TABLE statement.
type ColumnDef struct {
	Name      string
	Type      string
	Length    int
	Precision int
	Scale     int
	NotNull   bool
	Default   any
	Key       bool
}

// TableBuilder is a CREATE TABLE statement builder.
type TableBuilder struct {
	dialect     *Dialect
	table       string
	ifNotExists bool
	columns     []ColumnDef
}

// CreateTable starts a CREATE TABLE statement.
func (d *Dialect) CreateTable(table string) *TableBuilder {
	return &TableBuilder{dialect: d, table: table}
}

// IfNotExists adds IF NOT EXISTS to the statement.
func (t *TableBuilder) IfNotExists(v bool) *TableBuilder {
	t.ifNotExists = v
	return t
}

// Columns appends column definitions.
func (t *TableBuilder) Columns(cols ...ColumnDef) *TableBuilder {
	t.columns = append(t.columns, cols...)
	return t
}

// SQL renders the statement.
func (t *TableBuilder) SQL() (string, error) {
	if len(t.columns) == 0 {
		return "", fmt.Errorf("dialect/sql: create table %q: no columns", t.table)
	}
	b := NewBuilder(t.dialect, func(col string) string {
		for _, c := range t.columns {
			if c.Name == col {
				return c.Type
			}
		}
		return ""
	})
	b.WriteString("CREATE TABLE ")
	if t.ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.Ident(t.table).WriteString(" (")
	for n, c := range t.columns {
		if n > 0 {
			b.WriteString(", ")
		}
		b.Ident(c.Name).WriteString(" " + t.dialect.ColumnType(c))
		if c.Type == "serial" {
			continue
		}
		if c.Key {
			b.WriteString(" PRIMARY KEY")
		} else if c.NotNull {
			b.WriteString(" NOT NULL")
		}
		if c.Default != nil {
			b.WriteString(" DEFAULT ").Value(c.Name, c.Default)
		}
	}
	b.WriteString(")")
	if err := b.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

// DropBuilder is a DROP TABLE statement builder.
type DropBuilder struct {
	dialect  *Dialect
	table    string
	ifExists bool
	cascade  bool
	restrict bool
}

// DropTable starts a DROP TABLE statement.
func (d *Dialect) DropTable(table string) *DropBuilder {
	return &DropBuilder{dialect: d, table: table}
}

// IfExists adds IF EXISTS to the statement.
func (t *DropBuilder) IfExists(v bool) *DropBuilder {
	t.ifExists = v
	return t
}

// Cascade adds CASCADE to the statement.
func (t *DropBuilder) Cascade(v bool) *DropBuilder {
	t.cascade = v
	return t
}

// Restrict adds RESTRICT to the statement.
func (t *DropBuilder) Restrict(v bool) *DropBuilder {
	t.restrict = v
	return t
}

// String renders the statement.
func (t *DropBuilder) String() string {
	b := NewBuilder(t.dialect, nil)
	b.WriteString("DROP TABLE ")
	if t.ifExists {
		b.WriteString("IF EXISTS ")
	}
	b.Ident(t.table)
	switch {
	case t.cascade:
		b.WriteString(" CASCADE")
	case t.restrict:
		b.WriteString(" RESTRICT")
	}
	return b.String()
}

// IndexBuilder is a CREATE INDEX statement builder.
type IndexBuilder struct {
	dialect     *Dialect
	name        string
	table       string
	columns     []string
	unique      bool
	ifNotExists bool
}

// CreateIndex starts a CREATE INDEX statement.
func (d *Dialect) CreateIndex(name string) *IndexBuilder {
	return &IndexBuilder{dialect: d, name: name}
}

// Table sets the indexed table.
func (i *IndexBuilder) Table(table string) *IndexBuilder {
	i.table = table
	return i
}

// Columns appends indexed columns.
func (i *IndexBuilder) Columns(cols ...string) *IndexBuilder {
	i.columns = append(i.columns, cols...)
	return i
}

// Unique makes the index unique.
func (i *IndexBuilder) Unique() *IndexBuilder {
	i.unique = true
	return i
}

// IfNotExists adds IF NOT EXISTS to the statement. MySQL has no such
// clause and ignores it.
func (i *IndexBuilder) IfNotExists(v bool) *IndexBuilder {
	i.ifNotExists = v
	return i
}

// SQL renders the statement.
func (i *IndexBuilder) SQL() (string, error) {
	if i.table == "" || len(i.columns) == 0 {
		return "", fmt.Errorf("dialect/sql: create index %q: missing table or columns", i.name)
	}
	b := NewBuilder(i.dialect, nil)
	b.WriteString("CREATE ")
	if i.unique {
		b.WriteString("UNIQUE ")
	}
	b.WriteString("INDEX ")
	if i.ifNotExists && i.dialect.Name() != dialect.MySQL {
		b.WriteString("IF NOT EXISTS ")
	}
	b.Ident(i.name).WriteString(" ON ").Ident(i.table).WriteString(" (")
	for n, c := range i.columns {
		if n > 0 {
			b.WriteString(", ")
		}
		b.Ident(c)
	}
	b.WriteString(")")
	return b.String(), nil
}
