package sqlorm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/syssam/sqlorm/convert"
	"github.com/syssam/sqlorm/dialect/sql"
)

// ReturnMode selects the shape of fetched rows.
type ReturnMode string

// Return modes.
const (
	// ReturnEntity hydrates rows into records of the query model.
	ReturnEntity ReturnMode = "entity"
	// ReturnArray returns rows as plain maps.
	ReturnArray ReturnMode = "array"
	// ReturnObject returns rows as plain maps.
	ReturnObject ReturnMode = "object"
)

// FetchOption configures a fetch.
type FetchOption func(*fetchOptions)

type fetchOptions struct {
	mode ReturnMode
}

// Return sets the return mode of a fetch. Defaults to ReturnEntity.
func Return(mode ReturnMode) FetchOption {
	return func(o *fetchOptions) { o.mode = mode }
}

func newFetchOptions(opts []FetchOption) fetchOptions {
	o := fetchOptions{mode: ReturnEntity}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// QueryOption configures a Query.
type QueryOption func(*Query)

// WithModel binds the record model used by ReturnEntity fetches.
func WithModel(m Model) QueryOption {
	return func(q *Query) { q.model = m }
}

// Result holds the rows of a fetch, as records or as plain maps depending
// on the return mode.
type Result struct {
	mode       ReturnMode
	collection *Collection
	rows       []map[string]any
}

// Mode returns the return mode of the fetch.
func (r *Result) Mode() ReturnMode { return r.mode }

// Collection returns the fetched records, or nil for plain rows.
func (r *Result) Collection() *Collection { return r.collection }

// Rows returns the fetched rows as plain maps.
func (r *Result) Rows() []map[string]any {
	if r.collection != nil {
		return r.collection.Data()
	}
	return r.rows
}

// Len returns the number of fetched rows.
func (r *Result) Len() int {
	if r.collection != nil {
		return r.collection.Len()
	}
	return len(r.rows)
}

type hasCond struct {
	path string
	cond sql.Expr
}

// Query is a SELECT query on a schema. Joins required by Has conditions
// are planned when the query is rendered, on a copy of the statement, so
// that a query can be rendered and executed many times.
type Query struct {
	schema  *Schema
	db      *Database
	model   Model
	sel     *sql.Selector
	aliases *aliases
	has     []hasCond
	embed   *relTree
	page    int
	limit   int
	offset  *int
	ttl     time.Duration
	err     error
}

// NewQuery returns a query on s. No model is bound unless WithModel is
// given.
func NewQuery(s *Schema, opts ...QueryOption) (*Query, error) {
	if s == nil {
		return nil, &MissingSchemaError{}
	}
	if s.db == nil {
		return nil, ErrMissingConnection
	}
	q := &Query{
		schema:  s,
		db:      s.db,
		aliases: newAliases(),
		embed:   newTree(),
		page:    1,
	}
	q.sel = s.db.dialect.Select().From(s.Source(), q.aliases.bind("", s))
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Schema returns the schema of the query.
func (q *Query) Schema() *Schema { return q.schema }

// Statement returns the underlying SELECT statement.
func (q *Query) Statement() *sql.Selector { return q.sel }

// Model returns the bound record model, or nil.
func (q *Query) Model() Model { return q.model }

func (q *Query) root() string { return q.aliases.paths[""] }

func (q *Query) fail(err error) {
	if q.err == nil {
		q.err = err
	}
}

// Alias returns the alias bound to a relation path. The root path is the
// default.
func (q *Query) Alias(path ...string) (string, error) {
	var p string
	if len(path) > 0 {
		p = path[0]
	}
	return q.aliases.lookup(p)
}

// BindAlias returns the alias of a relation path, binding a new alias of
// the source of s if the path is not bound yet.
func (q *Query) BindAlias(path string, s *Schema) string {
	return q.aliases.bind(path, s)
}

// Fields adds fields to the SELECT clause. Declared column names are
// qualified with the root alias; other strings and expressions are kept.
func (q *Query) Fields(fields ...any) *Query {
	for _, f := range fields {
		if name, ok := f.(string); ok && (q.schema.Has(name) || name == q.schema.Key()) {
			f = q.root() + "." + name
		}
		q.sel.Select(f)
	}
	return q
}

// Where adds a condition on the root alias.
func (q *Query) Where(cond sql.Expr) *Query {
	return q.WhereOn(q.root(), cond)
}

// WhereOn adds a condition whose unqualified columns belong to alias.
func (q *Query) WhereOn(alias string, cond sql.Expr) *Query {
	q.sel.Where(sql.Prefix(cond, alias))
	return q
}

// Conditions is an alias of Where.
func (q *Query) Conditions(cond sql.Expr) *Query { return q.Where(cond) }

// Group adds GROUP BY columns.
func (q *Query) Group(fields ...string) *Query {
	for _, f := range fields {
		q.sel.GroupBy(sql.Qualify(q.root(), f))
	}
	return q
}

// Having adds a HAVING condition on the root alias.
func (q *Query) Having(cond sql.Expr) *Query {
	q.sel.Having(sql.Prefix(cond, q.root()))
	return q
}

// Order adds ORDER BY terms. A term is a column name optionally followed
// by ASC or DESC, a sql.OrderTerm, a list of those or a map of column
// names to directions.
func (q *Query) Order(terms ...any) *Query {
	for _, t := range terms {
		switch t := t.(type) {
		case string:
			q.order(sql.ParseOrder(t))
		case sql.OrderTerm:
			q.order(t)
		case []string:
			for _, s := range t {
				q.order(sql.ParseOrder(s))
			}
		case map[string]string:
			cols := make([]string, 0, len(t))
			for c := range t {
				cols = append(cols, c)
			}
			sort.Strings(cols)
			for _, c := range cols {
				if strings.EqualFold(t[c], "desc") {
					q.order(sql.Desc(c))
				} else {
					q.order(sql.Asc(c))
				}
			}
		default:
			q.fail(&InvalidOptionError{Option: "order", Value: t})
		}
	}
	return q
}

func (q *Query) order(t sql.OrderTerm) {
	t.Column = sql.Qualify(q.root(), t.Column)
	q.sel.OrderBy(t)
}

// Has restricts the query to rows having related rows on path matching
// conds. The relations of path are joined.
func (q *Query) Has(path string, conds ...sql.Expr) *Query {
	var cond sql.Expr
	switch len(conds) {
	case 0:
	case 1:
		cond = conds[0]
	default:
		cond = sql.And(conds...)
	}
	q.has = append(q.has, hasCond{path: path, cond: cond})
	return q
}

// Embed eager loads the relations of the given dotted paths after the
// fetch. Embedding does not join.
func (q *Query) Embed(paths ...string) *Query {
	for _, p := range paths {
		q.embed.add(p)
	}
	return q
}

// EmbedWhere eager loads path, filtering the related rows with conds.
func (q *Query) EmbedWhere(path string, conds ...sql.Expr) *Query {
	if n := q.embed.add(path); n != nil {
		n.conds = append(n.conds, conds...)
	}
	return q
}

// EmbedFunc eager loads path, customizing the query of the related rows
// with fn.
func (q *Query) EmbedFunc(path string, fn func(*Query)) *Query {
	if n := q.embed.add(path); n != nil {
		n.handlers = append(n.handlers, fn)
	}
	return q
}

// Page sets the page fetched when a limit is set. Pages start at 1.
func (q *Query) Page(n int) *Query {
	if n < 1 {
		q.fail(&InvalidOptionError{Option: "page", Value: n})
		return q
	}
	q.page = n
	return q
}

// Offset sets the number of skipped rows. It wins over Page.
func (q *Query) Offset(n int) *Query {
	if n < 0 {
		q.fail(&InvalidOptionError{Option: "offset", Value: n})
		return q
	}
	q.offset = &n
	return q
}

// Limit sets the maximum number of rows. Zero disables the limit.
func (q *Query) Limit(n int) *Query {
	if n < 0 {
		q.fail(&InvalidOptionError{Option: "limit", Value: n})
		return q
	}
	q.limit = n
	return q
}

// Handler applies fn to the query.
func (q *Query) Handler(fn func(*Query)) *Query {
	fn(q)
	return q
}

// Cached caches the rows fetched by the query for ttl in the database
// cache. It has no effect without a cache.
func (q *Query) Cached(ttl time.Duration) *Query {
	q.ttl = ttl
	return q
}

// prepare returns a copy of the statement with the joins and conditions
// of the Has constraints applied.
func (q *Query) prepare() (*sql.Selector, *aliases, error) {
	if q.err != nil {
		return nil, nil, q.err
	}
	sel, al := q.sel.Clone(), q.aliases.clone()
	if len(q.has) == 0 {
		return sel, al, nil
	}
	tree := newTree()
	for _, h := range q.has {
		tree.add(h.path)
	}
	j := &joiner{sel: sel, aliases: al}
	if err := j.plan(q.schema, tree, "", q.root()); err != nil {
		return nil, nil, err
	}
	for _, h := range q.has {
		if h.cond == nil {
			continue
		}
		alias, err := al.lookup(h.path)
		if err != nil {
			return nil, nil, err
		}
		sel.Where(sql.Prefix(h.cond, alias))
	}
	return sel, al, nil
}

// statement returns the statement run by Get.
func (q *Query) statement() (*sql.Selector, *aliases, error) {
	sel, al, err := q.prepare()
	if err != nil {
		return nil, nil, err
	}
	root := q.root()
	if len(sel.Fields()) == 0 {
		sel.SetFields(root + ".*")
	}
	if len(sel.Joins()) > 0 && len(sel.Groups()) == 0 {
		sel.GroupBy(root + "." + q.schema.Key())
	}
	if q.limit > 0 {
		offset := (q.page - 1) * q.limit
		if q.offset != nil {
			offset = *q.offset
		}
		sel.Limit(q.limit).Offset(offset)
	}
	return sel, al, nil
}

// SQL renders the statement run by Get. The query is left unchanged.
func (q *Query) SQL() (string, error) {
	sel, al, err := q.statement()
	if err != nil {
		return "", err
	}
	return sel.SQL(al.types(q.schema))
}

// String renders the statement run by Get, or "" if it cannot be rendered.
func (q *Query) String() string {
	s, _ := q.SQL()
	return s
}

// CountSQL renders the statement run by Count.
func (q *Query) CountSQL() (string, error) {
	sel, al, err := q.prepare()
	if err != nil {
		return "", err
	}
	key := q.db.dialect.Ident(q.root() + "." + q.schema.Key())
	sel.SetFields(sql.As(sql.Raw("COUNT(DISTINCT "+key+")"), "count")).ClearOrder().ClearLimit()
	return q.db.dialect.Select(sql.Raw("SUM(count)")).FromSelect(sel, "x").SQL(al.types(q.schema))
}

// Count returns the number of distinct root rows matched by the query,
// ignoring pagination.
func (q *Query) Count(ctx context.Context) (int64, error) {
	query, err := q.CountSQL()
	if err != nil {
		return 0, err
	}
	rows, err := q.fetch(ctx, "count", query)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	var v any
	for _, v = range rows[0] {
		break
	}
	n, err := q.db.Convert(convert.ToRuntime, convert.TypeInteger, v)
	if err != nil {
		return 0, NewQueryError(q.schema.Source(), "count", err)
	}
	switch n := n.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	default:
		return 0, NewQueryError(q.schema.Source(), "count", fmt.Errorf("unexpected count value %v (%T)", n, n))
	}
}

func (q *Query) fetch(ctx context.Context, op, query string) ([]map[string]any, error) {
	rows, err := q.db.fetch(ctx, q.schema.Source(), query, q.ttl)
	if err != nil {
		return nil, NewQueryError(q.schema.Source(), op, err)
	}
	return rows, nil
}

// Get runs the query. In ReturnEntity mode rows are cast through the
// schema and hydrated into records of the bound model; a limited fetch
// marks the collection as existing and stores the total count in its
// metadata. The embedded relations are loaded last.
func (q *Query) Get(ctx context.Context, opts ...FetchOption) (*Result, error) {
	o := newFetchOptions(opts)
	switch o.mode {
	case ReturnEntity, ReturnArray, ReturnObject:
	default:
		return nil, &InvalidReturnModeError{Mode: o.mode}
	}
	if o.mode == ReturnEntity && q.model == nil {
		return nil, &MissingModelError{Source: q.schema.Source()}
	}
	query, err := q.SQL()
	if err != nil {
		return nil, err
	}
	rows, err := q.fetch(ctx, "select", query)
	if err != nil {
		return nil, err
	}
	res := &Result{mode: o.mode}
	if o.mode != ReturnEntity {
		if rows == nil {
			rows = []map[string]any{}
		}
		res.rows = rows
	} else {
		coll := NewCollection(q.schema)
		if q.limit > 0 {
			n, err := q.Count(ctx)
			if err != nil {
				return nil, err
			}
			coll.exists = true
			coll.meta["count"] = n
		}
		key := q.schema.Key()
		for _, row := range rows {
			data, err := q.schema.castRow(row)
			if err != nil {
				return nil, NewQueryError(q.schema.Source(), "cast", err)
			}
			_, exists := row[key]
			coll.Push(q.model(q.schema, data, exists))
		}
		res.collection = coll
	}
	if err := q.schema.embed(ctx, res, q.embed, o); err != nil {
		return nil, err
	}
	return res, nil
}

// All runs the query and returns the records.
func (q *Query) All(ctx context.Context) (*Collection, error) {
	res, err := q.Get(ctx)
	if err != nil {
		return nil, err
	}
	return res.Collection(), nil
}

// Rows runs the query and returns plain rows.
func (q *Query) Rows(ctx context.Context) ([]map[string]any, error) {
	res, err := q.Get(ctx, Return(ReturnArray))
	if err != nil {
		return nil, err
	}
	return res.Rows(), nil
}

// First runs the query and returns the first record, or nil when no row
// matches.
func (q *Query) First(ctx context.Context) (Record, error) {
	coll, err := q.All(ctx)
	if err != nil {
		return nil, err
	}
	return coll.At(0), nil
}

// FirstRow runs the query and returns the first plain row, or nil when no
// row matches.
func (q *Query) FirstRow(ctx context.Context) (map[string]any, error) {
	rows, err := q.Rows(ctx)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}
