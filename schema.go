package sqlorm

import (
	"context"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/syssam/sqlorm/convert"
	"github.com/syssam/sqlorm/dialect"
	"github.com/syssam/sqlorm/dialect/sql"
	"github.com/syssam/sqlorm/schema"
	"github.com/syssam/sqlorm/schema/edge"
	"github.com/syssam/sqlorm/schema/field"
	"github.com/syssam/sqlorm/schema/index"
)

// Validator checks a record before it is written. Returning a
// *ValidationError rejects the record; any other error aborts the save.
type Validator func(ctx context.Context, rec Record) error

// Schema binds a source table to its columns, relations and record model.
type Schema struct {
	db        *Database
	source    string
	key       string
	locked    *bool
	columns   []*field.Descriptor
	edges     []*edge.Descriptor
	indexes   []*index.Descriptor
	model     Model
	validator Validator
}

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// Fields adds columns to the schema. A column declared twice keeps its
// first position and its last definition.
func Fields(fields ...schema.Field) SchemaOption {
	return func(s *Schema) {
		for _, f := range fields {
			s.addColumn(f.Descriptor())
		}
	}
}

// Edges adds relations to the schema.
func Edges(edges ...schema.Edge) SchemaOption {
	return func(s *Schema) {
		for _, e := range edges {
			s.edges = append(s.edges, e.Descriptor())
		}
	}
}

// Indexes adds indexes to the schema.
func Indexes(indexes ...schema.Index) SchemaOption {
	return func(s *Schema) {
		for _, i := range indexes {
			s.indexes = append(s.indexes, i.Descriptor())
		}
	}
}

// Mixins adds the fields, edges and indexes of the given mixins.
func Mixins(mixins ...schema.Mixin) SchemaOption {
	return func(s *Schema) {
		for _, m := range mixins {
			Fields(m.Fields()...)(s)
			Edges(m.Edges()...)(s)
			Indexes(m.Indexes()...)(s)
		}
	}
}

// Key sets the key column. Defaults to the database meta key.
func Key(name string) SchemaOption {
	return func(s *Schema) { s.key = name }
}

// Locked sets whether only declared columns are written. Defaults to the
// database meta policy.
func Locked(v bool) SchemaOption {
	return func(s *Schema) { s.locked = &v }
}

// WithValidator sets the validation hook run by Save.
func WithValidator(v Validator) SchemaOption {
	return func(s *Schema) { s.validator = v }
}

// SchemaModel sets the record model of the schema. Defaults to EntityModel.
func SchemaModel(m Model) SchemaOption {
	return func(s *Schema) { s.model = m }
}

// NewSchema returns a schema for the given source table. The schema must
// be registered on a Database before it can run statements or resolve
// relations.
func NewSchema(source string, opts ...SchemaOption) *Schema {
	s := &Schema{source: source, model: EntityModel}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Schema) addColumn(d *field.Descriptor) {
	for i, c := range s.columns {
		if c.Name == d.Name {
			s.columns[i] = d
			return
		}
	}
	s.columns = append(s.columns, d)
}

// Source returns the source table name.
func (s *Schema) Source() string { return s.source }

// Database returns the database the schema is registered on, or nil.
func (s *Schema) Database() *Database { return s.db }

// Key returns the key column name.
func (s *Schema) Key() string {
	switch {
	case s.key != "":
		return s.key
	case s.db != nil && s.db.meta.Key != "":
		return s.db.meta.Key
	default:
		return "id"
	}
}

// Locked reports whether writes are restricted to declared columns.
func (s *Schema) Locked() bool {
	switch {
	case s.locked != nil:
		return *s.locked
	case s.db != nil:
		return s.db.meta.Locked
	default:
		return true
	}
}

// Model returns the record model of the schema.
func (s *Schema) Model() Model { return s.model }

// Columns returns the column definitions in declaration order.
func (s *Schema) Columns() []*field.Descriptor { return slices.Clone(s.columns) }

// Column returns the definition of the named column.
func (s *Schema) Column(name string) (*field.Descriptor, bool) {
	for _, c := range s.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Has reports whether name is a declared column.
func (s *Schema) Has(name string) bool {
	_, ok := s.Column(name)
	return ok
}

// Names returns the declared column names.
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Type returns the type of the named column, or "" if it is not declared.
// The key column defaults to the id type.
func (s *Schema) Type(name string) string {
	if c, ok := s.Column(name); ok {
		return c.Type
	}
	if name == s.Key() {
		return convert.TypeID
	}
	return ""
}

// Indexes returns the index definitions.
func (s *Schema) Indexes() []*index.Descriptor { return slices.Clone(s.indexes) }

// Relations returns the declared relation names.
func (s *Schema) Relations() []string {
	names := make([]string, len(s.edges))
	for i, e := range s.edges {
		names[i] = e.Name
	}
	return names
}

// HasRelation reports whether name is a declared relation.
func (s *Schema) HasRelation(name string) bool {
	return s.edge(name) != nil
}

func (s *Schema) edge(name string) *edge.Descriptor {
	for _, e := range s.edges {
		if e.Name == name {
			return e
		}
	}
	return nil
}

// junction reports whether the HasMany relation name is the through
// relation of a HasManyThrough relation of the schema.
func (s *Schema) junction(name string) bool {
	for _, e := range s.edges {
		if e.Kind == edge.KindHasManyThrough && e.Through == name {
			return true
		}
	}
	return false
}

// Create returns a new record of the schema model. The record does not
// exist until it is saved.
func (s *Schema) Create(data map[string]any) Record {
	return s.model(s, data, false)
}

// Cast converts a driver value of the named column into its runtime form.
func (s *Schema) Cast(name string, v any) (any, error) {
	if s.db == nil {
		return v, nil
	}
	return s.db.Convert(convert.ToRuntime, s.Type(name), v)
}

// Format renders v as a SQL literal of the named column.
func (s *Schema) Format(name string, v any) (string, error) {
	if s.db == nil {
		return "", ErrMissingConnection
	}
	return s.db.dialect.Value(s.Type(name), v)
}

// castRow converts the declared columns of a row into their runtime form.
func (s *Schema) castRow(row map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(row))
	for k, v := range row {
		if s.Has(k) || k == s.Key() {
			c, err := s.Cast(k, v)
			if err != nil {
				return nil, err
			}
			v = c
		}
		out[k] = v
	}
	return out, nil
}

// Query returns a query on the schema bound to the schema model.
func (s *Schema) Query(opts ...QueryOption) (*Query, error) {
	return NewQuery(s, append([]QueryOption{WithModel(s.model)}, opts...)...)
}

// Load returns the record with the given key, with the given relations
// embedded. It returns nil when no record matches.
func (s *Schema) Load(ctx context.Context, id any, embed ...string) (Record, error) {
	q, err := s.Query()
	if err != nil {
		return nil, err
	}
	return q.Where(sql.EQ(s.Key(), id)).Embed(embed...).First(ctx)
}

// columnOrder returns the keys of values, declared columns first.
func (s *Schema) columnOrder(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for _, name := range s.Names() {
		if _, ok := values[name]; ok {
			keys = append(keys, name)
		}
	}
	var extra []string
	for k := range values {
		if !s.Has(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// keyDefault returns the value inserted for a missing key.
func (s *Schema) keyDefault() any {
	if s.Type(s.Key()) == convert.TypeUUID {
		return uuid.NewString()
	}
	if s.db.features.Has(dialect.Defaults) {
		return convert.Plain("DEFAULT")
	}
	return nil
}

// Insert writes one row. A missing key is inserted as DEFAULT, NULL or a
// fresh UUID depending on the key type and the dialect features.
func (s *Schema) Insert(ctx context.Context, values map[string]any) error {
	_, err := s.insert(ctx, values)
	return err
}

// insert writes one row and returns the key value it wrote, or nil when
// the key is generated by the database.
func (s *Schema) insert(ctx context.Context, values map[string]any) (any, error) {
	if s.db == nil {
		return nil, ErrMissingConnection
	}
	row := make(map[string]any, len(values)+1)
	for k, v := range values {
		row[k] = v
	}
	key := s.Key()
	if row[key] == nil {
		row[key] = s.keyDefault()
	}
	stmt := s.db.dialect.Insert(s.source)
	for _, k := range s.columnOrder(row) {
		stmt.Set(k, row[k])
	}
	query, err := stmt.SQL(s.Type)
	if err != nil {
		return nil, NewMutationError(s.source, "insert", err)
	}
	if _, err := s.db.Exec(ctx, query); err != nil {
		return nil, mutationError(s.source, "insert", err)
	}
	s.db.invalidate(ctx, s.source)
	if _, ok := row[key].(convert.Operator); ok {
		return nil, nil
	}
	return row[key], nil
}

// LastInsertID returns the key generated by the last insert into the
// schema source.
func (s *Schema) LastInsertID(ctx context.Context) (any, error) {
	if s.db == nil {
		return nil, ErrMissingConnection
	}
	id, err := s.db.drv.LastInsertID(ctx, s.source+"_"+s.Key()+"_seq")
	if err != nil {
		return nil, NewQueryError(s.source, "last insert id", err)
	}
	return s.Cast(s.Key(), id)
}

// Update writes values to the rows matching cond.
func (s *Schema) Update(ctx context.Context, values map[string]any, cond sql.Expr) error {
	if s.db == nil {
		return ErrMissingConnection
	}
	if len(values) == 0 {
		return nil
	}
	stmt := s.db.dialect.Update(s.source)
	for _, k := range s.columnOrder(values) {
		stmt.Set(k, values[k])
	}
	query, err := stmt.Where(cond).SQL(s.Type)
	if err != nil {
		return NewMutationError(s.source, "update", err)
	}
	if _, err := s.db.Exec(ctx, query); err != nil {
		return mutationError(s.source, "update", err)
	}
	s.db.invalidate(ctx, s.source)
	return nil
}

// Truncate deletes the rows matching cond, or every row when cond is nil.
func (s *Schema) Truncate(ctx context.Context, cond sql.Expr) error {
	if s.db == nil {
		return ErrMissingConnection
	}
	query, err := s.db.dialect.Delete(s.source).Where(cond).SQL(s.Type)
	if err != nil {
		return NewMutationError(s.source, "delete", err)
	}
	if _, err := s.db.Exec(ctx, query); err != nil {
		return mutationError(s.source, "delete", err)
	}
	s.db.invalidate(ctx, s.source)
	return nil
}

// DDLOption configures CreateTable and DropTable.
type DDLOption func(*ddlOptions)

type ddlOptions struct {
	soft     bool
	cascade  bool
	restrict bool
}

// Soft adds IF NOT EXISTS or IF EXISTS to the statement.
func Soft() DDLOption { return func(o *ddlOptions) { o.soft = true } }

// Cascade drops dependent objects with the table.
func Cascade() DDLOption { return func(o *ddlOptions) { o.cascade = true } }

// Restrict refuses to drop a table other objects depend on.
func Restrict() DDLOption { return func(o *ddlOptions) { o.restrict = true } }

// CreateTable creates the source table and its indexes.
func (s *Schema) CreateTable(ctx context.Context, opts ...DDLOption) error {
	if s.source == "" {
		return &MissingTableNameError{}
	}
	if s.db == nil {
		return ErrMissingConnection
	}
	var o ddlOptions
	for _, opt := range opts {
		opt(&o)
	}
	key := s.Key()
	cols := make([]sql.ColumnDef, 0, len(s.columns))
	for _, c := range s.columns {
		cols = append(cols, sql.ColumnDef{
			Name:      c.Name,
			Type:      c.Type,
			Length:    c.Length,
			Precision: c.Precision,
			Scale:     c.Scale,
			NotNull:   !c.Nullable,
			Default:   c.Default,
			Key:       c.Name == key,
		})
	}
	query, err := s.db.dialect.CreateTable(s.source).IfNotExists(o.soft).Columns(cols...).SQL()
	if err != nil {
		return NewMutationError(s.source, "create table", err)
	}
	if _, err := s.db.Exec(ctx, query); err != nil {
		return NewMutationError(s.source, "create table", err)
	}
	for _, idx := range s.indexes {
		stmt := s.db.dialect.CreateIndex(idx.NameFor(s.source)).
			Table(s.source).
			Columns(idx.Fields...).
			IfNotExists(o.soft)
		if idx.Unique {
			stmt.Unique()
		}
		query, err := stmt.SQL()
		if err != nil {
			return NewMutationError(s.source, "create index", err)
		}
		if _, err := s.db.Exec(ctx, query); err != nil {
			return NewMutationError(s.source, "create index", err)
		}
	}
	return nil
}

// DropTable drops the source table.
func (s *Schema) DropTable(ctx context.Context, opts ...DDLOption) error {
	if s.source == "" {
		return &MissingTableNameError{}
	}
	if s.db == nil {
		return ErrMissingConnection
	}
	var o ddlOptions
	for _, opt := range opts {
		opt(&o)
	}
	query := s.db.dialect.DropTable(s.source).
		IfExists(o.soft).
		Cascade(o.cascade).
		Restrict(o.restrict).
		String()
	if _, err := s.db.Exec(ctx, query); err != nil {
		return NewMutationError(s.source, "drop table", err)
	}
	s.db.invalidate(ctx, s.source)
	return nil
}
