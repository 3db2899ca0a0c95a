package sqlorm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/sqlorm/convert"
	"github.com/syssam/sqlorm/dialect"
	"github.com/syssam/sqlorm/dialect/sql"
	"github.com/syssam/sqlorm/schema/field"
)

// Meta holds the conventions applied to schemas that do not override them.
type Meta struct {
	// Key is the default key column.
	Key string `yaml:"key"`
	// Locked restricts writes to declared columns.
	Locked bool `yaml:"locked"`
}

// Database is a connection with its dialect, the registered schemas and
// the transaction nesting level. A Database runs its statements on a
// single session and is not safe for concurrent transactions.
type Database struct {
	drv      dialect.Driver
	dialect  *sql.Dialect
	features dialect.Features
	meta     Meta
	log      *slog.Logger
	cache    Cache
	group    singleflight.Group

	mu      sync.RWMutex
	schemas map[string]*Schema

	level int
}

// Option configures a Database.
type Option func(*options)

type options struct {
	log      *slog.Logger
	storage  convert.Handlers
	runtime  convert.Handlers
	features map[dialect.Feature]bool
	meta     *Meta
	cache    Cache
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithFormatters merges custom conversion handlers over the built-in ones
// of the dialect.
func WithFormatters(storage, runtime convert.Handlers) Option {
	return func(o *options) { o.storage, o.runtime = storage, runtime }
}

// WithFeatures overrides the features of the dialect.
func WithFeatures(fs map[dialect.Feature]bool) Option {
	return func(o *options) { o.features = fs }
}

// WithMeta sets the schema conventions. Defaults to an "id" key and
// locked schemas.
func WithMeta(m Meta) Option {
	return func(o *options) { o.meta = &m }
}

// WithCache enables caching of the queries marked with Query.Cached.
func WithCache(c Cache) Option {
	return func(o *options) { o.cache = c }
}

// New returns a Database running its statements on drv.
func New(drv dialect.Driver, opts ...Option) *Database {
	o := options{log: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	d := sql.NewDialect(drv.Dialect())
	if o.storage != nil || o.runtime != nil {
		d = d.WithFormatters(o.storage, o.runtime)
	}
	db := &Database{
		drv:      drv,
		dialect:  d,
		features: dialect.DefaultFeatures(d.Name()).Merge(o.features),
		meta:     Meta{Key: "id", Locked: true},
		log:      o.log,
		cache:    o.cache,
		schemas:  map[string]*Schema{},
	}
	if o.meta != nil {
		db.meta = *o.meta
	}
	return db
}

// Open opens a connection with the given database/sql driver and returns a
// Database running on it.
func Open(ctx context.Context, driverName, dsn string, opts ...Option) (*Database, error) {
	drv, err := sql.Open(ctx, driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlorm: open %s: %w", driverName, err)
	}
	return New(drv, opts...), nil
}

// Driver returns the underlying driver.
func (db *Database) Driver() dialect.Driver { return db.drv }

// Dialect returns the SQL dialect.
func (db *Database) Dialect() *sql.Dialect { return db.dialect }

// Features returns the enabled dialect features.
func (db *Database) Features() dialect.Features { return db.features }

// Meta returns the schema conventions.
func (db *Database) Meta() Meta { return db.meta }

// Logger returns the logger.
func (db *Database) Logger() *slog.Logger { return db.log }

// Cache returns the query cache, or nil.
func (db *Database) Cache() Cache { return db.cache }

// Register binds schemas to the database, by source name. A schema
// registered twice replaces the previous one.
func (db *Database) Register(schemas ...*Schema) {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, s := range schemas {
		s.db = db
		db.schemas[s.source] = s
	}
}

// Schema returns the schema registered for source.
func (db *Database) Schema(source string) (*Schema, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.schemas[source]
	if !ok {
		return nil, &MissingSchemaError{Name: source}
	}
	return s, nil
}

// Query runs a raw statement returning rows.
func (db *Database) Query(ctx context.Context, query string) ([]map[string]any, error) {
	return db.query(ctx, query)
}

// Exec runs a raw statement.
func (db *Database) Exec(ctx context.Context, query string) (sql.Result, error) {
	return db.drv.Exec(ctx, query)
}

// Convert converts v of the given column type in the given direction with
// the conversion handlers of the dialect.
func (db *Database) Convert(dir convert.Direction, typ string, v any) (any, error) {
	return db.dialect.Formatters().Convert(dir, typ, v)
}

// Format renders v of the given column type as a SQL literal.
func (db *Database) Format(typ string, v any) (string, error) {
	return db.dialect.Value(typ, v)
}

// Close closes the driver.
func (db *Database) Close() error {
	return db.drv.Close()
}

// Sources returns the names of the tables of the database.
func (db *Database) Sources(ctx context.Context) ([]string, error) {
	var query string
	switch db.dialect.Name() {
	case dialect.SQLite:
		query = "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	case dialect.Postgres:
		query = "SELECT table_name AS name FROM information_schema.tables WHERE table_schema = current_schema() ORDER BY table_name"
	case dialect.MySQL:
		query = "SELECT table_name AS name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name"
	default:
		return nil, fmt.Errorf("sqlorm: sources are not supported by dialect %q", db.dialect.Name())
	}
	rows, err := db.query(ctx, query)
	if err != nil {
		return nil, NewQueryError("", "sources", err)
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, text(row["name"]))
	}
	return names, nil
}

// column is a column read from the catalog of the database.
type column struct {
	name     string
	typ      string
	nullable bool
	dflt     any
	key      bool
	length   int
	prec     int
	scale    int
}

var typeRe = regexp.MustCompile(`^\s*([a-zA-Z][\w ]*?)\s*(?:\((\d+)(?:\s*,\s*(\d+))?\))?\s*(?:unsigned)?\s*$`)

// Fields returns the columns of a table mapped to column types.
func (db *Database) Fields(ctx context.Context, table string) ([]*field.Descriptor, error) {
	cols, err := db.columns(ctx, table)
	if err != nil {
		return nil, NewQueryError(table, "fields", err)
	}
	descs := make([]*field.Descriptor, 0, len(cols))
	for _, c := range cols {
		descs = append(descs, db.descriptor(c))
	}
	return descs, nil
}

func (db *Database) columns(ctx context.Context, table string) ([]column, error) {
	switch db.dialect.Name() {
	case dialect.SQLite:
		rows, err := db.query(ctx, "PRAGMA table_info("+db.dialect.Ident(table)+")")
		if err != nil {
			return nil, err
		}
		cols := make([]column, 0, len(rows))
		for _, row := range rows {
			cols = append(cols, column{
				name:     text(row["name"]),
				typ:      text(row["type"]),
				nullable: number(row["notnull"]) == 0,
				dflt:     row["dflt_value"],
				key:      number(row["pk"]) > 0,
			})
		}
		return cols, nil
	case dialect.Postgres, dialect.MySQL:
		schema, typ := "current_schema()", "data_type"
		if db.dialect.Name() == dialect.MySQL {
			schema, typ = "DATABASE()", "column_type"
		}
		lit, err := db.dialect.Value(convert.TypeString, table)
		if err != nil {
			return nil, err
		}
		rows, err := db.query(ctx, "SELECT column_name AS name, "+typ+" AS type, is_nullable AS nullable, "+
			"column_default AS dflt, character_maximum_length AS length, numeric_precision AS prec, "+
			"numeric_scale AS scale FROM information_schema.columns WHERE table_name = "+lit+
			" AND table_schema = "+schema+" ORDER BY ordinal_position")
		if err != nil {
			return nil, err
		}
		cols := make([]column, 0, len(rows))
		for _, row := range rows {
			c := column{
				name:     text(row["name"]),
				typ:      text(row["type"]),
				nullable: strings.EqualFold(text(row["nullable"]), "YES"),
				dflt:     row["dflt"],
				length:   int(number(row["length"])),
				prec:     int(number(row["prec"])),
				scale:    int(number(row["scale"])),
			}
			if d := text(c.dflt); strings.HasPrefix(d, "nextval(") {
				c.typ, c.dflt, c.key = "serial", nil, true
			}
			cols = append(cols, c)
		}
		return cols, nil
	default:
		return nil, fmt.Errorf("sqlorm: fields are not supported by dialect %q", db.dialect.Name())
	}
}

// descriptor maps a catalog column to a column definition.
func (db *Database) descriptor(c column) *field.Descriptor {
	d := &field.Descriptor{
		Name:      c.name,
		Nullable:  c.nullable,
		Length:    c.length,
		Precision: c.prec,
		Scale:     c.scale,
	}
	base := c.typ
	if m := typeRe.FindStringSubmatch(c.typ); m != nil {
		base = m[1]
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			if m[3] != "" {
				d.Precision = n
				d.Scale, _ = strconv.Atoi(m[3])
			} else if d.Length == 0 {
				d.Length = n
			}
		}
	}
	switch lower := strings.ToLower(base); {
	case lower == "serial" || lower == "bigserial":
		d.Type = convert.TypeSerial
	case c.key && strings.Contains(lower, "int"):
		d.Type = convert.TypeSerial
	default:
		d.Type = db.dialect.AbstractType(c.typ)
	}
	if c.dflt != nil {
		d.Default = db.castDefault(d.Type, text(c.dflt))
	}
	return d
}

// castDefault converts a column default read from the catalog. Defaults
// that are not literals of the column type are kept as raw SQL.
func (db *Database) castDefault(typ, dflt string) any {
	if dflt == "" || strings.EqualFold(dflt, "NULL") {
		return nil
	}
	// Postgres appends a type cast to literals: 'draft'::character varying.
	if i := strings.Index(dflt, "::"); i > 0 && strings.HasPrefix(dflt, "'") {
		dflt = dflt[:i]
	}
	v, err := db.Convert(convert.ToRuntime, typ, convert.Literal(dflt))
	if err != nil {
		return convert.Plain(dflt)
	}
	return v
}

// Describe returns a schema for table built from the columns of the
// database. The schema is bound to the database but not registered.
func (db *Database) Describe(ctx context.Context, table string, opts ...SchemaOption) (*Schema, error) {
	cols, err := db.columns(ctx, table)
	if err != nil {
		return nil, NewQueryError(table, "describe", err)
	}
	s := NewSchema(table)
	for _, c := range cols {
		s.addColumn(db.descriptor(c))
		if c.key && s.key == "" {
			s.key = c.name
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.db = db
	return s, nil
}

func text(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func number(v any) int64 {
	switch v := v.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case float64:
		return int64(v)
	default:
		n, _ := strconv.ParseInt(text(v), 10, 64)
		return n
	}
}
