package convert

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Direction selects the handler table used by a conversion.
type Direction uint8

const (
	// ToStorage converts runtime values into SQL literals.
	ToStorage Direction = iota
	// ToRuntime converts driver values (or SQL literals) into runtime values.
	ToRuntime
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case ToStorage:
		return "storage"
	case ToRuntime:
		return "runtime"
	default:
		return fmt.Sprintf("Direction(%d)", d)
	}
}

// Reserved handler names.
const (
	// Default is the handler used when no handler is registered for a type.
	Default = "_default_"
	// Null is the handler used for nil values.
	Null = "null"
)

// Column type names understood by the built-in handlers.
const (
	TypeID       = "id"
	TypeSerial   = "serial"
	TypeInteger  = "integer"
	TypeFloat    = "float"
	TypeDecimal  = "decimal"
	TypeBoolean  = "boolean"
	TypeDate     = "date"
	TypeDatetime = "datetime"
	TypeString   = "string"
	TypeText     = "text"
	TypeUUID     = "uuid"
)

// Options are passed to every handler call.
type Options struct {
	// Precision is the number of fractional digits kept by decimal handlers.
	Precision int
	// Format overrides the time layout used by date and datetime handlers.
	Format string
}

// Option configures a single conversion.
type Option func(*Options)

// WithPrecision sets the decimal precision.
func WithPrecision(p int) Option {
	return func(o *Options) { o.Precision = p }
}

// WithFormat sets the time layout.
func WithFormat(layout string) Option {
	return func(o *Options) { o.Format = layout }
}

// Handler converts one value.
type Handler func(v any, o Options) (any, error)

// Handlers maps a type name to its handler.
type Handlers map[string]Handler

// Literal is a rendered SQL literal, ready to be embedded in a statement.
type Literal string

// String implements fmt.Stringer.
func (l Literal) String() string { return string(l) }

// OpPlain is the operator rendering its single argument verbatim.
const OpPlain = ":plain"

// Operator is a value rendered by the dialect instead of being converted,
// for example the DEFAULT keyword in an INSERT.
type Operator struct {
	Name string
	Args []any
}

// Plain returns an operator that renders s as-is.
func Plain(s string) Operator {
	return Operator{Name: OpPlain, Args: []any{s}}
}

// OperatorFormatter renders an Operator to SQL.
type OperatorFormatter func(Operator) (Literal, error)

// Quoter quotes and unquotes string literals for a dialect.
type Quoter interface {
	Quote(string) string
	Unquote(string) (string, bool)
}

// Set is an immutable pair of handler tables. Sets are composed with Merge,
// which never mutates the receiver.
type Set struct {
	storage  Handlers
	runtime  Handlers
	operator OperatorFormatter
}

// SetOption configures a Set.
type SetOption func(*Set)

// WithOperatorFormatter sets the renderer for Operator values.
func WithOperatorFormatter(f OperatorFormatter) SetOption {
	return func(s *Set) { s.operator = f }
}

// NewSet returns a Set holding copies of the given tables.
func NewSet(storage, runtime Handlers, opts ...SetOption) Set {
	s := Set{
		storage:  maps.Clone(storage),
		runtime:  maps.Clone(runtime),
		operator: formatPlain,
	}
	if s.storage == nil {
		s.storage = Handlers{}
	}
	if s.runtime == nil {
		s.runtime = Handlers{}
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Builtin returns the built-in handler set using q for string literals.
func Builtin(q Quoter, opts ...SetOption) Set {
	return NewSet(StorageHandlers(q), RuntimeHandlers(q), opts...)
}

// Merge returns a new Set where the given handlers override the receiver's.
func (s Set) Merge(storage, runtime Handlers) Set {
	n := Set{
		storage:  maps.Clone(s.storage),
		runtime:  maps.Clone(s.runtime),
		operator: s.operator,
	}
	if n.storage == nil {
		n.storage = Handlers{}
	}
	if n.runtime == nil {
		n.runtime = Handlers{}
	}
	maps.Copy(n.storage, storage)
	maps.Copy(n.runtime, runtime)
	return n
}

// WithOperators returns a copy of the Set using f to render operators.
func (s Set) WithOperators(f OperatorFormatter) Set {
	s.operator = f
	return s
}

// Handler returns the handler registered for typ in the given direction.
func (s Set) Handler(dir Direction, typ string) (Handler, bool) {
	h, ok := s.table(dir)[typ]
	return h, ok
}

func (s Set) table(dir Direction) Handlers {
	if dir == ToRuntime {
		return s.runtime
	}
	return s.storage
}

// Convert converts v for the column type typ. Operators bypass conversion
// and are rendered by the operator formatter; nil values use the null
// handler and unknown types fall back to the default handler.
func (s Set) Convert(dir Direction, typ string, v any, opts ...Option) (any, error) {
	if op, ok := v.(Operator); ok {
		if dir == ToRuntime {
			return op, nil
		}
		if s.operator == nil {
			return formatPlain(op)
		}
		return s.operator(op)
	}
	if l, ok := v.(Literal); ok && dir == ToRuntime && l == "NULL" {
		v = nil
	}
	o := Options{Precision: 2}
	for _, opt := range opts {
		opt(&o)
	}
	table := s.table(dir)
	var (
		h  Handler
		ok bool
	)
	if v == nil {
		h, ok = table[Null]
	} else if h, ok = table[typ]; !ok {
		h, ok = table[Default]
	}
	if !ok || h == nil {
		return v, nil
	}
	return h(v, o)
}

// Format converts v to a SQL literal.
func (s Set) Format(typ string, v any, opts ...Option) (Literal, error) {
	out, err := s.Convert(ToStorage, typ, v, opts...)
	if err != nil {
		return "", err
	}
	switch out := out.(type) {
	case Literal:
		return out, nil
	case string:
		return Literal(out), nil
	default:
		return Literal(fmt.Sprint(out)), nil
	}
}

// Cast converts a driver value into its runtime representation.
func (s Set) Cast(typ string, v any, opts ...Option) (any, error) {
	return s.Convert(ToRuntime, typ, v, opts...)
}

// TypeOf infers a type name from a Go value.
func TypeOf(v any) string {
	switch v.(type) {
	case nil:
		return Null
	case bool:
		return TypeBoolean
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return TypeInteger
	case float32, float64:
		return TypeFloat
	case time.Time, *time.Time:
		return TypeDatetime
	case uuid.UUID:
		return TypeUUID
	case string, []byte:
		return TypeString
	default:
		return Default
	}
}

func formatPlain(op Operator) (Literal, error) {
	if op.Name != OpPlain || len(op.Args) != 1 {
		return "", fmt.Errorf("convert: unsupported operator %q", op.Name)
	}
	return Literal(fmt.Sprint(op.Args[0])), nil
}
