package field

import (
	"github.com/syssam/sqlorm/convert"
)

// Descriptor holds the definition of a column.
type Descriptor struct {
	// Name is the column name.
	Name string
	// Type is the abstract column type, one of the convert.Type* names.
	Type string
	// Length is the maximum length of string columns.
	Length int
	// Precision and Scale size decimal columns.
	Precision int
	Scale     int
	// Nullable reports whether the column accepts NULL.
	Nullable bool
	// Default is the value written in the column definition.
	Default any
	// DefaultFunc produces the value written on insert when the record
	// holds none.
	DefaultFunc func() any
	// UpdateDefault produces the value written on every update.
	UpdateDefault func() any
	// Comment describes the column.
	Comment string
}

// Builder is the fluent builder of a Descriptor.
type Builder struct {
	desc *Descriptor
}

func newBuilder(name, typ string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Type: typ, Nullable: true}}
}

// Serial returns a builder for an auto incremented integer key.
func Serial(name string) *Builder {
	b := newBuilder(name, convert.TypeSerial)
	b.desc.Nullable = false
	return b
}

// Integer returns a builder for an integer column.
func Integer(name string) *Builder { return newBuilder(name, convert.TypeInteger) }

// Float returns a builder for a floating point column.
func Float(name string) *Builder { return newBuilder(name, convert.TypeFloat) }

// Decimal returns a builder for a fixed precision column. The precision
// defaults to DECIMAL(10,2).
func Decimal(name string) *Builder { return newBuilder(name, convert.TypeDecimal) }

// Boolean returns a builder for a boolean column.
func Boolean(name string) *Builder { return newBuilder(name, convert.TypeBoolean) }

// Date returns a builder for a date column.
func Date(name string) *Builder { return newBuilder(name, convert.TypeDate) }

// Datetime returns a builder for a date and time column.
func Datetime(name string) *Builder { return newBuilder(name, convert.TypeDatetime) }

// String returns a builder for a VARCHAR column. The length defaults to 255.
func String(name string) *Builder { return newBuilder(name, convert.TypeString) }

// Text returns a builder for an unbounded text column.
func Text(name string) *Builder { return newBuilder(name, convert.TypeText) }

// UUID returns a builder for a uuid column. A uuid key is generated on
// insert when the record holds none.
func UUID(name string) *Builder { return newBuilder(name, convert.TypeUUID) }

// Of returns a builder for a column of any registered type name.
func Of(name, typ string) *Builder { return newBuilder(name, typ) }

// Required marks the column as NOT NULL.
func (b *Builder) Required() *Builder {
	b.desc.Nullable = false
	return b
}

// Nullable marks the column as accepting NULL.
func (b *Builder) Nullable() *Builder {
	b.desc.Nullable = true
	return b
}

// Default sets the default value of the column definition.
func (b *Builder) Default(v any) *Builder {
	b.desc.Default = v
	return b
}

// DefaultFunc sets a function producing the value written on insert.
//
//	field.Datetime("created_at").DefaultFunc(func() any { return time.Now() })
func (b *Builder) DefaultFunc(fn func() any) *Builder {
	b.desc.DefaultFunc = fn
	return b
}

// UpdateDefault sets a function producing the value written on update.
func (b *Builder) UpdateDefault(fn func() any) *Builder {
	b.desc.UpdateDefault = fn
	return b
}

// Length sets the maximum length of a string column.
func (b *Builder) Length(n int) *Builder {
	b.desc.Length = n
	return b
}

// Precision sets the precision and scale of a decimal column.
func (b *Builder) Precision(precision, scale int) *Builder {
	b.desc.Precision, b.desc.Scale = precision, scale
	return b
}

// Comment sets the column comment.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Descriptor implements the schema.Field interface.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}
