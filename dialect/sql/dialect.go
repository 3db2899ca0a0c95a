package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/syssam/sqlorm/convert"
	"github.com/syssam/sqlorm/dialect"
)

// validIdentifierRe validates SQL identifiers (alphanumeric, underscores, dots for schema.name)
var validIdentifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]*$`)

// isValidIdentifier checks if the string is a valid SQL identifier.
func isValidIdentifier(s string) bool {
	return s != "" && len(s) <= 128 && validIdentifierRe.MatchString(s)
}

// Operator names rendered by a Dialect in addition to convert.OpPlain.
const (
	// OpName renders its argument as a quoted identifier.
	OpName = ":name"
)

// Dialect renders identifiers, literals and column types for one database.
// A Dialect is immutable once built.
type Dialect struct {
	name  string
	quote string
	set   convert.Set
}

// NewDialect returns the Dialect for the given name, using the built-in
// conversion handlers.
func NewDialect(name string) *Dialect {
	d := &Dialect{name: dialect.Name(name), quote: `"`}
	if d.name == dialect.MySQL {
		d.quote = "`"
	}
	d.set = convert.Builtin(d, convert.WithOperatorFormatter(d.FormatOperator))
	return d
}

// WithFormatters returns a copy of the Dialect with the given handlers
// merged over its conversion tables.
func (d *Dialect) WithFormatters(storage, runtime convert.Handlers) *Dialect {
	n := *d
	n.set = d.set.Merge(storage, runtime).WithOperators(n.FormatOperator)
	return &n
}

// Name returns the dialect name.
func (d *Dialect) Name() string { return d.name }

// Formatters returns the conversion handlers of the dialect.
func (d *Dialect) Formatters() convert.Set { return d.set }

// Quote quotes a string literal. MySQL also escapes backslashes.
func (d *Dialect) Quote(s string) string {
	if d.name == dialect.MySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Unquote reverses Quote. It reports false if s is not a quoted literal.
func (d *Dialect) Unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return s, false
	}
	s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	if d.name == dialect.MySQL {
		s = strings.ReplaceAll(s, `\\`, `\`)
	}
	return s, true
}

// Ident quotes a possibly qualified identifier. The wildcard is left as-is.
func (d *Dialect) Ident(name string) string {
	if name == "*" {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p == "*" || strings.HasPrefix(p, d.quote) {
			continue
		}
		parts[i] = d.quote + strings.ReplaceAll(p, d.quote, d.quote+d.quote) + d.quote
	}
	return strings.Join(parts, ".")
}

// Value renders v as a literal of the given column type. An empty type is
// inferred from the Go value.
func (d *Dialect) Value(typ string, v any) (string, error) {
	if typ == "" {
		typ = convert.TypeOf(v)
	}
	lit, err := d.set.Format(typ, v)
	if err != nil {
		return "", err
	}
	return string(lit), nil
}

// FormatOperator renders the operators understood by the dialect.
func (d *Dialect) FormatOperator(op convert.Operator) (convert.Literal, error) {
	if len(op.Args) != 1 {
		return "", fmt.Errorf("dialect/sql: operator %q expects one argument, got %d", op.Name, len(op.Args))
	}
	switch op.Name {
	case convert.OpPlain:
		return convert.Literal(fmt.Sprint(op.Args[0])), nil
	case OpName:
		return convert.Literal(d.Ident(fmt.Sprint(op.Args[0]))), nil
	default:
		return "", fmt.Errorf("dialect/sql: unsupported operator %q", op.Name)
	}
}

// ColumnType returns the DDL type of a column definition.
func (d *Dialect) ColumnType(c ColumnDef) string {
	switch c.Type {
	case convert.TypeSerial:
		switch d.name {
		case dialect.Postgres:
			return "SERIAL PRIMARY KEY"
		case dialect.MySQL:
			return "INT NOT NULL AUTO_INCREMENT PRIMARY KEY"
		default:
			return "INTEGER PRIMARY KEY AUTOINCREMENT"
		}
	case convert.TypeID, convert.TypeInteger:
		if d.name == dialect.MySQL {
			return "INT"
		}
		return "INTEGER"
	case convert.TypeFloat:
		switch d.name {
		case dialect.Postgres:
			return "DOUBLE PRECISION"
		case dialect.MySQL:
			return "DOUBLE"
		default:
			return "REAL"
		}
	case convert.TypeDecimal:
		p, s := c.Precision, c.Scale
		if p == 0 {
			p, s = 10, 2
		}
		return fmt.Sprintf("DECIMAL(%d,%d)", p, s)
	case convert.TypeBoolean:
		return "BOOLEAN"
	case convert.TypeDate:
		return "DATE"
	case convert.TypeDatetime:
		if d.name == dialect.Postgres {
			return "TIMESTAMP"
		}
		return "DATETIME"
	case convert.TypeText:
		return "TEXT"
	case convert.TypeUUID:
		if d.name == dialect.Postgres {
			return "UUID"
		}
		return "CHAR(36)"
	default:
		n := c.Length
		if n == 0 {
			n = 255
		}
		return fmt.Sprintf("VARCHAR(%d)", n)
	}
}

// AbstractType maps a database column type back to a column type name.
func (d *Dialect) AbstractType(dbType string) string {
	t := strings.ToLower(dbType)
	switch {
	case strings.Contains(t, "uuid"):
		return convert.TypeUUID
	case strings.Contains(t, "bool"), t == "tinyint(1)":
		return convert.TypeBoolean
	case strings.Contains(t, "int"):
		return convert.TypeInteger
	case strings.Contains(t, "dec"), strings.Contains(t, "numeric"):
		return convert.TypeDecimal
	case strings.Contains(t, "real"), strings.Contains(t, "floa"), strings.Contains(t, "doub"):
		return convert.TypeFloat
	case strings.Contains(t, "timestamp"), strings.Contains(t, "datetime"):
		return convert.TypeDatetime
	case strings.Contains(t, "date"):
		return convert.TypeDate
	case strings.Contains(t, "text"), strings.Contains(t, "clob"):
		return convert.TypeText
	default:
		return convert.TypeString
	}
}

var _ convert.Quoter = (*Dialect)(nil)
