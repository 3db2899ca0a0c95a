package convert

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Layouts used when none is given through Options.Format.
const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02 15:04:05"
)

// parseLayouts are tried in order when a string is converted to a time.
var parseLayouts = []string{
	DatetimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05Z07:00",
	DateLayout,
}

// InvalidDateError is returned when a value cannot be read as a date.
type InvalidDateError struct {
	Value any
}

// Error implements the error interface.
func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("convert: invalid date %q, can't be parsed", fmt.Sprint(e.Value))
}

// StandardQuoter quotes literals by doubling single quotes.
type StandardQuoter struct{}

// Quote implements Quoter.
func (StandardQuoter) Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Unquote implements Quoter.
func (StandardQuoter) Unquote(s string) (string, bool) {
	if len(s) < 2 || s[0] != '\'' || s[len(s)-1] != '\'' {
		return s, false
	}
	return strings.ReplaceAll(s[1:len(s)-1], "''", "'"), true
}

// StorageHandlers returns the built-in runtime to storage handlers.
func StorageHandlers(q Quoter) Handlers {
	quoted := func(v any, _ Options) (any, error) {
		return Literal(q.Quote(stringOf(v))), nil
	}
	number := func(v any, _ Options) (any, error) {
		s, err := numberString(v)
		if err != nil {
			return nil, err
		}
		return Literal(s), nil
	}
	datetime := func(layout string) Handler {
		return func(v any, o Options) (any, error) {
			t, err := toTime(v)
			if err != nil {
				return nil, err
			}
			f := layout
			if o.Format != "" {
				f = o.Format
			}
			return Literal(q.Quote(t.UTC().Format(f))), nil
		}
	}
	return Handlers{
		TypeID:      number,
		TypeSerial:  number,
		TypeInteger: number,
		TypeFloat:   number,
		TypeDecimal: func(v any, o Options) (any, error) {
			f, err := toFloat(v)
			if err != nil {
				return nil, err
			}
			return Literal(strconv.FormatFloat(f, 'f', o.Precision, 64)), nil
		},
		TypeBoolean: func(v any, _ Options) (any, error) {
			b, err := toBool(v)
			if err != nil {
				return nil, err
			}
			if b {
				return Literal("TRUE"), nil
			}
			return Literal("FALSE"), nil
		},
		TypeDate:     datetime(DateLayout),
		TypeDatetime: datetime(DatetimeLayout),
		TypeString:   quoted,
		TypeText:     quoted,
		TypeUUID: func(v any, o Options) (any, error) {
			if id, ok := v.(uuid.UUID); ok {
				return Literal(q.Quote(id.String())), nil
			}
			return quoted(v, o)
		},
		Default: quoted,
		Null: func(any, Options) (any, error) {
			return Literal("NULL"), nil
		},
	}
}

// RuntimeHandlers returns the built-in storage to runtime handlers. They
// accept native driver values as well as literals produced by StorageHandlers.
func RuntimeHandlers(q Quoter) Handlers {
	// unlit strips the quoting of a storage literal.
	unlit := func(v any) any {
		if l, ok := v.(Literal); ok {
			if s, ok := q.Unquote(string(l)); ok {
				return s
			}
			return string(l)
		}
		if b, ok := v.([]byte); ok {
			return string(b)
		}
		return v
	}
	integer := func(v any, _ Options) (any, error) {
		return toInt(unlit(v))
	}
	datetime := func(trunc bool) Handler {
		return func(v any, _ Options) (any, error) {
			t, err := toTime(unlit(v))
			if err != nil {
				return nil, err
			}
			t = t.UTC()
			if trunc {
				t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			}
			return t, nil
		}
	}
	text := func(v any, _ Options) (any, error) {
		return stringOf(unlit(v)), nil
	}
	return Handlers{
		TypeID:      integer,
		TypeSerial:  integer,
		TypeInteger: integer,
		TypeFloat: func(v any, _ Options) (any, error) {
			return toFloat(unlit(v))
		},
		TypeDecimal: func(v any, o Options) (any, error) {
			f, err := toFloat(unlit(v))
			if err != nil {
				return nil, err
			}
			p := math.Pow10(o.Precision)
			return math.Round(f*p) / p, nil
		},
		TypeBoolean: func(v any, _ Options) (any, error) {
			return toBool(unlit(v))
		},
		TypeDate:     datetime(true),
		TypeDatetime: datetime(false),
		TypeString:   text,
		TypeText:     text,
		TypeUUID: func(v any, _ Options) (any, error) {
			switch v := unlit(v).(type) {
			case uuid.UUID:
				return v.String(), nil
			case string:
				id, err := uuid.Parse(v)
				if err != nil {
					return nil, fmt.Errorf("convert: invalid uuid %q: %w", v, err)
				}
				return id.String(), nil
			default:
				return stringOf(v), nil
			}
		},
		Default: func(v any, _ Options) (any, error) {
			return unlit(v), nil
		},
		Null: func(any, Options) (any, error) {
			return nil, nil
		},
	}
}

func stringOf(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case Literal:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func numberString(v any) (string, error) {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case string, []byte, Literal:
		s := strings.TrimSpace(stringOf(v))
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			return "", fmt.Errorf("convert: invalid number %q", s)
		}
		return s, nil
	default:
		return "", fmt.Errorf("convert: invalid number of type %T", v)
	}
}

func toInt(v any) (int64, error) {
	switch v := v.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		s := strings.TrimSpace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("convert: invalid integer %q", v)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("convert: invalid integer of type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch v := v.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string, []byte, Literal:
		s := strings.TrimSpace(stringOf(v))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("convert: invalid float %q", s)
		}
		return f, nil
	default:
		n, err := toInt(v)
		if err != nil {
			return 0, fmt.Errorf("convert: invalid float of type %T", v)
		}
		return float64(n), nil
	}
}

func toBool(v any) (bool, error) {
	switch v := v.(type) {
	case bool:
		return v, nil
	case string, []byte, Literal:
		s := strings.ToLower(strings.TrimSpace(stringOf(v)))
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("convert: invalid boolean %q", s)
		}
		return b, nil
	default:
		n, err := toInt(v)
		if err != nil {
			return false, fmt.Errorf("convert: invalid boolean of type %T", v)
		}
		return n != 0, nil
	}
}

func toTime(v any) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v != nil {
			return *v, nil
		}
	case int, int32, int64, uint, uint32, uint64:
		n, _ := toInt(v)
		return time.Unix(n, 0), nil
	case float64:
		sec, frac := math.Modf(v)
		return time.Unix(int64(sec), int64(frac*1e9)), nil
	case string, []byte, Literal:
		s := strings.TrimSpace(stringOf(v))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(n, 0), nil
		}
		for _, layout := range parseLayouts {
			if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, &InvalidDateError{Value: v}
}
