package tdk

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// FieldType enumerates the value types a schema field can hold.
type FieldType int

// The supported field types.
const (
	FloatField FieldType = iota
	IntField
	BoolField
	StringField
	TimeField
)

func (ft FieldType) String() string {
	switch ft {
	case FloatField:
		return "float"
	case IntField:
		return "int"
	case BoolField:
		return "bool"
	case StringField:
		return "string"
	case TimeField:
		return "time"
	}
	return fmt.Sprintf("FieldType(%d)", int(ft))
}

// Field describes one column of a record: its name, type, and whether a
// record may omit it. Layout is the time layout for TimeField fields.
type Field struct {
	Name     string
	Type     FieldType
	Layout   string
	Required bool
}

func (f Field) parser() Parser {
	switch f.Type {
	case FloatField:
		return FloatParser{}
	case IntField:
		return IntParser{}
	case BoolField:
		return BoolParser{}
	case StringField:
		return StringParser{}
	case TimeField:
		return TimeParser{Layout: f.Layout}
	}
	return StringParser{}
}

// Schema is an ordered list of fields describing the records a Source
// produces.
type Schema []Field

// Decode turns a raw record into a map from field name to typed value. A
// missing or empty optional field decodes to nil. Records may be
// map[string]string (CSV sources) or map[string]interface{} (JSON-ish
// sources); values in the latter that are already typed are coerced rather
// than parsed.
func (s Schema) Decode(record interface{}) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(s))
	switch rec := record.(type) {
	case map[string]string:
		for _, f := range s {
			raw, ok := rec[f.Name]
			if !ok || raw == "" {
				if f.Required {
					return nil, errors.Errorf("record missing required field '%s'", f.Name)
				}
				out[f.Name] = nil
				continue
			}
			val, err := f.parser().Parse(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "parsing field '%s'", f.Name)
			}
			out[f.Name] = val
		}
	case map[string]interface{}:
		for _, f := range s {
			raw, ok := rec[f.Name]
			if !ok || raw == nil {
				if f.Required {
					return nil, errors.Errorf("record missing required field '%s'", f.Name)
				}
				out[f.Name] = nil
				continue
			}
			val, err := coerce(f, raw)
			if err != nil {
				return nil, errors.Wrapf(err, "coercing field '%s'", f.Name)
			}
			out[f.Name] = val
		}
	default:
		return nil, errors.Errorf("unsupported record type %T", record)
	}
	return out, nil
}

func coerce(f Field, raw interface{}) (interface{}, error) {
	if s, ok := raw.(string); ok {
		if s == "" {
			if f.Required {
				return nil, errors.New("empty value for required field")
			}
			return nil, nil
		}
		return f.parser().Parse(s)
	}
	switch f.Type {
	case FloatField:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		}
	case IntField:
		switch v := raw.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case float64:
			return int64(v), nil
		}
	case BoolField:
		switch v := raw.(type) {
		case bool:
			return v, nil
		case float64:
			return BoolParser{}.Parse(strconv.FormatFloat(v, 'f', -1, 64))
		}
	case StringField:
		return fmt.Sprintf("%v", raw), nil
	case TimeField:
		if v, ok := raw.(time.Time); ok {
			return v, nil
		}
	}
	return nil, errors.Errorf("cannot coerce %T to %s", raw, f.Type)
}
