package frame

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the value types a Series can hold.
type Kind int

// The supported column kinds.
const (
	Float64 Kind = iota
	Int64
	Bool
	String
)

func (k Kind) String() string {
	switch k {
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case Bool:
		return "bool"
	case String:
		return "string"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Series is a single named column of values with a validity mask. Positions
// where the mask is false hold nulls.
type Series struct {
	name  string
	kind  Kind
	f64   []float64
	i64   []int64
	bs    []bool
	ss    []string
	valid []bool
}

func newSeries(name string, kind Kind) *Series {
	return &Series{name: name, kind: kind}
}

// NewFloat64 returns a float column with no nulls.
func NewFloat64(name string, vals []float64) *Series {
	return &Series{name: name, kind: Float64, f64: vals, valid: allValid(len(vals))}
}

// NewFloat64Nullable returns a float column with the given validity mask.
func NewFloat64Nullable(name string, vals []float64, valid []bool) *Series {
	return &Series{name: name, kind: Float64, f64: vals, valid: valid}
}

// NewInt64 returns an integer column with no nulls.
func NewInt64(name string, vals []int64) *Series {
	return &Series{name: name, kind: Int64, i64: vals, valid: allValid(len(vals))}
}

// NewInt64Nullable returns an integer column with the given validity mask.
func NewInt64Nullable(name string, vals []int64, valid []bool) *Series {
	return &Series{name: name, kind: Int64, i64: vals, valid: valid}
}

// NewBool returns a boolean column with no nulls.
func NewBool(name string, vals []bool) *Series {
	return &Series{name: name, kind: Bool, bs: vals, valid: allValid(len(vals))}
}

// NewBoolNullable returns a boolean column with the given validity mask.
func NewBoolNullable(name string, vals []bool, valid []bool) *Series {
	return &Series{name: name, kind: Bool, bs: vals, valid: valid}
}

// NewString returns a string column with no nulls.
func NewString(name string, vals []string) *Series {
	return &Series{name: name, kind: String, ss: vals, valid: allValid(len(vals))}
}

// NewStringNullable returns a string column with the given validity mask.
func NewStringNullable(name string, vals []string, valid []bool) *Series {
	return &Series{name: name, kind: String, ss: vals, valid: valid}
}

func allValid(n int) []bool {
	v := make([]bool, n)
	for i := range v {
		v[i] = true
	}
	return v
}

// Name returns the column name.
func (s *Series) Name() string { return s.name }

// Kind returns the column's value type.
func (s *Series) Kind() Kind { return s.kind }

// Len returns the number of values (including nulls) in the column.
func (s *Series) Len() int { return len(s.valid) }

// IsNull reports whether position i holds a null.
func (s *Series) IsNull(i int) bool { return !s.valid[i] }

// Float returns the float value at i. The column must have kind Float64.
func (s *Series) Float(i int) float64 { return s.f64[i] }

// Int returns the integer value at i. The column must have kind Int64.
func (s *Series) Int(i int) int64 { return s.i64[i] }

// Bool returns the boolean value at i. The column must have kind Bool.
func (s *Series) Bool(i int) bool { return s.bs[i] }

// Str returns the string value at i. The column must have kind String.
func (s *Series) Str(i int) string { return s.ss[i] }

// Value returns the value at i as an interface, or nil for nulls.
func (s *Series) Value(i int) interface{} {
	if !s.valid[i] {
		return nil
	}
	switch s.kind {
	case Float64:
		return s.f64[i]
	case Int64:
		return s.i64[i]
	case Bool:
		return s.bs[i]
	case String:
		return s.ss[i]
	}
	return nil
}

// AsFloat returns the value at i coerced to a float64 (bools count as 0/1)
// and whether it was non-null. String columns never coerce.
func (s *Series) AsFloat(i int) (float64, bool) {
	if !s.valid[i] {
		return 0, false
	}
	switch s.kind {
	case Float64:
		return s.f64[i], true
	case Int64:
		return float64(s.i64[i]), true
	case Bool:
		if s.bs[i] {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (s *Series) append(v interface{}) error {
	if v == nil {
		s.appendNull()
		return nil
	}
	switch s.kind {
	case Float64:
		f, ok := v.(float64)
		if !ok {
			return errors.Errorf("appending %T to float64 column '%s'", v, s.name)
		}
		s.f64 = append(s.f64, f)
	case Int64:
		n, ok := v.(int64)
		if !ok {
			return errors.Errorf("appending %T to int64 column '%s'", v, s.name)
		}
		s.i64 = append(s.i64, n)
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return errors.Errorf("appending %T to bool column '%s'", v, s.name)
		}
		s.bs = append(s.bs, b)
	case String:
		str, ok := v.(string)
		if !ok {
			return errors.Errorf("appending %T to string column '%s'", v, s.name)
		}
		s.ss = append(s.ss, str)
	}
	s.valid = append(s.valid, true)
	return nil
}

func (s *Series) appendNull() {
	switch s.kind {
	case Float64:
		s.f64 = append(s.f64, 0)
	case Int64:
		s.i64 = append(s.i64, 0)
	case Bool:
		s.bs = append(s.bs, false)
	case String:
		s.ss = append(s.ss, "")
	}
	s.valid = append(s.valid, false)
}

// take returns a new Series holding the values at the given positions, in
// order. A position of -1 produces a null.
func (s *Series) take(idx []int) *Series {
	out := newSeries(s.name, s.kind)
	for _, i := range idx {
		if i < 0 {
			out.appendNull()
			continue
		}
		// append of a same-kind value cannot fail
		_ = out.append(s.Value(i))
	}
	return out
}

// less orders two non-null values within the column. Callers handle nulls.
func (s *Series) less(i, j int) bool {
	switch s.kind {
	case Float64:
		return s.f64[i] < s.f64[j]
	case Int64:
		return s.i64[i] < s.i64[j]
	case Bool:
		return !s.bs[i] && s.bs[j]
	case String:
		return s.ss[i] < s.ss[j]
	}
	return false
}
