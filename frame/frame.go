package frame

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/pkg/errors"
)

// Frame is an in-memory table: an ordered collection of equal-length named
// columns. Frames are immutable; every verb returns a new Frame, sharing
// column storage where it can.
type Frame struct {
	cols   []*Series
	byName map[string]int
}

// New returns a Frame over the given columns. Columns must have unique names
// and equal lengths.
func New(cols ...*Series) (*Frame, error) {
	f := &Frame{cols: cols, byName: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, exists := f.byName[c.Name()]; exists {
			return nil, errors.Errorf("duplicate column '%s'", c.Name())
		}
		if c.Len() != cols[0].Len() {
			return nil, errors.Errorf("column '%s' has %d rows, expected %d", c.Name(), c.Len(), cols[0].Len())
		}
		f.byName[c.Name()] = i
	}
	return f, nil
}

// MustNew is New, panicking on error. For tests and hard-coded frames.
func MustNew(cols ...*Series) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int {
	if len(f.cols) == 0 {
		return 0
	}
	return f.cols[0].Len()
}

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.cols) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name()
	}
	return names
}

// Column returns the named column, or nil if there is no such column.
func (f *Frame) Column(name string) *Series {
	i, ok := f.byName[name]
	if !ok {
		return nil
	}
	return f.cols[i]
}

func (f *Frame) column(name string) (*Series, error) {
	s := f.Column(name)
	if s == nil {
		return nil, errors.Errorf("no column '%s'", name)
	}
	return s, nil
}

// String renders the frame as an aligned text table with nulls shown as
// "null". Intended for logging and the usecase reporters, not for parsing.
func (f *Frame) String() string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 2, 2, ' ', 0)
	for i, c := range f.cols {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, c.Name())
	}
	fmt.Fprintln(w)
	for row := 0; row < f.NumRows(); row++ {
		for i, c := range f.cols {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, formatValue(c, row))
		}
		fmt.Fprintln(w)
	}
	w.Flush()
	return buf.String()
}

func formatValue(s *Series, i int) string {
	if s.IsNull(i) {
		return "null"
	}
	switch s.Kind() {
	case Float64:
		return strconv.FormatFloat(s.Float(i), 'g', -1, 64)
	case Int64:
		return strconv.FormatInt(s.Int(i), 10)
	case Bool:
		return strconv.FormatBool(s.Bool(i))
	case String:
		return s.Str(i)
	}
	return "?"
}

// take returns a new Frame holding, for every column, the rows at the given
// positions.
func (f *Frame) take(idx []int) *Frame {
	cols := make([]*Series, len(f.cols))
	for i, c := range f.cols {
		cols[i] = c.take(idx)
	}
	out, _ := New(cols...)
	return out
}
