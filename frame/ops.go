package frame

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// TrimStrings returns a new Frame with leading and trailing whitespace
// removed from every value of every string column. Non-string columns and
// nulls pass through unchanged.
func (f *Frame) TrimStrings() *Frame {
	cols := make([]*Series, len(f.cols))
	for i, s := range f.cols {
		if s.kind != String {
			cols[i] = s
			continue
		}
		vals := make([]string, s.Len())
		valid := make([]bool, s.Len())
		for j := range vals {
			vals[j] = strings.TrimSpace(s.ss[j])
			valid[j] = s.valid[j]
		}
		cols[i] = NewStringNullable(s.name, vals, valid)
	}
	return MustNew(cols...)
}

// Mutate returns a new Frame with the given column appended, or replacing an
// existing column of the same name. The column must match the frame's row
// count.
func (f *Frame) Mutate(col *Series) (*Frame, error) {
	if len(f.cols) > 0 && col.Len() != f.NumRows() {
		return nil, errors.Errorf("column '%s' has %d rows, frame has %d", col.Name(), col.Len(), f.NumRows())
	}
	cols := make([]*Series, len(f.cols), len(f.cols)+1)
	copy(cols, f.cols)
	if i, ok := f.byName[col.Name()]; ok {
		cols[i] = col
	} else {
		cols = append(cols, col)
	}
	return New(cols...)
}

// Select returns a new Frame holding only the named columns, in the given
// order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Series, 0, len(names))
	for _, name := range names {
		c, err := f.column(name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// Filter returns a new Frame holding only the rows where mask is true.
func (f *Frame) Filter(mask []bool) (*Frame, error) {
	if len(mask) != f.NumRows() {
		return nil, errors.Errorf("mask has %d entries, frame has %d rows", len(mask), f.NumRows())
	}
	idx := make([]int, 0, len(mask))
	for i, keep := range mask {
		if keep {
			idx = append(idx, i)
		}
	}
	return f.take(idx), nil
}

// Sort returns a new Frame with rows ordered ascending by the given column,
// nulls last. The sort is stable.
func (f *Frame) Sort(by string) (*Frame, error) {
	key, err := f.column(by)
	if err != nil {
		return nil, err
	}
	return f.take(sortPerm(key)), nil
}

// sortPerm returns row positions ordered ascending by the column's values,
// nulls last, ties kept in row order.
func sortPerm(s *Series) []int {
	perm := make([]int, s.Len())
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(a, b int) bool {
		i, j := perm[a], perm[b]
		if s.IsNull(i) {
			return false
		}
		if s.IsNull(j) {
			return true
		}
		return s.less(i, j)
	})
	return perm
}

// LeftJoin joins another frame on equality of the named key column. Every
// left row appears in the result; right rows are matched by key, with nulls
// filled in where no match exists. Key columns must have the same kind. When
// a key repeats on the right, the left row is repeated per match.
func (f *Frame) LeftJoin(right *Frame, on string) (*Frame, error) {
	lk, err := f.column(on)
	if err != nil {
		return nil, errors.Wrap(err, "left key")
	}
	rk, err := right.column(on)
	if err != nil {
		return nil, errors.Wrap(err, "right key")
	}
	if lk.Kind() != rk.Kind() {
		return nil, errors.Errorf("key '%s' is %s on the left but %s on the right", on, lk.Kind(), rk.Kind())
	}

	byKey := make(map[interface{}][]int, rk.Len())
	for i := 0; i < rk.Len(); i++ {
		if rk.IsNull(i) {
			continue // null keys never match
		}
		v := rk.Value(i)
		byKey[v] = append(byKey[v], i)
	}

	var leftIdx, rightIdx []int
	for i := 0; i < lk.Len(); i++ {
		var matches []int
		if !lk.IsNull(i) {
			matches = byKey[lk.Value(i)]
		}
		if len(matches) == 0 {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, -1)
			continue
		}
		for _, m := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, m)
		}
	}

	cols := make([]*Series, 0, len(f.cols)+len(right.cols)-1)
	for _, c := range f.cols {
		cols = append(cols, c.take(leftIdx))
	}
	for _, c := range right.cols {
		if c.Name() == on {
			continue
		}
		if _, exists := f.byName[c.Name()]; exists {
			return nil, errors.Errorf("column '%s' exists on both sides", c.Name())
		}
		cols = append(cols, c.take(rightIdx))
	}
	return New(cols...)
}

// Sub returns a new Frame with an extra float column named name holding
// a - b per row. Rows where either operand is null (or not numeric) get a
// null.
func (f *Frame) Sub(name, a, b string) (*Frame, error) {
	ca, err := f.column(a)
	if err != nil {
		return nil, err
	}
	cb, err := f.column(b)
	if err != nil {
		return nil, err
	}
	n := f.NumRows()
	vals := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		va, oka := ca.AsFloat(i)
		vb, okb := cb.AsFloat(i)
		if oka && okb {
			vals[i] = va - vb
			valid[i] = true
		}
	}
	return f.Mutate(NewFloat64Nullable(name, vals, valid))
}
