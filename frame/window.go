package frame

// Window helpers. These compute a new column whose value at each row depends
// on the row's position within an ordering of the frame, without reordering
// the frame itself. Order is ascending by the orderBy column, nulls last,
// ties in row order.

// RowNumber returns a new Frame with an extra int64 column named name
// holding each row's zero-based position within the ordering. Zero-based to
// match the eager dataframe engines rather than SQL's 1-based ROW_NUMBER.
func (f *Frame) RowNumber(name, orderBy string) (*Frame, error) {
	key, err := f.column(orderBy)
	if err != nil {
		return nil, err
	}
	perm := sortPerm(key)
	vals := make([]int64, len(perm))
	for pos, row := range perm {
		vals[row] = int64(pos)
	}
	return f.Mutate(NewInt64(name, vals))
}

// Lead returns a new Frame with an extra column named name holding, for each
// row, the value col takes on the next row of the ordering. The last row of
// the ordering gets a null.
func (f *Frame) Lead(name, col, orderBy string) (*Frame, error) {
	key, err := f.column(orderBy)
	if err != nil {
		return nil, err
	}
	src, err := f.column(col)
	if err != nil {
		return nil, err
	}
	perm := sortPerm(key)
	out := newSeries(name, src.Kind())
	next := make([]int, f.NumRows())
	for pos, row := range perm {
		if pos+1 < len(perm) {
			next[row] = perm[pos+1]
		} else {
			next[row] = -1
		}
	}
	for row := 0; row < f.NumRows(); row++ {
		if next[row] < 0 {
			out.appendNull()
			continue
		}
		if err := out.append(src.Value(next[row])); err != nil {
			return nil, err
		}
	}
	return f.Mutate(out)
}
