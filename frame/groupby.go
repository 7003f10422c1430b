package frame

import (
	"sort"

	"github.com/pkg/errors"
)

// AggOp enumerates the aggregations GroupBy can compute.
type AggOp int

// The supported aggregations. Count counts the rows in the group. The others
// operate on a numeric (or bool, counted as 0/1) column, skipping nulls; a
// group whose values are all null aggregates to null.
const (
	Count AggOp = iota
	Sum
	Mean
	Min
	Max
)

// Agg names one aggregated output column.
type Agg struct {
	Name string
	Col  string
	Op   AggOp
}

// CountAgg counts rows per group into a column called name.
func CountAgg(name string) Agg { return Agg{Name: name, Op: Count} }

// SumAgg sums col per group into a column called name.
func SumAgg(name, col string) Agg { return Agg{Name: name, Col: col, Op: Sum} }

// MeanAgg averages col per group into a column called name.
func MeanAgg(name, col string) Agg { return Agg{Name: name, Col: col, Op: Mean} }

// MinAgg takes the minimum of col per group into a column called name.
func MinAgg(name, col string) Agg { return Agg{Name: name, Col: col, Op: Min} }

// MaxAgg takes the maximum of col per group into a column called name.
func MaxAgg(name, col string) Agg { return Agg{Name: name, Col: col, Op: Max} }

// GroupBy groups rows by the values of the key column and computes the given
// aggregations per group. Null keys form their own group. The result has one
// row per distinct key, holding the key column plus one column per Agg,
// sorted ascending by key with the null group last.
func (f *Frame) GroupBy(key string, aggs ...Agg) (*Frame, error) {
	ks, err := f.column(key)
	if err != nil {
		return nil, err
	}

	// bucket row positions per distinct key, first-seen order
	groups := make(map[interface{}][]int)
	var order []interface{}
	hasNull := false
	var nullRows []int
	for i := 0; i < ks.Len(); i++ {
		if ks.IsNull(i) {
			if !hasNull {
				hasNull = true
			}
			nullRows = append(nullRows, i)
			continue
		}
		v := ks.Value(i)
		if _, seen := groups[v]; !seen {
			order = append(order, v)
		}
		groups[v] = append(groups[v], i)
	}

	// representative row per group, sorted by key value, null last
	reps := make([]int, 0, len(order)+1)
	for _, v := range order {
		reps = append(reps, groups[v][0])
	}
	sort.SliceStable(reps, func(a, b int) bool { return ks.less(reps[a], reps[b]) })
	if hasNull {
		reps = append(reps, -1)
	}

	keyCol := ks.take(reps)
	cols := []*Series{keyCol}
	for _, agg := range aggs {
		var src *Series
		if agg.Op != Count {
			src, err = f.column(agg.Col)
			if err != nil {
				return nil, errors.Wrapf(err, "aggregation '%s'", agg.Name)
			}
		}
		col := newSeries(agg.Name, aggKind(agg.Op))
		for _, rep := range reps {
			rows := nullRows
			if rep >= 0 {
				rows = groups[ks.Value(rep)]
			}
			if err := col.append(aggregate(agg.Op, src, rows)); err != nil {
				return nil, err
			}
		}
		cols = append(cols, col)
	}
	return New(cols...)
}

func aggKind(op AggOp) Kind {
	if op == Count {
		return Int64
	}
	return Float64
}

func aggregate(op AggOp, src *Series, rows []int) interface{} {
	if op == Count {
		return int64(len(rows))
	}
	var sum, min, max float64
	n := 0
	for _, i := range rows {
		v, ok := src.AsFloat(i)
		if !ok {
			continue
		}
		if n == 0 {
			min, max = v, v
		}
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		n++
	}
	if n == 0 {
		return nil
	}
	switch op {
	case Sum:
		return sum
	case Mean:
		return sum / float64(n)
	case Min:
		return min
	case Max:
		return max
	}
	return nil
}
