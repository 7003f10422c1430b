package titanic

import (
	"github.com/pkg/errors"
	"github.com/tabkit/tdk"
	"github.com/tabkit/tdk/frame"
)

// InputSchema describes the columns the titanic pipeline reads from its
// source data. Anything else in the CSV is ignored.
var InputSchema = tdk.Schema{
	{Name: "survived", Type: tdk.BoolField, Required: true},
	{Name: "pclass", Type: tdk.IntField},
	{Name: "sex", Type: tdk.StringField},
	{Name: "age", Type: tdk.FloatField},
	{Name: "fare", Type: tdk.FloatField},
}

// AgeBucketTable computes the age-bucket survival summary with frame verbs:
// mutate the bucket column, group by it, aggregate, and rely on GroupBy's
// sorted-keys-null-last ordering.
func AgeBucketTable(titanic *frame.Frame) (*frame.Frame, error) {
	age := titanic.Column("age")
	if age == nil {
		return nil, errors.New("no 'age' column")
	}
	vals := make([]float64, age.Len())
	valid := make([]bool, age.Len())
	for i := range vals {
		if v, ok := age.AsFloat(i); ok {
			vals[i] = AgeBucket(v)
			valid[i] = true
		}
	}
	withBucket, err := titanic.Mutate(frame.NewFloat64Nullable("age_bucket", vals, valid))
	if err != nil {
		return nil, errors.Wrap(err, "mutating age_bucket")
	}
	out, err := withBucket.GroupBy("age_bucket",
		frame.CountAgg("samples"),
		frame.MeanAgg("survival_likelihood", "survived"),
	)
	return out, errors.Wrap(err, "grouping by age_bucket")
}

// FareDiffTable is the window-function example: each row gets its position
// in the fare ordering and the fare gap to the next most expensive ticket.
func FareDiffTable(titanic *frame.Frame) (*frame.Frame, error) {
	f, err := titanic.RowNumber("idx", "fare")
	if err != nil {
		return nil, errors.Wrap(err, "numbering rows")
	}
	f, err = f.Lead("next_fare", "fare", "fare")
	if err != nil {
		return nil, errors.Wrap(err, "computing lead")
	}
	f, err = f.Sub("diff_price", "next_fare", "fare")
	if err != nil {
		return nil, errors.Wrap(err, "computing diff")
	}
	f, err = f.Select("idx", "fare", "diff_price")
	if err != nil {
		return nil, errors.Wrap(err, "selecting")
	}
	return f.Sort("fare")
}

// PassengersFromFrame converts the loaded titanic frame into the row form
// the reference aggregator consumes.
func PassengersFromFrame(f *frame.Frame) ([]Passenger, error) {
	age := f.Column("age")
	survived := f.Column("survived")
	if age == nil || survived == nil {
		return nil, errors.New("frame needs 'age' and 'survived' columns")
	}
	passengers := make([]Passenger, f.NumRows())
	for i := range passengers {
		if !age.IsNull(i) {
			v := age.Float(i)
			passengers[i].Age = &v
		}
		if survived.IsNull(i) {
			return nil, errors.Errorf("row %d: null survived", i)
		}
		s, ok := survived.AsFloat(i)
		if !ok || (s != 0 && s != 1) {
			return nil, errors.Errorf("row %d: survived must be 0 or 1, got %v", i, survived.Value(i))
		}
		passengers[i].Survived = int(s)
	}
	return passengers, nil
}

// StatsFrame renders aggregator output as a frame so it can flow through
// materialization like everything else.
func StatsFrame(stats []BucketStat) *frame.Frame {
	n := len(stats)
	buckets := make([]float64, n)
	bucketsValid := make([]bool, n)
	samples := make([]int64, n)
	likelihood := make([]float64, n)
	likelihoodValid := make([]bool, n)
	for i, s := range stats {
		if s.AgeBucket != nil {
			buckets[i] = *s.AgeBucket
			bucketsValid[i] = true
		}
		samples[i] = int64(s.Samples)
		if s.SurvivalLikelihood != nil {
			likelihood[i] = *s.SurvivalLikelihood
			likelihoodValid[i] = true
		}
	}
	return frame.MustNew(
		frame.NewFloat64Nullable("age_bucket", buckets, bucketsValid),
		frame.NewInt64("samples", samples),
		frame.NewFloat64Nullable("survival_likelihood", likelihood, likelihoodValid),
	)
}
