package titanic

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Passenger is one survival record. A nil Age means the age is unknown.
// Survived must be 0 or 1.
type Passenger struct {
	Age      *float64
	Survived int
}

// BucketStat is the survival summary for one age bucket. A nil AgeBucket is
// the bucket of passengers with unknown age.
type BucketStat struct {
	AgeBucket          *float64
	Samples            int
	SurvivalLikelihood *float64
}

// AgeBucket discretizes an age to the nearest multiple of ten. The +4.999
// offset shifts ages upward before rounding so that e.g. ages 5-14 land in
// bucket 10. Rounding is half away from zero (math.Round); the offset keeps
// realistic ages off the .5 boundary, so the tie-break never matters for
// integral or quarter-year ages.
func AgeBucket(age float64) float64 {
	return math.Round((age+4.999)/10.0) * 10.0
}

// AggregateAgeBuckets computes, for each age bucket, how many passengers
// fell in it and what fraction of them survived. Passengers with unknown age
// form their own bucket. The result is sorted ascending by bucket with the
// unknown-age bucket last. The computation is pure; running it twice on the
// same input yields identical output.
func AggregateAgeBuckets(passengers []Passenger) ([]BucketStat, error) {
	groups := make(map[float64][]int)
	var nullRows []int
	for i, p := range passengers {
		if p.Survived != 0 && p.Survived != 1 {
			return nil, errors.Errorf("passenger %d: survived must be 0 or 1, got %d", i, p.Survived)
		}
		if p.Age == nil {
			nullRows = append(nullRows, i)
			continue
		}
		b := AgeBucket(*p.Age)
		groups[b] = append(groups[b], i)
	}

	buckets := make([]float64, 0, len(groups))
	for b := range groups {
		buckets = append(buckets, b)
	}
	sort.Float64s(buckets)

	stats := make([]BucketStat, 0, len(buckets)+1)
	for _, b := range buckets {
		bucket := b
		stats = append(stats, bucketStat(&bucket, groups[b], passengers))
	}
	if len(nullRows) > 0 {
		stats = append(stats, bucketStat(nil, nullRows, passengers))
	}
	return stats, nil
}

func bucketStat(bucket *float64, rows []int, passengers []Passenger) BucketStat {
	sum := 0
	for _, i := range rows {
		sum += passengers[i].Survived
	}
	likelihood := float64(sum) / float64(len(rows))
	return BucketStat{
		AgeBucket:          bucket,
		Samples:            len(rows),
		SurvivalLikelihood: &likelihood,
	}
}
