package titanic_test

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/tabkit/tdk/usecase/titanic"
)

func fp(v float64) *float64 { return &v }

func TestAggregateExample(t *testing.T) {
	stats, err := titanic.AggregateAgeBuckets([]titanic.Passenger{
		{Age: fp(5), Survived: 1},
		{Age: fp(5), Survived: 0},
		{Age: fp(25), Survived: 1},
	})
	if err != nil {
		t.Fatalf("aggregating: %v", err)
	}
	want := []titanic.BucketStat{
		{AgeBucket: fp(10), Samples: 2, SurvivalLikelihood: fp(0.5)},
		{AgeBucket: fp(30), Samples: 1, SurvivalLikelihood: fp(1.0)},
	}
	if len(stats) != len(want) {
		t.Fatalf("expected %d buckets, got %d", len(want), len(stats))
	}
	for i := range want {
		if *stats[i].AgeBucket != *want[i].AgeBucket {
			t.Fatalf("bucket %d: expected %v, got %v", i, *want[i].AgeBucket, *stats[i].AgeBucket)
		}
		if stats[i].Samples != want[i].Samples {
			t.Fatalf("bucket %d: expected %d samples, got %d", i, want[i].Samples, stats[i].Samples)
		}
		if math.Abs(*stats[i].SurvivalLikelihood-*want[i].SurvivalLikelihood) > 1e-12 {
			t.Fatalf("bucket %d: expected likelihood %v, got %v", i, *want[i].SurvivalLikelihood, *stats[i].SurvivalLikelihood)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	stats, err := titanic.AggregateAgeBuckets(nil)
	if err != nil {
		t.Fatalf("aggregating: %v", err)
	}
	if len(stats) != 0 {
		t.Fatalf("expected empty output, got %d buckets", len(stats))
	}
}

func TestAggregateAllNullAges(t *testing.T) {
	stats, err := titanic.AggregateAgeBuckets([]titanic.Passenger{
		{Survived: 1},
		{Survived: 0},
		{Survived: 1},
	})
	if err != nil {
		t.Fatalf("aggregating: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 bucket, got %d", len(stats))
	}
	if stats[0].AgeBucket != nil {
		t.Fatalf("expected null bucket, got %v", *stats[0].AgeBucket)
	}
	if stats[0].Samples != 3 {
		t.Fatalf("expected 3 samples, got %d", stats[0].Samples)
	}
	if math.Abs(*stats[0].SurvivalLikelihood-2.0/3.0) > 1e-12 {
		t.Fatalf("expected likelihood 2/3, got %v", *stats[0].SurvivalLikelihood)
	}
}

func TestAggregateProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	passengers := make([]titanic.Passenger, 500)
	for i := range passengers {
		if rng.Intn(5) > 0 {
			passengers[i].Age = fp(float64(rng.Intn(80)) + rng.Float64())
		}
		passengers[i].Survived = rng.Intn(2)
	}

	stats, err := titanic.AggregateAgeBuckets(passengers)
	if err != nil {
		t.Fatalf("aggregating: %v", err)
	}

	// samples across buckets account for every input row
	total := 0
	for _, s := range stats {
		total += s.Samples
	}
	if total != len(passengers) {
		t.Fatalf("samples sum to %d, expected %d", total, len(passengers))
	}

	// buckets are distinct, ascending, null last
	for i := 1; i < len(stats); i++ {
		prev, cur := stats[i-1].AgeBucket, stats[i].AgeBucket
		if prev == nil {
			t.Fatalf("null bucket at %d is not last", i-1)
		}
		if cur != nil && *cur <= *prev {
			t.Fatalf("buckets not strictly ascending at %d: %v then %v", i, *prev, *cur)
		}
	}

	// likelihood is the mean of survived within each bucket
	for _, s := range stats {
		sum, n := 0, 0
		for _, p := range passengers {
			switch {
			case p.Age == nil && s.AgeBucket == nil:
			case p.Age != nil && s.AgeBucket != nil && titanic.AgeBucket(*p.Age) == *s.AgeBucket:
			default:
				continue
			}
			sum += p.Survived
			n++
		}
		if n != s.Samples {
			t.Fatalf("bucket %v: recount gives %d samples, aggregator says %d", s.AgeBucket, n, s.Samples)
		}
		if math.Abs(*s.SurvivalLikelihood-float64(sum)/float64(n)) > 1e-9 {
			t.Fatalf("bucket %v: likelihood mismatch", s.AgeBucket)
		}
	}

	// idempotence
	again, err := titanic.AggregateAgeBuckets(passengers)
	if err != nil {
		t.Fatalf("re-aggregating: %v", err)
	}
	if !reflect.DeepEqual(statValues(stats), statValues(again)) {
		t.Fatal("two runs over the same input disagree")
	}
}

func statValues(stats []titanic.BucketStat) [][3]float64 {
	out := make([][3]float64, len(stats))
	for i, s := range stats {
		// -1 marks nulls; buckets and likelihoods are never negative
		v := [3]float64{-1, float64(s.Samples), -1}
		if s.AgeBucket != nil {
			v[0] = *s.AgeBucket
		}
		if s.SurvivalLikelihood != nil {
			v[2] = *s.SurvivalLikelihood
		}
		out[i] = v
	}
	return out
}

func TestAggregateRejectsBadSurvived(t *testing.T) {
	_, err := titanic.AggregateAgeBuckets([]titanic.Passenger{{Age: fp(30), Survived: 2}})
	if err == nil {
		t.Fatal("expected validation error for survived out of range")
	}
}

func TestAgeBucketBoundaries(t *testing.T) {
	cases := map[float64]float64{
		0:    0,
		4:    10, // 8.999/10 rounds to 1
		5:    10,
		14:   20, // 18.999/10 rounds to 2
		15:   20,
		25:   30,
		80:   80, // 84.999/10 rounds to 8
		0.01: 10, // 5.009/10 rounds up
	}
	for age, want := range cases {
		if got := titanic.AgeBucket(age); got != want {
			t.Fatalf("AgeBucket(%v): expected %v, got %v", age, want, got)
		}
	}
}
