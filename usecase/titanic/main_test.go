package titanic_test

import (
	"io"
	"io/ioutil"
	"math"
	"testing"

	"github.com/tabkit/tdk/csv"
	"github.com/tabkit/tdk/file"
	"github.com/tabkit/tdk/flow"
	"github.com/tabkit/tdk/frame"
	"github.com/tabkit/tdk/usecase/titanic"
)

const testData = `survived,pclass,sex,age,fare
1,1,female,29,211.3375
0,3,male,25,7.925
1,3,female,5,31.3875
0,3,male,5,8.05
1,2,female,,13
0,3,male,,7.75
`

func testSource(t *testing.T) *csv.Source {
	t.Helper()
	d, err := ioutil.TempDir("", "titanictest")
	if err != nil {
		t.Fatal("getting temp dir")
	}
	f, err := ioutil.TempFile(d, "")
	if err != nil {
		t.Fatalf("getting temp file: %v", err)
	}
	if _, err := io.WriteString(f, testData); err != nil {
		t.Fatalf("writing test data: %v", err)
	}
	f.Close()
	rs, err := file.NewRawSource(d)
	if err != nil {
		t.Fatalf("getting raw source: %v", err)
	}
	return csv.NewSource(rs)
}

func TestAgeBucketTable(t *testing.T) {
	f, err := frame.ReadAll(testSource(t), titanic.InputSchema)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	out, err := titanic.AgeBucketTable(f)
	if err != nil {
		t.Fatalf("aggregating: %v", err)
	}

	// buckets: 10 (the two five-year-olds), 30 (29 and 25), null (2 rows)
	if out.NumRows() != 3 {
		t.Fatalf("expected 3 buckets, got %d:\n%s", out.NumRows(), out)
	}
	bucket := out.Column("age_bucket")
	samples := out.Column("samples")
	rate := out.Column("survival_likelihood")

	if bucket.Float(0) != 10 || samples.Int(0) != 2 || math.Abs(rate.Float(0)-0.5) > 1e-12 {
		t.Fatalf("bucket 10: %v %v %v", bucket.Float(0), samples.Int(0), rate.Float(0))
	}
	if bucket.Float(1) != 30 || samples.Int(1) != 2 || math.Abs(rate.Float(1)-0.5) > 1e-12 {
		t.Fatalf("bucket 30: %v %v %v", bucket.Float(1), samples.Int(1), rate.Float(1))
	}
	if !bucket.IsNull(2) || samples.Int(2) != 2 || math.Abs(rate.Float(2)-0.5) > 1e-12 {
		t.Fatalf("null bucket: %v %v", samples.Int(2), rate.Float(2))
	}
}

func TestRowAndFrameAgree(t *testing.T) {
	f, err := frame.ReadAll(testSource(t), titanic.InputSchema)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	passengers, err := titanic.PassengersFromFrame(f)
	if err != nil {
		t.Fatalf("converting: %v", err)
	}
	stats, err := titanic.AggregateAgeBuckets(passengers)
	if err != nil {
		t.Fatalf("aggregating rows: %v", err)
	}
	byRows := titanic.StatsFrame(stats)
	byFrame, err := titanic.AgeBucketTable(f)
	if err != nil {
		t.Fatalf("aggregating frame: %v", err)
	}

	if byRows.NumRows() != byFrame.NumRows() {
		t.Fatalf("row count mismatch: %d vs %d", byRows.NumRows(), byFrame.NumRows())
	}
	for i := 0; i < byRows.NumRows(); i++ {
		br, bf := byRows.Column("age_bucket"), byFrame.Column("age_bucket")
		if br.IsNull(i) != bf.IsNull(i) {
			t.Fatalf("row %d: bucket null mismatch", i)
		}
		if byRows.Column("samples").Int(i) != byFrame.Column("samples").Int(i) {
			t.Fatalf("row %d: samples mismatch", i)
		}
		lr, lf := byRows.Column("survival_likelihood"), byFrame.Column("survival_likelihood")
		if math.Abs(lr.Float(i)-lf.Float(i)) > 1e-9 {
			t.Fatalf("row %d: likelihood mismatch", i)
		}
	}
}

func TestFareDiffTable(t *testing.T) {
	f, err := frame.ReadAll(testSource(t), titanic.InputSchema)
	if err != nil {
		t.Fatalf("loading: %v", err)
	}
	out, err := titanic.FareDiffTable(f)
	if err != nil {
		t.Fatalf("windowing: %v", err)
	}
	idx := out.Column("idx")
	fare := out.Column("fare")
	diff := out.Column("diff_price")
	for i := 0; i < out.NumRows(); i++ {
		if idx.Int(i) != int64(i) {
			t.Fatalf("row %d: expected idx %d, got %d", i, i, idx.Int(i))
		}
		if i+1 < out.NumRows() {
			want := fare.Float(i+1) - fare.Float(i)
			if math.Abs(diff.Float(i)-want) > 1e-9 {
				t.Fatalf("row %d: expected diff %v, got %v", i, want, diff.Float(i))
			}
		} else if !diff.IsNull(i) {
			t.Fatal("expected null diff on the most expensive ticket")
		}
	}
}

func TestFlowRunsAndCaches(t *testing.T) {
	store := flow.NewMemStore()

	res, err := titanic.BuildFlow(testSource(t)).Run(store)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if !res.Successful {
		t.Fatal("first run not successful")
	}
	if res.Ran != 6 || res.CacheHits != 0 {
		t.Fatalf("first run: expected 6 ran / 0 cached, got %d / %d", res.Ran, res.CacheHits)
	}

	// second run: the four versioned tasks come from the store, only the
	// lazy check and print tasks execute
	res, err = titanic.BuildFlow(testSource(t)).Run(store)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Ran != 2 || res.CacheHits != 4 {
		t.Fatalf("second run: expected 2 ran / 4 cached, got %d / %d", res.Ran, res.CacheHits)
	}
}
