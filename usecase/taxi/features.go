package taxi

import (
	"math"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/pkg/errors"
	"github.com/tabkit/tdk/frame"
)

const (
	earthRadiusKm = 6371.0
	cellPrecision = 7
)

// Haversine returns the great-circle distance in kilometers between two
// points given in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := rlat2 - rlat1
	dlon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// DistanceFeatures computes the haversine trip distance from the pickup and
// dropoff coordinates. Output has one row per trip: id, trip_km.
func DistanceFeatures(trips *frame.Frame) (*frame.Frame, error) {
	cols, err := tripColumns(trips, "pickup_latitude", "pickup_longitude", "dropoff_latitude", "dropoff_longitude")
	if err != nil {
		return nil, err
	}
	n := trips.NumRows()
	km := make([]float64, n)
	for i := 0; i < n; i++ {
		km[i] = Haversine(cols[0].Float(i), cols[1].Float(i), cols[2].Float(i), cols[3].Float(i))
	}
	out, err := trips.Mutate(frame.NewFloat64("trip_km", km))
	if err != nil {
		return nil, errors.Wrap(err, "mutating trip_km")
	}
	return out.Select("id", "trip_km")
}

// TimeFeatures splits the pickup timestamp into day of week (Sunday=0), hour
// and minute. Output has one row per trip: id, pickup_dayofweek, pickup_hour,
// pickup_minute.
func TimeFeatures(trips *frame.Frame) (*frame.Frame, error) {
	cols, err := tripColumns(trips, "pickup_at")
	if err != nil {
		return nil, err
	}
	n := trips.NumRows()
	dow := make([]int64, n)
	hour := make([]int64, n)
	minute := make([]int64, n)
	for i := 0; i < n; i++ {
		t := time.Unix(cols[0].Int(i), 0).UTC()
		dow[i] = int64(t.Weekday())
		hour[i] = int64(t.Hour())
		minute[i] = int64(t.Minute())
	}
	out := trips
	for _, s := range []*frame.Series{
		frame.NewInt64("pickup_dayofweek", dow),
		frame.NewInt64("pickup_hour", hour),
		frame.NewInt64("pickup_minute", minute),
	} {
		if out, err = out.Mutate(s); err != nil {
			return nil, errors.Wrap(err, "mutating time feature")
		}
	}
	return out.Select("id", "pickup_dayofweek", "pickup_hour", "pickup_minute")
}

// CellFeatures geohashes the pickup coordinates into a coarse grid cell so
// trips can be grouped by neighborhood. Output: id, pickup_cell.
func CellFeatures(trips *frame.Frame) (*frame.Frame, error) {
	cols, err := tripColumns(trips, "pickup_latitude", "pickup_longitude")
	if err != nil {
		return nil, err
	}
	n := trips.NumRows()
	cells := make([]string, n)
	for i := 0; i < n; i++ {
		cells[i] = geohash.EncodeWithPrecision(cols[0].Float(i), cols[1].Float(i), cellPrecision)
	}
	out, err := trips.Mutate(frame.NewString("pickup_cell", cells))
	if err != nil {
		return nil, errors.Wrap(err, "mutating pickup_cell")
	}
	return out.Select("id", "pickup_cell")
}

// JoinFeatures left joins each feature table onto the trips by id.
func JoinFeatures(trips *frame.Frame, features ...*frame.Frame) (*frame.Frame, error) {
	out := trips
	var err error
	for _, f := range features {
		if out, err = out.LeftJoin(f, "id"); err != nil {
			return nil, errors.Wrap(err, "joining features")
		}
	}
	return out, nil
}

// SummaryTable aggregates mean trip distance and trip count by passenger
// count.
func SummaryTable(trips *frame.Frame) (*frame.Frame, error) {
	return trips.GroupBy("passenger_count",
		frame.CountAgg("trips"),
		frame.MeanAgg("mean_trip_km", "trip_km"),
	)
}

func tripColumns(f *frame.Frame, names ...string) ([]*frame.Series, error) {
	cols := make([]*frame.Series, len(names))
	for i, name := range names {
		if cols[i] = f.Column(name); cols[i] == nil {
			return nil, errors.Errorf("no '%s' column", name)
		}
	}
	return cols, nil
}
