package taxi_test

import (
	"math"
	"testing"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/tabkit/tdk/flow"
	"github.com/tabkit/tdk/usecase/taxi"
)

func TestHaversine(t *testing.T) {
	if d := taxi.Haversine(40.7, -74.0, 40.7, -74.0); d != 0 {
		t.Fatalf("expected zero distance, got %v", d)
	}
	// one degree of longitude along the equator
	if d := taxi.Haversine(0, 0, 0, 1); math.Abs(d-111.195) > 0.01 {
		t.Fatalf("expected ~111.195 km, got %v", d)
	}
	a := taxi.Haversine(40.75, -73.99, 40.69, -73.98)
	b := taxi.Haversine(40.69, -73.98, 40.75, -73.99)
	if math.Abs(a-b) > 1e-12 {
		t.Fatalf("distance not symmetric: %v vs %v", a, b)
	}
}

func TestParseTrip(t *testing.T) {
	line := "2,2013-08-02 14:30:00,2013-08-02 14:45:00,N,1,-73.99,40.75,-73.98,40.69,2,3.1"
	trip, err := taxi.ParseTrip(line)
	if err != nil {
		t.Fatalf("parsing: %v", err)
	}
	want := time.Date(2013, 8, 2, 14, 30, 0, 0, time.UTC)
	if !trip.Pickup.Equal(want) {
		t.Fatalf("expected pickup %v, got %v", want, trip.Pickup)
	}
	if trip.PickupLon != -73.99 || trip.PickupLat != 40.75 {
		t.Fatalf("bad pickup coords: %v %v", trip.PickupLon, trip.PickupLat)
	}
	if trip.DropoffLon != -73.98 || trip.DropoffLat != 40.69 {
		t.Fatalf("bad dropoff coords: %v %v", trip.DropoffLon, trip.DropoffLat)
	}
	if trip.Passengers != 2 {
		t.Fatalf("expected 2 passengers, got %d", trip.Passengers)
	}

	header := "VendorID,lpep_pickup_datetime,Lpep_dropoff_datetime,Store_and_fwd_flag,RateCodeID,Pickup_longitude,Pickup_latitude,Dropoff_longitude,Dropoff_latitude,Passenger_count,Trip_distance"
	if _, err := taxi.ParseTrip(header); err == nil {
		t.Fatal("expected header line to fail parsing")
	}
	if _, err := taxi.ParseTrip("1,2"); err == nil {
		t.Fatal("expected short line to fail parsing")
	}
}

func testTrips() []taxi.Trip {
	pickup := time.Date(2013, 8, 2, 14, 30, 0, 0, time.UTC)
	return []taxi.Trip{
		{Pickup: pickup, PickupLat: 40.75, PickupLon: -73.99, DropoffLat: 40.69, DropoffLon: -73.98, Passengers: 1},
		{Pickup: pickup.Add(26 * time.Hour), PickupLat: 40.70, PickupLon: -73.95, DropoffLat: 40.75, DropoffLon: -73.99, Passengers: 1},
		{Pickup: pickup.Add(45 * time.Minute), PickupLat: 40.80, PickupLon: -73.96, DropoffLat: 40.80, DropoffLon: -73.96, Passengers: 3},
	}
}

func TestFeatures(t *testing.T) {
	trips := taxi.TripsFrame(testTrips())

	dist, err := taxi.DistanceFeatures(trips)
	if err != nil {
		t.Fatalf("distance features: %v", err)
	}
	km := dist.Column("trip_km")
	want := taxi.Haversine(40.75, -73.99, 40.69, -73.98)
	if math.Abs(km.Float(0)-want) > 1e-9 {
		t.Fatalf("trip 0: expected %v km, got %v", want, km.Float(0))
	}
	if km.Float(2) != 0 {
		t.Fatalf("trip 2 goes nowhere, got %v km", km.Float(2))
	}

	times, err := taxi.TimeFeatures(trips)
	if err != nil {
		t.Fatalf("time features: %v", err)
	}
	// trip 0 picked up Friday 14:30, trip 1 a day later at 16:30
	if d := times.Column("pickup_dayofweek"); d.Int(0) != 5 || d.Int(1) != 6 {
		t.Fatalf("bad day of week: %d %d", d.Int(0), d.Int(1))
	}
	if h := times.Column("pickup_hour"); h.Int(0) != 14 || h.Int(1) != 16 {
		t.Fatalf("bad hour: %d %d", h.Int(0), h.Int(1))
	}
	if mn := times.Column("pickup_minute"); mn.Int(0) != 30 || mn.Int(2) != 15 {
		t.Fatalf("bad minute: %d %d", mn.Int(0), mn.Int(2))
	}

	cells, err := taxi.CellFeatures(trips)
	if err != nil {
		t.Fatalf("cell features: %v", err)
	}
	if got, want := cells.Column("pickup_cell").Str(0), geohash.EncodeWithPrecision(40.75, -73.99, 7); got != want {
		t.Fatalf("expected cell %s, got %s", want, got)
	}

	joined, err := taxi.JoinFeatures(trips, dist, times, cells)
	if err != nil {
		t.Fatalf("joining: %v", err)
	}
	if joined.NumRows() != trips.NumRows() {
		t.Fatalf("join changed row count: %d", joined.NumRows())
	}
	for _, col := range []string{"trip_km", "pickup_dayofweek", "pickup_cell", "passenger_count"} {
		if joined.Column(col) == nil {
			t.Fatalf("joined frame missing '%s'", col)
		}
	}
	if math.Abs(joined.Column("trip_km").Float(0)-km.Float(0)) > 1e-12 {
		t.Fatal("join scrambled trip_km values")
	}
}

func TestSummaryTable(t *testing.T) {
	trips := taxi.TripsFrame(testTrips())
	dist, err := taxi.DistanceFeatures(trips)
	if err != nil {
		t.Fatalf("distance features: %v", err)
	}
	joined, err := taxi.JoinFeatures(trips, dist)
	if err != nil {
		t.Fatalf("joining: %v", err)
	}
	sum, err := taxi.SummaryTable(joined)
	if err != nil {
		t.Fatalf("summarizing: %v", err)
	}
	if sum.NumRows() != 2 {
		t.Fatalf("expected 2 passenger-count groups, got %d", sum.NumRows())
	}
	pc := sum.Column("passenger_count")
	trs := sum.Column("trips")
	if pc.Int(0) != 1 || trs.Int(0) != 2 {
		t.Fatalf("group 0: passenger_count %d, trips %d", pc.Int(0), trs.Int(0))
	}
	if pc.Int(1) != 3 || trs.Int(1) != 1 {
		t.Fatalf("group 1: passenger_count %d, trips %d", pc.Int(1), trs.Int(1))
	}
	km0 := taxi.Haversine(40.75, -73.99, 40.69, -73.98)
	km1 := taxi.Haversine(40.70, -73.95, 40.75, -73.99)
	if got := sum.Column("mean_trip_km").Float(0); math.Abs(got-(km0+km1)/2) > 1e-9 {
		t.Fatalf("expected mean %v, got %v", (km0+km1)/2, got)
	}
	if got := sum.Column("mean_trip_km").Float(1); got != 0 {
		t.Fatalf("stationary trip group should average 0, got %v", got)
	}
}

func TestBuildFlowCaches(t *testing.T) {
	store := flow.NewMemStore()
	trips := taxi.TripsFrame(testTrips())

	res, err := taxi.BuildFlow(trips).Run(store)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if res.Ran != 7 || res.CacheHits != 0 {
		t.Fatalf("first run: expected 7 ran / 0 cached, got %d / %d", res.Ran, res.CacheHits)
	}

	res, err = taxi.BuildFlow(trips).Run(store)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Ran != 1 || res.CacheHits != 6 {
		t.Fatalf("second run: expected 1 ran / 6 cached, got %d / %d", res.Ran, res.CacheHits)
	}
}
