// Package taxi builds per-trip features from the NYC green taxi trip records:
// haversine trip distance, pickup time-of-day split, and a geohash pickup
// cell, joined back onto the trips and summarized by passenger count.
package taxi

import (
	"bufio"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/tabkit/tdk/flow"
	"github.com/tabkit/tdk/flow/boltstore"
	"github.com/tabkit/tdk/flow/leveldbstore"
	"github.com/tabkit/tdk/frame"
)

// Field positions in the green taxi trip records. For field meanings, see
// http://www.nyc.gov/html/tlc/downloads/pdf/data_dictionary_trip_records_green.pdf
const (
	VendorID = iota
	Lpep_pickup_datetime
	Lpep_dropoff_datetime
	Store_and_fwd_flag
	RateCodeID
	Pickup_longitude
	Pickup_latitude
	Dropoff_longitude
	Dropoff_latitude
	Passenger_count
	Trip_distance
)

var layout = "2006-01-02 15:04:05"

// Trip is one parsed trip record.
type Trip struct {
	Pickup     time.Time
	PickupLon  float64
	PickupLat  float64
	DropoffLon float64
	DropoffLat float64
	Passengers int64
}

// Main holds the configuration for the taxi feature pipeline.
type Main struct {
	URLFile     string   `help:"File containing input urls, one per line. Urls may be http or local files."`
	URLs        []string `help:"Input urls (instead of URLFile)."`
	Concurrency int      `help:"Number of goroutines fetching and parsing."`
	CacheDir    string   `help:"Directory for materialized tables."`
	Store       string   `help:"Materialization backend: bolt, leveldb, or none."`
}

// NewMain returns a Main with default settings.
func NewMain() *Main {
	return &Main{
		Concurrency: 1,
		CacheDir:    ".tdk-cache",
		Store:       "bolt",
	}
}

// Run fetches and parses the trip records, then executes the feature flow.
func (m *Main) Run() error {
	urls, err := m.getURLs()
	if err != nil {
		return errors.Wrap(err, "getting urls")
	}
	trips, err := m.load(urls)
	if err != nil {
		return errors.Wrap(err, "loading trips")
	}
	log.Printf("taxi: loaded %d trips", trips.NumRows())

	store, err := m.openStore()
	if err != nil {
		return errors.Wrap(err, "opening store")
	}
	if store != nil {
		defer store.Close()
	}
	res, err := BuildFlow(trips).Run(store)
	if err != nil {
		return errors.Wrap(err, "running flow")
	}
	log.Printf("taxi: %d tasks ran, %d cached", res.Ran, res.CacheHits)
	return nil
}

func (m *Main) getURLs() ([]string, error) {
	if len(m.URLs) > 0 {
		return m.URLs, nil
	}
	f, err := os.Open(m.URLFile)
	if err != nil {
		return nil, errors.Wrap(err, "opening url file")
	}
	defer f.Close()
	var urls []string
	scan := bufio.NewScanner(f)
	for scan.Scan() {
		if line := strings.TrimSpace(scan.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	return urls, errors.Wrap(scan.Err(), "scanning url file")
}

// load fetches every url and parses its lines into trips with m.Concurrency
// goroutines on each side. Lines that fail to parse (headers included) are
// skipped and counted.
func (m *Main) load(urls []string) (*frame.Frame, error) {
	urlChan := make(chan string)
	lines := make(chan string, 128)
	parsed := make(chan Trip, 128)
	var skipped uint64

	go func() {
		for _, url := range urls {
			urlChan <- url
		}
		close(urlChan)
	}()

	var wg sync.WaitGroup
	for i := 0; i < m.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.fetch(urlChan, lines)
		}()
	}
	var wg2 sync.WaitGroup
	for i := 0; i < m.Concurrency; i++ {
		wg2.Add(1)
		go func() {
			defer wg2.Done()
			for line := range lines {
				trip, err := ParseTrip(line)
				if err != nil {
					atomic.AddUint64(&skipped, 1)
					continue
				}
				parsed <- trip
			}
		}()
	}
	go func() {
		wg.Wait()
		close(lines)
		wg2.Wait()
		close(parsed)
	}()

	var trips []Trip
	for trip := range parsed {
		trips = append(trips, trip)
	}
	if n := atomic.LoadUint64(&skipped); n > 0 {
		log.Printf("taxi: skipped %d unparseable lines", n)
	}
	return TripsFrame(trips), nil
}

func (m *Main) fetch(urls <-chan string, lines chan<- string) {
	for url := range urls {
		var err error
		if strings.HasPrefix(url, "http") {
			err = fetchHTTP(url, lines)
		} else {
			err = fetchFile(url, lines)
		}
		if err != nil {
			log.Printf("fetching %s: %v", url, err)
		}
	}
}

func fetchHTTP(url string, lines chan<- string) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Errorf("got status %d", resp.StatusCode)
	}
	return scanLines(resp.Body, lines)
}

func fetchFile(path string, lines chan<- string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return scanLines(f, lines)
}

func scanLines(r io.Reader, lines chan<- string) error {
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		lines <- scan.Text()
	}
	return scan.Err()
}

// ParseTrip parses one comma separated trip record.
func ParseTrip(line string) (Trip, error) {
	fields := strings.Split(line, ",")
	if len(fields) <= Trip_distance {
		return Trip{}, errors.Errorf("expected at least %d fields, got %d", Trip_distance+1, len(fields))
	}
	pickup, err := time.Parse(layout, fields[Lpep_pickup_datetime])
	if err != nil {
		return Trip{}, errors.Wrap(err, "parsing pickup time")
	}
	trip := Trip{Pickup: pickup}
	for _, fl := range []struct {
		idx int
		dst *float64
	}{
		{Pickup_longitude, &trip.PickupLon},
		{Pickup_latitude, &trip.PickupLat},
		{Dropoff_longitude, &trip.DropoffLon},
		{Dropoff_latitude, &trip.DropoffLat},
	} {
		if *fl.dst, err = strconv.ParseFloat(fields[fl.idx], 64); err != nil {
			return Trip{}, errors.Wrapf(err, "parsing field %d", fl.idx)
		}
	}
	if trip.Passengers, err = strconv.ParseInt(fields[Passenger_count], 10, 64); err != nil {
		return Trip{}, errors.Wrap(err, "parsing passenger count")
	}
	return trip, nil
}

// TripsFrame lays parsed trips out as a frame, assigning sequential ids.
func TripsFrame(trips []Trip) *frame.Frame {
	n := len(trips)
	ids := make([]int64, n)
	pickupAt := make([]int64, n)
	plon := make([]float64, n)
	plat := make([]float64, n)
	dlon := make([]float64, n)
	dlat := make([]float64, n)
	passengers := make([]int64, n)
	for i, t := range trips {
		ids[i] = int64(i)
		pickupAt[i] = t.Pickup.Unix()
		plon[i] = t.PickupLon
		plat[i] = t.PickupLat
		dlon[i] = t.DropoffLon
		dlat[i] = t.DropoffLat
		passengers[i] = t.Passengers
	}
	return frame.MustNew(
		frame.NewInt64("id", ids),
		frame.NewInt64("pickup_at", pickupAt),
		frame.NewFloat64("pickup_longitude", plon),
		frame.NewFloat64("pickup_latitude", plat),
		frame.NewFloat64("dropoff_longitude", dlon),
		frame.NewFloat64("dropoff_latitude", dlat),
		frame.NewInt64("passenger_count", passengers),
	)
}

func (m *Main) openStore() (flow.Store, error) {
	switch m.Store {
	case "none", "":
		return nil, nil
	case "bolt":
		if err := os.MkdirAll(m.CacheDir, 0755); err != nil {
			return nil, errors.Wrap(err, "creating cache dir")
		}
		return boltstore.NewStore(filepath.Join(m.CacheDir, "taxi.db"))
	case "leveldb":
		return leveldbstore.NewStore(filepath.Join(m.CacheDir, "taxi-leveldb"))
	}
	return nil, errors.Errorf("unknown store backend '%s'", m.Store)
}

// BuildFlow wires the taxi pipeline: compute each feature table off the raw
// trips, join them back on, then summarize by passenger count.
func BuildFlow(trips *frame.Frame) *flow.Flow {
	fl := flow.New("taxi")

	raw := fl.Stage("raw_input")
	input := raw.Task("read_trips", "1.0.0", 1, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		return []*frame.Frame{trips}, nil
	})

	features := fl.Stage("features")
	one := func(f func(*frame.Frame) (*frame.Frame, error)) flow.TaskFunc {
		return func(ins []*frame.Frame) ([]*frame.Frame, error) {
			out, err := f(ins[0])
			if err != nil {
				return nil, err
			}
			return []*frame.Frame{out}, nil
		}
	}
	dist := features.Task("distance_features", "1.0.0", 1, one(DistanceFeatures), input.Output())
	times := features.Task("time_features", "1.0.0", 1, one(TimeFeatures), input.Output())
	cells := features.Task("cell_features", "1.0.0", 1, one(CellFeatures), input.Output())
	joined := features.Task("join_features", "1.0.0", 1, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		out, err := JoinFeatures(ins[0], ins[1:]...)
		if err != nil {
			return nil, err
		}
		return []*frame.Frame{out}, nil
	}, input.Output(), dist.Output(), times.Output(), cells.Output())

	summary := fl.Stage("summary")
	byPassengers := summary.Task("distance_by_passengers", "1.0.0", 1, one(SummaryTable), joined.Output())

	report := fl.Stage("report")
	report.Task("print_summary", "", 0, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		log.Printf("\n%s", ins[0])
		return nil, nil
	}, byPassengers.Output())

	return fl
}
