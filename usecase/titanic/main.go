// Package titanic computes survival likelihood per age bucket from the
// classic titanic dataset. The same query runs twice - once row by row, once
// with whole-column frame verbs - and the pipeline checks the two agree,
// alongside a window-function example over ticket fares.
package titanic

import (
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/tabkit/tdk"
	"github.com/tabkit/tdk/aws/s3"
	"github.com/tabkit/tdk/csv"
	"github.com/tabkit/tdk/file"
	"github.com/tabkit/tdk/flow"
	"github.com/tabkit/tdk/flow/boltstore"
	"github.com/tabkit/tdk/flow/leveldbstore"
	"github.com/tabkit/tdk/frame"
	tdkhttp "github.com/tabkit/tdk/http"
	"github.com/tabkit/tdk/kafka"
)

// Main holds the configuration for the titanic pipeline.
type Main struct {
	File     string   `help:"Path to titanic CSV file or directory, or an s3://bucket/prefix."`
	S3Region string   `help:"AWS region for s3:// paths."`
	URLs     []string `help:"Fetch input CSV from these URLs instead of File."`
	CacheDir string   `help:"Directory for materialized tables."`
	Store    string   `help:"Materialization backend: bolt, leveldb, or none."`

	KafkaHosts      []string `help:"Read input records from these kafka brokers instead of File."`
	KafkaTopics     []string `help:"Kafka topics to read from."`
	KafkaGroup      string   `help:"Kafka consumer group."`
	KafkaRegistry   string   `help:"Confluent schema registry URL; when set, messages are registry-encoded Avro instead of json."`
	KafkaMaxRecords int      `help:"Stop after this many kafka records."`
}

// NewMain returns a Main with default settings.
func NewMain() *Main {
	return &Main{
		File:     "titanic.csv",
		S3Region: "us-east-1",
		CacheDir: ".tdk-cache",
		Store:    "bolt",

		KafkaTopics:     []string{"titanic"},
		KafkaGroup:      "tdk-titanic",
		KafkaMaxRecords: 1000,
	}
}

// Run executes the titanic flow.
func (m *Main) Run() error {
	src, err := m.source()
	if err != nil {
		return errors.Wrap(err, "getting source")
	}
	if c, ok := src.(io.Closer); ok {
		defer c.Close()
	}
	store, err := m.openStore()
	if err != nil {
		return errors.Wrap(err, "opening store")
	}
	if store != nil {
		defer store.Close()
	}

	fl := BuildFlow(src)
	res, err := fl.Run(store)
	if err != nil {
		return errors.Wrap(err, "running flow")
	}
	log.Printf("titanic: %d tasks ran, %d cached", res.Ran, res.CacheHits)
	return nil
}

func (m *Main) source() (tdk.Source, error) {
	if len(m.KafkaHosts) > 0 {
		src := m.newKafkaSource()
		if err := src.Open(); err != nil {
			return nil, errors.Wrap(err, "opening kafka source")
		}
		return src, nil
	}
	if len(m.URLs) > 0 {
		return csv.NewSource(tdkhttp.NewRawSource(m.URLs)), nil
	}
	if strings.HasPrefix(m.File, "s3://") {
		bucket, prefix, err := s3.ParsePath(m.File)
		if err != nil {
			return nil, err
		}
		rs, err := s3.NewRawSource(m.S3Region, bucket, prefix)
		if err != nil {
			return nil, errors.Wrap(err, "getting s3 raw source")
		}
		return csv.NewSource(rs), nil
	}
	rs, err := file.NewRawSource(m.File)
	if err != nil {
		return nil, errors.Wrap(err, "getting raw source")
	}
	return csv.NewSource(rs), nil
}

// openSource is the subset of tdk.Source the kafka sources add.
type openSource interface {
	tdk.Source
	Open() error
	Close() error
}

// newKafkaSource builds the configured (but not yet opened) kafka source:
// registry-decoded Avro when KafkaRegistry is set, json otherwise.
func (m *Main) newKafkaSource() openSource {
	if m.KafkaRegistry != "" {
		src := kafka.NewConfluentSource()
		src.RegistryURL = m.KafkaRegistry
		m.configureKafka(&src.Source)
		return src
	}
	src := kafka.NewSource()
	m.configureKafka(src)
	return src
}

func (m *Main) configureKafka(src *kafka.Source) {
	src.Hosts = m.KafkaHosts
	src.Topics = m.KafkaTopics
	src.Group = m.KafkaGroup
	src.MaxRecords = m.KafkaMaxRecords
}

func (m *Main) openStore() (flow.Store, error) {
	switch m.Store {
	case "none", "":
		return nil, nil
	case "bolt":
		if err := os.MkdirAll(m.CacheDir, 0755); err != nil {
			return nil, errors.Wrap(err, "creating cache dir")
		}
		return boltstore.NewStore(filepath.Join(m.CacheDir, "titanic.db"))
	case "leveldb":
		return leveldbstore.NewStore(filepath.Join(m.CacheDir, "titanic-leveldb"))
	}
	return nil, errors.Errorf("unknown store backend '%s'", m.Store)
}

// BuildFlow wires the titanic pipeline: load the data, run the age-bucket
// query both ways plus the fare window example, then check and print.
func BuildFlow(src tdk.Source) *flow.Flow {
	fl := flow.New("titanic")

	raw := fl.Stage("raw_input")
	input := raw.Task("read_input_data", "1.0.0", 1, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		f, err := frame.ReadAll(src, InputSchema)
		if err != nil {
			return nil, errors.Wrap(err, "reading input data")
		}
		// clean step: sloppy exports pad string cells with whitespace
		return []*frame.Frame{f.TrimStrings()}, nil
	})

	transformed := fl.Stage("transformed_data")
	byRows := transformed.Task("rows_agebucket", "1.0.0", 1, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		passengers, err := PassengersFromFrame(ins[0])
		if err != nil {
			return nil, err
		}
		stats, err := AggregateAgeBuckets(passengers)
		if err != nil {
			return nil, err
		}
		return []*frame.Frame{StatsFrame(stats)}, nil
	}, input.Output())
	byFrame := transformed.Task("frame_agebucket", "1.0.0", 1, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		out, err := AgeBucketTable(ins[0])
		if err != nil {
			return nil, err
		}
		return []*frame.Frame{out}, nil
	}, input.Output())
	window := transformed.Task("fare_window", "1.0.0", 1, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		out, err := FareDiffTable(ins[0])
		if err != nil {
			return nil, err
		}
		return []*frame.Frame{out}, nil
	}, input.Output())

	check := fl.Stage("check")
	check.Task("check_consistency", "", 1, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		if err := sameBucketStats(ins[0], ins[1]); err != nil {
			return nil, errors.Wrap(err, "row and frame results disagree")
		}
		return []*frame.Frame{ins[0]}, nil
	}, byRows.Output(), byFrame.Output())
	check.Task("print_tables", "", 0, func(ins []*frame.Frame) ([]*frame.Frame, error) {
		for _, f := range ins {
			log.Printf("\n%s", f)
		}
		return nil, nil
	}, byRows.Output(), byFrame.Output(), window.Output())

	return fl
}

// sameBucketStats verifies two age-bucket summaries match row for row within
// floating point tolerance.
func sameBucketStats(a, b *frame.Frame) error {
	if a.NumRows() != b.NumRows() {
		return errors.Errorf("%d rows vs %d rows", a.NumRows(), b.NumRows())
	}
	for _, col := range []string{"age_bucket", "survival_likelihood"} {
		ca, cb := a.Column(col), b.Column(col)
		if ca == nil || cb == nil {
			return errors.Errorf("missing column '%s'", col)
		}
		for i := 0; i < ca.Len(); i++ {
			if ca.IsNull(i) != cb.IsNull(i) {
				return errors.Errorf("%s row %d: null mismatch", col, i)
			}
			if ca.IsNull(i) {
				continue
			}
			va, _ := ca.AsFloat(i)
			vb, _ := cb.AsFloat(i)
			if math.Abs(va-vb) > 1e-9 {
				return errors.Errorf("%s row %d: %v vs %v", col, i, va, vb)
			}
		}
	}
	sa, sb := a.Column("samples"), b.Column("samples")
	for i := 0; i < a.NumRows(); i++ {
		if sa.Int(i) != sb.Int(i) {
			return errors.Errorf("samples row %d: %d vs %d", i, sa.Int(i), sb.Int(i))
		}
	}
	return nil
}
