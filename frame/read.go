package frame

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tabkit/tdk"
)

// ReadAll drains a record source through a schema and assembles the decoded
// records into a Frame, one column per schema field, in schema order. Time
// fields are stored as int64 unix seconds.
func ReadAll(src tdk.Source, schema tdk.Schema) (*Frame, error) {
	cols := make([]*Series, len(schema))
	for i, field := range schema {
		cols[i] = newSeries(field.Name, kindFor(field.Type))
	}

	for {
		rec, err := src.Record()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading record")
		}
		vals, err := schema.Decode(rec)
		if err != nil {
			return nil, errors.Wrap(err, "decoding record")
		}
		for i, field := range schema {
			v := vals[field.Name]
			if t, ok := v.(time.Time); ok {
				v = t.Unix()
			}
			if err := cols[i].append(v); err != nil {
				return nil, errors.Wrapf(err, "field '%s'", field.Name)
			}
		}
	}
	return New(cols...)
}

func kindFor(t tdk.FieldType) Kind {
	switch t {
	case tdk.FloatField:
		return Float64
	case tdk.IntField, tdk.TimeField:
		return Int64
	case tdk.BoolField:
		return Bool
	}
	return String
}
