package flow

import (
	"encoding/binary"
	"encoding/json"

	"github.com/linkedin/goavro"
	"github.com/pkg/errors"
	"github.com/tabkit/tdk/frame"
)

// Frames are materialized as Avro: a small JSON header describing the
// columns, followed by one Avro-encoded record per row. Every column maps to
// a ["null", <type>] union so null cells round-trip.

type frameHeader struct {
	Fields []frameField `json:"fields"`
	Rows   int          `json:"rows"`
}

type frameField struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type avroField struct {
	Name string   `json:"name"`
	Type []string `json:"type"`
}

type avroRecord struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

func avroType(k frame.Kind) (string, error) {
	switch k {
	case frame.Float64:
		return "double", nil
	case frame.Int64:
		return "long", nil
	case frame.Bool:
		return "boolean", nil
	case frame.String:
		return "string", nil
	}
	return "", errors.Errorf("no avro mapping for column kind %s", k)
}

func kindFor(name string) (frame.Kind, error) {
	switch name {
	case "float64":
		return frame.Float64, nil
	case "int64":
		return frame.Int64, nil
	case "bool":
		return frame.Bool, nil
	case "string":
		return frame.String, nil
	}
	return 0, errors.Errorf("unknown column kind '%s'", name)
}

func codecFor(hdr frameHeader) (*goavro.Codec, error) {
	rec := avroRecord{Type: "record", Name: "Table", Fields: make([]avroField, len(hdr.Fields))}
	for i, f := range hdr.Fields {
		k, err := kindFor(f.Kind)
		if err != nil {
			return nil, err
		}
		at, err := avroType(k)
		if err != nil {
			return nil, err
		}
		rec.Fields[i] = avroField{Name: f.Name, Type: []string{"null", at}}
	}
	schemaJSON, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling avro schema")
	}
	codec, err := goavro.NewCodec(string(schemaJSON))
	if err != nil {
		return nil, errors.Wrap(err, "building avro codec")
	}
	return codec, nil
}

// EncodeFrame serializes a frame to its Avro materialization format.
func EncodeFrame(f *frame.Frame) ([]byte, error) {
	hdr := frameHeader{Rows: f.NumRows()}
	for _, name := range f.Names() {
		hdr.Fields = append(hdr.Fields, frameField{Name: name, Kind: f.Column(name).Kind().String()})
	}
	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		return nil, errors.Wrap(err, "marshaling header")
	}
	codec, err := codecFor(hdr)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, uint64(len(hdrJSON)))
	out := append(buf[:n], hdrJSON...)

	names := f.Names()
	for row := 0; row < f.NumRows(); row++ {
		native := make(map[string]interface{}, len(names))
		for _, name := range names {
			col := f.Column(name)
			if col.IsNull(row) {
				native[name] = nil
				continue
			}
			at, err := avroType(col.Kind())
			if err != nil {
				return nil, err
			}
			native[name] = map[string]interface{}{at: col.Value(row)}
		}
		out, err = codec.BinaryFromNative(out, native)
		if err != nil {
			return nil, errors.Wrapf(err, "encoding row %d", row)
		}
	}
	return out, nil
}

// DecodeFrame deserializes a frame from its Avro materialization format.
func DecodeFrame(data []byte) (*frame.Frame, error) {
	hdrLen, n := binary.Uvarint(data)
	if n <= 0 || uint64(len(data)-n) < hdrLen {
		return nil, errors.New("truncated frame header")
	}
	var hdr frameHeader
	if err := json.Unmarshal(data[n:n+int(hdrLen)], &hdr); err != nil {
		return nil, errors.Wrap(err, "unmarshaling header")
	}
	codec, err := codecFor(hdr)
	if err != nil {
		return nil, err
	}

	bufs := make([]*colBuf, len(hdr.Fields))
	for i, fld := range hdr.Fields {
		k, err := kindFor(fld.Kind)
		if err != nil {
			return nil, err
		}
		at, _ := avroType(k)
		bufs[i] = &colBuf{kind: k, at: at}
	}

	rest := data[n+int(hdrLen):]
	for row := 0; row < hdr.Rows; row++ {
		var native interface{}
		native, rest, err = codec.NativeFromBinary(rest)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding row %d", row)
		}
		rec, ok := native.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("row %d decoded to %T, not a record", row, native)
		}
		for i, fld := range hdr.Fields {
			b := bufs[i]
			cell := rec[fld.Name]
			if cell == nil {
				b.valid = append(b.valid, false)
				appendZero(b)
				continue
			}
			union, ok := cell.(map[string]interface{})
			if !ok {
				return nil, errors.Errorf("field '%s' decoded to %T, not a union", fld.Name, cell)
			}
			b.valid = append(b.valid, true)
			switch b.kind {
			case frame.Float64:
				b.f64 = append(b.f64, union[b.at].(float64))
			case frame.Int64:
				b.i64 = append(b.i64, union[b.at].(int64))
			case frame.Bool:
				b.bs = append(b.bs, union[b.at].(bool))
			case frame.String:
				b.ss = append(b.ss, union[b.at].(string))
			}
		}
	}

	cols := make([]*frame.Series, len(hdr.Fields))
	for i, fld := range hdr.Fields {
		b := bufs[i]
		switch b.kind {
		case frame.Float64:
			cols[i] = frame.NewFloat64Nullable(fld.Name, b.f64, b.valid)
		case frame.Int64:
			cols[i] = frame.NewInt64Nullable(fld.Name, b.i64, b.valid)
		case frame.Bool:
			cols[i] = frame.NewBoolNullable(fld.Name, b.bs, b.valid)
		case frame.String:
			cols[i] = frame.NewStringNullable(fld.Name, b.ss, b.valid)
		}
	}
	return frame.New(cols...)
}

type colBuf struct {
	kind  frame.Kind
	at    string
	f64   []float64
	i64   []int64
	bs    []bool
	ss    []string
	valid []bool
}

func appendZero(b *colBuf) {
	switch b.kind {
	case frame.Float64:
		b.f64 = append(b.f64, 0)
	case frame.Int64:
		b.i64 = append(b.i64, 0)
	case frame.Bool:
		b.bs = append(b.bs, false)
	case frame.String:
		b.ss = append(b.ss, "")
	}
}

// encodeTables packs several encoded frames into one blob.
func encodeTables(frames []*frame.Frame) ([]byte, error) {
	var out []byte
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, uint64(len(frames)))
	out = append(out, buf[:n]...)
	for i, f := range frames {
		enc, err := EncodeFrame(f)
		if err != nil {
			return nil, errors.Wrapf(err, "table %d", i)
		}
		n = binary.PutUvarint(buf, uint64(len(enc)))
		out = append(out, buf[:n]...)
		out = append(out, enc...)
	}
	return out, nil
}

// decodeTables unpacks a blob written by encodeTables.
func decodeTables(blob []byte) ([]*frame.Frame, error) {
	count, n := binary.Uvarint(blob)
	if n <= 0 {
		return nil, errors.New("truncated table blob")
	}
	blob = blob[n:]
	frames := make([]*frame.Frame, 0, count)
	for i := uint64(0); i < count; i++ {
		size, n := binary.Uvarint(blob)
		if n <= 0 || uint64(len(blob)-n) < size {
			return nil, errors.Errorf("truncated table %d", i)
		}
		f, err := DecodeFrame(blob[n : n+int(size)])
		if err != nil {
			return nil, errors.Wrapf(err, "table %d", i)
		}
		frames = append(frames, f)
		blob = blob[n+int(size):]
	}
	return frames, nil
}
