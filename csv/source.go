// Package csv provides a tdk.Source over headered CSV data.
package csv

import (
	"encoding/csv"
	"io"

	"github.com/pkg/errors"
	"github.com/tabkit/tdk"
)

// Source is a tdk.Source which reads headered CSV data from a tdk.RawSource,
// yielding one map[string]string per data row. Each underlying stream must
// begin with a header row; empty cells are omitted from the record map so
// schema decoding sees them as nulls.
type Source struct {
	rs tdk.RawSource

	cur    tdk.NamedReadCloser
	reader *csv.Reader
	header []string
}

// NewSource returns a Source over the given raw streams.
func NewSource(rs tdk.RawSource) *Source {
	return &Source{
		rs: rs,
	}
}

// Record returns the next CSV row as a map from header name to cell value,
// advancing across the underlying streams as each is exhausted. Returns
// io.EOF once every stream is drained.
func (s *Source) Record() (interface{}, error) {
	for {
		if s.cur == nil {
			cur, err := s.rs.NextReader()
			if err != nil {
				return nil, err
			}
			s.cur = cur
			s.reader = csv.NewReader(cur)
			s.reader.TrimLeadingSpace = true
			header, err := s.reader.Read()
			if err == io.EOF {
				s.closeCur()
				continue
			}
			if err != nil {
				return nil, errors.Wrapf(err, "reading header of %s", cur.Name())
			}
			if err := validateHeader(header); err != nil {
				s.closeCur()
				return nil, errors.Wrapf(err, "validating header of %s", cur.Name())
			}
			s.header = header
		}
		row, err := s.reader.Read()
		if err == io.EOF {
			s.closeCur()
			continue
		}
		if err != nil {
			name := s.cur.Name()
			s.closeCur()
			return nil, errors.Wrapf(err, "reading %s", name)
		}
		record := make(map[string]string, len(s.header))
		for i, h := range s.header {
			if row[i] == "" {
				continue
			}
			record[h] = row[i]
		}
		return record, nil
	}
}

func (s *Source) closeCur() {
	s.cur.Close()
	s.cur = nil
	s.reader = nil
	s.header = nil
}

func validateHeader(header []string) error {
	fields := make(map[string]int)
	for i, h := range header {
		if h == "" {
			return errors.Errorf("header contains empty string at %d: %v", i, header)
		}
		if pos, exists := fields[h]; exists {
			return errors.Errorf("%s appeared at both %d and %d in header", h, pos, i)
		}
		fields[h] = i
	}
	return nil
}
