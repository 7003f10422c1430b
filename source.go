package tdk

import "io"

// Source is the interface for getting raw records one at a time. A record is
// typically a map from field name to raw value. Implementations of Source
// should be thread safe. Record returns io.EOF once the source is exhausted.
type Source interface {
	Record() (interface{}, error)
}

// NamedReadCloser is an io.ReadCloser which also knows the name of the thing
// being read (a file name, an object key, a URL).
type NamedReadCloser interface {
	io.ReadCloser
	Name() string
}

// RawSource is the interface for iterating over a series of raw byte streams,
// such as the files in a directory or the objects under an S3 prefix.
// NextReader returns io.EOF when there are no more streams.
type RawSource interface {
	NextReader() (NamedReadCloser, error)
}
