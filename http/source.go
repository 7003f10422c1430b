// Package http provides a tdk.RawSource which fetches data files over HTTP.
package http

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tabkit/tdk"
)

// RawSource is a tdk.RawSource which hands out a reader per URL. Responses
// for URLs ending in .gz are transparently gunzipped.
type RawSource struct {
	urls   []string
	urlIdx *uint64
	client *http.Client
}

// SrcOption is a functional option for the http RawSource.
type SrcOption func(rs *RawSource)

// OptSrcClient sets the http client used for fetching. The default client is
// used otherwise.
func OptSrcClient(client *http.Client) SrcOption {
	return func(rs *RawSource) {
		rs.client = client
	}
}

// NewRawSource returns a RawSource over the given URLs, fetched in order.
func NewRawSource(urls []string, opts ...SrcOption) *RawSource {
	urlIdx := uint64(0)
	rs := &RawSource{
		urls:   urls,
		urlIdx: &urlIdx,
		client: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(rs)
	}
	return rs
}

// NextReader fetches the next URL and returns its body, or io.EOF when every
// URL has been fetched. Safe for concurrent use.
func (rs *RawSource) NextReader() (tdk.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.urlIdx, 1) - 1
	if int(idx) >= len(rs.urls) {
		return nil, io.EOF
	}
	url := rs.urls[idx]
	resp, err := rs.client.Get(url)
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", url)
	}
	if resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, errors.Errorf("fetching %v: status %d", url, resp.StatusCode)
	}
	if !strings.HasSuffix(url, ".gz") {
		return &urlReader{name: url, body: resp.Body}, nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, errors.Wrapf(err, "gunzipping %v", url)
	}
	return &urlReader{name: url, body: gz, raw: resp.Body}, nil
}

type urlReader struct {
	name string
	body io.ReadCloser
	raw  io.ReadCloser
}

func (u *urlReader) Read(buf []byte) (int, error) { return u.body.Read(buf) }

func (u *urlReader) Name() string { return u.name }

func (u *urlReader) Close() error {
	err := u.body.Close()
	if u.raw != nil {
		if cerr := u.raw.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
