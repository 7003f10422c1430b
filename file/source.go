// Package file provides a tdk.RawSource over a file or a directory of
// files.
package file

import (
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/tabkit/tdk"
)

// RawSource is a tdk.RawSource which hands out a reader per file. Files
// ending in .gz are transparently gunzipped.
type RawSource struct {
	files   []string
	fileIdx *uint64
}

// NewRawSource returns a RawSource over the given file, or over every file
// in the given directory.
func NewRawSource(pathname string) (*RawSource, error) {
	fileIdx := uint64(0)
	s := &RawSource{
		fileIdx: &fileIdx,
	}
	info, err := os.Stat(pathname)
	if err != nil {
		return nil, errors.Wrap(err, "statting path")
	}
	if info.IsDir() {
		infos, err := ioutil.ReadDir(pathname)
		if err != nil {
			return nil, errors.Wrap(err, "reading directory")
		}
		s.files = make([]string, 0, len(infos))
		for _, info = range infos {
			s.files = append(s.files, path.Join(pathname, info.Name()))
		}
	} else {
		s.files = []string{pathname}
	}
	return s, nil
}

// NextReader returns a reader over the next file, or io.EOF when every file
// has been handed out. Safe for concurrent use.
func (s *RawSource) NextReader() (tdk.NamedReadCloser, error) {
	idx := atomic.AddUint64(s.fileIdx, 1) - 1
	if int(idx) >= len(s.files) {
		return nil, io.EOF
	}
	name := s.files[idx]
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %v", name)
	}
	if !strings.HasSuffix(name, ".gz") {
		return &metaFile{File: f}, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "gunzipping %v", name)
	}
	return &gzFile{name: filepath.Base(name), gz: gz, f: f}, nil
}

type metaFile struct {
	*os.File
}

func (m *metaFile) Name() string {
	return filepath.Base(m.File.Name())
}

type gzFile struct {
	name string
	gz   *gzip.Reader
	f    *os.File
}

func (g *gzFile) Read(buf []byte) (int, error) { return g.gz.Read(buf) }

func (g *gzFile) Name() string { return g.name }

func (g *gzFile) Close() error {
	if err := g.gz.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}
