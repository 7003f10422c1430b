package file_test

import (
	"compress/gzip"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/tabkit/tdk/file"
)

func TestRawSourceDir(t *testing.T) {
	d, err := ioutil.TempDir("", "filesource")
	if err != nil {
		t.Fatal("getting temp dir")
	}
	for _, contents := range []string{"one", "two"} {
		f, err := ioutil.TempFile(d, "")
		if err != nil {
			t.Fatalf("getting temp file: %v", err)
		}
		if _, err := io.WriteString(f, contents); err != nil {
			t.Fatalf("writing contents: %v", err)
		}
		f.Close()
	}

	rs, err := file.NewRawSource(d)
	if err != nil {
		t.Fatalf("getting raw source: %v", err)
	}
	seen := 0
	for {
		r, err := rs.NextReader()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next reader: %v", err)
		}
		body, err := ioutil.ReadAll(r)
		if err != nil {
			t.Fatalf("reading: %v", err)
		}
		if string(body) != "one" && string(body) != "two" {
			t.Fatalf("unexpected contents: %q", body)
		}
		r.Close()
		seen++
	}
	if seen != 2 {
		t.Fatalf("expected 2 readers, got %d", seen)
	}
}

func TestRawSourceGzip(t *testing.T) {
	d, err := ioutil.TempDir("", "filesourcegz")
	if err != nil {
		t.Fatal("getting temp dir")
	}
	name := filepath.Join(d, "data.csv.gz")
	f, err := os.Create(name)
	if err != nil {
		t.Fatalf("creating file: %v", err)
	}
	gz := gzip.NewWriter(f)
	if _, err := io.WriteString(gz, "age,survived\n5,1\n"); err != nil {
		t.Fatalf("writing gzip: %v", err)
	}
	gz.Close()
	f.Close()

	rs, err := file.NewRawSource(name)
	if err != nil {
		t.Fatalf("getting raw source: %v", err)
	}
	r, err := rs.NextReader()
	if err != nil {
		t.Fatalf("next reader: %v", err)
	}
	body, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("reading: %v", err)
	}
	if string(body) != "age,survived\n5,1\n" {
		t.Fatalf("unexpected contents: %q", body)
	}
	if r.Name() != "data.csv.gz" {
		t.Fatalf("unexpected name: %s", r.Name())
	}
	r.Close()
	if _, err := rs.NextReader(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}
