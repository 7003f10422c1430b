package s3

import (
	"bytes"
	"compress/gzip"
	"io"
	"io/ioutil"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
)

type fakeS3 struct {
	s3iface.S3API
	order   []string
	objects map[string][]byte
}

func (f *fakeS3) ListObjects(in *awss3.ListObjectsInput) (*awss3.ListObjectsOutput, error) {
	out := &awss3.ListObjectsOutput{}
	for _, key := range f.order {
		if strings.HasPrefix(key, aws.StringValue(in.Prefix)) {
			out.Contents = append(out.Contents, &awss3.Object{Key: aws.String(key)})
		}
	}
	return out, nil
}

func (f *fakeS3) GetObject(in *awss3.GetObjectInput) (*awss3.GetObjectOutput, error) {
	body, ok := f.objects[aws.StringValue(in.Key)]
	if !ok {
		return nil, errors.Errorf("no such key '%s'", aws.StringValue(in.Key))
	}
	return &awss3.GetObjectOutput{Body: ioutil.NopCloser(bytes.NewReader(body))}, nil
}

func mustGzip(t *testing.T, data string) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)
	if _, err := gz.Write([]byte(data)); err != nil {
		t.Fatalf("gzipping: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	return buf.Bytes()
}

func TestRawSource(t *testing.T) {
	fake := &fakeS3{
		order: []string{"data/part-0.csv", "data/part-1.csv.gz", "other/skip.csv"},
		objects: map[string][]byte{
			"data/part-0.csv":    []byte("a,b\n1,2\n"),
			"data/part-1.csv.gz": mustGzip(t, "a,b\n3,4\n"),
			"other/skip.csv":     []byte("nope"),
		},
	}
	rs, err := NewRawSource("us-east-1", "mybucket", "data/", OptSrcClient(fake))
	if err != nil {
		t.Fatalf("getting raw source: %v", err)
	}

	want := map[string]string{
		"data/part-0.csv":    "a,b\n1,2\n",
		"data/part-1.csv.gz": "a,b\n3,4\n",
	}
	for i := 0; i < len(want); i++ {
		rc, err := rs.NextReader()
		if err != nil {
			t.Fatalf("reader %d: %v", i, err)
		}
		content, ok := want[rc.Name()]
		if !ok {
			t.Fatalf("unexpected object '%s'", rc.Name())
		}
		got, err := ioutil.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading %s: %v", rc.Name(), err)
		}
		if string(got) != content {
			t.Fatalf("%s: expected %q, got %q", rc.Name(), content, got)
		}
		if err := rc.Close(); err != nil {
			t.Fatalf("closing %s: %v", rc.Name(), err)
		}
		delete(want, rc.Name())
	}
	if _, err := rs.NextReader(); err != io.EOF {
		t.Fatalf("expected EOF after all objects, got %v", err)
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		path   string
		bucket string
		prefix string
		ok     bool
	}{
		{"s3://mybucket/data/trips", "mybucket", "data/trips", true},
		{"s3://mybucket", "mybucket", "", true},
		{"s3://mybucket/", "mybucket", "", true},
		{"s3:///data", "", "", false},
		{"http://mybucket/data", "", "", false},
		{"mybucket/data", "", "", false},
	}
	for _, test := range tests {
		bucket, prefix, err := ParsePath(test.path)
		if test.ok != (err == nil) {
			t.Fatalf("%s: unexpected err %v", test.path, err)
		}
		if bucket != test.bucket || prefix != test.prefix {
			t.Fatalf("%s: got bucket '%s' prefix '%s'", test.path, bucket, prefix)
		}
	}
}
