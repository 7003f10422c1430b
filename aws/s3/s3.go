// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package s3 provides a tdk.RawSource over the objects in an S3 bucket.
package s3

import (
	"compress/gzip"
	"io"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/pkg/errors"
	"github.com/tabkit/tdk"
)

// RawSource is a tdk.RawSource which hands out a reader per object under a
// bucket prefix. Objects whose keys end in .gz are transparently gunzipped.
type RawSource struct {
	bucket string
	prefix string
	region string

	s3      s3iface.S3API
	objects []*s3.Object
	objIdx  *uint64
}

// SrcOption is a functional option for the s3 RawSource.
type SrcOption func(rs *RawSource)

// OptSrcClient sets the S3 client to use instead of one built from a fresh
// session.
func OptSrcClient(api s3iface.S3API) SrcOption {
	return func(rs *RawSource) {
		rs.s3 = api
	}
}

// NewRawSource lists the objects under prefix in bucket and returns a
// RawSource over them.
func NewRawSource(region, bucket, prefix string, opts ...SrcOption) (*RawSource, error) {
	idx := uint64(0)
	rs := &RawSource{
		region: region,
		bucket: bucket,
		prefix: prefix,

		objIdx: &idx,
	}
	for _, opt := range opts {
		opt(rs)
	}
	if rs.s3 == nil {
		sess, err := session.NewSession(&aws.Config{
			Region: aws.String(rs.region)},
		)
		if err != nil {
			return nil, errors.Wrap(err, "getting new session")
		}
		rs.s3 = s3.New(sess)
	}
	resp, err := rs.s3.ListObjects(&s3.ListObjectsInput{Bucket: aws.String(rs.bucket), Prefix: aws.String(rs.prefix)})
	if err != nil {
		return nil, errors.Wrap(err, "listing objects")
	}
	rs.objects = resp.Contents

	return rs, nil
}

// ParsePath splits an "s3://bucket/prefix" path into its bucket and prefix.
// The prefix may be empty.
func ParsePath(path string) (bucket, prefix string, err error) {
	const scheme = "s3://"
	if !strings.HasPrefix(path, scheme) {
		return "", "", errors.Errorf("expected s3://bucket/prefix, got '%s'", path)
	}
	parts := strings.SplitN(strings.TrimPrefix(path, scheme), "/", 2)
	if parts[0] == "" {
		return "", "", errors.Errorf("no bucket in '%s'", path)
	}
	if len(parts) == 2 {
		prefix = parts[1]
	}
	return parts[0], prefix, nil
}

type objReader struct {
	name string
	body io.ReadCloser
	raw  io.ReadCloser
}

func (o *objReader) Read(buf []byte) (n int, err error) {
	return o.body.Read(buf)
}

func (o *objReader) Close() error {
	err := o.body.Close()
	if o.raw != nil {
		if cerr := o.raw.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (o *objReader) Name() string {
	return o.name
}

// NextReader fetches the next object and returns its body, or io.EOF when
// every object has been handed out. Safe for concurrent use.
func (rs *RawSource) NextReader() (tdk.NamedReadCloser, error) {
	idx := atomic.AddUint64(rs.objIdx, 1) - 1
	if int(idx) >= len(rs.objects) {
		return nil, io.EOF
	}
	obj := rs.objects[idx]

	result, err := rs.s3.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(rs.bucket),
		Key:    aws.String(*obj.Key),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching %v", *obj.Key)
	}
	if !strings.HasSuffix(*obj.Key, ".gz") {
		return &objReader{name: *obj.Key, body: result.Body}, nil
	}
	gz, err := gzip.NewReader(result.Body)
	if err != nil {
		result.Body.Close()
		return nil, errors.Wrapf(err, "gunzipping %v", *obj.Key)
	}
	return &objReader{name: *obj.Key, body: gz, raw: result.Body}, nil
}
