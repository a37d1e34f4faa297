// Package cropstore persists diagnostic badge crops to a local directory or S3.
package cropstore

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/aws/aws-sdk-go/service/s3/s3manager/s3manageriface"
	"github.com/disintegration/imaging"
)

// Suffix is appended to every stored crop. Capture scanners skip files carrying it.
const Suffix = ".crop.png"

// Local writes crops as PNG files under Dir.
type Local struct {
	Dir string
}

// NewLocal creates dir if needed.
func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		return nil, errors.New("crop dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create crop dir: %w", err)
	}
	return &Local{Dir: dir}, nil
}

func (l *Local) Put(name string, img image.Image) error {
	return imaging.Save(img, filepath.Join(l.Dir, filepath.Base(name)+Suffix))
}

// S3 uploads crops to Bucket under Prefix.
type S3 struct {
	Bucket   string
	Prefix   string
	uploader s3manageriface.UploaderAPI
}

// NewS3 opens an AWS session for region and returns a sink for bucket.
func NewS3(region, bucket, prefix string) (*S3, error) {
	if bucket == "" {
		return nil, errors.New("crop bucket is empty")
	}
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return &S3{Bucket: bucket, Prefix: prefix, uploader: s3manager.NewUploader(sess)}, nil
}

// Key returns the object key used for name.
func (s *S3) Key(name string) string {
	return path.Join(s.Prefix, name+Suffix)
}

func (s *S3) Put(name string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	_, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(s.Key(name)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

// Sink is the subset of ocr.CropSink implemented here.
type Sink interface {
	Put(name string, img image.Image) error
}

// Open returns the configured sinks: a local directory, an S3 bucket, both, or nil
// when neither is set.
func Open(dir, bucket, region, prefix string) (Sink, error) {
	var sinks []Sink
	if dir != "" {
		l, err := NewLocal(dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, l)
	}
	if bucket != "" {
		s, err := NewS3(region, bucket, prefix)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}
	switch len(sinks) {
	case 0:
		return nil, nil
	case 1:
		return sinks[0], nil
	}
	return Multi(sinks...), nil
}

type multi []Sink

// Multi fans every crop out to all sinks and returns the first error.
func Multi(sinks ...Sink) Sink {
	var out multi
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multi) Put(name string, img image.Image) error {
	var first error
	for _, s := range m {
		if err := s.Put(name, img); err != nil && first == nil {
			first = err
		}
	}
	return first
}
