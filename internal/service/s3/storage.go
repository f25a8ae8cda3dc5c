package s3

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by GetObject when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// MetaEncoding is the metadata key naming the object's compression. UploadBytes
// also sends it as the Content-Encoding.
const MetaEncoding = "encoding"

// Object is an open object body with its stored attributes.
type Object interface {
	io.ReadCloser
	ContentLength() int64
	ContentType() string
	Metadata() map[string]string
}

type object struct {
	io.ReadCloser
	contentLength int64
	contentType   string
	metadata      map[string]string
}

func (o *object) ContentLength() int64 {
	return o.contentLength
}

func (o *object) ContentType() string {
	return o.contentType
}

func (o *object) Metadata() map[string]string {
	return o.metadata
}

// Storage is the subset of an S3-compatible bucket the content store needs.
type Storage interface {
	UploadBytes(ctx context.Context, key string, data []byte, meta map[string]string) error
	GetObject(ctx context.Context, key string) (Object, error)
	ObjectExists(ctx context.Context, key string) (bool, error)
	TagObject(ctx context.Context, key string, tags map[string]string) error
}
