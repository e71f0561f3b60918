// Package storage provides the durable object storage capability.
// It defines the ObjectStore interface (port) and implementations for
// S3 and in-memory storage.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when the requested object does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// ObjectStore defines the interface for durable blob storage.
// All keys are scoped by bucket; the service uses one bucket for caller
// inputs, one for composited scene images, and one for materialized videos.
type ObjectStore interface {
	// Put writes the object under the given bucket and key.
	Put(ctx context.Context, bucket, key string, body io.Reader, contentType string) error

	// Get reads the object back. The caller must close the returned reader.
	// Returns ErrObjectNotFound if the object does not exist.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, error)

	// PublicURL returns a retrievable URL for the object without any I/O.
	PublicURL(bucket, key string) string

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
}
