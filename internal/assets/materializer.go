// Package assets materializes provider-hosted results into the service's
// own durable storage.
package assets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/promoreel/promoreel-api/internal/storage"
)

// ErrFetchFailed is returned when the provider result could not be fetched.
var ErrFetchFailed = errors.New("assets: fetch result failed")

// Materializer fetches provider result bytes and writes them into the
// videos bucket. The storage key is fully derived from the job id, so
// repeated materialization attempts for the same job overwrite the same
// object and are idempotent at the storage layer.
type Materializer struct {
	httpClient *http.Client
	store      storage.ObjectStore
	bucket     string
}

// Option is a function that configures a Materializer.
type Option func(*Materializer)

// WithHTTPClient sets a custom HTTP client for result downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Materializer) {
		m.httpClient = c
	}
}

// NewMaterializer creates a Materializer writing into the given bucket.
func NewMaterializer(store storage.ObjectStore, bucket string, opts ...Option) *Materializer {
	m := &Materializer{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		store:      store,
		bucket:     bucket,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AssetKey returns the storage key for a job's materialized video.
func AssetKey(jobID string) string {
	return fmt.Sprintf("videos/%s.mp4", jobID)
}

// Materialize downloads the provider result and stores it under the
// job-derived key, returning that key.
func (m *Materializer) Materialize(ctx context.Context, jobID, resultURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrFetchFailed, err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	key := AssetKey(jobID)
	if err := m.store.Put(ctx, m.bucket, key, resp.Body, contentType); err != nil {
		return "", fmt.Errorf("store result for job %s: %w", jobID, err)
	}

	return key, nil
}
