// Package retention removes expired jobs and the stored objects that belong
// to them. Old portraits, scene images, and result videos carry no value once
// the job is past its retention window, and the buckets would otherwise grow
// without bound.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/promoreel/promoreel-api/internal/job"
	"github.com/promoreel/promoreel-api/internal/storage"
)

const (
	// DefaultMaxAge keeps jobs around long enough for callers to collect
	// results across a weekend.
	DefaultMaxAge = 72 * time.Hour
	// DefaultBatchSize bounds how many jobs one sweep touches.
	DefaultBatchSize = 100
)

// Cleaner deletes jobs created before the retention window, together with
// every object the job references.
type Cleaner struct {
	repo      job.Repository
	store     storage.ObjectStore
	buckets   storage.Buckets
	maxAge    time.Duration
	batchSize int
	logger    *slog.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithMaxAge overrides the retention window.
func WithMaxAge(d time.Duration) Option {
	return func(c *Cleaner) {
		c.maxAge = d
	}
}

// WithBatchSize overrides how many jobs one sweep processes.
func WithBatchSize(n int) Option {
	return func(c *Cleaner) {
		c.batchSize = n
	}
}

// WithLogger overrides the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cleaner) {
		c.logger = logger
	}
}

// NewCleaner creates a retention cleaner.
func NewCleaner(repo job.Repository, store storage.ObjectStore, buckets storage.Buckets, opts ...Option) *Cleaner {
	c := &Cleaner{
		repo:      repo,
		store:     store,
		buckets:   buckets,
		maxAge:    DefaultMaxAge,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs one sweep: it lists expired jobs oldest first, deletes their
// stored objects, then removes the rows. Object deletion is best-effort; a
// failed delete is logged and the row is kept so the next sweep retries it.
func (c *Cleaner) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-c.maxAge)

	expired, err := c.repo.ListOlderThan(ctx, cutoff, c.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired jobs: %w", err)
	}

	removed := 0
	for _, j := range expired {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !c.deleteObjects(ctx, j) {
			continue
		}
		if err := c.repo.Delete(ctx, j.ID); err != nil {
			c.logger.Error("delete expired job",
				slog.String("job_id", j.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		c.logger.Info("retention sweep removed jobs",
			slog.Int("removed", removed),
			slog.Time("cutoff", cutoff),
		)
	}
	return removed, nil
}

// RunPeriodically runs a sweep every interval until the context is canceled.
func (c *Cleaner) RunPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Run(ctx); err != nil {
				c.logger.Error("retention sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// deleteObjects removes every object the job references. It returns false if
// any delete failed so the caller keeps the row for the next sweep.
func (c *Cleaner) deleteObjects(ctx context.Context, j *job.Job) bool {
	targets := []struct {
		bucket string
		key    string
	}{
		{c.buckets.Inputs, j.Refs.PortraitKey},
		{c.buckets.Inputs, j.Refs.ProductKey},
		{c.buckets.Scenes, j.Refs.SceneKey},
		{c.buckets.Videos, j.ResultAssetKey},
	}

	ok := true
	for _, t := range targets {
		if t.key == "" {
			continue
		}
		if err := c.store.Delete(ctx, t.bucket, t.key); err != nil {
			c.logger.Error("delete expired object",
				slog.String("job_id", j.ID),
				slog.String("bucket", t.bucket),
				slog.String("key", t.key),
				slog.String("error", err.Error()),
			)
			ok = false
		}
	}
	return ok
}
