package retention

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promoreel/promoreel-api/internal/job"
	"github.com/promoreel/promoreel-api/internal/storage"
)

var testBuckets = storage.Buckets{
	Inputs: "inputs",
	Scenes: "scenes",
	Videos: "videos",
}

func insertJobAt(t *testing.T, repo *job.MemoryRepository, age time.Duration, refs job.InputRefs) *job.Job {
	t.Helper()
	j := job.New(job.KindLipSync, refs, job.Params{Script: "hello"})
	j.CreatedAt = time.Now().UTC().Add(-age)
	require.NoError(t, repo.Insert(context.Background(), j))
	return j
}

func putObject(t *testing.T, store *storage.MemoryStore, bucket, key string) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), bucket, key, strings.NewReader("x"), "application/octet-stream"))
}

func TestCleaner_Run_RemovesExpiredJobsAndObjects(t *testing.T) {
	ctx := context.Background()
	repo := job.NewMemoryRepository()
	store := storage.NewMemoryStore()

	old := insertJobAt(t, repo, 100*time.Hour, job.InputRefs{
		PortraitKey: "p.png",
		SceneKey:    "scene.png",
	})
	require.NoError(t, repo.MarkProcessing(ctx, old.ID, "tlk-1"))
	require.NoError(t, repo.MarkDone(ctx, old.ID, "videos/"+old.ID+".mp4"))

	putObject(t, store, testBuckets.Inputs, "p.png")
	putObject(t, store, testBuckets.Scenes, "scene.png")
	putObject(t, store, testBuckets.Videos, "videos/"+old.ID+".mp4")

	fresh := insertJobAt(t, repo, time.Hour, job.InputRefs{PortraitKey: "fresh.png"})
	putObject(t, store, testBuckets.Inputs, "fresh.png")

	cleaner := NewCleaner(repo, store, testBuckets)
	removed, err := cleaner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, job.ErrJobNotFound)
	_, err = repo.FindByID(ctx, fresh.ID)
	assert.NoError(t, err)

	// Only the fresh job's object survives.
	assert.Equal(t, 1, store.Len())
	_, err = store.Get(ctx, testBuckets.Inputs, "fresh.png")
	assert.NoError(t, err)
}

func TestCleaner_Run_NothingExpired(t *testing.T) {
	ctx := context.Background()
	repo := job.NewMemoryRepository()
	store := storage.NewMemoryStore()

	insertJobAt(t, repo, time.Hour, job.InputRefs{PortraitKey: "p.png"})

	cleaner := NewCleaner(repo, store, testBuckets)
	removed, err := cleaner.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestCleaner_Run_RespectsBatchSize(t *testing.T) {
	ctx := context.Background()
	repo := job.NewMemoryRepository()
	store := storage.NewMemoryStore()

	for i := 0; i < 5; i++ {
		insertJobAt(t, repo, 100*time.Hour, job.InputRefs{PortraitKey: "p.png"})
	}

	cleaner := NewCleaner(repo, store, testBuckets, WithBatchSize(2))

	removed, err := cleaner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Subsequent sweeps drain the backlog.
	removed, err = cleaner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	removed, err = cleaner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestCleaner_Run_CustomMaxAge(t *testing.T) {
	ctx := context.Background()
	repo := job.NewMemoryRepository()
	store := storage.NewMemoryStore()

	insertJobAt(t, repo, 2*time.Hour, job.InputRefs{PortraitKey: "p.png"})

	cleaner := NewCleaner(repo, store, testBuckets, WithMaxAge(time.Hour))
	removed, err := cleaner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
}

func TestCleaner_Run_MissingObjectsDoNotBlockRemoval(t *testing.T) {
	ctx := context.Background()
	repo := job.NewMemoryRepository()
	store := storage.NewMemoryStore()

	// The job references objects that were never uploaded (or already
	// removed); MemoryStore deletes are idempotent so the row still goes.
	old := insertJobAt(t, repo, 100*time.Hour, job.InputRefs{PortraitKey: "gone.png"})

	cleaner := NewCleaner(repo, store, testBuckets)
	removed, err := cleaner.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, job.ErrJobNotFound)
}
