package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueuedJob(t *testing.T, repo *MemoryRepository) *Job {
	t.Helper()
	j := New(KindLipSync, InputRefs{PortraitKey: "p.png"}, Params{Script: "hi"})
	require.NoError(t, repo.Insert(context.Background(), j))
	return j
}

func TestMemoryRepository_InsertAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	j := newQueuedJob(t, repo)

	found, err := repo.FindByID(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, found.ID)
	assert.Equal(t, StateQueued, found.State)
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.FindByID(context.Background(), "job-missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryRepository_FindByID_ReturnsClone(t *testing.T) {
	repo := NewMemoryRepository()
	j := newQueuedJob(t, repo)

	found, err := repo.FindByID(context.Background(), j.ID)
	require.NoError(t, err)
	found.State = StateDone

	again, err := repo.FindByID(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StateQueued, again.State)
}

func TestMemoryRepository_MarkProcessing(t *testing.T) {
	repo := NewMemoryRepository()
	j := newQueuedJob(t, repo)

	require.NoError(t, repo.MarkProcessing(context.Background(), j.ID, "corr-1"))

	found, err := repo.FindByID(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StateProcessing, found.State)
	assert.Equal(t, "corr-1", found.ProviderCorrelationID)
}

func TestMemoryRepository_MarkProcessing_CorrelationIDImmutable(t *testing.T) {
	repo := NewMemoryRepository()
	j := newQueuedJob(t, repo)

	require.NoError(t, repo.MarkProcessing(context.Background(), j.ID, "corr-1"))
	require.NoError(t, repo.MarkProcessing(context.Background(), j.ID, "corr-2"))

	found, err := repo.FindByID(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, "corr-1", found.ProviderCorrelationID)
}

func TestMemoryRepository_MarkDone(t *testing.T) {
	repo := NewMemoryRepository()
	j := newQueuedJob(t, repo)
	require.NoError(t, repo.MarkProcessing(context.Background(), j.ID, "corr-1"))

	require.NoError(t, repo.MarkDone(context.Background(), j.ID, "videos/a.mp4"))

	found, err := repo.FindByID(context.Background(), j.ID)
	require.NoError(t, err)
	assert.Equal(t, StateDone, found.State)
	assert.Equal(t, "videos/a.mp4", found.ResultAssetKey)
}

func TestMemoryRepository_TerminalStatesAreFinal(t *testing.T) {
	ctx := context.Background()

	t.Run("done stays done", func(t *testing.T) {
		repo := NewMemoryRepository()
		j := newQueuedJob(t, repo)
		require.NoError(t, repo.MarkProcessing(ctx, j.ID, "corr-1"))
		require.NoError(t, repo.MarkDone(ctx, j.ID, "videos/a.mp4"))

		assert.ErrorIs(t, repo.MarkError(ctx, j.ID, "too late"), ErrJobTerminal)
		assert.ErrorIs(t, repo.MarkDone(ctx, j.ID, "videos/b.mp4"), ErrJobTerminal)
		assert.ErrorIs(t, repo.MarkStatus(ctx, j.ID, StateProcessing), ErrJobTerminal)

		found, err := repo.FindByID(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, StateDone, found.State)
		assert.Equal(t, "videos/a.mp4", found.ResultAssetKey)
		assert.Empty(t, found.ErrorMessage)
	})

	t.Run("error stays error", func(t *testing.T) {
		repo := NewMemoryRepository()
		j := newQueuedJob(t, repo)
		require.NoError(t, repo.MarkError(ctx, j.ID, "provider exploded"))

		assert.ErrorIs(t, repo.MarkDone(ctx, j.ID, "videos/a.mp4"), ErrJobTerminal)
		assert.ErrorIs(t, repo.MarkProcessing(ctx, j.ID, "corr-1"), ErrJobTerminal)

		found, err := repo.FindByID(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, StateError, found.State)
		assert.Equal(t, "provider exploded", found.ErrorMessage)
	})
}

func TestMemoryRepository_MarkDone_ConcurrentSingleWinner(t *testing.T) {
	repo := NewMemoryRepository()
	j := newQueuedJob(t, repo)
	require.NoError(t, repo.MarkProcessing(context.Background(), j.ID, "corr-1"))

	const pollers = 8
	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < pollers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := repo.MarkDone(context.Background(), j.ID, "videos/a.mp4"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins, "exactly one concurrent MarkDone succeeds")
}

func TestMemoryRepository_MarkStatus_RejectsTerminalState(t *testing.T) {
	repo := NewMemoryRepository()
	j := newQueuedJob(t, repo)
	assert.ErrorIs(t, repo.MarkStatus(context.Background(), j.ID, StateDone), ErrInvalidTransition)
}

func TestMemoryRepository_ListOlderThan(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	old := New(KindLipSync, InputRefs{}, Params{})
	old.CreatedAt = time.Now().Add(-48 * time.Hour)
	require.NoError(t, repo.Insert(ctx, old))

	older := New(KindLipSync, InputRefs{}, Params{})
	older.CreatedAt = time.Now().Add(-96 * time.Hour)
	require.NoError(t, repo.Insert(ctx, older))

	fresh := New(KindLipSync, InputRefs{}, Params{})
	require.NoError(t, repo.Insert(ctx, fresh))

	got, err := repo.ListOlderThan(ctx, time.Now().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, older.ID, got[0].ID, "oldest first")
	assert.Equal(t, old.ID, got[1].ID)

	limited, err := repo.ListOlderThan(ctx, time.Now().Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, older.ID, limited[0].ID)
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	j := newQueuedJob(t, repo)

	require.NoError(t, repo.Delete(context.Background(), j.ID))
	_, err := repo.FindByID(context.Background(), j.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.ErrorIs(t, repo.Delete(context.Background(), j.ID), ErrJobNotFound)
}
