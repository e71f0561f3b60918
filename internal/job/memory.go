package job

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
// Suitable for development and testing; PostgresRepository is the
// production store.
type MemoryRepository struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewMemoryRepository creates a new in-memory job repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		jobs: make(map[string]*Job),
	}
}

// Insert persists a new job. Stores a clone to avoid external mutations.
func (r *MemoryRepository) Insert(_ context.Context, j *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j.Clone()
	return nil
}

// FindByID retrieves a job by its ID.
// Returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, jobID string) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	return j.Clone(), nil
}

// MarkProcessing records the correlation id and moves queued -> processing.
func (r *MemoryRepository) MarkProcessing(_ context.Context, jobID, correlationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.State.IsTerminal() {
		return ErrJobTerminal
	}
	if !CanTransition(j.State, StateProcessing) {
		return ErrInvalidTransition
	}
	if j.ProviderCorrelationID == "" {
		j.ProviderCorrelationID = correlationID
	}
	j.State = StateProcessing
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkStatus updates the job to a non-terminal state.
func (r *MemoryRepository) MarkStatus(_ context.Context, jobID string, state State) error {
	if state.IsTerminal() {
		return ErrInvalidTransition
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.State.IsTerminal() {
		return ErrJobTerminal
	}
	if !CanTransition(j.State, state) {
		return ErrInvalidTransition
	}
	j.State = state
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkDone records the asset key and moves the job to done.
// The terminal write is conditional on the stored state being non-terminal.
func (r *MemoryRepository) MarkDone(_ context.Context, jobID, assetKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.State.IsTerminal() {
		return ErrJobTerminal
	}
	j.State = StateDone
	j.ResultAssetKey = assetKey
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkError records the failure message and moves the job to error.
// The terminal write is conditional on the stored state being non-terminal.
func (r *MemoryRepository) MarkError(_ context.Context, jobID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if j.State.IsTerminal() {
		return ErrJobTerminal
	}
	j.State = StateError
	j.ErrorMessage = message
	j.UpdatedAt = time.Now().UTC()
	return nil
}

// ListOlderThan returns up to limit jobs created before the cutoff, oldest first.
func (r *MemoryRepository) ListOlderThan(_ context.Context, cutoff time.Time, limit int) ([]*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*Job, 0)
	for _, j := range r.jobs {
		if j.CreatedAt.Before(cutoff) {
			result = append(result, j.Clone())
		}
	}
	sort.Slice(result, func(i, k int) bool {
		return result[i].CreatedAt.Before(result[k].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Delete removes a job from storage.
func (r *MemoryRepository) Delete(_ context.Context, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[jobID]; !ok {
		return ErrJobNotFound
	}
	delete(r.jobs, jobID)
	return nil
}
