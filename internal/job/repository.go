package job

import (
	"context"
	"errors"
	"time"
)

// Static errors for repository operations.
var (
	// ErrJobNotFound is returned when a job cannot be found by ID.
	ErrJobNotFound = errors.New("job not found")
	// ErrJobTerminal is returned when a state-affecting update targets a job
	// that is already done or error. Callers use it to detect that another
	// poller completed the job first.
	ErrJobTerminal = errors.New("job already in terminal state")
)

// Repository defines the persistence port for jobs. Updates are narrow and
// conditional: terminal writes succeed only while the stored state is
// non-terminal, which is what makes materialization at-most-once without a
// distributed lock.
type Repository interface {
	// Insert persists a new job. The job must not already exist.
	Insert(ctx context.Context, j *Job) error

	// FindByID retrieves a job by its unique identifier.
	// Returns ErrJobNotFound if the job does not exist.
	FindByID(ctx context.Context, jobID string) (*Job, error)

	// MarkProcessing records the provider correlation id and moves the job
	// from queued to processing. The correlation id is set at most once.
	MarkProcessing(ctx context.Context, jobID, correlationID string) error

	// MarkStatus updates the job to a non-terminal state. It is a no-op when
	// the job is already in that state and returns ErrJobTerminal when the
	// job has already finished.
	MarkStatus(ctx context.Context, jobID string, state State) error

	// MarkDone records the materialized asset key and moves the job to done.
	// Returns ErrJobTerminal if the job already reached a terminal state.
	MarkDone(ctx context.Context, jobID, assetKey string) error

	// MarkError records a failure message and moves the job to error.
	// Returns ErrJobTerminal if the job already reached a terminal state.
	MarkError(ctx context.Context, jobID, message string) error

	// ListOlderThan returns up to limit jobs created before the cutoff,
	// oldest first. Used by the retention cleaner, never by Submit/Poll.
	ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*Job, error)

	// Delete removes a job from storage.
	// Returns ErrJobNotFound if the job does not exist.
	Delete(ctx context.Context, jobID string) error
}
