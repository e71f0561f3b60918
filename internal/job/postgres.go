package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Compile-time check that PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)

// schema creates the jobs table. Terminal transitions are enforced by the
// conditional UPDATE statements below, not by triggers, so the table itself
// stays plain.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    state TEXT NOT NULL,
    provider_correlation_id TEXT NOT NULL DEFAULT '',
    result_asset_key TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',
    portrait_key TEXT NOT NULL DEFAULT '',
    product_key TEXT NOT NULL DEFAULT '',
    scene_key TEXT NOT NULL DEFAULT '',
    script TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    tone TEXT NOT NULL DEFAULT '',
    motion TEXT NOT NULL DEFAULT '',
    voice_id TEXT NOT NULL DEFAULT '',
    style TEXT NOT NULL DEFAULT '',
    aspect_ratio TEXT NOT NULL DEFAULT '',
    duration_sec INT NOT NULL DEFAULT 0,
    resolution TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_created_at_idx ON jobs (created_at);
`

const jobColumns = `id, kind, state, provider_correlation_id, result_asset_key,
	error_message, portrait_key, product_key, scene_key, script, description,
	tone, motion, voice_id, style, aspect_ratio, duration_sec, resolution,
	created_at, updated_at`

// PostgresRepository is the durable Repository implementation backed by pgx.
// Every terminal update is a single conditional statement keyed by job id,
// so no row is ever moved out of done or error.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgresRepository and ensures the schema.
func NewPostgresRepository(ctx context.Context, pool *pgxpool.Pool) (*PostgresRepository, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure jobs schema: %w", err)
	}
	return &PostgresRepository{pool: pool}, nil
}

// Insert persists a new job row.
func (r *PostgresRepository) Insert(ctx context.Context, j *Job) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		j.ID, j.Kind, j.State, j.ProviderCorrelationID, j.ResultAssetKey,
		j.ErrorMessage, j.Refs.PortraitKey, j.Refs.ProductKey, j.Refs.SceneKey,
		j.Params.Script, j.Params.Description, j.Params.Tone, j.Params.Motion,
		j.Params.VoiceID, j.Params.Style, j.Params.AspectRatio,
		j.Params.DurationSec, j.Params.Resolution, j.CreatedAt, j.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// FindByID retrieves a job by its ID.
func (r *PostgresRepository) FindByID(ctx context.Context, jobID string) (*Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

// MarkProcessing records the correlation id and moves queued -> processing.
// The correlation id is written only while it is still empty.
func (r *PostgresRepository) MarkProcessing(ctx context.Context, jobID, correlationID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs
		SET state = $2,
		    provider_correlation_id = CASE WHEN provider_correlation_id = '' THEN $3 ELSE provider_correlation_id END,
		    updated_at = now()
		WHERE id = $1 AND state IN ($4, $5)`,
		jobID, StateProcessing, correlationID, StateQueued, StateProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return r.explainNoUpdate(ctx, jobID, tag.RowsAffected())
}

// MarkStatus updates the job to a non-terminal state.
func (r *PostgresRepository) MarkStatus(ctx context.Context, jobID string, state State) error {
	if state.IsTerminal() {
		return ErrInvalidTransition
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs SET state = $2, updated_at = now()
		WHERE id = $1 AND state NOT IN ($3, $4)`,
		jobID, state, StateDone, StateError,
	)
	if err != nil {
		return fmt.Errorf("mark status: %w", err)
	}
	return r.explainNoUpdate(ctx, jobID, tag.RowsAffected())
}

// MarkDone records the asset key and moves the job to done. The conditional
// WHERE clause makes concurrent completion a solvable race: exactly one
// caller gets a row update, every other gets ErrJobTerminal.
func (r *PostgresRepository) MarkDone(ctx context.Context, jobID, assetKey string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs SET state = $2, result_asset_key = $3, updated_at = now()
		WHERE id = $1 AND state NOT IN ($4, $5)`,
		jobID, StateDone, assetKey, StateDone, StateError,
	)
	if err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	return r.explainNoUpdate(ctx, jobID, tag.RowsAffected())
}

// MarkError records the failure message and moves the job to error.
func (r *PostgresRepository) MarkError(ctx context.Context, jobID, message string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE jobs SET state = $2, error_message = $3, updated_at = now()
		WHERE id = $1 AND state NOT IN ($4, $5)`,
		jobID, StateError, message, StateDone, StateError,
	)
	if err != nil {
		return fmt.Errorf("mark error: %w", err)
	}
	return r.explainNoUpdate(ctx, jobID, tag.RowsAffected())
}

// ListOlderThan returns up to limit jobs created before the cutoff, oldest first.
func (r *PostgresRepository) ListOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs older than cutoff: %w", err)
	}
	defer rows.Close()

	var result []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return result, nil
}

// Delete removes a job row.
func (r *PostgresRepository) Delete(ctx context.Context, jobID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// explainNoUpdate distinguishes "row missing" from "row already terminal"
// after a conditional update matched nothing.
func (r *PostgresRepository) explainNoUpdate(ctx context.Context, jobID string, affected int64) error {
	if affected > 0 {
		return nil
	}
	var state State
	err := r.pool.QueryRow(ctx, `SELECT state FROM jobs WHERE id = $1`, jobID).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("read job state: %w", err)
	}
	if state.IsTerminal() {
		return ErrJobTerminal
	}
	return ErrInvalidTransition
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	err := row.Scan(
		&j.ID, &j.Kind, &j.State, &j.ProviderCorrelationID, &j.ResultAssetKey,
		&j.ErrorMessage, &j.Refs.PortraitKey, &j.Refs.ProductKey, &j.Refs.SceneKey,
		&j.Params.Script, &j.Params.Description, &j.Params.Tone, &j.Params.Motion,
		&j.Params.VoiceID, &j.Params.Style, &j.Params.AspectRatio,
		&j.Params.DurationSec, &j.Params.Resolution, &j.CreatedAt, &j.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}
