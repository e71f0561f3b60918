package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/promoreel/promoreel-api/internal/prompt"
	"github.com/promoreel/promoreel-api/internal/provider"
	"github.com/promoreel/promoreel-api/internal/storage"
)

// Taxonomy errors surfaced by the orchestrator. Provider and storage
// failures never cross this boundary raw.
var (
	// ErrInvalidInput is returned when a required field is missing or
	// unsupported. No job is created.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProviderRejected is returned when the provider refused the
	// submission. The job exists in the error state for auditability.
	ErrProviderRejected = errors.New("provider rejected submission")
	// ErrProviderUnreachable is returned when the provider could not be
	// reached during submission. No job is persisted; the caller may retry.
	ErrProviderUnreachable = errors.New("provider unreachable")
	// ErrAttemptsExhausted is returned by Await when the job did not reach a
	// terminal state within the attempt budget. The job stays non-terminal
	// and a later poll resumes from the stored correlation id.
	ErrAttemptsExhausted = errors.New("attempt budget exhausted")
)

// Materializer is the port for fetching a provider-hosted result into
// durable storage under a job-derived key.
type Materializer interface {
	Materialize(ctx context.Context, jobID, resultURL string) (assetKey string, err error)
}

// SubmitInput contains the caller-supplied fields for creating a job.
type SubmitInput struct {
	Kind   Kind
	Refs   InputRefs
	Params Params
}

// SubmitOutput is the result of a submission.
type SubmitOutput struct {
	// JobID identifies the created job, including a rejected one.
	JobID string
	// State is the job state after submission.
	State State
}

// PollOutput is the uniform status contract returned to callers regardless
// of which provider is in play.
type PollOutput struct {
	JobID        string
	State        State
	ResultURL    string
	ErrorMessage string
}

// Service is the orchestrator: it creates jobs, drives submission to the
// correct provider adapter, reconciles provider-reported status against the
// job store on each poll, and materializes the finished asset exactly once.
// Each Submit/Poll is an independent short-lived unit of work; no background
// goroutine owns a job.
type Service struct {
	repo         Repository
	providers    map[Kind]provider.Provider
	materializer Materializer
	store        storage.ObjectStore
	videosBucket string
	logger       *slog.Logger
}

// NewService creates the orchestrator service.
func NewService(
	repo Repository,
	providers map[Kind]provider.Provider,
	materializer Materializer,
	store storage.ObjectStore,
	videosBucket string,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:         repo,
		providers:    providers,
		materializer: materializer,
		store:        store,
		videosBucket: videosBucket,
		logger:       logger,
	}
}

// Submit validates the input, creates the job, and submits it to the
// provider. On success the job is processing and the correlation id is
// stored. On provider rejection the job remains in the error state so the
// attempt is auditable. On transport failure no job survives and the caller
// may simply submit again.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitOutput, error) {
	if err := validateSubmit(in); err != nil {
		return nil, err
	}

	j := New(in.Kind, in.Refs, normalizeParams(in.Kind, in.Params))

	s.logger.Info("creating job",
		slog.String("job_id", j.ID),
		slog.String("kind", string(j.Kind)),
	)

	if err := s.repo.Insert(ctx, j); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	prov := s.providers[j.Kind]
	correlationID, err := prov.Start(ctx, startRequest(j))
	if err != nil {
		if errors.Is(err, provider.ErrUnreachable) {
			if delErr := s.repo.Delete(ctx, j.ID); delErr != nil {
				s.logger.Error("remove job after unreachable provider",
					slog.String("job_id", j.ID),
					slog.String("error", delErr.Error()),
				)
			}
			return nil, fmt.Errorf("%w: %v", ErrProviderUnreachable, err)
		}

		if markErr := s.repo.MarkError(ctx, j.ID, err.Error()); markErr != nil {
			s.logger.Error("mark job error after rejected submission",
				slog.String("job_id", j.ID),
				slog.String("error", markErr.Error()),
			)
		}
		s.logger.Warn("provider rejected submission",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return &SubmitOutput{JobID: j.ID, State: StateError},
			fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}

	if err := s.repo.MarkProcessing(ctx, j.ID, correlationID); err != nil {
		return nil, fmt.Errorf("mark job processing: %w", err)
	}

	s.logger.Info("job submitted to provider",
		slog.String("job_id", j.ID),
		slog.String("correlation_id", correlationID),
	)

	return &SubmitOutput{JobID: j.ID, State: StateProcessing}, nil
}

// Poll reconciles the provider-reported status with the stored job and
// returns the uniform status contract. Polling a terminal job is a pure
// store read: no provider or storage calls are made, so it is safe to call
// arbitrarily often.
func (s *Service) Poll(ctx context.Context, jobID string) (*PollOutput, error) {
	j, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if j.IsTerminal() {
		return s.output(j), nil
	}

	prov, ok := s.providers[j.Kind]
	if !ok {
		return nil, fmt.Errorf("no provider for kind %q", j.Kind)
	}

	status, err := prov.FetchStatus(ctx, j.ProviderCorrelationID)
	if err != nil {
		// Unreachable providers and success-without-URL conditions leave
		// the job non-terminal so the caller can retry the poll.
		s.logger.Warn("status poll did not resolve",
			slog.String("job_id", j.ID),
			slog.String("error", err.Error()),
		)
		return &PollOutput{JobID: j.ID, State: j.State}, nil
	}

	switch status.Phase {
	case provider.PhaseFailed:
		if markErr := s.repo.MarkError(ctx, j.ID, status.Message); markErr != nil {
			if errors.Is(markErr, ErrJobTerminal) {
				return s.refreshedOutput(ctx, j.ID)
			}
			return nil, fmt.Errorf("mark job error: %w", markErr)
		}
		return &PollOutput{JobID: j.ID, State: StateError, ErrorMessage: status.Message}, nil

	case provider.PhaseSucceeded:
		if status.ResultURL == "" {
			// The provider sometimes reports success before the asset URL
			// is attached; treat as still processing.
			return &PollOutput{JobID: j.ID, State: StateProcessing}, nil
		}
		return s.completeJob(ctx, j.ID, status.ResultURL)

	default:
		if markErr := s.repo.MarkStatus(ctx, j.ID, StateProcessing); markErr != nil {
			if errors.Is(markErr, ErrJobTerminal) {
				return s.refreshedOutput(ctx, j.ID)
			}
			return nil, fmt.Errorf("mark job processing: %w", markErr)
		}
		return &PollOutput{JobID: j.ID, State: StateProcessing}, nil
	}
}

// Await polls until the job reaches a terminal state or the attempt budget
// is spent. Exhaustion is reported as ErrAttemptsExhausted without touching
// the store; the job remains resumable.
func (s *Service) Await(ctx context.Context, jobID string, attempts int, interval time.Duration) (*PollOutput, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var last *PollOutput
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interval):
			}
		}

		out, err := s.Poll(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if out.State.IsTerminal() {
			return out, nil
		}
		last = out
	}

	return last, ErrAttemptsExhausted
}

// completeJob materializes the result and moves the job to done at most
// once. The stored state is re-read first so a concurrent poll that already
// completed the job short-circuits without re-fetching; the conditional
// MarkDone closes the remaining race window.
func (s *Service) completeJob(ctx context.Context, jobID, resultURL string) (*PollOutput, error) {
	current, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if current.IsTerminal() {
		return s.output(current), nil
	}

	assetKey, err := s.materializer.Materialize(ctx, jobID, resultURL)
	if err != nil {
		// Distinct from provider failure: the provider succeeded but our
		// storage did not.
		msg := fmt.Sprintf("store result: %v", err)
		if markErr := s.repo.MarkError(ctx, jobID, msg); markErr != nil {
			if errors.Is(markErr, ErrJobTerminal) {
				return s.refreshedOutput(ctx, jobID)
			}
			return nil, fmt.Errorf("mark job error: %w", markErr)
		}
		s.logger.Error("materialization failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		return &PollOutput{JobID: jobID, State: StateError, ErrorMessage: msg}, nil
	}

	if err := s.repo.MarkDone(ctx, jobID, assetKey); err != nil {
		if errors.Is(err, ErrJobTerminal) {
			// Another poll completed the job first; the asset key is
			// job-derived so both wrote the same object.
			return s.refreshedOutput(ctx, jobID)
		}
		return nil, fmt.Errorf("mark job done: %w", err)
	}

	s.logger.Info("job completed",
		slog.String("job_id", jobID),
		slog.String("asset_key", assetKey),
	)

	return &PollOutput{
		JobID:     jobID,
		State:     StateDone,
		ResultURL: s.store.PublicURL(s.videosBucket, assetKey),
	}, nil
}

// refreshedOutput re-reads the job and returns its stored answer. Used when
// a conditional update reports the job already terminal.
func (s *Service) refreshedOutput(ctx context.Context, jobID string) (*PollOutput, error) {
	j, err := s.repo.FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.output(j), nil
}

// output maps a stored job to the caller-facing status contract.
func (s *Service) output(j *Job) *PollOutput {
	out := &PollOutput{
		JobID:        j.ID,
		State:        j.State,
		ErrorMessage: j.ErrorMessage,
	}
	if j.ResultAssetKey != "" {
		out.ResultURL = s.store.PublicURL(s.videosBucket, j.ResultAssetKey)
	}
	return out
}

// validateSubmit checks the caller-supplied fields before any side effect.
func validateSubmit(in SubmitInput) error {
	if !in.Kind.IsValid() {
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidInput, in.Kind)
	}

	switch in.Kind {
	case KindLipSync:
		if in.Refs.PortraitKey == "" {
			return fmt.Errorf("%w: portrait image is required for lip-sync", ErrInvalidInput)
		}
		if in.Params.Script == "" {
			return fmt.Errorf("%w: script is required for lip-sync", ErrInvalidInput)
		}
	case KindSceneGeneration:
		if in.Refs.SceneKey == "" && in.Refs.ProductKey == "" && in.Refs.PortraitKey == "" {
			return fmt.Errorf("%w: at least one source image is required", ErrInvalidInput)
		}
		if in.Params.Description == "" {
			return fmt.Errorf("%w: description is required for scene generation", ErrInvalidInput)
		}
	}
	return nil
}

// normalizeParams clamps scene-generation parameters to the supported
// ranges so the stored record reflects what is actually requested.
func normalizeParams(kind Kind, p Params) Params {
	if kind != KindSceneGeneration {
		return p
	}
	p.DurationSec = prompt.ClampDuration(p.DurationSec)
	p.AspectRatio = prompt.NormalizeAspectRatio(p.AspectRatio)
	p.Resolution = prompt.NormalizeResolution(p.Resolution)
	return p
}

// startRequest maps a job record to the provider-facing request.
func startRequest(j *Job) provider.StartRequest {
	return provider.StartRequest{
		JobID:       j.ID,
		PortraitKey: j.Refs.PortraitKey,
		ProductKey:  j.Refs.ProductKey,
		SceneKey:    j.Refs.SceneKey,
		Script:      j.Params.Script,
		Description: j.Params.Description,
		Tone:        j.Params.Tone,
		Motion:      j.Params.Motion,
		VoiceID:     j.Params.VoiceID,
		Style:       j.Params.Style,
		AspectRatio: j.Params.AspectRatio,
		DurationSec: j.Params.DurationSec,
		Resolution:  j.Params.Resolution,
	}
}
