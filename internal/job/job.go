// Package job provides the Job aggregate for asynchronous video generation.
// It includes the Job entity with its four-state lifecycle, repository
// interfaces for persistence, and the orchestration service that drives
// submission and polling against the provider adapters.
package job

import (
	"errors"
	"time"

	"github.com/promoreel/promoreel-api/internal/job/id"
)

// Kind identifies which provider family a job targets.
type Kind string

const (
	// KindLipSync targets the talking-avatar provider.
	KindLipSync Kind = "lipsync"
	// KindSceneGeneration targets the generative-scene provider.
	KindSceneGeneration Kind = "scene-generation"
)

// IsValid returns true if the kind is a supported provider family.
func (k Kind) IsValid() bool {
	return k == KindLipSync || k == KindSceneGeneration
}

// State represents the current lifecycle state of a Job.
type State string

const (
	// StateQueued indicates the job row exists but submission has not completed.
	StateQueued State = "queued"
	// StateProcessing indicates the provider accepted the job and is generating.
	StateProcessing State = "processing"
	// StateDone indicates the result was materialized into durable storage.
	StateDone State = "done"
	// StateError indicates the job failed; it is never retried automatically.
	StateError State = "error"
)

// IsTerminal returns true if the state admits no further transitions.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateError
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("job: invalid state transition")

// validTransitions defines the allowed forward-only transitions.
var validTransitions = map[State][]State{
	StateQueued:     {StateProcessing, StateError},
	StateProcessing: {StateProcessing, StateDone, StateError},
	StateDone:       {},
	StateError:      {},
}

// CanTransition reports whether moving from one state to another is allowed.
// processing -> processing is permitted so repeated polls can refresh
// UpdatedAt without special-casing.
func CanTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// InputRefs holds the storage keys of the caller-supplied images.
// SceneKey is the client-composited scene image and is best-effort;
// its absence never blocks the job.
type InputRefs struct {
	// PortraitKey is the storage key of the speaker portrait.
	PortraitKey string
	// ProductKey is the storage key of the product image.
	ProductKey string
	// SceneKey is the storage key of the composited scene image, if any.
	SceneKey string
}

// Params holds the normalized generation parameters captured at submission.
type Params struct {
	// Script is the text spoken by the avatar (lip-sync jobs).
	Script string
	// Description is the product/scene description (scene-generation jobs).
	Description string
	// Tone is the desired mood of the generated clip.
	Tone string
	// Motion describes the desired camera or subject motion.
	Motion string
	// VoiceID is the explicit voice selection, if any.
	VoiceID string
	// Style is the visual style selection, if any.
	Style string
	// AspectRatio is the target aspect ratio (e.g. "16:9").
	AspectRatio string
	// DurationSec is the target clip duration in seconds.
	DurationSec int
	// Resolution is the target resolution (e.g. "720p").
	Resolution string
}

// Job represents one request for a generated video, tracked through a
// bounded lifecycle. It is a plain record; all mutation goes through the
// Repository so state transitions are enforced at the persistence boundary.
type Job struct {
	// ID is the caller-visible unique identifier.
	ID string
	// Kind is the provider family; fixed at creation.
	Kind Kind
	// State is the current lifecycle state.
	State State
	// ProviderCorrelationID is the provider-issued id used for status polls.
	// Empty until submission succeeds; immutable once set.
	ProviderCorrelationID string
	// ResultAssetKey is the storage key of the materialized video.
	// Empty until State is done; written at most once.
	ResultAssetKey string
	// ErrorMessage is the failure detail; set only when State is error.
	ErrorMessage string
	// Refs are the storage keys of the caller-supplied images.
	Refs InputRefs
	// Params are the normalized generation parameters.
	Params Params
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last modified.
	UpdatedAt time.Time
}

// New creates a new Job in the queued state with a generated ID.
func New(kind Kind, refs InputRefs, params Params) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        id.Generate(),
		Kind:      kind,
		State:     StateQueued,
		Refs:      refs,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.State.IsTerminal()
}

// Clone creates a copy of the job for safe reads across goroutines.
func (j *Job) Clone() *Job {
	c := *j
	return &c
}
