// Package provider defines the common capability set for video generation
// backends. Both the talking-avatar and the scene-generation adapters
// implement the same narrow interface; all provider quirks stay local to
// their adapter.
package provider

import (
	"context"
	"errors"
)

// Phase is the normalized progress phase reported by a provider.
type Phase string

const (
	// PhasePending indicates the provider is still generating.
	PhasePending Phase = "pending"
	// PhaseSucceeded indicates generation finished; ResultURL may still be
	// empty when the provider reports success before attaching the asset.
	PhaseSucceeded Phase = "succeeded"
	// PhaseFailed indicates the provider reports the generation failed.
	PhaseFailed Phase = "failed"
)

// Static errors shared by both adapters.
var (
	// ErrRejected is returned when the provider refuses a submission with a
	// client-error response; the message carries the provider's detail.
	ErrRejected = errors.New("provider rejected request")
	// ErrUnreachable is returned on transport-level failures reaching the
	// provider, including per-call timeouts.
	ErrUnreachable = errors.New("provider unreachable")
	// ErrNoResultURL is returned when a finished generation exposes no
	// extractable video URL.
	ErrNoResultURL = errors.New("no video URL in provider result")
)

// StartRequest carries everything an adapter needs to submit a generation.
// The fields mirror the job record but stay independent of it so the job
// package can depend on this one.
type StartRequest struct {
	JobID string

	// Image storage keys.
	PortraitKey string
	ProductKey  string
	SceneKey    string

	// Generation parameters.
	Script      string
	Description string
	Tone        string
	Motion      string
	VoiceID     string
	Style       string
	AspectRatio string
	DurationSec int
	Resolution  string
}

// Status is the normalized result of one status poll.
type Status struct {
	Phase     Phase
	ResultURL string
	Message   string
}

// Provider is the capability set shared by both backends.
type Provider interface {
	// Start submits a generation request and returns the provider's
	// correlation id. Must be called at most once per job.
	Start(ctx context.Context, req StartRequest) (correlationID string, err error)

	// FetchStatus performs a single status poll. It never blocks beyond one
	// HTTP round trip and has no internal retry loop; the orchestrator
	// controls polling cadence.
	FetchStatus(ctx context.Context, correlationID string) (Status, error)
}
