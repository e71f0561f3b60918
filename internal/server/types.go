// Package server provides the HTTP server for the PromoReel API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// CreateJobRequest is the HTTP request body for creating a new job.
// Which fields are required depends on the kind; the orchestrator enforces
// the per-kind rules, the validator only checks shapes.
type CreateJobRequest struct {
	// Kind selects the provider family: "lipsync" or "scene-generation".
	Kind string `json:"kind" validate:"required,oneof=lipsync scene-generation"`
	// PortraitKey is the storage key of the speaker portrait.
	PortraitKey string `json:"portrait_key,omitempty" validate:"omitempty,max=512"`
	// ProductKey is the storage key of the product image.
	ProductKey string `json:"product_key,omitempty" validate:"omitempty,max=512"`
	// SceneKey is the storage key of the client-composited scene image.
	SceneKey string `json:"scene_key,omitempty" validate:"omitempty,max=512"`
	// Script is the text spoken by the avatar (lip-sync jobs).
	Script string `json:"script,omitempty" validate:"omitempty,max=4000"`
	// Description is the product/scene description (scene-generation jobs).
	Description string `json:"description,omitempty" validate:"omitempty,max=2000"`
	// Tone is the desired mood of the generated clip.
	Tone string `json:"tone,omitempty" validate:"omitempty,max=100"`
	// Motion describes the desired camera or subject motion.
	Motion string `json:"motion,omitempty" validate:"omitempty,max=200"`
	// VoiceID is an explicit voice selection, if any.
	VoiceID string `json:"voice_id,omitempty" validate:"omitempty,max=100"`
	// Style is the visual style selection, if any.
	Style string `json:"style,omitempty" validate:"omitempty,max=100"`
	// AspectRatio is the target aspect ratio; unsupported values fall back.
	AspectRatio string `json:"aspect_ratio,omitempty" validate:"omitempty,max=10"`
	// DurationSec is the target clip duration; clamped to the supported range.
	DurationSec int `json:"duration_sec,omitempty" validate:"omitempty,min=0,max=3600"`
	// Resolution is the target resolution; unsupported values fall back.
	Resolution string `json:"resolution,omitempty" validate:"omitempty,max=10"`
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// State is the job state after submission.
	State string `json:"state"`
}

// JobResponse is the HTTP response for getting job status.
type JobResponse struct {
	// ID is the unique identifier for the job.
	ID string `json:"id"`
	// State is the current job state.
	State string `json:"state"`
	// VideoURL is the public URL of the finished video, when done.
	VideoURL string `json:"video_url,omitempty"`
	// Error contains the failure detail if the job failed.
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
	// JobID identifies the job when the error still produced one,
	// e.g. a provider-rejected submission kept for auditing.
	JobID string `json:"job_id,omitempty"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
