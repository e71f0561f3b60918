package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/promoreel/promoreel-api/internal/pixelmotion"
	"github.com/promoreel/promoreel-api/internal/prompt"
	"github.com/promoreel/promoreel-api/internal/storage"
)

// Compile-time check that PixelMotionAdapter implements Provider.
var _ Provider = (*PixelMotionAdapter)(nil)

// PixelMotionAdapter adapts the PixelMotion client to the Provider
// interface. It builds the scene prompt, clamps the generation parameters
// to the provider's supported ranges, and picks the source image:
// composited scene image when one was uploaded, otherwise the bare product
// image, otherwise the portrait.
type PixelMotionAdapter struct {
	client  pixelmotion.Client
	store   storage.ObjectStore
	buckets storage.Buckets
	model   string
}

// NewPixelMotionAdapter creates a new scene-generation provider adapter.
// model may be empty to use the client's default model.
func NewPixelMotionAdapter(client pixelmotion.Client, store storage.ObjectStore, buckets storage.Buckets, model string) *PixelMotionAdapter {
	return &PixelMotionAdapter{
		client:  client,
		store:   store,
		buckets: buckets,
		model:   model,
	}
}

// sourceImageURL resolves the image the provider should animate.
func (a *PixelMotionAdapter) sourceImageURL(req StartRequest) string {
	switch {
	case req.SceneKey != "":
		return a.store.PublicURL(a.buckets.Scenes, req.SceneKey)
	case req.ProductKey != "":
		return a.store.PublicURL(a.buckets.Inputs, req.ProductKey)
	default:
		return a.store.PublicURL(a.buckets.Inputs, req.PortraitKey)
	}
}

// Start submits an image-to-video request for the job's scene.
func (a *PixelMotionAdapter) Start(ctx context.Context, req StartRequest) (string, error) {
	scenePrompt := prompt.BuildScenePrompt(prompt.SceneInput{
		Description: req.Description,
		Tone:        req.Tone,
		Motion:      req.Motion,
		AspectRatio: req.AspectRatio,
	})

	requestID, err := a.client.Submit(ctx, pixelmotion.GenerationRequest{
		Model:       a.model,
		Prompt:      scenePrompt,
		ImageURL:    a.sourceImageURL(req),
		DurationSec: prompt.ClampDuration(req.DurationSec),
		AspectRatio: prompt.NormalizeAspectRatio(req.AspectRatio),
		Resolution:  prompt.NormalizeResolution(req.Resolution),
	})
	if err != nil {
		return "", a.mapError(err)
	}
	return requestID, nil
}

// FetchStatus performs a single result poll for a generation.
func (a *PixelMotionAdapter) FetchStatus(ctx context.Context, correlationID string) (Status, error) {
	result, err := a.client.FetchResult(ctx, correlationID)
	if err != nil {
		if errors.Is(err, pixelmotion.ErrNoVideoURL) {
			return Status{}, fmt.Errorf("%w: %v", ErrNoResultURL, err)
		}
		// The result endpoint reports generation failure as an error status.
		var apiErr *pixelmotion.APIError
		if errors.As(err, &apiErr) {
			return Status{Phase: PhaseFailed, Message: apiErr.Message}, nil
		}
		return Status{}, a.mapError(err)
	}

	if !result.Ready {
		return Status{Phase: PhasePending}, nil
	}
	return Status{Phase: PhaseSucceeded, ResultURL: result.URL}, nil
}

// mapError translates client errors into the shared provider taxonomy.
func (a *PixelMotionAdapter) mapError(err error) error {
	var apiErr *pixelmotion.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrRejected, apiErr.Message)
	}
	if errors.Is(err, pixelmotion.ErrUnreachable) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return err
}
