// Package pixelmotion provides an HTTP client for the PixelMotion
// image-to-video generation API.
package pixelmotion

import "encoding/json"

// DefaultModel is the generation model submitted when none is configured.
const DefaultModel = "pixelmotion-1.5"

// GenerationRequest contains the parameters for submitting a generation.
type GenerationRequest struct {
	// Model is the generation model identifier.
	Model string
	// Prompt is the natural-language prompt.
	Prompt string
	// ImageURL is a publicly fetchable URL of the source image.
	ImageURL string
	// DurationSec is the clip duration in seconds.
	DurationSec int
	// AspectRatio is the target aspect ratio.
	AspectRatio string
	// Resolution is the target resolution.
	Resolution string
}

// Result is the outcome of fetching a generation result.
type Result struct {
	// Ready is false while the provider is still computing.
	Ready bool
	// URL is the provider-hosted video URL, set when Ready.
	URL string
}

// generationRequest is the wire format of POST /v1/generations. The image
// field accepts two shapes: an inline object {"url": ...} or a plain URL
// string; Image carries whichever one the current attempt uses.
type generationRequest struct {
	Model       string `json:"model"`
	Prompt      string `json:"prompt"`
	Duration    int    `json:"duration"`
	AspectRatio string `json:"aspect_ratio"`
	Resolution  string `json:"resolution"`
	Image       any    `json:"image"`
}

// imageObject is the primary image-reference shape.
type imageObject struct {
	URL string `json:"url"`
}

// generationResponse is the wire format of the submit response.
type generationResponse struct {
	ID string `json:"id"`
}

// resultPayload covers the known layouts of a ready result body.
type resultPayload struct {
	URL   string `json:"url"`
	Video struct {
		URL string `json:"url"`
	} `json:"video"`
	Output struct {
		URL string `json:"url"`
	} `json:"output"`
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// resultURL extracts the video URL trying each known layout in fixed
// priority order: top-level url, video.url, output.url, first data element.
func (p resultPayload) resultURL() string {
	if p.URL != "" {
		return p.URL
	}
	if p.Video.URL != "" {
		return p.Video.URL
	}
	if p.Output.URL != "" {
		return p.Output.URL
	}
	if len(p.Data) > 0 && p.Data[0].URL != "" {
		return p.Data[0].URL
	}
	return ""
}

// errorResponse is the wire format of a non-2xx response body.
type errorResponse struct {
	Message string          `json:"message,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// text extracts the human-readable message; the error field is either a
// plain string or an object with a message field.
func (e errorResponse) text() string {
	if e.Message != "" {
		return e.Message
	}
	if len(e.Error) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Error, &obj); err == nil {
		return obj.Message
	}
	return ""
}
