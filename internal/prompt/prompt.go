// Package prompt builds provider request parameters from caller-supplied
// fields. Everything here is pure: the same input always produces the same
// prompt text and the same clamped parameters.
package prompt

import (
	"fmt"
	"strings"
)

// Generation parameter bounds for the scene provider.
const (
	// MinDurationSec is the shortest clip the provider accepts.
	MinDurationSec = 4
	// MaxDurationSec is the longest clip the provider accepts.
	MaxDurationSec = 10
	// DefaultDurationSec is used when the caller does not specify a duration.
	DefaultDurationSec = 6
	// DefaultAspectRatio is used when the requested ratio is unsupported.
	DefaultAspectRatio = "16:9"
	// DefaultResolution is used when the requested resolution is unsupported.
	DefaultResolution = "720p"
)

var supportedAspectRatios = map[string]bool{
	"16:9": true,
	"9:16": true,
	"1:1":  true,
}

var supportedResolutions = map[string]bool{
	"540p":  true,
	"720p":  true,
	"1080p": true,
}

// SceneInput are the caller-supplied fields the scene prompt is built from.
type SceneInput struct {
	// Description is the product or scene description.
	Description string
	// Tone is the desired mood, e.g. "energetic".
	Tone string
	// Motion describes the desired camera or subject movement.
	Motion string
	// AspectRatio is the requested aspect ratio.
	AspectRatio string
}

// BuildScenePrompt composes the natural-language prompt for the scene
// provider. Field order is fixed so the prompt is deterministic.
func BuildScenePrompt(in SceneInput) string {
	var parts []string

	desc := strings.TrimSpace(in.Description)
	if desc != "" {
		parts = append(parts, fmt.Sprintf("A short promotional video of %s.", desc))
	} else {
		parts = append(parts, "A short promotional video.")
	}

	if tone := strings.TrimSpace(in.Tone); tone != "" {
		parts = append(parts, fmt.Sprintf("The mood is %s.", tone))
	}
	if motion := strings.TrimSpace(in.Motion); motion != "" {
		parts = append(parts, fmt.Sprintf("Camera motion: %s.", motion))
	} else {
		parts = append(parts, "Camera motion: slow push-in.")
	}

	if NormalizeAspectRatio(in.AspectRatio) == "9:16" {
		parts = append(parts, "Vertical framing suitable for mobile.")
	}

	parts = append(parts, "High quality, professional lighting, sharp focus.")

	return strings.Join(parts, " ")
}

// ClampDuration bounds the requested duration to the provider's supported
// range. Zero or negative values fall back to the default.
func ClampDuration(sec int) int {
	if sec <= 0 {
		return DefaultDurationSec
	}
	if sec < MinDurationSec {
		return MinDurationSec
	}
	if sec > MaxDurationSec {
		return MaxDurationSec
	}
	return sec
}

// NormalizeAspectRatio returns the requested ratio when supported and the
// default otherwise.
func NormalizeAspectRatio(ratio string) string {
	if supportedAspectRatios[ratio] {
		return ratio
	}
	return DefaultAspectRatio
}

// NormalizeResolution returns the requested resolution when supported and
// the default otherwise.
func NormalizeResolution(res string) string {
	if supportedResolutions[res] {
		return res
	}
	return DefaultResolution
}
