// Package did provides an HTTP client for the D-ID talking-avatar API.
package did

// Talk statuses returned by the D-ID API.
const (
	TalkStatusCreated  = "created"
	TalkStatusStarted  = "started"
	TalkStatusDone     = "done"
	TalkStatusError    = "error"
	TalkStatusRejected = "rejected"
)

// TalkRequest contains the parameters for creating a talk.
type TalkRequest struct {
	// SourceURL is a publicly fetchable URL of the portrait image.
	SourceURL string
	// Script is the text the avatar speaks.
	Script string
	// VoiceProvider is the TTS provider family, e.g. "microsoft".
	VoiceProvider string
	// VoiceID selects the voice within the provider family.
	VoiceID string
	// Style is the optional speaking style.
	Style string
}

// TalkStatus is the normalized status of a talk.
type TalkStatus struct {
	// Status is the raw provider status string.
	Status string
	// ResultURL is the provider-hosted video URL, set when Status is done.
	ResultURL string
	// Error is the provider-reported failure detail, set when Status is
	// error or rejected.
	Error string
}

// createTalkRequest is the wire format of POST /talks.
type createTalkRequest struct {
	SourceURL string     `json:"source_url"`
	Script    talkScript `json:"script"`
	Config    talkConfig `json:"config"`
}

type talkScript struct {
	Type     string        `json:"type"`
	Input    string        `json:"input"`
	Provider voiceProvider `json:"provider"`
}

type voiceProvider struct {
	Type    string `json:"type"`
	VoiceID string `json:"voice_id"`
	Style   string `json:"voice_config_style,omitempty"`
}

type talkConfig struct {
	// Stitch blends the generated mouth region back into the full source
	// frame instead of returning a cropped face.
	Stitch bool `json:"stitch"`
}

// createTalkResponse is the wire format of the POST /talks response.
type createTalkResponse struct {
	ID string `json:"id"`
}

// getTalkResponse is the wire format of the GET /talks/{id} response.
type getTalkResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url,omitempty"`
	Error     struct {
		Description string `json:"description,omitempty"`
	} `json:"error,omitempty"`
}

// errorResponse is the wire format of a non-2xx response body.
type errorResponse struct {
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
}

func (e errorResponse) text() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Message
}
