package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/promoreel/promoreel-api/internal/did"
	"github.com/promoreel/promoreel-api/internal/storage"
)

// Voice selection fallbacks for the talking-avatar provider.
const (
	// DefaultVoiceProvider is the TTS provider family used for every talk.
	DefaultVoiceProvider = "microsoft"
	// FallbackVoiceID is the global fallback voice used when neither the
	// caller nor the configuration selects one.
	FallbackVoiceID = "en-US-JennyNeural"
)

// Compile-time check that DIDAdapter implements Provider.
var _ Provider = (*DIDAdapter)(nil)

// DIDAdapter adapts the D-ID client to the Provider interface.
// It resolves the portrait storage key to a publicly fetchable URL and
// applies the voice fallback chain: explicit voice id, then the configured
// family default, then the global fallback.
type DIDAdapter struct {
	client       did.Client
	store        storage.ObjectStore
	inputsBucket string
	defaultVoice string
}

// NewDIDAdapter creates a new talking-avatar provider adapter.
// defaultVoice may be empty; the global fallback voice then applies.
func NewDIDAdapter(client did.Client, store storage.ObjectStore, inputsBucket, defaultVoice string) *DIDAdapter {
	return &DIDAdapter{
		client:       client,
		store:        store,
		inputsBucket: inputsBucket,
		defaultVoice: defaultVoice,
	}
}

// resolveVoice applies the voice fallback chain.
func (a *DIDAdapter) resolveVoice(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if a.defaultVoice != "" {
		return a.defaultVoice
	}
	return FallbackVoiceID
}

// Start submits a talking-head request for the job's portrait and script.
func (a *DIDAdapter) Start(ctx context.Context, req StartRequest) (string, error) {
	talkID, err := a.client.CreateTalk(ctx, did.TalkRequest{
		SourceURL:     a.store.PublicURL(a.inputsBucket, req.PortraitKey),
		Script:        req.Script,
		VoiceProvider: DefaultVoiceProvider,
		VoiceID:       a.resolveVoice(req.VoiceID),
		Style:         req.Style,
	})
	if err != nil {
		return "", a.mapError(err)
	}
	return talkID, nil
}

// FetchStatus performs a single status poll for a talk.
func (a *DIDAdapter) FetchStatus(ctx context.Context, correlationID string) (Status, error) {
	talk, err := a.client.GetTalk(ctx, correlationID)
	if err != nil {
		return Status{}, a.mapError(err)
	}

	switch talk.Status {
	case did.TalkStatusDone:
		return Status{Phase: PhaseSucceeded, ResultURL: talk.ResultURL}, nil
	case did.TalkStatusError, did.TalkStatusRejected, "failed":
		msg := talk.Error
		if msg == "" {
			msg = "talk generation failed"
		}
		return Status{Phase: PhaseFailed, Message: msg}, nil
	default:
		// created, started, and any unknown status all count as pending.
		return Status{Phase: PhasePending}, nil
	}
}

// mapError translates client errors into the shared provider taxonomy.
func (a *DIDAdapter) mapError(err error) error {
	var apiErr *did.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", ErrRejected, apiErr.Message)
	}
	if errors.Is(err, did.ErrUnreachable) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return err
}
