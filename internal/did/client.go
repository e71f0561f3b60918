package did

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for D-ID client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is provided.
	ErrAPIKeyNotSet = errors.New("did: API key is required")
	// ErrTalkIDRequired is returned when the talk ID is not provided.
	ErrTalkIDRequired = errors.New("did: talk ID is required")
	// ErrNoTalkIDReturned is returned when the create response contains no talk ID.
	ErrNoTalkIDReturned = errors.New("did: create talk failed: no talk ID returned")
	// ErrUnreachable is returned on transport-level failures.
	ErrUnreachable = errors.New("did: provider unreachable")
)

// APIError is a non-2xx response from the D-ID API with its body-supplied
// message. Submission-time APIErrors mean the provider rejected the request.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("did: request failed with status %d: %s", e.StatusCode, e.Message)
}

// Client defines the interface for interacting with the D-ID API.
type Client interface {
	// CreateTalk submits a talking-head generation request and returns the talk ID.
	CreateTalk(ctx context.Context, req TalkRequest) (talkID string, err error)

	// GetTalk fetches the current status of a talk. Single HTTP round trip,
	// no internal retry loop; the orchestrator controls polling cadence.
	GetTalk(ctx context.Context, talkID string) (TalkStatus, error)
}

// HTTPClient is the HTTP implementation of the D-ID Client interface.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithBaseURL sets a custom base URL for the D-ID API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// NewClient creates a new D-ID HTTP client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable DID_API_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:    "https://api.d-id.com",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("DID_API_KEY")
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// CreateTalk submits a talking-head generation request and returns the talk ID.
func (c *HTTPClient) CreateTalk(ctx context.Context, req TalkRequest) (string, error) {
	body := createTalkRequest{
		SourceURL: req.SourceURL,
		Script: talkScript{
			Type:  "text",
			Input: req.Script,
			Provider: voiceProvider{
				Type:    req.VoiceProvider,
				VoiceID: req.VoiceID,
				Style:   req.Style,
			},
		},
		Config: talkConfig{Stitch: true},
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("did: marshal request: %w", err)
	}

	var resp createTalkResponse
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/talks", bodyBytes, &resp); err != nil {
		return "", err
	}

	if resp.ID == "" {
		return "", ErrNoTalkIDReturned
	}

	return resp.ID, nil
}

// GetTalk fetches the current status of a talk.
func (c *HTTPClient) GetTalk(ctx context.Context, talkID string) (TalkStatus, error) {
	if talkID == "" {
		return TalkStatus{}, ErrTalkIDRequired
	}

	var resp getTalkResponse
	url := fmt.Sprintf("%s/talks/%s", c.baseURL, talkID)
	if err := c.doRequest(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return TalkStatus{}, err
	}

	return TalkStatus{
		Status:    resp.Status,
		ResultURL: resp.ResultURL,
		Error:     resp.Error.Description,
	}, nil
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("did: create request: %w", err)
	}

	req.Header.Set("Authorization", "Basic "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		_ = json.Unmarshal(respBody, &e)
		msg := e.text()
		if msg == "" {
			msg = string(respBody)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("did: unmarshal response: %w", err)
		}
	}

	return nil
}
