package pixelmotion

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

// Static errors for PixelMotion client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is provided.
	ErrAPIKeyNotSet = errors.New("pixelmotion: API key is required")
	// ErrRequestIDRequired is returned when the request ID is not provided.
	ErrRequestIDRequired = errors.New("pixelmotion: request ID is required")
	// ErrNoRequestIDReturned is returned when the submit response contains no request ID.
	ErrNoRequestIDReturned = errors.New("pixelmotion: submit failed: no request ID returned")
	// ErrUnreachable is returned on transport-level failures.
	ErrUnreachable = errors.New("pixelmotion: provider unreachable")
	// ErrNoVideoURL is returned when a ready result matches none of the
	// known response layouts.
	ErrNoVideoURL = errors.New("pixelmotion: no video URL in result")
)

// APIError is a non-2xx response from the PixelMotion API with its
// body-supplied message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pixelmotion: request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsValidationError reports whether the error is a client-error rejection,
// the class the image-shape fallback applies to.
func (e *APIError) IsValidationError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// Client defines the interface for interacting with the PixelMotion API.
type Client interface {
	// Submit sends an image-to-video generation request and returns the
	// request ID. On a validation-class rejection of the inline-object
	// image shape it retries once, synchronously, with the plain URL
	// string shape before surfacing failure.
	Submit(ctx context.Context, req GenerationRequest) (requestID string, err error)

	// FetchResult fetches the generation result. A not-yet-ready response
	// (202 or 204) yields Ready=false. Single HTTP round trip, no internal
	// retry loop; the orchestrator controls polling cadence.
	FetchResult(ctx context.Context, requestID string) (Result, error)
}

// HTTPClient is the HTTP implementation of the PixelMotion Client interface.
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

// WithBaseURL sets a custom base URL for the PixelMotion API.
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

// NewClient creates a new PixelMotion HTTP client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable PIXELMOTION_API_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:    "https://api.pixelmotion.ai",
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("PIXELMOTION_API_KEY")
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// Submit sends an image-to-video generation request and returns the request ID.
func (c *HTTPClient) Submit(ctx context.Context, req GenerationRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	// Primary image-reference shape: inline object.
	requestID, err := c.submitOnce(ctx, req, model, imageObject{URL: req.ImageURL})
	if err == nil {
		return requestID, nil
	}

	// One-shot shape fallback on validation-class rejections only. This is
	// not a retry-on-transient-error policy; it happens at most once per
	// submission.
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.IsValidationError() {
		return c.submitOnce(ctx, req, model, req.ImageURL)
	}

	return "", err
}

// submitOnce performs a single submit attempt with the given image shape.
func (c *HTTPClient) submitOnce(ctx context.Context, req GenerationRequest, model string, image any) (string, error) {
	body := generationRequest{
		Model:       model,
		Prompt:      req.Prompt,
		Duration:    req.DurationSec,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
		Image:       image,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("pixelmotion: marshal request: %w", err)
	}

	resp, respBody, err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/v1/generations", bodyBytes)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.apiError(resp.StatusCode, respBody)
	}

	var out generationResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("pixelmotion: unmarshal response: %w", err)
	}
	if out.ID == "" {
		return "", ErrNoRequestIDReturned
	}

	return out.ID, nil
}

// FetchResult fetches the generation result.
func (c *HTTPClient) FetchResult(ctx context.Context, requestID string) (Result, error) {
	if requestID == "" {
		return Result{}, ErrRequestIDRequired
	}

	url := fmt.Sprintf("%s/v1/generations/%s/result", c.baseURL, requestID)
	resp, respBody, err := c.doRequest(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}

	// 202 and 204 mean the provider is still computing.
	if resp.StatusCode == http.StatusAccepted || resp.StatusCode == http.StatusNoContent {
		return Result{Ready: false}, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, c.apiError(resp.StatusCode, respBody)
	}

	var payload resultPayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return Result{}, fmt.Errorf("pixelmotion: unmarshal result: %w", err)
	}

	resultURL := payload.resultURL()
	if resultURL == "" {
		return Result{}, ErrNoVideoURL
	}

	return Result{Ready: true, URL: resultURL}, nil
}

// doRequest performs a single HTTP request and returns the raw response.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte) (*http.Response, []byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, nil, fmt.Errorf("pixelmotion: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	return resp, respBody, nil
}

// apiError builds an APIError from a non-2xx response.
func (c *HTTPClient) apiError(statusCode int, respBody []byte) *APIError {
	var e errorResponse
	_ = json.Unmarshal(respBody, &e)
	msg := e.text()
	if msg == "" {
		msg = string(respBody)
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}
