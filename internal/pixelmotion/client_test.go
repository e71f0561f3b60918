package pixelmotion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	client, err := NewClient(WithAPIKey("test-key"), WithBaseURL(baseURL))
	require.NoError(t, err)
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	os.Unsetenv("PIXELMOTION_API_KEY")
	_, err := NewClient()
	assert.ErrorIs(t, err, ErrAPIKeyNotSet)
}

func TestHTTPClient_Submit_InlineObjectShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultModel, body["model"])
		assert.Equal(t, float64(6), body["duration"])

		img, ok := body["image"].(map[string]any)
		require.True(t, ok, "primary attempt must use the inline object shape")
		assert.Equal(t, "https://example.com/scene.png", img["url"])

		_ = json.NewEncoder(w).Encode(generationResponse{ID: "gen-1"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	requestID, err := client.Submit(context.Background(), GenerationRequest{
		Prompt:      "a product video",
		ImageURL:    "https://example.com/scene.png",
		DurationSec: 6,
		AspectRatio: "16:9",
		Resolution:  "720p",
	})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", requestID)
}

func TestHTTPClient_Submit_ShapeFallback(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if attempts == 1 {
			_, isObject := body["image"].(map[string]any)
			assert.True(t, isObject)
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"error":{"message":"image must be a string"}}`))
			return
		}

		// Second attempt must use the plain URL string shape.
		url, isString := body["image"].(string)
		assert.True(t, isString)
		assert.Equal(t, "https://example.com/scene.png", url)
		_ = json.NewEncoder(w).Encode(generationResponse{ID: "gen-2"})
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	requestID, err := client.Submit(context.Background(), GenerationRequest{
		ImageURL: "https://example.com/scene.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "gen-2", requestID)
	assert.Equal(t, 2, attempts)
}

func TestHTTPClient_Submit_SecondRejectionSurfaced(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"unsupported image"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Submit(context.Background(), GenerationRequest{ImageURL: "https://example.com/x.png"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unsupported image", apiErr.Message)
	assert.Equal(t, 2, attempts, "exactly one fallback attempt")
}

func TestHTTPClient_Submit_ServerErrorNoFallback(t *testing.T) {
	var attempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Submit(context.Background(), GenerationRequest{ImageURL: "https://example.com/x.png"})
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "shape fallback applies to validation rejections only")
}

func TestHTTPClient_Submit_Unreachable(t *testing.T) {
	client := newTestClient(t, "http://127.0.0.1:1")
	_, err := client.Submit(context.Background(), GenerationRequest{})
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestHTTPClient_FetchResult_Pending(t *testing.T) {
	for _, code := range []int{http.StatusAccepted, http.StatusNoContent} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		client := newTestClient(t, server.URL)
		result, err := client.FetchResult(context.Background(), "gen-1")
		require.NoError(t, err)
		assert.False(t, result.Ready)
		server.Close()
	}
}

func TestHTTPClient_FetchResult_Layouts(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"top-level url", `{"url":"https://cdn.example.com/v.mp4"}`},
		{"nested video.url", `{"video":{"url":"https://cdn.example.com/v.mp4"}}`},
		{"nested output.url", `{"output":{"url":"https://cdn.example.com/v.mp4"}}`},
		{"data array", `{"data":[{"url":"https://cdn.example.com/v.mp4"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/generations/gen-1/result", r.URL.Path)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			result, err := client.FetchResult(context.Background(), "gen-1")
			require.NoError(t, err)
			assert.True(t, result.Ready)
			assert.Equal(t, "https://cdn.example.com/v.mp4", result.URL)
		})
	}
}

func TestHTTPClient_FetchResult_LayoutPriority(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"url":"https://cdn.example.com/top.mp4","video":{"url":"https://cdn.example.com/nested.mp4"}}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	result, err := client.FetchResult(context.Background(), "gen-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/top.mp4", result.URL)
}

func TestHTTPClient_FetchResult_NoVideoURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"complete"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchResult(context.Background(), "gen-1")
	assert.ErrorIs(t, err, ErrNoVideoURL)
}

func TestHTTPClient_FetchResult_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"generation failed: nsfw content"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.FetchResult(context.Background(), "gen-1")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "generation failed: nsfw content", apiErr.Message)
}

func TestHTTPClient_FetchResult_RequiresID(t *testing.T) {
	client := newTestClient(t, "http://unused")
	_, err := client.FetchResult(context.Background(), "")
	assert.ErrorIs(t, err, ErrRequestIDRequired)
}
