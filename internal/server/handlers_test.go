package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/promoreel/promoreel-api/internal/job"
	"github.com/promoreel/promoreel-api/internal/provider"
	"github.com/promoreel/promoreel-api/internal/storage"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Start(ctx context.Context, req provider.StartRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) FetchStatus(ctx context.Context, correlationID string) (provider.Status, error) {
	args := m.Called(ctx, correlationID)
	return args.Get(0).(provider.Status), args.Error(1)
}

type fixture struct {
	handler http.Handler
	lipsync *mockProvider
	scene   *mockProvider
	repo    *job.MemoryRepository
	store   *storage.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		lipsync: &mockProvider{},
		scene:   &mockProvider{},
		repo:    job.NewMemoryRepository(),
		store:   storage.NewMemoryStore(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	materializer := newFixtureMaterializer(f.store)
	service := job.NewService(
		f.repo,
		map[job.Kind]provider.Provider{
			job.KindLipSync:         f.lipsync,
			job.KindSceneGeneration: f.scene,
		},
		materializer,
		f.store,
		"videos",
		logger,
	)
	f.handler = NewRouter(NewHandlers(service, logger), logger, DefaultConfig())
	return f
}

// fixtureMaterializer writes a stub object so done jobs have a real key.
type fixtureMaterializer struct {
	store *storage.MemoryStore
}

func newFixtureMaterializer(store *storage.MemoryStore) *fixtureMaterializer {
	return &fixtureMaterializer{store: store}
}

func (m *fixtureMaterializer) Materialize(ctx context.Context, jobID, resultURL string) (string, error) {
	key := "videos/" + jobID + ".mp4"
	if err := m.store.Put(ctx, "videos", key, bytes.NewReader([]byte("video")), "video/mp4"); err != nil {
		return "", err
	}
	return key, nil
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func lipsyncRequest() CreateJobRequest {
	return CreateJobRequest{
		Kind:        "lipsync",
		PortraitKey: "portraits/ana.png",
		Script:      "Welcome to our store!",
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[HealthResponse](t, rec)
	assert.Equal(t, "ok", resp.Status)
}

func TestCreateJob_Accepted(t *testing.T) {
	f := newFixture(t)
	f.lipsync.On("Start", mock.Anything, mock.Anything).Return("tlk-1", nil)

	rec := f.do(t, http.MethodPost, "/jobs", lipsyncRequest())

	assert.Equal(t, http.StatusAccepted, rec.Code)
	resp := decodeBody[CreateJobResponse](t, rec)
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "processing", resp.State)
}

func TestCreateJob_InvalidJSON(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/jobs", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "INVALID_JSON", resp.Code)
}

func TestCreateJob_ValidationError(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/jobs", CreateJobRequest{Kind: "karaoke"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Code)
}

func TestCreateJob_MissingKindFields(t *testing.T) {
	f := newFixture(t)

	// Shape is valid but the orchestrator rejects a lip-sync job without a
	// portrait.
	rec := f.do(t, http.MethodPost, "/jobs", CreateJobRequest{
		Kind:   "lipsync",
		Script: "hello",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Code)
}

func TestCreateJob_ProviderRejected(t *testing.T) {
	f := newFixture(t)
	f.lipsync.On("Start", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: unsupported image format", provider.ErrRejected))

	rec := f.do(t, http.MethodPost, "/jobs", lipsyncRequest())

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "PROVIDER_REJECTED", resp.Code)
	require.NotEmpty(t, resp.JobID)

	// The rejected job is queryable afterwards.
	rec = f.do(t, http.MethodGet, "/jobs/"+resp.JobID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody[JobResponse](t, rec)
	assert.Equal(t, "error", status.State)
	assert.Contains(t, status.Error, "unsupported image format")
}

func TestCreateJob_ProviderUnreachable(t *testing.T) {
	f := newFixture(t)
	f.lipsync.On("Start", mock.Anything, mock.Anything).
		Return("", fmt.Errorf("%w: dial tcp: connection refused", provider.ErrUnreachable))

	rec := f.do(t, http.MethodPost, "/jobs", lipsyncRequest())

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "PROVIDER_UNREACHABLE", resp.Code)
	assert.Empty(t, resp.JobID)
}

func TestGetJob_NotFound(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/jobs/job-does-not-exist", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "JOB_NOT_FOUND", resp.Code)
}

func TestGetJob_Processing(t *testing.T) {
	f := newFixture(t)
	f.lipsync.On("Start", mock.Anything, mock.Anything).Return("tlk-1", nil)
	f.lipsync.On("FetchStatus", mock.Anything, "tlk-1").
		Return(provider.Status{Phase: provider.PhasePending}, nil)

	created := decodeBody[CreateJobResponse](t, f.do(t, http.MethodPost, "/jobs", lipsyncRequest()))

	rec := f.do(t, http.MethodGet, "/jobs/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[JobResponse](t, rec)
	assert.Equal(t, "processing", resp.State)
	assert.Empty(t, resp.VideoURL)
}

func TestGetJob_Done(t *testing.T) {
	f := newFixture(t)
	f.lipsync.On("Start", mock.Anything, mock.Anything).Return("tlk-1", nil)
	f.lipsync.On("FetchStatus", mock.Anything, "tlk-1").
		Return(provider.Status{
			Phase:     provider.PhaseSucceeded,
			ResultURL: "https://cdn.provider.example/tlk-1.mp4",
		}, nil)

	created := decodeBody[CreateJobResponse](t, f.do(t, http.MethodPost, "/jobs", lipsyncRequest()))

	rec := f.do(t, http.MethodGet, "/jobs/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[JobResponse](t, rec)
	assert.Equal(t, "done", resp.State)
	assert.Equal(t,
		f.store.PublicURL("videos", "videos/"+created.ID+".mp4"),
		resp.VideoURL,
	)

	// A second poll answers from the store without another provider call.
	rec = f.do(t, http.MethodGet, "/jobs/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	f.lipsync.AssertNumberOfCalls(t, "FetchStatus", 1)
}

func TestCORS_Preflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/jobs", nil)
	req.Header.Set("Origin", "https://studio.promoreel.example")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://studio.promoreel.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
