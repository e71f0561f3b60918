package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/promoreel/promoreel-api/internal/job"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   *job.Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreateJob handles POST /jobs requests.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	out, err := h.service.Submit(r.Context(), job.SubmitInput{
		Kind: job.Kind(req.Kind),
		Refs: job.InputRefs{
			PortraitKey: req.PortraitKey,
			ProductKey:  req.ProductKey,
			SceneKey:    req.SceneKey,
		},
		Params: job.Params{
			Script:      req.Script,
			Description: req.Description,
			Tone:        req.Tone,
			Motion:      req.Motion,
			VoiceID:     req.VoiceID,
			Style:       req.Style,
			AspectRatio: req.AspectRatio,
			DurationSec: req.DurationSec,
			Resolution:  req.Resolution,
		},
	})
	if err != nil {
		h.writeSubmitError(w, out, err)
		return
	}

	h.logger.Info("job created",
		slog.String("job_id", out.JobID),
		slog.String("kind", req.Kind),
	)

	writeJSON(w, http.StatusAccepted, CreateJobResponse{
		ID:    out.JobID,
		State: string(out.State),
	})
}

// GetJob handles GET /jobs/{id} requests. Each call reconciles the stored
// job against the provider; terminal jobs are answered from the store.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	out, err := h.service.Poll(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to poll job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, JobResponse{
		ID:       out.JobID,
		State:    string(out.State),
		VideoURL: out.ResultURL,
		Error:    out.ErrorMessage,
	})
}

// writeSubmitError maps orchestrator errors onto the HTTP surface.
func (h *Handlers) writeSubmitError(w http.ResponseWriter, out *job.SubmitOutput, err error) {
	switch {
	case errors.Is(err, job.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_INPUT")

	case errors.Is(err, job.ErrProviderRejected):
		// The job exists in the error state; include its id so the caller
		// can inspect the stored failure.
		resp := ErrorResponse{Error: err.Error(), Code: "PROVIDER_REJECTED"}
		if out != nil {
			resp.JobID = out.JobID
		}
		writeJSON(w, http.StatusBadGateway, resp)

	case errors.Is(err, job.ErrProviderUnreachable):
		writeError(w, http.StatusServiceUnavailable, "video provider is unreachable, retry later", "PROVIDER_UNREACHABLE")

	default:
		h.logger.Error("failed to create job",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create job", "JOB_CREATION_FAILED")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
