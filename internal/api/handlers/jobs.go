package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/txclean/internal/api/middleware"
	"github.com/dvloznov/txclean/internal/gcs"
	"github.com/dvloznov/txclean/internal/jobs"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/dvloznov/txclean/internal/pipeline"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// JobsHandler handles job endpoints.
type JobsHandler struct {
	store     jobs.JobStore
	publisher jobs.Publisher
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, publisher jobs.Publisher) *JobsHandler {
	return &JobsHandler{
		store:     store,
		publisher: publisher,
	}
}

type createJobRequest struct {
	Source     string `json:"source" validate:"required_without=GCSURI"`
	GCSURI     string `json:"gcs_uri" validate:"omitempty,startswith=gs://"`
	MaxRetries int    `json:"max_retries" validate:"gte=0,lte=10"`
}

func (req createJobRequest) source() string {
	if req.Source != "" {
		return req.Source
	}
	return req.GCSURI
}

func validSource(source string) bool {
	if gcs.IsURI(source) {
		_, _, err := gcs.ParseURI(source)
		return err == nil
	}
	return strings.HasPrefix(source, pipeline.BigQuerySourcePrefix) && len(source) > len(pipeline.BigQuerySourcePrefix)
}

// CreateJob handles POST /api/jobs
func (h *JobsHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "source or gcs_uri is required")
		return
	}

	source := req.source()
	if !validSource(source) {
		middleware.WriteError(w, http.StatusBadRequest, "source must be gs://bucket/object or bq:<table>")
		return
	}

	job := &jobs.ReconcileJob{Source: source, MaxRetries: req.MaxRetries}
	if err := h.publisher.PublishReconcile(ctx, job); err != nil {
		if errors.Is(err, jobs.ErrQueueClosed) {
			middleware.WriteError(w, http.StatusServiceUnavailable, "Job queue is shutting down")
			return
		}
		log.Error().Err(err).Msg("Failed to enqueue reconcile job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue reconcile job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("source", source).Msg("Reconcile job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"source": source,
		"status": string(jobs.JobStatusPending),
	})
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Job not found")
			return
		}
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		Source: query.Get("source"),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
