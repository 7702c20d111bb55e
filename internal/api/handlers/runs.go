// Package handlers implements the HTTP endpoints of the API server.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dvloznov/txclean/internal/api/middleware"
	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/dvloznov/txclean/internal/pipeline"
	"github.com/dvloznov/txclean/internal/rawcsv"
	"github.com/dvloznov/txclean/internal/validation"
)

// DefaultMaxBodyBytes bounds an uploaded CSV batch.
const DefaultMaxBodyBytes = 32 << 20

// RunLookup reads past runs.
type RunLookup interface {
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
}

// RunsHandler handles run endpoints.
type RunsHandler struct {
	cfg    *config.Config
	deps   pipeline.RunDeps
	sinks  func() []pipeline.ResultSink
	lookup RunLookup

	// MaxBodyBytes bounds the request body of CreateRun.
	MaxBodyBytes int64
}

// NewRunsHandler creates a runs handler. sinks is called once per run and may
// be nil; lookup may be nil when no runs table is configured.
func NewRunsHandler(cfg *config.Config, deps pipeline.RunDeps, sinks func() []pipeline.ResultSink, lookup RunLookup) *RunsHandler {
	return &RunsHandler{
		cfg:          cfg,
		deps:         deps,
		sinks:        sinks,
		lookup:       lookup,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

type runResponse struct {
	RunID     string                  `json:"run_id"`
	Report    validation.Report       `json:"report"`
	Stats     pipeline.Stats          `json:"stats"`
	Canonical domain.CanonicalDataset `json:"canonical,omitempty"`
	Audit     domain.AuditTrail       `json:"audit,omitempty"`
}

// CreateRun handles POST /api/runs. The body is a CSV batch; the run is
// executed synchronously. ?view=summary omits the records and audit trail.
func (h *RunsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Batch too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "http:" + middleware.RequestIDFromContext(ctx)
	}

	var sinks []pipeline.ResultSink
	if h.sinks != nil {
		sinks = h.sinks()
	}

	runID, result, err := pipeline.RunBatch(ctx, &pipeline.ReaderSource{Name: name, Data: body}, sinks, h.cfg, h.deps)
	if err != nil {
		if errors.Is(err, rawcsv.ErrMissingTransactionID) {
			middleware.WriteError(w, http.StatusBadRequest, "CSV header must contain transaction_id")
			return
		}
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to run batch")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to run batch")
		return
	}

	resp := runResponse{
		RunID:  runID,
		Report: result.Report,
		Stats:  result.Stats,
	}
	if r.URL.Query().Get("view") != "summary" {
		resp.Canonical = result.Canonical
		resp.Audit = result.Audit
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// GetRun handles GET /api/runs/{id}
func (h *RunsHandler) GetRun(w http.ResponseWriter, r *http.Request, runID string) {
	if h.lookup == nil {
		middleware.WriteError(w, http.StatusNotImplemented, "Run history is not configured")
		return
	}

	run, err := h.lookup.GetRun(r.Context(), runID)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}
	if run == nil {
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, run)
}
