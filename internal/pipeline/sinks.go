package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dvloznov/txclean/internal/gcs"
)

// RunDocument is the JSON form of a stored run.
type RunDocument struct {
	RunID string `json:"run_id"`
	*Result
}

func marshalRun(runID string, result *Result) ([]byte, error) {
	return json.MarshalIndent(RunDocument{RunID: runID, Result: result}, "", "  ")
}

// JSONFileSink writes the run as an indented JSON document. Path may be a
// directory, in which case the file is named <run_id>.json.
type JSONFileSink struct {
	Path string
}

func (s *JSONFileSink) Store(ctx context.Context, runID string, result *Result) error {
	data, err := marshalRun(runID, result)
	if err != nil {
		return fmt.Errorf("JSONFileSink.Store: marshal: %w", err)
	}

	target := s.Path
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		target = filepath.Join(target, runID+".json")
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return fmt.Errorf("JSONFileSink.Store: write %q: %w", target, err)
	}
	return nil
}

// GCSReportSink uploads the run document to bucket/<Prefix><run_id>.json.
type GCSReportSink struct {
	Bucket  string
	Prefix  string
	Storage gcs.StorageService

	// URI is set to the uploaded object after a successful Store.
	URI string
}

func (s *GCSReportSink) Store(ctx context.Context, runID string, result *Result) error {
	data, err := marshalRun(runID, result)
	if err != nil {
		return fmt.Errorf("GCSReportSink.Store: marshal: %w", err)
	}
	uri, err := s.Storage.UploadBytes(ctx, s.Bucket, s.Prefix+runID+".json", data, "application/json")
	if err != nil {
		return fmt.Errorf("GCSReportSink.Store: %w", err)
	}
	s.URI = uri
	return nil
}

// BigQuerySink writes the canonical records and the audit trail.
type BigQuerySink struct {
	Repo WarehouseRepository
}

func (s *BigQuerySink) Store(ctx context.Context, runID string, result *Result) error {
	if err := s.Repo.InsertCanonicalRecords(ctx, runID, result.Canonical); err != nil {
		return fmt.Errorf("BigQuerySink.Store: %w", err)
	}
	if err := s.Repo.InsertAuditTrail(ctx, runID, result.Audit); err != nil {
		return fmt.Errorf("BigQuerySink.Store: %w", err)
	}
	return nil
}
