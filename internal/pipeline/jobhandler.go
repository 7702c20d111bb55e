package pipeline

import (
	"context"
	"fmt"

	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/jobs"
	"github.com/dvloznov/txclean/internal/logger"
)

// JobHandlerDeps are the collaborators of a reconcile job handler.
type JobHandlerDeps struct {
	Sources SourceDeps
	Run     RunDeps

	// Sinks is called once per job; it may be nil.
	Sinks func() []ResultSink
}

// NewJobHandler returns the queue handler that runs a ReconcileJob through
// RunBatch and records the run id, summary and report location on the job.
func NewJobHandler(cfg *config.Config, deps JobHandlerDeps) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.ReconcileJob) error {
		log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Logger()
		ctx = logger.WithContext(ctx, log)

		source, err := ResolveSource(job.Source, deps.Sources)
		if err != nil {
			return fmt.Errorf("reconcile job %s: %w", job.JobID, err)
		}

		var sinks []ResultSink
		if deps.Sinks != nil {
			sinks = deps.Sinks()
		}

		runID, result, err := RunBatch(ctx, source, sinks, cfg, deps.Run)
		job.RunID = runID
		if err != nil {
			return fmt.Errorf("reconcile job %s: %w", job.JobID, err)
		}

		summary := result.Summary()
		job.Summary = &summary
		for _, s := range sinks {
			if report, ok := s.(*GCSReportSink); ok && report.URI != "" {
				job.ReportURI = report.URI
			}
		}
		return nil
	}
}
