package pipeline

import (
	"context"

	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/google/uuid"
)

// NoopRunTracker issues run ids without a runs table. It is used by local
// runs and by the HTTP API when no warehouse is configured.
type NoopRunTracker struct{}

// StartRun returns a fresh run id.
func (NoopRunTracker) StartRun(ctx context.Context, source string) (string, error) {
	return uuid.NewString(), nil
}

// MarkRunFailed logs the failure.
func (NoopRunTracker) MarkRunFailed(ctx context.Context, runID string, runErr error) {
	log := logger.FromContext(ctx)
	log.Warn().Err(runErr).Str("run_id", runID).Msg("Run failed")
}

// MarkRunSucceeded does nothing.
func (NoopRunTracker) MarkRunSucceeded(ctx context.Context, runID string, summary domain.RunSummary) error {
	return nil
}
