package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/dvloznov/txclean/internal/metrics"
)

// PipelineStep represents a single step of a reconciliation run.
type PipelineStep interface {
	Execute(ctx context.Context, state *PipelineState) error
}

// PipelineState holds the shared state across all pipeline steps.
type PipelineState struct {
	Config *config.Config
	Source RecordSource
	Sinks  []ResultSink
	Runs   RunTracker

	RunID  string
	Raw    []domain.RawRecord
	Result *Result
}

// StartRunStep registers the run (status=RUNNING).
type StartRunStep struct{}

func (s *StartRunStep) Execute(ctx context.Context, state *PipelineState) error {
	runID, err := state.Runs.StartRun(ctx, state.Source.Describe())
	if err != nil {
		return err
	}
	state.RunID = runID
	return nil
}

// LoadStep reads the raw batch from the source.
type LoadStep struct{}

func (s *LoadStep) Execute(ctx context.Context, state *PipelineState) error {
	raws, err := state.Source.Load(ctx)
	if err != nil {
		return err
	}
	state.Raw = raws
	return nil
}

// NormalizeAndReconcileStep runs the engine over the loaded batch.
type NormalizeAndReconcileStep struct{}

func (s *NormalizeAndReconcileStep) Execute(ctx context.Context, state *PipelineState) error {
	result, err := NormalizeAndReconcile(ctx, state.Raw, state.Config)
	if err != nil {
		return err
	}
	state.Result = result
	return nil
}

// StoreStep hands the result to every sink in order.
type StoreStep struct{}

func (s *StoreStep) Execute(ctx context.Context, state *PipelineState) error {
	for _, sink := range state.Sinks {
		if err := sink.Store(ctx, state.RunID, state.Result); err != nil {
			return err
		}
	}
	return nil
}

// MarkSuccessStep marks the run as SUCCESS.
type MarkSuccessStep struct{}

func (s *MarkSuccessStep) Execute(ctx context.Context, state *PipelineState) error {
	return state.Runs.MarkRunSucceeded(ctx, state.RunID, state.Result.Summary())
}

// Summary condenses a result for the runs table.
func (r *Result) Summary() domain.RunSummary {
	return domain.RunSummary{
		RawRecords:   r.Stats.RawRecords,
		KeptRecords:  r.Stats.KeptRecords,
		Duplicates:   r.Stats.Duplicates,
		ReportPassed: r.Report.Passed,
	}
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps sequentially. Once a run id exists, a failing step
// marks the run as FAILED before returning.
func (p *Pipeline) Execute(ctx context.Context, state *PipelineState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			if state.RunID != "" {
				state.Runs.MarkRunFailed(ctx, state.RunID, err)
			}
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// NewReconciliationPipeline creates the standard run pipeline.
func NewReconciliationPipeline() *Pipeline {
	return NewPipeline(
		&StartRunStep{},
		&LoadStep{},
		&NormalizeAndReconcileStep{},
		&StoreStep{},
		&MarkSuccessStep{},
	)
}

// RunDeps are the collaborators of RunBatch. Nil fields fall back to
// NoopRunTracker and metrics.Default.
type RunDeps struct {
	Runs    RunTracker
	Metrics *metrics.Recorder
}

// RunBatch loads one batch, reconciles it, stores the result in every sink
// and records the run lifecycle and metrics. It returns the run id, which is
// set even when a later step fails.
func RunBatch(ctx context.Context, source RecordSource, sinks []ResultSink, cfg *config.Config, deps RunDeps) (string, *Result, error) {
	if deps.Runs == nil {
		deps.Runs = NoopRunTracker{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Default
	}

	state := &PipelineState{
		Config: cfg,
		Source: source,
		Sinks:  sinks,
		Runs:   deps.Runs,
	}

	log := logger.FromContext(ctx)
	start := time.Now()
	err := NewReconciliationPipeline().Execute(ctx, state)
	deps.Metrics.ObserveRun(outcome(state, err, time.Since(start)))

	if err != nil {
		log = logger.WithRun(log, state.RunID)
		log.Error().Err(err).Str("source", source.Describe()).Msg("Reconciliation run failed")
		return state.RunID, state.Result, fmt.Errorf("RunBatch: %w", err)
	}

	log = logger.WithRun(log, state.RunID)
	log.Info().
		Str("source", source.Describe()).
		Dur("duration", time.Since(start)).
		Msg("Reconciliation run succeeded")
	return state.RunID, state.Result, nil
}

func outcome(state *PipelineState, err error, d time.Duration) metrics.RunOutcome {
	o := metrics.RunOutcome{Err: err, Duration: d}
	if state.Result == nil {
		return o
	}
	o.RawRecords = state.Result.Stats.RawRecords
	o.KeptRecords = state.Result.Stats.KeptRecords
	o.Duplicates = state.Result.Stats.Duplicates
	o.UnparsedFields = state.Result.Stats.UnparsedByName()
	for _, c := range state.Result.Report.Failed() {
		o.FailedChecks = append(o.FailedChecks, c.Name)
	}
	return o
}
