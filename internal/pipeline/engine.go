// Package pipeline wires the normalize, reconcile and validation stages into
// the batch entry point and the run pipeline used by the operator surfaces.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/domain"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/dvloznov/txclean/internal/normalize"
	"github.com/dvloznov/txclean/internal/reconcile"
	"github.com/dvloznov/txclean/internal/validation"
	"golang.org/x/sync/errgroup"
)

// Stats summarises one batch.
type Stats struct {
	RawRecords     int                  `json:"raw_records"`
	KeptRecords    int                  `json:"kept_records"`
	Duplicates     int                  `json:"duplicates"`
	UnparsedFields map[domain.Field]int `json:"unparsed_fields"`
}

// Result is the full outcome of NormalizeAndReconcile.
type Result struct {
	Canonical domain.CanonicalDataset `json:"canonical"`
	Report    validation.Report       `json:"report"`
	Audit     domain.AuditTrail       `json:"audit"`
	Stats     Stats                   `json:"stats"`
}

// UnparsedByName returns the unparsed counts keyed by plain field name.
func (s Stats) UnparsedByName() map[string]int {
	out := make(map[string]int, len(s.UnparsedFields))
	for f, n := range s.UnparsedFields {
		out[string(f)] = n
	}
	return out
}

// SortedUnparsedFields lists the fields with at least one parse failure.
func (s Stats) SortedUnparsedFields() []domain.Field {
	fields := make([]domain.Field, 0, len(s.UnparsedFields))
	for f := range s.UnparsedFields {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// NormalizeAndReconcile turns a batch of raw records into the canonical
// dataset, its quality report and the duplicate audit trail. Records are
// normalized in parallel; the output depends only on the input and cfg.
// The only errors are configuration errors, reported before any record is
// touched, and context cancellation.
func NormalizeAndReconcile(ctx context.Context, raws []domain.RawRecord, cfg *config.Config) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("NormalizeAndReconcile: %w", config.ErrInvalidConfig)
	}
	if len(cfg.Rates()) == 0 {
		return nil, fmt.Errorf("NormalizeAndReconcile: %w", config.ErrMissingRateTable)
	}
	if len(cfg.Synonyms()) == 0 {
		return nil, fmt.Errorf("NormalizeAndReconcile: %w", config.ErrMissingSynonymTable)
	}

	log := logger.FromContext(ctx)
	normalizer := normalize.NewRecordNormalizer(cfg.Rates(), cfg.Synonyms(), cfg.QuantityCeiling)

	candidates := make([]domain.NormalizedRecord, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rec, _ := normalizer.Normalize(gctx, raws[i])
			if rec.RowNumber == 0 {
				rec.RowNumber = i + 1
			}
			candidates[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("NormalizeAndReconcile: normalizing: %w", err)
	}

	stats := Stats{
		RawRecords:     len(raws),
		UnparsedFields: make(map[domain.Field]int),
	}
	for i := range candidates {
		for f := range candidates[i].Unparsed {
			stats.UnparsedFields[f]++
		}
	}

	rec := reconcile.Reconcile(candidates)
	stats.KeptRecords = len(rec.Kept)
	stats.Duplicates = len(rec.Duplicates)

	report := validation.New(cfg).Validate(rec.Kept)

	log.Info().
		Int("raw_records", stats.RawRecords).
		Int("kept_records", stats.KeptRecords).
		Int("duplicates", stats.Duplicates).
		Bool("report_passed", report.Passed).
		Msg("Batch normalized and reconciled")

	return &Result{
		Canonical: rec.Kept,
		Report:    report,
		Audit:     rec.Audit,
		Stats:     stats,
	}, nil
}
