package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dvloznov/txclean/internal/pipeline"
	"github.com/dvloznov/txclean/internal/rawcsv"
	"github.com/dvloznov/txclean/internal/validation"
	"github.com/spf13/cobra"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var (
		input     string
		canonical string
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Reconcile a batch, print the quality report and fail when it does not pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c := &clients{}
			defer c.Close()

			srcDeps, err := c.sourceDeps(ctx, root.cfg, input)
			if err != nil {
				return err
			}
			source, err := pipeline.ResolveSource(input, srcDeps)
			if err != nil {
				return err
			}
			raws, err := source.Load(ctx)
			if err != nil {
				return err
			}

			result, err := pipeline.NormalizeAndReconcile(ctx, raws, root.cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printStats(out, result.Stats)
			printReport(out, result.Report)

			if canonical != "" {
				f, err := os.Create(canonical)
				if err != nil {
					return fmt.Errorf("check: create %q: %w", canonical, err)
				}
				defer f.Close()
				if err := rawcsv.WriteCanonical(f, result.Canonical); err != nil {
					return err
				}
			}

			if !result.Report.Passed {
				return errReportFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "batch to read: file path, gs://bucket/object or bq:<table>")
	cmd.Flags().StringVar(&canonical, "canonical-csv", "", "also write the canonical records as CSV")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func printStats(w io.Writer, s pipeline.Stats) {
	fmt.Fprintf(w, "Records: %d raw, %d kept, %d duplicates\n", s.RawRecords, s.KeptRecords, s.Duplicates)
	for _, f := range s.SortedUnparsedFields() {
		fmt.Fprintf(w, "  unparsed %-15s %d\n", f, s.UnparsedFields[f])
	}
}

func printReport(w io.Writer, r validation.Report) {
	verdict := "PASSED"
	if !r.Passed {
		verdict = "FAILED"
	}
	fmt.Fprintf(w, "Quality report: %s\n", verdict)
	for _, c := range r.Checks {
		mark := "ok"
		switch {
		case !c.Passed && c.Advisory:
			mark = "warn"
		case !c.Passed:
			mark = "FAIL"
		}
		line := fmt.Sprintf("  %-4s %-22s offending=%d", mark, c.Name, c.Offending)
		if c.Value != 0 {
			line += fmt.Sprintf(" value=%.2f", c.Value)
		}
		fmt.Fprintln(w, line)
	}
}
