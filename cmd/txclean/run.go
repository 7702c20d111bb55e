package main

import (
	"fmt"

	"github.com/dvloznov/txclean/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	var (
		input     string
		output    string
		reportGCS bool
		toBQ      bool
		trackRuns bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile one batch and store the result",
		Long: "Reads a batch from a local CSV file, a gs:// object or a BigQuery raw table (bq:<table>),\n" +
			"reconciles it and writes the result to the selected sinks.",
		Example: "  txclean run --input batch.csv --output out/\n" +
			"  txclean run --input gs://bucket/raw/batch.csv --report-gcs --bigquery --track-runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := root.cfg

			c := &clients{}
			defer c.Close()

			srcDeps, err := c.sourceDeps(ctx, cfg, input)
			if err != nil {
				return err
			}
			source, err := pipeline.ResolveSource(input, srcDeps)
			if err != nil {
				return err
			}

			var sinks []pipeline.ResultSink
			if output != "" {
				sinks = append(sinks, &pipeline.JSONFileSink{Path: output})
			}
			var report *pipeline.GCSReportSink
			if reportGCS {
				if cfg.GCS.Bucket == "" {
					return fmt.Errorf("--report-gcs needs gcs.bucket in the config")
				}
				s, err := c.openStorage(ctx)
				if err != nil {
					return err
				}
				report = &pipeline.GCSReportSink{Bucket: cfg.GCS.Bucket, Prefix: "reports/", Storage: s}
				sinks = append(sinks, report)
			}

			deps := pipeline.RunDeps{}
			if toBQ || trackRuns {
				repo, err := c.openRepo(ctx, cfg)
				if err != nil {
					return err
				}
				if toBQ {
					sinks = append(sinks, &pipeline.BigQuerySink{Repo: repo})
				}
				if trackRuns {
					deps.Runs = repo
				}
			}

			runID, result, err := pipeline.RunBatch(ctx, source, sinks, cfg, deps)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", runID)
			printStats(out, result.Stats)
			printReport(out, result.Report)
			if report != nil {
				fmt.Fprintf(out, "Report uploaded to %s\n", report.URI)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "batch to read: file path, gs://bucket/object or bq:<table>")
	cmd.Flags().StringVar(&output, "output", "", "write the run as JSON to this file or directory")
	cmd.Flags().BoolVar(&reportGCS, "report-gcs", false, "upload the run JSON to the configured GCS bucket")
	cmd.Flags().BoolVar(&toBQ, "bigquery", false, "write canonical records and the audit trail to BigQuery")
	cmd.Flags().BoolVar(&trackRuns, "track-runs", false, "record the run lifecycle in the BigQuery runs table")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
