package main

import (
	"fmt"

	"github.com/dvloznov/txclean/internal/rawcsv"
	"github.com/spf13/cobra"
)

func newInspectCmd(root *rootOptions) *cobra.Command {
	var (
		runID   string
		records bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show a recorded run and optionally its canonical records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c := &clients{}
			defer c.Close()
			repo, err := c.openRepo(ctx, root.cfg)
			if err != nil {
				return err
			}

			run, err := repo.GetRun(ctx, runID)
			if err != nil {
				return err
			}
			if run == nil {
				return fmt.Errorf("run %s not found", runID)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run:      %s\n", run.RunID)
			fmt.Fprintf(out, "Source:   %s\n", run.Source)
			fmt.Fprintf(out, "Status:   %s\n", run.Status)
			fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
			if run.FinishedAt != nil {
				fmt.Fprintf(out, "Finished: %s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
			}
			if run.ErrorMessage != "" {
				fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
			}
			s := run.Summary
			fmt.Fprintf(out, "Records:  %d raw, %d kept, %d duplicates, report passed=%v\n",
				s.RawRecords, s.KeptRecords, s.Duplicates, s.ReportPassed)

			if !records {
				return nil
			}
			canonical, err := repo.QueryCanonicalByRun(ctx, runID)
			if err != nil {
				return err
			}
			return rawcsv.WriteCanonical(out, canonical)
		},
	}

	cmd.Flags().StringVar(&runID, "run-id", "", "run to inspect")
	cmd.Flags().BoolVar(&records, "records", false, "print the canonical records as CSV")
	_ = cmd.MarkFlagRequired("run-id")
	return cmd
}
