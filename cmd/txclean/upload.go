package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dvloznov/txclean/internal/gcs"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/spf13/cobra"
)

func newUploadCmd(root *rootOptions) *cobra.Command {
	var (
		bucket string
		file   string
		object string
	)

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload a raw CSV batch to Cloud Storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logger.FromContext(ctx)

			if bucket == "" {
				bucket = root.cfg.GCS.Bucket
			}
			if bucket == "" {
				return fmt.Errorf("--bucket or gcs.bucket is required")
			}
			if object == "" {
				object = fmt.Sprintf("raw/%s/%s", time.Now().Format("2006/01/02"), filepath.Base(file))
			}

			client, err := gcs.NewClient(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.UploadFile(ctx, bucket, object, file); err != nil {
				return err
			}

			uri := gcs.URI(bucket, object)
			log.Info().Str("gcs_uri", uri).Msg("Batch uploaded")
			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "target bucket (defaults to gcs.bucket)")
	cmd.Flags().StringVar(&file, "file", "", "local CSV file")
	cmd.Flags().StringVar(&object, "object", "", "object name (defaults to raw/<date>/<file>)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
