package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/gcs"
	infraBQ "github.com/dvloznov/txclean/internal/infra/bigquery"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/dvloznov/txclean/internal/pipeline"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// errReportFailed makes the process exit 1 after a failed quality report has
// already been printed.
var errReportFailed = errors.New("quality report failed")

type rootOptions struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "txclean",
		Short:         "Normalize and reconcile transaction batches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if opts.logLevel != "" {
				level = opts.logLevel
			}
			if err := logger.SetLevel(level); err != nil {
				return err
			}
			opts.cfg = cfg

			log := logger.New()
			cmd.SetContext(logger.WithContext(cmd.Context(), log))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newUploadCmd(opts),
		newInspectCmd(opts),
	)
	return cmd
}

// clients holds the cloud clients a command opened; Close releases them.
type clients struct {
	storage *gcs.Client
	repo    *infraBQ.Repository
}

func (c *clients) Close() {
	if c.storage != nil {
		_ = c.storage.Close()
	}
	if c.repo != nil {
		_ = c.repo.Close()
	}
}

// sourceDeps opens only the clients the given input needs.
func (c *clients) sourceDeps(ctx context.Context, cfg *config.Config, input string) (pipeline.SourceDeps, error) {
	var deps pipeline.SourceDeps
	switch {
	case gcs.IsURI(input):
		s, err := c.openStorage(ctx)
		if err != nil {
			return deps, err
		}
		deps.Storage = s
	case strings.HasPrefix(input, pipeline.BigQuerySourcePrefix):
		r, err := c.openRepo(ctx, cfg)
		if err != nil {
			return deps, err
		}
		deps.Repo = r
	}
	return deps, nil
}

func (c *clients) openStorage(ctx context.Context) (*gcs.Client, error) {
	if c.storage != nil {
		return c.storage, nil
	}
	s, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	c.storage = s
	return s, nil
}

func (c *clients) openRepo(ctx context.Context, cfg *config.Config) (*infraBQ.Repository, error) {
	if c.repo != nil {
		return c.repo, nil
	}
	if cfg.BigQuery.Project == "" {
		return nil, fmt.Errorf("bigquery.project is not configured")
	}
	r, err := infraBQ.NewRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
	if err != nil {
		return nil, err
	}
	c.repo = r
	return r, nil
}
