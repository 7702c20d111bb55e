// Command worker reads one source per line from stdin (gs:// URIs,
// bq:<table> names or local paths), runs each as a reconcile job and exits
// once every job has completed or failed.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/gcs"
	infraBQ "github.com/dvloznov/txclean/internal/infra/bigquery"
	"github.com/dvloznov/txclean/internal/jobs"
	"github.com/dvloznov/txclean/internal/jobs/inmemory"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/dvloznov/txclean/internal/metrics"
	"github.com/dvloznov/txclean/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("TXCLEAN_CONFIG"), "path to a YAML config file (or set TXCLEAN_CONFIG)")
		maxRetries = flag.Int("max-retries", jobs.DefaultMaxRetries, "retries per job")
		outputDir  = flag.String("output", "", "directory for per-run JSON results")
	)
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}
	log = logger.New()

	ctx, cancel := context.WithCancel(logger.WithContext(context.Background(), log))
	defer cancel()

	sourceDeps := pipeline.SourceDeps{}
	runDeps := pipeline.RunDeps{Metrics: metrics.Default}
	var staticSinks []pipeline.ResultSink
	var storage *gcs.Client

	if cfg.GCS.Bucket != "" {
		storage, err = gcs.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()
		sourceDeps.Storage = storage
	}
	if cfg.BigQuery.Project != "" {
		repo, err := infraBQ.NewRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		sourceDeps.Repo = repo
		runDeps.Runs = repo
		staticSinks = append(staticSinks, &pipeline.BigQuerySink{Repo: repo})
	}
	if *outputDir != "" {
		staticSinks = append(staticSinks, &pipeline.JSONFileSink{Path: *outputDir})
	}

	sinks := func() []pipeline.ResultSink {
		out := append([]pipeline.ResultSink(nil), staticSinks...)
		if storage != nil {
			out = append(out, &pipeline.GCSReportSink{Bucket: cfg.GCS.Bucket, Prefix: "reports/", Storage: storage})
		}
		return out
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.Workers, jobStore)

	handler := pipeline.NewJobHandler(cfg, pipeline.JobHandlerDeps{
		Sources: sourceDeps,
		Run:     runDeps,
		Sinks:   sinks,
	})
	if err := jobQueue.Start(ctx, handler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	log.Info().Int("workers", cfg.Workers).Msg("Worker service started, reading sources from stdin")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("Interrupted, stopping")
		cancel()
	}()

	var ids []string
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		source := strings.TrimSpace(scanner.Text())
		if source == "" || strings.HasPrefix(source, "#") {
			continue
		}
		job := &jobs.ReconcileJob{Source: source, MaxRetries: *maxRetries}
		if err := jobQueue.PublishReconcile(ctx, job); err != nil {
			log.Error().Err(err).Str("source", source).Msg("Failed to enqueue job")
			continue
		}
		ids = append(ids, job.JobID)
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("Reading stdin failed")
	}

	failed := waitForJobs(ctx, jobStore, ids)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	printJobs(context.Background(), jobStore, ids)
	log.Info().Int("jobs", len(ids)).Int("failed", failed).Msg("Worker service exited")
	if failed > 0 || ctx.Err() != nil {
		os.Exit(1)
	}
}

// waitForJobs polls the store until every job is terminal or ctx ends and
// returns the number of failed jobs.
func waitForJobs(ctx context.Context, store jobs.JobStore, ids []string) int {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		done, failed := 0, 0
		for _, id := range ids {
			job, err := store.GetJob(ctx, id)
			if err != nil {
				continue
			}
			switch job.Status {
			case jobs.JobStatusCompleted:
				done++
			case jobs.JobStatusFailed:
				done++
				failed++
			}
		}
		if done == len(ids) {
			return failed
		}

		select {
		case <-ctx.Done():
			return failed
		case <-ticker.C:
		}
	}
}

func printJobs(ctx context.Context, store jobs.JobStore, ids []string) {
	for _, id := range ids {
		job, err := store.GetJob(ctx, id)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("%s\t%s\t%s\trun=%s", job.JobID, job.Status, job.Source, job.RunID)
		if job.Summary != nil {
			line += fmt.Sprintf("\tkept=%d\tduplicates=%d\tpassed=%v",
				job.Summary.KeptRecords, job.Summary.Duplicates, job.Summary.ReportPassed)
		}
		if job.Error != "" {
			line += "\terror=" + job.Error
		}
		fmt.Println(line)
	}
}
