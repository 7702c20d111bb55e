package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dvloznov/txclean/internal/api/handlers"
	"github.com/dvloznov/txclean/internal/api/middleware"
	"github.com/dvloznov/txclean/internal/config"
	"github.com/dvloznov/txclean/internal/gcs"
	infraBQ "github.com/dvloznov/txclean/internal/infra/bigquery"
	"github.com/dvloznov/txclean/internal/jobs/inmemory"
	"github.com/dvloznov/txclean/internal/logger"
	"github.com/dvloznov/txclean/internal/metrics"
	"github.com/dvloznov/txclean/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	var (
		port       = flag.String("port", "8080", "HTTP server port")
		configPath = flag.String("config", os.Getenv("TXCLEAN_CONFIG"), "path to a YAML config file (or set TXCLEAN_CONFIG)")
		token      = flag.String("token", os.Getenv("TXCLEAN_API_TOKEN"), "bearer token for /api routes (or set TXCLEAN_API_TOKEN)")
	)
	flag.Parse()

	log := logger.NewJSON(os.Stdout)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Invalid log level")
	}
	log = logger.NewJSON(os.Stdout)

	if *token == "" {
		log.Warn().Msg("No API token configured - /api routes are unauthenticated")
	}

	ctx := logger.WithContext(context.Background(), log)

	sourceDeps := pipeline.SourceDeps{}
	runDeps := pipeline.RunDeps{Metrics: metrics.Default}
	var sinks func() []pipeline.ResultSink
	var lookup handlers.RunLookup

	if cfg.GCS.Bucket != "" {
		storage, err := gcs.NewClient(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer storage.Close()
		sourceDeps.Storage = storage
		sinks = appendSink(sinks, func() pipeline.ResultSink {
			return &pipeline.GCSReportSink{Bucket: cfg.GCS.Bucket, Prefix: "reports/", Storage: storage}
		})
	} else {
		log.Warn().Msg("No GCS bucket configured - gs:// sources and report uploads are disabled")
	}

	if cfg.BigQuery.Project != "" {
		repo, err := infraBQ.NewRepository(ctx, cfg.BigQuery.Project, cfg.BigQuery.Dataset)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery repository")
		}
		defer repo.Close()
		sourceDeps.Repo = repo
		runDeps.Runs = repo
		lookup = repo
		sinks = appendSink(sinks, func() pipeline.ResultSink {
			return &pipeline.BigQuerySink{Repo: repo}
		})
	} else {
		log.Warn().Msg("No BigQuery project configured - runs are not persisted")
	}

	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, cfg.Workers, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := pipeline.NewJobHandler(cfg, pipeline.JobHandlerDeps{
		Sources: sourceDeps,
		Run:     runDeps,
		Sinks:   sinks,
	})
	if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job workers")
	}

	runsHandler := handlers.NewRunsHandler(cfg, runDeps, sinks, lookup)
	jobsHandler := handlers.NewJobsHandler(jobStore, jobQueue)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			runsHandler.CreateRun(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
		if runID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Run ID is required")
			return
		}
		runsHandler.GetRun(w, r, runID)
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			jobsHandler.ListJobs(w, r)
		case http.MethodPost:
			jobsHandler.CreateJob(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	mux.Handle("/metrics", metrics.Default.Handler())

	handler := middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.Metrics(metrics.Default)(
					middleware.CORS(
						middleware.Auth(*token)(mux),
					),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Int("workers", cfg.Workers).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// In-flight jobs finish before the worker context is cancelled.
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}

// appendSink chains another per-run sink constructor onto sinks.
func appendSink(sinks func() []pipeline.ResultSink, next func() pipeline.ResultSink) func() []pipeline.ResultSink {
	return func() []pipeline.ResultSink {
		var out []pipeline.ResultSink
		if sinks != nil {
			out = sinks()
		}
		return append(out, next())
	}
}
