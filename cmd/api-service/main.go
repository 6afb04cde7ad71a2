package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clipforge/ffdispatch/internal/api/handler"
	"github.com/clipforge/ffdispatch/internal/api/router"
	"github.com/clipforge/ffdispatch/internal/config"
	"github.com/clipforge/ffdispatch/internal/fetch"
	"github.com/clipforge/ffdispatch/internal/ffmpeg"
	"github.com/clipforge/ffdispatch/internal/job"
	"github.com/clipforge/ffdispatch/internal/queue"
	"github.com/clipforge/ffdispatch/internal/storage"
	"github.com/clipforge/ffdispatch/internal/worker"
	"github.com/clipforge/ffdispatch/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Collaborators
	executor := ffmpeg.NewExecutor(cfg.FFmpeg.Binary, cfg.FFmpeg.ProbeBinary)
	if !executor.Available() {
		appLogger.Warn("ffmpeg not found on PATH; every job will fail until it is installed")
	}

	fetcher := fetch.NewHTTPFetcher(cfg.Worker.FetchTimeout)
	store := storage.NewS3Store(storage.S3Config{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Endpoint:      cfg.Storage.Endpoint,
		PresignExpiry: cfg.Storage.PresignExpiry,
	}, appLogger.Logger)

	// Shared state: job registry and queue
	registry := job.NewRegistry()
	jobQueue := queue.New(appLogger.Logger)
	subscribeLifecycleLogging(jobQueue, appLogger.Logger)

	// Worker pool with the handler table built once at startup
	pipelines := worker.NewPipelines(appLogger.Logger, fetcher, store, executor, cfg.Storage.KeyPrefix)
	handlers := pipelines.HandlerTable()

	pool := worker.NewPool(&worker.Config{
		Logger:      appLogger.Logger,
		Queue:       jobQueue,
		Handlers:    handlers,
		Concurrency: cfg.Worker.Concurrency,
		WorkDirRoot: cfg.Worker.WorkDir,
	})
	pool.Start(context.Background())

	// Initialize router
	jobTypes := make([]string, 0, len(handlers))
	for t := range handlers {
		jobTypes = append(jobTypes, t)
	}

	r := initRouter(cfg.App.Environment, &handler.Dependencies{
		Logger:   appLogger.Logger,
		Registry: registry,
		Queue:    jobQueue,
		Prober:   executor,
		JobTypes: jobTypes,
	})

	// Create HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
		slog.Int("workers", cfg.Worker.Concurrency),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
	}

	// Let in-flight jobs finish before exiting
	pool.Stop()

	appLogger.Info("Shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	})
}

// subscribeLifecycleLogging registers structured-log subscribers for
// every job lifecycle event.
func subscribeLifecycleLogging(q *queue.Queue, logger *slog.Logger) {
	q.Subscribe(queue.EventStarted, func(j *job.Job) {
		logger.Info("Job started",
			slog.String("job_id", j.ID),
			slog.String("job_type", j.Type),
		)
	})
	q.Subscribe(queue.EventCompleted, func(j *job.Job) {
		logger.Info("Job completed",
			slog.String("job_id", j.ID),
		)
	})
	q.Subscribe(queue.EventFailed, func(j *job.Job) {
		_, _, detail := j.Snapshot()
		logger.Warn("Job failed",
			slog.String("job_id", j.ID),
			slog.String("error", detail),
		)
	})
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
