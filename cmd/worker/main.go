// Command worker is the Orchestrator/Worker process: a fixed-size pool
// of goroutines dequeuing tasks from the task queue, driving each
// through the Pipeline Executor, and persisting the aggregated result.
// One or more worker processes may run alongside a single API process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aetherframe/orchestrator/internal/config"
	"github.com/aetherframe/orchestrator/internal/db"
	"github.com/aetherframe/orchestrator/internal/logger"
	"github.com/aetherframe/orchestrator/internal/orchestrator"
	"github.com/aetherframe/orchestrator/internal/pipeline"
	"github.com/aetherframe/orchestrator/internal/plugins"
	"github.com/aetherframe/orchestrator/internal/queue"

	// Blank-import every builtin plugin so its init() registers its
	// factory before the first job is dequeued.
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/diff"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/gate"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/intent"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/reconstruct"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/report"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/static"
	_ "github.com/aetherframe/orchestrator/internal/plugins/builtin/trace"
)

func main() {
	cfg := config.Load()
	logger.Initialize(cfg.LogLevel, cfg.LogPretty)
	log := logger.GetLogger()

	log.Info().Msg("starting aetherframe worker")

	database, err := db.NewDatabase(db.Config{
		Host:     cfg.DBHost,
		Port:     fmt.Sprintf("%d", cfg.DBPort),
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	discovery := plugins.NewDiscovery(cfg.PluginsDir)
	if err := discovery.Scan(); err != nil {
		log.Warn().Err(err).Msg("plugin discovery reported an error, continuing with what was found")
	}
	registry := plugins.NewRegistry(discovery)
	catalogue := pipeline.NewCatalogue()

	var q queue.Queue
	switch cfg.QueueBackend {
	case "redis":
		q = queue.NewRedisQueue(cfg.RedisAddr, "aether:tasks")
		log.Info().Str("addr", cfg.RedisAddr).Msg("task queue backend: redis")
	default:
		q = queue.NewChanQueue(cfg.QueueCapacity)
		log.Info().Msg("task queue backend: in-process channel")
	}
	defer q.Close()

	jobStore := db.NewJobStore(database.DB())
	stores := orchestrator.Stores{
		Jobs:        jobStore,
		Findings:    db.NewFindingStore(database.DB()),
		Artifacts:   db.NewArtifactStore(database.DB()),
		TraceEvents: db.NewTraceEventStore(database.DB()),
		Events:      db.NewEventStore(database.DB()),
	}

	w := orchestrator.NewWorker(stores, registry, catalogue, q, orchestrator.Config{
		WorkspaceBase:     cfg.WorkspaceBase,
		ArtifactsBase:     cfg.ArtifactsBase,
		CleanupWorkspace:  cfg.CleanupWorkspace,
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := w.SeedPending(ctx); err != nil {
		log.Error().Err(err).Msg("failed to seed pending jobs at startup")
	}

	sweep := queue.NewSweep(jobStore, q, cfg.StaleJobTimeout)
	if err := sweep.Start(cfg.SweepInterval); err != nil {
		log.Error().Err(err).Msg("failed to start stale-job sweep")
	} else {
		log.Info().Dur("interval", cfg.SweepInterval).Dur("stale_after", cfg.StaleJobTimeout).Msg("stale-job sweep started")
	}
	defer sweep.Stop()

	runDone := make(chan struct{})
	go func() {
		log.Info().Int("concurrency", cfg.MaxConcurrentJobs).Msg("worker pool running")
		w.Run(ctx)
		close(runDone)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received, draining worker pool")

	cancel()
	<-runDone
	log.Info().Msg("worker pool stopped")
}
