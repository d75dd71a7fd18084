// Command api is the HTTP API process: it accepts job submissions,
// enqueues them onto the task queue, and serves read-only queries
// against the store. It never executes a pipeline itself — that is
// the worker process's job.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aetherframe/orchestrator/internal/api"
	"github.com/aetherframe/orchestrator/internal/config"
	"github.com/aetherframe/orchestrator/internal/db"
	"github.com/aetherframe/orchestrator/internal/logger"
	"github.com/aetherframe/orchestrator/internal/pipeline"
	"github.com/aetherframe/orchestrator/internal/plugins"
	"github.com/aetherframe/orchestrator/internal/queue"

	// Blank-import every builtin plugin so its init() registers its
	// factory with the global registry before discovery runs. The
	// catalogue's builtin pipelines reference these ids by name.
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

	log.Info().Msg("starting aetherframe API server")

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

	log.Info().Msg("running database migrations")
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

	deps := api.Deps{
		Jobs:        db.NewJobStore(database.DB()),
		Findings:    db.NewFindingStore(database.DB()),
		Artifacts:   db.NewArtifactStore(database.DB()),
		TraceEvents: db.NewTraceEventStore(database.DB()),
		Events:      db.NewEventStore(database.DB()),
		Plugins:     db.NewPluginStore(database.DB()),
		Registry:    registry,
		Catalogue:   catalogue,
		Queue:       q,
		Config:      cfg,
		StartedAt:   time.Now(),
	}

	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server forced to shutdown")
	} else {
		log.Info().Msg("HTTP server stopped gracefully")
	}
}
