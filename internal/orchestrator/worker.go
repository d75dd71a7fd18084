// Package orchestrator owns the life of a job row once it has been
// dequeued: resolving the target, building a workspace, calling the
// Pipeline Executor, and persisting the result. All persistence for a
// finished job goes through Worker.handle — there is no second
// pathway.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aetherframe/orchestrator/internal/db"
	"github.com/aetherframe/orchestrator/internal/logger"
	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/pipeline"
	"github.com/aetherframe/orchestrator/internal/plugins"
	"github.com/aetherframe/orchestrator/internal/queue"
)

// Stores bundles the repositories a Worker persists through. Kept as
// one struct so Worker's constructor signature doesn't grow with every
// new entity.
type Stores struct {
	Jobs        *db.JobStore
	Findings    *db.FindingStore
	Artifacts   *db.ArtifactStore
	TraceEvents *db.TraceEventStore
	Events      *db.EventStore
}

// Worker is the Orchestrator/Worker component: a fixed-size pool of
// goroutines, each dequeuing tasks and driving them through to a
// terminal job status.
type Worker struct {
	stores        Stores
	registry      *plugins.Registry
	catalogue     *pipeline.Catalogue
	queue         queue.Queue
	resolvers     *Resolvers
	workspaceBase string
	artifactsBase string
	cleanup       bool
	concurrency   int
}

// Config configures a Worker.
type Config struct {
	WorkspaceBase     string
	ArtifactsBase     string
	CleanupWorkspace  bool
	MaxConcurrentJobs int
}

// NewWorker builds a Worker bound to the given stores, plugin registry,
// pipeline catalogue and task queue.
func NewWorker(stores Stores, registry *plugins.Registry, catalogue *pipeline.Catalogue, q queue.Queue, cfg Config) *Worker {
	concurrency := cfg.MaxConcurrentJobs
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Worker{
		stores:        stores,
		registry:      registry,
		catalogue:     catalogue,
		queue:         q,
		resolvers:     NewResolvers(),
		workspaceBase: cfg.WorkspaceBase,
		artifactsBase: cfg.ArtifactsBase,
		cleanup:       cfg.CleanupWorkspace,
		concurrency:   concurrency,
	}
}

// Run starts MaxConcurrentJobs goroutines dequeuing tasks and blocks
// until ctx is cancelled. A single job's pipeline executes
// sequentially stage by stage; different jobs in the same worker
// process run concurrently and are fully isolated from each other
// (separate workspace, artifacts dir, and context object).
func (w *Worker) Run(ctx context.Context) {
	done := make(chan struct{})
	for i := 0; i < w.concurrency; i++ {
		go func(id int) {
			w.loop(ctx, id)
			done <- struct{}{}
		}(i)
	}
	for i := 0; i < w.concurrency; i++ {
		<-done
	}
}

// SeedPending re-submits every job left "pending" to the task queue.
// Called once at cmd/worker startup to recover work that was created
// but never dequeued before a prior crash.
func (w *Worker) SeedPending(ctx context.Context) error {
	pending, err := w.stores.Jobs.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("seed pending: %w", err)
	}
	for _, job := range pending {
		if err := w.queue.Enqueue(ctx, queue.Task{JobID: job.ID, Target: job.TargetPath}); err != nil {
			logger.Orchestrator().Error().Err(err).Int64("job_id", job.ID).Msg("failed to re-enqueue pending job at startup")
		}
	}
	if len(pending) > 0 {
		logger.Orchestrator().Info().Int("count", len(pending)).Msg("re-enqueued pending jobs at startup")
	}
	return nil
}

func (w *Worker) loop(ctx context.Context, id int) {
	log := logger.Orchestrator().With().Int("worker_id", id).Logger()
	for {
		task, ack, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("dequeue failed")
			continue
		}

		w.handle(ctx, task)
		if ack != nil {
			ack()
		}
	}
}

// handle drives a single task through to a terminal job status. Any
// panic inside this call is treated as a fatal worker error (error
// kind 5): the job is failed with the panic's message and the worker
// keeps dequeuing, instead of a single bad plugin taking down the
// whole pool.
func (w *Worker) handle(ctx context.Context, task queue.Task) {
	log := logger.Orchestrator().With().Int64("job_id", task.JobID).Logger()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error().Err(err).Msg("worker panic recovered, failing job")
			w.failJob(ctx, task.JobID, err)
		}
	}()

	job, err := w.stores.Jobs.Get(ctx, task.JobID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load job")
		return
	}
	if job == nil {
		log.Warn().Msg("job not found, dropping task")
		return
	}
	if job.Status.IsTerminal() {
		// A crash mid-task can redeliver it; an already-terminal job
		// is a no-op.
		log.Debug().Str("status", string(job.Status)).Msg("job already terminal, no-op")
		return
	}

	if err := w.resolvers.Resolve(job); err != nil {
		log.Warn().Err(err).Msg("target unresolved")
		w.failJob(ctx, job.ID, err)
		return
	}

	workspaceDir := filepath.Join(w.workspaceBase, fmt.Sprintf("%d", job.ID))
	artifactsDir := filepath.Join(w.artifactsBase, fmt.Sprintf("%d", job.ID))
	if err := os.MkdirAll(workspaceDir, 0o755); err != nil {
		w.failJob(ctx, job.ID, fmt.Errorf("create workspace dir: %w", err))
		return
	}
	if err := os.MkdirAll(artifactsDir, 0o755); err != nil {
		w.failJob(ctx, job.ID, fmt.Errorf("create artifacts dir: %w", err))
		return
	}
	if w.cleanup {
		defer os.RemoveAll(workspaceDir)
	}

	claimed, err := w.stores.Jobs.MarkRunning(ctx, job.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to mark job running")
		return
	}
	if !claimed {
		// Someone else (or a cancel) beat us to it.
		log.Debug().Msg("job no longer pending, skipping")
		return
	}

	jobCtx := &plugins.JobContext{
		Job:             job,
		TargetPath:      job.TargetPath,
		WorkspaceDir:    workspaceDir,
		ArtifactsDir:    artifactsDir,
		PipelineContext: map[string]interface{}{},
	}

	pipelineID := job.PipelineID
	if pipelineID == "" {
		pipelineID = "quicklook"
	}

	executor := pipeline.NewExecutor(w.catalogue, w.registry, traceEventAdapter{w.stores.TraceEvents})
	// The cancel flag is discovered between stages only — a stage
	// already in flight always runs to completion or timeout.
	executor.SetCancelCheck(func(ctx context.Context, jobID int64) (bool, error) {
		return w.stores.Jobs.IsCancelled(ctx, jobID)
	})
	start := time.Now()
	execResult, err := executor.Execute(ctx, jobCtx, pipelineID, func(stage string, progress int) {
		if err := w.stores.Jobs.UpdateProgress(ctx, job.ID, stage, progress); err != nil {
			log.Warn().Err(err).Msg("failed to persist progress")
		}
	})
	if err != nil {
		w.failJob(ctx, job.ID, err)
		return
	}

	// Persist findings, then artifacts, always in that order. Trace
	// events are not persisted here (see below). Each persistence failure
	// is logged but does not roll back siblings; the job is already
	// committed to a terminal state regardless.
	for _, f := range execResult.Findings {
		if _, err := w.stores.Findings.Create(ctx, job.ID, f); err != nil {
			log.Error().Err(err).Str("plugin_id", f.PluginID).Msg("failed to persist finding")
		}
	}
	for _, a := range execResult.Artifacts {
		if _, err := w.stores.Artifacts.Create(ctx, job.ID, a); err != nil {
			log.Error().Err(err).Str("plugin_id", a.PluginID).Msg("failed to persist artifact")
		}
	}
	// Trace events from plugins and orchestrator stage boundaries were
	// already persisted incrementally by the executor via
	// traceEventAdapter, preserving per-job sequence ordering as they
	// were recorded rather than batched at the end.

	result := models.JobResult{
		PipelineID:      pipelineID,
		StagesExecuted:  execResult.StagesExecuted,
		StagesFailed:    execResult.StagesFailed,
		RiskScore:       execResult.RiskScore,
		ExecutionTimeMs: time.Since(start).Milliseconds(),
		FindingsCount:   execResult.FindingsCount,
		ArtifactsCount:  execResult.ArtifactsCount,
	}

	status := models.JobCompleted
	jobErr := ""
	switch {
	case execResult.Cancelled:
		status = models.JobCancelled
	case execResult.FatalError != nil:
		status = models.JobFailed
		jobErr = execResult.FatalError.Error()
		result.Error = jobErr
	}

	if err := w.stores.Jobs.Finish(ctx, job.ID, status, result, jobErr); err != nil {
		log.Error().Err(err).Msg("failed to finish job")
	}

	if status == models.JobFailed {
		w.emitJobFailed(ctx, job.ID, jobErr)
	}
}

func (w *Worker) failJob(ctx context.Context, jobID int64, cause error) {
	result := models.JobResult{Error: cause.Error()}
	if err := w.stores.Jobs.Finish(ctx, jobID, models.JobFailed, result, cause.Error()); err != nil {
		logger.Orchestrator().Error().Err(err).Int64("job_id", jobID).Msg("failed to mark job failed")
	}
	w.emitJobFailed(ctx, jobID, cause.Error())
}

func (w *Worker) emitJobFailed(ctx context.Context, jobID int64, errMsg string) {
	id := jobID
	_, err := w.stores.Events.Create(ctx, models.EventCreate{
		Type:  "job_failed",
		JobID: &id,
		Data:  models.JSONMap{"error": errMsg, "ts": time.Now().Format(time.RFC3339)},
	})
	if err != nil {
		logger.Orchestrator().Error().Err(err).Int64("job_id", jobID).Msg("failed to emit job_failed event")
	}
}

// traceEventAdapter satisfies pipeline.TraceEventSink over a
// *db.TraceEventStore, which takes an explicit jobID argument the
// executor already has in scope via JobContext.
type traceEventAdapter struct {
	store *db.TraceEventStore
}

func (a traceEventAdapter) Create(ctx context.Context, jobID int64, in models.TraceEventCreate) (*models.TraceEvent, error) {
	return a.store.Create(ctx, jobID, in)
}
