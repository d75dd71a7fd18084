package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/aetherframe/orchestrator/internal/logger"
	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
)

// TraceEventSink is the narrow persistence interface the executor
// needs to emit orchestrator-sourced trace events (stage_start,
// stage_complete, stage_error) as they happen, rather than batching
// them until the whole pipeline finishes.
type TraceEventSink interface {
	Create(ctx context.Context, jobID int64, in models.TraceEventCreate) (*models.TraceEvent, error)
}

// StageOutcome records what happened when a single stage ran.
type StageOutcome struct {
	Stage    Stage
	Skipped  bool
	Error    error
	Result   *plugins.Result
}

// ExecutionResult is the full outcome of walking a pipeline end to end,
// the input to the models.JobResult the worker persists.
type ExecutionResult struct {
	PipelineID     string
	StagesExecuted int
	StagesSkipped  int
	StagesFailed   int
	RiskScore      float64
	FindingsCount  int
	ArtifactsCount int
	Findings       []models.FindingCreate
	Artifacts      []models.ArtifactCreate
	TraceEvents    []models.TraceEventCreate
	Outcomes       []StageOutcome
	Duration       time.Duration
	// FatalError is set when a non-optional stage fails and aborts the
	// run; a failed optional stage never sets this.
	FatalError error
	// Cancelled is set when CancelCheck reported the job cancelled at a
	// stage boundary. A stage already running is never interrupted;
	// this only stops the *next* one from starting.
	Cancelled bool
}

// CancelCheck reports whether jobID has been cancelled since the
// pipeline started. The executor calls it between stages, never
// mid-stage — a stage in flight always runs to completion or timeout.
type CancelCheck func(ctx context.Context, jobID int64) (bool, error)

// Executor walks a Pipeline's stages against a plugin Registry,
// threading a shared pipeline context and risk score across stages,
// and stamping plugin_id/stage onto everything a plugin produces.
//
// Every stage runs under its own timeout, enforced with a goroutine +
// context.WithTimeout the way internal/middleware/timeout.go enforces
// an HTTP handler's deadline — a stage that blows its budget is
// treated as a stage failure, never allowed to hang the job.
type Executor struct {
	catalogue   *Catalogue
	registry    *plugins.Registry
	events      TraceEventSink
	clock       func() time.Time
	cancelCheck CancelCheck
}

// NewExecutor builds an Executor. events may be nil, in which case no
// orchestrator stage-boundary trace events are produced and plugin
// trace events are only collected into ExecutionResult.TraceEvents
// (used by tests that only care about findings/artifacts).
func NewExecutor(catalogue *Catalogue, registry *plugins.Registry, events TraceEventSink) *Executor {
	return &Executor{
		catalogue: catalogue,
		registry:  registry,
		events:    events,
		clock:     time.Now,
	}
}

// SetCancelCheck installs the mid-pipeline cancellation check Execute
// consults between stages. Left unset, Execute never treats a job as
// cancelled — existing callers (and every test in this package) are
// unaffected.
func (e *Executor) SetCancelCheck(fn CancelCheck) {
	e.cancelCheck = fn
}

// ProgressFunc is invoked after each stage with the stage name and a
// 0-100 completion percentage, letting the worker persist job.progress
// without the executor depending on the job store directly.
type ProgressFunc func(stage string, progress int)

// Execute runs every stage of the named pipeline against jobCtx in
// order, honoring each stage's Condition and TimeoutSeconds, and
// returns the aggregated outcome. A panic inside a plugin's Run is
// recovered in runStage and recorded as that stage's error, so a single
// bad plugin can't take down the whole worker pool; a panic elsewhere
// in this call is left to the worker's recovery, one level up.
func (e *Executor) Execute(ctx context.Context, jobCtx *plugins.JobContext, pipelineID string, onProgress ProgressFunc) (*ExecutionResult, error) {
	pipeline, err := e.catalogue.Lookup(pipelineID)
	if err != nil {
		return nil, err
	}

	if jobCtx.PipelineContext == nil {
		jobCtx.PipelineContext = make(map[string]interface{})
	}

	start := e.clock()
	result := &ExecutionResult{PipelineID: pipelineID}
	var sequence int64

	log := logger.Pipeline().With().Str("pipeline_id", pipelineID).Int64("job_id", jobCtx.Job.ID).Logger()

	// Pipeline-level start marker: one orchestrator stage_start event
	// naming the pipeline and its stages, before any stage runs.
	if e.events != nil {
		names := make([]string, len(pipeline.Stages))
		for i, s := range pipeline.Stages {
			names[i] = s.Name
		}
		te := models.TraceEventCreate{
			PluginID:  "orchestrator",
			Sequence:  sequence,
			Timestamp: e.clock(),
			Source:    models.SourceOrchestrator,
			Type:      models.EventStageStart,
			Target:    pipelineID,
			Detail:    models.JSONMap{"pipeline_id": pipelineID, "stages": names},
		}
		if _, err := e.events.Create(ctx, jobCtx.Job.ID, te); err != nil {
			log.Warn().Err(err).Msg("failed to persist pipeline start event")
		}
	}

	lastSuccess := true
	lastResult := (*plugins.Result)(nil)
	haveResult := false

	total := len(pipeline.Stages)
	for i, stage := range pipeline.Stages {
		if e.cancelCheck != nil {
			cancelled, err := e.cancelCheck(ctx, jobCtx.Job.ID)
			if err != nil {
				log.Warn().Err(err).Msg("cancellation check failed, proceeding with pipeline")
			} else if cancelled {
				result.Cancelled = true
				log.Info().Str("stage", stage.Name).Msg("job cancelled, halting pipeline before stage")
				break
			}
		}

		condCtx := condEvalCtx{
			options:   jobCtx.Job.Options,
			riskScore: jobCtx.RiskScore(),
			success:   lastSuccess,
			hasResult: haveResult,
		}

		if !e.shouldRun(stage, condCtx, lastResult) {
			result.StagesSkipped++
			result.Outcomes = append(result.Outcomes, StageOutcome{Stage: stage, Skipped: true})
			log.Debug().Str("stage", stage.Name).Msg("stage skipped")
			if onProgress != nil {
				onProgress(stage.Name, percentComplete(i+1, total))
			}
			continue
		}

		sequence++
		e.emit(ctx, jobCtx.Job.ID, &sequence, models.EventStageStart, stage.Name, "")

		stageResult, stageErr := e.runStage(ctx, jobCtx, stage)

		// A plugin that completes without panicking but reports
		// Success=false took the ordinary-failure path (plugins set
		// the flag instead of returning an error for routine analysis
		// failures). It is treated identically to a returned error or
		// a timeout: a stage failure event, stages_failed, and the
		// optional/non-optional halt rule — folded into the same
		// stageErr branch below rather than silently counted as
		// executed.
		if stageErr == nil && stageResult != nil && !stageResult.Success {
			msg := stageResult.Error
			if msg == "" {
				msg = "plugin reported failure"
			}
			stageErr = fmt.Errorf("plugin %s: stage %s: %s", stage.PluginID, stage.Name, msg)
		}

		if stageErr != nil {
			result.StagesFailed++
			result.Outcomes = append(result.Outcomes, StageOutcome{Stage: stage, Error: stageErr})
			sequence++
			e.emit(ctx, jobCtx.Job.ID, &sequence, models.EventStageError, stage.Name, stageErr.Error())
			log.Warn().Str("stage", stage.Name).Err(stageErr).Msg("stage failed")

			lastSuccess = false
			haveResult = stageResult != nil
			lastResult = stageResult

			if !stage.Optional {
				result.FatalError = fmt.Errorf("stage %q: %w", stage.Name, stageErr)
				break
			}
			if onProgress != nil {
				onProgress(stage.Name, percentComplete(i+1, total))
			}
			continue
		}

		result.StagesExecuted++
		result.Outcomes = append(result.Outcomes, StageOutcome{Stage: stage, Result: stageResult})
		lastSuccess = stageResult.Success
		lastResult = stageResult
		haveResult = true

		for _, f := range stageResult.Findings {
			f.PluginID = stage.PluginID
			f.Stage = stage.Name
			result.Findings = append(result.Findings, f)
			jobCtx.PreviousFindings = append(jobCtx.PreviousFindings, f)
		}
		for _, a := range stageResult.Artifacts {
			a.PluginID = stage.PluginID
			a.Stage = stage.Name
			result.Artifacts = append(result.Artifacts, a)
			jobCtx.PreviousArtifacts = append(jobCtx.PreviousArtifacts, a)
		}
		for _, te := range stageResult.TraceEvents {
			sequence++
			te.PluginID = stage.PluginID
			te.Sequence = sequence
			if te.Timestamp.IsZero() {
				te.Timestamp = e.clock()
			}
			if te.Source == "" {
				te.Source = models.SourcePlugin
			}
			result.TraceEvents = append(result.TraceEvents, te)
			if e.events != nil {
				if _, err := e.events.Create(ctx, jobCtx.Job.ID, te); err != nil {
					log.Warn().Err(err).Msg("failed to persist plugin trace event")
				}
			}
		}

		for k, v := range stageResult.ContextData {
			if k == "_risk_score" {
				if score, ok := v.(float64); ok {
					jobCtx.RaiseRiskScore(score)
				}
				continue
			}
			jobCtx.PipelineContext[k] = v
		}
		jobCtx.RaiseRiskScore(riskContribution(stageResult))

		sequence++
		e.emit(ctx, jobCtx.Job.ID, &sequence, models.EventStageComplete, stage.Name, "")

		if onProgress != nil {
			onProgress(stage.Name, percentComplete(i+1, total))
		}

		if stageResult.SkipRemaining {
			log.Info().Str("stage", stage.Name).Msg("stage requested skip_remaining, halting pipeline")
			break
		}
	}

	result.RiskScore = jobCtx.RiskScore()
	result.FindingsCount = len(result.Findings)
	result.ArtifactsCount = len(result.Artifacts)
	result.Duration = e.clock().Sub(start)
	return result, nil
}

// shouldRun evaluates a stage's Condition. Conditions read the result
// of the immediately preceding EXECUTED stage — a skipped stage does
// not count as "the previous stage" for
// on_success/on_failure purposes, which is why the caller tracks
// lastResult/lastSuccess across skips rather than resetting them.
func (e *Executor) shouldRun(stage Stage, condCtx condEvalCtx, lastResult *plugins.Result) bool {
	switch stage.Condition {
	case ConditionAlways, "":
		return true
	case ConditionOnSuccess:
		return condCtx.success
	case ConditionOnFailure:
		return condCtx.hasResult && !condCtx.success
	case ConditionOnFindings:
		return lastResult.FindingCount() > 0
	case ConditionOnHighRisk:
		return condCtx.riskScore >= 0.7
	case ConditionConditional:
		return evalConditionExpr(stage.ConditionExpr, condCtx)
	default:
		return false
	}
}

// runStage resolves the plugin instance, validates it against jobCtx,
// and runs it under the stage's own timeout.
func (e *Executor) runStage(ctx context.Context, jobCtx *plugins.JobContext, stage Stage) (*plugins.Result, error) {
	handler, err := e.registry.GetInstance(stage.PluginID, stage.Config)
	if err != nil {
		return nil, err
	}
	if err := handler.Validate(jobCtx); err != nil {
		return nil, err
	}

	stageCtx, cancel := context.WithTimeout(ctx, time.Duration(stage.timeout())*time.Second)
	defer cancel()

	type runOutcome struct {
		result *plugins.Result
		err    error
	}
	done := make(chan runOutcome, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- runOutcome{err: fmt.Errorf("plugin %s: stage %s: panic: %v", stage.PluginID, stage.Name, p)}
			}
		}()
		r, err := handler.Run(jobCtx)
		done <- runOutcome{result: r, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-stageCtx.Done():
		return nil, fmt.Errorf("plugin %s: stage %s: %w", stage.PluginID, stage.Name, stageCtx.Err())
	}
}

func (e *Executor) emit(ctx context.Context, jobID int64, sequence *int64, typ models.EventType, stage, detail string) {
	if e.events == nil {
		return
	}
	te := models.TraceEventCreate{
		PluginID:  "orchestrator",
		Sequence:  *sequence,
		Timestamp: e.clock(),
		Source:    models.SourceOrchestrator,
		Type:      typ,
		Target:    stage,
	}
	if detail != "" {
		te.Detail = models.JSONMap{"detail": detail}
	}
	if _, err := e.events.Create(ctx, jobID, te); err != nil {
		logger.Pipeline().Warn().Err(err).Int64("job_id", jobID).Msg("failed to persist orchestrator trace event")
	}
}

// riskContribution derives a stage-level risk contribution from its
// result's highest finding severity, the input to RaiseRiskScore's
// max-merge. A stage can also raise risk explicitly via
// ContextData["_risk_score"], handled by the PipelineContext merge
// above, before this is applied, so either source can move the
// running score.
func riskContribution(r *plugins.Result) float64 {
	weight := map[models.Severity]float64{
		models.SeverityInfo:     0.1,
		models.SeverityLow:      0.3,
		models.SeverityMedium:   0.5,
		models.SeverityHigh:     0.75,
		models.SeverityCritical: 1.0,
	}
	return weight[r.HighestSeverity()]
}

func percentComplete(done, total int) int {
	if total == 0 {
		return 100
	}
	pct := done * 100 / total
	if pct > 100 {
		pct = 100
	}
	return pct
}
