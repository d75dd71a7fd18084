package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/aetherframe/orchestrator/internal/apierr"
	"github.com/aetherframe/orchestrator/internal/db"
	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/queue"
)

// CreateJob inserts a pending job row and enqueues its task. The API
// process never executes pipelines itself — it only ever hands the
// task to the queue for a worker to pick up.
func (h *Handler) CreateJob(c *gin.Context) {
	var in models.JobCreate
	if err := c.ShouldBindJSON(&in); err != nil {
		respondErr(c, apierr.BadRequest("invalid request body"))
		return
	}
	if in.TargetType == "" {
		in.TargetType = models.TargetBinary
	}
	if in.PipelineID == "" {
		in.PipelineID = h.deps.Config.DefaultPipeline
	}
	if _, err := h.deps.Catalogue.Lookup(in.PipelineID); err != nil {
		respondErr(c, apierr.PipelineNotFound(in.PipelineID))
		return
	}

	job, err := h.deps.Jobs.Create(c.Request.Context(), in)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}

	if err := h.deps.Queue.Enqueue(c.Request.Context(), queue.Task{JobID: job.ID, Target: job.TargetPath}); err != nil {
		if err == queue.ErrQueueFull {
			respondErr(c, apierr.QueueFull())
			return
		}
		respondErr(c, apierr.Internal("failed to enqueue job"))
		return
	}

	c.JSON(http.StatusCreated, job)
}

func (h *Handler) ListJobs(c *gin.Context) {
	status := models.JobStatus(c.Query("status"))
	jobs, err := h.deps.Jobs.List(c.Request.Context(), status, 500)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, jobs)
}

func (h *Handler) GetJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	job, err := h.deps.Jobs.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	if job == nil {
		respondErr(c, apierr.JobNotFound(id))
		return
	}
	c.JSON(http.StatusOK, job)
}

// CancelJob transitions a pending or running job to cancelled. A
// stage already in flight runs to completion or timeout regardless;
// the worker discovers the flag between stages.
func (h *Handler) CancelJob(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	cancelled, err := h.deps.Jobs.Cancel(c.Request.Context(), id)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	if !cancelled {
		respondErr(c, apierr.Conflict("job is not pending or running"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "cancelled"})
}

func (h *Handler) ListJobFindings(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	filter := db.FindingFilter{
		Severity: models.Severity(c.Query("severity")),
		Category: models.Category(c.Query("category")),
	}
	findings, err := h.deps.Findings.ListByJob(c.Request.Context(), id, filter)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, findings)
}

func (h *Handler) ListJobArtifacts(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	artifacts, err := h.deps.Artifacts.ListByJob(c.Request.Context(), id)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, artifacts)
}

func (h *Handler) ListJobTraceEvents(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	filter := db.TraceEventFilter{
		Source: models.EventSource(c.Query("source")),
		Type:   models.EventType(c.Query("event_type")),
	}
	events, err := h.deps.TraceEvents.ListByJob(c.Request.Context(), id, filter)
	if err != nil {
		respondErr(c, apierr.DatabaseError(err))
		return
	}
	c.JSON(http.StatusOK, events)
}

func parseJobID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondErr(c, apierr.BadRequest("invalid job id"))
		return 0, false
	}
	return id, true
}
