package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aetherframe/orchestrator/internal/models"
)

// Health is a liveness probe: it never touches the store, so it stays
// fast and meaningful even when the database is unreachable.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status reports service identity plus a cheap aggregate view of job
// counts by status and average elapsed time. queue_reachable is false
// only when the job store query fails; the task queue itself is not
// probed.
func (h *Handler) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	counts := map[models.JobStatus]int{}
	var totalElapsed time.Duration
	var completedCount int

	jobs, err := h.deps.Jobs.List(ctx, "", 1000)
	queueReachable := true
	if err != nil {
		queueReachable = false
	} else {
		for _, j := range jobs {
			counts[j.Status]++
			if j.CompletedAt != nil && j.StartedAt != nil {
				totalElapsed += j.CompletedAt.Sub(*j.StartedAt)
				completedCount++
			}
		}
	}

	avgElapsedMs := int64(0)
	if completedCount > 0 {
		avgElapsedMs = (totalElapsed / time.Duration(completedCount)).Milliseconds()
	}

	c.JSON(http.StatusOK, gin.H{
		"service":           "aetherframe-orchestrator",
		"environment":       h.deps.Config.Environment,
		"uptime_seconds":    int(time.Since(h.deps.StartedAt).Seconds()),
		"queue_reachable":   queueReachable,
		"jobs_by_status":    counts,
		"avg_elapsed_ms":    avgElapsedMs,
	})
}
