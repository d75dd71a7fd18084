package plugins

import (
	"path/filepath"

	"github.com/aetherframe/orchestrator/internal/models"
)

// JobContext is the per-stage value passed into a plugin's Validate and
// Run. It carries everything a plugin needs to know about the job it is
// analyzing and the pipeline run it is part of, without giving the
// plugin direct access to the store.
type JobContext struct {
	Job              *models.Job
	TargetPath       string
	WorkspaceDir     string
	ArtifactsDir     string
	PreviousFindings []models.FindingCreate
	PreviousArtifacts []models.ArtifactCreate
	// PipelineContext is shared, mutable state threaded through every
	// stage of a single pipeline run. Conventionally used keys:
	// "_risk_score" (float64, monotonically non-decreasing) and
	// whatever a plugin's ContextData contributes for downstream
	// stages to read (e.g. "trace_events", "high_risk_functions").
	PipelineContext map[string]interface{}
}

// GetArtifactPath returns the absolute path a plugin should write a
// named artifact file to.
func (c *JobContext) GetArtifactPath(name string) string {
	return filepath.Join(c.ArtifactsDir, name)
}

// GetWorkspacePath returns the absolute path to a scratch file under
// the job's workspace directory.
func (c *JobContext) GetWorkspacePath(name string) string {
	return filepath.Join(c.WorkspaceDir, name)
}

// RiskScore returns the pipeline's current aggregated risk score.
func (c *JobContext) RiskScore() float64 {
	if v, ok := c.PipelineContext["_risk_score"].(float64); ok {
		return v
	}
	return 0
}

// RaiseRiskScore sets the pipeline's aggregated risk score to the
// maximum of its current value and score — it never decreases.
func (c *JobContext) RaiseRiskScore(score float64) {
	if score > c.RiskScore() {
		c.PipelineContext["_risk_score"] = score
	}
}
