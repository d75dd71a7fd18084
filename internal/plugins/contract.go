// Package plugins implements the plugin contract, manifest parsing, and
// the registry/discovery pair that resolves a manifest id to a runnable
// Handler.
package plugins

import (
	"fmt"

	"github.com/aetherframe/orchestrator/internal/models"
)

// Kind is the plugin kind a manifest declares.
type Kind string

const (
	KindDetector     Kind = "detector"
	KindDiffer       Kind = "differ"
	KindTracer       Kind = "tracer"
	KindReconstructor Kind = "reconstructor"
	KindInferencer   Kind = "inferencer"
	KindAnalyzer     Kind = "analyzer"
	KindReporter     Kind = "reporter"
)

// Handler is the contract every plugin implementation satisfies.
type Handler interface {
	ID() string
	Name() string
	Version() string
	Capabilities() []string
	SupportsCapability(capability string) bool
	Validate(ctx *JobContext) error
	Run(ctx *JobContext) (*Result, error)
}

// Factory constructs a fresh Handler instance. Plugins register a
// Factory, not an instance — it lets the registry build one instance
// per (id, config) pair instead of sharing mutable state across jobs.
type Factory func(config map[string]interface{}) (Handler, error)

// ValidationError means the plugin refuses to run against this
// JobContext. The executor treats it as a stage failure: the pipeline
// continues past an optional stage and aborts on a non-optional one.
type ValidationError struct {
	PluginID string
	Reason   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("plugin %s: validation failed: %s", e.PluginID, e.Reason)
}

// ExecutionError wraps a plugin-internal failure during Run.
type ExecutionError struct {
	PluginID string
	Stage    string
	Err      error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("plugin %s: stage %s: %v", e.PluginID, e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Result is what a plugin hands back from Run. Findings and Artifacts
// are persisted by the orchestrator after Run returns; ContextData is
// merged into the pipeline's shared context for later stages to read.
type Result struct {
	Success     bool
	Findings    []models.FindingCreate
	Artifacts   []models.ArtifactCreate
	TraceEvents []models.TraceEventCreate
	ContextData map[string]interface{}
	Error       string

	// SkipRemaining halts the pipeline immediately after this stage,
	// without failing it: every later stage is left unevaluated (not
	// recorded as skipped or failed). Set by a plugin that has
	// determined the rest of the pipeline has nothing left to add, e.g.
	// a gate stage that found the target already fully triaged.
	SkipRemaining bool

	// Recommendations carries free-form follow-up suggestions a plugin
	// wants surfaced alongside its findings (e.g. "re-run with
	// dynamic-first"), informational only — the executor does not act
	// on it.
	Recommendations []string
}

// FindingCount returns the number of findings in the result, used by
// stage conditions like on_findings.
func (r *Result) FindingCount() int {
	if r == nil {
		return 0
	}
	return len(r.Findings)
}

// HighestSeverity reports the most severe finding in the result, or ""
// if there are none.
func (r *Result) HighestSeverity() models.Severity {
	if r == nil {
		return ""
	}
	order := map[models.Severity]int{
		models.SeverityInfo:     0,
		models.SeverityLow:      1,
		models.SeverityMedium:   2,
		models.SeverityHigh:     3,
		models.SeverityCritical: 4,
	}
	best := models.Severity("")
	bestRank := -1
	for _, f := range r.Findings {
		if rank := order[f.Severity]; rank > bestRank {
			bestRank = rank
			best = f.Severity
		}
	}
	return best
}
