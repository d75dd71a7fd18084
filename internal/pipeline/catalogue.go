// Package pipeline implements the Pipeline Catalogue and Pipeline
// Executor: the named, ordered stage lists a job runs through, and the
// engine that walks them.
package pipeline

import "fmt"

// Condition enumerates when a stage is eligible to run, evaluated
// against the previous stage's result and the running pipeline context.
type Condition string

const (
	ConditionAlways     Condition = "always"
	ConditionOnSuccess  Condition = "on_success"
	ConditionOnFailure  Condition = "on_failure"
	ConditionOnFindings Condition = "on_findings"
	ConditionOnHighRisk Condition = "on_high_risk"
	ConditionConditional Condition = "conditional"
)

// Stage binds a plugin id + config to a named step in a Pipeline.
type Stage struct {
	Name           string
	PluginID       string
	Config         map[string]interface{}
	Condition      Condition
	ConditionExpr  string
	TimeoutSeconds int
	Optional       bool
}

func (s Stage) timeout() int {
	if s.TimeoutSeconds <= 0 {
		return 300
	}
	return s.TimeoutSeconds
}

// Pipeline is a named, ordered list of stages.
type Pipeline struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Stages      []Stage
}

// ErrPipelineNotFound is returned by Lookup for an unregistered id.
type ErrPipelineNotFound struct{ ID string }

func (e ErrPipelineNotFound) Error() string {
	return fmt.Sprintf("pipeline: %q not found", e.ID)
}

// Catalogue is the read-only-after-construction registry of pipelines.
type Catalogue struct {
	pipelines map[string]Pipeline
}

// NewCatalogue builds a Catalogue seeded with the builtin pipeline set
// (quicklook, deep-static, dynamic-first, release-watch, full-audit).
func NewCatalogue() *Catalogue {
	c := &Catalogue{pipelines: make(map[string]Pipeline)}
	for _, p := range builtinPipelines() {
		c.pipelines[p.ID] = p
	}
	return c
}

// Register adds or replaces a pipeline in the catalogue. Intended for
// programmatic registration at startup, before the catalogue is handed
// to the executor; the catalogue carries no lock because it is
// read-only once the process is serving traffic.
func (c *Catalogue) Register(p Pipeline) {
	c.pipelines[p.ID] = p
}

// Lookup returns the pipeline registered under id.
func (c *Catalogue) Lookup(id string) (Pipeline, error) {
	p, ok := c.pipelines[id]
	if !ok {
		return Pipeline{}, ErrPipelineNotFound{ID: id}
	}
	return p, nil
}

// List returns every registered pipeline, in no particular order.
func (c *Catalogue) List() []Pipeline {
	out := make([]Pipeline, 0, len(c.pipelines))
	for _, p := range c.pipelines {
		out = append(out, p)
	}
	return out
}

func builtinPipelines() []Pipeline {
	return []Pipeline{
		{
			ID:          "quicklook",
			Name:        "Quicklook",
			Description: "Fast triage: format/anti-analysis gate, optional static pass, intent inference.",
			Tags:        []string{"fast", "triage"},
			Stages: []Stage{
				{Name: "gate", PluginID: "gate", Condition: ConditionAlways, TimeoutSeconds: 60},
				{Name: "static", PluginID: "static", Condition: ConditionOnSuccess, Optional: true, TimeoutSeconds: 120},
				{Name: "intent", PluginID: "intent", Condition: ConditionOnSuccess, TimeoutSeconds: 60},
			},
		},
		{
			ID:          "deep-static",
			Name:        "Deep Static",
			Description: "Full static analysis with state reconstruction and a rendered report.",
			Tags:        []string{"static"},
			Stages: []Stage{
				{Name: "gate", PluginID: "gate", Condition: ConditionAlways, TimeoutSeconds: 60},
				{Name: "static", PluginID: "static", Condition: ConditionOnSuccess, TimeoutSeconds: 180},
				{Name: "reconstruct", PluginID: "reconstruct", Condition: ConditionOnFindings, Optional: true, TimeoutSeconds: 120},
				{Name: "intent", PluginID: "intent", Condition: ConditionOnSuccess, TimeoutSeconds: 60},
				{Name: "report", PluginID: "report", Condition: ConditionAlways, Optional: true, TimeoutSeconds: 60},
			},
		},
		{
			ID:          "dynamic-first",
			Name:        "Dynamic First",
			Description: "Leads with a dynamic trace before static/intent passes.",
			Tags:        []string{"dynamic"},
			Stages: []Stage{
				{Name: "gate", PluginID: "gate", Condition: ConditionAlways, TimeoutSeconds: 60},
				{Name: "trace", PluginID: "trace", Condition: ConditionOnSuccess, TimeoutSeconds: 300},
				{Name: "reconstruct", PluginID: "reconstruct", Condition: ConditionOnSuccess, Optional: true, TimeoutSeconds: 120},
				{Name: "intent", PluginID: "intent", Condition: ConditionOnSuccess, TimeoutSeconds: 60},
			},
		},
		{
			ID:          "release-watch",
			Name:        "Release Watch",
			Description: "Diffs against a reference build and escalates to a focused trace on high risk.",
			Tags:        []string{"diff", "release"},
			Stages: []Stage{
				{Name: "gate", PluginID: "gate", Condition: ConditionAlways, TimeoutSeconds: 60},
				{Name: "diff", PluginID: "diff", Condition: ConditionOnSuccess, TimeoutSeconds: 180},
				{
					Name:           "trace-deltas",
					PluginID:       "trace",
					Condition:      ConditionOnHighRisk,
					Optional:       true,
					TimeoutSeconds: 300,
					Config:         map[string]interface{}{"focus": "high_risk_functions"},
				},
				{Name: "intent", PluginID: "intent", Condition: ConditionOnSuccess, TimeoutSeconds: 60},
			},
		},
		{
			ID:          "full-audit",
			Name:        "Full Audit",
			Description: "Every stage: static, conditional diff, dynamic trace, reconstruction, intent, and a report.",
			Tags:        []string{"comprehensive"},
			Stages: []Stage{
				{Name: "gate", PluginID: "gate", Condition: ConditionAlways, TimeoutSeconds: 60},
				{Name: "static", PluginID: "static", Condition: ConditionOnSuccess, TimeoutSeconds: 180},
				{
					Name:          "diff",
					PluginID:      "diff",
					Condition:     ConditionConditional,
					ConditionExpr: `ctx.options.reference_path exists`,
					TimeoutSeconds: 180,
				},
				{Name: "trace", PluginID: "trace", Condition: ConditionOnSuccess, TimeoutSeconds: 300},
				{Name: "reconstruct", PluginID: "reconstruct", Condition: ConditionOnFindings, Optional: true, TimeoutSeconds: 120},
				{Name: "intent", PluginID: "intent", Condition: ConditionOnSuccess, TimeoutSeconds: 60},
				{Name: "report", PluginID: "report", Condition: ConditionAlways, Optional: true, TimeoutSeconds: 60},
			},
		},
	}
}
