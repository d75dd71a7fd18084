// Package intent implements Noema, the intent inference plugin: the
// final pipeline stage that synthesizes every prior stage's findings
// into a single, explainable verdict. Every inference carries the
// evidence chain it was derived from rather than a bare confidence
// number, so a verdict is always auditable.
package intent

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
)

const (
	id      = "intent"
	name    = "Noema Intent Inference"
	version = "1.0.0"
)

func init() {
	plugins.Register(id, New)
}

type Plugin struct {
	config map[string]interface{}
}

func New(config map[string]interface{}) (plugins.Handler, error) {
	return &Plugin{config: config}, nil
}

func (p *Plugin) ID() string      { return id }
func (p *Plugin) Name() string    { return name }
func (p *Plugin) Version() string { return version }

func (p *Plugin) Capabilities() []string { return []string{"intent.infer"} }

func (p *Plugin) SupportsCapability(capability string) bool {
	return capability == "intent.infer"
}

// Validate has nothing to check against the raw target: noema only
// ever reasons over PreviousFindings, which the executor supplies
// regardless of target shape.
func (p *Plugin) Validate(ctx *plugins.JobContext) error { return nil }

// weight mirrors the category weight a MITRE-ATT&CK-style taxonomy
// would assign when rolling findings up into an overall verdict.
var categoryWeight = map[models.Category]float64{
	models.CategoryAntiDebug:      0.8,
	models.CategoryAntiVM:         0.8,
	models.CategoryPacking:        0.6,
	models.CategoryRuntimeHook:    0.9,
	models.CategoryMemoryAnomaly:  0.85,
	models.CategoryNewCode:        0.4,
	models.CategoryRemovedCode:    0.3,
	models.CategoryFunctionChange: 0.5,
	models.CategoryStaticInfo:     0.1,
}

// Run rolls every finding the previous stages produced
// (ctx.PreviousFindings) into one intent_verdict finding: a verdict label,
// an aggregate confidence, and an evidence list naming every
// contributing finding's title so the verdict stays auditable.
func (p *Plugin) Run(ctx *plugins.JobContext) (*plugins.Result, error) {
	all := ctx.PreviousFindings

	if len(all) == 0 {
		artifact, err := p.writeReport(ctx, "benign (insufficient evidence)", 0.5, nil)
		if err != nil {
			return nil, err
		}
		return &plugins.Result{
			Success: true,
			Findings: []models.FindingCreate{{
				Category:   models.CategoryIntentVerdict,
				Severity:   models.SeverityInfo,
				Confidence: 0.5,
				Title:      "Intent verdict: benign (insufficient evidence)",
				Detail:     "No prior findings to reason over",
			}},
			Artifacts: []models.ArtifactCreate{artifact},
		}, nil
	}

	var score float64
	evidence := make(models.EvidenceList, 0, len(all))
	for _, f := range all {
		w := categoryWeight[f.Category]
		if w == 0 {
			w = 0.3
		}
		contribution := w * f.Confidence
		score += contribution
		evidence = append(evidence, models.Evidence{
			Description: fmt.Sprintf("%s: %s", f.Category, f.Title),
			Confidence:  contribution,
		})
	}

	// Normalize against the worst case where every finding maxes its
	// weight, keeping the verdict confidence in [0, 1].
	maxPossible := float64(len(all))
	confidence := score / maxPossible
	if confidence > 1 {
		confidence = 1
	}

	sort.Slice(evidence, func(i, j int) bool { return evidence[i].Confidence > evidence[j].Confidence })

	verdict, severity := classify(confidence, all)

	finding := models.FindingCreate{
		Category:   models.CategoryIntentVerdict,
		Severity:   severity,
		Confidence: confidence,
		Title:      "Intent verdict: " + verdict,
		Detail:     fmt.Sprintf("Synthesized from %d prior finding(s) across %d categories", len(all), countCategories(all)),
		Evidence:   evidence,
	}

	ctx.RaiseRiskScore(confidence)

	artifact, err := p.writeReport(ctx, verdict, confidence, evidence)
	if err != nil {
		return nil, err
	}

	return &plugins.Result{
		Success:   true,
		Findings:  []models.FindingCreate{finding},
		Artifacts: []models.ArtifactCreate{artifact},
		ContextData: map[string]interface{}{
			"intent_verdict":     verdict,
			"intent_confidence": confidence,
		},
	}, nil
}

// writeReport renders the verdict and its evidence chain as
// intent_report.json under the job's artifacts directory.
func (p *Plugin) writeReport(ctx *plugins.JobContext, verdict string, confidence float64, evidence models.EvidenceList) (models.ArtifactCreate, error) {
	rep := map[string]interface{}{
		"plugin":     id,
		"verdict":    verdict,
		"confidence": confidence,
		"evidence":   evidence,
	}
	reportBytes, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return models.ArtifactCreate{}, &plugins.ExecutionError{PluginID: id, Stage: "intent", Err: err}
	}
	reportPath := ctx.GetArtifactPath("intent_report.json")
	if err := os.WriteFile(reportPath, reportBytes, 0o644); err != nil {
		return models.ArtifactCreate{}, &plugins.ExecutionError{PluginID: id, Stage: "intent", Err: err}
	}
	return models.ArtifactCreate{
		Name:        "intent_report.json",
		Type:        models.ArtifactFile,
		Path:        reportPath,
		ContentType: "application/json",
		SizeBytes:   int64(len(reportBytes)),
	}, nil
}

func classify(confidence float64, findings []models.FindingCreate) (string, models.Severity) {
	hasHighSev := false
	for _, f := range findings {
		if f.Severity == models.SeverityHigh || f.Severity == models.SeverityCritical {
			hasHighSev = true
			break
		}
	}
	switch {
	case confidence >= 0.75 || (hasHighSev && confidence >= 0.5):
		return "likely malicious", models.SeverityHigh
	case confidence >= 0.45:
		return "suspicious", models.SeverityMedium
	default:
		return "likely benign", models.SeverityInfo
	}
}

func countCategories(findings []models.FindingCreate) int {
	seen := map[models.Category]struct{}{}
	for _, f := range findings {
		seen[f.Category] = struct{}{}
	}
	return len(seen)
}
