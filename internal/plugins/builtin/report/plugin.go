// Package report implements the report rendering plugin. It always
// runs last and is always optional, rendering everything the pipeline
// has found so far into one human-readable summary artifact.
package report

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
)

const (
	id      = "report"
	name    = "Pipeline Report Renderer"
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

func (p *Plugin) Capabilities() []string { return []string{"report.render"} }

func (p *Plugin) SupportsCapability(capability string) bool {
	return capability == "report.render"
}

func (p *Plugin) Validate(ctx *plugins.JobContext) error { return nil }

// Run renders a Markdown summary of every finding and artifact seen so
// far this job, grouped by severity, and writes it as report.md.
func (p *Plugin) Run(ctx *plugins.JobContext) (*plugins.Result, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis Report: job %d\n\n", ctx.Job.ID)
	fmt.Fprintf(&b, "Target: `%s`\n\n", ctx.TargetPath)
	fmt.Fprintf(&b, "Risk score: %.2f\n\n", ctx.RiskScore())

	findings := append([]models.FindingCreate(nil), ctx.PreviousFindings...)
	sort.SliceStable(findings, func(i, j int) bool {
		return severityRank(findings[i].Severity) > severityRank(findings[j].Severity)
	})

	fmt.Fprintf(&b, "## Findings (%d)\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(&b, "- **[%s]** %s (%s, confidence %.2f) — %s\n", strings.ToUpper(string(f.Severity)), f.Title, f.Category, f.Confidence, f.Detail)
	}

	fmt.Fprintf(&b, "\n## Artifacts (%d)\n\n", len(ctx.PreviousArtifacts))
	for _, a := range ctx.PreviousArtifacts {
		fmt.Fprintf(&b, "- %s (%s, plugin %s)\n", a.Name, a.Type, a.PluginID)
	}

	content := b.String()
	path := ctx.GetArtifactPath("report.md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "report", Err: err}
	}

	return &plugins.Result{
		Success: true,
		Artifacts: []models.ArtifactCreate{{
			Name:        "report.md",
			Type:        models.ArtifactFile,
			Path:        path,
			ContentType: "text/markdown",
			SizeBytes:   int64(len(content)),
		}},
	}, nil
}

func severityRank(s models.Severity) int {
	order := map[models.Severity]int{
		models.SeverityInfo:     0,
		models.SeverityLow:      1,
		models.SeverityMedium:   2,
		models.SeverityHigh:     3,
		models.SeverityCritical: 4,
	}
	return order[s]
}
