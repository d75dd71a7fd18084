package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
)

func TestPlugin_Run_RendersSummary(t *testing.T) {
	p, _ := New(nil)
	ctx := &plugins.JobContext{
		Job:          &models.Job{ID: 42},
		TargetPath:   "/samples/evil.bin",
		ArtifactsDir: t.TempDir(),
		PreviousFindings: []models.FindingCreate{
			{Category: models.CategoryStaticInfo, Severity: models.SeverityInfo, Confidence: 1.0, Title: "Static analysis"},
			{Category: models.CategoryRuntimeHook, Severity: models.SeverityHigh, Confidence: 0.85, Title: "Suspicious API call"},
		},
		PreviousArtifacts: []models.ArtifactCreate{
			{Name: "static_report.json", Type: models.ArtifactFile, PluginID: "static"},
		},
		PipelineContext: map[string]interface{}{"_risk_score": 0.8},
	}

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Name != "report.md" {
		t.Fatalf("expected report.md artifact, got %+v", result.Artifacts)
	}

	content, err := os.ReadFile(filepath.Join(ctx.ArtifactsDir, "report.md"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	body := string(content)
	if !strings.Contains(body, "job 42") {
		t.Error("report missing job id")
	}
	if !strings.Contains(body, "Risk score: 0.80") {
		t.Error("report missing risk score")
	}
	// Findings render most severe first.
	high := strings.Index(body, "Suspicious API call")
	info := strings.Index(body, "Static analysis")
	if high < 0 || info < 0 || high > info {
		t.Errorf("findings not ordered by severity: high at %d, info at %d", high, info)
	}
	if !strings.Contains(body, "static_report.json") {
		t.Error("report missing artifact list")
	}
}

func TestPlugin_Run_EmptyPipelineStillRenders(t *testing.T) {
	p, _ := New(nil)
	ctx := &plugins.JobContext{
		Job:             &models.Job{ID: 7},
		ArtifactsDir:    t.TempDir(),
		PipelineContext: map[string]interface{}{},
	}

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Fatal("expected success=true")
	}
	if len(result.Artifacts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(result.Artifacts))
	}
}
