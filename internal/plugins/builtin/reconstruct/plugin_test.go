package reconstruct

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
)

func newCtx(t *testing.T, events []models.TraceEventCreate) *plugins.JobContext {
	t.Helper()
	pc := map[string]interface{}{}
	if events != nil {
		pc["trace_events"] = events
	}
	return &plugins.JobContext{
		Job:             &models.Job{ID: 1},
		ArtifactsDir:    t.TempDir(),
		PipelineContext: pc,
	}
}

func ev(seq int64, symbol string) models.TraceEventCreate {
	return models.TraceEventCreate{
		Sequence: seq,
		Source:   models.SourceLaintrace,
		Type:     models.EventHookEnter,
		Detail:   models.JSONMap{"symbol": symbol},
	}
}

func TestPlugin_Run_NoTraceEvents(t *testing.T) {
	p, _ := New(nil)
	ctx := newCtx(t, nil)

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Fatal("expected success=true")
	}
	if len(result.Findings) != 0 || len(result.Artifacts) != 0 {
		t.Errorf("expected empty result without trace events, got %+v", result)
	}
}

func TestPlugin_Run_AllocThenWriteIsAnomalous(t *testing.T) {
	p, _ := New(nil)
	ctx := newCtx(t, []models.TraceEventCreate{
		ev(0, "kernel32.CreateFileW"),
		ev(1, "kernel32.VirtualAllocEx"),
		ev(2, "kernel32.WriteProcessMemory"),
	})

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Findings) != 1 {
		t.Fatalf("expected one memory_anomaly finding, got %d", len(result.Findings))
	}
	if result.Findings[0].Category != models.CategoryMemoryAnomaly {
		t.Errorf("category = %q, want memory_anomaly", result.Findings[0].Category)
	}
	if ctx.RiskScore() < 0.7 {
		t.Errorf("risk score = %v, want >= 0.7 for alloc-then-write", ctx.RiskScore())
	}
}

func TestPlugin_Run_BenignTraceNoFindings(t *testing.T) {
	p, _ := New(nil)
	ctx := newCtx(t, []models.TraceEventCreate{
		ev(0, "kernel32.CreateFileW"),
		ev(1, "kernel32.ReadFile"),
		ev(2, "ws2_32.connect"),
	})

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Findings) != 0 {
		t.Errorf("expected no findings for benign trace, got %+v", result.Findings)
	}
	if ctx.RiskScore() != 0 {
		t.Errorf("risk score = %v, want 0", ctx.RiskScore())
	}
}

func TestPlugin_Run_WritesTimelineArtifact(t *testing.T) {
	p, _ := New(nil)
	ctx := newCtx(t, []models.TraceEventCreate{
		ev(0, "kernel32.CreateFileW"),
		ev(1, "kernel32.ReadFile"),
	})

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Artifacts) != 1 || result.Artifacts[0].Name != "timeline.json" {
		t.Fatalf("expected timeline.json artifact, got %+v", result.Artifacts)
	}
	if _, err := os.Stat(filepath.Join(ctx.ArtifactsDir, "timeline.json")); err != nil {
		t.Errorf("timeline file missing: %v", err)
	}
	if got := result.ContextData["reconstructed_timeline_length"]; got != 2 {
		t.Errorf("timeline length = %v, want 2", got)
	}
}
