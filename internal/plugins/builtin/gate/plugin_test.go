package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
)

func newCtx(t *testing.T, data []byte) *plugins.JobContext {
	t.Helper()
	dir := t.TempDir()
	target := filepath.Join(dir, "sample.bin")
	if err := os.WriteFile(target, data, 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}
	return &plugins.JobContext{
		TargetPath:      target,
		WorkspaceDir:    dir,
		ArtifactsDir:    dir,
		PipelineContext: map[string]interface{}{},
	}
}

func TestPlugin_Identity(t *testing.T) {
	p, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if p.ID() != "gate" {
		t.Errorf("ID() = %q, want gate", p.ID())
	}
	if !p.SupportsCapability("anti_analysis.scan") {
		t.Error("expected anti_analysis.scan capability")
	}
	if p.SupportsCapability("other.thing") {
		t.Error("unexpected capability support")
	}
}

func TestPlugin_Validate_MissingFile(t *testing.T) {
	p, _ := New(nil)
	ctx := &plugins.JobContext{TargetPath: "/no/such/file", PipelineContext: map[string]interface{}{}}
	if err := p.Validate(ctx); err == nil {
		t.Error("expected validation error for missing target")
	}
}

func TestPlugin_Validate_Directory(t *testing.T) {
	p, _ := New(nil)
	ctx := &plugins.JobContext{TargetPath: t.TempDir(), PipelineContext: map[string]interface{}{}}
	if err := p.Validate(ctx); err == nil {
		t.Error("expected validation error for directory target")
	}
}

func TestPlugin_Run_DetectsAntiDebugMarker(t *testing.T) {
	p, _ := New(nil)
	ctx := newCtx(t, []byte("padding padding IsDebuggerPresent padding padding"))

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.Success {
		t.Fatal("expected success=true")
	}
	found := false
	for _, f := range result.Findings {
		if f.Category == models.CategoryAntiDebug {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an anti_debug finding, got %+v", result.Findings)
	}
}

func TestPlugin_Run_CleanBinaryNoFindings(t *testing.T) {
	p, _ := New(nil)
	ctx := newCtx(t, []byte("hello world this is a perfectly boring string of text"))

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Findings) != 0 {
		t.Errorf("expected no findings for clean input, got %+v", result.Findings)
	}
}

func TestPlugin_Run_HighEntropyFlagsPacking(t *testing.T) {
	p, _ := New(nil)
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i * 37 % 256)
	}
	ctx := newCtx(t, data)

	result, err := p.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	found := false
	for _, f := range result.Findings {
		if f.Category == models.CategoryPacking {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a packing finding for high-entropy data, got %+v", result.Findings)
	}
}
