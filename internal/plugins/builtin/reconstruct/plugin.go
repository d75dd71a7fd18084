// Package reconstruct implements Mnemosyne, the state reconstruction
// plugin: it consumes the trace events a prior tracing stage recorded
// into the pipeline context and builds a coarse execution timeline,
// flagging allocate-then-write call sequences as memory anomalies. It
// builds no state-transition graph and does not track frees.
package reconstruct

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
)

const (
	id      = "reconstruct"
	name    = "Mnemosyne State Reconstructor"
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

func (p *Plugin) Capabilities() []string { return []string{"state.reconstruct"} }

func (p *Plugin) SupportsCapability(capability string) bool {
	return capability == "state.reconstruct"
}

// Validate has nothing of its own to check: mnemosyne only reasons
// over trace events a prior stage already produced.
func (p *Plugin) Validate(ctx *plugins.JobContext) error { return nil }

type timelineEntry struct {
	Sequence int64  `json:"sequence"`
	Symbol   string `json:"symbol"`
	Kind     string `json:"kind"`
}

// Run rebuilds a linear timeline from the TraceEvents found under
// PipelineContext["trace_events"] (the key the trace stage contributes;
// orchestrator stage events are not included), and raises a memory_anomaly
// finding for call pairs that look like an allocate-then-write into
// executable memory — the shape of a reflective-loader or shellcode
// staging pattern.
func (p *Plugin) Run(ctx *plugins.JobContext) (*plugins.Result, error) {
	raw, _ := ctx.PipelineContext["trace_events"].([]models.TraceEventCreate)

	var timeline []timelineEntry
	var findings []models.FindingCreate

	var pendingAlloc *models.TraceEventCreate
	for i := range raw {
		ev := raw[i]
		symbol, _ := ev.Detail["symbol"].(string)
		timeline = append(timeline, timelineEntry{Sequence: ev.Sequence, Symbol: symbol, Kind: string(ev.Type)})

		switch {
		case containsFold(symbol, "virtualalloc"):
			e := ev
			pendingAlloc = &e
		case pendingAlloc != nil && (containsFold(symbol, "writeprocessmemory") || containsFold(symbol, "writefile")):
			findings = append(findings, models.FindingCreate{
				Category:   models.CategoryMemoryAnomaly,
				Severity:   models.SeverityHigh,
				Confidence: 0.7,
				Title:      "Allocate-then-write sequence detected",
				Detail:     fmt.Sprintf("%s followed by %s: consistent with shellcode staging", pendingAlloc.Detail["symbol"], symbol),
				Evidence:   models.EvidenceList{{Description: symbol, Confidence: 0.7}},
			})
			pendingAlloc = nil
		}
	}

	if len(timeline) == 0 {
		return &plugins.Result{Success: true}, nil
	}

	ctx.RaiseRiskScore(riskFor(findings))

	timelineBytes, err := json.MarshalIndent(timeline, "", "  ")
	if err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "reconstruct", Err: err}
	}
	timelinePath := ctx.GetArtifactPath("timeline.json")
	if err := os.WriteFile(timelinePath, timelineBytes, 0o644); err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "reconstruct", Err: err}
	}

	return &plugins.Result{
		Success:  true,
		Findings: findings,
		Artifacts: []models.ArtifactCreate{{
			Name:        "timeline.json",
			Type:        models.ArtifactFile,
			Path:        timelinePath,
			ContentType: "application/json",
			SizeBytes:   int64(len(timelineBytes)),
		}},
		ContextData: map[string]interface{}{
			"reconstructed_timeline_length": len(timeline),
		},
	}, nil
}

func riskFor(findings []models.FindingCreate) float64 {
	if len(findings) == 0 {
		return 0
	}
	return 0.75
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
