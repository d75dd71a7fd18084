// Package gate implements Umbriel, the anti-analysis gate: it runs
// first in most pipelines to flag evasion techniques (anti-debug,
// anti-VM, packing) that would compromise later stages' results.
package gate

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/aetherframe/orchestrator/internal/plugins"
	"github.com/aetherframe/orchestrator/internal/plugins/builtin/common"
	"github.com/aetherframe/orchestrator/internal/models"
)

const (
	id      = "gate"
	name    = "Umbriel Anti-Analysis Gate"
	version = "1.0.0"
)

func init() {
	plugins.Register(id, New)
}

var antiDebugMarkers = []string{
	"isdebuggerpresent", "ntqueryinformationprocess", "checkremotedebuggerpresent",
	"outputdebugstring", "ntsetinformationthread",
}

var antiVMMarkers = []string{
	"vmware", "virtualbox", "vboxservice", "qemu", "xen", "cpuid",
}

var antiFridaMarkers = []string{
	"frida-agent", "frida-gadget", "gum-js-loop", "frida-server",
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

func (p *Plugin) Capabilities() []string { return []string{"anti_analysis.scan"} }

func (p *Plugin) SupportsCapability(capability string) bool {
	return capability == "anti_analysis.scan"
}

func (p *Plugin) Validate(ctx *plugins.JobContext) error {
	info, err := os.Stat(ctx.TargetPath)
	if err != nil {
		return &plugins.ValidationError{PluginID: id, Reason: err.Error()}
	}
	if info.IsDir() {
		return &plugins.ValidationError{PluginID: id, Reason: "target is a directory"}
	}
	return nil
}

// Run scans the target's printable strings for known anti-debug,
// anti-VM, and anti-instrumentation markers, and flags high entropy
// as a packing indicator.
func (p *Plugin) Run(ctx *plugins.JobContext) (*plugins.Result, error) {
	data, err := os.ReadFile(ctx.TargetPath)
	if err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "gate", Err: err}
	}

	strs := common.ExtractStrings(data, common.IntOpt(p.config, "min_string_length", 6), 2000)
	lowered := make([]string, len(strs))
	for i, s := range strs {
		lowered[i] = strings.ToLower(s)
	}
	joined := strings.Join(lowered, "\n")

	var findings []models.FindingCreate
	findings = append(findings, scanMarkers(joined, antiDebugMarkers, models.CategoryAntiDebug, "anti-debug")...)
	findings = append(findings, scanMarkers(joined, antiVMMarkers, models.CategoryAntiVM, "anti-VM")...)
	findings = append(findings, scanMarkers(joined, antiFridaMarkers, models.CategoryAntiDebug, "anti-instrumentation")...)

	entropy := common.Entropy(data)
	if entropy >= 7.2 {
		findings = append(findings, models.FindingCreate{
			Category:   models.CategoryPacking,
			Severity:   models.SeverityMedium,
			Confidence: 0.7,
			Title:      "High entropy suggests packing or encryption",
			Detail:     "Whole-file Shannon entropy exceeded 7.2 bits/byte",
			Evidence:   models.EvidenceList{{Description: "entropy", Confidence: 0.7}},
		})
	}

	format := string(common.DetectFormat(data))

	rep := map[string]interface{}{
		"plugin":         id,
		"file":           ctx.TargetPath,
		"format":         format,
		"entropy":        entropy,
		"findings_count": len(findings),
	}
	markers := make([]string, 0, len(findings))
	for _, f := range findings {
		if len(f.Evidence) > 0 {
			markers = append(markers, f.Evidence[0].Description)
		}
	}
	rep["markers"] = markers

	reportBytes, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "gate", Err: err}
	}
	reportPath := ctx.GetArtifactPath("anti_analysis_report.json")
	if err := os.WriteFile(reportPath, reportBytes, 0o644); err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "gate", Err: err}
	}

	return &plugins.Result{
		Success:  true,
		Findings: findings,
		Artifacts: []models.ArtifactCreate{{
			Name:        "anti_analysis_report.json",
			Type:        models.ArtifactFile,
			Path:        reportPath,
			ContentType: "application/json",
			SizeBytes:   int64(len(reportBytes)),
		}},
		ContextData: map[string]interface{}{
			"gate_entropy": entropy,
			"gate_format":  format,
		},
	}, nil
}

func scanMarkers(haystack string, markers []string, category models.Category, label string) []models.FindingCreate {
	var out []models.FindingCreate
	for _, m := range markers {
		if strings.Contains(haystack, m) {
			out = append(out, models.FindingCreate{
				Category:   category,
				Severity:   models.SeverityMedium,
				Confidence: 0.6,
				Title:      "Possible " + label + " marker: " + m,
				Detail:     "String marker found in target binary",
				Evidence:   models.EvidenceList{{Description: m, Confidence: 0.6}},
			})
		}
	}
	return out
}
