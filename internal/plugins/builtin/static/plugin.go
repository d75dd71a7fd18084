// Package static implements the static analysis plugin: file hashing,
// format sniffing, entropy, and string extraction into a JSON report.
package static

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
	"github.com/aetherframe/orchestrator/internal/plugins/builtin/common"
)

const (
	id      = "static"
	name    = "Static Analyzer"
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

func (p *Plugin) Capabilities() []string { return []string{"static.analyze"} }

func (p *Plugin) SupportsCapability(capability string) bool {
	return capability == "static.analyze"
}

func (p *Plugin) Validate(ctx *plugins.JobContext) error {
	if _, err := os.Stat(ctx.TargetPath); err != nil {
		return &plugins.ValidationError{PluginID: id, Reason: "file not found: " + ctx.TargetPath}
	}
	return nil
}

type report struct {
	Plugin        string  `json:"plugin"`
	File          string  `json:"file"`
	SHA256        string  `json:"sha256"`
	Size          int     `json:"size"`
	Format        string  `json:"format"`
	Entropy       float64 `json:"entropy"`
	StringsCount  int     `json:"strings_count"`
	StringsSample []string `json:"strings_sample"`
}

func (p *Plugin) Run(ctx *plugins.JobContext) (*plugins.Result, error) {
	data, err := os.ReadFile(ctx.TargetPath)
	if err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "static", Err: err}
	}

	extractStr := common.BoolOpt(p.config, "extract_strings", true)
	computeEnt := common.BoolOpt(p.config, "compute_entropy", true)
	minLen := common.IntOpt(p.config, "min_string_length", 6)

	sum := sha256.Sum256(data)
	sha := hex.EncodeToString(sum[:])
	size := len(data)
	format := common.DetectFormat(data)

	var strs []string
	if extractStr {
		strs = common.ExtractStrings(data, minLen, 500)
	}

	var entropy float64
	if computeEnt {
		entropy = common.Entropy(data)
	}

	sample := strs
	if len(sample) > 50 {
		sample = sample[:50]
	}

	rep := report{
		Plugin:        "static",
		File:          ctx.TargetPath,
		SHA256:        sha,
		Size:          size,
		Format:        string(format),
		Entropy:       roundTo(entropy, 4),
		StringsCount:  len(strs),
		StringsSample: sample,
	}

	var artifacts []models.ArtifactCreate

	reportPath := ctx.GetArtifactPath("static_report.json")
	reportBytes, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "static", Err: err}
	}
	if err := os.WriteFile(reportPath, reportBytes, 0o644); err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "static", Err: err}
	}
	artifacts = append(artifacts, models.ArtifactCreate{
		Name:        "static_report.json",
		Type:        models.ArtifactFile,
		Path:        reportPath,
		ContentType: "application/json",
		SizeBytes:   int64(len(reportBytes)),
	})

	if len(strs) > 0 {
		stringsPath := ctx.GetArtifactPath("strings.txt")
		joined := strings.Join(strs, "\n")
		if err := os.WriteFile(stringsPath, []byte(joined), 0o644); err != nil {
			return nil, &plugins.ExecutionError{PluginID: id, Stage: "static", Err: err}
		}
		artifacts = append(artifacts, models.ArtifactCreate{
			Name:        "strings.txt",
			Type:        models.ArtifactFile,
			Path:        stringsPath,
			ContentType: "text/plain",
			SizeBytes:   int64(len(joined)),
		})
	}

	finding := models.FindingCreate{
		Category:   models.CategoryStaticInfo,
		Severity:   models.SeverityInfo,
		Confidence: 1.0,
		Title:      fmt.Sprintf("Static analysis: %s binary", strings.ToUpper(string(format))),
		Detail:     fmt.Sprintf("SHA256: %s..., Size: %d, Entropy: %.2f", sha[:16], size, entropy),
		Evidence:   models.EvidenceList{{Description: "format=" + string(format), Confidence: 1.0}},
	}

	return &plugins.Result{
		Success:   true,
		Findings:  []models.FindingCreate{finding},
		Artifacts: artifacts,
		ContextData: map[string]interface{}{
			"sha256":        sha,
			"format":        string(format),
			"entropy":       entropy,
			"strings_count": len(strs),
		},
	}, nil
}

func roundTo(v float64, places int) float64 {
	scale := 1.0
	for i := 0; i < places; i++ {
		scale *= 10
	}
	return float64(int(v*scale+0.5)) / scale
}
