// Package diff implements Valkyrie, the binary diff plugin: semantic
// diffing at the function/block level rather than raw byte
// comparison, scoring each
// changed block's risk and feeding the riskiest function names forward
// as "high_risk_functions" for later stages (trace) to focus on.
package diff

import (
	"fmt"
	"os"
	"strings"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
	"github.com/aetherframe/orchestrator/internal/plugins/builtin/common"
)

const (
	id      = "diff"
	name    = "Valkyrie Binary Diff"
	version = "1.0.0"
)

// dangerousAPIs names the import-table symbols that, if present only in
// the target and absent from the reference build, mark a new code block
// as process-injection capable rather than a benign feature addition.
// Overlaps deliberately with trace.go's "strict"/"comprehensive" Frida
// hook families — both plugins watch the same injection primitives, one
// statically (here) and one at runtime.
var dangerousAPIs = []string{
	"CreateRemoteThread",
	"VirtualAllocEx",
	"WriteProcessMemory",
	"NtCreateThreadEx",
	"SetWindowsHookEx",
}

// highRiskScore is the risk_score the diff plugin raises the job to when
// a dangerous API appears only in the new build. It clears both the
// on_high_risk stage condition's 0.7 threshold and the >= 0.5 floor
// Scenario D asserts on pipeline_context._risk_score.
const highRiskScore = 0.75

// newAPIImports returns the dangerousAPIs entries found as printable
// strings in data but not in baseline — a heuristic stand-in for a real
// PE/ELF import-table diff, consistent with this plugin's block-window
// stand-in for disassembly.
func newAPIImports(data, baseline []byte) []string {
	baselineStrings := common.ExtractStrings(baseline, 6, 0)
	present := make(map[string]bool, len(baselineStrings))
	for _, s := range baselineStrings {
		present[s] = true
	}
	currentStrings := common.ExtractStrings(data, 6, 0)
	seenInCurrent := make(map[string]bool, len(currentStrings))
	for _, s := range currentStrings {
		seenInCurrent[s] = true
	}

	var found []string
	for _, api := range dangerousAPIs {
		if !containsAPI(seenInCurrent, api) {
			continue
		}
		if containsAPI(present, api) {
			continue
		}
		found = append(found, api)
	}
	return found
}

func containsAPI(strs map[string]bool, api string) bool {
	for s := range strs {
		if strings.Contains(s, api) {
			return true
		}
	}
	return false
}

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

func (p *Plugin) Capabilities() []string { return []string{"binary_diff.compare"} }

func (p *Plugin) SupportsCapability(capability string) bool {
	return capability == "binary_diff.compare"
}

// Validate requires a reference_path option: there is nothing to diff
// without a baseline build to compare against.
func (p *Plugin) Validate(ctx *plugins.JobContext) error {
	ref, _ := ctx.Job.Options["reference_path"].(string)
	if ref == "" {
		return &plugins.ValidationError{PluginID: id, Reason: "job options.reference_path is required for binary diffing"}
	}
	if _, err := os.Stat(ref); err != nil {
		return &plugins.ValidationError{PluginID: id, Reason: "reference_path not found: " + ref}
	}
	return nil
}

// block is a coarse stand-in for a disassembled function/basic block:
// valkyrie's real implementation segments by function boundaries; this
// ports the same block-level comparison idea onto fixed-size windows,
// since this codebase has no disassembler dependency to drive true
// function boundary detection.
const blockSize = 256

func (p *Plugin) Run(ctx *plugins.JobContext) (*plugins.Result, error) {
	ref, _ := ctx.Job.Options["reference_path"].(string)

	current, err := os.ReadFile(ctx.TargetPath)
	if err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "diff", Err: err}
	}
	baseline, err := os.ReadFile(ref)
	if err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "diff", Err: err}
	}

	currentBlocks := splitBlocks(current, blockSize)
	baselineBlocks := splitBlocks(baseline, blockSize)
	dangerousImports := newAPIImports(current, baseline)

	var findings []models.FindingCreate
	var highRisk []string
	var changed, added, removed int

	maxLen := len(currentBlocks)
	if len(baselineBlocks) > maxLen {
		maxLen = len(baselineBlocks)
	}

	for i := 0; i < maxLen; i++ {
		label := fmt.Sprintf("block_%04x", i*blockSize)
		switch {
		case i >= len(baselineBlocks):
			added++
			blockAPIs := matchingAPIs(current[i*blockSize:], dangerousImports)
			findings = append(findings, newCodeFinding(label, blockAPIs))
			highRisk = append(highRisk, label)
		case i >= len(currentBlocks):
			removed++
			findings = append(findings, removedCodeFinding(label))
		case !bytesEqual(currentBlocks[i], baselineBlocks[i]):
			changed++
			risk := common.Entropy(currentBlocks[i]) - common.Entropy(baselineBlocks[i])
			findings = append(findings, functionChangeFinding(label, risk))
			if risk > 1.0 {
				highRisk = append(highRisk, label)
			}
		}
	}

	if added+removed+changed > 0 {
		ctx.RaiseRiskScore(float64(changed+added*2) / float64(maxLen+1))
	}
	if len(dangerousImports) > 0 {
		findings = append(findings, newAPIImportFinding(dangerousImports))
		ctx.RaiseRiskScore(highRiskScore)
	}

	return &plugins.Result{
		Success:  true,
		Findings: findings,
		ContextData: map[string]interface{}{
			"diff_added_blocks":    added,
			"diff_removed_blocks":  removed,
			"diff_changed_blocks":  changed,
			"high_risk_functions":  highRisk,
			"new_dangerous_imports": dangerousImports,
		},
	}, nil
}

// matchingAPIs returns the subset of apis that appear as a substring
// somewhere in block — used to decide whether a specific new code block
// is the one carrying a dangerous import, for severity escalation.
func matchingAPIs(block []byte, apis []string) []string {
	if len(apis) == 0 {
		return nil
	}
	strs := common.ExtractStrings(block, 6, 0)
	var matched []string
	for _, api := range apis {
		for _, s := range strs {
			if strings.Contains(s, api) {
				matched = append(matched, api)
				break
			}
		}
	}
	return matched
}

func splitBlocks(data []byte, size int) [][]byte {
	var blocks [][]byte
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		blocks = append(blocks, data[i:end])
	}
	return blocks
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// newCodeFinding reports a block present in the target but absent from
// the reference build. Its severity floors at medium but escalates to
// high when the block itself carries one of dangerousAPIs, since a new
// code path that can inject into another process is a materially
// different risk than a new code path that can't.
func newCodeFinding(label string, apis []string) models.FindingCreate {
	severity := models.SeverityMedium
	detail := "Block present in target but absent from the reference build"
	if len(apis) > 0 {
		severity = models.SeverityHigh
		detail = "Block present in target but absent from the reference build; calls " + strings.Join(apis, ", ")
	}
	return models.FindingCreate{
		Category:   models.CategoryNewCode,
		Severity:   severity,
		Confidence: 0.8,
		Title:      "New code block: " + label,
		Detail:     detail,
		Evidence:   models.EvidenceList{{Description: label, Confidence: 0.8}},
	}
}

// newAPIImportFinding reports the job-level discovery of a dangerous
// import absent from the reference build entirely, independent of which
// block it landed in — catches the case where the import name sits
// outside any single diff window (e.g. split across a block boundary).
func newAPIImportFinding(apis []string) models.FindingCreate {
	list := strings.Join(apis, ", ")
	return models.FindingCreate{
		Category:   models.CategoryNewCode,
		Severity:   models.SeverityHigh,
		Confidence: 0.9,
		Title:      "New dangerous API import: " + list,
		Detail:     "Target imports " + list + ", absent from the reference build",
		Evidence:   models.EvidenceList{{Description: list, Confidence: 0.9}},
	}
}

func removedCodeFinding(label string) models.FindingCreate {
	return models.FindingCreate{
		Category:   models.CategoryRemovedCode,
		Severity:   models.SeverityLow,
		Confidence: 0.7,
		Title:      "Removed code block: " + label,
		Detail:     "Block present in the reference build but absent from target",
		Evidence:   models.EvidenceList{{Description: label, Confidence: 0.7}},
	}
}

func functionChangeFinding(label string, riskDelta float64) models.FindingCreate {
	severity := models.SeverityLow
	if riskDelta > 1.0 {
		severity = models.SeverityHigh
	} else if riskDelta > 0.3 {
		severity = models.SeverityMedium
	}
	return models.FindingCreate{
		Category:   models.CategoryFunctionChange,
		Severity:   severity,
		Confidence: 0.6,
		Title:      "Changed code block: " + label,
		Detail:     fmt.Sprintf("Entropy delta vs. reference: %.2f", riskDelta),
		Evidence:   models.EvidenceList{{Description: label, Confidence: 0.6}},
	}
}
