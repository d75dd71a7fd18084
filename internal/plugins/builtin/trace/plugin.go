// Package trace implements LainTrace, the dynamic tracing plugin.
// This is a stub tracer: real Frida-based hooking requires a running
// Frida server and target process this codebase doesn't manage, so Run
// simulates a plausible hook_enter/hook_exit event stream from a fixed
// API-call script and flags the suspicious symbol families a live
// trace would.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aetherframe/orchestrator/internal/models"
	"github.com/aetherframe/orchestrator/internal/plugins"
	"github.com/aetherframe/orchestrator/internal/plugins/builtin/common"
)

const (
	id      = "trace"
	name    = "LainTrace Dynamic Tracer"
	version = "1.0.0"
)

func init() {
	plugins.Register(id, New)
}

// fridaHooks lists the symbol sets a given tracing profile would
// attach to, reported in the trace_start event even though this stub
// doesn't actually hook.
var fridaHooks = map[string][]string{
	"minimal": {
		"kernel32.CreateFileW", "kernel32.WriteFile", "kernel32.ReadFile",
		"ws2_32.connect", "ws2_32.send", "ws2_32.recv",
	},
	"strict": {
		"kernel32.CreateFileW", "kernel32.WriteFile", "kernel32.ReadFile", "kernel32.DeleteFileW",
		"kernel32.CreateProcessW", "kernel32.OpenProcess", "kernel32.VirtualAllocEx", "kernel32.WriteProcessMemory",
		"ntdll.NtCreateThreadEx", "advapi32.RegOpenKeyExW", "advapi32.RegSetValueExW",
		"ws2_32.connect", "ws2_32.send", "ws2_32.recv", "winhttp.WinHttpOpen", "winhttp.WinHttpConnect",
	},
	"comprehensive": {
		"ntdll.NtAllocateVirtualMemory", "ntdll.NtProtectVirtualMemory", "ntdll.NtWriteVirtualMemory",
		"ntdll.NtQueryInformationProcess", "kernel32.LoadLibraryW", "kernel32.GetProcAddress",
		"crypt32.CryptEncrypt", "crypt32.CryptDecrypt",
	},
}

var suspiciousSymbolMarkers = []string{"virtualalloc", "writeprocess", "createthread"}

type simulatedCall struct {
	symbol string
	args   map[string]interface{}
}

var simulatedCalls = []simulatedCall{
	{"kernel32.CreateFileW", map[string]interface{}{"path": `C:\Windows\System32\config.ini`}},
	{"kernel32.ReadFile", map[string]interface{}{"handle": 0x100, "bytes": 1024}},
	{"ws2_32.connect", map[string]interface{}{"ip": "192.168.1.1", "port": 443}},
	{"kernel32.VirtualAlloc", map[string]interface{}{"size": 4096, "protect": "PAGE_EXECUTE_READWRITE"}},
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

func (p *Plugin) Capabilities() []string { return []string{"dynamic.trace"} }

func (p *Plugin) SupportsCapability(capability string) bool {
	return capability == "dynamic.trace"
}

// Validate accepts either a PID-looking target or an existing file to
// spawn.
func (p *Plugin) Validate(ctx *plugins.JobContext) error {
	base := ctx.TargetPath
	if _, err := strconv.Atoi(lastPathSegment(base)); err == nil {
		return nil
	}
	info, err := os.Stat(base)
	if err != nil {
		return &plugins.ValidationError{PluginID: id, Reason: "target not found: " + base}
	}
	if info.IsDir() {
		return &plugins.ValidationError{PluginID: id, Reason: "target must be a file or PID"}
	}
	return nil
}

func lastPathSegment(p string) string {
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		return p[i+1:]
	}
	return p
}

func (p *Plugin) Run(ctx *plugins.JobContext) (*plugins.Result, error) {
	profile := common.StringOpt(p.config, "profile", "strict")
	hooks, ok := fridaHooks[profile]
	if !ok {
		hooks = fridaHooks["strict"]
	}

	focusFunctions, _ := ctx.PipelineContext["high_risk_functions"].([]string)

	var traceEvents []models.TraceEventCreate
	var sequence int64

	emit := func(typ models.EventType, symbol, address string, payload map[string]interface{}) {
		detail := models.JSONMap{}
		if symbol != "" {
			detail["symbol"] = symbol
		}
		for k, v := range payload {
			detail[k] = v
		}
		traceEvents = append(traceEvents, models.TraceEventCreate{
			Sequence: sequence,
			Source:   models.SourceLaintrace,
			Type:     typ,
			Target:   address,
			Detail:   detail,
		})
		sequence++
	}

	emit(models.EventInfo, "", "", map[string]interface{}{
		"action":  "trace_start",
		"profile": profile,
		"hooks":   len(hooks),
		"focus":   focusFunctions,
	})

	var findings []models.FindingCreate
	for _, call := range simulatedCalls {
		enterAddr := fmt.Sprintf("0x7ff8%04x0000", sequence)
		emit(models.EventHookEnter, call.symbol, enterAddr, map[string]interface{}{"args": call.args})

		exitAddr := fmt.Sprintf("0x7ff8%04x0000", sequence)
		emit(models.EventHookExit, call.symbol, exitAddr, map[string]interface{}{"return": 0})

		lowered := strings.ToLower(call.symbol)
		for _, marker := range suspiciousSymbolMarkers {
			if strings.Contains(lowered, marker) {
				payload, _ := json.Marshal(call.args)
				findings = append(findings, models.FindingCreate{
					Category:   models.CategoryRuntimeHook,
					Severity:   models.SeverityHigh,
					Confidence: 0.85,
					Title:      "Suspicious API call: " + call.symbol,
					Detail:     "Runtime call to " + call.symbol + " detected",
					Evidence:   models.EvidenceList{{Description: string(payload), Location: enterAddr, Confidence: 0.85}},
				})
				break
			}
		}
	}

	traceLog := map[string]interface{}{
		"plugin":  id,
		"version": version,
		"target":  ctx.TargetPath,
		"profile": profile,
		"events":  traceEvents,
	}
	traceBytes, err := json.MarshalIndent(traceLog, "", "  ")
	if err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "trace", Err: err}
	}
	tracePath := ctx.GetArtifactPath("trace_log.json")
	if err := os.WriteFile(tracePath, traceBytes, 0o644); err != nil {
		return nil, &plugins.ExecutionError{PluginID: id, Stage: "trace", Err: err}
	}

	if len(findings) > 0 {
		ctx.RaiseRiskScore(0.85)
	}

	return &plugins.Result{
		Success:     true,
		Findings:    findings,
		TraceEvents: traceEvents,
		Artifacts: []models.ArtifactCreate{{
			Name:        "trace_log.json",
			Type:        models.ArtifactFile,
			Path:        tracePath,
			ContentType: "application/json",
			SizeBytes:   int64(len(traceBytes)),
		}},
		ContextData: map[string]interface{}{
			"trace_event_count": len(traceEvents),
			"trace_events":      traceEvents,
		},
	}, nil
}
