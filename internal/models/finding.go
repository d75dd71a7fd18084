package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Severity is the plugin-assigned severity of a Finding.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityWeight = map[Severity]float64{
	SeverityInfo:     0.1,
	SeverityLow:      0.3,
	SeverityMedium:   0.5,
	SeverityHigh:     0.75,
	SeverityCritical: 1.0,
}

// Category groups findings by the analysis concern that produced them.
// Values are grouped by the builtin plugin that emits them (gate,
// static, intent, diff, trace, reconstruct), mirroring the category
// taxonomy of the system this was modeled on.
type Category string

const (
	CategoryAntiDebug      Category = "anti_debug"
	CategoryAntiVM         Category = "anti_vm"
	CategoryPacking        Category = "packing"
	CategoryStaticInfo     Category = "static_info"
	CategoryIntentVerdict  Category = "intent_verdict"
	CategoryNewCode        Category = "new-code"
	CategoryRemovedCode    Category = "removed-code"
	CategoryFunctionChange Category = "function-change"
	CategoryRuntimeHook    Category = "runtime_hook"
	CategoryMemoryAnomaly  Category = "memory_anomaly"
)

// Evidence is a single supporting fact attached to a Finding.
type Evidence struct {
	Description string  `json:"description"`
	Location    string  `json:"location,omitempty"`
	Confidence  float64 `json:"confidence"`
}

type EvidenceList []Evidence

func (e EvidenceList) Value() (driver.Value, error) {
	if e == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e)
}

func (e *EvidenceList) Scan(src interface{}) error {
	if src == nil {
		*e = EvidenceList{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("models: cannot scan %T into EvidenceList", src)
	}
	if len(b) == 0 {
		*e = EvidenceList{}
		return nil
	}
	return json.Unmarshal(b, e)
}

// Finding is a single observation a plugin reports about a job's target.
type Finding struct {
	ID         int64        `json:"id"`
	JobID      int64        `json:"job_id"`
	PluginID   string       `json:"plugin_id"`
	Stage      string       `json:"stage"`
	Category   Category     `json:"category"`
	Severity   Severity     `json:"severity"`
	Confidence float64      `json:"confidence"`
	Title      string       `json:"title"`
	Detail     string       `json:"detail,omitempty"`
	Evidence   EvidenceList `json:"evidence,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// RiskScore is the per-finding severity x confidence contribution. It
// is a read-only API convenience and is never fed back into a job's
// persisted result.risk_score.
func (f Finding) RiskScore() float64 {
	return severityWeight[f.Severity] * f.Confidence
}

type FindingCreate struct {
	PluginID   string       `json:"plugin_id"`
	Stage      string       `json:"stage"`
	Category   Category     `json:"category"`
	Severity   Severity     `json:"severity"`
	Confidence float64      `json:"confidence"`
	Title      string       `json:"title"`
	Detail     string       `json:"detail,omitempty"`
	Evidence   EvidenceList `json:"evidence,omitempty"`
}
