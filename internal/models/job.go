package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobStatus is the lifecycle state of a submitted job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition is valid from s.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// TargetType identifies what kind of thing a job analyzes.
type TargetType string

const (
	TargetBinary     TargetType = "binary"
	TargetAPK        TargetType = "apk"
	TargetPID        TargetType = "pid"
	TargetMemoryDump TargetType = "memory_dump"
	TargetTraceLog   TargetType = "trace_log"
)

// JSONMap is a map persisted as a JSONB column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(src interface{}) error {
	if src == nil {
		*m = JSONMap{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("models: cannot scan %T into JSONMap", src)
		}
		b = []byte(s)
	}
	if len(b) == 0 {
		*m = JSONMap{}
		return nil
	}
	return json.Unmarshal(b, m)
}

// JobResult is the summary persisted on a job once it reaches a
// terminal state: stage counts, an aggregated risk score, timing, and
// a count of findings/artifacts produced.
type JobResult struct {
	PipelineID      string  `json:"pipeline_id"`
	StagesExecuted  int     `json:"stages_executed"`
	StagesFailed    int     `json:"stages_failed"`
	RiskScore       float64 `json:"risk_score"`
	ExecutionTimeMs int64   `json:"execution_time_ms"`
	FindingsCount   int     `json:"findings_count"`
	ArtifactsCount  int     `json:"artifacts_count"`
	Error           string  `json:"error,omitempty"`
}

func (r JobResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

func (r *JobResult) Scan(src interface{}) error {
	if src == nil {
		*r = JobResult{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("models: cannot scan %T into JobResult", src)
		}
		b = []byte(s)
	}
	if len(b) == 0 {
		*r = JobResult{}
		return nil
	}
	return json.Unmarshal(b, r)
}

// Job is a single submitted analysis run.
type Job struct {
	ID          int64         `json:"id"`
	PipelineID  string        `json:"pipeline_id"`
	TargetType  TargetType    `json:"target_type"`
	TargetPath  string        `json:"target"`
	Options     JSONMap       `json:"options"`
	Tags        pqStringSlice `json:"tags"`
	CreatedBy   string        `json:"created_by,omitempty"`
	Status      JobStatus     `json:"status"`
	CurrentStage *string      `json:"current_stage,omitempty"`
	Progress    int           `json:"progress"`
	Result      JobResult     `json:"result"`
	Error       *string       `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	ClaimedAt   *time.Time    `json:"claimed_at,omitempty"`
}

// pqStringSlice is a []string persisted as a JSONB column — defined
// here (rather than imported from internal/db) so models has no
// dependency on the store package.
type pqStringSlice []string

func (a pqStringSlice) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(a))
}

func (a *pqStringSlice) Scan(src interface{}) error {
	if src == nil {
		*a = pqStringSlice{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		s, ok := src.(string)
		if !ok {
			return fmt.Errorf("models: cannot scan %T into pqStringSlice", src)
		}
		b = []byte(s)
	}
	if len(b) == 0 {
		*a = pqStringSlice{}
		return nil
	}
	return json.Unmarshal(b, (*[]string)(a))
}

// JobCreate is the request payload for submitting a new job.
type JobCreate struct {
	PipelineID string     `json:"pipeline_id"`
	TargetType TargetType `json:"target_type"`
	TargetPath string     `json:"target" binding:"required"`
	Options    JSONMap    `json:"options"`
	Tags       []string   `json:"tags"`
	CreatedBy  string     `json:"created_by"`
}
