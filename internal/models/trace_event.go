package models

import "time"

// EventSource identifies which instrumentation layer produced a trace
// event: one of the builtin plugins, the generic "plugin" fallback, or
// "orchestrator" for events the executor emits itself around stage
// boundaries.
type EventSource string

const (
	SourceLaintrace    EventSource = "laintrace"
	SourceMnemosyne    EventSource = "mnemosyne"
	SourceUmbriel      EventSource = "umbriel"
	SourceValkyrie     EventSource = "valkyrie"
	SourceNoema        EventSource = "noema"
	SourceOrchestrator EventSource = "orchestrator"
	SourcePlugin       EventSource = "plugin"
)

// EventType enumerates the shape of a trace event's payload.
type EventType string

const (
	EventHookEnter     EventType = "hook_enter"
	EventHookExit      EventType = "hook_exit"
	EventStateInit     EventType = "state_init"
	EventStateChange   EventType = "state_change"
	EventStateSnapshot EventType = "state_snapshot"
	EventMemoryRead    EventType = "memory_read"
	EventMemoryWrite   EventType = "memory_write"
	EventMemoryAlloc   EventType = "memory_alloc"
	EventMemoryFree    EventType = "memory_free"
	EventMemoryProtect EventType = "memory_protect"
	EventSyscallEnter  EventType = "syscall_enter"
	EventSyscallExit   EventType = "syscall_exit"
	EventStageStart    EventType = "stage_start"
	EventStageComplete EventType = "stage_complete"
	EventStageError    EventType = "stage_error"
	EventInfo          EventType = "info"
	EventWarning       EventType = "warning"
	EventError         EventType = "error"
)

// TraceEvent is one entry in a job's dynamic execution timeline. Events
// are ordered by (Timestamp, Sequence) — Sequence breaks ties when two
// events share a timestamp, never by insertion order alone.
type TraceEvent struct {
	ID        int64       `json:"id"`
	JobID     int64       `json:"job_id"`
	PluginID  string      `json:"plugin_id"`
	Sequence  int64       `json:"sequence"`
	Timestamp time.Time   `json:"timestamp"`
	Source    EventSource `json:"source"`
	Type      EventType   `json:"type"`
	Target    string      `json:"target"`
	Detail    JSONMap     `json:"detail,omitempty"`
}

type TraceEventCreate struct {
	PluginID  string      `json:"plugin_id"`
	Sequence  int64       `json:"sequence"`
	Timestamp time.Time   `json:"timestamp"`
	Source    EventSource `json:"source"`
	Type      EventType   `json:"type"`
	Target    string      `json:"target"`
	Detail    JSONMap     `json:"detail,omitempty"`
}
