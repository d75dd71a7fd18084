package models

import "time"

// ArtifactType distinguishes an artifact stored on disk from one small
// enough to inline in the row itself.
type ArtifactType string

const (
	ArtifactFile   ArtifactType = "file"
	ArtifactInline ArtifactType = "inline"
)

// Artifact is a byproduct a plugin wrote during a stage run: a report,
// an extracted string list, a rendered timeline.
type Artifact struct {
	ID          int64        `json:"id"`
	JobID       int64        `json:"job_id"`
	PluginID    string       `json:"plugin_id"`
	Stage       string       `json:"stage"`
	Name        string       `json:"name"`
	Type        ArtifactType `json:"type"`
	Path        string       `json:"path,omitempty"`
	InlineData  string       `json:"inline_data,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	SizeBytes   int64        `json:"size_bytes"`
	CreatedAt   time.Time    `json:"created_at"`
}

func (a Artifact) IsInline() bool { return a.Type == ArtifactInline }
func (a Artifact) IsExternal() bool { return a.Type == ArtifactFile }

type ArtifactCreate struct {
	PluginID    string       `json:"plugin_id"`
	Stage       string       `json:"stage"`
	Name        string       `json:"name"`
	Type        ArtifactType `json:"type"`
	Path        string       `json:"path,omitempty"`
	InlineData  string       `json:"inline_data,omitempty"`
	ContentType string       `json:"content_type,omitempty"`
	SizeBytes   int64        `json:"size_bytes"`
}
