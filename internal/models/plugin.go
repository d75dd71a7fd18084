package models

import "time"

// Plugin is the catalogue row created through POST /plugins. It is
// purely informational — a human-maintained record of "analyzers we
// know about" — and is not the same thing as a loaded plugin in the
// Plugin Registry, which is keyed by the manifest's string id (e.g.
// "umbriel"), not by this row's store-assigned integer id. The two
// never share a Go type (see internal/plugins.Manifest): table rows
// and in-process manifests share no identity.
type Plugin struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PluginCreate is the POST /plugins request payload.
type PluginCreate struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}
