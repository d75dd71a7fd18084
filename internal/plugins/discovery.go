// Package plugins - discovery.go
//
// This file implements plugin discovery by scanning a plugins root
// directory for subdirectories carrying a plugin.yaml manifest.
//
// # Discovery Model
//
// Unlike a dynamically-loaded-.so plugin architecture, every plugin this
// engine can run must ship a Go implementation compiled into the binary
// (registered via the global factory registry in registry.go) AND a
// plugin.yaml manifest on disk describing its declared identity,
// capabilities, and dependencies. Discovery only ever reads the
// manifest; the Go implementation is resolved separately and lazily, by
// Registry.GetInstance, the first time the plugin is actually needed.
//
// The split keeps compile-time code (the global registry) separate
// from the runtime inventory (the discovery pass over manifest files).
package plugins

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aetherframe/orchestrator/internal/logger"
)

const manifestFileName = "plugin.yaml"

// Discovery scans one or more plugin root directories for manifests.
type Discovery struct {
	roots []string

	mu        sync.RWMutex
	manifests map[string]*Manifest
}

// NewDiscovery builds a Discovery over the given plugin root
// directories. If none are given, it defaults to "./plugins".
func NewDiscovery(roots ...string) *Discovery {
	if len(roots) == 0 {
		roots = []string{"./plugins"}
	}
	return &Discovery{
		roots:     roots,
		manifests: make(map[string]*Manifest),
	}
}

// Scan walks every root directory, loading and validating each
// plugin.yaml it finds. An invalid manifest is logged and skipped — it
// never aborts the scan; discovery is best-effort and must never be
// fatal to process startup.
func (d *Discovery) Scan() error {
	log := logger.Plugins()

	for _, root := range d.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			log.Warn().Str("root", root).Err(err).Msg("plugin root unreadable, skipping")
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if !entry.IsDir() || strings.HasPrefix(name, "_") {
				continue
			}

			manifestPath := filepath.Join(root, name, manifestFileName)
			if _, err := os.Stat(manifestPath); err != nil {
				continue
			}

			manifest, err := LoadManifest(manifestPath)
			if err != nil {
				log.Warn().Str("path", manifestPath).Err(err).Msg("invalid plugin manifest, skipping")
				continue
			}

			d.mu.Lock()
			d.manifests[manifest.ID] = manifest
			d.mu.Unlock()
			log.Info().Str("plugin_id", manifest.ID).Str("kind", string(manifest.Kind)).Msg("discovered plugin manifest")
		}
	}

	return nil
}

// RegisterManifest adds (or replaces) a manifest directly, bypassing
// the filesystem — used by tests; every builtin plugin ships a
// standalone plugin.yaml and is found by Scan.
func (d *Discovery) RegisterManifest(m *Manifest) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.manifests[m.ID] = m
}

// Get returns a single discovered manifest by id.
func (d *Discovery) Get(id string) (*Manifest, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.manifests[id]
	return m, ok
}

// List returns every discovered manifest.
func (d *Discovery) List() []*Manifest {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Manifest, 0, len(d.manifests))
	for _, m := range d.manifests {
		out = append(out, m)
	}
	return out
}

// HasImplementation reports whether a discovered manifest also has a
// registered Go factory — i.e. whether it can actually be run, not just
// described.
func (d *Discovery) HasImplementation(id string) bool {
	_, ok := getFactory(id)
	return ok
}
