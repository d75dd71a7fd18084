package plugins

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var manifestIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Manifest is the parsed contents of a plugin's plugin.yaml. ID, Name,
// Version, Kind, and a non-empty Capabilities list are required;
// everything else is optional metadata.
type Manifest struct {
	ID           string                 `yaml:"id"`
	Name         string                 `yaml:"name"`
	Version      string                 `yaml:"version"`
	Kind         Kind                   `yaml:"kind"`
	Capabilities []string               `yaml:"capabilities"`
	Description  string                 `yaml:"description"`
	Author       string                 `yaml:"author"`
	Inputs       []string               `yaml:"inputs"`
	Outputs      []string               `yaml:"outputs"`
	Dependencies []string               `yaml:"dependencies"`
	ConfigSchema map[string]interface{} `yaml:"config_schema"`
}

var validKinds = map[Kind]bool{
	KindDetector: true, KindDiffer: true, KindTracer: true,
	KindReconstructor: true, KindInferencer: true, KindAnalyzer: true, KindReporter: true,
}

// Validate checks that the manifest carries every required field and a
// recognized kind.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest: id is required")
	}
	if !manifestIDPattern.MatchString(m.ID) {
		return fmt.Errorf("manifest: id %q must match [A-Za-z0-9_-]+", m.ID)
	}
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("manifest: version is required")
	}
	if m.Kind == "" {
		return fmt.Errorf("manifest: kind is required")
	}
	if !validKinds[m.Kind] {
		return fmt.Errorf("manifest: unknown kind %q", m.Kind)
	}
	if len(m.Capabilities) == 0 {
		return fmt.Errorf("manifest: capabilities must not be empty")
	}
	return nil
}

// SupportsCapability reports whether the manifest declares capability.
func (m *Manifest) SupportsCapability(capability string) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// LoadManifest reads and validates a plugin.yaml from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: read %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("manifest: %s: %w", path, err)
	}
	return &m, nil
}
