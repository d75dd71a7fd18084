package plugins

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validManifest() Manifest {
	return Manifest{
		ID:           "static-scan",
		Name:         "Static Scanner",
		Version:      "1.0.0",
		Kind:         KindDetector,
		Capabilities: []string{"static.scan"},
	}
}

func TestManifest_Validate(t *testing.T) {
	t.Run("valid manifest passes", func(t *testing.T) {
		m := validManifest()
		assert.NoError(t, m.Validate())
	})

	t.Run("empty id rejected", func(t *testing.T) {
		m := validManifest()
		m.ID = ""
		assert.Error(t, m.Validate())
	})

	t.Run("id with invalid characters rejected", func(t *testing.T) {
		m := validManifest()
		m.ID = "static scan!"
		assert.Error(t, m.Validate())
	})

	t.Run("id with dots and slashes rejected", func(t *testing.T) {
		m := validManifest()
		m.ID = "../etc/passwd"
		assert.Error(t, m.Validate())
	})

	t.Run("empty name rejected", func(t *testing.T) {
		m := validManifest()
		m.Name = ""
		assert.Error(t, m.Validate())
	})

	t.Run("empty version rejected", func(t *testing.T) {
		m := validManifest()
		m.Version = ""
		assert.Error(t, m.Validate())
	})

	t.Run("empty kind rejected", func(t *testing.T) {
		m := validManifest()
		m.Kind = ""
		assert.Error(t, m.Validate())
	})

	t.Run("unknown kind rejected", func(t *testing.T) {
		m := validManifest()
		m.Kind = Kind("sorcerer")
		assert.Error(t, m.Validate())
	})

	t.Run("empty capabilities rejected", func(t *testing.T) {
		m := validManifest()
		m.Capabilities = nil
		assert.Error(t, m.Validate())
	})
}

func TestManifest_SupportsCapability(t *testing.T) {
	m := validManifest()
	m.Capabilities = []string{"static.scan", "static.entropy"}
	assert.True(t, m.SupportsCapability("static.entropy"))
	assert.False(t, m.SupportsCapability("dynamic.trace"))
}

func TestLoadManifest(t *testing.T) {
	t.Run("loads a valid file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "plugin.yaml")
		body := "id: static-scan\nname: Static Scanner\nversion: 1.0.0\nkind: detector\ncapabilities:\n  - static.scan\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		m, err := LoadManifest(path)
		require.NoError(t, err)
		assert.Equal(t, "static-scan", m.ID)
		assert.Equal(t, KindDetector, m.Kind)
	})

	t.Run("rejects an invalid file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "plugin.yaml")
		body := "id: static-scan\nname: Static Scanner\nversion: 1.0.0\nkind: detector\ncapabilities: []\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		_, err := LoadManifest(path)
		assert.Error(t, err)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := LoadManifest("/nonexistent/plugin.yaml")
		assert.Error(t, err)
	})
}
