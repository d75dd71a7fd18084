package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestWithDeps(id string, deps ...string) *Manifest {
	return &Manifest{
		ID:           id,
		Name:         id,
		Version:      "1.0.0",
		Kind:         KindDetector,
		Capabilities: []string{"test.scan"},
		Dependencies: deps,
	}
}

func TestResolveDependencies_OrdersDepsBeforeDependents(t *testing.T) {
	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps("a"))
	d.RegisterManifest(manifestWithDeps("b", "a"))
	d.RegisterManifest(manifestWithDeps("c", "b"))
	r := NewRegistry(d)

	deps, err := r.ResolveDependencies("c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, deps)
}

func TestResolveDependencies_NoDependencies(t *testing.T) {
	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps("solo"))
	r := NewRegistry(d)

	deps, err := r.ResolveDependencies("solo")
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestResolveDependencies_DiamondDependencyDeduped(t *testing.T) {
	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps("base"))
	d.RegisterManifest(manifestWithDeps("left", "base"))
	d.RegisterManifest(manifestWithDeps("right", "base"))
	d.RegisterManifest(manifestWithDeps("top", "left", "right"))
	r := NewRegistry(d)

	deps, err := r.ResolveDependencies("top")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"base", "left", "right"}, deps)
}

func TestResolveDependencies_CycleIsDetected(t *testing.T) {
	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps("a", "b"))
	d.RegisterManifest(manifestWithDeps("b", "a"))
	r := NewRegistry(d)

	_, err := r.ResolveDependencies("a")
	require.Error(t, err)
	assert.IsType(t, ErrCyclicDependency{}, err)
}

func TestResolveDependencies_UndiscoveredDependencyIsStillListed(t *testing.T) {
	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps("lonely", "ghost"))
	r := NewRegistry(d)

	deps, err := r.ResolveDependencies("lonely")
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, deps)
}
