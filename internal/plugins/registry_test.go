package plugins

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct{ id string }

func (f *fakeHandler) ID() string                              { return f.id }
func (f *fakeHandler) Name() string                             { return f.id }
func (f *fakeHandler) Version() string                          { return "1.0.0" }
func (f *fakeHandler) Capabilities() []string                   { return nil }
func (f *fakeHandler) SupportsCapability(capability string) bool { return false }
func (f *fakeHandler) Validate(ctx *JobContext) error           { return nil }
func (f *fakeHandler) Run(ctx *JobContext) (*Result, error)     { return &Result{Success: true}, nil }

var registryTestSeq int

func uniqueID(prefix string) string {
	registryTestSeq++
	return fmt.Sprintf("%s-%d", prefix, registryTestSeq)
}

func TestRegistry_GetInstanceCachesByEqualConfig(t *testing.T) {
	id := uniqueID("cached-plugin")
	Register(id, func(config map[string]interface{}) (Handler, error) {
		return &fakeHandler{id: id}, nil
	})

	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps(id))
	r := NewRegistry(d)

	a, err := r.GetInstance(id, map[string]interface{}{"threshold": 5})
	require.NoError(t, err)
	b, err := r.GetInstance(id, map[string]interface{}{"threshold": 5})
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestRegistry_GetInstanceDifferentConfigDifferentInstance(t *testing.T) {
	id := uniqueID("config-sensitive-plugin")
	Register(id, func(config map[string]interface{}) (Handler, error) {
		return &fakeHandler{id: id}, nil
	})

	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps(id))
	r := NewRegistry(d)

	a, err := r.GetInstance(id, map[string]interface{}{"threshold": 5})
	require.NoError(t, err)
	b, err := r.GetInstance(id, map[string]interface{}{"threshold": 9})
	require.NoError(t, err)
	assert.NotSame(t, a, b)
}

func TestRegistry_GetInstanceUnknownManifest(t *testing.T) {
	d := NewDiscovery()
	r := NewRegistry(d)

	_, err := r.GetInstance("does-not-exist", nil)
	require.Error(t, err)
	assert.IsType(t, ErrPluginNotFound{}, err)
}

func TestRegistry_GetInstanceManifestWithoutImplementation(t *testing.T) {
	id := uniqueID("manifest-only-plugin")
	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps(id))
	r := NewRegistry(d)

	_, err := r.GetInstance(id, nil)
	require.Error(t, err)
	assert.IsType(t, ErrNoImplementation{}, err)
}

func TestRegistry_FindByCapability(t *testing.T) {
	d := NewDiscovery()
	m1 := manifestWithDeps(uniqueID("scanner"))
	m1.Capabilities = []string{"static.scan"}
	m2 := manifestWithDeps(uniqueID("tracer"))
	m2.Capabilities = []string{"dynamic.trace"}
	d.RegisterManifest(m1)
	d.RegisterManifest(m2)
	r := NewRegistry(d)

	found := r.FindByCapability("static.scan")
	require.Len(t, found, 1)
	assert.Equal(t, m1.ID, found[0].ID)
}

func TestRegistry_GetManifest(t *testing.T) {
	id := uniqueID("known-plugin")
	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps(id))
	r := NewRegistry(d)

	m, ok := r.GetManifest(id)
	require.True(t, ok)
	assert.Equal(t, id, m.ID)

	_, ok = r.GetManifest("nope")
	assert.False(t, ok)
}

func TestRegistry_HasImplementation(t *testing.T) {
	withImpl := uniqueID("implemented-plugin")
	Register(withImpl, func(config map[string]interface{}) (Handler, error) {
		return &fakeHandler{id: withImpl}, nil
	})
	withoutImpl := uniqueID("manifest-only-plugin-2")

	d := NewDiscovery()
	d.RegisterManifest(manifestWithDeps(withImpl))
	d.RegisterManifest(manifestWithDeps(withoutImpl))
	r := NewRegistry(d)

	assert.True(t, r.HasImplementation(withImpl))
	assert.False(t, r.HasImplementation(withoutImpl))
}
