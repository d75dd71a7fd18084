// Package plugins - registry.go
//
// Implements the global factory registry builtin plugins use to
// register themselves at init() time, plus the Registry type that
// layers manifest discovery and per-config instance caching on top of
// it.
//
// # Auto-Registration Pattern
//
// Builtin plugins register themselves using Go's init() function:
//
//	func init() {
//	    plugins.Register("gate", NewGatePlugin)
//	}
//
// cmd/api and cmd/worker blank-import every builtin plugin package so
// these init() functions run before the registry is first queried.
//
// # Known Limitations
//
//   - No unregister: once registered, a factory can't be removed.
//   - Build-time only: a factory can't be added at runtime, only a
//     manifest (see discovery.go) can.
package plugins

import (
	"sync"

	"github.com/aetherframe/orchestrator/internal/logger"
)

var globalRegistry = &globalFactoryRegistry{factories: make(map[string]Factory)}

type globalFactoryRegistry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// Register registers a plugin factory globally. Called from a plugin
// package's init().
func Register(id string, factory Factory) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if _, exists := globalRegistry.factories[id]; exists {
		logger.Plugins().Warn().Str("plugin_id", id).Msg("factory already registered, overwriting")
	}
	globalRegistry.factories[id] = factory
	logger.Plugins().Debug().Str("plugin_id", id).Msg("factory auto-registered")
}

func getFactory(id string) (Factory, bool) {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	f, ok := globalRegistry.factories[id]
	return f, ok
}

func listFactoryIDs() []string {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()
	ids := make([]string, 0, len(globalRegistry.factories))
	for id := range globalRegistry.factories {
		ids = append(ids, id)
	}
	return ids
}

// Registry is the Plugin Registry component: it combines discovered
// manifests with the global factory registry, caches instances by
// (id, config), and resolves capabilities and dependencies.
type Registry struct {
	discovery *Discovery

	mu        sync.Mutex
	instances map[string]Handler
}

// NewRegistry builds a Registry backed by the given Discovery.
func NewRegistry(discovery *Discovery) *Registry {
	return &Registry{
		discovery: discovery,
		instances: make(map[string]Handler),
	}
}

// Manifests returns every manifest currently discovered.
func (r *Registry) Manifests() []*Manifest {
	return r.discovery.List()
}

// GetManifest looks up a single discovered manifest by id.
func (r *Registry) GetManifest(id string) (*Manifest, bool) {
	return r.discovery.Get(id)
}

// GetInstance returns a cached Handler for (id, config), constructing
// one via the global factory registry on first use. Two calls with an
// equal config return the same instance.
func (r *Registry) GetInstance(id string, config map[string]interface{}) (Handler, error) {
	manifest, ok := r.discovery.Get(id)
	if !ok {
		return nil, ErrPluginNotFound{ID: id}
	}

	key := id + ":" + hashConfig(config)

	r.mu.Lock()
	defer r.mu.Unlock()

	if inst, ok := r.instances[key]; ok {
		return inst, nil
	}

	factory, ok := getFactory(manifest.ID)
	if !ok {
		return nil, ErrNoImplementation{ID: id}
	}

	inst, err := factory(config)
	if err != nil {
		return nil, err
	}
	r.instances[key] = inst
	return inst, nil
}

// HasImplementation reports whether id has both a discovered manifest
// and a registered Go factory able to run it.
func (r *Registry) HasImplementation(id string) bool {
	return r.discovery.HasImplementation(id)
}

// FindByCapability returns every discovered manifest that declares the
// given capability.
func (r *Registry) FindByCapability(capability string) []*Manifest {
	var out []*Manifest
	for _, m := range r.discovery.List() {
		if m.SupportsCapability(capability) {
			out = append(out, m)
		}
	}
	return out
}
