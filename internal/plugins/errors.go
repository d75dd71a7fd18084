package plugins

import "fmt"

// ErrPluginNotFound means no manifest with this id has been discovered.
type ErrPluginNotFound struct{ ID string }

func (e ErrPluginNotFound) Error() string {
	return fmt.Sprintf("plugins: %q not found", e.ID)
}

// ErrNoImplementation means a manifest was discovered but no builtin Go
// factory registered itself under that id — the manifest describes a
// plugin this binary does not carry an implementation for.
type ErrNoImplementation struct{ ID string }

func (e ErrNoImplementation) Error() string {
	return fmt.Sprintf("plugins: %q has no registered implementation", e.ID)
}

// ErrCyclicDependency is returned by ResolveDependencies when a
// plugin's declared dependencies form a cycle. The Python original this
// engine was modeled on left a cycle as an infinite loop; this
// implementation detects it and surfaces it as a validation error
// instead.
type ErrCyclicDependency struct{ Path []string }

func (e ErrCyclicDependency) Error() string {
	return fmt.Sprintf("plugins: cyclic dependency: %v", e.Path)
}
