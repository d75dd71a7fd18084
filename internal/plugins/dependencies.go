package plugins

// ResolveDependencies returns id's transitive dependencies in an order
// safe to instantiate them in (dependencies before dependents). Unlike
// the recursive, non-cycle-safe walk this was modeled on, a cycle is
// detected and returned as ErrCyclicDependency instead of recursing
// forever.
func (r *Registry) ResolveDependencies(id string) ([]string, error) {
	var order []string
	visiting := map[string]bool{}
	visited := map[string]bool{}
	var path []string

	var visit func(string) error
	visit = func(current string) error {
		if visited[current] {
			return nil
		}
		if visiting[current] {
			return ErrCyclicDependency{Path: append(append([]string{}, path...), current)}
		}
		visiting[current] = true
		path = append(path, current)

		manifest, ok := r.discovery.Get(current)
		if ok {
			for _, dep := range manifest.Dependencies {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		path = path[:len(path)-1]
		visiting[current] = false
		visited[current] = true
		order = append(order, current)
		return nil
	}

	if err := visit(id); err != nil {
		return nil, err
	}

	// drop id itself; callers want its dependencies, not the plugin.
	deps := make([]string, 0, len(order))
	for _, entry := range order {
		if entry != id {
			deps = append(deps, entry)
		}
	}
	return deps, nil
}
