package concept

import "sync/atomic"

// Registry hands out concept identifiers. Identifiers start at 1, strictly
// increase and are never reused, even when building the concept fails
// afterwards. A Registry is scoped to one run; create a new one instead of
// resetting it.
type Registry struct {
	last atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Next allocates the next identifier. Safe for concurrent use.
func (r *Registry) Next() int {
	return int(r.last.Add(1))
}

// Last returns the most recently allocated identifier, or 0.
func (r *Registry) Last() int {
	return int(r.last.Load())
}
