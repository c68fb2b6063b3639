package graph

import (
	"strings"

	"github.com/brunobiangulo/conceptgraph/concept"
)

// Index resolves concept names to concepts. References are stored by name,
// so they are resolved here, after the build. Lookups ignore case; when two
// concepts share a name the first one in collection order wins.
type Index struct {
	concepts []*concept.Concept
	byName   map[string]*concept.Concept
}

// NewIndex indexes every name of every concept.
func NewIndex(concepts []*concept.Concept) *Index {
	idx := &Index{
		concepts: concepts,
		byName:   make(map[string]*concept.Concept, len(concepts)),
	}
	for _, c := range concepts {
		for _, n := range c.Names {
			key := strings.ToLower(n)
			if _, ok := idx.byName[key]; !ok {
				idx.byName[key] = c
			}
		}
	}
	return idx
}

// Resolve returns the concept with the given name.
func (idx *Index) Resolve(name string) (*concept.Concept, bool) {
	c, ok := idx.byName[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Concepts returns the indexed collection in collection order.
func (idx *Index) Concepts() []*concept.Concept {
	return idx.concepts
}

