package graph

import "github.com/brunobiangulo/conceptgraph/concept"

// Visit is a concept reached by Traverse and its hop distance from the
// nearest seed.
type Visit struct {
	Concept *concept.Concept
	Depth   int
}

// TraversalResult contains the concepts reached from the seeds, in discovery
// order, and the seed names that did not resolve.
type TraversalResult struct {
	Visits  []Visit
	Missing []string
}

// Traverse follows reference edges in both directions (reference_to and
// referenced_by) from the seed names, breadth first, up to maxDepth hops.
// Seeds are depth 0. Edge names that do not resolve are skipped.
func Traverse(idx *Index, seeds []string, maxDepth int) *TraversalResult {
	res := &TraversalResult{}
	if len(seeds) == 0 || maxDepth < 0 {
		return res
	}

	visited := make(map[*concept.Concept]bool)
	var queue []*concept.Concept
	for _, name := range seeds {
		c, ok := idx.Resolve(name)
		if !ok {
			res.Missing = append(res.Missing, name)
			continue
		}
		if !visited[c] {
			visited[c] = true
			queue = append(queue, c)
			res.Visits = append(res.Visits, Visit{Concept: c, Depth: 0})
		}
	}

	for depth := 1; depth <= maxDepth && len(queue) > 0; depth++ {
		var next []*concept.Concept
		for _, c := range queue {
			names := append(c.ReferenceTo(), c.ReferencedBy()...)
			for _, name := range names {
				n, ok := idx.Resolve(name)
				if !ok || visited[n] {
					continue
				}
				visited[n] = true
				next = append(next, n)
				res.Visits = append(res.Visits, Visit{Concept: n, Depth: depth})
			}
		}
		queue = next
	}
	return res
}
