package concept

import (
	"cmp"
	"slices"
)

// TryAddNeighbor scores b against a and, when the score is positive, records
// b in a's neighbor list. The list stays sorted by descending score; equal
// scores keep insertion order. Only a is mutated: call TryAddNeighbor(b, a, w)
// to populate b, which will usually yield a different score.
func TryAddNeighbor(a, b *Concept, w Weights) (float64, bool) {
	score := Nearness(a, b, w)
	if score == 0 {
		return 0, false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.neighbors = append(a.neighbors, Neighbor{Concept: b, Score: score})
	slices.SortStableFunc(a.neighbors, func(x, y Neighbor) int {
		return cmp.Compare(y.Score, x.Score)
	})
	return score, true
}
