package graph

import (
	"strings"

	"github.com/brunobiangulo/conceptgraph/concept"
)

// Distractors returns up to n primary names of c's highest-ranked neighbors,
// for use as plausible wrong answers. c itself and repeated names are
// skipped.
func Distractors(c *concept.Concept, n int) []string {
	if n <= 0 {
		return []string{}
	}
	seen := map[string]bool{strings.ToLower(c.Name()): true}
	out := make([]string, 0, n)
	for _, nb := range c.Neighbors() {
		if nb.Concept == c {
			continue
		}
		name := nb.Concept.Name()
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
		if len(out) == n {
			break
		}
	}
	return out
}
