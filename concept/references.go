package concept

import "strings"

// Mentions counts how often a refers to b: each tag of a equal to a name of b,
// plus each whitespace-separated word of a's texts equal to a name of b.
// Comparison ignores case.
func Mentions(a, b *Concept) int {
	n := 0
	for _, tag := range a.Tags {
		if b.HasName(tag) {
			n++
		}
	}
	for _, text := range a.Texts {
		for _, word := range strings.Fields(text) {
			if b.HasName(word) {
				n++
			}
		}
	}
	return n
}

// TryAddReference records a directed "a mentions b" edge by name: b's
// primary name is appended to a's references and a's primary name to b's
// back-references. One call adds at most one edge regardless of how many
// words matched. Repeated calls are not deduplicated.
func TryAddReference(a, b *Concept) bool {
	if Mentions(a, b) == 0 {
		return false
	}

	a.mu.Lock()
	a.referenceTo = append(a.referenceTo, b.Name())
	a.mu.Unlock()

	b.mu.Lock()
	b.referencedBy = append(b.referencedBy, a.Name())
	b.mu.Unlock()
	return true
}
