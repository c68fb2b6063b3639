// Package concept defines the Concept entity and the pairwise operations that
// turn a collection of concepts into a weighted graph: nearness scoring,
// ranked neighbor maintenance and name-based reference inference.
package concept

import (
	"strconv"
	"strings"
	"sync"

	"github.com/brunobiangulo/conceptgraph/lang"
	"github.com/brunobiangulo/conceptgraph/media"
)

// DefaultKind is the rendering classifier of a concept's primary name when
// the definition does not set one.
const DefaultKind = "text"

// Table is the view of a concept table needed for similarity scoring. Two
// tables are considered equal when their keys are equal.
type Table interface {
	Key() string
}

// Neighbor is another concept recorded against a concept with its nearness
// score.
type Neighbor struct {
	Concept *Concept
	Score   float64
}

// Concept is one teaching topic.
//
// The exported fields are set while parsing and must not change afterwards.
// The graph fields (neighbors and references) are only mutated through
// TryAddNeighbor and TryAddReference and are read through accessors that
// return copies.
type Concept struct {
	ID       int
	Language *lang.Language
	Context  []string
	Names    []string
	Kind     string
	Filename string
	Process  bool

	Tags   []string
	Texts  []string
	Images []media.Ref
	Tables []Table

	mu           sync.Mutex
	neighbors    []Neighbor
	referenceTo  []string
	referencedBy []string
}

// New creates a concept with the synthetic name "concept.<id>".
func New(id int, filename string, language *lang.Language, context []string) *Concept {
	if context == nil {
		context = []string{}
	}
	return &Concept{
		ID:       id,
		Language: language,
		Context:  context,
		Names:    []string{"concept." + strconv.Itoa(id)},
		Kind:     DefaultKind,
		Filename: filename,
	}
}

// Name returns the primary name.
func (c *Concept) Name() string {
	if len(c.Names) == 0 {
		return "concept." + strconv.Itoa(c.ID)
	}
	return c.Names[0]
}

// Text returns the first body text, or "..." when there is none.
func (c *Concept) Text() string {
	if len(c.Texts) == 0 {
		return "..."
	}
	return c.Texts[0]
}

// HasName reports whether s equals one of the concept names, ignoring case.
func (c *Concept) HasName(s string) bool {
	for _, n := range c.Names {
		if strings.EqualFold(n, s) {
			return true
		}
	}
	return false
}

// Neighbors returns the ranked neighbor list, highest score first.
func (c *Concept) Neighbors() []Neighbor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Neighbor, len(c.neighbors))
	copy(out, c.neighbors)
	return out
}

// ReferenceTo returns the names of the concepts this concept mentions.
func (c *Concept) ReferenceTo() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.referenceTo))
	copy(out, c.referenceTo)
	return out
}

// ReferencedBy returns the names of the concepts that mention this concept.
func (c *Concept) ReferencedBy() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.referencedBy))
	copy(out, c.referencedBy)
	return out
}

func (c *Concept) String() string {
	return c.Name()
}
