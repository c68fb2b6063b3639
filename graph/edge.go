package graph

import "github.com/brunobiangulo/conceptgraph/concept"

// Edge kinds.
const (
	EdgeNeighbor  = "neighbor"
	EdgeReference = "reference"
)

// Edge is one directed edge of a built graph, addressed by primary names.
// Neighbor edges carry the nearness score; reference edges have weight 1.
type Edge struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Kind   string  `json:"kind"`
	Weight float64 `json:"weight"`
}

// Edges lists the neighbor and reference edges of every concept, owner by
// owner in collection order.
func Edges(concepts []*concept.Concept) []Edge {
	var out []Edge
	for _, c := range concepts {
		for _, n := range c.Neighbors() {
			out = append(out, Edge{From: c.Name(), To: n.Concept.Name(), Kind: EdgeNeighbor, Weight: n.Score})
		}
		for _, ref := range c.ReferenceTo() {
			out = append(out, Edge{From: c.Name(), To: ref, Kind: EdgeReference, Weight: 1})
		}
	}
	return out
}
