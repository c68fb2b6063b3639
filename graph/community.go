package graph

import (
	"log/slog"
	"slices"

	"github.com/brunobiangulo/conceptgraph/concept"
)

// minComponentSplit is the minimum component size eligible for further
// modularity-based splitting.
const minComponentSplit = 6

// maxModularityNodes caps the node count for the modularity optimisation.
// Larger components are kept as level-0 only.
const maxModularityNodes = 200

// Cluster is a group of related concepts. Level-0 clusters are connected
// components of the graph; level-1 clusters split large components.
type Cluster struct {
	Level   int      `json:"level"`
	Members []string `json:"members"` // primary names, in collection order
}

type edge struct {
	to     int
	weight float64
}

// Clusters groups concepts by treating neighbor and reference edges as
// undirected. Neighbor edges weigh score/100, reference edges 1. Components
// are returned in order of their first member, each followed by its
// sub-clusters.
func Clusters(concepts []*concept.Concept) []Cluster {
	if len(concepts) == 0 {
		return nil
	}

	idx := NewIndex(concepts)
	pos := make(map[*concept.Concept]int, len(concepts))
	for i, c := range concepts {
		pos[c] = i
	}

	adj := make([][]edge, len(concepts))
	totalWeight := 0.0
	link := func(si, ti int, w float64) {
		if si == ti {
			return
		}
		adj[si] = append(adj[si], edge{to: ti, weight: w})
		adj[ti] = append(adj[ti], edge{to: si, weight: w})
		totalWeight += w
	}
	for i, c := range concepts {
		for _, n := range c.Neighbors() {
			if j, ok := pos[n.Concept]; ok {
				link(i, j, n.Score/100)
			}
		}
		for _, name := range c.ReferenceTo() {
			if t, ok := idx.Resolve(name); ok {
				link(i, pos[t], 1)
			}
		}
	}

	// Level 0: connected components via BFS.
	visited := make([]bool, len(concepts))
	var components [][]int
	for i := range concepts {
		if visited[i] {
			continue
		}
		var comp []int
		queue := []int{i}
		visited[i] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			comp = append(comp, node)
			for _, e := range adj[node] {
				if !visited[e.to] {
					visited[e.to] = true
					queue = append(queue, e.to)
				}
			}
		}
		slices.Sort(comp)
		components = append(components, comp)
	}

	var clusters []Cluster
	for _, comp := range components {
		clusters = append(clusters, Cluster{Level: 0, Members: memberNames(comp, concepts)})

		// Level 1: modularity-based splitting for large components.
		if len(comp) >= minComponentSplit && len(comp) <= maxModularityNodes && totalWeight > 0 {
			subs := modularitySplit(comp, adj, totalWeight)
			if len(subs) <= 1 {
				continue
			}
			for _, sub := range subs {
				clusters = append(clusters, Cluster{Level: 1, Members: memberNames(sub, concepts)})
			}
		}
	}

	slog.Debug("graph: clusters found", "components", len(components), "clusters", len(clusters))
	return clusters
}

func memberNames(comp []int, concepts []*concept.Concept) []string {
	names := make([]string, len(comp))
	for i, idx := range comp {
		names[i] = concepts[idx].Name()
	}
	return names
}

// modularitySplit applies a greedy modularity optimisation (simplified Louvain)
// to split a connected component. If the split does not improve modularity
// the component is returned as-is. Groups come back sorted by their first
// member so the output is deterministic.
func modularitySplit(comp []int, adj [][]edge, totalWeight float64) [][]int {
	n := len(comp)
	if n < minComponentSplit {
		return [][]int{comp}
	}

	localIdx := make(map[int]int, n)
	for i, node := range comp {
		localIdx[node] = i
	}

	// community[i] is the community label for local node i.
	community := make([]int, n)
	for i := range community {
		community[i] = i
	}

	strength := make([]float64, n)
	for i, node := range comp {
		for _, e := range adj[node] {
			if _, ok := localIdx[e.to]; ok {
				strength[i] += e.weight
			}
		}
	}

	m2 := 2.0 * totalWeight
	commStrength := make([]float64, n)
	for i := range comp {
		commStrength[community[i]] += strength[i]
	}

	const maxPasses = 20
	for pass := 0; pass < maxPasses; pass++ {
		moved := false
		for i, node := range comp {
			commWeights := make([]float64, n)
			var touched []int
			for _, e := range adj[node] {
				li, ok := localIdx[e.to]
				if !ok {
					continue
				}
				c := community[li]
				if commWeights[c] == 0 {
					touched = append(touched, c)
				}
				commWeights[c] += e.weight
			}

			current := community[i]
			ki := strength[i]
			// i's own strength is excluded from its current community.
			removeDelta := commWeights[current]/m2 - ((commStrength[current]-ki)*ki)/(m2*m2)

			best, bestGain := current, 0.0
			for _, c := range touched {
				if c == current {
					continue
				}
				gain := (commWeights[c]/m2 - (commStrength[c]*ki)/(m2*m2)) - removeDelta
				if gain > bestGain {
					best, bestGain = c, gain
				}
			}

			if best != current {
				commStrength[current] -= ki
				commStrength[best] += ki
				community[i] = best
				moved = true
			}
		}
		if !moved {
			break
		}
	}

	groups := make(map[int][]int)
	var labels []int
	for i, node := range comp {
		c := community[i]
		if _, ok := groups[c]; !ok {
			labels = append(labels, c)
		}
		groups[c] = append(groups[c], node)
	}

	result := make([][]int, 0, len(labels))
	for _, c := range labels {
		result = append(result, groups[c])
	}
	return result
}
