// Package graph runs the all-pairs pass that turns parsed concepts into a
// concept graph, and reads the finished graph: name resolution, reference
// traversal, clusters and distractor selection.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brunobiangulo/conceptgraph/concept"
)

// defaultConcurrency keeps the build sequential, which makes referencedBy
// order reproducible.
const defaultConcurrency = 1

// Result summarises one build pass.
type Result struct {
	Concepts   []*concept.Concept
	Weights    concept.Weights
	Pairs      int // ordered pairs visited
	Neighbors  int // neighbor entries added
	References int // reference edges added
	Undefined  int // pairs whose score was undefined (empty owner)
	Elapsed    time.Duration
}

// Builder runs the pairwise pass over a concept collection.
type Builder struct {
	weights     concept.Weights
	concurrency int
}

// NewBuilder creates a builder. concurrency <= 0 means sequential.
func NewBuilder(weights concept.Weights, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Builder{
		weights:     weights,
		concurrency: concurrency,
	}
}

// Build calls TryAddNeighbor and TryAddReference for every ordered pair
// (a, b) with a != b. A concept listed twice is never paired with itself.
// Call it once per collection: a second pass appends duplicate neighbors and
// references.
//
// Work is partitioned by the owning concept a, so each neighbor list is
// filled in collection order. The context is checked between partitions.
func (b *Builder) Build(ctx context.Context, concepts []*concept.Concept) (*Result, error) {
	if err := b.weights.Validate(); err != nil {
		return nil, fmt.Errorf("graph.Build: %w", err)
	}

	start := time.Now()
	slog.Info("graph: building", "concepts", len(concepts),
		"weights", b.weights.String(), "concurrency", b.concurrency)

	res := &Result{Concepts: concepts, Weights: b.weights}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i, a := range concepts {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p := b.pass(i, a, concepts)

			mu.Lock()
			res.Pairs += p.Pairs
			res.Neighbors += p.Neighbors
			res.References += p.References
			res.Undefined += p.Undefined
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("graph.Build: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("graph.Build: %w", err)
	}

	res.Elapsed = time.Since(start)
	buildSeconds.Observe(res.Elapsed.Seconds())
	slog.Info("graph: build complete",
		"concepts", len(concepts), "pairs", res.Pairs,
		"neighbors", res.Neighbors, "references", res.References,
		"undefined", res.Undefined,
		"elapsed", res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// pass processes every pair owned by a.
func (b *Builder) pass(i int, a *concept.Concept, concepts []*concept.Concept) Result {
	var p Result

	undefined := false
	if _, err := concept.Score(a, a, b.weights); errors.Is(err, concept.ErrSimilarityUndefined) {
		undefined = true
		slog.Debug("graph: concept has nothing to compare", "concept", a.Name())
	}

	for j, other := range concepts {
		if i == j || other == a {
			continue
		}
		p.Pairs++
		if undefined {
			p.Undefined++
		}
		if _, ok := concept.TryAddNeighbor(a, other, b.weights); ok {
			p.Neighbors++
		}
		if concept.TryAddReference(a, other) {
			p.References++
		}
	}

	pairsTotal.Add(float64(p.Pairs))
	neighborsTotal.Add(float64(p.Neighbors))
	referencesTotal.Add(float64(p.References))
	undefinedTotal.Add(float64(p.Undefined))
	return p
}
