package graph

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brunobiangulo/conceptgraph/concept"
)

type keyTable string

func (k keyTable) Key() string { return string(k) }

var nextTestID int

func newConcept(name string, context, tags []string) *concept.Concept {
	nextTestID++
	c := concept.New(nextTestID, "test.xml", nil, context)
	c.Names = []string{name}
	c.Tags = tags
	return c
}

func neighborNames(c *concept.Concept) []string {
	var out []string
	for _, n := range c.Neighbors() {
		out = append(out, n.Concept.Name())
	}
	return out
}

func TestBuildAsymmetry(t *testing.T) {
	a := newConcept("a", []string{"x", "y"}, []string{"cat", "dog"})
	b := newConcept("b", []string{"x"}, []string{"dog"})

	res, err := NewBuilder(concept.DefaultWeights(), 1).Build(context.Background(), []*concept.Concept{a, b})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Pairs)
	assert.Equal(t, 2, res.Neighbors)
	assert.Equal(t, 0, res.Undefined)

	require.Len(t, a.Neighbors(), 1)
	assert.Equal(t, b, a.Neighbors()[0].Concept)
	assert.InDelta(t, 50.0, a.Neighbors()[0].Score, 1e-9)

	require.Len(t, b.Neighbors(), 1)
	assert.InDelta(t, 100.0, b.Neighbors()[0].Score, 1e-9)
}

func TestBuildZeroScore(t *testing.T) {
	a := newConcept("a", []string{"x"}, []string{"cat"})
	b := newConcept("b", []string{"y"}, []string{"dog"})

	res, err := NewBuilder(concept.DefaultWeights(), 1).Build(context.Background(), []*concept.Concept{a, b})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Neighbors)
	assert.Empty(t, a.Neighbors())
	assert.Empty(t, b.Neighbors())
}

func TestBuildUndefinedOwner(t *testing.T) {
	empty := newConcept("empty", nil, nil)
	b := newConcept("b", []string{"x"}, []string{"dog"})
	c := newConcept("c", []string{"x"}, []string{"cat"})

	res, err := NewBuilder(concept.DefaultWeights(), 1).Build(context.Background(), []*concept.Concept{empty, b, c})
	require.NoError(t, err)

	assert.Equal(t, 6, res.Pairs)
	assert.Equal(t, 2, res.Undefined)
	assert.Empty(t, empty.Neighbors())
	assert.Equal(t, []string{"c"}, neighborNames(b))
}

func TestBuildReferences(t *testing.T) {
	x := newConcept("loop", []string{"p"}, []string{"recursion"})
	y := newConcept("recursion", []string{"p"}, []string{"function"})
	y.Texts = []string{"unlike a loop it calls itself"}

	res, err := NewBuilder(concept.DefaultWeights(), 1).Build(context.Background(), []*concept.Concept{x, y})
	require.NoError(t, err)

	assert.Equal(t, 2, res.References)
	assert.Equal(t, []string{"recursion"}, x.ReferenceTo())
	assert.Equal(t, []string{"recursion"}, x.ReferencedBy())
	assert.Equal(t, []string{"loop"}, y.ReferenceTo())
	assert.Equal(t, []string{"loop"}, y.ReferencedBy())
}

func TestBuildInvalidWeights(t *testing.T) {
	a := newConcept("a", []string{"x"}, nil)
	_, err := NewBuilder(concept.Weights{Context: -1, Tag: 1, Table: 1}, 1).Build(context.Background(), []*concept.Concept{a})
	assert.ErrorIs(t, err, concept.ErrInvalidWeights)
}

func TestBuildNonFiniteWeights(t *testing.T) {
	a := newConcept("a", []string{"x"}, []string{"t"})
	b := newConcept("b", []string{"x"}, []string{"t"})
	for _, w := range []concept.Weights{
		{Context: math.Inf(1), Tag: 1, Table: 1},
		{Context: 1, Tag: math.NaN(), Table: 1},
	} {
		_, err := NewBuilder(w, 1).Build(context.Background(), []*concept.Concept{a, b})
		assert.ErrorIs(t, err, concept.ErrInvalidWeights)
	}
	assert.Empty(t, a.Neighbors())
	assert.Empty(t, b.Neighbors())
}

func TestBuildSkipsRepeatedConcept(t *testing.T) {
	a := newConcept("a", []string{"x"}, []string{"a"})
	b := newConcept("b", []string{"x"}, nil)

	res, err := NewBuilder(concept.DefaultWeights(), 1).Build(context.Background(), []*concept.Concept{a, b, a})
	require.NoError(t, err)

	for _, n := range a.Neighbors() {
		assert.NotSame(t, a, n.Concept)
	}
	assert.Equal(t, []string{"b", "b"}, neighborNames(a))
	assert.Empty(t, a.ReferenceTo())
	assert.Equal(t, 4, res.Pairs)
}

func TestBuildCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := newConcept("a", []string{"x"}, nil)
	b := newConcept("b", []string{"x"}, nil)
	_, err := NewBuilder(concept.DefaultWeights(), 2).Build(ctx, []*concept.Concept{a, b})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildEmpty(t *testing.T) {
	res, err := NewBuilder(concept.DefaultWeights(), 4).Build(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Pairs)
}

// randomCollection builds a deterministic pseudo-random concept set where
// tags sometimes name other concepts.
func randomCollection(seed int64, n int) []*concept.Concept {
	rng := rand.New(rand.NewSource(seed))
	pool := []string{"a", "b", "c", "d", "e", "f"}
	pick := func(k int) []string {
		out := make([]string, 0, k)
		for i := 0; i < k; i++ {
			out = append(out, pool[rng.Intn(len(pool))])
		}
		return out
	}

	concepts := make([]*concept.Concept, n)
	for i := range concepts {
		tags := pick(1 + rng.Intn(3))
		if rng.Intn(3) == 0 {
			tags = append(tags, fmt.Sprintf("c%d", rng.Intn(n)))
		}
		c := newConcept(fmt.Sprintf("c%d", i), pick(rng.Intn(3)), tags)
		if rng.Intn(4) == 0 {
			c.Tables = []concept.Table{keyTable(pool[rng.Intn(2)])}
		}
		concepts[i] = c
	}
	return concepts
}

func TestBuildProperties(t *testing.T) {
	for _, workers := range []int{1, 8} {
		t.Run(fmt.Sprintf("workers_%d", workers), func(t *testing.T) {
			concepts := randomCollection(42, 40)
			_, err := NewBuilder(concept.Weights{Context: 1, Tag: 2, Table: 0.5}, workers).Build(context.Background(), concepts)
			require.NoError(t, err)

			for _, c := range concepts {
				ns := c.Neighbors()
				for i := range ns {
					assert.NotEqual(t, c, ns[i].Concept)
					assert.Greater(t, ns[i].Score, 0.0)
					assert.LessOrEqual(t, ns[i].Score, 100.0)
					if i > 0 {
						assert.GreaterOrEqual(t, ns[i-1].Score, ns[i].Score, "%s neighbors unsorted", c.Name())
					}
				}
			}

			// b in a.reference_to exactly as often as a in b.referenced_by.
			idx := NewIndex(concepts)
			for _, a := range concepts {
				for _, name := range a.ReferenceTo() {
					b, ok := idx.Resolve(name)
					require.True(t, ok)
					assert.Equal(t, count(a.ReferenceTo(), b.Name()), count(b.ReferencedBy(), a.Name()))
				}
			}
		})
	}
}

func TestBuildConcurrencyKeepsNeighborOrder(t *testing.T) {
	seq := randomCollection(7, 30)
	par := randomCollection(7, 30)

	_, err := NewBuilder(concept.DefaultWeights(), 1).Build(context.Background(), seq)
	require.NoError(t, err)
	_, err = NewBuilder(concept.DefaultWeights(), 6).Build(context.Background(), par)
	require.NoError(t, err)

	for i := range seq {
		assert.Equal(t, neighborNames(seq[i]), neighborNames(par[i]))
		assert.Equal(t, seq[i].ReferenceTo(), par[i].ReferenceTo())
		assert.ElementsMatch(t, seq[i].ReferencedBy(), par[i].ReferencedBy())
	}
}

func count(xs []string, s string) int {
	n := 0
	for _, x := range xs {
		if x == s {
			n++
		}
	}
	return n
}
