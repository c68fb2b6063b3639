package concept

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keyTable string

func (k keyTable) Key() string { return string(k) }

func newConcept(id int, name string, context, tags []string) *Concept {
	c := New(id, "test.xml", nil, context)
	if name != "" {
		c.Names = []string{name}
	}
	c.Tags = tags
	return c
}

// ---------------------------------------------------------------------------
// Concept / Registry
// ---------------------------------------------------------------------------

func TestNewDefaults(t *testing.T) {
	c := New(7, "maps/ruby.xml", nil, nil)
	assert.Equal(t, "concept.7", c.Name())
	assert.Equal(t, DefaultKind, c.Kind)
	assert.False(t, c.Process)
	assert.NotNil(t, c.Context)
	assert.Equal(t, "...", c.Text())
	assert.Empty(t, c.Neighbors())
	assert.Empty(t, c.ReferenceTo())
	assert.Empty(t, c.ReferencedBy())
}

func TestHasNameIgnoresCase(t *testing.T) {
	c := newConcept(1, "Recursion", nil, nil)
	c.Names = append(c.Names, "recursive function")
	assert.True(t, c.HasName("recursion"))
	assert.True(t, c.HasName("RECURSIVE FUNCTION"))
	assert.False(t, c.HasName("iteration"))
}

func TestRegistryStartsAtOneAndIncreases(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Last())
	prev := 0
	for i := 0; i < 10; i++ {
		id := r.Next()
		assert.Greater(t, id, prev)
		prev = id
	}
	assert.Equal(t, 10, r.Last())
}

func TestRegistryConcurrentUnique(t *testing.T) {
	r := NewRegistry()
	const workers, per = 8, 250

	var mu sync.Mutex
	seen := make(map[int]bool)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := r.Next()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, workers*per)
	for id := 1; id <= workers*per; id++ {
		assert.True(t, seen[id], "missing id %d", id)
	}
}

// ---------------------------------------------------------------------------
// Weights
// ---------------------------------------------------------------------------

func TestParseWeights(t *testing.T) {
	w, err := ParseWeights("1, 0.5,2")
	require.NoError(t, err)
	assert.Equal(t, Weights{Context: 1, Tag: 0.5, Table: 2}, w)
	assert.Equal(t, "1,0.5,2", w.String())

	for _, bad := range []string{"", "1,1", "1,x,1", "1,-1,1", "1,1,1,1", "NaN,1,1", "1,Inf,1", "1,1,-Inf"} {
		_, err := ParseWeights(bad)
		assert.ErrorIs(t, err, ErrInvalidWeights, "input %q", bad)
	}
}

// ---------------------------------------------------------------------------
// Similarity
// ---------------------------------------------------------------------------

func TestScoreAsymmetry(t *testing.T) {
	a := newConcept(1, "a", []string{"x", "y"}, []string{"cat", "dog"})
	b := newConcept(2, "b", []string{"x"}, []string{"dog"})
	w := DefaultWeights()

	ab, err := Score(a, b, w)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, ab, 1e-9)

	ba, err := Score(b, a, w)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, ba, 1e-9)
}

func TestScoreWeighted(t *testing.T) {
	a := newConcept(1, "a", []string{"x"}, []string{"cat", "dog"})
	a.Tables = []Table{keyTable("sizes")}
	b := newConcept(2, "b", []string{"z"}, []string{"dog"})
	b.Tables = []Table{keyTable("sizes"), keyTable("colors")}

	// alike = 0*2 + 1*1 + 1*3 = 4, denom = 1*2 + 2*1 + 1*3 = 7
	s, err := Score(a, b, Weights{Context: 2, Tag: 1, Table: 3})
	require.NoError(t, err)
	assert.InDelta(t, 400.0/7.0, s, 1e-9)
}

func TestScoreUndefined(t *testing.T) {
	empty := newConcept(1, "empty", nil, nil)
	other := newConcept(2, "other", []string{"x"}, []string{"dog"})

	_, err := Score(empty, other, DefaultWeights())
	assert.ErrorIs(t, err, ErrSimilarityUndefined)
	assert.Zero(t, Nearness(empty, other, DefaultWeights()))

	// Zero weights on the populated dimensions are undefined too.
	_, err = Score(other, empty, Weights{Table: 1})
	assert.ErrorIs(t, err, ErrSimilarityUndefined)
}

func TestScoreCountsDuplicateTags(t *testing.T) {
	a := newConcept(1, "a", nil, []string{"dog", "dog", "cat"})
	b := newConcept(2, "b", nil, []string{"dog"})
	s, err := Score(a, b, DefaultWeights())
	require.NoError(t, err)
	assert.InDelta(t, 200.0/3.0, s, 1e-9)
}

func TestScoreRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"a", "b", "c", "d", "e", "f"}
	pick := func() []string {
		n := 1 + rng.Intn(4)
		out := make([]string, n)
		for i := range out {
			out[i] = vocab[rng.Intn(len(vocab))]
		}
		return out
	}

	for i := 0; i < 500; i++ {
		a := newConcept(1, "a", pick(), pick())
		b := newConcept(2, "b", pick(), pick())
		w := Weights{Context: rng.Float64() * 3, Tag: rng.Float64() * 3, Table: rng.Float64()}
		s, err := Score(a, b, w)
		if err != nil {
			continue
		}
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 100.0+1e-9)
	}
}

// ---------------------------------------------------------------------------
// Neighbors
// ---------------------------------------------------------------------------

func TestTryAddNeighborZeroScoreIsNoop(t *testing.T) {
	a := newConcept(1, "a", []string{"x"}, []string{"cat"})
	b := newConcept(2, "b", []string{"y"}, []string{"dog"})

	_, added := TryAddNeighbor(a, b, DefaultWeights())
	assert.False(t, added)
	_, added = TryAddNeighbor(b, a, DefaultWeights())
	assert.False(t, added)
	assert.Empty(t, a.Neighbors())
	assert.Empty(t, b.Neighbors())
}

func TestTryAddNeighborMutatesOnlyFirst(t *testing.T) {
	a := newConcept(1, "a", []string{"x", "y"}, []string{"cat", "dog"})
	b := newConcept(2, "b", []string{"x"}, []string{"dog"})

	score, added := TryAddNeighbor(a, b, DefaultWeights())
	require.True(t, added)
	assert.InDelta(t, 50.0, score, 1e-9)
	require.Len(t, a.Neighbors(), 1)
	assert.Same(t, b, a.Neighbors()[0].Concept)
	assert.Empty(t, b.Neighbors())
}

func TestTryAddNeighborSortedStable(t *testing.T) {
	a := newConcept(1, "a", nil, []string{"t1", "t2", "t3", "t4"})
	low := newConcept(2, "low", nil, []string{"t1"})
	high := newConcept(3, "high", nil, []string{"t1", "t2", "t3"})
	tieFirst := newConcept(4, "tie-first", nil, []string{"t1", "t2"})
	tieSecond := newConcept(5, "tie-second", nil, []string{"t3", "t4"})

	for _, b := range []*Concept{low, tieFirst, high, tieSecond} {
		TryAddNeighbor(a, b, DefaultWeights())
	}

	got := a.Neighbors()
	require.Len(t, got, 4)
	names := make([]string, len(got))
	for i, n := range got {
		names[i] = n.Concept.Name()
	}
	assert.Equal(t, []string{"high", "tie-first", "tie-second", "low"}, names)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestNeighborsReturnsCopy(t *testing.T) {
	a := newConcept(1, "a", nil, []string{"t"})
	b := newConcept(2, "b", nil, []string{"t"})
	TryAddNeighbor(a, b, DefaultWeights())

	got := a.Neighbors()
	got[0].Score = -1
	assert.InDelta(t, 100.0, a.Neighbors()[0].Score, 1e-9)
}

// ---------------------------------------------------------------------------
// References
// ---------------------------------------------------------------------------

func TestTryAddReferenceByTag(t *testing.T) {
	x := newConcept(1, "stack overflow", nil, []string{"Recursion"})
	y := newConcept(2, "recursion", nil, []string{"function"})

	require.True(t, TryAddReference(x, y))
	assert.Equal(t, []string{"recursion"}, x.ReferenceTo())
	assert.Equal(t, []string{"stack overflow"}, y.ReferencedBy())
	assert.Empty(t, x.ReferencedBy())
	assert.Empty(t, y.ReferenceTo())
}

func TestTryAddReferenceByTextWordsOneEdgePerCall(t *testing.T) {
	x := newConcept(1, "loop", nil, []string{"control"})
	x.Texts = []string{"A loop can replace RECURSION", "recursion and loops"}
	y := newConcept(2, "recursion", nil, []string{"function"})
	y.Names = append(y.Names, "recursive")

	assert.Equal(t, 2, Mentions(x, y))
	require.True(t, TryAddReference(x, y))
	assert.Equal(t, []string{"recursion"}, x.ReferenceTo())
	assert.Equal(t, []string{"loop"}, y.ReferencedBy())
}

func TestTryAddReferenceNoMatch(t *testing.T) {
	x := newConcept(1, "loop", nil, []string{"control"})
	x.Texts = []string{"repeats a block"}
	y := newConcept(2, "recursion", nil, []string{"function"})

	assert.False(t, TryAddReference(x, y))
	assert.Empty(t, x.ReferenceTo())
	assert.Empty(t, y.ReferencedBy())
}

func TestTryAddReferenceNotDeduplicated(t *testing.T) {
	x := newConcept(1, "x", nil, []string{"y"})
	y := newConcept(2, "y", nil, []string{"z"})

	TryAddReference(x, y)
	TryAddReference(x, y)
	assert.Equal(t, []string{"y", "y"}, x.ReferenceTo())
	assert.Equal(t, []string{"x", "x"}, y.ReferencedBy())
}
