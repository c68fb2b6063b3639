package concept

import "errors"

// ErrSimilarityUndefined is returned by Score when the first concept has
// nothing to compare: its weighted context, tag and table counts sum to zero.
var ErrSimilarityUndefined = errors.New("concept: similarity undefined")

// Score computes how much of a's context, tags and tables b also has, as a
// weighted percentage in [0, 100]. The metric is asymmetric: the denominator
// only counts a's own items, so Score(a, b) and Score(b, a) usually differ.
func Score(a, b *Concept, w Weights) (float64, error) {
	alikeContext := countShared(a.Context, b.Context)
	alikeTag := countShared(a.Tags, b.Tags)
	alikeTable := countSharedTables(a.Tables, b.Tables)

	alike := alikeContext*w.Context + alikeTag*w.Tag + alikeTable*w.Table
	denom := float64(len(a.Context))*w.Context +
		float64(len(a.Tags))*w.Tag +
		float64(len(a.Tables))*w.Table

	if denom == 0 {
		return 0, ErrSimilarityUndefined
	}
	return alike * 100 / denom, nil
}

// Nearness is Score with the undefined case mapped to 0, so a concept with
// nothing to compare never gains neighbors.
func Nearness(a, b *Concept, w Weights) float64 {
	s, err := Score(a, b, w)
	if err != nil {
		return 0
	}
	return s
}

// countShared counts the items of xs that occur anywhere in ys. Duplicates in
// xs are counted each time.
func countShared(xs, ys []string) float64 {
	if len(xs) == 0 || len(ys) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(ys))
	for _, y := range ys {
		set[y] = struct{}{}
	}
	var n float64
	for _, x := range xs {
		if _, ok := set[x]; ok {
			n++
		}
	}
	return n
}

func countSharedTables(xs, ys []Table) float64 {
	if len(xs) == 0 || len(ys) == 0 {
		return 0
	}
	keys := make([]string, len(ys))
	for i, y := range ys {
		keys[i] = y.Key()
	}
	tkeys := make([]string, len(xs))
	for i, x := range xs {
		tkeys[i] = x.Key()
	}
	return countShared(tkeys, keys)
}
