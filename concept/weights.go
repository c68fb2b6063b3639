package concept

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidWeights is returned for negative, non-finite or malformed formula
// weights.
var ErrInvalidWeights = errors.New("concept: invalid weights")

// Weights scale the three similarity dimensions.
type Weights struct {
	Context float64 `json:"context" yaml:"context"`
	Tag     float64 `json:"tag" yaml:"tag"`
	Table   float64 `json:"table" yaml:"table"`
}

// DefaultWeights weighs every dimension equally.
func DefaultWeights() Weights {
	return Weights{Context: 1, Tag: 1, Table: 1}
}

// Validate checks that every weight is finite and not negative.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Context, w.Tag, w.Table} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s (weights must be finite and >= 0)", ErrInvalidWeights, w)
		}
	}
	return nil
}

// String renders the weights in the "context,tag,table" form accepted by
// ParseWeights.
func (w Weights) String() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return f(w.Context) + "," + f(w.Tag) + "," + f(w.Table)
}

// ParseWeights parses "context,tag,table", e.g. "1,1,1" or "0.5, 2, 1".
func ParseWeights(s string) (Weights, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Weights{}, fmt.Errorf("%w: %q needs three comma-separated values", ErrInvalidWeights, s)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Weights{}, fmt.Errorf("%w: %q: %v", ErrInvalidWeights, s, err)
		}
		vals[i] = v
	}
	w := Weights{Context: vals[0], Tag: vals[1], Table: vals[2]}
	return w, w.Validate()
}
