package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Pearson computes the Pearson correlation coefficient of a and b.
// Returns a value between -1 and 1, or NaN when either vector is constant
// (zero variance) or empty.
func Pearson(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	if len(a) == 0 || constant(a) || constant(b) {
		return math.NaN(), nil
	}

	c := stat.Correlation(a, b, nil)
	// Rounding can push perfectly correlated vectors a hair past the bounds.
	return math.Max(-1, math.Min(1, c)), nil
}

func constant(v []float64) bool {
	return floats.Min(v) == floats.Max(v)
}
