package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Euclidean computes similarity based on Euclidean distance.
// Returns 1 / (1 + distance) to convert distance to similarity (higher = more similar).
// Result is always between 0 and 1, where 1 means identical vectors.
func Euclidean(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return math.NaN(), nil
	}

	return 1 / (1 + floats.Distance(a, b, 2)), nil
}
