package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Manhattan computes similarity based on Manhattan (L1) distance.
// Returns 1 / (1 + distance) to convert distance to similarity.
func Manhattan(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return math.NaN(), nil
	}

	return 1 / (1 + floats.Distance(a, b, 1)), nil
}
