package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cosine computes the cosine of the angle between a and b.
// Returns NaN when either vector has zero magnitude.
func Cosine(a, b []float64) (float64, error) {
	if err := checkDims(a, b); err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return math.NaN(), nil
	}

	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return math.NaN(), nil
	}
	return floats.Dot(a, b) / (na * nb), nil
}
