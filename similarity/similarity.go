// Package similarity provides similarity measures for comparing feature vectors.
package similarity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDimensionMismatch is returned when two vectors of different length are compared.
var ErrDimensionMismatch = errors.New("similarity: vector dimension mismatch")

// ErrUnknownMetric is returned by ByName for an unsupported metric name.
var ErrUnknownMetric = errors.New("similarity: unknown metric")

// Func computes the similarity between two vectors of equal length.
// Higher values indicate greater similarity. Implementations return NaN when
// the similarity is undefined for the inputs.
type Func func(a, b []float64) (float64, error)

// ByName returns the similarity function registered under name.
func ByName(name string) (Func, error) {
	switch strings.ToLower(name) {
	case "", "pearson":
		return Pearson, nil
	case "cosine":
		return Cosine, nil
	case "euclidean":
		return Euclidean, nil
	case "manhattan":
		return Manhattan, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
}

func checkDims(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	return nil
}
