package similarity

import (
	"errors"
	"math"
	"testing"
)

// Test similarity functions with known vectors
func TestSimilarityFunctions(t *testing.T) {
	vec1 := []float64{1, 0, 0}
	vec2 := []float64{0, 1, 0}
	vec3 := []float64{1, 0, 0} // Same as vec1

	t.Run("Cosine", func(t *testing.T) {
		sim, err := Cosine(vec1, vec2)
		if err != nil || sim != 0 {
			t.Errorf("Expected 0, got %f (%v)", sim, err)
		}

		sim, _ = Cosine(vec1, vec3)
		if math.Abs(sim-1) > 0.001 {
			t.Errorf("Expected 1, got %f", sim)
		}

		sim, _ = Cosine([]float64{0, 0, 0}, vec1)
		if !math.IsNaN(sim) {
			t.Errorf("Expected NaN for zero vector, got %f", sim)
		}
	})

	t.Run("Euclidean", func(t *testing.T) {
		sim, _ := Euclidean(vec1, vec3)
		if sim != 1 {
			t.Errorf("Expected 1, got %f", sim)
		}

		sim, _ = Euclidean(vec1, vec2)
		if sim >= 1 {
			t.Errorf("Expected < 1, got %f", sim)
		}
	})

	t.Run("Manhattan", func(t *testing.T) {
		sim, _ := Manhattan(vec1, vec3)
		if sim != 1 {
			t.Errorf("Expected 1, got %f", sim)
		}

		sim, _ = Manhattan(vec1, vec2)
		if math.Abs(sim-1.0/3.0) > 1e-12 {
			t.Errorf("Expected 1/3, got %f", sim)
		}
	})

	t.Run("Pearson", func(t *testing.T) {
		a := []float64{1, 2, 3, 4, 5}
		b := []float64{2, 4, 6, 8, 10} // Perfect positive correlation

		sim, err := Pearson(a, b)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if math.Abs(sim-1) > 1e-12 {
			t.Errorf("Expected ~1 for perfect correlation, got %f", sim)
		}

		c := []float64{5, 4, 3, 2, 1}
		sim, _ = Pearson(a, c)
		if math.Abs(sim+1) > 1e-12 {
			t.Errorf("Expected ~-1 for negative correlation, got %f", sim)
		}
	})
}

func TestPearsonProperties(t *testing.T) {
	a := []float64{1, 1, 0, 0, 90, 80, 0, 0}
	b := []float64{1, 0, 1, 0, 80, 0, 90, 0}

	t.Run("Bounded", func(t *testing.T) {
		c, err := Pearson(a, b)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if c < -1 || c > 1 {
			t.Errorf("Expected coefficient in [-1,1], got %f", c)
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		c1, _ := Pearson(a, b)
		c2, _ := Pearson(a, b)
		if math.Float64bits(c1) != math.Float64bits(c2) {
			t.Errorf("Expected bit-identical results, got %v and %v", c1, c2)
		}
	})

	t.Run("Symmetric", func(t *testing.T) {
		ab, _ := Pearson(a, b)
		ba, _ := Pearson(b, a)
		if ab != ba {
			t.Errorf("Expected symmetry, got %v and %v", ab, ba)
		}
	})

	t.Run("SelfCorrelation", func(t *testing.T) {
		for _, v := range [][]float64{a, b, {3, 7, 1, 0, 12, 5}} {
			c, _ := Pearson(v, v)
			if c != 1 {
				t.Errorf("Expected exactly 1 for %v, got %v", v, c)
			}
		}
	})

	t.Run("ZeroVariance", func(t *testing.T) {
		zero := make([]float64, len(a))
		c, err := Pearson(zero, a)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !math.IsNaN(c) {
			t.Errorf("Expected NaN for zero vector, got %f", c)
		}

		c, _ = Pearson(zero, zero)
		if !math.IsNaN(c) {
			t.Errorf("Expected NaN for self-correlation of zero vector, got %f", c)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		c, err := Pearson(nil, nil)
		if err != nil || !math.IsNaN(c) {
			t.Errorf("Expected NaN for empty vectors, got %f (%v)", c, err)
		}
	})
}

func TestDimensionMismatch(t *testing.T) {
	funcs := map[string]Func{
		"pearson":   Pearson,
		"cosine":    Cosine,
		"euclidean": Euclidean,
		"manhattan": Manhattan,
	}

	for name, fn := range funcs {
		t.Run(name, func(t *testing.T) {
			_, err := fn([]float64{1, 2, 3}, []float64{1, 2})
			if !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("Expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"", "pearson", "Cosine", "euclidean", "MANHATTAN"} {
		if fn, err := ByName(name); err != nil || fn == nil {
			t.Errorf("Expected metric for %q, got %v", name, err)
		}
	}

	if _, err := ByName("jaccard"); !errors.Is(err, ErrUnknownMetric) {
		t.Errorf("Expected ErrUnknownMetric, got %v", err)
	}
}
