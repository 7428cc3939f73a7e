package vectorize

import (
	"errors"
	"reflect"
	"testing"

	"github.com/botirk38/lastcorr/types"
)

func TestBuild(t *testing.T) {
	triples := []types.Triple{
		{Entity: "X", Attribute: "t1", Weight: 90},
		{Entity: "X", Attribute: "t2", Weight: 80},
		{Entity: "Y", Attribute: "t1", Weight: 80},
		{Entity: "Y", Attribute: "t3", Weight: 90},
	}

	t.Run("ByEntity", func(t *testing.T) {
		m, err := Build(triples, types.ByEntity)
		if err != nil {
			t.Fatalf("Failed to build matrix: %v", err)
		}

		if !reflect.DeepEqual(m.Rows, []string{"X", "Y"}) {
			t.Errorf("Expected rows [X Y], got %v", m.Rows)
		}
		if !reflect.DeepEqual(m.Cols, []string{"t1", "t2", "t3"}) {
			t.Errorf("Expected cols [t1 t2 t3], got %v", m.Cols)
		}
		if r, c := m.Shape(); r != 2 || c != 6 {
			t.Errorf("Expected shape 2x6, got %dx%d", r, c)
		}

		want := [][]float64{
			{1, 1, 0, 90, 80, 0},
			{1, 0, 1, 80, 0, 90},
		}
		for i := range want {
			if !reflect.DeepEqual(m.Row(i), want[i]) {
				t.Errorf("Row %s: expected %v, got %v", m.Rows[i], want[i], m.Row(i))
			}
		}
	})

	t.Run("ByAttribute", func(t *testing.T) {
		m, err := Build(triples, types.ByAttribute)
		if err != nil {
			t.Fatalf("Failed to build matrix: %v", err)
		}

		if !reflect.DeepEqual(m.Rows, []string{"t1", "t2", "t3"}) {
			t.Errorf("Expected rows [t1 t2 t3], got %v", m.Rows)
		}
		if m.Offset() != 2 {
			t.Errorf("Expected offset 2, got %d", m.Offset())
		}

		want := [][]float64{
			{1, 1, 90, 80},
			{1, 0, 80, 0},
			{0, 1, 0, 90},
		}
		for i := range want {
			if !reflect.DeepEqual(m.Row(i), want[i]) {
				t.Errorf("Row %s: expected %v, got %v", m.Rows[i], want[i], m.Row(i))
			}
		}
	})

	t.Run("IndicatorMatchesWeight", func(t *testing.T) {
		m, _ := Build(triples, types.ByEntity)
		off := m.Offset()
		for i := 0; i < m.Len(); i++ {
			row := m.Row(i)
			for j := 0; j < off; j++ {
				if (row[j] == 1) != (row[j+off] != 0) {
					t.Errorf("Row %s col %s: indicator %v, weight %v", m.Rows[i], m.Cols[j], row[j], row[j+off])
				}
			}
		}
	})
}

func TestBuildExtraRows(t *testing.T) {
	triples := []types.Triple{{Entity: "X", Attribute: "t1", Weight: 50}}

	m, err := Build(triples, types.ByEntity, "W", "X")
	if err != nil {
		t.Fatalf("Failed to build matrix: %v", err)
	}
	if !reflect.DeepEqual(m.Rows, []string{"W", "X"}) {
		t.Fatalf("Expected rows [W X], got %v", m.Rows)
	}
	if !reflect.DeepEqual(m.Row(0), []float64{0, 0}) {
		t.Errorf("Expected all-zero row for W, got %v", m.Row(0))
	}
}

func TestBuildErrors(t *testing.T) {
	if _, err := Build(nil, types.ByEntity); !errors.Is(err, ErrNoTriples) {
		t.Errorf("Expected ErrNoTriples, got %v", err)
	}

	bad := []types.Triple{{Entity: "X", Attribute: "t1", Weight: -1}}
	if _, err := Build(bad, types.ByEntity); !errors.Is(err, ErrNegativeWeight) {
		t.Errorf("Expected ErrNegativeWeight, got %v", err)
	}
}
