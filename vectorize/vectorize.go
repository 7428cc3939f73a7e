// Package vectorize turns sparse (entity, attribute, weight) triples into a
// dense feature matrix.
//
// Each row vector has length 2*len(Cols). The first half is a presence
// indicator (1 where the row label is associated with the column label), the
// second half holds the weight at the same column position shifted by
// len(Cols). With artists a1..a3 as columns, a tag given to a1 at rank 90 and
// to a3 at rank 50 becomes [1 0 1 90 0 50].
package vectorize

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/botirk38/lastcorr/types"
)

var (
	// ErrNoTriples is returned when there is nothing to vectorize.
	ErrNoTriples = errors.New("vectorize: no triples")

	// ErrNegativeWeight is returned for a triple with a weight below zero.
	ErrNegativeWeight = errors.New("vectorize: negative weight")
)

// FeatureMatrix is the dense encoding of a triple set along one axis.
type FeatureMatrix struct {
	Axis types.Axis
	Rows []string // sorted unique row labels
	Cols []string // sorted unique column labels
	Data *mat.Dense
}

// Offset is the position of the weight half within a row.
func (m *FeatureMatrix) Offset() int {
	return len(m.Cols)
}

// Len returns the number of rows.
func (m *FeatureMatrix) Len() int {
	return len(m.Rows)
}

// Label returns the label of row i.
func (m *FeatureMatrix) Label(i int) string {
	return m.Rows[i]
}

// Row returns row i without copying. Callers must not modify it.
func (m *FeatureMatrix) Row(i int) []float64 {
	return m.Data.RawRowView(i)
}

// Shape returns the matrix dimensions.
func (m *FeatureMatrix) Shape() (rows, cols int) {
	return m.Data.Dims()
}

// Build vectorizes triples along axis. Triples are grouped by row label first,
// so the cost is O(T + R*log C) instead of a full scan per row.
// When the same (row, column) combination appears more than once, the last
// triple wins. Labels in extraRows without any triple get an all-zero row.
func Build(triples []types.Triple, axis types.Axis, extraRows ...string) (*FeatureMatrix, error) {
	if len(triples) == 0 {
		return nil, ErrNoTriples
	}

	groups := make(map[string][]types.Triple)
	colSet := make(map[string]struct{})
	for _, t := range triples {
		if t.Weight < 0 {
			return nil, fmt.Errorf("%w: %s/%s=%d", ErrNegativeWeight, t.Entity, t.Attribute, t.Weight)
		}
		row, col := split(t, axis)
		groups[row] = append(groups[row], t)
		colSet[col] = struct{}{}
	}
	for _, row := range extraRows {
		if _, ok := groups[row]; !ok {
			groups[row] = nil
		}
	}

	rows := sortedKeys(groups)
	cols := sortedKeys(colSet)
	offset := len(cols)

	data := mat.NewDense(len(rows), 2*offset, nil)
	for i, row := range rows {
		vec := data.RawRowView(i)
		for _, t := range groups[row] {
			_, col := split(t, axis)
			j := sort.SearchStrings(cols, col)
			vec[j] = 1
			vec[j+offset] = float64(t.Weight)
		}
	}

	return &FeatureMatrix{
		Axis: axis,
		Rows: rows,
		Cols: cols,
		Data: data,
	}, nil
}

func split(t types.Triple, axis types.Axis) (row, col string) {
	if axis == types.ByAttribute {
		return t.Attribute, t.Entity
	}
	return t.Entity, t.Attribute
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
