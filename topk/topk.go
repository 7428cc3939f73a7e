// Package topk reduces a full pair list to its highest coefficients and
// expands them into a label-by-label grid for heatmap rendering.
package topk

import (
	"math"
	"sort"

	"github.com/botirk38/lastcorr/types"
)

// DefaultK is the number of top pairs used to size the heatmap grid.
const DefaultK = 25

// CellState tells whether a grid cell carries a coefficient.
type CellState int

const (
	// CellAbsent marks a label combination with no pair in the filtered set.
	CellAbsent CellState = iota
	// CellDefined holds a computed coefficient.
	CellDefined
	// CellUndefined holds a pair whose coefficient is NaN.
	CellUndefined
)

func (s CellState) String() string {
	switch s {
	case CellDefined:
		return "defined"
	case CellUndefined:
		return "undefined"
	default:
		return "absent"
	}
}

// Cell is one grid position. Value is 0 unless State is CellDefined.
type Cell struct {
	X     int
	Y     int
	Value float64
	State CellState
}

// Matrix is the expanded top-K grid. Cells are stored x-major:
// the cell for (x, y) is Cells[x*len(YLabels)+y].
type Matrix struct {
	XLabels []string
	YLabels []string
	Cells   []Cell

	// Top is the ranked top-K list the grid was derived from.
	Top []types.Pair
	// Pairs is every pair whose label combination falls in the grid,
	// sorted by descending coefficient.
	Pairs []types.Pair
	// XIsA reports whether the X axis carries the first label of each pair.
	XIsA bool
}

// At returns the cell at (x, y).
func (m *Matrix) At(x, y int) Cell {
	return m.Cells[x*len(m.YLabels)+y]
}

// Values returns the grid as [x, y, value] triples, x-major. Cells without a
// defined coefficient are reported as 0.
func (m *Matrix) Values() [][3]float64 {
	out := make([][3]float64, len(m.Cells))
	for i, c := range m.Cells {
		out[i] = [3]float64{float64(c.X), float64(c.Y), c.Value}
	}
	return out
}

// SortDescending orders pairs by descending coefficient in place. The sort is
// stable and undefined coefficients are moved to the end.
func SortDescending(pairs []types.Pair) {
	sort.SliceStable(pairs, func(i, j int) bool {
		a, b := pairs[i].Coef, pairs[j].Coef
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		if math.IsNaN(a) {
			return false
		}
		return a > b
	})
}

// Top returns the k pairs with the highest defined coefficient, sorted
// descending. Pairs with equal coefficients keep their input order. Undefined
// pairs never make the list. The input is not modified.
func Top(pairs []types.Pair, k int) []types.Pair {
	defined := make([]types.Pair, 0, len(pairs))
	for _, p := range pairs {
		if !p.Undefined() {
			defined = append(defined, p)
		}
	}
	SortDescending(defined)
	if k >= 0 && len(defined) > k {
		defined = defined[:k]
	}
	return defined
}

// Reduce takes the top k pairs, crosses their first-label set with their
// second-label set and keeps every pair of the full list whose unordered
// label combination is part of that product. The resulting labels form a
// complete rectangular grid; the side with more distinct labels becomes the
// X axis.
func Reduce(pairs []types.Pair, k int) *Matrix {
	top := Top(pairs, k)

	firsts := make(map[string]struct{}, len(top))
	seconds := make(map[string]struct{}, len(top))
	for _, p := range top {
		firsts[p.A] = struct{}{}
		seconds[p.B] = struct{}{}
	}

	inGrid := func(a, b string) bool {
		_, okA := firsts[a]
		_, okB := seconds[b]
		return okA && okB
	}

	var filtered []types.Pair
	for _, p := range pairs {
		if inGrid(p.A, p.B) || inGrid(p.B, p.A) {
			filtered = append(filtered, p)
		}
	}
	SortDescending(filtered)

	labelsA := uniqueLabels(filtered, func(p types.Pair) string { return p.A })
	labelsB := uniqueLabels(filtered, func(p types.Pair) string { return p.B })

	m := &Matrix{
		Top:   top,
		Pairs: filtered,
		XIsA:  len(labelsA) >= len(labelsB),
	}
	if m.XIsA {
		m.XLabels, m.YLabels = labelsA, labelsB
	} else {
		m.XLabels, m.YLabels = labelsB, labelsA
	}

	index := make(map[[2]string]types.Pair, len(filtered))
	for _, p := range filtered {
		key := [2]string{p.A, p.B}
		if _, ok := index[key]; !ok {
			index[key] = p
		}
	}

	m.Cells = make([]Cell, 0, len(m.XLabels)*len(m.YLabels))
	for x, xl := range m.XLabels {
		for y, yl := range m.YLabels {
			key := [2]string{xl, yl}
			if !m.XIsA {
				key = [2]string{yl, xl}
			}
			cell := Cell{X: x, Y: y}
			if p, ok := index[key]; ok {
				if p.Undefined() {
					cell.State = CellUndefined
				} else {
					cell.State = CellDefined
					cell.Value = p.Coef
				}
			}
			m.Cells = append(m.Cells, cell)
		}
	}
	return m
}

func uniqueLabels(pairs []types.Pair, label func(types.Pair) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range pairs {
		l := label(p)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
