// Package correlate computes all-pairs similarity coefficients over the rows
// of a feature matrix.
package correlate

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/botirk38/lastcorr/similarity"
	"github.com/botirk38/lastcorr/types"
)

// Source is a labelled set of row vectors.
type Source interface {
	Len() int
	Label(i int) string
	Row(i int) []float64
}

// Correlator computes pairwise coefficients with a configurable metric.
type Correlator struct {
	metric        similarity.Func
	workers       int
	progress      ProgressFunc
	progressEvery int
}

// New creates a Correlator. Without options it computes Pearson correlation
// on all available CPUs.
func New(opts ...Option) (*Correlator, error) {
	c := &Correlator{
		metric:        similarity.Pearson,
		workers:       runtime.GOMAXPROCS(0),
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// PairCount returns the number of unordered pairs among n rows.
func PairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// rowOffset is the index of the first pair (i, i+1) in the output.
func rowOffset(i, n int) int {
	return i * (2*n - i - 1) / 2
}

// Correlate returns one Pair per unordered combination (i<j) of rows, in
// (i, j) row-index order. Each row is handled by one worker writing into its
// own contiguous range of the result, so the output does not depend on the
// number of workers. Undefined coefficients are kept as NaN. A metric error
// such as a dimension mismatch aborts the whole computation.
func (c *Correlator) Correlate(ctx context.Context, src Source) ([]types.Pair, error) {
	n := src.Len()
	total := PairCount(n)
	out := make([]types.Pair, total)
	if total == 0 {
		return out, nil
	}

	tracker := newTracker(total, c.progressEvery, c.progress)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i := 0; i < n-1; i++ {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return c.correlateRow(src, i, out[rowOffset(i, n):rowOffset(i+1, n)], tracker)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Correlator) correlateRow(src Source, i int, dst []types.Pair, tr *tracker) error {
	a := src.Row(i)
	labelA := src.Label(i)
	for k := range dst {
		j := i + 1 + k
		coef, err := c.metric(a, src.Row(j))
		if err != nil {
			return fmt.Errorf("correlate %q and %q: %w", labelA, src.Label(j), err)
		}
		dst[k] = types.Pair{A: labelA, B: src.Label(j), Coef: coef}
	}
	tr.add(len(dst))
	return nil
}

type tracker struct {
	mu    sync.Mutex
	done  int
	next  int
	every int
	total int
	fn    ProgressFunc
}

func newTracker(total, every int, fn ProgressFunc) *tracker {
	return &tracker{total: total, every: every, next: every, fn: fn}
}

func (t *tracker) add(n int) {
	if t.fn == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done += n
	if t.done >= t.next || t.done == t.total {
		t.fn(t.done, t.total)
		for t.next <= t.done {
			t.next += t.every
		}
	}
}

// Vectors is a plain in-memory Source.
type Vectors struct {
	Labels []string
	Data   [][]float64
}

func (v Vectors) Len() int            { return len(v.Labels) }
func (v Vectors) Label(i int) string  { return v.Labels[i] }
func (v Vectors) Row(i int) []float64 { return v.Data[i] }
