package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/botirk38/lastcorr/correlate"
	"github.com/botirk38/lastcorr/report"
	"github.com/botirk38/lastcorr/store"
	"github.com/botirk38/lastcorr/topk"
	"github.com/botirk38/lastcorr/types"
	"github.com/botirk38/lastcorr/vectorize"
)

// HeatmapFile is the name of the tag heatmap page in the output directory.
const HeatmapFile = "tag-correlation-heatmap.html"

// TagCorrelation correlates every pair of tags that pass the tag filter,
// stores the coefficients and renders the top-K heatmap.
func (p *Pipeline) TagCorrelation(ctx context.Context) (*StageResult, error) {
	r := p.start(StageTags)
	return r.finish(p.tagCorrelation(ctx, r))
}

func (p *Pipeline) tagCorrelation(ctx context.Context, r *run) error {
	triples, err := p.cfg.Store.LoadTriples(ctx, p.settings.TagFilter)
	if err != nil {
		return err
	}
	r.info("records loaded", "records", len(triples))
	if err := r.dump(ctx, types.Dataset{Name: "recs", Triples: triples}); err != nil {
		return err
	}

	m, err := vectorize.Build(triples, types.ByAttribute)
	if err != nil {
		return err
	}
	if err := dumpMatrix(ctx, r, m, "unique_art", "unique_tags", "tags_mx"); err != nil {
		return err
	}

	pairs, err := p.correlate(ctx, r, m)
	if err != nil {
		return err
	}
	if err := r.dump(ctx, types.Dataset{Name: "corr", Pairs: pairs}); err != nil {
		return err
	}

	stored, err := p.cfg.Store.ReplacePairs(ctx, store.TagCorrelation, pairs)
	if err != nil {
		return err
	}
	r.res.Stored = stored
	r.info("correlations stored", "table", store.TagCorrelation.String(), "rows", stored)

	grid := topk.Reduce(pairs, p.settings.TopK)
	r.info("top pairs selected", "top", len(grid.Top), "x", len(grid.XLabels), "y", len(grid.YLabels))
	if err := r.dump(ctx, types.Dataset{Name: "top25", Pairs: grid.Top}); err != nil {
		return err
	}
	if err := r.dump(ctx, gridDataset("top25mx", grid)); err != nil {
		return err
	}

	return r.writeOutput(HeatmapFile, func(f *os.File) error {
		return report.WriteHeatmap(f, fmt.Sprintf("Tag correlation: top %d pairs", p.settings.TopK), grid)
	})
}

// correlate runs the configured metric over all rows of m with progress
// logging.
func (p *Pipeline) correlate(ctx context.Context, r *run, m *vectorize.FeatureMatrix) ([]types.Pair, error) {
	c, err := correlate.New(
		correlate.WithMetric(p.cfg.Metric),
		correlate.WithWorkers(p.cfg.Workers),
		correlate.WithProgress(p.settings.ProgressEvery, func(done, total int) {
			r.log.Info("correlation progress", "done", done, "total", total)
		}),
	)
	if err != nil {
		return nil, err
	}

	r.info("correlating", "rows", m.Len(), "pairs", correlate.PairCount(m.Len()), "workers", p.cfg.Workers)
	pairs, err := c.Correlate(ctx, m)
	if err != nil {
		return nil, errors.Wrap(err, "correlation failed")
	}
	r.res.Pairs = len(pairs)

	undefined := 0
	for _, pr := range pairs {
		if pr.Undefined() {
			undefined++
		}
	}
	if undefined > 0 {
		r.warn("undefined correlations", "pairs", undefined)
	}
	return pairs, nil
}

// dumpMatrix writes the entity labels, attribute labels and the matrix
// itself under the given dataset names. The matrix columns are named once;
// the weight half repeats the indicator half's labels.
func dumpMatrix(ctx context.Context, r *run, m *vectorize.FeatureMatrix, entities, attributes, matrix string) error {
	ents, attrs := m.Rows, m.Cols
	if m.Axis == types.ByAttribute {
		ents, attrs = m.Cols, m.Rows
	}

	rows, cols := m.Shape()
	values := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		values = append(values, m.Row(i)...)
	}

	for _, ds := range []types.Dataset{
		{Name: entities, Labels: ents},
		{Name: attributes, Labels: attrs},
		{Name: matrix, Shape: []int{rows, cols}, Labels: m.Rows, Columns: m.Cols, Values: values},
	} {
		if err := r.dump(ctx, ds); err != nil {
			return err
		}
	}
	return nil
}

// gridDataset flattens the grid into [x, y, value] rows. Cells without a
// defined coefficient hold 0.
func gridDataset(name string, grid *topk.Matrix) types.Dataset {
	values := make([]float64, 0, 3*len(grid.Cells))
	for _, v := range grid.Values() {
		values = append(values, v[:]...)
	}
	return types.Dataset{
		Name:    name,
		Shape:   []int{len(grid.Cells), 3},
		Labels:  grid.XLabels,
		Columns: grid.YLabels,
		Values:  values,
	}
}
