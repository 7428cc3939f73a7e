package pipeline

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/botirk38/lastcorr/report"
	"github.com/botirk38/lastcorr/store"
	"github.com/botirk38/lastcorr/types"
)

// Comparison listing names in the output directory.
const (
	TagComparisonFile    = "similar-tags-comparison.txt"
	ArtistComparisonFile = "similar-artists-comparison.txt"
)

// Compare lists the reference source's similar tags and artists next to the
// locally computed neighbours of the focal tag and artist.
func (p *Pipeline) Compare(ctx context.Context) (*StageResult, error) {
	r := p.start(StageCompare)
	return r.finish(p.compare(ctx, r))
}

func (p *Pipeline) compare(ctx context.Context, r *run) error {
	ref := p.cfg.Reference
	if ref == nil {
		return errors.New("no reference source configured")
	}

	if err := p.compareOne(ctx, r, comparison{
		kind:     "tag",
		focal:    p.settings.TagFocal,
		table:    store.TagCorrelation,
		file:     TagComparisonFile,
		external: ref.SimilarTags,
	}); err != nil {
		return err
	}

	return p.compareOne(ctx, r, comparison{
		kind:     "artist",
		focal:    p.settings.ArtistFocal,
		table:    store.ArtistCorrelation,
		file:     ArtistComparisonFile,
		external: ref.SimilarArtists,
		scores:   true,
	})
}

type comparison struct {
	kind     string
	focal    string
	table    store.PairTable
	file     string
	external func(ctx context.Context, name string) ([]types.RankedItem, error)
	scores   bool
}

func (p *Pipeline) compareOne(ctx context.Context, r *run, c comparison) error {
	external, err := c.external(ctx, c.focal)
	if err != nil {
		return errors.Wrapf(err, "failed to load similar %ss of %s", c.kind, c.focal)
	}
	r.info("reference ranking loaded", "kind", c.kind, "focal", c.focal, "records", len(external))

	pairs, err := p.cfg.Store.ListPairs(ctx, c.table, c.focal)
	if err != nil {
		return err
	}
	local := report.Neighbors(pairs, c.focal)
	r.info("local ranking loaded", "kind", c.kind, "focal", c.focal, "records", len(local))
	if len(local) == 0 {
		r.warn("no local correlations for focal label", "kind", c.kind, "focal", c.focal)
	}

	rows := report.Compare(external, local)
	return r.writeOutput(c.file, func(f *os.File) error {
		return report.WriteText(f, report.TextOptions{Kind: c.kind, Focal: c.focal, ExternalScores: c.scores}, rows)
	})
}
