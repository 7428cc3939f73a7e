package pipeline

import (
	"context"

	"github.com/botirk38/lastcorr/store"
	"github.com/botirk38/lastcorr/types"
	"github.com/botirk38/lastcorr/vectorize"
)

// ArtistCorrelation correlates every pair of artists over their unfiltered
// tag profiles. Only the pairs of the focal artist are stored unless
// PersistAll is set.
func (p *Pipeline) ArtistCorrelation(ctx context.Context) (*StageResult, error) {
	r := p.start(StageArtists)
	return r.finish(p.artistCorrelation(ctx, r))
}

func (p *Pipeline) artistCorrelation(ctx context.Context, r *run) error {
	triples, err := p.cfg.Store.LoadTriples(ctx, store.TripleFilter{})
	if err != nil {
		return err
	}
	r.info("records loaded", "records", len(triples))

	focal := p.settings.ArtistFocal
	var extra []string
	if focal != "" {
		extra = append(extra, focal)
	}
	m, err := vectorize.Build(triples, types.ByEntity, extra...)
	if err != nil {
		return err
	}
	if focal != "" && !hasTriples(triples, focal) {
		r.warn("focal artist has no tags", "artist", focal)
	}
	if err := dumpMatrix(ctx, r, m, "unique_art", "unique_tags", "art_mx"); err != nil {
		return err
	}

	pairs, err := p.correlate(ctx, r, m)
	if err != nil {
		return err
	}
	if err := r.dump(ctx, types.Dataset{Name: "corr", Pairs: pairs}); err != nil {
		return err
	}

	keep := pairs
	if !p.settings.PersistAll {
		keep = pairsOf(pairs, focal)
		r.info("keeping focal artist pairs", "artist", focal, "pairs", len(keep))
	}

	stored, err := p.cfg.Store.ReplacePairs(ctx, store.ArtistCorrelation, keep)
	if err != nil {
		return err
	}
	r.res.Stored = stored
	r.info("correlations stored", "table", store.ArtistCorrelation.String(), "rows", stored)
	return nil
}

func hasTriples(triples []types.Triple, entity string) bool {
	for _, t := range triples {
		if t.Entity == entity {
			return true
		}
	}
	return false
}

// pairsOf returns the pairs that contain label, in input order.
func pairsOf(pairs []types.Pair, label string) []types.Pair {
	var out []types.Pair
	for _, p := range pairs {
		if _, ok := p.Other(label); ok {
			out = append(out, p)
		}
	}
	return out
}
