package pipeline

import (
	"context"

	"github.com/pkg/errors"

	"github.com/botirk38/lastcorr/types"
)

// Load downloads the artist chart and the top tags of every charted artist
// into the store. Artists whose tags cannot be fetched are skipped and listed
// in the result.
func (p *Pipeline) Load(ctx context.Context) (*StageResult, error) {
	r := p.start(StageLoad)
	return r.finish(p.load(ctx, r))
}

func (p *Pipeline) load(ctx context.Context, r *run) error {
	if p.cfg.Facts == nil {
		return errors.New("no fact source configured")
	}
	st := p.cfg.Store

	names, err := st.ListArtistNames(ctx, false)
	if err != nil {
		return err
	}

	if p.settings.ResumeLoad && len(names) > 0 {
		r.info("resuming with stored artists", "artists", len(names))
	} else {
		if err := st.ResetSource(ctx); err != nil {
			return err
		}
		if err := p.loadChart(ctx, r); err != nil {
			return err
		}
	}

	pending, err := st.ListArtistNames(ctx, true)
	if err != nil {
		return err
	}
	r.info("loading artist tags", "artists", len(pending))

	res, err := p.cfg.Facts.FetchTopTags(ctx, pending, func(ctx context.Context, artist string, triples []types.Triple) error {
		n, err := st.InsertTriples(ctx, triples)
		if err != nil {
			return err
		}
		r.res.Stored += n
		r.log.Debug("artist tags loaded", "artist", artist, "tags", n)
		return nil
	})
	r.res.Fetch = &res
	if err != nil {
		return err
	}

	for _, artist := range res.Failed {
		r.warn("artist tags could not be loaded", "artist", artist)
	}

	total, err := st.CountTriples(ctx)
	if err != nil {
		return err
	}
	r.info("tags loaded", "artists", res.Loaded, "failed", len(res.Failed), "records", total)
	return nil
}

func (p *Pipeline) loadChart(ctx context.Context, r *run) error {
	loaded := 0
	for page := 1; page <= p.settings.ChartPages; page++ {
		chart, err := p.cfg.Facts.TopArtists(ctx, page, p.settings.ChartPageSize)
		if err != nil {
			return errors.Wrapf(err, "failed to load chart page %d", page)
		}

		n, err := p.cfg.Store.InsertArtists(ctx, chart.Artists)
		if err != nil {
			return err
		}
		loaded += n
		r.res.Stored += n
		r.log.Debug("chart page loaded", "page", chart.Page, "artists", n)

		if chart.TotalPages > 0 && page >= chart.TotalPages {
			break
		}
	}
	r.info("chart loaded", "artists", loaded)
	return nil
}
