package lastfm

import (
	"context"

	"github.com/botirk38/lastcorr/types"
)

// FetchTopTags downloads the top tags of each artist in order and hands them
// to sink. A failing artist is recorded in the result and skipped. Only a
// cancelled context or a sink error stops the download.
func (c *Client) FetchTopTags(ctx context.Context, artists []string, sink types.TagSink) (types.FetchResult, error) {
	res := types.FetchResult{Requested: len(artists)}
	for _, artist := range artists {
		triples, err := c.ArtistTopTags(ctx, artist)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.Failed = append(res.Failed, artist)
			continue
		}
		if err := sink(ctx, artist, triples); err != nil {
			return res, err
		}
		res.Loaded++
	}
	return res, nil
}

var (
	_ types.FactSource      = (*Client)(nil)
	_ types.ReferenceSource = (*Client)(nil)
)
