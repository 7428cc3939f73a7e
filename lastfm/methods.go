package lastfm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"github.com/botirk38/lastcorr/types"
)

// The API encodes most numbers as strings.
type number float64

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = number(f)
	return nil
}

// list decodes a JSON array, or a single object where the API collapses a
// one-element array.
type list[T any] []T

func (l *list[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		if string(data) == "null" || string(data) == `""` {
			*l = nil
			return nil
		}
		var one T
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = list[T]{one}
		return nil
	}
	var many []T
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

type chartResponse struct {
	Artists struct {
		Artist list[struct {
			Name      string `json:"name"`
			Listeners number `json:"listeners"`
			Playcount number `json:"playcount"`
		}] `json:"artist"`
		Attr struct {
			Page       number `json:"page"`
			PerPage    number `json:"perPage"`
			TotalPages number `json:"totalPages"`
		} `json:"@attr"`
	} `json:"artists"`
}

// TopArtists returns one page of chart.getTopArtists.
func (c *Client) TopArtists(ctx context.Context, page, limit int) (types.ChartPage, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var resp chartResponse
	if err := c.call(ctx, "chart.getTopArtists", params, &resp); err != nil {
		return types.ChartPage{}, err
	}

	out := types.ChartPage{
		Page:       int(resp.Artists.Attr.Page),
		PerPage:    int(resp.Artists.Attr.PerPage),
		TotalPages: int(resp.Artists.Attr.TotalPages),
		Artists:    make([]types.Artist, 0, len(resp.Artists.Artist)),
	}
	for _, a := range resp.Artists.Artist {
		out.Artists = append(out.Artists, types.Artist{
			Name:      a.Name,
			Listeners: int64(a.Listeners),
			Playcount: int64(a.Playcount),
		})
	}
	return out, nil
}

type topTagsResponse struct {
	TopTags struct {
		Tag list[struct {
			Name  string `json:"name"`
			Count number `json:"count"`
		}] `json:"tag"`
	} `json:"toptags"`
}

// ArtistTopTags returns artist.getTopTags as triples of the artist, tag and
// tag count.
func (c *Client) ArtistTopTags(ctx context.Context, artist string) ([]types.Triple, error) {
	params := url.Values{}
	params.Set("artist", artist)

	var resp topTagsResponse
	if err := c.call(ctx, "artist.getTopTags", params, &resp); err != nil {
		return nil, err
	}

	triples := make([]types.Triple, 0, len(resp.TopTags.Tag))
	for _, t := range resp.TopTags.Tag {
		triples = append(triples, types.Triple{Entity: artist, Attribute: t.Name, Weight: int(t.Count)})
	}
	return triples, nil
}

type similarEntry struct {
	Name  string `json:"name"`
	Match number `json:"match"`
}

type similarTagsResponse struct {
	SimilarTags struct {
		Tag list[similarEntry] `json:"tag"`
	} `json:"similartags"`
}

// SimilarTags returns tag.getSimilar in API order. Scores are 0 when the API
// does not report a match value.
func (c *Client) SimilarTags(ctx context.Context, tag string) ([]types.RankedItem, error) {
	params := url.Values{}
	params.Set("tag", tag)

	var resp similarTagsResponse
	if err := c.call(ctx, "tag.getSimilar", params, &resp); err != nil {
		return nil, err
	}
	return ranked(resp.SimilarTags.Tag), nil
}

type similarArtistsResponse struct {
	SimilarArtists struct {
		Artist list[similarEntry] `json:"artist"`
	} `json:"similarartists"`
}

// SimilarArtists returns artist.getSimilar in API order with the match
// score.
func (c *Client) SimilarArtists(ctx context.Context, artist string) ([]types.RankedItem, error) {
	params := url.Values{}
	params.Set("artist", artist)

	var resp similarArtistsResponse
	if err := c.call(ctx, "artist.getSimilar", params, &resp); err != nil {
		return nil, err
	}
	return ranked(resp.SimilarArtists.Artist), nil
}

func ranked(entries []similarEntry) []types.RankedItem {
	out := make([]types.RankedItem, 0, len(entries))
	for _, e := range entries {
		out = append(out, types.RankedItem{Name: e.Name, Score: float64(e.Match)})
	}
	return out
}
