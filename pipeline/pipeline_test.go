package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/botirk38/lastcorr/options"
	"github.com/botirk38/lastcorr/store"
	"github.com/botirk38/lastcorr/types"
)

type fakeFacts struct {
	artists    []types.Artist
	tags       map[string][]types.Triple
	fail       map[string]bool
	chartCalls int
	requested  [][]string
}

func (f *fakeFacts) TopArtists(_ context.Context, page, limit int) (types.ChartPage, error) {
	f.chartCalls++
	return types.ChartPage{Page: page, PerPage: limit, TotalPages: 1, Artists: f.artists}, nil
}

func (f *fakeFacts) FetchTopTags(ctx context.Context, artists []string, sink types.TagSink) (types.FetchResult, error) {
	f.requested = append(f.requested, artists)
	res := types.FetchResult{Requested: len(artists)}
	for _, a := range artists {
		if f.fail[a] {
			res.Failed = append(res.Failed, a)
			continue
		}
		if err := sink(ctx, a, f.tags[a]); err != nil {
			return res, err
		}
		res.Loaded++
	}
	return res, nil
}

type fakeReference struct {
	err error
}

func (r fakeReference) SimilarTags(context.Context, string) ([]types.RankedItem, error) {
	return []types.RankedItem{{Name: "dance", Score: 1}, {Name: "soul", Score: 0.8}}, r.err
}

func (r fakeReference) SimilarArtists(context.Context, string) ([]types.RankedItem, error) {
	return []types.RankedItem{{Name: "Madonna", Score: 1}}, r.err
}

func tagged(artist string, tags ...any) []types.Triple {
	var out []types.Triple
	for i := 0; i < len(tags); i += 2 {
		out = append(out, types.Triple{Entity: artist, Attribute: tags[i].(string), Weight: tags[i+1].(int)})
	}
	return out
}

func newFacts() *fakeFacts {
	return &fakeFacts{
		artists: []types.Artist{
			{Name: "Adele", Listeners: 500, Playcount: 9000},
			{Name: "Bjork", Listeners: 400, Playcount: 8000},
			{Name: "Cher", Listeners: 300, Playcount: 7000},
			{Name: "Daft Punk", Listeners: 200, Playcount: 6000},
			{Name: "Eno", Listeners: 100, Playcount: 5000},
		},
		tags: map[string][]types.Triple{
			"Adele":     tagged("Adele", "pop", 100, "soul", 80),
			"Bjork":     tagged("Bjork", "pop", 60, "electronic", 100, "experimental", 70),
			"Cher":      tagged("Cher", "pop", 100, "disco", 90),
			"Daft Punk": tagged("Daft Punk", "electronic", 100, "house", 80),
			"Eno":       tagged("Eno", "ambient", 100),
		},
		fail: map[string]bool{"Eno": true},
	}
}

func testSettings(t *testing.T) Settings {
	return Settings{
		OutputDir:     t.TempDir(),
		ChartPages:    3,
		ChartPageSize: 50,
		TagFocal:      "pop",
		TopK:          3,
		ArtistFocal:   "Cher",
	}
}

func newTestPipeline(t *testing.T, settings Settings, opts ...options.Option) *Pipeline {
	t.Helper()
	base := []options.Option{
		options.WithStorePath(store.MemoryPath),
		options.WithMemoryDatasets(64),
		options.WithWorkers(2),
		options.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	p, err := New(settings, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestNewRequiresTopK(t *testing.T) {
	settings := testSettings(t)
	settings.TopK = 0
	_, err := New(settings, options.WithStorePath(store.MemoryPath))
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	facts := newFacts()
	p := newTestPipeline(t, testSettings(t), options.WithFactSource(facts))

	res, err := p.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, StageLoad, res.Stage)
	require.Equal(t, 1, facts.chartCalls)

	require.NotNil(t, res.Fetch)
	require.Equal(t, 5, res.Fetch.Requested)
	require.Equal(t, 4, res.Fetch.Loaded)
	require.Equal(t, []string{"Eno"}, res.Fetch.Failed)
	require.Equal(t, 5+9, res.Stored)

	n, err := p.Store().CountTriples(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, n)

	var warned bool
	for _, ev := range res.Events {
		if ev.Level == slog.LevelWarn && strings.Contains(ev.Message, "could not be loaded") {
			warned = true
		}
	}
	require.True(t, warned, "expected a warning for the failed artist")
}

func TestLoadResume(t *testing.T) {
	ctx := context.Background()
	facts := newFacts()
	settings := testSettings(t)
	p := newTestPipeline(t, settings, options.WithFactSource(facts))

	_, err := p.Load(ctx)
	require.NoError(t, err)

	p.settings.ResumeLoad = true
	facts.fail = nil
	res, err := p.Load(ctx)
	require.NoError(t, err)

	require.Equal(t, 1, facts.chartCalls, "chart must not be reloaded")
	require.Equal(t, []string{"Eno"}, facts.requested[len(facts.requested)-1])
	require.True(t, res.Fetch.Complete())

	n, err := p.Store().CountTriples(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, n)
}

func TestLoadRestartsWithoutResume(t *testing.T) {
	ctx := context.Background()
	facts := newFacts()
	p := newTestPipeline(t, testSettings(t), options.WithFactSource(facts))

	for i := 0; i < 2; i++ {
		_, err := p.Load(ctx)
		require.NoError(t, err)
	}

	require.Equal(t, 2, facts.chartCalls)
	names, err := p.Store().ListArtistNames(ctx, false)
	require.NoError(t, err)
	require.Len(t, names, 5)

	n, err := p.Store().CountTriples(ctx)
	require.NoError(t, err)
	require.Equal(t, 9, n)
}

func TestLoadStoreError(t *testing.T) {
	ctx := context.Background()
	facts := newFacts()
	p := newTestPipeline(t, testSettings(t), options.WithFactSource(facts))
	require.NoError(t, p.Store().Close())

	_, err := p.Load(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "load stage")
}

func TestLoadWithoutFacts(t *testing.T) {
	p := newTestPipeline(t, testSettings(t))
	res, err := p.Load(context.Background())
	require.Error(t, err)
	require.NotNil(t, res)
	require.False(t, res.Finished.IsZero())
}

func loaded(t *testing.T, settings Settings, opts ...options.Option) *Pipeline {
	t.Helper()
	p := newTestPipeline(t, settings, append(opts, options.WithFactSource(newFacts()))...)
	_, err := p.Load(context.Background())
	require.NoError(t, err)
	return p
}

func TestTagCorrelation(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	p := loaded(t, settings)

	res, err := p.TagCorrelation(ctx)
	require.NoError(t, err)

	// disco, electronic, experimental, house, pop and soul
	require.Equal(t, 15, res.Pairs)
	require.Equal(t, 15, res.Stored)

	pairs, err := p.Store().ListPairs(ctx, store.TagCorrelation, "")
	require.NoError(t, err)
	require.Len(t, pairs, 15)
	for _, pr := range pairs {
		require.Less(t, pr.A, pr.B)
	}

	for _, name := range []string{"recs", "unique_art", "unique_tags", "tags_mx", "corr", "top25", "top25mx"} {
		ds, ok, err := p.Datasets().Get(ctx, "tags."+name)
		require.NoError(t, err)
		require.True(t, ok, name)
		require.False(t, ds.Created.IsZero())
	}

	mx, _, err := p.Datasets().Get(ctx, "tags.tags_mx")
	require.NoError(t, err)
	require.Equal(t, []int{6, 8}, mx.Shape)
	require.Len(t, mx.Values, 48)

	top, _, err := p.Datasets().Get(ctx, "tags.top25")
	require.NoError(t, err)
	require.Len(t, top.Pairs, 3)

	path := filepath.Join(settings.OutputDir, HeatmapFile)
	require.Equal(t, []string{path}, res.Files)
	page, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(page), "Tag correlation: top 3 pairs")
}

func TestTagCorrelationFilter(t *testing.T) {
	settings := testSettings(t)
	settings.TagFilter = store.TripleFilter{MinCount: 80, MinEntities: 2}
	p := loaded(t, settings)

	res, err := p.TagCorrelation(context.Background())
	require.NoError(t, err)

	// only pop (Adele, Cher) and electronic (Bjork, Daft Punk) survive
	require.Equal(t, 1, res.Pairs)
}

func TestTagCorrelationEmpty(t *testing.T) {
	p := newTestPipeline(t, testSettings(t))
	_, err := p.TagCorrelation(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "tags stage")
}

func TestArtistCorrelation(t *testing.T) {
	ctx := context.Background()

	t.Run("FocalOnly", func(t *testing.T) {
		p := loaded(t, testSettings(t))
		res, err := p.ArtistCorrelation(ctx)
		require.NoError(t, err)
		require.Equal(t, 6, res.Pairs)
		require.Equal(t, 3, res.Stored)

		pairs, err := p.Store().ListPairs(ctx, store.ArtistCorrelation, "")
		require.NoError(t, err)
		for _, pr := range pairs {
			_, ok := pr.Other("Cher")
			require.True(t, ok)
		}

		mx, ok, err := p.Datasets().Get(ctx, "artists.art_mx")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []string{"Adele", "Bjork", "Cher", "Daft Punk"}, mx.Labels)
	})

	t.Run("PersistAll", func(t *testing.T) {
		settings := testSettings(t)
		settings.PersistAll = true
		p := loaded(t, settings)
		res, err := p.ArtistCorrelation(ctx)
		require.NoError(t, err)
		require.Equal(t, 6, res.Stored)
	})

	t.Run("UntaggedFocal", func(t *testing.T) {
		settings := testSettings(t)
		settings.ArtistFocal = "Zappa"
		p := loaded(t, settings)
		res, err := p.ArtistCorrelation(ctx)
		require.NoError(t, err)

		require.Equal(t, 10, res.Pairs)
		require.Equal(t, 4, res.Stored)

		pairs, err := p.Store().ListPairs(ctx, store.ArtistCorrelation, "Zappa")
		require.NoError(t, err)
		for _, pr := range pairs {
			require.True(t, pr.Undefined())
		}

		var warned bool
		for _, ev := range res.Events {
			if ev.Message == "focal artist has no tags" {
				warned = true
			}
		}
		require.True(t, warned)
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	p := loaded(t, settings, options.WithReferenceSource(fakeReference{}))

	_, err := p.Run(ctx, StageTags, StageArtists)
	require.NoError(t, err)

	res, err := p.Compare(ctx)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)

	tags, err := os.ReadFile(filepath.Join(settings.OutputDir, TagComparisonFile))
	require.NoError(t, err)
	require.Contains(t, string(tags), "Compared tag: 'pop'")
	require.Contains(t, string(tags), "dance")
	require.Contains(t, string(tags), "soul")

	artists, err := os.ReadFile(filepath.Join(settings.OutputDir, ArtistComparisonFile))
	require.NoError(t, err)
	require.Contains(t, string(artists), "Compared artist: 'Cher'")
	require.Contains(t, string(artists), "Match Coeff")
	require.Contains(t, string(artists), "Madonna")
	require.Contains(t, string(artists), "Adele")
}

func TestCompareErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("NoReference", func(t *testing.T) {
		p := newTestPipeline(t, testSettings(t))
		_, err := p.Compare(ctx)
		require.Error(t, err)
	})

	t.Run("ReferenceFailure", func(t *testing.T) {
		boom := errors.New("boom")
		p := newTestPipeline(t, testSettings(t), options.WithReferenceSource(fakeReference{err: boom}))
		_, err := p.Compare(ctx)
		require.ErrorIs(t, err, boom)
		require.Contains(t, err.Error(), "similar tags of pop")
	})
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(t)
	p := newTestPipeline(t, settings,
		options.WithFactSource(newFacts()),
		options.WithReferenceSource(fakeReference{}),
	)

	results, err := p.Run(ctx)
	require.NoError(t, err)
	require.Len(t, results, len(Stages))
	for i, res := range results {
		require.Equal(t, Stages[i], res.Stage)
		require.GreaterOrEqual(t, res.Duration(), time.Duration(0))
	}

	entries, err := os.ReadDir(settings.OutputDir)
	require.NoError(t, err)
	require.Len(t, entries, 3)
}

func TestRunUnknownStage(t *testing.T) {
	p := newTestPipeline(t, testSettings(t), options.WithFactSource(newFacts()))

	results, err := p.Run(context.Background(), StageLoad, "plot")
	require.ErrorIs(t, err, ErrUnknownStage)
	require.Len(t, results, 1)
}
