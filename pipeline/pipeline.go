// Package pipeline runs the batch stages: loading the Last.fm corpus, tag and
// artist correlation, and the comparison with the API's similarity rankings.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/botirk38/lastcorr/config"
	"github.com/botirk38/lastcorr/options"
	"github.com/botirk38/lastcorr/store"
	"github.com/botirk38/lastcorr/types"
)

// Stage names.
const (
	StageLoad    = "load"
	StageTags    = "tags"
	StageArtists = "artists"
	StageCompare = "compare"
)

// Stages lists every stage in run order.
var Stages = []string{StageLoad, StageTags, StageArtists, StageCompare}

// ErrUnknownStage is returned by Run for a stage name not in Stages.
var ErrUnknownStage = errors.New("pipeline: unknown stage")

// Settings are the per-run parameters of the stages.
type Settings struct {
	OutputDir string

	ChartPages    int
	ChartPageSize int
	// ResumeLoad keeps already stored artists and only fetches tags of
	// artists that have none.
	ResumeLoad bool

	TagFilter     store.TripleFilter
	TagFocal      string
	TopK          int
	ArtistFocal   string
	PersistAll    bool
	ProgressEvery int
}

// SettingsFromConfig extracts the stage parameters from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		OutputDir:     cfg.OutputDir,
		ChartPages:    cfg.LastFM.Pages,
		ChartPageSize: cfg.LastFM.PageSize,
		TagFilter: store.TripleFilter{
			MinCount:    cfg.Tags.MinCount,
			MinEntities: cfg.Tags.MinArtists,
			ExcludeSelf: cfg.Tags.ExcludeSelf,
		},
		TagFocal:      cfg.Tags.Focal,
		TopK:          cfg.Tags.TopK,
		ArtistFocal:   cfg.Artists.Focal,
		PersistAll:    cfg.Artists.PersistAll,
		ProgressEvery: cfg.Correlation.ProgressEvery,
	}
}

// Event is one entry of a stage's log.
type Event struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   []any
}

// StageResult reports what a stage did.
type StageResult struct {
	Stage    string
	Started  time.Time
	Finished time.Time
	Events   []Event

	// Fetch is set by the load stage.
	Fetch *types.FetchResult
	// Pairs is the number of coefficients computed.
	Pairs int
	// Stored is the number of rows written to the database.
	Stored int
	// Datasets and Files list the dumps and documents written.
	Datasets []string
	Files    []string
}

// Duration returns how long the stage ran.
func (r *StageResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Pipeline runs the stages against one store and dataset backend.
type Pipeline struct {
	cfg      *options.Config
	settings Settings
	log      *slog.Logger
	now      func() time.Time
}

// New creates a Pipeline from settings and options.
func New(settings Settings, opts ...options.Option) (*Pipeline, error) {
	cfg := options.NewConfig()
	if err := cfg.Apply(opts...); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if settings.TopK < 1 {
		return nil, errors.New("pipeline: top-k must be at least 1")
	}
	return &Pipeline{
		cfg:      cfg,
		settings: settings,
		log:      cfg.Logger,
		now:      time.Now,
	}, nil
}

// Store returns the underlying fact store.
func (p *Pipeline) Store() *store.Store {
	return p.cfg.Store
}

// Datasets returns the dataset backend.
func (p *Pipeline) Datasets() types.DatasetBackend {
	return p.cfg.Datasets
}

// Close releases the store and the dataset backend.
func (p *Pipeline) Close() error {
	dsErr := p.cfg.Datasets.Close()
	if err := p.cfg.Store.Close(); err != nil {
		return err
	}
	return dsErr
}

// Run executes the named stages in the given order. All stages run when none
// are named. It stops at the first failing stage and returns the results of
// the stages run so far.
func (p *Pipeline) Run(ctx context.Context, stages ...string) ([]*StageResult, error) {
	if len(stages) == 0 {
		stages = Stages
	}

	var results []*StageResult
	for _, name := range stages {
		var (
			res *StageResult
			err error
		)
		switch name {
		case StageLoad:
			res, err = p.Load(ctx)
		case StageTags:
			res, err = p.TagCorrelation(ctx)
		case StageArtists:
			res, err = p.ArtistCorrelation(ctx)
		case StageCompare:
			res, err = p.Compare(ctx)
		default:
			return results, errors.Wrap(ErrUnknownStage, name)
		}
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// run tracks a stage: it stamps the result and logs start and end.
type run struct {
	p   *Pipeline
	res *StageResult
	log *slog.Logger
}

func (p *Pipeline) start(stage string) *run {
	r := &run{
		p:   p,
		res: &StageResult{Stage: stage, Started: p.now()},
		log: p.log.With("stage", stage),
	}
	r.log.Info("stage started")
	return r
}

func (r *run) info(msg string, args ...any) {
	r.event(slog.LevelInfo, msg, args...)
}

func (r *run) warn(msg string, args ...any) {
	r.event(slog.LevelWarn, msg, args...)
}

func (r *run) event(level slog.Level, msg string, args ...any) {
	r.res.Events = append(r.res.Events, Event{Time: r.p.now(), Level: level, Message: msg, Attrs: args})
	r.log.Log(context.Background(), level, msg, args...)
}

// finish closes the stage. A non-nil err is logged and returned wrapped with
// the stage name.
func (r *run) finish(err error) (*StageResult, error) {
	r.res.Finished = r.p.now()
	if err != nil {
		r.event(slog.LevelError, "stage failed", "error", err)
		return r.res, errors.Wrapf(err, "%s stage", r.res.Stage)
	}
	r.log.Info("stage finished", "duration", r.res.Duration())
	return r.res, nil
}

// dump writes a dataset under "<stage>.<name>".
func (r *run) dump(ctx context.Context, ds types.Dataset) error {
	ds.Name = r.res.Stage + "." + ds.Name
	ds.Created = r.p.now()
	if err := r.p.cfg.Datasets.Put(ctx, ds); err != nil {
		return errors.Wrapf(err, "failed to store dataset %s", ds.Name)
	}
	r.res.Datasets = append(r.res.Datasets, ds.Name)
	return nil
}

// createOutput opens a file in the output directory for writing.
func (r *run) createOutput(name string) (*os.File, string, error) {
	dir := r.p.settings.OutputDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, "", errors.Wrap(err, "failed to create output directory")
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to create %s", path)
	}
	return f, path, nil
}

// writeOutput creates name in the output directory and fills it with write.
func (r *run) writeOutput(name string, write func(f *os.File) error) error {
	f, path, err := r.createOutput(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return errors.Wrapf(err, "failed to write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "failed to close %s", path)
	}
	r.res.Files = append(r.res.Files, path)
	r.info("file written", "path", path)
	return nil
}
