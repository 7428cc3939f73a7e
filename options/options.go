// Package options provides functional options for configuring a Pipeline.
package options

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/botirk38/lastcorr/backends"
	"github.com/botirk38/lastcorr/lastfm"
	"github.com/botirk38/lastcorr/similarity"
	"github.com/botirk38/lastcorr/store"
	"github.com/botirk38/lastcorr/types"
)

// Option represents a configuration option for a Pipeline
type Option func(*Config) error

// Config holds the collaborators of a Pipeline
type Config struct {
	Store     *store.Store
	Datasets  types.DatasetBackend
	Facts     types.FactSource
	Reference types.ReferenceSource
	Metric    similarity.Func
	Workers   int
	Logger    *slog.Logger
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Datasets: backends.Discard{},
		Metric:   similarity.Pearson,
		Workers:  runtime.GOMAXPROCS(0),
		Logger:   slog.Default(),
	}
}

// Apply applies all the given options to the config
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Store == nil {
		return errors.New("store is required - use WithStore or WithStorePath")
	}
	if c.Datasets == nil {
		return errors.New("dataset backend is required - use WithDatasetBackend, WithMemoryDatasets, etc.")
	}
	if c.Metric == nil {
		return errors.New("metric is required")
	}
	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}
	return nil
}

// WithStore uses an already opened store
func WithStore(s *store.Store) Option {
	return func(cfg *Config) error {
		if s == nil {
			return errors.New("store cannot be nil")
		}
		cfg.Store = s
		return nil
	}
}

// WithStorePath opens the SQLite store at path
func WithStorePath(path string) Option {
	return func(cfg *Config) error {
		s, err := store.Open(context.Background(), path)
		if err != nil {
			return err
		}
		cfg.Store = s
		return nil
	}
}

// WithDatasetBackend sets up a dataset backend through the backend factory
func WithDatasetBackend(backendType types.BackendType, config types.BackendConfig) Option {
	return func(cfg *Config) error {
		factory := &backends.BackendFactory{}
		backend, err := factory.NewBackend(backendType, config)
		if err != nil {
			return err
		}
		cfg.Datasets = backend
		return nil
	}
}

// WithMemoryDatasets keeps datasets in an LRU in-memory backend
func WithMemoryDatasets(capacity int) Option {
	return WithDatasetBackend(types.BackendMemory, types.BackendConfig{Capacity: capacity})
}

// WithFileDatasets writes datasets as JSON files under dir
func WithFileDatasets(dir string) Option {
	return WithDatasetBackend(types.BackendFile, types.BackendConfig{Dir: dir})
}

// WithRedisDatasets sets up a Redis dataset backend
func WithRedisDatasets(addr string, db int) Option {
	return WithDatasetBackend(types.BackendRedis, types.BackendConfig{
		ConnectionString: addr,
		Database:         db,
	})
}

// WithCustomDatasets allows using a pre-configured dataset backend
func WithCustomDatasets(backend types.DatasetBackend) Option {
	return func(cfg *Config) error {
		if backend == nil {
			return errors.New("dataset backend cannot be nil")
		}
		cfg.Datasets = backend
		return nil
	}
}

// WithLastFM uses one Last.fm client as fact source and reference source
func WithLastFM(config lastfm.Config) Option {
	return func(cfg *Config) error {
		client, err := lastfm.NewClient(config)
		if err != nil {
			return err
		}
		cfg.Facts = client
		cfg.Reference = client
		return nil
	}
}

// WithFactSource sets where the loader downloads artists and tags from
func WithFactSource(src types.FactSource) Option {
	return func(cfg *Config) error {
		if src == nil {
			return errors.New("fact source cannot be nil")
		}
		cfg.Facts = src
		return nil
	}
}

// WithReferenceSource sets where the external similarity rankings come from
func WithReferenceSource(src types.ReferenceSource) Option {
	return func(cfg *Config) error {
		if src == nil {
			return errors.New("reference source cannot be nil")
		}
		cfg.Reference = src
		return nil
	}
}

// WithMetric selects the similarity metric by name
func WithMetric(name string) Option {
	return func(cfg *Config) error {
		fn, err := similarity.ByName(name)
		if err != nil {
			return err
		}
		cfg.Metric = fn
		return nil
	}
}

// WithMetricFunc sets a custom similarity function
func WithMetricFunc(fn similarity.Func) Option {
	return func(cfg *Config) error {
		if fn == nil {
			return errors.New("metric cannot be nil")
		}
		cfg.Metric = fn
		return nil
	}
}

// WithWorkers bounds the correlation worker pool
func WithWorkers(n int) Option {
	return func(cfg *Config) error {
		if n < 1 {
			return errors.New("workers must be at least 1")
		}
		cfg.Workers = n
		return nil
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.Logger = logger
		return nil
	}
}
