// Package config holds the settings of every pipeline stage and loads them
// from a YAML file, LASTCORR_* environment variables and command line flags.
package config

import (
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/botirk38/lastcorr/lastfm"
	"github.com/botirk38/lastcorr/similarity"
	"github.com/botirk38/lastcorr/topk"
	"github.com/botirk38/lastcorr/types"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "LASTCORR"

// Config is the configuration of a pipeline run.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is text or json.
	LogFormat string `mapstructure:"log_format"`
	// DBPath is the SQLite database file.
	DBPath string `mapstructure:"db_path"`
	// OutputDir receives heatmap pages and comparison listings.
	OutputDir string `mapstructure:"output_dir"`

	LastFM      LastFM      `mapstructure:"lastfm"`
	Datasets    Datasets    `mapstructure:"datasets"`
	Correlation Correlation `mapstructure:"correlation"`
	Tags        Tags        `mapstructure:"tags"`
	Artists     Artists     `mapstructure:"artists"`
}

// LastFM configures the API client and the loader.
type LastFM struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Pages       int           `mapstructure:"pages"`
	PageSize    int           `mapstructure:"page_size"`
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// Datasets configures where intermediate arrays are dumped.
type Datasets struct {
	// Backend is memory, file, redis or none.
	Backend  string        `mapstructure:"backend"`
	Capacity int           `mapstructure:"capacity"`
	Dir      string        `mapstructure:"dir"`
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Correlation configures the pairwise computation.
type Correlation struct {
	Metric        string `mapstructure:"metric"`
	Workers       int    `mapstructure:"workers"`
	ProgressEvery int    `mapstructure:"progress_every"`
}

// Tags configures the tag stage and the tag comparison.
type Tags struct {
	Focal       string `mapstructure:"focal"`
	TopK        int    `mapstructure:"top_k"`
	MinCount    int    `mapstructure:"min_count"`
	MinArtists  int    `mapstructure:"min_artists"`
	ExcludeSelf bool   `mapstructure:"exclude_self"`
}

// Artists configures the artist stage and the artist comparison.
type Artists struct {
	Focal string `mapstructure:"focal"`
	// PersistAll stores every pair instead of the focal artist's only.
	PersistAll bool `mapstructure:"persist_all"`
}

// Default returns the settings of the reference run.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		DBPath:    "data/lastfm.db",
		OutputDir: "docs",
		LastFM: LastFM{
			BaseURL:     lastfm.DefaultBaseURL,
			Pages:       10,
			PageSize:    100,
			Interval:    lastfm.DefaultInterval,
			MaxAttempts: lastfm.DefaultMaxAttempts,
			Backoff:     lastfm.DefaultBackoff,
			MaxBackoff:  lastfm.DefaultMaxBackoff,
			Timeout:     lastfm.DefaultTimeout,
		},
		Datasets: Datasets{
			Backend:  string(types.BackendFile),
			Capacity: 64,
			Dir:      "data/datasets",
		},
		Correlation: Correlation{
			Metric:        "pearson",
			Workers:       runtime.GOMAXPROCS(0),
			ProgressEvery: 10000,
		},
		Tags: Tags{
			Focal:       "80s",
			TopK:        topk.DefaultK,
			MinCount:    50,
			MinArtists:  5,
			ExcludeSelf: true,
		},
		Artists: Artists{
			Focal: "Cyndi Lauper",
		},
	}
}

// Validate checks the settings that would otherwise fail deep inside a stage.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.DBPath == "" {
		return errors.New("db_path is required")
	}
	if c.LastFM.Pages < 1 || c.LastFM.PageSize < 1 {
		return errors.Errorf("invalid chart paging %d x %d", c.LastFM.Pages, c.LastFM.PageSize)
	}
	if c.LastFM.Interval < 0 {
		return errors.New("lastfm.interval must not be negative")
	}
	if c.LastFM.MaxAttempts < 1 {
		return errors.New("lastfm.max_attempts must be at least 1")
	}

	switch types.BackendType(c.Datasets.Backend) {
	case types.BackendMemory, types.BackendFile, types.BackendNone:
	case types.BackendRedis:
		if c.Datasets.RedisURL == "" {
			return errors.New("datasets.redis_url is required for the redis backend")
		}
	default:
		return errors.Errorf("unknown dataset backend %q", c.Datasets.Backend)
	}

	if _, err := similarity.ByName(c.Correlation.Metric); err != nil {
		return errors.Wrap(err, "correlation.metric")
	}
	if c.Correlation.Workers < 1 {
		return errors.New("correlation.workers must be at least 1")
	}
	if c.Tags.TopK < 1 {
		return errors.New("tags.top_k must be at least 1")
	}
	if c.Tags.Focal == "" || c.Artists.Focal == "" {
		return errors.New("focal tag and artist are required")
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, errors.Wrapf(err, "invalid log level %q", c.LogLevel)
	}
	return level, nil
}

// BackendConfig converts the dataset settings for the backend factory.
func (c *Config) BackendConfig() types.BackendConfig {
	bc := types.BackendConfig{
		Capacity:         c.Datasets.Capacity,
		Dir:              c.Datasets.Dir,
		ConnectionString: c.Datasets.RedisURL,
		TTL:              c.Datasets.TTL,
	}
	if c.Datasets.Prefix != "" {
		bc.Options = map[string]any{"prefix": c.Datasets.Prefix}
	}
	return bc
}

// ClientConfig converts the API settings for the Last.fm client.
func (c *Config) ClientConfig() lastfm.Config {
	cc := lastfm.DefaultConfig()
	cc.APIKey = c.LastFM.APIKey
	cc.BaseURL = c.LastFM.BaseURL
	cc.Interval = c.LastFM.Interval
	cc.MaxAttempts = c.LastFM.MaxAttempts
	cc.Backoff = c.LastFM.Backoff
	cc.MaxBackoff = c.LastFM.MaxBackoff
	cc.Timeout = c.LastFM.Timeout
	return cc
}

// SetDefaults registers every default on v so that environment variables
// are picked up for keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("output_dir", d.OutputDir)

	v.SetDefault("lastfm.api_key", d.LastFM.APIKey)
	v.SetDefault("lastfm.base_url", d.LastFM.BaseURL)
	v.SetDefault("lastfm.pages", d.LastFM.Pages)
	v.SetDefault("lastfm.page_size", d.LastFM.PageSize)
	v.SetDefault("lastfm.interval", d.LastFM.Interval)
	v.SetDefault("lastfm.max_attempts", d.LastFM.MaxAttempts)
	v.SetDefault("lastfm.backoff", d.LastFM.Backoff)
	v.SetDefault("lastfm.max_backoff", d.LastFM.MaxBackoff)
	v.SetDefault("lastfm.timeout", d.LastFM.Timeout)

	v.SetDefault("datasets.backend", d.Datasets.Backend)
	v.SetDefault("datasets.capacity", d.Datasets.Capacity)
	v.SetDefault("datasets.dir", d.Datasets.Dir)
	v.SetDefault("datasets.redis_url", d.Datasets.RedisURL)
	v.SetDefault("datasets.prefix", d.Datasets.Prefix)
	v.SetDefault("datasets.ttl", d.Datasets.TTL)

	v.SetDefault("correlation.metric", d.Correlation.Metric)
	v.SetDefault("correlation.workers", d.Correlation.Workers)
	v.SetDefault("correlation.progress_every", d.Correlation.ProgressEvery)

	v.SetDefault("tags.focal", d.Tags.Focal)
	v.SetDefault("tags.top_k", d.Tags.TopK)
	v.SetDefault("tags.min_count", d.Tags.MinCount)
	v.SetDefault("tags.min_artists", d.Tags.MinArtists)
	v.SetDefault("tags.exclude_self", d.Tags.ExcludeSelf)

	v.SetDefault("artists.focal", d.Artists.Focal)
	v.SetDefault("artists.persist_all", d.Artists.PersistAll)
}

// BindEnv makes v read LASTCORR_* variables, with nested keys joined by
// underscores (lastfm.api_key is LASTCORR_LASTFM_API_KEY).
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v. Call SetDefaults
// and BindEnv on v first.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}
