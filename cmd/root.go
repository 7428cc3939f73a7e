// Package cmd implements the lastcorr command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/botirk38/lastcorr/config"
)

var (
	cfgFile   string
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "lastcorr",
	Short: "Correlate Last.fm tags and artists",
	Long: `lastcorr downloads the Last.fm artist chart with each artist's top tags,
computes pairwise tag and artist correlations and compares them with the
similarity rankings published by Last.fm.

Stages run in order: load, tags, artists, compare.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./.lastcorr.yaml or $HOME/.lastcorr.yaml)")
	pf.String("db", "", "SQLite database path")
	pf.String("output", "", "directory for heatmaps and comparison listings")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log format: text or json")
	pf.String("datasets", "", "dataset backend: memory, file, redis or none")
	pf.String("metric", "", "similarity metric: pearson, cosine, euclidean or manhattan")
	pf.Int("workers", 0, "parallel correlation workers")
	pf.String("tag", "", "focal tag of the tag comparison")
	pf.String("artist", "", "focal artist of the artist stage and comparison")

	for key, flag := range map[string]string{
		"db_path":             "db",
		"output_dir":          "output",
		"log_level":           "log-level",
		"log_format":          "log-format",
		"datasets.backend":    "datasets",
		"correlation.metric":  "metric",
		"correlation.workers": "workers",
		"tags.focal":          "tag",
		"artists.focal":       "artist",
	} {
		viper.BindPFlag(key, pf.Lookup(flag))
	}

	rootCmd.AddCommand(loadCmd, tagsCmd, artistsCmd, compareCmd, runCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".lastcorr")
	}

	config.SetDefaults(viper.GetViper())
	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			configErr = errors.Wrap(err, "failed to read config file")
		}
	}
}

// loadConfig returns the merged configuration and a logger built from it.
func loadConfig(stderr io.Writer) (*config.Config, *slog.Logger, error) {
	if configErr != nil {
		return nil, nil, configErr
	}
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return nil, nil, err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("config file loaded", "path", used)
	}
	return cfg, logger, nil
}

func newLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
