package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/botirk38/lastcorr/options"
	"github.com/botirk38/lastcorr/pipeline"
	"github.com/botirk38/lastcorr/types"
)

var resume bool

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Download the artist chart and every artist's top tags",
	Long: `Download the artist chart and the top tags of every charted artist into the
database. The API key is read from lastfm.api_key, LASTCORR_LASTFM_API_KEY or
LASTFM_API_KEY.

Artists whose tags still fail after all retries are reported and can be
fetched later with --resume.`,
	Args: cobra.NoArgs,
	RunE: stageRunner(pipeline.StageLoad),
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Correlate tags and render the top pairs heatmap",
	Args:  cobra.NoArgs,
	RunE:  stageRunner(pipeline.StageTags),
}

var artistsCmd = &cobra.Command{
	Use:   "artists",
	Short: "Correlate artists by their tag profiles",
	Args:  cobra.NoArgs,
	RunE:  stageRunner(pipeline.StageArtists),
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare local correlations with Last.fm similarity rankings",
	Args:  cobra.NoArgs,
	RunE:  stageRunner(pipeline.StageCompare),
}

var runCmd = &cobra.Command{
	Use:   "run [stage...]",
	Short: "Run several stages in order",
	Long: `Run the named stages in the given order, or all of them when none are named:

  lastcorr run                  # load, tags, artists, compare
  lastcorr run tags compare     # recompute tags and redo the comparison`,
	ValidArgs: pipeline.Stages,
	Args:      cobra.OnlyValidArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStages(cmd, args...)
	},
}

func init() {
	for _, c := range []*cobra.Command{loadCmd, runCmd} {
		c.Flags().BoolVar(&resume, "resume", false, "keep stored artists and fetch only missing tags")
	}

	loadCmd.Flags().Int("pages", 0, "chart pages to download")
	viper.BindPFlag("lastfm.pages", loadCmd.Flags().Lookup("pages"))

	tagsCmd.Flags().Int("top-k", 0, "number of top pairs in the heatmap")
	viper.BindPFlag("tags.top_k", tagsCmd.Flags().Lookup("top-k"))

	artistsCmd.Flags().Bool("all", false, "store every artist pair instead of the focal artist's only")
	viper.BindPFlag("artists.persist_all", artistsCmd.Flags().Lookup("all"))
}

func stageRunner(stage string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		return runStages(cmd, stage)
	}
}

// needsAPI reports whether any of stages talks to Last.fm.
func needsAPI(stages []string) bool {
	if len(stages) == 0 {
		return true
	}
	for _, s := range stages {
		if s == pipeline.StageLoad || s == pipeline.StageCompare {
			return true
		}
	}
	return false
}

func runStages(cmd *cobra.Command, stages ...string) error {
	cfg, logger, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	opts := []options.Option{
		options.WithStorePath(cfg.DBPath),
		options.WithDatasetBackend(types.BackendType(cfg.Datasets.Backend), cfg.BackendConfig()),
		options.WithMetric(cfg.Correlation.Metric),
		options.WithWorkers(cfg.Correlation.Workers),
		options.WithLogger(logger),
	}
	if needsAPI(stages) {
		opts = append(opts, options.WithLastFM(cfg.ClientConfig()))
	}

	settings := pipeline.SettingsFromConfig(cfg)
	settings.ResumeLoad = resume

	p, err := pipeline.New(settings, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	results, runErr := p.Run(cmd.Context(), stages...)
	printResults(cmd.OutOrStdout(), results)
	return runErr
}

func printResults(w io.Writer, results []*pipeline.StageResult) {
	if len(results) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tDURATION\tPAIRS\tSTORED\tFILES")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n",
			r.Stage, r.Duration().Round(time.Millisecond), r.Pairs, r.Stored, strings.Join(r.Files, ", "))
	}
	tw.Flush()

	for _, r := range results {
		if r.Fetch != nil && !r.Fetch.Complete() {
			fmt.Fprintf(w, "\n%d of %d artists failed: %s\nrerun with `lastcorr load --resume` to retry them\n",
				len(r.Fetch.Failed), r.Fetch.Requested, strings.Join(r.Fetch.Failed, ", "))
		}
	}
}
