package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/botirk38/lastcorr/config"
	"github.com/botirk38/lastcorr/pipeline"
	"github.com/botirk38/lastcorr/types"
)

func TestNeedsAPI(t *testing.T) {
	tests := []struct {
		stages []string
		want   bool
	}{
		{nil, true},
		{[]string{pipeline.StageLoad}, true},
		{[]string{pipeline.StageTags, pipeline.StageArtists}, false},
		{[]string{pipeline.StageTags, pipeline.StageCompare}, true},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.stages, ","), func(t *testing.T) {
			require.Equal(t, tt.want, needsAPI(tt.stages))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger, err := newLogger(cfg, &buf)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "stage", "tags")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"msg":"shown"`)
	require.Contains(t, buf.String(), `"stage":"tags"`)

	cfg.LogLevel = "loud"
	_, err = newLogger(cfg, &buf)
	require.Error(t, err)
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	printResults(&buf, []*pipeline.StageResult{
		{
			Stage:  pipeline.StageLoad,
			Stored: 12,
			Fetch:  &types.FetchResult{Requested: 3, Loaded: 2, Failed: []string{"Eno"}},
		},
		{Stage: pipeline.StageTags, Pairs: 15, Stored: 15, Files: []string{"docs/tag-correlation-heatmap.html"}},
	})

	out := buf.String()
	require.Contains(t, out, "STAGE")
	require.Contains(t, out, "docs/tag-correlation-heatmap.html")
	require.Contains(t, out, "1 of 3 artists failed: Eno")
}

func TestCommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, stage := range pipeline.Stages {
		require.True(t, names[stage], stage)
	}
	require.True(t, names["run"])
}
