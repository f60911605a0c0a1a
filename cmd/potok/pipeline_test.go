package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OJezu/potok/internal/logging"
	"github.com/OJezu/potok/pkg/potok"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunPipeline_TransformsInOrder(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	stats, err := runPipeline(testCtx(t), pipelineConfig{Transform: "upper"},
		strings.NewReader("alpha\n\n  \nbeta\ngamma\n"), &out, logging.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "ALPHA\nBETA\nGAMMA\n", out.String())
	assert.Equal(t, pipelineStats{Read: 5, Written: 3}, stats)
}

func TestRunPipeline_PassNullsStillSkipsBlankLines(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	_, err := runPipeline(testCtx(t), pipelineConfig{Options: potok.Options{PassNulls: true}},
		strings.NewReader("a\n\nb\n"), &out, logging.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", out.String())
}

func TestRunPipeline_UnknownTransform(t *testing.T) {
	t.Parallel()

	_, err := runPipeline(testCtx(t), pipelineConfig{Transform: "reverse"},
		strings.NewReader("a\n"), &bytes.Buffer{}, logging.NewNop())
	assert.ErrorIs(t, err, potok.ErrConfiguration)
}

func TestRunPipeline_DumpsMetrics(t *testing.T) {
	t.Parallel()

	var out, metrics bytes.Buffer
	_, err := runPipeline(testCtx(t), pipelineConfig{
		Options: potok.Options{Name: "lines"},
		Metrics: &metrics,
	}, strings.NewReader("a\n\nb\n"), &out, logging.NewNop())
	require.NoError(t, err)

	dump := metrics.String()
	assert.Contains(t, dump, `potok_node_entered_total{node="lines"} 3`)
	assert.Contains(t, dump, `potok_node_dropped_total{node="lines"} 1`)
	assert.Contains(t, dump, "potok_node_drain_duration_seconds")
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "potok.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transform: trim\nnode:\n  name: lines\n  pass_nulls: true\n"), 0o600))

	fc, opts, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "trim", fc.Transform)
	assert.Equal(t, potok.Options{Name: "lines", PassNulls: true}, opts)

	empty, none, err := loadConfig("")
	require.NoError(t, err)
	assert.Empty(t, empty.Transform)
	assert.Equal(t, potok.Options{}, none)
}

func TestLoadConfig_UnknownNodeOption(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("node:\n  workers: 4\n"), 0o600))

	_, _, err := loadConfig(path)
	assert.ErrorIs(t, err, potok.ErrConfiguration)
}

func TestRunCommand(t *testing.T) {
	input := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(input, []byte("One\nTwo\n"), 0o600))

	for i := 0; i < 2; i++ {
		out := executeRoot(t, "run", "--input", input, "--transform", "lower", "--log-level", "error")
		assert.Equal(t, "one\ntwo\n", out)
	}
}

func executeRoot(t *testing.T, args ...string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	defer func() {
		cancel()
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		// cobra keeps the first context on the subcommand.
		runCmd.SetContext(nil) //nolint:staticcheck
	}()

	require.NoError(t, rootCmd.ExecuteContext(ctx))
	return out.String()
}
