package cli

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/graphene/internal/config"
	"github.com/rcliao/graphene/internal/similarity"
	"github.com/rcliao/graphene/internal/temporal"
)

const frameJSON = `[{"subject":{"id":"person","xmin":10,"ymin":10,"xmax":50,"ymax":90},
 "predicate":{"id":"on"},
 "object":{"id":"chair","xmin":5,"ymin":50,"xmax":55,"ymax":100}}]`

func TestReadNames(t *testing.T) {
	names, err := readNames(strings.NewReader("cup\n\n# drinkware\n glass \nmug\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"cup", "glass", "mug"}, names)
}

func TestEngineSettings(t *testing.T) {
	cfg = &config.Config{Engine: config.EngineConfig{Alpha: 0.5, MinConfidence: 0.4, Epsilon: 0.2, Workers: 2}}
	t.Cleanup(func() { cfg = nil })

	cmd := &cobra.Command{Use: "test"}
	addEngineFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--alpha", "0.1"}))

	ec := engineSettings(cmd)
	assert.Equal(t, 0.1, ec.Alpha)
	assert.Equal(t, 0.4, ec.MinConfidence)
	assert.Equal(t, 0.2, ec.Epsilon)
	assert.Equal(t, 2, ec.Workers)
}

func TestWatchFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000.json", "001.json", "002.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(frameJSON), 0o644))
	}
	textPath := filepath.Join(t.TempDir(), "scene.txt")

	s := &session{
		graph:    temporal.New(similarity.Default(), temporal.WithIDGenerator(temporal.SequentialIDs())),
		engine:   config.EngineConfig{Epsilon: 0.3},
		params:   temporal.DefaultParams(),
		textPath: textPath,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, watchFrames(ctx, dir, 10*time.Millisecond, s))

	assert.Equal(t, []int{0, 1, 2}, s.graph.Frames())
	assert.Equal(t, 2, s.graph.Len())

	b, err := os.ReadFile(textPath)
	require.NoError(t, err)
	assert.Equal(t, "person_0 was on chair_0 in frame 0.\n", string(b))
}

func TestRootCmd_LoadsConfigAndRuns(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(home, "runs.db")

	RootCmd.SetArgs([]string{"similarity", "show", "--db", dbPath, "--log-level", "warn"})
	t.Cleanup(func() {
		RootCmd.SetArgs(nil)
		cfg = nil
	})

	require.NoError(t, RootCmd.Execute())
	require.NotNil(t, cfg)
	assert.Equal(t, dbPath, cfg.DB)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 0.3, cfg.Engine.Alpha)
}

func TestWatchFrames_SkipsMalformedFrame(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"000.json": frameJSON,
		"001.json": `[{"subject":{"id":""}}]`,
		"002.json": frameJSON,
		"003.json": frameJSON,
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}

	s := &session{
		graph:  temporal.New(similarity.Default(), temporal.WithIDGenerator(temporal.SequentialIDs())),
		engine: config.EngineConfig{Epsilon: 0.3},
		params: temporal.DefaultParams(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, watchFrames(ctx, dir, 10*time.Millisecond, s))

	assert.Equal(t, []int{0, 1, 2}, s.graph.Frames())
	assert.Equal(t, 2, s.graph.Len())
}

func TestWatchFrames_RejectsNonPositiveInterval(t *testing.T) {
	s := &session{graph: temporal.New(nil), params: temporal.DefaultParams()}
	for _, interval := range []time.Duration{0, -time.Second} {
		err := watchFrames(context.Background(), t.TempDir(), interval, s)
		assert.Error(t, err, "interval=%s", interval)
	}
}
