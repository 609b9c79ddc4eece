package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRunConfig().PopulationSize, cfg.PopulationSize)
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devana.toml")
	original := DefaultRunConfig()
	original.PopulationSize = 42
	original.Main.MU = 0.33

	require.NoError(t, Save(path, original))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 42, loaded.PopulationSize)
	assert.InDelta(t, 0.33, loaded.Main.MU, 1e-9)
	assert.Len(t, loaded.Bounds, len(original.Bounds))
}

func TestRunConfig_ToGAConfigValidates(t *testing.T) {
	cfg := DefaultRunConfig()
	gaCfg := cfg.ToGAConfig()
	assert.NoError(t, gaCfg.Validate())
}

func TestRunConfig_ToFitnessConfigValidates(t *testing.T) {
	cfg := DefaultRunConfig()
	fCfg := cfg.ToFitnessConfig(nil)
	assert.NoError(t, fCfg.Validate())
}

func TestRunConfig_ToParameterSpaceHasFullGeneCount(t *testing.T) {
	cfg := DefaultRunConfig()
	space := cfg.ToParameterSpace()
	assert.Equal(t, 48, space.Len())
}

func TestWatchFile_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devana.toml")
	initial := DefaultRunConfig()
	initial.PopulationSize = 10
	require.NoError(t, Save(path, initial))

	shared := NewSharedRunConfig(initial)
	reloaded := make(chan RunConfig, 1)
	w, err := WatchFile(path, shared, func(cfg RunConfig) { reloaded <- cfg }, nil)
	require.NoError(t, err)
	defer w.Stop()

	updated := initial
	updated.PopulationSize = 77
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, mustTOML(t, updated), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 77, cfg.PopulationSize)
		assert.Equal(t, 77, shared.Get().PopulationSize)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not observe the file write")
	}
}

func mustTOML(t *testing.T, cfg RunConfig) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tmp.toml")
	require.NoError(t, Save(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
