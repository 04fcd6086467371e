package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.Data.Dir)
	assert.Equal(t, "*.csv", cfg.Data.Pattern)
	assert.Equal(t, "backscatter", cfg.Data.PrimaryColumn)
	assert.Equal(t, 5*time.Second, cfg.Processing.MergeTolerance.Std())
	assert.Equal(t, 8, cfg.Processing.DefaultResolution)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.yaml")
	content := `
data:
  dir: /mnt/survey
  pattern: "acoustic_*.csv"
  positions_file: track.csv
processing:
  merge_tolerance: 10s
  default_resolution: 7
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, "/mnt/survey", cfg.Data.Dir)
	assert.Equal(t, "acoustic_*.csv", cfg.Data.Pattern)
	assert.Equal(t, "track.csv", cfg.Data.PositionsFile)
	assert.Equal(t, 10*time.Second, cfg.Processing.MergeTolerance.Std())
	assert.Equal(t, 7, cfg.Processing.DefaultResolution)
}

func TestLoadRejectsBadResolution(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(file, []byte("processing:\n  default_resolution: 22\n"), 0644))

	_, err := Load(file)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "default_resolution")
}

func TestSettingsSeedsSessionKeys(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	settings := cfg.Settings()
	assert.Equal(t, "data", settings["dir"])
	assert.Equal(t, "*.csv", settings["pattern"])
	assert.Equal(t, "8", settings["resolution"])
}

func TestPathsLayout(t *testing.T) {
	p := NewPaths(OutputConfig{BaseDir: "out", PlotsDir: "plots", MapsDir: "maps", ReportsDir: "reports"})

	assert.Equal(t, filepath.Join("out", "plots", "a.svg"), p.GetPlotPath("a.svg"))
	assert.Equal(t, filepath.Join("out", "maps", "m.html"), p.GetMapPath("m.html"))
	assert.Equal(t, filepath.Join("out", "reports", "r.txt"), p.GetReportPath("r.txt"))
}

func TestEnsureDirsCreatesLayout(t *testing.T) {
	base := t.TempDir()
	p := NewPaths(OutputConfig{BaseDir: base, PlotsDir: "plots", MapsDir: "maps", ReportsDir: "reports"})
	require.NoError(t, p.EnsureDirs())

	for _, dir := range []string{p.PlotsDir, p.MapsDir, p.ReportsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
