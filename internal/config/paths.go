package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths centralizes the artifact directory layout. All writers resolve
// their output locations through this type so the on-disk structure is
// defined in exactly one place.
type Paths struct {
	BaseDir    string
	PlotsDir   string
	MapsDir    string
	ReportsDir string
}

// NewPaths builds the artifact layout from the output configuration,
// resolving the plot/map/report directories under the base directory.
func NewPaths(cfg OutputConfig) *Paths {
	return &Paths{
		BaseDir:    cfg.BaseDir,
		PlotsDir:   filepath.Join(cfg.BaseDir, cfg.PlotsDir),
		MapsDir:    filepath.Join(cfg.BaseDir, cfg.MapsDir),
		ReportsDir: filepath.Join(cfg.BaseDir, cfg.ReportsDir),
	}
}

// EnsureDirs creates the artifact directories if they do not exist yet.
func (p *Paths) EnsureDirs() error {
	for _, dir := range []string{p.PlotsDir, p.MapsDir, p.ReportsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// GetPlotPath returns the full path for a plot artifact.
func (p *Paths) GetPlotPath(filename string) string {
	return filepath.Join(p.PlotsDir, filename)
}

// GetMapPath returns the full path for a map artifact.
func (p *Paths) GetMapPath(filename string) string {
	return filepath.Join(p.MapsDir, filename)
}

// GetReportPath returns the full path for a report artifact.
func (p *Paths) GetReportPath(filename string) string {
	return filepath.Join(p.ReportsDir, filename)
}
