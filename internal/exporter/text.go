package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"echocli/internal/config"
)

// TextWriter writes plain-text reports.
type TextWriter struct {
	paths *config.Paths
}

// NewTextWriter creates a new text writer instance.
func NewTextWriter(paths *config.Paths) *TextWriter {
	return &TextWriter{paths: paths}
}

// WriteReport writes content to a text file. Relative paths land in the
// reports directory.
func (w *TextWriter) WriteReport(filePath, content string) error {
	fullPath := filePath
	if !filepath.IsAbs(fullPath) {
		fullPath = w.paths.GetReportPath(fullPath)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
