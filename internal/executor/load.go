package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"echocli/internal/errors"
	"echocli/internal/ingest"
	"echocli/internal/interpreter"
	"echocli/internal/pipeline"
)

// runLoad reads the survey files, merges vessel positions when a track
// file is available, and installs the result as the session dataset.
func (e *Executor) runLoad(ctx context.Context, c interpreter.LoadCommand) (Result, error) {
	dir := c.Dir
	if dir == "" {
		dir, _ = e.sess.Setting("dir")
	}
	pattern := c.Pattern
	if pattern == "" {
		pattern, _ = e.sess.Setting("pattern")
	}
	positions := c.Positions
	if positions == "" {
		positions, _ = e.sess.Setting("positions")
	}

	files, err := e.loader.ListFiles(dir, pattern)
	if err != nil {
		return Result{}, err
	}
	// The track file often sits next to the survey files and matches the
	// same pattern; it must not be ingested as measurements.
	posPath := resolvePositionsPath(dir, positions)
	files = withoutFile(files, posPath)
	if len(files) == 0 {
		return Result{}, errors.Load(filepath.Join(dir, pattern), 0,
			fmt.Errorf("no files matched"))
	}

	data, err := e.loader.LoadFiles(ctx, files)
	if err != nil {
		return Result{}, err
	}

	var warnings []string
	matchNote := ""
	if posPath == "" {
		warnings = append(warnings, "no positions file found, maps need latitude/longitude")
	} else {
		posData, err := e.loader.LoadFiles(ctx, []string{posPath})
		if err != nil {
			return Result{}, err
		}
		merger := &ingest.Merger{
			Tolerance:      e.cfg.Processing.MergeTolerance.Std(),
			EastingColumn:  e.cfg.Coordinates.EastingColumn,
			NorthingColumn: e.cfg.Coordinates.NorthingColumn,
		}
		if e.cfg.Coordinates.TransformOnLoad {
			merger.Projector = e.projector
		}
		var rate float64
		if e.cfg.Processing.MergeInterpolate {
			data, rate, err = merger.MergeInterpolated(data, posData)
		} else {
			data, rate, err = merger.MergeNearest(data, posData)
		}
		if err != nil {
			return Result{}, err
		}
		matchNote = fmt.Sprintf(", %.1f%% positions matched", rate)
	}

	if data.HasColumn(pipeline.TimeColumn) {
		if err := data.SortByTime(pipeline.TimeColumn); err != nil {
			return Result{}, err
		}
	} else {
		warnings = append(warnings, "no timestamp column found, time-based commands will fail")
	}

	dropped := e.sess.ReplaceDataset(data)
	// Remembered map scales belong to the previous dataset's ranges.
	e.sess.Scales().Reset()
	if len(dropped) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"derived variables dropped by reload: %s (re-run create/calc to restore them)",
			strings.Join(dropped, ", ")))
	}

	msg := fmt.Sprintf("loaded %d rows, %d columns from %d files%s",
		data.NumRows(), len(data.Columns()), len(files), matchNote)
	return Result{Message: msg, Warnings: warnings}, nil
}

// withoutFile drops path from files, comparing cleaned paths.
func withoutFile(files []string, path string) []string {
	if path == "" {
		return files
	}
	out := files[:0]
	for _, f := range files {
		if filepath.Clean(f) != filepath.Clean(path) {
			out = append(out, f)
		}
	}
	return out
}

// resolvePositionsPath finds the track file, trying the name as given
// and then relative to the data directory. Empty when nothing exists.
func resolvePositionsPath(dir, positions string) string {
	if positions == "" {
		return ""
	}
	for _, candidate := range []string{positions, filepath.Join(dir, positions)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
