// Package ingest reads survey CSV exports and merges vessel position
// tracks into them. File reads go through a retrying reader because the
// data commonly lives on network shares that drop the occasional read.
package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"echocli/internal/dataset"
	"echocli/internal/errors"
	"echocli/internal/infrastructure"
)

// columnMap normalizes vendor header variants to canonical names after
// lowercasing. Echo-sounder exports disagree on the time column name and
// GPS exports abbreviate the coordinates.
var columnMap = map[string]string{
	"time":     "timestamp",
	"datetime": "timestamp",
	"date":     "timestamp",
	"lat":      "latitude",
	"lon":      "longitude",
	"long":     "longitude",
}

// timeLayouts are tried in order when parsing timestamp cells.
var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05.999999",
	"2006-01-02",
}

// Loader reads CSV/TSV survey files into datasets.
type Loader struct {
	// Retries is how many read attempts each file gets before the
	// load fails.
	Retries int
}

// NewLoader creates a loader that tries each file up to retries times.
func NewLoader(retries int) *Loader {
	if retries < 1 {
		retries = 1
	}
	return &Loader{Retries: retries}
}

// ListFiles globs pattern under dir and returns the matches sorted.
func (l *Loader) ListFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Load(filepath.Join(dir, pattern), 0, err)
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		infrastructure.GetLogger().Warn("no files matched",
			slog.String("dir", dir), slog.String("pattern", pattern))
	}
	return matches, nil
}

// LoadFiles reads and concatenates the given files into one dataset.
// The delimiter follows the first file's extension: tab for .tsv and
// .txt, comma otherwise. Headers are lowercased, trimmed and mapped to
// canonical names; the timestamp column is parsed into time cells.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) (*dataset.Dataset, error) {
	if len(paths) == 0 {
		return nil, errors.Load("(no files)", 0, fmt.Errorf("no input files provided"))
	}
	sep := ','
	switch strings.ToLower(filepath.Ext(paths[0])) {
	case ".tsv", ".txt":
		sep = '\t'
	}

	logger := infrastructure.GetLogger()
	out := dataset.New()
	for _, path := range paths {
		raw, attempts, err := l.readFile(ctx, path)
		if err != nil {
			return nil, errors.Load(path, attempts, err)
		}
		if err := appendCSV(out, raw, sep); err != nil {
			return nil, errors.Load(path, attempts, err)
		}
	}
	logger.Info("loaded survey files",
		slog.Int("files", len(paths)),
		slog.Int("rows", out.NumRows()),
		slog.Int("columns", len(out.Columns())))
	return out, nil
}

// readFile reads one file with fibonacci-backoff retries.
func (l *Loader) readFile(ctx context.Context, path string) ([]byte, int, error) {
	var raw []byte
	attempts := 0
	b := retry.NewFibonacci(200 * time.Millisecond)
	err := retry.Do(ctx, retry.WithMaxRetries(uint64(l.Retries-1), b), func(ctx context.Context) error {
		attempts++
		var err error
		raw, err = os.ReadFile(path)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	return raw, attempts, err
}

// appendCSV parses one file's rows into the accumulating dataset.
func appendCSV(out *dataset.Dataset, raw []byte, sep rune) error {
	r := csv.NewReader(bytes.NewReader(raw))
	r.Comma = sep
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		name := strings.ToLower(strings.TrimSpace(h))
		if mapped, ok := columnMap[name]; ok {
			name = mapped
		}
		header[i] = name
	}

	for _, record := range records[1:] {
		row := make(map[string]dataset.Cell, len(header))
		for i, name := range header {
			if i >= len(record) {
				row[name] = dataset.Missing()
				continue
			}
			row[name] = parseCell(name, record[i])
		}
		out.AppendRow(row)
	}
	return nil
}

// parseCell types one CSV field. The timestamp column is parsed as a
// time, everything else as a float when possible and a string otherwise.
func parseCell(column, value string) dataset.Cell {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "nan") || strings.EqualFold(value, "null") {
		return dataset.Missing()
	}
	if column == "timestamp" {
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, value); err == nil {
				return dataset.Time(t)
			}
		}
		return dataset.Missing()
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return dataset.Float(f)
	}
	return dataset.String(value)
}
