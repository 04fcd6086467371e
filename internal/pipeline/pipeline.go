// Package pipeline applies the shared data-preparation stages that run
// before analysis and rendering. The stages execute in one fixed order
// regardless of the order the modifiers were typed: date filter, outlier
// removal, min/max filter, sign flip, log transform, time aggregation.
// Every stage is a no-op when its modifier is absent.
package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/aclements/go-moremath/stats"

	"echocli/internal/dataset"
	"echocli/internal/errors"
	"echocli/internal/infrastructure"
	"echocli/internal/interpreter"
)

// TimeColumn is the canonical timestamp column the date filter and the
// aggregation stage operate on.
const TimeColumn = "timestamp"

// Report summarizes what the stages did, for the command result line.
type Report struct {
	// Column is the working column after all stages; the log stage
	// redirects it to the derived <col>_log column.
	Column string

	RowsIn          int
	RowsOut         int
	OutliersRemoved int
	OutOfRange      int
	LogExcluded     int
	Bins            int
}

// Summary renders the non-trivial counters in a single line.
func (r Report) Summary() string {
	s := fmt.Sprintf("%d rows", r.RowsOut)
	if r.OutliersRemoved > 0 {
		s += fmt.Sprintf(", %d outliers removed", r.OutliersRemoved)
	}
	if r.OutOfRange > 0 {
		s += fmt.Sprintf(", %d values outside min/max", r.OutOfRange)
	}
	if r.LogExcluded > 0 {
		s += fmt.Sprintf(", %d non-positive values excluded from log", r.LogExcluded)
	}
	if r.Bins > 0 {
		s += fmt.Sprintf(", %d time bins", r.Bins)
	}
	return s
}

// Apply runs the stages over a copy of the dataset for the given target
// column. The input dataset is never modified.
func Apply(d *dataset.Dataset, column string, mods interpreter.Modifiers) (*dataset.Dataset, Report, error) {
	logger := infrastructure.GetLogger()
	report := Report{Column: column, RowsIn: d.NumRows()}
	out := d.Clone()

	var err error
	if out, err = filterDates(out, mods.StartDate, mods.EndDate); err != nil {
		return nil, report, errors.Pipeline("date_filter", err)
	}
	if mods.Outliers != "" {
		n, err := removeOutliers(out, column, mods.Outliers, mods.ZThresh)
		if err != nil {
			return nil, report, errors.Pipeline("outlier_removal", err)
		}
		report.OutliersRemoved = n
	}
	if mods.Min != nil || mods.Max != nil {
		n, err := filterRange(out, column, mods.Min, mods.Max)
		if err != nil {
			return nil, report, errors.Pipeline("minmax_filter", err)
		}
		report.OutOfRange = n
	}
	if mods.Negative != nil && *mods.Negative {
		if err := flipSign(out, column); err != nil {
			return nil, report, errors.Pipeline("sign_flip", err)
		}
	}
	if mods.Log != nil && *mods.Log {
		logCol, n, err := logTransform(out, column)
		if err != nil {
			return nil, report, errors.Pipeline("log_transform", err)
		}
		report.Column = logCol
		report.LogExcluded = n
	}
	if mods.Interval != nil {
		agg, bins, err := Aggregate(out, mods.Interval.Duration)
		if err != nil {
			return nil, report, errors.Pipeline("aggregation", err)
		}
		out = agg
		report.Bins = bins
	}

	report.RowsOut = out.NumRows()
	logger.Debug("pipeline applied",
		slog.String("column", report.Column),
		slog.Int("rows_in", report.RowsIn),
		slog.Int("rows_out", report.RowsOut),
		slog.Int("outliers_removed", report.OutliersRemoved))
	return out, report, nil
}

// filterDates keeps rows whose timestamp lies within the bounds. Rows
// with a missing timestamp are dropped when a bound is set, since their
// membership cannot be decided.
func filterDates(d *dataset.Dataset, start, end *time.Time) (*dataset.Dataset, error) {
	if start == nil && end == nil {
		return d, nil
	}
	times, valid, err := d.Times(TimeColumn)
	if err != nil {
		return nil, err
	}
	keep := make([]bool, len(times))
	for i := range times {
		if !valid[i] {
			continue
		}
		if start != nil && times[i].Before(*start) {
			continue
		}
		if end != nil && times[i].After(*end) {
			continue
		}
		keep[i] = true
	}
	return d.Filter(keep)
}

// removeOutliers blanks cells the chosen detector flags. A column with
// zero variance, zero interquartile spread, or zero MAD has no
// meaningful score, so the stage leaves it untouched.
func removeOutliers(d *dataset.Dataset, column, method string, thresh float64) (int, error) {
	vals, valid, err := d.Floats(column)
	if err != nil {
		return 0, err
	}
	var present []float64
	for i, v := range vals {
		if valid[i] {
			present = append(present, v)
		}
	}
	if len(present) < 2 {
		return 0, nil
	}
	sample := stats.Sample{Xs: present}

	flag := func(float64) bool { return false }
	switch method {
	case "iqr":
		q1, q3 := sample.Quantile(0.25), sample.Quantile(0.75)
		spread := q3 - q1
		if spread == 0 {
			return 0, nil
		}
		lower, upper := q1-1.5*spread, q3+1.5*spread
		flag = func(v float64) bool { return v < lower || v > upper }
	case "zscore":
		// z-scores use the population standard deviation.
		mean := sample.Mean()
		var ss float64
		for _, v := range present {
			dev := v - mean
			ss += dev * dev
		}
		std := math.Sqrt(ss / float64(len(present)))
		if std == 0 {
			return 0, nil
		}
		flag = func(v float64) bool { return math.Abs((v-mean)/std) > thresh }
	case "modified_zscore":
		median := sample.Quantile(0.5)
		devs := make([]float64, len(present))
		for i, v := range present {
			devs[i] = math.Abs(v - median)
		}
		mad := (stats.Sample{Xs: devs}).Quantile(0.5)
		if mad == 0 {
			return 0, nil
		}
		flag = func(v float64) bool { return math.Abs(0.6745*(v-median)/mad) > thresh }
	default:
		return 0, fmt.Errorf("unknown outlier method %q", method)
	}

	cells := make([]dataset.Cell, len(vals))
	removed := 0
	for i := range vals {
		if !valid[i] {
			cells[i] = dataset.Missing()
			continue
		}
		if flag(vals[i]) {
			cells[i] = dataset.Missing()
			removed++
			continue
		}
		cells[i] = dataset.Float(vals[i])
	}
	if err := d.SetColumn(column, cells); err != nil {
		return 0, err
	}
	return removed, nil
}

// filterRange blanks values outside [min, max].
func filterRange(d *dataset.Dataset, column string, min, max *float64) (int, error) {
	vals, valid, err := d.Floats(column)
	if err != nil {
		return 0, err
	}
	cells := make([]dataset.Cell, len(vals))
	dropped := 0
	for i := range vals {
		if !valid[i] {
			cells[i] = dataset.Missing()
			continue
		}
		if (min != nil && vals[i] < *min) || (max != nil && vals[i] > *max) {
			cells[i] = dataset.Missing()
			dropped++
			continue
		}
		cells[i] = dataset.Float(vals[i])
	}
	if err := d.SetColumn(column, cells); err != nil {
		return 0, err
	}
	return dropped, nil
}

// flipSign negates the column. Acoustic backscatter is conventionally
// negative in dB; flipping gives positive magnitudes for maps and scales.
func flipSign(d *dataset.Dataset, column string) error {
	vals, valid, err := d.Floats(column)
	if err != nil {
		return err
	}
	cells := make([]dataset.Cell, len(vals))
	for i := range vals {
		if !valid[i] {
			cells[i] = dataset.Missing()
			continue
		}
		cells[i] = dataset.Float(-vals[i])
	}
	return d.SetColumn(column, cells)
}

// logTransform writes a derived <column>_log column holding the natural
// log of the values and returns its name. Non-positive values have no
// logarithm and become missing; the source column is left as is.
func logTransform(d *dataset.Dataset, column string) (string, int, error) {
	vals, valid, err := d.Floats(column)
	if err != nil {
		return "", 0, err
	}
	name := column + "_log"
	cells := make([]dataset.Cell, len(vals))
	excluded := 0
	for i := range vals {
		if !valid[i] {
			cells[i] = dataset.Missing()
			continue
		}
		if vals[i] <= 0 {
			cells[i] = dataset.Missing()
			excluded++
			continue
		}
		cells[i] = dataset.Float(math.Log(vals[i]))
	}
	if err := d.SetColumn(name, cells); err != nil {
		return "", 0, err
	}
	return name, excluded, nil
}

// Aggregate bins the dataset by truncating timestamps to the interval
// and averaging every numeric column per bin. Bins between the first and
// last observation that received no rows are kept with missing values,
// so gaps stay visible in plots. Non-numeric columns are dropped.
func Aggregate(d *dataset.Dataset, interval time.Duration) (*dataset.Dataset, int, error) {
	if interval <= 0 {
		return nil, 0, fmt.Errorf("aggregation interval must be positive")
	}
	times, tvalid, err := d.Times(TimeColumn)
	if err != nil {
		return nil, 0, err
	}

	type accum struct {
		sums   map[string]float64
		counts map[string]int
	}
	byBin := make(map[time.Time]*accum)
	var first, last time.Time
	seen := false
	for i := range times {
		if !tvalid[i] {
			continue
		}
		bin := times[i].Truncate(interval)
		if !seen || bin.Before(first) {
			first = bin
		}
		if !seen || bin.After(last) {
			last = bin
		}
		seen = true
		if byBin[bin] == nil {
			byBin[bin] = &accum{sums: make(map[string]float64), counts: make(map[string]int)}
		}
	}
	if !seen {
		return nil, 0, fmt.Errorf("no valid timestamps to aggregate")
	}

	var numeric []string
	for _, col := range d.Columns() {
		if col == TimeColumn || !isFloatColumn(d, col) {
			continue
		}
		vals, valid, err := d.Floats(col)
		if err != nil {
			continue
		}
		numeric = append(numeric, col)
		for i := range vals {
			if !tvalid[i] || !valid[i] {
				continue
			}
			acc := byBin[times[i].Truncate(interval)]
			acc.sums[col] += vals[i]
			acc.counts[col]++
		}
	}

	out := dataset.New()
	var stamps []dataset.Cell
	for bin := first; !bin.After(last); bin = bin.Add(interval) {
		stamps = append(stamps, dataset.Time(bin))
	}
	if err := out.SetColumn(TimeColumn, stamps); err != nil {
		return nil, 0, err
	}
	for _, col := range numeric {
		cells := make([]dataset.Cell, 0, len(stamps))
		for bin := first; !bin.After(last); bin = bin.Add(interval) {
			acc := byBin[bin]
			if acc == nil || acc.counts[col] == 0 {
				cells = append(cells, dataset.Missing())
				continue
			}
			cells = append(cells, dataset.Float(acc.sums[col]/float64(acc.counts[col])))
		}
		if err := out.SetColumn(col, cells); err != nil {
			return nil, 0, err
		}
	}
	return out, len(stamps), nil
}

// isFloatColumn reports whether the column holds at least one valid
// float cell and no valid cells of another kind. Floats coerces string
// cells, so averaging must check the stored kinds instead.
func isFloatColumn(d *dataset.Dataset, col string) bool {
	cells, ok := d.Column(col)
	if !ok {
		return false
	}
	found := false
	for _, c := range cells {
		if !c.Valid {
			continue
		}
		if c.Kind != dataset.KindFloat {
			return false
		}
		found = true
	}
	return found
}
