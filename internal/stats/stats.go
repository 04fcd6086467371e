// Package stats computes descriptive statistics over dataset columns,
// either for the whole series or per time bin, and writes them as text,
// CSV and Excel reports.
package stats

import (
	"math"
	"sort"
	"time"

	moremath "github.com/aclements/go-moremath/stats"

	"echocli/internal/dataset"
	"echocli/internal/errors"
)

// Summary holds the descriptive statistics of one variable, optionally
// scoped to one time bin.
type Summary struct {
	Variable  string
	Timestamp *time.Time

	Count   int
	Mean    float64
	Std     float64
	Min     float64
	P05     float64
	P25     float64
	Median  float64
	P75     float64
	P95     float64
	Max     float64
	Missing int
}

// Describe computes whole-series statistics for each column. Columns
// with no numeric values are skipped; an unknown column is an error.
func Describe(d *dataset.Dataset, columns []string) ([]Summary, error) {
	var out []Summary
	for _, col := range columns {
		vals, valid, err := d.Floats(col)
		if err != nil {
			return nil, errors.ColumnNotFound(col, d.Columns())
		}
		var present []float64
		missing := 0
		for i, v := range vals {
			if valid[i] {
				present = append(present, v)
			} else {
				missing++
			}
		}
		if len(present) == 0 {
			continue
		}
		s := summarize(present)
		s.Variable = col
		s.Missing = missing
		out = append(out, s)
	}
	return out, nil
}

// DescribeByTime computes per-bin statistics for each column, binning
// rows by truncating the timestamp column to the interval. Bins without
// values for a variable are omitted. Rows are ordered by variable and
// then by bin time.
func DescribeByTime(d *dataset.Dataset, columns []string, interval time.Duration) ([]Summary, error) {
	times, tvalid, err := d.Times("timestamp")
	if err != nil {
		return nil, errors.ColumnNotFound("timestamp", d.Columns())
	}

	var out []Summary
	for _, col := range columns {
		vals, valid, err := d.Floats(col)
		if err != nil {
			return nil, errors.ColumnNotFound(col, d.Columns())
		}
		present := make(map[time.Time][]float64)
		missing := make(map[time.Time]int)
		for i := range vals {
			if !tvalid[i] {
				continue
			}
			bin := times[i].Truncate(interval)
			if valid[i] {
				present[bin] = append(present[bin], vals[i])
			} else {
				missing[bin]++
			}
		}

		bins := make([]time.Time, 0, len(present))
		for bin := range present {
			bins = append(bins, bin)
		}
		sort.Slice(bins, func(i, j int) bool { return bins[i].Before(bins[j]) })

		for _, bin := range bins {
			s := summarize(present[bin])
			s.Variable = col
			s.Missing = missing[bin]
			ts := bin
			s.Timestamp = &ts
			out = append(out, s)
		}
	}
	return out, nil
}

// summarize fills the numeric fields from a non-empty value slice.
func summarize(vals []float64) Summary {
	sample := moremath.Sample{Xs: vals}
	s := Summary{
		Count:  len(vals),
		Mean:   sample.Mean(),
		Std:    math.NaN(),
		P05:    sample.Quantile(0.05),
		P25:    sample.Quantile(0.25),
		Median: sample.Quantile(0.5),
		P75:    sample.Quantile(0.75),
		P95:    sample.Quantile(0.95),
	}
	s.Min, s.Max = moremath.Bounds(vals)
	if len(vals) > 1 {
		s.Std = sample.StdDev()
	}
	return s
}
