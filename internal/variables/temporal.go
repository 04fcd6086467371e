// Package variables derives new dataset columns: temporal features
// extracted from a timestamp column and arithmetic combinations of
// existing numeric columns.
package variables

import (
	"time"

	"echocli/internal/dataset"
	"echocli/internal/errors"
)

// Temporal feature names accepted by CreateTemporal.
const (
	FeatureHour      = "hour"
	FeatureDay       = "day"
	FeatureMonth     = "month"
	FeatureDayOfWeek = "dayofweek"
	FeatureDayOfYear = "dayofyear"
	FeatureWeek      = "week"
	FeatureYear      = "year"
)

// TemporalFeatures lists the supported feature names, for help text and
// completion.
var TemporalFeatures = []string{
	FeatureHour, FeatureDay, FeatureMonth, FeatureDayOfWeek,
	FeatureDayOfYear, FeatureWeek, FeatureYear,
}

// CreateTemporal adds a column named after the feature, extracted from
// the source timestamp column. Rows with a missing timestamp get a
// missing feature value. Weekdays are numbered with Monday as 0.
func CreateTemporal(d *dataset.Dataset, feature, source string) error {
	extract, ok := extractors[feature]
	if !ok {
		return errors.Parse("unknown temporal feature %q (use one of %v)", feature, TemporalFeatures)
	}
	times, valid, err := d.Times(source)
	if err != nil {
		return errors.ColumnNotFound(source, d.Columns())
	}
	cells := make([]dataset.Cell, len(times))
	for i := range times {
		if !valid[i] {
			cells[i] = dataset.Missing()
			continue
		}
		cells[i] = dataset.Float(float64(extract(times[i])))
	}
	return d.SetColumn(feature, cells)
}

var extractors = map[string]func(time.Time) int{
	FeatureHour:  func(t time.Time) int { return t.Hour() },
	FeatureDay:   func(t time.Time) int { return t.Day() },
	FeatureMonth: func(t time.Time) int { return int(t.Month()) },
	FeatureDayOfWeek: func(t time.Time) int {
		// Monday is 0; Go's weekday starts the week on Sunday.
		return (int(t.Weekday()) + 6) % 7
	},
	FeatureDayOfYear: func(t time.Time) int { return t.YearDay() },
	FeatureWeek: func(t time.Time) int {
		_, week := t.ISOWeek()
		return week
	},
	FeatureYear: func(t time.Time) int { return t.Year() },
}
