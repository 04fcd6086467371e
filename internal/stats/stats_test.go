package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echocli/internal/dataset"
	"echocli/internal/errors"
)

func TestDescribeBasics(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.SetColumn("v", []dataset.Cell{
		dataset.Float(1), dataset.Float(2), dataset.Float(3),
		dataset.Float(4), dataset.Float(5), dataset.Missing(),
	}))

	out, err := Describe(d, []string{"v"})
	require.NoError(t, err)
	require.Len(t, out, 1)

	s := out[0]
	assert.Equal(t, "v", s.Variable)
	assert.Nil(t, s.Timestamp)
	assert.Equal(t, 5, s.Count)
	assert.Equal(t, 3.0, s.Mean)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 5.0, s.Max)
	assert.Equal(t, 3.0, s.Median)
	assert.Equal(t, 1, s.Missing)
	assert.InDelta(t, math.Sqrt(2.5), s.Std, 1e-9)
}

func TestDescribeSingleValueHasNaNStd(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.SetColumn("v", []dataset.Cell{dataset.Float(7)}))

	out, err := Describe(d, []string{"v"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, math.IsNaN(out[0].Std))
}

func TestDescribeSkipsEmptyColumns(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.SetColumn("v", []dataset.Cell{dataset.Missing(), dataset.Missing()}))

	out, err := Describe(d, []string{"v"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestDescribeUnknownColumn(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.SetColumn("v", []dataset.Cell{dataset.Float(1)}))

	_, err := Describe(d, []string{"nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)
}

func TestDescribeByTimeBins(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	d := dataset.New()
	require.NoError(t, d.SetColumn("timestamp", []dataset.Cell{
		dataset.Time(t0), dataset.Time(t0.Add(time.Minute)),
		dataset.Time(t0.Add(11 * time.Minute)),
	}))
	require.NoError(t, d.SetColumn("v", []dataset.Cell{
		dataset.Float(10), dataset.Float(20), dataset.Float(30),
	}))

	out, err := DescribeByTime(d, []string{"v"}, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, out, 2, "bins without values are omitted")

	first := out[0]
	require.NotNil(t, first.Timestamp)
	assert.Equal(t, t0, *first.Timestamp)
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, 15.0, first.Mean)

	second := out[1]
	assert.Equal(t, t0.Add(10*time.Minute), *second.Timestamp)
	assert.Equal(t, 30.0, second.Mean)
}

func TestDescribeByTimeCountsMissingPerBin(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	d := dataset.New()
	require.NoError(t, d.SetColumn("timestamp", []dataset.Cell{
		dataset.Time(t0), dataset.Time(t0.Add(time.Second)),
	}))
	require.NoError(t, d.SetColumn("v", []dataset.Cell{
		dataset.Float(10), dataset.Missing(),
	}))

	out, err := DescribeByTime(d, []string{"v"}, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].Count)
	assert.Equal(t, 1, out[0].Missing)
}

func TestRecordsLongFormat(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	summaries := []Summary{
		{Variable: "v", Count: 2, Mean: 1.5, Min: 1, Max: 2},
		{Variable: "w", Timestamp: &t0, Count: 1, Mean: 3, Min: 3, Max: 3},
	}

	records := Records(summaries)
	require.Len(t, records, 2)
	assert.Len(t, records[0], len(CSVHeader))
	assert.Equal(t, "", records[0][0])
	assert.Equal(t, "v", records[0][1])
	assert.Equal(t, "2", records[0][2])
	assert.Equal(t, "2025-03-01 12:00:00", records[1][0])
}

func TestFormatText(t *testing.T) {
	summaries := []Summary{{Variable: "depth", Count: 3, Mean: 2, Std: 1, Min: 1, Median: 2, Max: 3}}
	text := FormatText(summaries)
	assert.Contains(t, text, "Descriptive Statistics")
	assert.Contains(t, text, "Variable: depth")
	assert.Contains(t, text, "count=3")
	assert.Contains(t, text, "mean=2.000")

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	summaries[0].Timestamp = &t0
	text = FormatText(summaries)
	assert.Contains(t, text, "Descriptive Statistics by Time")
	assert.Contains(t, text, "Time: 2025-03-01 12:00:00")
}
