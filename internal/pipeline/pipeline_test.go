package pipeline

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echocli/internal/dataset"
	"echocli/internal/interpreter"
)

func timeCol(t *testing.T, d *dataset.Dataset, offsets ...time.Duration) {
	t.Helper()
	t0 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	cells := make([]dataset.Cell, len(offsets))
	for i, off := range offsets {
		cells[i] = dataset.Time(t0.Add(off))
	}
	require.NoError(t, d.SetColumn(TimeColumn, cells))
}

func floatCol(t *testing.T, d *dataset.Dataset, name string, vals ...float64) {
	t.Helper()
	cells := make([]dataset.Cell, len(vals))
	for i, v := range vals {
		cells[i] = dataset.Float(v)
	}
	require.NoError(t, d.SetColumn(name, cells))
}

func boolPtr(b bool) *bool           { return &b }
func floatPtr(f float64) *float64    { return &f }
func timePtr(t time.Time) *time.Time { return &t }

func TestApplyNoModifiersIsIdentity(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Minute)
	floatCol(t, d, "depth", 10, 20)

	out, report, err := Apply(d, "depth", interpreter.Modifiers{})
	require.NoError(t, err)
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, "depth", report.Column)
	assert.Equal(t, 2, report.RowsOut)

	// The input must stay untouched.
	assert.Equal(t, 2, d.NumRows())
}

func TestDateFilterBoundsInclusive(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Hour, 2*time.Hour)
	floatCol(t, d, "depth", 1, 2, 3)

	start := time.Date(2025, 3, 1, 1, 0, 0, 0, time.UTC)
	out, _, err := Apply(d, "depth", interpreter.Modifiers{StartDate: timePtr(start)})
	require.NoError(t, err)

	vals, _, err := out.Floats("depth")
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, vals)
}

func TestDateFilterDropsMissingTimestamps(t *testing.T) {
	d := dataset.New()
	require.NoError(t, d.SetColumn(TimeColumn, []dataset.Cell{
		dataset.Time(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		dataset.Missing(),
	}))
	floatCol(t, d, "depth", 1, 2)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	out, _, err := Apply(d, "depth", interpreter.Modifiers{StartDate: timePtr(start)})
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
}

func TestOutlierRemovalZScore(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Second, 2*time.Second, 3*time.Second, 4*time.Second)
	floatCol(t, d, "v", 10, 10, 10, 10, 100)

	out, report, err := Apply(d, "v", interpreter.Modifiers{Outliers: "zscore", ZThresh: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 1, report.OutliersRemoved)

	_, valid, err := out.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true, false}, valid)
}

func TestOutlierRemovalZScoreUsesPopulationStd(t *testing.T) {
	// For 0,0,0,4 the population standard deviation is sqrt(3), putting
	// the spike at |z| = sqrt(3). The sample deviation would be 2 and
	// |z| = 1.5, so a threshold of 1.6 separates the two definitions.
	d := dataset.New()
	timeCol(t, d, 0, time.Second, 2*time.Second, 3*time.Second)
	floatCol(t, d, "v", 0, 0, 0, 4)

	out, report, err := Apply(d, "v", interpreter.Modifiers{Outliers: "zscore", ZThresh: 1.6})
	require.NoError(t, err)
	assert.Equal(t, 1, report.OutliersRemoved)

	_, valid, err := out.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, false}, valid)
}

func TestOutlierRemovalIQR(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Second, 2*time.Second, 3*time.Second, 4*time.Second, 5*time.Second)
	floatCol(t, d, "v", 10, 12, 11, 13, 12, 100)

	out, report, err := Apply(d, "v", interpreter.Modifiers{Outliers: "iqr"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.OutliersRemoved)

	_, valid, err := out.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true, true, true, true, false}, valid)
}

func TestOutlierRemovalIQRZeroSpreadIsNoOp(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Second, 2*time.Second)
	floatCol(t, d, "v", 7, 7, 7)

	_, report, err := Apply(d, "v", interpreter.Modifiers{Outliers: "iqr"})
	require.NoError(t, err)
	assert.Zero(t, report.OutliersRemoved)
}

func TestOutlierRemovalZeroVarianceIsNoOp(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Second, 2*time.Second)
	floatCol(t, d, "v", 7, 7, 7)

	_, report, err := Apply(d, "v", interpreter.Modifiers{Outliers: "zscore", ZThresh: 3})
	require.NoError(t, err)
	assert.Zero(t, report.OutliersRemoved)
}

func TestOutlierRemovalModifiedZScore(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Second, 2*time.Second, 3*time.Second, 4*time.Second, 5*time.Second)
	floatCol(t, d, "v", 1, 2, 3, 4, 5, 100)

	out, report, err := Apply(d, "v", interpreter.Modifiers{Outliers: "modified_zscore", ZThresh: 3.5})
	require.NoError(t, err)
	assert.Equal(t, 1, report.OutliersRemoved)

	vals, valid, err := out.Floats("v")
	require.NoError(t, err)
	assert.False(t, valid[5])
	assert.Equal(t, 1.0, vals[0])
	assert.True(t, valid[0])
}

func TestMinMaxFilterBlanksOutside(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Second, 2*time.Second)
	floatCol(t, d, "v", -90, -60, -10)

	out, report, err := Apply(d, "v", interpreter.Modifiers{
		Min: floatPtr(-80), Max: floatPtr(-20),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.OutOfRange)

	_, valid, err := out.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false}, valid)
}

func TestSignFlip(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0)
	floatCol(t, d, "v", -62.5)

	out, _, err := Apply(d, "v", interpreter.Modifiers{Negative: boolPtr(true)})
	require.NoError(t, err)

	vals, _, err := out.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, 62.5, vals[0])
}

func TestLogTransformDerivesColumn(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Second, 2*time.Second)
	floatCol(t, d, "v", 1, -5, math.E)

	out, report, err := Apply(d, "v", interpreter.Modifiers{Log: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "v_log", report.Column)
	assert.Equal(t, 1, report.LogExcluded)

	vals, valid, err := out.Floats("v_log")
	require.NoError(t, err)
	assert.Equal(t, 0.0, vals[0])
	assert.False(t, valid[1])
	assert.InDelta(t, 1.0, vals[2], 1e-12)

	// Source column survives untouched.
	src, svalid, err := out.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, -5.0, src[1])
	assert.True(t, svalid[1])
}

func TestAggregateRetainsEmptyBins(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, 2*time.Minute, 11*time.Minute)
	floatCol(t, d, "v", 10, 20, 30)

	out, bins, err := Aggregate(d, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, bins)

	vals, valid, err := out.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, 15.0, vals[0])
	assert.False(t, valid[1], "empty bin kept as missing")
	assert.Equal(t, 30.0, vals[2])

	times, _, err := out.Times(TimeColumn)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 5, 0, 0, time.UTC), times[1])
}

func TestAggregateDropsNonNumericColumns(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Minute)
	floatCol(t, d, "v", 1, 2)
	require.NoError(t, d.SetColumn("vessel", []dataset.Cell{dataset.String("svea"), dataset.String("svea")}))

	out, _, err := Aggregate(d, 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, out.HasColumn("vessel"))
	assert.True(t, out.HasColumn("v"))
}

func TestApplyStageOrderFiltersBeforeLog(t *testing.T) {
	// The min/max filter runs before the log stage, so a value filtered
	// out never reaches the logarithm.
	d := dataset.New()
	timeCol(t, d, 0, time.Second)
	floatCol(t, d, "v", 1000, math.E)

	out, report, err := Apply(d, "v", interpreter.Modifiers{
		Max: floatPtr(100), Log: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.OutOfRange)
	assert.Zero(t, report.LogExcluded)

	vals, valid, err := out.Floats("v_log")
	require.NoError(t, err)
	assert.False(t, valid[0])
	assert.InDelta(t, 1.0, vals[1], 1e-12)
}

func TestApplyAggregateAfterTransforms(t *testing.T) {
	d := dataset.New()
	timeCol(t, d, 0, time.Minute, 2*time.Minute)
	floatCol(t, d, "v", -10, -20, -90)

	out, report, err := Apply(d, "v", interpreter.Modifiers{
		Negative: boolPtr(true),
		Interval: &interpreter.Interval{Token: "5min", Duration: 5 * time.Minute},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Bins)

	vals, _, err := out.Floats("v")
	require.NoError(t, err)
	assert.Equal(t, 40.0, vals[0])
}

func TestErrorsNameTheStage(t *testing.T) {
	d := dataset.New()
	floatCol(t, d, "v", 1, 2)

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	_, _, err := Apply(d, "v", interpreter.Modifiers{StartDate: timePtr(start)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "date_filter")
}
