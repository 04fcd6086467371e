package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linear(n int) (xs, ys []float64, valid []bool) {
	xs = make([]float64, n)
	ys = make([]float64, n)
	valid = make([]bool, n)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = 2*float64(i) + 1
		valid[i] = true
	}
	return xs, ys, valid
}

func TestSmoothTooFewPointsReturnsOriginal(t *testing.T) {
	xs, ys, valid := linear(4)
	out, outValid, err := Smooth(xs, ys, valid, "loess", 0.5)
	require.NoError(t, err)
	assert.Equal(t, ys, out)
	assert.Equal(t, valid, outValid)
}

func TestSmoothRollingPreservesConstantSeries(t *testing.T) {
	xs := make([]float64, 10)
	ys := make([]float64, 10)
	valid := make([]bool, 10)
	for i := range ys {
		xs[i], ys[i], valid[i] = float64(i), 5, true
	}

	out, outValid, err := Smooth(xs, ys, valid, "rolling", 0.3)
	require.NoError(t, err)
	for i := range out {
		assert.Equal(t, 5.0, out[i])
		assert.True(t, outValid[i])
	}
}

func TestSmoothRollingDampensSpike(t *testing.T) {
	xs, ys, valid := linear(11)
	ys[5] = 100

	out, _, err := Smooth(xs, ys, valid, "rolling", 0.3)
	require.NoError(t, err)
	assert.Less(t, out[5], 100.0)
	assert.Greater(t, out[5], ys[4])
}

func TestSmoothSavgolReproducesQuadratic(t *testing.T) {
	// A quadratic polynomial is invariant under a quadratic
	// Savitzky-Golay filter away from the edges.
	n := 21
	xs := make([]float64, n)
	ys := make([]float64, n)
	valid := make([]bool, n)
	for i := range xs {
		x := float64(i)
		xs[i], ys[i], valid[i] = x, 0.5*x*x-3*x+2, true
	}

	out, _, err := Smooth(xs, ys, valid, "savgol", 0.25)
	require.NoError(t, err)
	for i := 3; i < n-3; i++ {
		assert.InDelta(t, ys[i], out[i], 1e-9)
	}
}

func TestSmoothSavgolKeepsMissingMissing(t *testing.T) {
	xs, ys, valid := linear(10)
	valid[4] = false
	ys[4] = math.NaN()

	_, outValid, err := Smooth(xs, ys, valid, "savgol", 0.3)
	require.NoError(t, err)
	assert.False(t, outValid[4])
	assert.True(t, outValid[3])
}

func TestSmoothLOESSTracksLinearTrend(t *testing.T) {
	xs, ys, valid := linear(20)

	out, outValid, err := Smooth(xs, ys, valid, "loess", 0.5)
	require.NoError(t, err)
	for i := range out {
		require.True(t, outValid[i])
		assert.InDelta(t, ys[i], out[i], 1e-6)
	}
}

func TestSmoothRejectsUnknownMethodAndBadFrac(t *testing.T) {
	xs, ys, valid := linear(10)

	_, _, err := Smooth(xs, ys, valid, "spline", 0.3)
	assert.Error(t, err)

	_, _, err = Smooth(xs, ys, valid, "loess", 0)
	assert.Error(t, err)

	_, _, err = Smooth(xs, ys[:5], valid, "loess", 0.3)
	assert.Error(t, err)
}
