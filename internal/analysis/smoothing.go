// Package analysis provides the series smoothers applied to plots:
// locally weighted regression, Savitzky-Golay filtering and a centered
// rolling mean.
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/aclements/go-moremath/fit"
)

// MinSmoothPoints is the fewest valid points a smoother needs. Below
// this the series is returned unchanged, since a fit over a handful of
// points only invents shape.
const MinSmoothPoints = 5

// Smooth returns a smoothed copy of ys using the named method. xs
// supplies the sample positions for the loess fit; savgol and rolling
// operate on sample order alone. Cells that were invalid stay invalid.
func Smooth(xs, ys []float64, valid []bool, method string, frac float64) ([]float64, []bool, error) {
	if len(xs) != len(ys) || len(ys) != len(valid) {
		return nil, nil, fmt.Errorf("smoothing inputs must have equal length")
	}
	if frac <= 0 || frac > 1 {
		return nil, nil, fmt.Errorf("smoothing fraction must be in (0, 1], got %v", frac)
	}

	n := 0
	for i := range valid {
		if valid[i] && !math.IsNaN(ys[i]) && !math.IsNaN(xs[i]) {
			n++
		}
	}
	if n < MinSmoothPoints {
		outV := append([]float64(nil), ys...)
		outB := append([]bool(nil), valid...)
		return outV, outB, nil
	}

	var out []float64
	switch method {
	case "loess":
		out = smoothLOESS(xs, ys, valid, frac)
	case "savgol":
		out = smoothSavgol(ys, valid, windowFor(frac, n))
	case "rolling":
		out = smoothRolling(ys, valid, windowFor(frac, n))
	default:
		return nil, nil, fmt.Errorf("unknown smoothing method %q", method)
	}
	outValid := make([]bool, len(out))
	for i, v := range out {
		outValid[i] = !math.IsNaN(v)
	}
	return out, outValid, nil
}

// windowFor derives an odd window length covering frac of the valid
// points, at least 3.
func windowFor(frac float64, n int) int {
	w := int(math.Round(frac * float64(n)))
	if w < 3 {
		w = 3
	}
	if w%2 == 0 {
		w++
	}
	return w
}

// smoothLOESS fits a local quadratic regression over the valid points
// and evaluates it back at their positions.
func smoothLOESS(xs, ys []float64, valid []bool, frac float64) []float64 {
	type pt struct{ x, y float64 }
	var pts []pt
	for i := range xs {
		if valid[i] && !math.IsNaN(ys[i]) && !math.IsNaN(xs[i]) {
			pts = append(pts, pt{xs[i], ys[i]})
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	fx := make([]float64, len(pts))
	fy := make([]float64, len(pts))
	for i, p := range pts {
		fx[i], fy[i] = p.x, p.y
	}
	loess := fit.LOESS(fx, fy, 2, frac)

	out := make([]float64, len(ys))
	for i := range ys {
		if !valid[i] || math.IsNaN(ys[i]) || math.IsNaN(xs[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = loess(xs[i])
	}
	return out
}

// smoothSavgol applies a quadratic Savitzky-Golay filter. Gaps are
// bridged by linear interpolation for the convolution, but stay missing
// in the output. Near the edges the window shrinks symmetrically.
func smoothSavgol(ys []float64, valid []bool, window int) []float64 {
	filled := fillGaps(ys, valid)
	half := window / 2
	n := len(filled)

	out := make([]float64, n)
	for i := range filled {
		if !valid[i] || math.IsNaN(ys[i]) {
			out[i] = math.NaN()
			continue
		}
		m := half
		if i < m {
			m = i
		}
		if n-1-i < m {
			m = n - 1 - i
		}
		if m < 1 {
			out[i] = filled[i]
			continue
		}
		// Quadratic least-squares smoothing coefficients for a
		// symmetric window of half-width m.
		fm := float64(m)
		denom := (2*fm + 3) * (2*fm + 1) * (2*fm - 1)
		sum := 0.0
		for j := -m; j <= m; j++ {
			c := (3*(3*fm*fm+3*fm-1) - 15*float64(j*j)) / denom
			sum += c * filled[i+j]
		}
		out[i] = sum
	}
	return out
}

// smoothRolling replaces each valid point with the mean of the valid
// points in a centered window.
func smoothRolling(ys []float64, valid []bool, window int) []float64 {
	half := window / 2
	out := make([]float64, len(ys))
	for i := range ys {
		if !valid[i] || math.IsNaN(ys[i]) {
			out[i] = math.NaN()
			continue
		}
		sum, count := 0.0, 0
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(ys) || !valid[j] || math.IsNaN(ys[j]) {
				continue
			}
			sum += ys[j]
			count++
		}
		out[i] = sum / float64(count)
	}
	return out
}

// fillGaps linearly interpolates invalid samples between their valid
// neighbors, extending the first and last valid values to the ends.
func fillGaps(ys []float64, valid []bool) []float64 {
	out := make([]float64, len(ys))
	prev := -1
	for i := range ys {
		if valid[i] && !math.IsNaN(ys[i]) {
			if prev == -1 {
				for j := 0; j < i; j++ {
					out[j] = ys[i]
				}
			} else {
				for j := prev + 1; j < i; j++ {
					frac := float64(j-prev) / float64(i-prev)
					out[j] = ys[prev] + frac*(ys[i]-ys[prev])
				}
			}
			out[i] = ys[i]
			prev = i
		}
	}
	for j := prev + 1; j < len(ys); j++ {
		if prev >= 0 {
			out[j] = ys[prev]
		}
	}
	return out
}
