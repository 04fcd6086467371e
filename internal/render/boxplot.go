package render

import (
	"fmt"
	"io"
	"math"

	moremath "github.com/aclements/go-moremath/stats"

	"echocli/internal/errors"
)

// BoxGroup is one labeled distribution in a box plot.
type BoxGroup struct {
	Label  string
	Values []float64
}

// BoxplotOptions configures box plot rendering.
type BoxplotOptions struct {
	YLabel string
	Width  int
	Height int
}

// box holds the summary geometry of one group.
type box struct {
	label                  string
	lo, q1, median, q3, hi float64
	outliers               []float64
}

// Boxplot writes grouped box-and-whisker charts as SVG. Whiskers extend
// to the furthest value within 1.5 IQR of the quartiles; values beyond
// are drawn as points.
func Boxplot(w io.Writer, groups []BoxGroup, opts BoxplotOptions) error {
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Height <= 0 {
		opts.Height = 500
	}

	var boxes []box
	min, max := math.Inf(1), math.Inf(-1)
	for _, g := range groups {
		var vals []float64
		for _, v := range g.Values {
			if !math.IsNaN(v) {
				vals = append(vals, v)
			}
		}
		if len(vals) == 0 {
			continue
		}
		b := summarizeBox(g.Label, vals)
		boxes = append(boxes, b)
		for _, v := range vals {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	if len(boxes) == 0 {
		return errors.Render("box plot", errEmptySeries)
	}
	if min == max {
		min, max = min-1, max+1
	}

	const marginLeft, marginBottom, marginTop = 60, 40, 20
	plotW := float64(opts.Width - marginLeft - 10)
	plotH := float64(opts.Height - marginBottom - marginTop)
	scaleY := func(v float64) float64 {
		return marginTop + plotH*(1-(v-min)/(max-min))
	}
	slot := plotW / float64(len(boxes))
	boxW := slot * 0.5

	fmt.Fprintf(w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d">`+"\n", opts.Width, opts.Height)
	fmt.Fprintf(w, `<rect width="%d" height="%d" fill="white"/>`+"\n", opts.Width, opts.Height)

	// Y axis with min/mid/max labels.
	fmt.Fprintf(w, `<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="black"/>`+"\n",
		marginLeft, scaleY(max), marginLeft, scaleY(min))
	for _, v := range []float64{min, (min + max) / 2, max} {
		fmt.Fprintf(w, `<text x="%d" y="%.1f" text-anchor="end" font-size="11">%.3g</text>`+"\n",
			marginLeft-6, scaleY(v)+4, v)
	}
	fmt.Fprintf(w, `<text x="14" y="%.1f" font-size="12" transform="rotate(-90 14 %.1f)" text-anchor="middle">%s</text>`+"\n",
		marginTop+plotH/2, marginTop+plotH/2, opts.YLabel)

	for i, b := range boxes {
		cx := float64(marginLeft) + slot*(float64(i)+0.5)
		left, right := cx-boxW/2, cx+boxW/2

		// Whiskers.
		fmt.Fprintf(w, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n",
			cx, scaleY(b.hi), cx, scaleY(b.q3))
		fmt.Fprintf(w, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n",
			cx, scaleY(b.q1), cx, scaleY(b.lo))
		for _, v := range []float64{b.hi, b.lo} {
			fmt.Fprintf(w, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black"/>`+"\n",
				cx-boxW/4, scaleY(v), cx+boxW/4, scaleY(v))
		}

		// Box and median.
		fmt.Fprintf(w, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="steelblue" fill-opacity="0.6" stroke="black"/>`+"\n",
			left, scaleY(b.q3), boxW, scaleY(b.q1)-scaleY(b.q3))
		fmt.Fprintf(w, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="black" stroke-width="2"/>`+"\n",
			left, scaleY(b.median), right, scaleY(b.median))

		// Outliers.
		for _, v := range b.outliers {
			fmt.Fprintf(w, `<circle cx="%.1f" cy="%.1f" r="2" fill="none" stroke="black"/>`+"\n", cx, scaleY(v))
		}

		fmt.Fprintf(w, `<text x="%.1f" y="%d" text-anchor="middle" font-size="11">%s</text>`+"\n",
			cx, opts.Height-marginBottom+16, b.label)
	}

	_, err := fmt.Fprintln(w, "</svg>")
	if err != nil {
		return errors.Render("box plot", err)
	}
	return nil
}

// summarizeBox computes the five-number geometry of one group.
func summarizeBox(label string, vals []float64) box {
	sample := moremath.Sample{Xs: vals}
	b := box{
		label:  label,
		q1:     sample.Quantile(0.25),
		median: sample.Quantile(0.5),
		q3:     sample.Quantile(0.75),
	}
	iqr := b.q3 - b.q1
	loFence, hiFence := b.q1-1.5*iqr, b.q3+1.5*iqr

	b.lo, b.hi = b.q1, b.q3
	first := true
	for _, v := range vals {
		if v < loFence || v > hiFence {
			b.outliers = append(b.outliers, v)
			continue
		}
		if first {
			b.lo, b.hi = v, v
			first = false
			continue
		}
		if v < b.lo {
			b.lo = v
		}
		if v > b.hi {
			b.hi = v
		}
	}
	return b
}
