package render

import (
	"io"
	"math"

	"github.com/aclements/go-gg/gg"
	"github.com/aclements/go-gg/table"

	"echocli/internal/errors"
)

// Series is one plottable x/y series. Time axes are expressed as epoch
// seconds so scales stay numeric.
type Series struct {
	Xs []float64
	Ys []float64
}

// clean drops pairs with a NaN on either axis.
func (s Series) clean() Series {
	out := Series{}
	for i := range s.Xs {
		if math.IsNaN(s.Xs[i]) || math.IsNaN(s.Ys[i]) {
			continue
		}
		out.Xs = append(out.Xs, s.Xs[i])
		out.Ys = append(out.Ys, s.Ys[i])
	}
	return out
}

// ChartOptions configures line and scatter rendering.
type ChartOptions struct {
	XLabel string
	YLabel string
	// Smoothed, when non-empty, is drawn as an overlay line on top of
	// the data layer.
	Smoothed Series
	Width    int
	Height   int
}

func (o *ChartOptions) defaults() {
	if o.Width <= 0 {
		o.Width = 800
	}
	if o.Height <= 0 {
		o.Height = 500
	}
	if o.XLabel == "" {
		o.XLabel = "x"
	}
	if o.YLabel == "" {
		o.YLabel = "y"
	}
}

// LineChart writes a time-series line chart as SVG.
func LineChart(w io.Writer, data Series, opts ChartOptions) error {
	opts.defaults()
	data = data.clean()
	if len(data.Xs) == 0 {
		return errors.Render("line chart", errEmptySeries)
	}

	tab := new(table.Builder).
		Add(opts.XLabel, data.Xs).
		Add(opts.YLabel, data.Ys).
		Done()
	plot := gg.NewPlot(tab)
	plot.Add(gg.LayerLines{X: opts.XLabel, Y: opts.YLabel})
	addSmoothedLayer(plot, opts)
	if err := plot.WriteSVG(w, opts.Width, opts.Height); err != nil {
		return errors.Render("line chart", err)
	}
	return nil
}

// ScatterChart writes a scatter chart as SVG, with an optional smoothed
// trend line on top.
func ScatterChart(w io.Writer, data Series, opts ChartOptions) error {
	opts.defaults()
	data = data.clean()
	if len(data.Xs) == 0 {
		return errors.Render("scatter chart", errEmptySeries)
	}

	tab := new(table.Builder).
		Add(opts.XLabel, data.Xs).
		Add(opts.YLabel, data.Ys).
		Done()
	plot := gg.NewPlot(tab)
	plot.Add(gg.LayerPoints{X: opts.XLabel, Y: opts.YLabel})
	addSmoothedLayer(plot, opts)
	if err := plot.WriteSVG(w, opts.Width, opts.Height); err != nil {
		return errors.Render("scatter chart", err)
	}
	return nil
}

// addSmoothedLayer swaps in the smoothed series and layers a line over
// the already-added data marks.
func addSmoothedLayer(plot *gg.Plot, opts ChartOptions) {
	smooth := opts.Smoothed.clean()
	if len(smooth.Xs) == 0 {
		return
	}
	tab := new(table.Builder).
		Add(opts.XLabel, smooth.Xs).
		Add(opts.YLabel, smooth.Ys).
		Done()
	plot.SetData(tab)
	plot.Add(gg.LayerLines{X: opts.XLabel, Y: opts.YLabel})
}

var errEmptySeries = errEmpty{}

type errEmpty struct{}

func (errEmpty) Error() string { return "no plottable points" }
