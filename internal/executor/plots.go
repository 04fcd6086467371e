package executor

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	moremath "github.com/aclements/go-moremath/stats"

	"echocli/internal/analysis"
	"echocli/internal/dataset"
	"echocli/internal/errors"
	"echocli/internal/interpreter"
	"echocli/internal/pipeline"
	"echocli/internal/render"
)

// defaultFrac is the smoothing fraction used when the command gives none.
const defaultFrac = 0.1

func (e *Executor) runPlotLine(c interpreter.PlotLineCommand) (Result, error) {
	d, err := e.requireData()
	if err != nil {
		return Result{}, err
	}
	col, colWarn, err := e.resolvePlotColumn(d, c.Y)
	if err != nil {
		return Result{}, err
	}

	work, rep, err := pipeline.Apply(d, col, c.Mods)
	if err != nil {
		return Result{}, err
	}

	series, err := timeSeries(work, rep.Column)
	if err != nil {
		return Result{}, err
	}
	series = axisLog(series, false, boolOf(c.Mods.YLog))

	opts := render.ChartOptions{XLabel: "time", YLabel: rep.Column}
	if c.Mods.Smooth != "" {
		if opts.Smoothed, err = smoothedOverlay(series, c.Mods); err != nil {
			return Result{}, err
		}
	}

	path := e.paths.GetPlotPath(render.ArtifactName("plot_line", col, modifierParams(c.Mods), "svg"))
	err = writeArtifact(path, func(w io.Writer) error {
		return render.LineChart(w, series, opts)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Message:   fmt.Sprintf("plotted %s: %s", rep.Column, rep.Summary()),
		Warnings:  warningList(colWarn),
		Artifacts: []string{path},
	}, nil
}

func (e *Executor) runPlotScatter(c interpreter.PlotScatterCommand) (Result, error) {
	d, err := e.requireData()
	if err != nil {
		return Result{}, err
	}
	ycol, colWarn, err := e.resolvePlotColumn(d, c.Y)
	if err != nil {
		return Result{}, err
	}

	work, rep, err := pipeline.Apply(d, ycol, c.Mods)
	if err != nil {
		return Result{}, err
	}

	var series render.Series
	xlabel := "time"
	if c.X == "" || c.X == pipeline.TimeColumn {
		if series, err = timeSeries(work, rep.Column); err != nil {
			return Result{}, err
		}
	} else {
		xcol, err := e.resolveColumn(work, c.X)
		if err != nil {
			return Result{}, err
		}
		xlabel = xcol
		if series, err = columnSeries(work, xcol, rep.Column); err != nil {
			return Result{}, err
		}
	}
	series = axisLog(series, boolOf(c.Mods.XLog), boolOf(c.Mods.YLog))

	opts := render.ChartOptions{XLabel: xlabel, YLabel: rep.Column}
	if c.Mods.Smooth != "" {
		if opts.Smoothed, err = smoothedOverlay(series, c.Mods); err != nil {
			return Result{}, err
		}
	}

	path := e.paths.GetPlotPath(render.ArtifactName("plot_scatter", rep.Column+"_vs_"+xlabel,
		modifierParams(c.Mods), "svg"))
	err = writeArtifact(path, func(w io.Writer) error {
		return render.ScatterChart(w, series, opts)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Message:   fmt.Sprintf("plotted %s vs %s: %s", rep.Column, xlabel, rep.Summary()),
		Warnings:  warningList(colWarn),
		Artifacts: []string{path},
	}, nil
}

func (e *Executor) runBoxplot(c interpreter.PlotBoxplotCommand) (Result, error) {
	d, err := e.requireData()
	if err != nil {
		return Result{}, err
	}
	ycol, colWarn, err := e.resolvePlotColumn(d, c.Y)
	if err != nil {
		return Result{}, err
	}

	work, rep, err := pipeline.Apply(d, ycol, c.Mods)
	if err != nil {
		return Result{}, err
	}
	ys, yok, err := work.Floats(rep.Column)
	if err != nil {
		return Result{}, errors.ColumnNotFound(rep.Column, work.Columns())
	}

	var groups []render.BoxGroup
	switch {
	case c.Group != "":
		gcol, err := e.resolveColumn(work, c.Group)
		if err != nil {
			return Result{}, err
		}
		if groups, err = categoricalGroups(work, gcol, ys, yok); err != nil {
			return Result{}, err
		}
	case c.XBins > 0 || c.XQBins > 0:
		xcol, err := e.resolveColumn(work, c.X)
		if err != nil {
			return Result{}, err
		}
		xs, xok, err := work.Floats(xcol)
		if err != nil {
			return Result{}, errors.ColumnNotFound(xcol, work.Columns())
		}
		if c.XQBins > 0 {
			groups = quantileGroups(xs, xok, ys, yok, c.XQBins)
		} else {
			groups = widthGroups(xs, xok, ys, yok, c.XBins)
		}
	case c.X != "":
		xcol, err := e.resolveColumn(work, c.X)
		if err != nil {
			return Result{}, err
		}
		if groups, err = categoricalGroups(work, xcol, ys, yok); err != nil {
			return Result{}, err
		}
	default:
		var vals []float64
		for i, v := range ys {
			if yok[i] {
				vals = append(vals, v)
			}
		}
		groups = []render.BoxGroup{{Label: rep.Column, Values: vals}}
	}

	path := e.paths.GetPlotPath(render.ArtifactName("plot_boxplot", rep.Column,
		modifierParams(c.Mods), "svg"))
	err = writeArtifact(path, func(w io.Writer) error {
		return render.Boxplot(w, groups, render.BoxplotOptions{YLabel: rep.Column})
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Message:   fmt.Sprintf("boxplot of %s over %d groups", rep.Column, len(groups)),
		Warnings:  warningList(colWarn),
		Artifacts: []string{path},
	}, nil
}

// warningList wraps an optional warning into a slice.
func warningList(warning string) []string {
	if warning == "" {
		return nil
	}
	return []string{warning}
}

// boolOf reads an optional flag, absent meaning false.
func boolOf(b *bool) bool {
	return b != nil && *b
}

// resolvePlotColumn resolves the measurement column of a plotting task.
// When the named column does not exist, plotting falls back to the
// configured primary measurement column instead of failing, with a
// warning naming the substitution.
func (e *Executor) resolvePlotColumn(d *dataset.Dataset, name string) (string, string, error) {
	if name == "" {
		name = e.cfg.Data.PrimaryColumn
	}
	col, err := e.resolveColumn(d, name)
	if err == nil {
		return col, "", nil
	}
	primary := e.cfg.Data.PrimaryColumn
	if primary != "" && primary != name && d.HasColumn(primary) {
		warning := fmt.Sprintf("column %q not found, using primary column %q", name, primary)
		return primary, warning, nil
	}
	return "", "", err
}

// timeSeries pairs a value column against the timestamp column, with
// timestamps expressed as epoch seconds. Unusable rows become NaN holes
// that the renderer drops.
func timeSeries(d *dataset.Dataset, col string) (render.Series, error) {
	times, tok, err := d.Times(pipeline.TimeColumn)
	if err != nil {
		return render.Series{}, errors.ColumnNotFound(pipeline.TimeColumn, d.Columns())
	}
	vals, vok, err := d.Floats(col)
	if err != nil {
		return render.Series{}, errors.ColumnNotFound(col, d.Columns())
	}
	s := render.Series{Xs: make([]float64, len(vals)), Ys: make([]float64, len(vals))}
	for i := range vals {
		if tok[i] && vok[i] {
			s.Xs[i] = float64(times[i].Unix())
			s.Ys[i] = vals[i]
		} else {
			s.Xs[i], s.Ys[i] = math.NaN(), math.NaN()
		}
	}
	return s, nil
}

// columnSeries pairs two numeric columns row by row.
func columnSeries(d *dataset.Dataset, xcol, ycol string) (render.Series, error) {
	xs, xok, err := d.Floats(xcol)
	if err != nil {
		return render.Series{}, errors.ColumnNotFound(xcol, d.Columns())
	}
	ys, yok, err := d.Floats(ycol)
	if err != nil {
		return render.Series{}, errors.ColumnNotFound(ycol, d.Columns())
	}
	s := render.Series{Xs: make([]float64, len(xs)), Ys: make([]float64, len(xs))}
	for i := range xs {
		if xok[i] && yok[i] {
			s.Xs[i], s.Ys[i] = xs[i], ys[i]
		} else {
			s.Xs[i], s.Ys[i] = math.NaN(), math.NaN()
		}
	}
	return s, nil
}

// axisLog applies base-10 log scaling to the requested axes. Non-positive
// values cannot be shown on a log axis and become NaN holes.
func axisLog(s render.Series, xlog, ylog bool) render.Series {
	if !xlog && !ylog {
		return s
	}
	out := render.Series{Xs: append([]float64(nil), s.Xs...), Ys: append([]float64(nil), s.Ys...)}
	for i := range out.Xs {
		if xlog {
			if out.Xs[i] > 0 {
				out.Xs[i] = math.Log10(out.Xs[i])
			} else {
				out.Xs[i] = math.NaN()
			}
		}
		if ylog {
			if out.Ys[i] > 0 {
				out.Ys[i] = math.Log10(out.Ys[i])
			} else {
				out.Ys[i] = math.NaN()
			}
		}
	}
	return out
}

// smoothedOverlay runs the configured smoother over a series and returns
// the overlay to draw on top of the data marks.
func smoothedOverlay(s render.Series, mods interpreter.Modifiers) (render.Series, error) {
	frac := mods.Frac
	if frac <= 0 {
		frac = defaultFrac
	}
	valid := make([]bool, len(s.Ys))
	for i := range s.Ys {
		valid[i] = !math.IsNaN(s.Xs[i]) && !math.IsNaN(s.Ys[i])
	}
	out, outValid, err := analysis.Smooth(s.Xs, s.Ys, valid, mods.Smooth, frac)
	if err != nil {
		return render.Series{}, err
	}
	overlay := render.Series{Xs: append([]float64(nil), s.Xs...), Ys: out}
	for i := range out {
		if !outValid[i] {
			overlay.Xs[i], overlay.Ys[i] = math.NaN(), math.NaN()
		}
	}
	return overlay, nil
}

// categoricalGroups groups y values by the formatted cells of a column.
func categoricalGroups(d *dataset.Dataset, col string, ys []float64, yok []bool) ([]render.BoxGroup, error) {
	cells, ok := d.Column(col)
	if !ok {
		return nil, errors.ColumnNotFound(col, d.Columns())
	}
	byLabel := map[string][]float64{}
	for i, c := range cells {
		if !c.Valid || !yok[i] {
			continue
		}
		label := c.Format()
		byLabel[label] = append(byLabel[label], ys[i])
	}
	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	groups := make([]render.BoxGroup, 0, len(labels))
	for _, label := range labels {
		groups = append(groups, render.BoxGroup{Label: label, Values: byLabel[label]})
	}
	return groups, nil
}

// widthGroups splits y values into n equal-width bins of x.
func widthGroups(xs []float64, xok []bool, ys []float64, yok []bool, n int) []render.BoxGroup {
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, x := range xs {
		if xok[i] && yok[i] {
			lo, hi = math.Min(lo, x), math.Max(hi, x)
		}
	}
	if hi <= lo {
		hi = lo + 1
	}
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	return edgeGroups(xs, xok, ys, yok, edges)
}

// quantileGroups splits y values into n equal-count bins of x.
func quantileGroups(xs []float64, xok []bool, ys []float64, yok []bool, n int) []render.BoxGroup {
	var sample []float64
	for i, x := range xs {
		if xok[i] && yok[i] {
			sample = append(sample, x)
		}
	}
	s := moremath.Sample{Xs: sample}
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = s.Quantile(float64(i) / float64(n))
	}
	return edgeGroups(xs, xok, ys, yok, edges)
}

// edgeGroups assigns each x to its bin, the last bin closed on both ends.
func edgeGroups(xs []float64, xok []bool, ys []float64, yok []bool, edges []float64) []render.BoxGroup {
	n := len(edges) - 1
	groups := make([]render.BoxGroup, n)
	for i := range groups {
		groups[i].Label = fmt.Sprintf("[%.3g, %.3g)", edges[i], edges[i+1])
	}
	groups[n-1].Label = fmt.Sprintf("[%.3g, %.3g]", edges[n-1], edges[n])
	for i, x := range xs {
		if !xok[i] || !yok[i] {
			continue
		}
		bin := n - 1
		for j := 0; j < n; j++ {
			if x < edges[j+1] {
				bin = j
				break
			}
		}
		groups[bin].Values = append(groups[bin].Values, ys[i])
	}
	out := groups[:0]
	for _, g := range groups {
		if len(g.Values) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// writeArtifact renders into a freshly created file.
func writeArtifact(path string, renderTo func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Render(path, err)
	}
	defer f.Close()
	if err := renderTo(f); err != nil {
		return err
	}
	return f.Close()
}
