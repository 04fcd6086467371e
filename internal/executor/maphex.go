package executor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/uber/h3-go/v4"

	"echocli/internal/dataset"
	"echocli/internal/errors"
	"echocli/internal/geo"
	"echocli/internal/interpreter"
	"echocli/internal/pipeline"
	"echocli/internal/render"
)

// runMapHex bins positioned measurements into hexagonal cells and renders
// either a static plane-coordinate map or an interactive HTML map.
func (e *Executor) runMapHex(ctx context.Context, c interpreter.MapHexCommand) (Result, error) {
	d, err := e.requireData()
	if err != nil {
		return Result{}, err
	}
	col, colWarn, err := e.resolvePlotColumn(d, c.Y)
	if err != nil {
		return Result{}, err
	}
	for _, need := range []string{"latitude", "longitude"} {
		if !d.HasColumn(need) {
			return Result{}, errors.ColumnNotFound(need, d.Columns())
		}
	}

	// min/max cap the color scale on a map rather than filtering rows,
	// so they are lifted out before the pipeline runs.
	mods := c.Mods
	vmin, vmax := mods.Min, mods.Max
	mods.Min, mods.Max = nil, nil

	// The scale memory is only touched after the map renders, so a
	// failed command leaves the carry-over state as it was.
	warnings := warningList(colWarn)
	scales := e.sess.Scales()
	forget := mods.Negative != nil && !*mods.Negative
	record := vmax
	if vmax == nil && !forget {
		if remembered, ok := scales.Lookup(col); ok {
			vmax = &remembered
			warnings = append(warnings,
				fmt.Sprintf("reusing colorbar max %.3g from an earlier map of %s", remembered, col))
		}
	}

	res := c.Resolution
	if res <= 0 {
		res = e.defaultResolution()
	}

	work, rep, err := pipeline.Apply(d, col, mods)
	if err != nil {
		return Result{}, err
	}

	bins, err := hexBins(work, rep.Column, res)
	if err != nil {
		return Result{}, err
	}

	opts := render.MapOptions{
		Title:     rep.Column,
		VMin:      vmin,
		VMax:      vmax,
		EastLim:   c.EastLim,
		NorthLim:  c.NorthLim,
		Projector: e.projector,
	}

	backend := c.Backend
	if backend == "" {
		backend = "svg"
	}
	if c.Coastline != "" && backend == "svg" {
		coast, err := e.loadCoastline(ctx, c.Coastline)
		if err != nil {
			return Result{}, err
		}
		opts.Coastline = coast
	}

	params := modifierParams(c.Mods)
	params["res"] = strconv.Itoa(res)
	path := e.paths.GetMapPath(render.ArtifactName("map_hex", col, params, backend))
	err = writeArtifact(path, func(w io.Writer) error {
		if backend == "html" {
			return render.HexMapHTML(w, bins, opts)
		}
		return render.HexMapSVG(w, bins, opts)
	})
	if err != nil {
		return Result{}, err
	}

	if forget {
		scales.Clear(col)
	}
	if record != nil {
		scales.RecordMax(col, *record)
	}
	return Result{
		Message:   fmt.Sprintf("mapped %s into %d hex cells at resolution %d", rep.Column, len(bins), res),
		Warnings:  warnings,
		Artifacts: []string{path},
	}, nil
}

// defaultResolution reads the session resolution setting, falling back to
// the configured default.
func (e *Executor) defaultResolution() int {
	if raw, ok := e.sess.Setting("resolution"); ok {
		if v, err := strconv.Atoi(raw); err == nil && v >= 0 && v <= 15 {
			return v
		}
	}
	return e.cfg.Processing.DefaultResolution
}

// hexBins averages the column per hexagonal cell at the given resolution.
func hexBins(d *dataset.Dataset, col string, res int) ([]render.HexBin, error) {
	lats, latOK, err := d.Floats("latitude")
	if err != nil {
		return nil, errors.ColumnNotFound("latitude", d.Columns())
	}
	lons, lonOK, err := d.Floats("longitude")
	if err != nil {
		return nil, errors.ColumnNotFound("longitude", d.Columns())
	}
	vals, valOK, err := d.Floats(col)
	if err != nil {
		return nil, errors.ColumnNotFound(col, d.Columns())
	}

	type acc struct {
		sum float64
		n   int
	}
	byCell := map[h3.Cell]*acc{}
	for i := range vals {
		if !valOK[i] || !latOK[i] || !lonOK[i] {
			continue
		}
		cell := geo.CellFor(lats[i], lons[i], res)
		a := byCell[cell]
		if a == nil {
			a = &acc{}
			byCell[cell] = a
		}
		a.sum += vals[i]
		a.n++
	}
	if len(byCell) == 0 {
		return nil, errors.New(errors.CodeRender, "no positioned values to map")
	}

	bins := make([]render.HexBin, 0, len(byCell))
	for cell, a := range byCell {
		bins = append(bins, render.HexBin{Cell: cell, Value: a.sum / float64(a.n), Count: a.n})
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].Cell < bins[j].Cell })
	return bins, nil
}

// loadCoastline reads a plane-coordinate polyline from a CSV file with
// easting and northing columns.
func (e *Executor) loadCoastline(ctx context.Context, path string) ([][2]float64, error) {
	d, err := e.loader.LoadFiles(ctx, []string{path})
	if err != nil {
		return nil, err
	}
	eastCol := e.cfg.Coordinates.EastingColumn
	northCol := e.cfg.Coordinates.NorthingColumn
	easts, eok, err := d.Floats(eastCol)
	if err != nil {
		return nil, errors.ColumnNotFound(eastCol, d.Columns())
	}
	norths, nok, err := d.Floats(northCol)
	if err != nil {
		return nil, errors.ColumnNotFound(northCol, d.Columns())
	}
	var line [][2]float64
	for i := range easts {
		if eok[i] && nok[i] {
			line = append(line, [2]float64{easts[i], norths[i]})
		}
	}
	return line, nil
}
