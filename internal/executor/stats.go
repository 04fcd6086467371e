package executor

import (
	"fmt"
	"strings"

	"echocli/internal/errors"
	"echocli/internal/interpreter"
	"echocli/internal/pipeline"
	"echocli/internal/render"
	"echocli/internal/stats"
)

// runStats computes descriptive statistics, optionally per time bin,
// and writes text, CSV and Excel reports.
func (e *Executor) runStats(c interpreter.StatsCommand) (Result, error) {
	d, err := e.requireData()
	if err != nil {
		return Result{}, err
	}

	cols := make([]string, len(c.Columns))
	for i, name := range c.Columns {
		if cols[i], err = e.resolveColumn(d, name); err != nil {
			return Result{}, err
		}
	}

	// Run the preparation stages per column; binning happens in the
	// stats calculation itself, so the aggregation stage stays off.
	prepMods := c.Mods
	prepMods.Interval = nil
	work := d
	finalCols := make([]string, len(cols))
	for i, col := range cols {
		var rep pipeline.Report
		work, rep, err = pipeline.Apply(work, col, prepMods)
		if err != nil {
			return Result{}, err
		}
		finalCols[i] = rep.Column
	}

	var summaries []stats.Summary
	if c.Mods.Interval != nil {
		summaries, err = stats.DescribeByTime(work, finalCols, c.Mods.Interval.Duration)
	} else {
		summaries, err = stats.Describe(work, finalCols)
	}
	if err != nil {
		return Result{}, err
	}
	if len(summaries) == 0 {
		return Result{}, errors.New(errors.CodePipeline, "no numeric values to summarize")
	}

	params := modifierParams(c.Mods)
	base := strings.TrimSuffix(
		render.ArtifactName("stats", strings.Join(cols, "+"), params, "txt"), ".txt")

	if err := e.text.WriteReport(base+".txt", stats.FormatText(summaries)); err != nil {
		return Result{}, err
	}
	records := stats.Records(summaries)
	if err := e.csv.WriteSimpleCSV(base+".csv", stats.CSVHeader, records); err != nil {
		return Result{}, err
	}
	if err := e.excel.WriteSheet(base+".xlsx", "statistics", stats.CSVHeader, records); err != nil {
		return Result{}, err
	}

	artifacts := []string{
		e.paths.GetReportPath(base + ".txt"),
		e.paths.GetReportPath(base + ".csv"),
		e.paths.GetReportPath(base + ".xlsx"),
	}
	msg := fmt.Sprintf("statistics for %s: %d rows", strings.Join(cols, ", "), len(summaries))
	return Result{Message: msg, Artifacts: artifacts}, nil
}

// modifierParams flattens the modifiers that shaped an artifact into its
// file name.
func modifierParams(m interpreter.Modifiers) map[string]string {
	params := map[string]string{}
	if m.StartDate != nil {
		params["from"] = m.StartDate.Format("20060102")
	}
	if m.EndDate != nil {
		params["to"] = m.EndDate.Format("20060102")
	}
	if m.Outliers != "" {
		params["outliers"] = m.Outliers
	}
	if m.Min != nil {
		params["min"] = fmt.Sprintf("%g", *m.Min)
	}
	if m.Max != nil {
		params["max"] = fmt.Sprintf("%g", *m.Max)
	}
	if m.Log != nil && *m.Log {
		params["log"] = "true"
	}
	if m.Negative != nil && *m.Negative {
		params["neg"] = "true"
	}
	if m.Interval != nil {
		params["interval"] = m.Interval.Token
	}
	if m.Smooth != "" {
		params["smooth"] = m.Smooth
	}
	return params
}
