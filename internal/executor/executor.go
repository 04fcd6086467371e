// Package executor runs parsed commands against the session: it resolves
// aliases and settings, drives the transformation pipeline, and hands the
// prepared data to the analysis and rendering collaborators. A command
// can fail but never takes the session down with it.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"echocli/internal/config"
	"echocli/internal/dataset"
	"echocli/internal/errors"
	"echocli/internal/exporter"
	"echocli/internal/geo"
	"echocli/internal/infrastructure"
	"echocli/internal/ingest"
	"echocli/internal/interpreter"
	"echocli/internal/pipeline"
	"echocli/internal/session"
	"echocli/internal/variables"
)

// Result is the outcome of one executed command, ready for display.
type Result struct {
	Message   string
	Warnings  []string
	Artifacts []string
	Exit      bool
}

// Executor owns the collaborators shared by all commands of a session.
type Executor struct {
	cfg       *config.Config
	paths     *config.Paths
	sess      *session.Session
	loader    *ingest.Loader
	projector *geo.Projector
	csv       *exporter.CSVWriter
	excel     *exporter.ExcelWriter
	text      *exporter.TextWriter
}

// New wires an executor for the given configuration.
func New(cfg *config.Config) (*Executor, error) {
	paths := config.NewPaths(cfg.Output)
	if err := paths.EnsureDirs(); err != nil {
		return nil, err
	}
	return &Executor{
		cfg:       cfg,
		paths:     paths,
		sess:      session.New(cfg.Settings()),
		loader:    ingest.NewLoader(cfg.Processing.LoadRetries),
		projector: geo.NewSWEREF99TM(),
		csv:       exporter.NewCSVWriter(paths),
		excel:     exporter.NewExcelWriter(paths),
		text:      exporter.NewTextWriter(paths),
	}, nil
}

// Session exposes the session, mainly for prompt completion.
func (e *Executor) Session() *session.Session {
	return e.sess
}

// Execute dispatches one command. A panic in a collaborator is converted
// into an error so the command loop survives.
func (e *Executor) Execute(ctx context.Context, cmd interpreter.Command) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			infrastructure.GetLogger().Error("command panicked", slog.Any("panic", r))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	switch c := cmd.(type) {
	case interpreter.ExitCommand:
		return Result{Message: "bye", Exit: true}, nil
	case interpreter.HelpCommand:
		return Result{Message: helpText}, nil
	case interpreter.SetCommand:
		return e.runSet(c)
	case interpreter.AliasCommand:
		return e.runAlias(c)
	case interpreter.CoordsInfoCommand:
		return e.runCoordsInfo()
	case interpreter.LoadCommand:
		return e.runLoad(ctx, c)
	case interpreter.AggregateTimeCommand:
		return e.runAggregate(c)
	case interpreter.CreateCommand:
		return e.runCreate(c)
	case interpreter.CalcCommand:
		return e.runCalc(c)
	case interpreter.StatsCommand:
		return e.runStats(c)
	case interpreter.PlotLineCommand:
		return e.runPlotLine(c)
	case interpreter.PlotScatterCommand:
		return e.runPlotScatter(c)
	case interpreter.PlotBoxplotCommand:
		return e.runBoxplot(c)
	case interpreter.MapHexCommand:
		return e.runMapHex(ctx, c)
	}
	return Result{}, errors.Parse("no handler for command kind %q", cmd.Kind())
}

func (e *Executor) runSet(c interpreter.SetCommand) (Result, error) {
	for _, p := range c.Pairs {
		e.sess.Set(p.Short, p.Column)
	}
	settings := e.sess.Settings()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("settings:")
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s = %s", k, settings[k])
	}
	return Result{Message: b.String()}, nil
}

func (e *Executor) runAlias(c interpreter.AliasCommand) (Result, error) {
	for _, p := range c.Pairs {
		e.sess.SetAlias(p.Short, p.Column)
	}
	var parts []string
	for _, p := range c.Pairs {
		parts = append(parts, fmt.Sprintf("%s -> %s", p.Short, p.Column))
	}
	return Result{Message: "aliases set: " + strings.Join(parts, ", ")}, nil
}

func (e *Executor) runCoordsInfo() (Result, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "geographic: %s (latitude, longitude)\n", geo.GeographicCRS)
	fmt.Fprintf(&b, "plane:      %s (%s, %s)\n", geo.PlaneCRS,
		e.cfg.Coordinates.EastingColumn, e.cfg.Coordinates.NorthingColumn)
	if !e.sess.HasData() {
		b.WriteString("no dataset loaded")
		return Result{Message: b.String()}, nil
	}
	d := e.sess.Dataset()
	have := func(col string) string {
		if d.HasColumn(col) {
			return "present"
		}
		return "absent"
	}
	fmt.Fprintf(&b, "latitude/longitude: %s/%s, %s/%s: %s/%s",
		have("latitude"), have("longitude"),
		e.cfg.Coordinates.EastingColumn, e.cfg.Coordinates.NorthingColumn,
		have(e.cfg.Coordinates.EastingColumn), have(e.cfg.Coordinates.NorthingColumn))
	return Result{Message: b.String()}, nil
}

// requireData returns the session dataset or a uniform error.
func (e *Executor) requireData() (*dataset.Dataset, error) {
	if !e.sess.HasData() {
		return nil, errors.New(errors.CodeLoad, "no dataset loaded, run load first")
	}
	return e.sess.Dataset(), nil
}

// resolveColumn maps a user column reference through the alias table and
// verifies it exists.
func (e *Executor) resolveColumn(d *dataset.Dataset, name string) (string, error) {
	col := e.sess.ResolveColumn(name)
	if !d.HasColumn(col) {
		return "", errors.ColumnNotFound(col, d.Columns())
	}
	return col, nil
}

func (e *Executor) runAggregate(c interpreter.AggregateTimeCommand) (Result, error) {
	d, err := e.requireData()
	if err != nil {
		return Result{}, err
	}
	agg, bins, err := pipeline.Aggregate(d, c.Interval.Duration)
	if err != nil {
		return Result{}, errors.Pipeline("aggregation", err)
	}
	e.sess.SetDataset(agg)
	return Result{Message: fmt.Sprintf("aggregated to %d bins of %s", bins, c.Interval.Token)}, nil
}

func (e *Executor) runCreate(c interpreter.CreateCommand) (Result, error) {
	d, err := e.requireData()
	if err != nil {
		return Result{}, err
	}
	source, err := e.resolveColumn(d, c.Source)
	if err != nil {
		return Result{}, err
	}
	if err := variables.CreateTemporal(d, c.Feature, source); err != nil {
		return Result{}, err
	}
	e.sess.RecordDerived(c.Feature)
	return Result{Message: fmt.Sprintf("created %s from %s", c.Feature, source)}, nil
}

func (e *Executor) runCalc(c interpreter.CalcCommand) (Result, error) {
	d, err := e.requireData()
	if err != nil {
		return Result{}, err
	}
	missing, err := variables.Calc(d, c.Name, c.Expression)
	if err != nil {
		return Result{}, err
	}
	e.sess.RecordDerived(c.Name)
	msg := fmt.Sprintf("created %s = %s", c.Name, c.Expression)
	if missing > 0 {
		msg += fmt.Sprintf(" (%d rows missing)", missing)
	}
	return Result{Message: msg}, nil
}

const helpText = `commands:
  load [dir=DIR] [pattern=GLOB] [positions=FILE]   load survey data and merge positions
  plot y=COL [modifiers]                           time-series line chart
  scatter Y vs X | scatter y:COL x:COL             scatter chart
  boxplot y:COL [x:COL] [group:COL|xbins:N|xqbins:N]
  map hex y=COL [res=N] [backend=svg|html] [coastline=FILE]
  stats columns=A,B [by time INTERVAL]             descriptive statistics
  aggregate time INTERVAL                          resample the dataset in place
  create FEATURE [from COL]                        hour day month dayofweek dayofyear week year
  calc NAME = EXPRESSION                           arithmetic column (+ - * / **)
  alias SHORT=COLUMN ...                           column aliases
  set KEY=VALUE ...                                session settings
  coords                                           coordinate system info
  help, exit

modifiers: start_date= end_date= outliers=iqr|zscore|modified_zscore z_thresh=
  min= max= negative= log= xlog= ylog= smooth=loess|savgol|rolling frac=
  interval or a bare duration token like 5min`
