package interpreter

import "time"

// TaskKind identifies the task a structured command dispatches to.
type TaskKind string

const (
	TaskLoad          TaskKind = "load"
	TaskAggregateTime TaskKind = "aggregate_time"
	TaskPlotLine      TaskKind = "plot_line"
	TaskPlotScatter   TaskKind = "plot_scatter"
	TaskPlotBoxplot   TaskKind = "plot_boxplot"
	TaskMapHex        TaskKind = "map_hex"
	TaskComputeStats  TaskKind = "compute_stats"
	TaskCreate        TaskKind = "create_variable"
	TaskCalc          TaskKind = "calc_variable"
	TaskAlias         TaskKind = "alias"
	TaskSet           TaskKind = "set"
	TaskCoordsInfo    TaskKind = "coords_info"
	TaskHelp          TaskKind = "help"
	TaskExit          TaskKind = "exit"
)

// Command is the structured, validated form of one input line. Each task
// kind has its own variant with typed fields; the executor switches on the
// concrete type. Commands never carry session state, so the same parsed
// command can be replayed against different alias sets.
type Command interface {
	Kind() TaskKind
}

// Interval is a parsed aggregation interval token such as "5min".
type Interval struct {
	Token    string
	Duration time.Duration
}

// Modifiers holds the optional pipeline modifiers shared by nearly every
// task. Pointer fields distinguish "not given" from an explicit value,
// which the colorbar carry-over rules depend on.
type Modifiers struct {
	StartDate *time.Time
	EndDate   *time.Time
	Outliers  string
	ZThresh   float64
	Min       *float64
	Max       *float64
	Negative  *bool
	Log       *bool
	XLog      *bool
	YLog      *bool
	Interval  *Interval
	Smooth    string
	Frac      float64
}

// LoadCommand loads and merges survey data. Empty fields fall back to
// session settings.
type LoadCommand struct {
	Dir       string
	Pattern   string
	Positions string
}

func (LoadCommand) Kind() TaskKind { return TaskLoad }

// AggregateTimeCommand aggregates the session dataset in place.
type AggregateTimeCommand struct {
	Interval Interval
	Column   string
}

func (AggregateTimeCommand) Kind() TaskKind { return TaskAggregateTime }

// PlotLineCommand renders a time-series line chart.
type PlotLineCommand struct {
	Y    string
	Mods Modifiers
}

func (PlotLineCommand) Kind() TaskKind { return TaskPlotLine }

// PlotScatterCommand renders a scatter chart. X defaults to the timestamp
// column when empty.
type PlotScatterCommand struct {
	X    string
	Y    string
	Mods Modifiers
}

func (PlotScatterCommand) Kind() TaskKind { return TaskPlotScatter }

// PlotBoxplotCommand renders grouped box-and-whisker charts. Exactly one
// of Group, XBins or XQBins selects the grouping when X is numeric.
type PlotBoxplotCommand struct {
	Y      string
	X      string
	Group  string
	XBins  int
	XQBins int
	Mods   Modifiers
}

func (PlotBoxplotCommand) Kind() TaskKind { return TaskPlotBoxplot }

// MapHexCommand renders a hexagonal aggregation map.
type MapHexCommand struct {
	Y          string
	Resolution int
	Backend    string
	Coastline  string
	EastLim    *[2]float64
	NorthLim   *[2]float64
	Mods       Modifiers
}

func (MapHexCommand) Kind() TaskKind { return TaskMapHex }

// StatsCommand computes descriptive statistics, optionally per time bin.
type StatsCommand struct {
	Columns []string
	Mods    Modifiers
}

func (StatsCommand) Kind() TaskKind { return TaskComputeStats }

// CreateCommand materializes a temporal feature column.
type CreateCommand struct {
	Feature string
	Source  string
}

func (CreateCommand) Kind() TaskKind { return TaskCreate }

// CalcCommand materializes an arithmetic expression column.
type CalcCommand struct {
	Name       string
	Expression string
}

func (CalcCommand) Kind() TaskKind { return TaskCalc }

// AliasPair is one short-name definition.
type AliasPair struct {
	Short  string
	Column string
}

// AliasCommand defines column aliases, in input order (last wins).
type AliasCommand struct {
	Pairs []AliasPair
}

func (AliasCommand) Kind() TaskKind { return TaskAlias }

// SetCommand updates session settings.
type SetCommand struct {
	Pairs []AliasPair
}

func (SetCommand) Kind() TaskKind { return TaskSet }

// CoordsInfoCommand reports the coordinate systems on the loaded dataset.
type CoordsInfoCommand struct{}

func (CoordsInfoCommand) Kind() TaskKind { return TaskCoordsInfo }

// HelpCommand prints usage.
type HelpCommand struct{}

func (HelpCommand) Kind() TaskKind { return TaskHelp }

// ExitCommand terminates the session.
type ExitCommand struct{}

func (ExitCommand) Kind() TaskKind { return TaskExit }
