package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"echocli/internal/config"
	"echocli/internal/errors"
	"echocli/internal/interpreter"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	cfg := &config.Config{
		Data: config.DataConfig{
			Dir:           t.TempDir(),
			Pattern:       "*.csv",
			PositionsFile: "positions.csv",
			PrimaryColumn: "backscatter",
		},
		Processing: config.ProcessingConfig{
			MergeTolerance:    config.Duration(5 * time.Second),
			DefaultInterval:   "5min",
			DefaultResolution: 7,
			LoadRetries:       1,
		},
		Coordinates: config.CoordinatesConfig{
			TransformOnLoad: true,
			EastingColumn:   "easting",
			NorthingColumn:  "northing",
		},
		Output: config.OutputConfig{
			BaseDir:    t.TempDir(),
			PlotsDir:   "plots",
			MapsDir:    "maps",
			ReportsDir: "reports",
		},
	}
	e, err := New(cfg)
	require.NoError(t, err)
	return e
}

func writeDataFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

// seedSurvey writes a survey file plus a matching positions track into the
// executor's data directory.
func seedSurvey(t *testing.T, e *Executor) {
	t.Helper()
	var survey, track strings.Builder
	survey.WriteString("time,backscatter,depth\n")
	track.WriteString("time,lat,lon\n")
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		ts := base.Add(time.Duration(i) * time.Minute).Format("2006-01-02 15:04:05")
		fmt.Fprintf(&survey, "%s,%g,%g\n", ts, -60.0+float64(i), 10.0+float64(i%4))
		fmt.Fprintf(&track, "%s,%g,%g\n", ts, 56.10+0.001*float64(i), 15.65+0.001*float64(i))
	}
	writeDataFile(t, e.cfg.Data.Dir, "survey.csv", survey.String())
	writeDataFile(t, e.cfg.Data.Dir, "positions.csv", track.String())
}

func run(t *testing.T, e *Executor, line string) Result {
	t.Helper()
	cmd, err := interpreter.Parse(line)
	require.NoError(t, err, "parse %q", line)
	res, err := e.Execute(context.Background(), cmd)
	require.NoError(t, err, "execute %q", line)
	return res
}

func runErr(t *testing.T, e *Executor, line string) error {
	t.Helper()
	cmd, err := interpreter.Parse(line)
	require.NoError(t, err, "parse %q", line)
	_, err = e.Execute(context.Background(), cmd)
	require.Error(t, err, "execute %q", line)
	return err
}

func TestLoadMergesPositions(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)

	res := run(t, e, "load")
	assert.Contains(t, res.Message, "loaded 20 rows")
	assert.Contains(t, res.Message, "100.0% positions matched")

	d := e.Session().Dataset()
	for _, col := range []string{"timestamp", "backscatter", "latitude", "longitude", "easting", "northing"} {
		assert.True(t, d.HasColumn(col), "column %s", col)
	}
}

func TestLoadWithoutPositionsWarns(t *testing.T) {
	e := newTestExecutor(t)
	writeDataFile(t, e.cfg.Data.Dir, "survey.csv",
		"time,backscatter\n2024-05-01 12:00:00,-60\n")

	res := run(t, e, "load")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "no positions file")
}

func TestCommandsRequireData(t *testing.T) {
	e := newTestExecutor(t)
	for _, line := range []string{
		"plot y=backscatter",
		"scatter depth vs backscatter",
		"stats columns=backscatter",
		"map hex y=backscatter",
		"aggregate time 5min",
	} {
		err := runErr(t, e, line)
		assert.ErrorIs(t, err, errors.ErrLoad, line)
	}
}

func TestUnknownColumnFails(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	err := runErr(t, e, "stats columns=salinity")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)
}

func TestPlotFallsBackToPrimaryColumn(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	res := run(t, e, "plot y=salinity")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `using primary column "backscatter"`)
	assert.Contains(t, res.Message, "backscatter")
}

func TestAliasResolvesInCommands(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")
	run(t, e, "alias bs=backscatter")

	res := run(t, e, "stats columns=bs")
	require.Len(t, res.Artifacts, 3)
	for _, a := range res.Artifacts {
		_, err := os.Stat(a)
		assert.NoError(t, err, a)
	}
}

func TestPlotLineWritesSVG(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	res := run(t, e, "plot y=backscatter smooth=rolling")
	require.Len(t, res.Artifacts, 1)
	content, err := os.ReadFile(res.Artifacts[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "<svg")
	assert.Contains(t, res.Artifacts[0], filepath.Join("plots", "plot_line_backscatter"))
}

func TestScatterAgainstColumn(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	res := run(t, e, "scatter backscatter vs depth")
	require.Len(t, res.Artifacts, 1)
	assert.Contains(t, res.Message, "backscatter vs depth")
}

func TestBoxplotWithBins(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	res := run(t, e, "boxplot y:backscatter x:depth xbins:2")
	require.Len(t, res.Artifacts, 1)
	assert.Contains(t, res.Message, "2 groups")
}

func TestStatsByTime(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	res := run(t, e, "stats columns=backscatter,depth by time 10min")
	require.Len(t, res.Artifacts, 3)
	content, err := os.ReadFile(res.Artifacts[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "Descriptive Statistics by Time")
}

func TestAggregateReplacesDataset(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")
	require.Equal(t, 20, e.Session().Dataset().NumRows())

	res := run(t, e, "aggregate time 10min")
	assert.Contains(t, res.Message, "2 bins")
	assert.Equal(t, 2, e.Session().Dataset().NumRows())
}

func TestCreateAndCalcDeriveColumns(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	run(t, e, "create hour")
	run(t, e, "calc ratio = backscatter / depth")

	d := e.Session().Dataset()
	assert.True(t, d.HasColumn("hour"))
	assert.True(t, d.HasColumn("ratio"))
	assert.ElementsMatch(t, []string{"hour", "ratio"}, e.Session().DerivedVariables())
}

func TestReloadDropsDerivedVariables(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")
	run(t, e, "calc double = backscatter * 2")
	e.Session().Scales().RecordMax("backscatter", 100)

	res := run(t, e, "load")
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, strings.Join(res.Warnings, " "), "double")
	assert.False(t, e.Session().Dataset().HasColumn("double"))
	_, ok := e.Session().Scales().Lookup("backscatter")
	assert.False(t, ok, "reload resets remembered map scales")
}

func TestMapHexColorbarCarryOver(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	// An explicit max is remembered for the column.
	res := run(t, e, "map hex y=backscatter max=100")
	require.Len(t, res.Artifacts, 1)
	assert.Empty(t, res.Warnings)
	remembered, ok := e.Session().Scales().Lookup("backscatter")
	require.True(t, ok)
	assert.Equal(t, 100.0, remembered)

	// The next map of the same column reuses it and says so.
	res = run(t, e, "map hex y=backscatter")
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "reusing colorbar max")

	// An explicit negative=false forgets the remembered scale.
	run(t, e, "map hex y=backscatter negative=false")
	_, ok = e.Session().Scales().Lookup("backscatter")
	assert.False(t, ok)
}

func TestMapHexFailureLeavesScaleMemory(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")
	run(t, e, "map hex y=backscatter max=100")

	// A map that renders nothing must neither record a new max nor
	// forget the remembered one.
	err := runErr(t, e, "map hex y=backscatter max=50 start_date=2030-01-01")
	assert.ErrorIs(t, err, errors.ErrRender)
	remembered, ok := e.Session().Scales().Lookup("backscatter")
	require.True(t, ok)
	assert.Equal(t, 100.0, remembered)

	runErr(t, e, "map hex y=backscatter negative=false start_date=2030-01-01")
	_, ok = e.Session().Scales().Lookup("backscatter")
	assert.True(t, ok)
}

func TestMapHexBackends(t *testing.T) {
	e := newTestExecutor(t)
	seedSurvey(t, e)
	run(t, e, "load")

	res := run(t, e, "map hex y=backscatter")
	require.Len(t, res.Artifacts, 1)
	assert.True(t, strings.HasSuffix(res.Artifacts[0], ".svg"))
	content, err := os.ReadFile(res.Artifacts[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "<polygon")

	res = run(t, e, "map hex y=backscatter backend=folium")
	require.Len(t, res.Artifacts, 1)
	assert.True(t, strings.HasSuffix(res.Artifacts[0], ".html"))
	content, err = os.ReadFile(res.Artifacts[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "L.polygon")
}

func TestMapHexNeedsCoordinates(t *testing.T) {
	e := newTestExecutor(t)
	writeDataFile(t, e.cfg.Data.Dir, "survey.csv",
		"time,backscatter\n2024-05-01 12:00:00,-60\n")
	run(t, e, "load")

	err := runErr(t, e, "map hex y=backscatter")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)
}

func TestSetUpdatesSettings(t *testing.T) {
	e := newTestExecutor(t)
	res := run(t, e, "set resolution=9 interval=1h")
	assert.Contains(t, res.Message, "resolution = 9")
	assert.Contains(t, res.Message, "interval = 1h")

	v, ok := e.Session().Setting("resolution")
	require.True(t, ok)
	assert.Equal(t, "9", v)
}

func TestCoordsInfo(t *testing.T) {
	e := newTestExecutor(t)
	res := run(t, e, "coords")
	assert.Contains(t, res.Message, "EPSG:4326")
	assert.Contains(t, res.Message, "no dataset loaded")
}

func TestExitCommand(t *testing.T) {
	e := newTestExecutor(t)
	res := run(t, e, "exit")
	assert.True(t, res.Exit)
}
