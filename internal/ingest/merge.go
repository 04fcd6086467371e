package ingest

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"echocli/internal/dataset"
	"echocli/internal/errors"
	"echocli/internal/geo"
	"echocli/internal/infrastructure"
)

// Merger assigns vessel positions to acoustic rows by timestamp and
// optionally projects them onto the plane grid.
type Merger struct {
	// Tolerance is the largest timestamp distance a nearest-match may
	// bridge. It does not apply to interpolated merges.
	Tolerance time.Duration

	// Projector adds projected easting/northing columns to matched
	// rows when set.
	Projector      *geo.Projector
	EastingColumn  string
	NorthingColumn string
}

// fix is one known vessel position.
type fix struct {
	t        time.Time
	lat, lon float64
}

// MergeNearest joins each acoustic row to the position fix nearest in
// time, leaving the coordinates missing when no fix lies within the
// tolerance. It adds latitude, longitude and position_matched columns
// and returns the match rate in percent.
func (m *Merger) MergeNearest(acoustic, positions *dataset.Dataset) (*dataset.Dataset, float64, error) {
	fixes, err := positionFixes(positions)
	if err != nil {
		return nil, 0, err
	}
	out := acoustic.Clone()
	if err := out.SortByTime("timestamp"); err != nil {
		return nil, 0, err
	}
	times, valid, err := out.Times("timestamp")
	if err != nil {
		return nil, 0, err
	}

	lats := make([]dataset.Cell, len(times))
	lons := make([]dataset.Cell, len(times))
	matched := make([]dataset.Cell, len(times))
	matches := 0
	for i := range times {
		lats[i], lons[i], matched[i] = dataset.Missing(), dataset.Missing(), dataset.Float(0)
		if !valid[i] {
			continue
		}
		f, ok := nearestFix(fixes, times[i], m.Tolerance)
		if !ok {
			continue
		}
		lats[i] = dataset.Float(f.lat)
		lons[i] = dataset.Float(f.lon)
		matched[i] = dataset.Float(1)
		matches++
	}
	return m.finish(out, lats, lons, matched, matches, "position match rate")
}

// MergeInterpolated assigns positions by linear interpolation between
// the fixes surrounding each acoustic timestamp. Timestamps outside the
// track fall back to the nearest fix, without a tolerance cut-off.
func (m *Merger) MergeInterpolated(acoustic, positions *dataset.Dataset) (*dataset.Dataset, float64, error) {
	fixes, err := positionFixes(positions)
	if err != nil {
		return nil, 0, err
	}
	out := acoustic.Clone()
	if err := out.SortByTime("timestamp"); err != nil {
		return nil, 0, err
	}
	times, valid, err := out.Times("timestamp")
	if err != nil {
		return nil, 0, err
	}

	lats := make([]dataset.Cell, len(times))
	lons := make([]dataset.Cell, len(times))
	matched := make([]dataset.Cell, len(times))
	matches := 0
	for i := range times {
		lats[i], lons[i], matched[i] = dataset.Missing(), dataset.Missing(), dataset.Float(0)
		if !valid[i] || len(fixes) == 0 {
			continue
		}
		lat, lon := interpolateFix(fixes, times[i])
		lats[i] = dataset.Float(lat)
		lons[i] = dataset.Float(lon)
		matched[i] = dataset.Float(1)
		matches++
	}
	return m.finish(out, lats, lons, matched, matches, "position interpolation match rate")
}

func (m *Merger) finish(out *dataset.Dataset, lats, lons, matched []dataset.Cell, matches int, what string) (*dataset.Dataset, float64, error) {
	for name, cells := range map[string][]dataset.Cell{
		"latitude": lats, "longitude": lons, "position_matched": matched,
	} {
		if err := out.SetColumn(name, cells); err != nil {
			return nil, 0, err
		}
	}

	rate := 0.0
	if n := out.NumRows(); n > 0 {
		rate = float64(matches) / float64(n) * 100
	}
	infrastructure.GetLogger().Info(what,
		slog.Float64("percent", rate), slog.Int("rows", out.NumRows()))

	if m.Projector != nil {
		if err := m.addPlaneCoords(out); err != nil {
			return nil, 0, err
		}
	}
	return out, rate, nil
}

// addPlaneCoords projects latitude/longitude into easting/northing
// columns. Unmatched rows stay missing.
func (m *Merger) addPlaneCoords(d *dataset.Dataset) error {
	lats, latValid, err := d.Floats("latitude")
	if err != nil {
		return err
	}
	lons, lonValid, err := d.Floats("longitude")
	if err != nil {
		return err
	}
	eastings := make([]dataset.Cell, len(lats))
	northings := make([]dataset.Cell, len(lats))
	for i := range lats {
		if !latValid[i] || !lonValid[i] {
			eastings[i], northings[i] = dataset.Missing(), dataset.Missing()
			continue
		}
		e, n := m.Projector.ToPlane(lons[i], lats[i])
		eastings[i] = dataset.Float(e)
		northings[i] = dataset.Float(n)
	}
	if err := d.SetColumn(m.EastingColumn, eastings); err != nil {
		return err
	}
	return d.SetColumn(m.NorthingColumn, northings)
}

// positionFixes extracts the valid fixes from a position dataset,
// sorted by time.
func positionFixes(positions *dataset.Dataset) ([]fix, error) {
	times, tvalid, err := positions.Times("timestamp")
	if err != nil {
		return nil, errors.ColumnNotFound("timestamp", positions.Columns())
	}
	lats, latValid, err := positions.Floats("latitude")
	if err != nil {
		return nil, errors.ColumnNotFound("latitude", positions.Columns())
	}
	lons, lonValid, err := positions.Floats("longitude")
	if err != nil {
		return nil, errors.ColumnNotFound("longitude", positions.Columns())
	}

	var fixes []fix
	for i := range times {
		if !tvalid[i] || !latValid[i] || !lonValid[i] {
			continue
		}
		fixes = append(fixes, fix{t: times[i], lat: lats[i], lon: lons[i]})
	}
	if len(fixes) == 0 {
		return nil, errors.Load("positions", 0, fmt.Errorf("no usable position fixes"))
	}
	sort.Slice(fixes, func(i, j int) bool { return fixes[i].t.Before(fixes[j].t) })
	return fixes, nil
}

// nearestFix finds the fix closest in time to t within the tolerance.
func nearestFix(fixes []fix, t time.Time, tolerance time.Duration) (fix, bool) {
	i := sort.Search(len(fixes), func(i int) bool { return !fixes[i].t.Before(t) })
	best := fix{}
	bestDist := tolerance + 1
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(fixes) {
			continue
		}
		dist := t.Sub(fixes[j].t)
		if dist < 0 {
			dist = -dist
		}
		if dist < bestDist {
			best, bestDist = fixes[j], dist
		}
	}
	return best, bestDist <= tolerance
}

// interpolateFix linearly interpolates lat/lon between the surrounding
// fixes, clamping to the track ends.
func interpolateFix(fixes []fix, t time.Time) (lat, lon float64) {
	i := sort.Search(len(fixes), func(i int) bool { return !fixes[i].t.Before(t) })
	if i == 0 {
		return fixes[0].lat, fixes[0].lon
	}
	if i == len(fixes) {
		last := fixes[len(fixes)-1]
		return last.lat, last.lon
	}
	a, b := fixes[i-1], fixes[i]
	span := b.t.Sub(a.t)
	if span <= 0 {
		return a.lat, a.lon
	}
	frac := float64(t.Sub(a.t)) / float64(span)
	return a.lat + frac*(b.lat-a.lat), a.lon + frac*(b.lon-a.lon)
}
