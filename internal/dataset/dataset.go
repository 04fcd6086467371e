// Package dataset implements the in-memory tabular data model shared by
// every command: ordered rows, a dynamic column schema, and per-cell
// missing values.
//
// A Dataset is column-oriented. Columns are added or replaced wholesale
// (merging, derived variables, log transforms) while rows are only ever
// removed by filtering, which produces a new Dataset. Cell values are
// floats, strings or timestamps; a cell may also be missing, which keeps
// the row but excludes the value from numeric operations.
package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Kind discriminates the value held by a Cell.
type Kind uint8

const (
	KindFloat Kind = iota
	KindString
	KindTime
)

// Cell is one value in a column. Valid is false for missing values.
type Cell struct {
	Kind  Kind
	F     float64
	S     string
	T     time.Time
	Valid bool
}

// Float returns a valid float cell.
func Float(v float64) Cell {
	return Cell{Kind: KindFloat, F: v, Valid: true}
}

// String returns a valid string cell.
func String(v string) Cell {
	return Cell{Kind: KindString, S: v, Valid: true}
}

// Time returns a valid timestamp cell.
func Time(v time.Time) Cell {
	return Cell{Kind: KindTime, T: v, Valid: true}
}

// Missing returns a missing cell.
func Missing() Cell {
	return Cell{}
}

// Format renders the cell for human-readable and CSV output.
func (c Cell) Format() string {
	if !c.Valid {
		return ""
	}
	switch c.Kind {
	case KindFloat:
		return strconv.FormatFloat(c.F, 'f', -1, 64)
	case KindTime:
		return c.T.Format("2006-01-02 15:04:05")
	default:
		return c.S
	}
}

// Dataset is an ordered collection of equally sized columns.
type Dataset struct {
	order []string
	cols  map[string][]Cell
	rows  int
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{cols: make(map[string][]Cell)}
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int {
	return d.rows
}

// Columns returns the column names in insertion order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.cols[name]
	return ok
}

// Column returns the cells of the named column.
func (d *Dataset) Column(name string) ([]Cell, bool) {
	cells, ok := d.cols[name]
	return cells, ok
}

// SetColumn adds or replaces a column. On an empty dataset the column
// defines the row count; afterwards lengths must match.
func (d *Dataset) SetColumn(name string, cells []Cell) error {
	if len(d.order) == 0 {
		d.rows = len(cells)
	} else if len(cells) != d.rows {
		return fmt.Errorf("column %q has %d cells, dataset has %d rows", name, len(cells), d.rows)
	}
	if _, exists := d.cols[name]; !exists {
		d.order = append(d.order, name)
	}
	d.cols[name] = cells
	return nil
}

// AppendRow adds one row. Columns absent from values get a missing cell;
// values naming unknown columns create those columns (back-filled with
// missing cells), which keeps the schema dynamic during CSV ingestion.
func (d *Dataset) AppendRow(values map[string]Cell) {
	for name := range values {
		if _, ok := d.cols[name]; !ok {
			col := make([]Cell, d.rows)
			d.order = append(d.order, name)
			d.cols[name] = col
		}
	}
	for _, name := range d.order {
		d.cols[name] = append(d.cols[name], values[name])
	}
	d.rows++
}

// Filter returns a new dataset containing the rows where keep is true.
func (d *Dataset) Filter(keep []bool) (*Dataset, error) {
	if len(keep) != d.rows {
		return nil, fmt.Errorf("mask has %d entries, dataset has %d rows", len(keep), d.rows)
	}
	out := New()
	for _, name := range d.order {
		src := d.cols[name]
		var cells []Cell
		for i, k := range keep {
			if k {
				cells = append(cells, src[i])
			}
		}
		if cells == nil {
			cells = []Cell{}
		}
		if err := out.SetColumn(name, cells); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	out := New()
	out.order = make([]string, len(d.order))
	copy(out.order, d.order)
	out.rows = d.rows
	for name, cells := range d.cols {
		cp := make([]Cell, len(cells))
		copy(cp, cells)
		out.cols[name] = cp
	}
	return out
}

// Floats returns the column as float values plus a validity mask. String
// cells are coerced when they parse as numbers; anything else counts as
// missing. The column must exist.
func (d *Dataset) Floats(name string) ([]float64, []bool, error) {
	cells, ok := d.cols[name]
	if !ok {
		return nil, nil, fmt.Errorf("no such column %q", name)
	}
	vals := make([]float64, len(cells))
	valid := make([]bool, len(cells))
	for i, c := range cells {
		if !c.Valid {
			continue
		}
		switch c.Kind {
		case KindFloat:
			vals[i], valid[i] = c.F, true
		case KindString:
			if f, err := strconv.ParseFloat(c.S, 64); err == nil {
				vals[i], valid[i] = f, true
			}
		}
	}
	return vals, valid, nil
}

// Times returns the column as timestamps plus a validity mask.
func (d *Dataset) Times(name string) ([]time.Time, []bool, error) {
	cells, ok := d.cols[name]
	if !ok {
		return nil, nil, fmt.Errorf("no such column %q", name)
	}
	vals := make([]time.Time, len(cells))
	valid := make([]bool, len(cells))
	for i, c := range cells {
		if c.Valid && c.Kind == KindTime {
			vals[i], valid[i] = c.T, true
		}
	}
	return vals, valid, nil
}

// SortByTime stably reorders all rows by the given timestamp column,
// missing timestamps last.
func (d *Dataset) SortByTime(name string) error {
	times, valid, err := d.Times(name)
	if err != nil {
		return err
	}
	idx := make([]int, d.rows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if valid[ia] != valid[ib] {
			return valid[ia]
		}
		if !valid[ia] {
			return false
		}
		return times[ia].Before(times[ib])
	})
	for col, cells := range d.cols {
		reordered := make([]Cell, len(cells))
		for i, j := range idx {
			reordered[i] = cells[j]
		}
		d.cols[col] = reordered
	}
	return nil
}
