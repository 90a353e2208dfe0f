// Package dataset provides the column-oriented frames every analysis in
// hindsight reads and writes. A Frame is a date axis plus named float
// columns; warmup rows that an analysis cannot fill yet are NaN in memory
// and blank cells on disk.
package dataset

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Frame holds a strictly increasing date axis and equal-length float columns.
type Frame struct {
	dates []time.Time
	order []string
	cols  map[string][]float64
}

// New creates a Frame over the given dates. Dates must be strictly
// increasing, oldest first.
func New(dates []time.Time) (*Frame, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("dataset: dates not strictly increasing at row %d (%s >= %s)",
				i, dates[i-1].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}
	f := &Frame{
		dates: make([]time.Time, len(dates)),
		cols:  make(map[string][]float64),
	}
	copy(f.dates, dates)
	return f, nil
}

func (f *Frame) Len() int { return len(f.dates) }

// Date returns the date at row i.
func (f *Frame) Date(i int) time.Time { return f.dates[i] }

// Dates returns the date axis. Callers must not modify it.
func (f *Frame) Dates() []time.Time { return f.dates }

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string { return f.order }

// SetColumn adds or replaces a column. The values slice must match the
// date axis length.
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != len(f.dates) {
		return fmt.Errorf("dataset: column %q has %d values, frame has %d rows",
			name, len(values), len(f.dates))
	}
	if _, ok := f.cols[name]; !ok {
		f.order = append(f.order, name)
	}
	f.cols[name] = values
	return nil
}

// Column returns the named column, or an error if it does not exist.
func (f *Frame) Column(name string) ([]float64, error) {
	c, ok := f.cols[name]
	if !ok {
		return nil, fmt.Errorf("dataset: no column %q (have %v)", name, f.order)
	}
	return c, nil
}

// Value returns a single cell. NaN marks a warmup/blank cell.
func (f *Frame) Value(name string, row int) (float64, error) {
	c, err := f.Column(name)
	if err != nil {
		return 0, err
	}
	if row < 0 || row >= len(c) {
		return 0, fmt.Errorf("dataset: row %d out of range [0,%d)", row, len(c))
	}
	return c[row], nil
}

// RowAt returns the first row whose date is on or after t, clamped to the
// frame bounds. Dates are strictly increasing so a binary search suffices.
func (f *Frame) RowAt(t time.Time) int {
	n := len(f.dates)
	if n == 0 {
		return 0
	}
	i := sort.Search(n, func(i int) bool { return !f.dates[i].Before(t) })
	if i >= n {
		return n - 1
	}
	return i
}

// Slice returns a view-copy of the rows with from <= date <= to.
func (f *Frame) Slice(from, to time.Time) (*Frame, error) {
	lo := sort.Search(len(f.dates), func(i int) bool { return !f.dates[i].Before(from) })
	hi := sort.Search(len(f.dates), func(i int) bool { return f.dates[i].After(to) })
	if lo >= hi {
		return nil, fmt.Errorf("dataset: empty slice %s..%s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	out, err := New(f.dates[lo:hi])
	if err != nil {
		return nil, err
	}
	for _, name := range f.order {
		vals := make([]float64, hi-lo)
		copy(vals, f.cols[name][lo:hi])
		if err := out.SetColumn(name, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Monthly keeps the last row of each calendar month, the granularity the
// monthly returns and report calculations use.
func (f *Frame) Monthly() (*Frame, error) {
	var keep []int
	for i := range f.dates {
		last := i == len(f.dates)-1
		if !last {
			next := f.dates[i+1]
			if next.Month() == f.dates[i].Month() && next.Year() == f.dates[i].Year() {
				continue
			}
		}
		keep = append(keep, i)
	}

	dates := make([]time.Time, len(keep))
	for j, i := range keep {
		dates[j] = f.dates[i]
	}
	out, err := New(dates)
	if err != nil {
		return nil, err
	}
	for _, name := range f.order {
		src := f.cols[name]
		vals := make([]float64, len(keep))
		for j, i := range keep {
			vals[j] = src[i]
		}
		if err := out.SetColumn(name, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Blank returns a column of NaN cells sized to the frame.
func (f *Frame) Blank() []float64 {
	vals := make([]float64, len(f.dates))
	for i := range vals {
		vals[i] = math.NaN()
	}
	return vals
}

// IsBlank reports whether a cell is a warmup/blank marker.
func IsBlank(v float64) bool { return math.IsNaN(v) }
