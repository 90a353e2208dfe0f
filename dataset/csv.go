package dataset

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

// WriteCSV stores the frame newest-first with a Date header column, the
// layout the downloaded price files use. Blank cells stand in for NaN.
func (f *Frame) WriteCSV(path string) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	w := csv.NewWriter(out)

	header := append([]string{"Date"}, f.order...)
	if err := w.Write(header); err != nil {
		return err
	}

	for i := len(f.dates) - 1; i >= 0; i-- {
		row := make([]string, 0, len(header))
		row = append(row, f.dates[i].Format(dateLayout))
		for _, name := range f.order {
			v := f.cols[name][i]
			if math.IsNaN(v) {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// ReadCSV loads a frame written by WriteCSV (or downloaded in the same
// layout), reversing back to oldest-first order.
func ReadCSV(path string) (*Frame, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("dataset: %s is empty", path)
	}

	header := records[0]
	if len(header) < 2 || header[0] != "Date" {
		return nil, fmt.Errorf("dataset: %s: want a Date header column, got %v", path, header)
	}
	names := header[1:]
	rows := records[1:]

	n := len(rows)
	dates := make([]time.Time, n)
	cols := make([][]float64, len(names))
	for c := range cols {
		cols[c] = make([]float64, n)
	}

	// On-disk order is newest first.
	for i, rec := range rows {
		if len(rec) != len(header) {
			return nil, fmt.Errorf("dataset: %s row %d: %d fields, want %d", path, i+1, len(rec), len(header))
		}
		at := n - 1 - i

		d, err := time.Parse(dateLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("dataset: %s row %d: bad date %q: %w", path, i+1, rec[0], err)
		}
		dates[at] = d

		for c := range names {
			cell := rec[c+1]
			if cell == "" {
				cols[c][at] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: %s row %d col %s: %w", path, i+1, names[c], err)
			}
			cols[c][at] = v
		}
	}

	f, err := New(dates)
	if err != nil {
		return nil, fmt.Errorf("dataset: %s: %w", path, err)
	}
	for c, name := range names {
		if err := f.SetColumn(name, cols[c]); err != nil {
			return nil, err
		}
	}
	return f, nil
}
