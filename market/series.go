// Package market holds daily price history and the ticker registry the
// rest of hindsight analyses.
package market

import (
	"fmt"
	"time"

	"github.com/quantlab/hindsight/dataset"
)

// Bar represents one day of OHLC (Open, High, Low, Close) price data.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Series is the stored daily history for one ticker, oldest bar first.
type Series struct {
	Ticker string
	Bars   []Bar
}

// Column names used by every analysis reading a Series frame.
const (
	ColOpen   = "Open"
	ColHigh   = "High"
	ColLow    = "Low"
	ColClose  = "Close"
	ColVolume = "Volume"
)

func (s *Series) Len() int { return len(s.Bars) }

// Period returns the oldest and newest stored dates.
func (s *Series) Period() (from, to time.Time, err error) {
	if len(s.Bars) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("market: %s has no bars", s.Ticker)
	}
	return s.Bars[0].Date, s.Bars[len(s.Bars)-1].Date, nil
}

// Slice keeps the bars with from <= date <= to.
func (s *Series) Slice(from, to time.Time) *Series {
	out := &Series{Ticker: s.Ticker}
	for _, b := range s.Bars {
		if b.Date.Before(from) || b.Date.After(to) {
			continue
		}
		out.Bars = append(out.Bars, b)
	}
	return out
}

// Frame converts the series to a dataset frame with OHLCV columns.
func (s *Series) Frame() (*dataset.Frame, error) {
	dates := make([]time.Time, len(s.Bars))
	open := make([]float64, len(s.Bars))
	high := make([]float64, len(s.Bars))
	low := make([]float64, len(s.Bars))
	closes := make([]float64, len(s.Bars))
	vol := make([]float64, len(s.Bars))

	for i, b := range s.Bars {
		dates[i] = b.Date
		open[i] = b.Open
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
		vol[i] = b.Volume
	}

	f, err := dataset.New(dates)
	if err != nil {
		return nil, fmt.Errorf("market: %s: %w", s.Ticker, err)
	}
	for _, col := range []struct {
		name string
		vals []float64
	}{
		{ColOpen, open}, {ColHigh, high}, {ColLow, low}, {ColClose, closes}, {ColVolume, vol},
	} {
		if err := f.SetColumn(col.name, col.vals); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FromFrame rebuilds a Series from an OHLCV frame.
func FromFrame(ticker string, f *dataset.Frame) (*Series, error) {
	get := func(name string) ([]float64, error) {
		c, err := f.Column(name)
		if err != nil {
			return nil, fmt.Errorf("market: %s: %w", ticker, err)
		}
		return c, nil
	}

	open, err := get(ColOpen)
	if err != nil {
		return nil, err
	}
	high, err := get(ColHigh)
	if err != nil {
		return nil, err
	}
	low, err := get(ColLow)
	if err != nil {
		return nil, err
	}
	closes, err := get(ColClose)
	if err != nil {
		return nil, err
	}

	// Volume is optional; older files do not carry it.
	vol, _ := f.Column(ColVolume)

	s := &Series{Ticker: ticker, Bars: make([]Bar, f.Len())}
	for i := 0; i < f.Len(); i++ {
		b := Bar{
			Date:  f.Date(i),
			Open:  open[i],
			High:  high[i],
			Low:   low[i],
			Close: closes[i],
		}
		if vol != nil {
			b.Volume = vol[i]
		}
		s.Bars[i] = b
	}
	return s, nil
}
