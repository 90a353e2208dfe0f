// Package returns derives return and drawdown series from an equity
// curve. Profit is measured on equity net of accumulated debt, so a
// system that rebuilt its pot after a wipeout still shows the loss.
package returns

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/quantlab/hindsight/dataset"
	"github.com/quantlab/hindsight/strategy"
)

// Granularity selects the sampling of a derived series.
type Granularity int

const (
	Daily Granularity = iota
	Monthly
)

func (g Granularity) String() string {
	switch g {
	case Daily:
		return "daily"
	case Monthly:
		return "monthly"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// Point is one sample of a derived series.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a dated sequence of returns or drawdowns.
type Series []Point

// Values strips the dates.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

var errTooShort = errors.New("returns: need at least two samples")

// netEquity extracts equity minus debt at the chosen granularity.
func netEquity(f *dataset.Frame, g Granularity) ([]time.Time, []float64, error) {
	if g == Monthly {
		var err error
		f, err = f.Monthly()
		if err != nil {
			return nil, nil, err
		}
	}
	eq, err := f.Column(strategy.ColEquity)
	if err != nil {
		return nil, nil, err
	}
	debt, err := f.Column(strategy.ColDebt)
	if err != nil {
		return nil, nil, err
	}
	net := make([]float64, len(eq))
	for i := range eq {
		net[i] = eq[i] - debt[i]
	}
	return f.Dates(), net, nil
}

// Returns computes period-on-period fractional returns of net equity.
func Returns(f *dataset.Frame, g Granularity) (Series, error) {
	dates, net, err := netEquity(f, g)
	if err != nil {
		return nil, err
	}
	if len(net) < 2 {
		return nil, errTooShort
	}
	out := make(Series, 0, len(net)-1)
	for i := 1; i < len(net); i++ {
		if net[i-1] == 0 {
			return nil, fmt.Errorf("returns: net equity is zero at %s", dates[i-1].Format("2006-01-02"))
		}
		out = append(out, Point{Date: dates[i], Value: net[i]/net[i-1] - 1})
	}
	return out, nil
}

// LogReturns computes period-on-period log returns of net equity. The
// equity ratio must be positive at every step.
func LogReturns(f *dataset.Frame, g Granularity) (Series, error) {
	dates, net, err := netEquity(f, g)
	if err != nil {
		return nil, err
	}
	if len(net) < 2 {
		return nil, errTooShort
	}
	out := make(Series, 0, len(net)-1)
	for i := 1; i < len(net); i++ {
		ratio := net[i] / net[i-1]
		if ratio <= 0 || math.IsNaN(ratio) {
			return nil, fmt.Errorf("returns: non-positive equity ratio %g at %s",
				ratio, dates[i].Format("2006-01-02"))
		}
		out = append(out, Point{Date: dates[i], Value: math.Log(ratio)})
	}
	return out, nil
}

// Drawdowns computes the fractional drop of net equity from its running
// peak, zero at new highs. Defined only while net equity is positive.
func Drawdowns(f *dataset.Frame, g Granularity) (Series, error) {
	dates, net, err := netEquity(f, g)
	if err != nil {
		return nil, err
	}
	if len(net) == 0 {
		return nil, errTooShort
	}
	out := make(Series, 0, len(net))
	peak := math.Inf(-1)
	for i, v := range net {
		if v <= 0 {
			return nil, fmt.Errorf("returns: non-positive net equity %g at %s",
				v, dates[i].Format("2006-01-02"))
		}
		if v > peak {
			peak = v
		}
		out = append(out, Point{Date: dates[i], Value: v/peak - 1})
	}
	return out, nil
}

// Peaks computes the running peak of net equity, the reference level
// the drawdown fractions are measured against.
func Peaks(f *dataset.Frame, g Granularity) (Series, error) {
	dates, net, err := netEquity(f, g)
	if err != nil {
		return nil, err
	}
	if len(net) == 0 {
		return nil, errTooShort
	}
	out := make(Series, 0, len(net))
	peak := math.Inf(-1)
	for i, v := range net {
		if v <= 0 {
			return nil, fmt.Errorf("returns: non-positive net equity %g at %s",
				v, dates[i].Format("2006-01-02"))
		}
		if v > peak {
			peak = v
		}
		out = append(out, Point{Date: dates[i], Value: peak})
	}
	return out, nil
}

// MaxDrawdown returns the deepest drawdown (a non-positive number) and
// the longest stretch between a peak and the recovery to a new peak.
func MaxDrawdown(dd Series) (depth float64, duration time.Duration) {
	var peakDate time.Time
	underwater := false
	for _, p := range dd {
		if p.Value < depth {
			depth = p.Value
		}
		if p.Value == 0 {
			if underwater {
				if d := p.Date.Sub(peakDate); d > duration {
					duration = d
				}
			}
			peakDate = p.Date
			underwater = false
			continue
		}
		underwater = true
		if !peakDate.IsZero() {
			if d := p.Date.Sub(peakDate); d > duration {
				duration = d
			}
		}
	}
	return depth, duration
}
