package indicators

import (
	"fmt"

	"github.com/quantlab/hindsight/market"
)

// SMA is a streaming Simple Moving Average of the daily close.
type SMA struct {
	period int
	win    *window
}

func NewSMA(period int) *SMA {
	return &SMA{period: period, win: newWindow(period)}
}

func (m *SMA) Name() string { return fmt.Sprintf("SMA(%d)", m.period) }

func (m *SMA) Warmup() int { return m.period }

func (m *SMA) Reset() { m.win.reset() }

func (m *SMA) Update(b market.Bar) { m.win.push(b.Close) }

func (m *SMA) Ready() bool { return m.win.full() }

func (m *SMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.win.mean()
}

// EWMA is a streaming Exponentially Weighted Moving Average of the daily
// close with alpha = 2/(period+1), seeded with the simple average of the
// first period closes.
type EWMA struct {
	period    int
	alpha     float64
	ewma      float64
	count     int
	warmupSum float64
}

func NewEWMA(period int) *EWMA {
	return &EWMA{
		period: mustPeriod(period),
		alpha:  2.0 / float64(period+1),
	}
}

func (e *EWMA) Name() string { return fmt.Sprintf("EWMA(%d)", e.period) }

func (e *EWMA) Warmup() int { return e.period }

func (e *EWMA) Reset() {
	e.ewma = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *EWMA) Update(b market.Bar) {
	if e.count < e.period {
		e.warmupSum += b.Close
		e.count++
		if e.count == e.period {
			e.ewma = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ewma = e.alpha*b.Close + (1-e.alpha)*e.ewma
}

func (e *EWMA) Ready() bool { return e.count >= e.period }

func (e *EWMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ewma
}
