package indicators

import (
	"fmt"

	"github.com/quantlab/hindsight/market"
)

// MovingMax is the streaming N-day maximum of the daily high. Breakout
// systems enter when the close clears it.
type MovingMax struct {
	period int
	win    *window
}

func NewMovingMax(period int) *MovingMax {
	return &MovingMax{period: period, win: newWindow(period)}
}

func (m *MovingMax) Name() string { return fmt.Sprintf("MMAX(%d)", m.period) }

func (m *MovingMax) Warmup() int { return m.period }

func (m *MovingMax) Reset() { m.win.reset() }

func (m *MovingMax) Update(b market.Bar) { m.win.push(b.High) }

func (m *MovingMax) Ready() bool { return m.win.full() }

func (m *MovingMax) Value() float64 {
	if !m.Ready() {
		return 0
	}
	max := m.win.vals[0]
	for _, v := range m.win.vals[1:] {
		if v > max {
			max = v
		}
	}
	return max
}

// MovingMin is the streaming N-day minimum of the daily low.
type MovingMin struct {
	period int
	win    *window
}

func NewMovingMin(period int) *MovingMin {
	return &MovingMin{period: period, win: newWindow(period)}
}

func (m *MovingMin) Name() string { return fmt.Sprintf("MMIN(%d)", m.period) }

func (m *MovingMin) Warmup() int { return m.period }

func (m *MovingMin) Reset() { m.win.reset() }

func (m *MovingMin) Update(b market.Bar) { m.win.push(b.Low) }

func (m *MovingMin) Ready() bool { return m.win.full() }

func (m *MovingMin) Value() float64 {
	if !m.Ready() {
		return 0
	}
	min := m.win.vals[0]
	for _, v := range m.win.vals[1:] {
		if v < min {
			min = v
		}
	}
	return min
}
