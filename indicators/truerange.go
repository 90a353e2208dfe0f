package indicators

import (
	"fmt"
	"math"

	"github.com/quantlab/hindsight/market"
)

// trueRange is the largest of High-Low, |High-prevClose| and |Low-prevClose|.
func trueRange(cur, prev market.Bar) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR is the streaming simple average of the daily True Range.
type ATR struct {
	period  int
	win     *window
	prev    market.Bar
	hasPrev bool
}

func NewATR(period int) *ATR {
	return &ATR{period: period, win: newWindow(period)}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }

// Warmup needs period+1 bars because TR requires the previous close.
func (a *ATR) Warmup() int { return a.period + 1 }

func (a *ATR) Reset() {
	a.win.reset()
	a.hasPrev = false
}

func (a *ATR) Update(b market.Bar) {
	if !a.hasPrev {
		a.prev = b
		a.hasPrev = true
		return
	}
	a.win.push(trueRange(b, a.prev))
	a.prev = b
}

func (a *ATR) Ready() bool { return a.win.full() }

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	return a.win.mean()
}

// TurtleN is the Wilder-smoothed average True Range, the volatility
// measure Way of the Turtle calls N. Position sizing divides risk by it.
type TurtleN struct {
	period    int
	n         float64
	count     int
	warmupSum float64
	prev      market.Bar
	hasPrev   bool
}

func NewTurtleN(period int) *TurtleN {
	return &TurtleN{period: mustPeriod(period)}
}

func (t *TurtleN) Name() string { return fmt.Sprintf("N(%d)", t.period) }

func (t *TurtleN) Warmup() int { return t.period + 1 }

func (t *TurtleN) Reset() {
	t.n = 0
	t.count = 0
	t.warmupSum = 0
	t.hasPrev = false
}

func (t *TurtleN) Update(b market.Bar) {
	if !t.hasPrev {
		t.prev = b
		t.hasPrev = true
		return
	}
	tr := trueRange(b, t.prev)
	t.prev = b

	if t.count < t.period {
		t.warmupSum += tr
		t.count++
		if t.count == t.period {
			t.n = t.warmupSum / float64(t.period)
		}
		return
	}
	t.n = (t.n*float64(t.period-1) + tr) / float64(t.period)
}

func (t *TurtleN) Ready() bool { return t.count >= t.period }

func (t *TurtleN) Value() float64 {
	if !t.Ready() {
		return 0
	}
	return t.n
}
