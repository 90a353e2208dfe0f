package indicators

import (
	"fmt"
	"math"

	"github.com/quantlab/hindsight/market"
)

/// Gradient is the streaming N-day linear gradient of the daily close:
// the least-squares slope of close against trading-day index, in price
// units per day.
type Gradient struct {
	period int
	win    *window
}

func NewGradient(period int) *Gradient {
	return &Gradient{period: period, win: newWindow(period)}
}

func (g *Gradient) Name() string { return fmt.Sprintf("GRAD(%d)", g.period) }

func (g *Gradient) Warmup() int { return g.period }

func (g *Gradient) Reset() { g.win.reset() }

func (g *Gradient) Update(b market.Bar) { g.win.push(b.Close) }

func (g *Gradient) Ready() bool { return g.win.full() }

func (g *Gradient) Value() float64 {
	if !g.Ready() {
		return 0
	}
	slope, _ := fitLine(g.win.vals)
	return slope
}

// GradientErr is the standard error on the N-day gradient.
type GradientErr struct {
	period int
	win    *window
}

func NewGradientErr(period int) *GradientErr {
	return &GradientErr{period: period, win: newWindow(period)}
}

func (g *GradientErr) Name() string { return fmt.Sprintf("GRADERR(%d)", g.period) }

func (g *GradientErr) Warmup() int { return g.period }

func (g *GradientErr) Reset() { g.win.reset() }

func (g *GradientErr) Update(b market.Bar) { g.win.push(b.Close) }

func (g *GradientErr) Ready() bool { return g.win.full() }

func (g *GradientErr) Value() float64 {
	if !g.Ready() {
		return 0
	}
	_, serr := fitLine(g.win.vals)
	return serr
}

// fitLine fits y = a + b*x with x = 0..n-1, returning the slope and its
// standard error. A negative error variance (numerical noise on a flat
// window) is reported as zero.
func fitLine(ys []float64) (slope, stderr float64) {
	n := float64(len(ys))
	if n < 3 {
		return 0, 0
	}

	meanX := (n - 1) / 2
	meanY := 0.0
	for _, y := range ys {
		meanY += y
	}
	meanY /= n

	var sxx, syy, sxy float64
	for i, y := range ys {
		dx := float64(i) - meanX
		dy := y - meanY
		sxx += dx * dx
		syy += dy * dy
		sxy += dx * dy
	}

	slope = sxy / sxx
	gvar := (syy/sxx - slope*slope) / (n - 2)
	if gvar < 0 {
		return slope, 0
	}
	return slope, math.Sqrt(gvar)
}

// EWGradient is the exponentially weighted linear gradient of the daily
// close, from EW first and second moments of (day index, close).
type EWGradient struct {
	period int
	mom    *ewMoments
}

func NewEWGradient(period int) *EWGradient {
	return &EWGradient{period: period, mom: newEWMoments(period)}
}

func (g *EWGradient) Name() string { return fmt.Sprintf("EWGRAD(%d)", g.period) }

func (g *EWGradient) Warmup() int { return g.period }

func (g *EWGradient) Reset() { g.mom.reset() }

func (g *EWGradient) Update(b market.Bar) { g.mom.update(b.Close) }

func (g *EWGradient) Ready() bool { return g.mom.ready() }

func (g *EWGradient) Value() float64 {
	if !g.Ready() {
		return 0
	}
	slope, _ := g.mom.fit()
	return slope
}

// EWGradientErr is the standard error on the exponentially weighted
// gradient.
type EWGradientErr struct {
	period int
	mom    *ewMoments
}

func NewEWGradientErr(period int) *EWGradientErr {
	return &EWGradientErr{period: period, mom: newEWMoments(period)}
}

func (g *EWGradientErr) Name() string { return fmt.Sprintf("EWGRADERR(%d)", g.period) }

func (g *EWGradientErr) Warmup() int { return g.period }

func (g *EWGradientErr) Reset() { g.mom.reset() }

func (g *EWGradientErr) Update(b market.Bar) { g.mom.update(b.Close) }

func (g *EWGradientErr) Ready() bool { return g.mom.ready() }

func (g *EWGradientErr) Value() float64 {
	if !g.Ready() {
		return 0
	}
	_, serr := g.mom.fit()
	return serr
}

// ewMoments tracks exponentially weighted means and central second
// moments of (x=day index, y=close) so the EW gradient variants can share
// one update rule. Seeded with an ordinary fit over the warmup window.
type ewMoments struct {
	period int
	alpha  float64

	t     int
	count int
	seed  []float64

	mx, my        float64
	sxx, syy, sxy float64
}

func newEWMoments(period int) *ewMoments {
	return &ewMoments{
		period: mustPeriod(period),
		alpha:  2.0 / float64(period+1),
	}
}

func (m *ewMoments) reset() {
	m.t = 0
	m.count = 0
	m.seed = m.seed[:0]
	m.mx, m.my = 0, 0
	m.sxx, m.syy, m.sxy = 0, 0, 0
}

func (m *ewMoments) update(y float64) {
	x := float64(m.t)
	m.t++

	if m.count < m.period {
		m.seed = append(m.seed, y)
		m.count++
		if m.count == m.period {
			n := float64(m.period)
			m.mx = (n - 1) / 2
			for _, v := range m.seed {
				m.my += v
			}
			m.my /= n
			for i, v := range m.seed {
				dx := float64(i) - m.mx
				dy := v - m.my
				m.sxx += dx * dx / n
				m.syy += dy * dy / n
				m.sxy += dx * dy / n
			}
		}
		return
	}

	a := m.alpha
	dx := x - m.mx
	dy := y - m.my
	m.mx += a * dx
	m.my += a * dy
	m.sxx = (1 - a) * (m.sxx + a*dx*dx)
	m.syy = (1 - a) * (m.syy + a*dy*dy)
	m.sxy = (1 - a) * (m.sxy + a*dx*dy)
}

func (m *ewMoments) ready() bool { return m.count >= m.period }

func (m *ewMoments) fit() (slope, stderr float64) {
	if m.sxx == 0 {
		return 0, 0
	}
	slope = m.sxy / m.sxx
	gvar := (m.syy/m.sxx - slope*slope) / float64(m.period-2)
	if gvar < 0 {
		return slope, 0
	}
	return slope, math.Sqrt(gvar)
}
