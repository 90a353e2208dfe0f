package indicators

import (
	"fmt"

	"github.com/quantlab/hindsight/market"
)

// Variance is the streaming N-day sample variance of the daily close.
type Variance struct {
	period int
	win    *window
}

func NewVariance(period int) *Variance {
	return &Variance{period: period, win: newWindow(period)}
}

func (v *Variance) Name() string { return fmt.Sprintf("VAR(%d)", v.period) }

func (v *Variance) Warmup() int { return v.period }

func (v *Variance) Reset() { v.win.reset() }

func (v *Variance) Update(b market.Bar) { v.win.push(b.Close) }

func (v *Variance) Ready() bool { return v.win.full() }

func (v *Variance) Value() float64 {
	if !v.Ready() {
		return 0
	}
	mean := v.win.mean()
	rsq := 0.0
	for _, x := range v.win.vals {
		d := x - mean
		rsq += d * d
	}
	return rsq / float64(len(v.win.vals)-1)
}

// EWVariance is the exponentially weighted variance of the daily close:
// the EW average of the squared residual against the EWMA.
type EWVariance struct {
	period int
	alpha  float64
	mean   *EWMA
	ewvar  float64
	win    *window // seeds the estimate at the end of warmup
	count  int
}

func NewEWVariance(period int) *EWVariance {
	return &EWVariance{
		period: period,
		alpha:  2.0 / float64(period+1),
		mean:   NewEWMA(period),
		win:    newWindow(period),
	}
}

func (v *EWVariance) Name() string { return fmt.Sprintf("EWVAR(%d)", v.period) }

func (v *EWVariance) Warmup() int { return v.period }

func (v *EWVariance) Reset() {
	v.mean.Reset()
	v.ewvar = 0
	v.count = 0
	v.win.reset()
}

func (v *EWVariance) Update(b market.Bar) {
	v.mean.Update(b)

	if v.count < v.period {
		v.win.push(b.Close)
		v.count++
		if v.count == v.period {
			// seed with the sample variance of the warmup closes
			mean := v.win.mean()
			rsq := 0.0
			for _, x := range v.win.vals {
				d := x - mean
				rsq += d * d
			}
			v.ewvar = rsq / float64(len(v.win.vals)-1)
		}
		return
	}

	r := b.Close - v.mean.Value()
	v.ewvar = v.alpha*r*r + (1-v.alpha)*v.ewvar
}

func (v *EWVariance) Ready() bool { return v.count >= v.period }

func (v *EWVariance) Value() float64 {
	if !v.Ready() {
		return 0
	}
	return v.ewvar
}

// Covariance is the streaming N-day sample covariance of the daily
// close against the bar index, the numerator of the regression slope.
type Covariance struct {
	period int
	win    *window
}

func NewCovariance(period int) *Covariance {
	return &Covariance{period: period, win: newWindow(period)}
}

func (c *Covariance) Name() string { return fmt.Sprintf("COV(%d)", c.period) }

func (c *Covariance) Warmup() int { return c.period }

func (c *Covariance) Reset() { c.win.reset() }

func (c *Covariance) Update(b market.Bar) { c.win.push(b.Close) }

func (c *Covariance) Ready() bool { return c.win.full() }

func (c *Covariance) Value() float64 {
	if !c.Ready() {
		return 0
	}
	n := len(c.win.vals)
	xbar := float64(n-1) / 2
	ybar := c.win.mean()
	sxy := 0.0
	for i, y := range c.win.vals {
		sxy += (float64(i) - xbar) * (y - ybar)
	}
	return sxy / float64(n-1)
}

// EWCovariance is the exponentially weighted covariance of the daily
// close against the bar index.
type EWCovariance struct {
	period int
	mom    *ewMoments
}

func NewEWCovariance(period int) *EWCovariance {
	return &EWCovariance{period: period, mom: newEWMoments(period)}
}

func (c *EWCovariance) Name() string { return fmt.Sprintf("EWCOV(%d)", c.period) }

func (c *EWCovariance) Warmup() int { return c.period }

func (c *EWCovariance) Reset() { c.mom.reset() }

func (c *EWCovariance) Update(b market.Bar) { c.mom.update(b.Close) }

func (c *EWCovariance) Ready() bool { return c.mom.ready() }

func (c *EWCovariance) Value() float64 {
	if !c.Ready() {
		return 0
	}
	return c.mom.sxy
}
