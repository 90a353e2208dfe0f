package strategy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantlab/hindsight/indicators"
	"github.com/quantlab/hindsight/market"
)

// GradSig trades the sign of the price trend: long while the fitted
// slope over the lookback is positive, short while negative.
type GradSig struct {
	grad *indicators.EWGradient
}

func NewGradSig(p Params) (Rules, error) {
	lookback := p.Int("lookback", 100)
	if lookback < 3 {
		return nil, fmt.Errorf("strategy: gradsig lookback must be at least 3, got %d", lookback)
	}
	return &GradSig{grad: indicators.NewEWGradient(lookback)}, nil
}

func (s *GradSig) Name() string { return "gradsig" }

func (s *GradSig) Update(b market.Bar) { s.grad.Update(b) }
func (s *GradSig) Ready() bool         { return s.grad.Ready() }

func (s *GradSig) GoLong(market.Bar) bool    { return s.grad.Value() > 0 }
func (s *GradSig) GoShort(market.Bar) bool   { return s.grad.Value() < 0 }
func (s *GradSig) ExitLong(market.Bar) bool  { return s.grad.Value() < 0 }
func (s *GradSig) ExitShort(market.Bar) bool { return s.grad.Value() > 0 }

func (s *GradSig) LongStop(float64) float64  { return math.NaN() }
func (s *GradSig) ShortStop(float64) float64 { return math.NaN() }

func (s *GradSig) Reset() { s.grad.Reset() }

// GradConf trades only trends that are statistically significant: the
// fitted slope divided by its standard error is a t statistic, and the
// system enters when it clears the Student-t quantile for the chosen
// confidence level. The position closes when the slope loses its sign.
type GradConf struct {
	grad      *indicators.EWGradient
	gradErr   *indicators.EWGradientErr
	threshold float64
}

func NewGradConf(p Params) (Rules, error) {
	lookback := p.Int("lookback", 100)
	confidence := p.Get("confidence", 0.95)
	if lookback < 4 {
		return nil, fmt.Errorf("strategy: gradconf lookback must be at least 4, got %d", lookback)
	}
	if confidence <= 0.5 || confidence >= 1 {
		return nil, fmt.Errorf("strategy: gradconf confidence must be in (0.5, 1), got %g", confidence)
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(lookback - 2)}
	return &GradConf{
		grad:      indicators.NewEWGradient(lookback),
		gradErr:   indicators.NewEWGradientErr(lookback),
		threshold: dist.Quantile(confidence),
	}, nil
}

func (s *GradConf) Name() string { return "gradconf" }

func (s *GradConf) Update(b market.Bar) {
	s.grad.Update(b)
	s.gradErr.Update(b)
}

func (s *GradConf) Ready() bool { return s.grad.Ready() && s.gradErr.Ready() }

// tstat is slope over standard error. A zero error with a nonzero slope
// is a perfectly clean trend, treated as infinitely significant.
func (s *GradConf) tstat() float64 {
	g, e := s.grad.Value(), s.gradErr.Value()
	if e == 0 {
		if g == 0 {
			return 0
		}
		return math.Inf(int(math.Copysign(1, g)))
	}
	return g / e
}

func (s *GradConf) GoLong(market.Bar) bool    { return s.tstat() > s.threshold }
func (s *GradConf) GoShort(market.Bar) bool   { return s.tstat() < -s.threshold }
func (s *GradConf) ExitLong(market.Bar) bool  { return s.grad.Value() < 0 }
func (s *GradConf) ExitShort(market.Bar) bool { return s.grad.Value() > 0 }

func (s *GradConf) LongStop(float64) float64  { return math.NaN() }
func (s *GradConf) ShortStop(float64) float64 { return math.NaN() }

func (s *GradConf) Reset() {
	s.grad.Reset()
	s.gradErr.Reset()
}
