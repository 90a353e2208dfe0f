package strategy

import (
	"fmt"
	"math"

	"github.com/quantlab/hindsight/indicators"
	"github.com/quantlab/hindsight/market"
)

// DualMA is the classic moving average crossover, always in the market:
// long while the fast average is above the slow one, short below.
type DualMA struct {
	fast *indicators.EWMA
	slow *indicators.EWMA
}

func NewDualMA(p Params) (Rules, error) {
	fast := p.Int("fast", 25)
	slow := p.Int("slow", 350)
	if fast < 2 || slow <= fast {
		return nil, fmt.Errorf("strategy: dualma needs 2 <= fast < slow, got %d/%d", fast, slow)
	}
	return &DualMA{
		fast: indicators.NewEWMA(fast),
		slow: indicators.NewEWMA(slow),
	}, nil
}

func (s *DualMA) Name() string { return "dualma" }

func (s *DualMA) Update(b market.Bar) {
	s.fast.Update(b)
	s.slow.Update(b)
}

func (s *DualMA) Ready() bool { return s.fast.Ready() && s.slow.Ready() }

func (s *DualMA) GoLong(market.Bar) bool    { return s.fast.Value() > s.slow.Value() }
func (s *DualMA) GoShort(market.Bar) bool   { return s.fast.Value() < s.slow.Value() }
func (s *DualMA) ExitLong(market.Bar) bool  { return s.fast.Value() < s.slow.Value() }
func (s *DualMA) ExitShort(market.Bar) bool { return s.fast.Value() > s.slow.Value() }

func (s *DualMA) LongStop(float64) float64  { return math.NaN() }
func (s *DualMA) ShortStop(float64) float64 { return math.NaN() }

func (s *DualMA) Reset() {
	s.fast.Reset()
	s.slow.Reset()
}

// TripleMA adds a trend filter to the crossover: the fast/mid cross
// trades only in the direction the mid/slow relation allows, and a
// fast/mid recross exits to flat instead of reversing.
type TripleMA struct {
	fast *indicators.EWMA
	mid  *indicators.EWMA
	slow *indicators.EWMA
}

func NewTripleMA(p Params) (Rules, error) {
	fast := p.Int("fast", 25)
	mid := p.Int("mid", 100)
	slow := p.Int("slow", 350)
	if fast < 2 || mid <= fast || slow <= mid {
		return nil, fmt.Errorf("strategy: triplema needs 2 <= fast < mid < slow, got %d/%d/%d", fast, mid, slow)
	}
	return &TripleMA{
		fast: indicators.NewEWMA(fast),
		mid:  indicators.NewEWMA(mid),
		slow: indicators.NewEWMA(slow),
	}, nil
}

func (s *TripleMA) Name() string { return "triplema" }

func (s *TripleMA) Update(b market.Bar) {
	s.fast.Update(b)
	s.mid.Update(b)
	s.slow.Update(b)
}

func (s *TripleMA) Ready() bool {
	return s.fast.Ready() && s.mid.Ready() && s.slow.Ready()
}

func (s *TripleMA) GoLong(market.Bar) bool {
	return s.fast.Value() > s.mid.Value() && s.mid.Value() > s.slow.Value()
}

func (s *TripleMA) GoShort(market.Bar) bool {
	return s.fast.Value() < s.mid.Value() && s.mid.Value() < s.slow.Value()
}

func (s *TripleMA) ExitLong(market.Bar) bool  { return s.fast.Value() < s.mid.Value() }
func (s *TripleMA) ExitShort(market.Bar) bool { return s.fast.Value() > s.mid.Value() }

func (s *TripleMA) LongStop(float64) float64  { return math.NaN() }
func (s *TripleMA) ShortStop(float64) float64 { return math.NaN() }

func (s *TripleMA) Reset() {
	s.fast.Reset()
	s.mid.Reset()
	s.slow.Reset()
}
