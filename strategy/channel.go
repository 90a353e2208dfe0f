package strategy

import (
	"fmt"
	"math"

	"github.com/quantlab/hindsight/indicators"
	"github.com/quantlab/hindsight/market"
)

// lagged wraps an indicator and exposes its value as of the previous
// bar. Breakout systems compare today's close against yesterday's
// channel so the bar that sets a new extreme still counts as a breakout.
type lagged struct {
	ind   indicators.Indicator
	prev  float64
	ready bool
}

func lag(ind indicators.Indicator) *lagged {
	return &lagged{ind: ind, prev: math.NaN()}
}

func (l *lagged) Update(b market.Bar) {
	l.prev = l.ind.Value()
	l.ready = l.ind.Ready()
	l.ind.Update(b)
}

func (l *lagged) Value() float64 { return l.prev }
func (l *lagged) Ready() bool    { return l.ready }

func (l *lagged) Reset() {
	l.ind.Reset()
	l.prev = math.NaN()
	l.ready = false
}

// Donchian trades channel breakouts: enter on a close beyond the
// entry-lookback extreme, exit on a close beyond the opposite
// exit-lookback extreme.
type Donchian struct {
	entryMax *lagged
	entryMin *lagged
	exitMax  *lagged
	exitMin  *lagged
}

func NewDonchian(p Params) (Rules, error) {
	entry := p.Int("entry", 20)
	exit := p.Int("exit", 10)
	if exit < 2 || entry <= exit {
		return nil, fmt.Errorf("strategy: donchian needs 2 <= exit < entry, got %d/%d", exit, entry)
	}
	return &Donchian{
		entryMax: lag(indicators.NewMovingMax(entry)),
		entryMin: lag(indicators.NewMovingMin(entry)),
		exitMax:  lag(indicators.NewMovingMax(exit)),
		exitMin:  lag(indicators.NewMovingMin(exit)),
	}, nil
}

func (s *Donchian) Name() string { return "donchian" }

func (s *Donchian) Update(b market.Bar) {
	s.entryMax.Update(b)
	s.entryMin.Update(b)
	s.exitMax.Update(b)
	s.exitMin.Update(b)
}

func (s *Donchian) Ready() bool {
	return s.entryMax.Ready() && s.entryMin.Ready()
}

func (s *Donchian) GoLong(b market.Bar) bool    { return b.Close > s.entryMax.Value() }
func (s *Donchian) GoShort(b market.Bar) bool   { return b.Close < s.entryMin.Value() }
func (s *Donchian) ExitLong(b market.Bar) bool  { return b.Close < s.exitMin.Value() }
func (s *Donchian) ExitShort(b market.Bar) bool { return b.Close > s.exitMax.Value() }

func (s *Donchian) LongStop(float64) float64  { return math.NaN() }
func (s *Donchian) ShortStop(float64) float64 { return math.NaN() }

func (s *Donchian) Reset() {
	s.entryMax.Reset()
	s.entryMin.Reset()
	s.exitMax.Reset()
	s.exitMin.Reset()
}

// BollingerBreakout enters when the close escapes a volatility band
// around a long moving average and exits when it crosses back through
// the average.
type BollingerBreakout struct {
	mean  *indicators.EWMA
	sdev  *indicators.EWVariance
	width float64
}

func NewBollingerBreakout(p Params) (Rules, error) {
	lookback := p.Int("lookback", 350)
	width := p.Get("width", 2.5)
	if lookback < 2 {
		return nil, fmt.Errorf("strategy: bollinger lookback must be at least 2, got %d", lookback)
	}
	if width <= 0 {
		return nil, fmt.Errorf("strategy: bollinger width must be positive, got %g", width)
	}
	return &BollingerBreakout{
		mean:  indicators.NewEWMA(lookback),
		sdev:  indicators.NewEWVariance(lookback),
		width: width,
	}, nil
}

func (s *BollingerBreakout) Name() string { return "bollinger" }

func (s *BollingerBreakout) Update(b market.Bar) {
	s.mean.Update(b)
	s.sdev.Update(b)
}

func (s *BollingerBreakout) Ready() bool { return s.mean.Ready() && s.sdev.Ready() }

func (s *BollingerBreakout) band() float64 {
	return s.width * math.Sqrt(s.sdev.Value())
}

func (s *BollingerBreakout) GoLong(b market.Bar) bool {
	return b.Close > s.mean.Value()+s.band()
}

func (s *BollingerBreakout) GoShort(b market.Bar) bool {
	return b.Close < s.mean.Value()-s.band()
}

func (s *BollingerBreakout) ExitLong(b market.Bar) bool  { return b.Close < s.mean.Value() }
func (s *BollingerBreakout) ExitShort(b market.Bar) bool { return b.Close > s.mean.Value() }

func (s *BollingerBreakout) LongStop(float64) float64  { return math.NaN() }
func (s *BollingerBreakout) ShortStop(float64) float64 { return math.NaN() }

func (s *BollingerBreakout) Reset() {
	s.mean.Reset()
	s.sdev.Reset()
}
