package strategy

import (
	"fmt"

	"github.com/quantlab/hindsight/indicators"
	"github.com/quantlab/hindsight/market"
)

// turtles is the shared machinery of the two Turtle systems: channel
// breakout entries, a shorter opposite-channel exit, and a protective
// stop a multiple of N (the Turtles' volatility unit) away from entry.
type turtles struct {
	name     string
	entryMax *lagged
	entryMin *lagged
	exitMax  *lagged
	exitMin  *lagged
	vol      *indicators.TurtleN
	stopN    float64
}

func newTurtles(name string, p Params, entry, exit int) (*turtles, error) {
	entry = p.Int("entry", entry)
	exit = p.Int("exit", exit)
	volLookback := p.Int("n", 20)
	stopN := p.Get("stop", 2)
	if exit < 2 || entry <= exit {
		return nil, fmt.Errorf("strategy: %s needs 2 <= exit < entry, got %d/%d", name, exit, entry)
	}
	if stopN <= 0 {
		return nil, fmt.Errorf("strategy: %s stop multiple must be positive, got %g", name, stopN)
	}
	return &turtles{
		name:     name,
		entryMax: lag(indicators.NewMovingMax(entry)),
		entryMin: lag(indicators.NewMovingMin(entry)),
		exitMax:  lag(indicators.NewMovingMax(exit)),
		exitMin:  lag(indicators.NewMovingMin(exit)),
		vol:      indicators.NewTurtleN(volLookback),
		stopN:    stopN,
	}, nil
}

func (s *turtles) Name() string { return s.name }

func (s *turtles) Update(b market.Bar) {
	s.entryMax.Update(b)
	s.entryMin.Update(b)
	s.exitMax.Update(b)
	s.exitMin.Update(b)
	s.vol.Update(b)
}

func (s *turtles) Ready() bool {
	return s.entryMax.Ready() && s.entryMin.Ready() && s.vol.Ready()
}

// N is the current volatility unit, used for stops and position sizing.
func (s *turtles) N() float64 { return s.vol.Value() }

func (s *turtles) GoLong(b market.Bar) bool    { return b.Close > s.entryMax.Value() }
func (s *turtles) GoShort(b market.Bar) bool   { return b.Close < s.entryMin.Value() }
func (s *turtles) ExitLong(b market.Bar) bool  { return b.Close < s.exitMin.Value() }
func (s *turtles) ExitShort(b market.Bar) bool { return b.Close > s.exitMax.Value() }

func (s *turtles) LongStop(entry float64) float64  { return entry - s.stopN*s.N() }
func (s *turtles) ShortStop(entry float64) float64 { return entry + s.stopN*s.N() }

func (s *turtles) Reset() {
	s.entryMax.Reset()
	s.entryMin.Reset()
	s.exitMax.Reset()
	s.exitMin.Reset()
	s.vol.Reset()
}

// TurtlesSystemOne is the short-term Turtle system: 20-day breakout
// entry, 10-day opposite breakout exit, 2N stop. A 20-day entry is
// skipped when the last trade won; the 55-day failsafe breakout is
// always taken so a big trend is never missed.
type TurtlesSystemOne struct {
	*turtles
	failMax *lagged
	failMin *lagged
	lastWin bool
}

func NewTurtlesSystemOne(p Params) (Rules, error) {
	base, err := newTurtles("turtles1", p, 20, 10)
	if err != nil {
		return nil, err
	}
	failsafe := p.Int("failsafe", 55)
	if failsafe <= p.Int("entry", 20) {
		return nil, fmt.Errorf("strategy: turtles1 failsafe must exceed entry, got %d", failsafe)
	}
	return &TurtlesSystemOne{
		turtles: base,
		failMax: lag(indicators.NewMovingMax(failsafe)),
		failMin: lag(indicators.NewMovingMin(failsafe)),
	}, nil
}

func (s *TurtlesSystemOne) Update(b market.Bar) {
	s.turtles.Update(b)
	s.failMax.Update(b)
	s.failMin.Update(b)
}

func (s *TurtlesSystemOne) GoLong(b market.Bar) bool {
	if b.Close > s.failMax.Value() && s.failMax.Ready() {
		return true
	}
	return !s.lastWin && s.turtles.GoLong(b)
}

func (s *TurtlesSystemOne) GoShort(b market.Bar) bool {
	if b.Close < s.failMin.Value() && s.failMin.Ready() {
		return true
	}
	return !s.lastWin && s.turtles.GoShort(b)
}

func (s *TurtlesSystemOne) OnExit(t Trade) { s.lastWin = t.Win() }

func (s *TurtlesSystemOne) Reset() {
	s.turtles.Reset()
	s.failMax.Reset()
	s.failMin.Reset()
	s.lastWin = false
}

// TurtlesSystemTwo is the long-term Turtle system: 55-day breakout
// entry, 20-day opposite breakout exit, 2N stop, every signal taken.
type TurtlesSystemTwo struct {
	*turtles
}

func NewTurtlesSystemTwo(p Params) (Rules, error) {
	base, err := newTurtles("turtles2", p, 55, 20)
	if err != nil {
		return nil, err
	}
	return &TurtlesSystemTwo{turtles: base}, nil
}
