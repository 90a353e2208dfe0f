// Package strategy holds the trading systems and the backtest engine
// that drives them over a price series.
package strategy

import (
	"errors"
	"fmt"
	"sort"

	"github.com/quantlab/hindsight/market"
)

// Rules is a trading system: a bundle of indicators plus the entry and
// exit decisions taken on each close. Position direction is long (+1),
// short (-1) or flat (0); the engine owns the position, the rules only
// signal.
type Rules interface {
	Name() string

	// Update feeds the next bar to the system's indicators.
	Update(b market.Bar)

	// Ready reports whether every indicator has warmed up. Signals are
	// ignored until then.
	Ready() bool

	GoLong(b market.Bar) bool
	GoShort(b market.Bar) bool
	ExitLong(b market.Bar) bool
	ExitShort(b market.Bar) bool

	// LongStop and ShortStop return the protective stop price for a
	// position entered at the given price. NaN means no stop.
	LongStop(entry float64) float64
	ShortStop(entry float64) float64

	Reset()
}

// TradeObserver is implemented by systems that adapt to past trade
// outcomes, such as the Turtles' skip-a-winner rule.
type TradeObserver interface {
	OnExit(t Trade)
}

// Params carries the tunable numbers for a system. Lookbacks live here
// as floats so the optimizer can sweep everything through one map.
type Params map[string]float64

// Get returns the named parameter or the default when absent.
func (p Params) Get(name string, def float64) float64 {
	if v, ok := p[name]; ok {
		return v
	}
	return def
}

// Int returns the named parameter truncated to int, or the default.
func (p Params) Int(name string, def int) int {
	if v, ok := p[name]; ok {
		return int(v)
	}
	return def
}

// Clone copies the params so a sweep can mutate one point at a time.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Factory builds a system from its params, validating them.
type Factory func(p Params) (Rules, error)

var factories = map[string]Factory{
	"hold":      NewHold,
	"dualma":    NewDualMA,
	"triplema":  NewTripleMA,
	"donchian":  NewDonchian,
	"bollinger": NewBollingerBreakout,
	"turtles1":  NewTurtlesSystemOne,
	"turtles2":  NewTurtlesSystemTwo,
	"gradsig":   NewGradSig,
	"gradconf":  NewGradConf,
}

// ErrUnknownSystem reports a system name with no registered factory.
var ErrUnknownSystem = errors.New("strategy: unknown system")

// New builds a registered system by name.
func New(name string, p Params) (Rules, error) {
	f, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (have %v)", ErrUnknownSystem, name, Names())
	}
	return f(p)
}

// Names lists the registered system names, sorted.
func Names() []string {
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
