package strategy

import (
	"math"

	"github.com/quantlab/hindsight/market"
)

// Hold buys on the first bar and never leaves. It is the benchmark the
// other systems have to beat.
type Hold struct{}

func NewHold(Params) (Rules, error) { return &Hold{}, nil }

func (*Hold) Name() string              { return "hold" }
func (*Hold) Update(market.Bar)         {}
func (*Hold) Ready() bool               { return true }
func (*Hold) GoLong(market.Bar) bool    { return true }
func (*Hold) GoShort(market.Bar) bool   { return false }
func (*Hold) ExitLong(market.Bar) bool  { return false }
func (*Hold) ExitShort(market.Bar) bool { return false }
func (*Hold) LongStop(float64) float64  { return math.NaN() }
func (*Hold) ShortStop(float64) float64 { return math.NaN() }
func (*Hold) Reset()                    {}
