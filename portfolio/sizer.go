// Package portfolio runs one trading system across many indices from a
// single shared account, sizing each position off the market's own
// volatility the way the Turtles did.
package portfolio

import (
	"fmt"
	"math"
)

// Sizer converts an entry signal into a position weight, the fraction
// of account equity exposed to the market.
type Sizer struct {
	// RiskFraction is the share of equity put at risk per position,
	// measured to the protective stop. The Turtle unit was one percent.
	RiskFraction float64

	// StopDistance is the stop's distance from entry in units of N,
	// matching the system's stop multiple.
	StopDistance float64

	// MaxWeight caps a single position's share of equity. One means no
	// leverage on a single market.
	MaxWeight float64

	// MaxTotal caps the summed weight of all open positions. Entries
	// beyond it are cut to the remaining headroom or skipped.
	MaxTotal float64
}

// DefaultSizer is the classic Turtle unit: one percent of equity to a
// two N stop, never more than the whole pot on one market or across
// the account.
func DefaultSizer() *Sizer {
	return &Sizer{RiskFraction: 0.01, StopDistance: 2, MaxWeight: 1, MaxTotal: 1}
}

func (s *Sizer) validate() error {
	if s.RiskFraction <= 0 || s.RiskFraction >= 1 {
		return fmt.Errorf("portfolio: risk fraction must be in (0, 1), got %g", s.RiskFraction)
	}
	if s.StopDistance <= 0 {
		return fmt.Errorf("portfolio: stop distance must be positive, got %g", s.StopDistance)
	}
	if s.MaxWeight <= 0 {
		return fmt.Errorf("portfolio: max weight must be positive, got %g", s.MaxWeight)
	}
	if s.MaxTotal < s.MaxWeight {
		return fmt.Errorf("portfolio: max total %g below max weight %g", s.MaxTotal, s.MaxWeight)
	}
	return nil
}

// Weight sizes a position entered at the given price with volatility
// unit n. Losing the full stop distance then costs RiskFraction of
// equity. Markets too quiet to measure get no position at all.
func (s *Sizer) Weight(price, n float64) float64 {
	if price <= 0 || n <= 0 || math.IsNaN(n) {
		return 0
	}
	w := s.RiskFraction * price / (s.StopDistance * n)
	if w > s.MaxWeight {
		w = s.MaxWeight
	}
	return w
}
