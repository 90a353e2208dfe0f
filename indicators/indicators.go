// Package indicators provides the streaming moving measures the trading
// systems are built from: averages, spreads, ranges, extremes and linear
// gradients, each in plain and exponentially weighted form.
package indicators

import (
	"fmt"

	"github.com/quantlab/hindsight/market"
)

// Indicator computes a single streaming value from daily bars.
// It is deterministic, so replaying the same series yields the same values.
type Indicator interface {
	// Name returns a stable identifier like "EWMA(25)".
	Name() string

	// Warmup returns how many bars are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next daily bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value. Callers should always
	// check Ready() first; before that it returns 0.
	Value() float64
}

// Constructor builds an indicator for a lookback period. The analysis
// layer uses it to run one indicator per requested lookback.
type Constructor func(period int) Indicator

// mustPeriod rejects non-positive lookbacks at construction. A zero or
// negative period is a programming error, not a runtime condition.
func mustPeriod(period int) int {
	if period < 1 {
		panic(fmt.Sprintf("indicators: period must be positive, got %d", period))
	}
	return period
}

// window is a fixed-capacity sliding window shared by the windowed
// indicators.
type window struct {
	size int
	vals []float64
}

func newWindow(size int) *window {
	return &window{size: mustPeriod(size), vals: make([]float64, 0, size)}
}

func (w *window) push(v float64) {
	w.vals = append(w.vals, v)
	if len(w.vals) > w.size {
		w.vals = w.vals[1:]
	}
}

func (w *window) full() bool { return len(w.vals) >= w.size }

func (w *window) reset() { w.vals = w.vals[:0] }

func (w *window) mean() float64 {
	sum := 0.0
	for _, v := range w.vals {
		sum += v
	}
	return sum / float64(len(w.vals))
}
