// Package analysis wires the streaming indicators into runlist tasks.
// Each analysis computes indicator columns for a ticker series and caches
// the resulting frame, in memory and optionally as CSV in the store.
package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/quantlab/hindsight/dataset"
	"github.com/quantlab/hindsight/indicators"
	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/runlist"
)

// Constructors maps analysis type names to indicator constructors. The
// CLI and the trading systems look their prerequisites up here.
var Constructors = map[string]indicators.Constructor{
	"SMA":       func(n int) indicators.Indicator { return indicators.NewSMA(n) },
	"EWMA":      func(n int) indicators.Indicator { return indicators.NewEWMA(n) },
	"VAR":       func(n int) indicators.Indicator { return indicators.NewVariance(n) },
	"EWVAR":     func(n int) indicators.Indicator { return indicators.NewEWVariance(n) },
	"COV":       func(n int) indicators.Indicator { return indicators.NewCovariance(n) },
	"EWCOV":     func(n int) indicators.Indicator { return indicators.NewEWCovariance(n) },
	"ATR":       func(n int) indicators.Indicator { return indicators.NewATR(n) },
	"N":         func(n int) indicators.Indicator { return indicators.NewTurtleN(n) },
	"MMAX":      func(n int) indicators.Indicator { return indicators.NewMovingMax(n) },
	"MMIN":      func(n int) indicators.Indicator { return indicators.NewMovingMin(n) },
	"GRAD":      func(n int) indicators.Indicator { return indicators.NewGradient(n) },
	"GRADERR":   func(n int) indicators.Indicator { return indicators.NewGradientErr(n) },
	"EWGRAD":    func(n int) indicators.Indicator { return indicators.NewEWGradient(n) },
	"EWGRADERR": func(n int) indicators.Indicator { return indicators.NewEWGradientErr(n) },
}

// Types returns the known analysis type names, sorted.
func Types() []string {
	out := make([]string, 0, len(Constructors))
	for k := range Constructors {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Source loads a ticker's stored price history into the Env under the
// ticker's own key. Every derived analysis requires one.
type Source struct {
	Store  *market.Store
	Ticker string

	// Series short-circuits the store, used by tests and the portfolio
	// runner which already holds the bars.
	Series *market.Series
}

func (s *Source) Key() string { return s.Ticker }

func (s *Source) Requires() []runlist.Task { return nil }

func (s *Source) Run(ctx context.Context, env *runlist.Env) error {
	series := s.Series
	if series == nil {
		var err error
		series, err = s.Store.LoadSeries(s.Ticker)
		if err != nil {
			return err
		}
	}
	frame, err := series.Frame()
	if err != nil {
		return err
	}
	env.Put(s.Key(), frame)
	return nil
}

// SeriesAnalysis runs one indicator type over a ticker for a set of
// lookbacks, producing a frame with one column per lookback named
// "<TYPE>_<n>", e.g. EWMA_25 and EWMA_350 in frame FTSE_EWMA.
type SeriesAnalysis struct {
	Ticker    string
	Type      string
	Lookbacks []int

	// Store, when set, caches the computed frame as CSV and reuses it on
	// the next run unless Force is set.
	Store *market.Store
	Force bool

	source runlist.Task
}

// NewSeriesAnalysis builds the analysis for a known type name.
func NewSeriesAnalysis(store *market.Store, ticker, typ string, lookbacks []int) (*SeriesAnalysis, error) {
	if _, ok := Constructors[typ]; !ok {
		return nil, fmt.Errorf("analysis: unknown type %q (have %v)", typ, Types())
	}
	for _, n := range lookbacks {
		if n < 2 {
			return nil, fmt.Errorf("analysis: lookback must be at least 2, got %d", n)
		}
	}
	return &SeriesAnalysis{
		Ticker:    ticker,
		Type:      typ,
		Lookbacks: lookbacks,
		Store:     store,
		source:    &Source{Store: store, Ticker: ticker},
	}, nil
}

// WithSource overrides the price source task, e.g. with an in-memory
// Series.
func (a *SeriesAnalysis) WithSource(src runlist.Task) *SeriesAnalysis {
	a.source = src
	return a
}

func (a *SeriesAnalysis) Key() string {
	return fmt.Sprintf("%s_%s", a.Ticker, a.Type)
}

// ColumnName is the frame column for one lookback of this analysis type.
func ColumnName(typ string, lookback int) string {
	return fmt.Sprintf("%s_%d", typ, lookback)
}

// prerequisites names the analyses a derived type needs computed and
// cached first. The gradient is covariance over variance, so its
// pieces are worth a frame of their own.
var prerequisites = map[string][]string{
	"GRAD":      {"VAR", "COV"},
	"GRADERR":   {"VAR", "COV"},
	"EWGRAD":    {"EWVAR", "EWCOV"},
	"EWGRADERR": {"EWVAR", "EWCOV"},
}

func (a *SeriesAnalysis) Requires() []runlist.Task {
	reqs := []runlist.Task{a.source}
	for _, typ := range prerequisites[a.Type] {
		reqs = append(reqs, &SeriesAnalysis{
			Ticker:    a.Ticker,
			Type:      typ,
			Lookbacks: a.Lookbacks,
			Store:     a.Store,
			Force:     a.Force,
			source:    a.source,
		})
	}
	return reqs
}

func (a *SeriesAnalysis) Run(ctx context.Context, env *runlist.Env) error {
	if a.Store != nil && !a.Force {
		if f, err := dataset.ReadCSV(a.Store.AnalysisPath(a.Key())); err == nil {
			env.Put(a.Key(), f)
			return nil
		}
	}

	priceFrame, err := env.Get(a.source.Key())
	if err != nil {
		return err
	}
	series, err := market.FromFrame(a.Ticker, priceFrame)
	if err != nil {
		return err
	}

	out, err := dataset.New(priceFrame.Dates())
	if err != nil {
		return err
	}

	build := Constructors[a.Type]
	for _, n := range a.Lookbacks {
		if err := ctx.Err(); err != nil {
			return err
		}
		ind := build(n)
		col := out.Blank()
		for i, b := range series.Bars {
			ind.Update(b)
			if ind.Ready() {
				col[i] = ind.Value()
			}
		}
		if err := out.SetColumn(ColumnName(a.Type, n), col); err != nil {
			return err
		}
	}

	if a.Store != nil {
		if err := out.WriteCSV(a.Store.AnalysisPath(a.Key())); err != nil {
			return fmt.Errorf("analysis: cache %s: %w", a.Key(), err)
		}
	}
	env.Put(a.Key(), out)
	return nil
}
