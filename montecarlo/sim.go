package montecarlo

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/report"
	"github.com/quantlab/hindsight/strategy"
)

// Sampler draws one daily return for a synthetic path.
type Sampler interface {
	Sample(rng *rand.Rand) float64
}

// Bootstrap resamples observed returns with replacement, keeping the
// empirical distribution exactly, tails and all.
type Bootstrap struct {
	rets []float64
}

func NewBootstrap(rets []float64) (*Bootstrap, error) {
	if len(rets) == 0 {
		return nil, errors.New("montecarlo: no returns to bootstrap from")
	}
	return &Bootstrap{rets: append([]float64(nil), rets...)}, nil
}

func (b *Bootstrap) Sample(rng *rand.Rand) float64 {
	return b.rets[rng.IntN(len(b.rets))]
}

// Fitted draws from a fitted return distribution. Fat-tailed fits draw
// the occasional absurd day, so returns are clamped to keep prices
// positive.
type Fitted struct {
	fit Fit
}

func NewFitted(fit Fit) (*Fitted, error) {
	if _, err := fit.Dist(); err != nil {
		return nil, err
	}
	return &Fitted{fit: fit}, nil
}

func (f *Fitted) Sample(rng *rand.Rand) float64 {
	var v float64
	switch f.fit.Model {
	case ModelGaussian:
		v = distuv.Normal{Mu: f.fit.Location, Sigma: f.fit.Scale, Src: rng}.Rand()
	default:
		v = distuv.StudentsT{Mu: f.fit.Location, Sigma: f.fit.Scale, Nu: 1, Src: rng}.Rand()
	}
	if v < -0.5 {
		v = -0.5
	}
	if v > 0.5 {
		v = 0.5
	}
	return v
}

// Sim runs many synthetic backtests of one system.
type Sim struct {
	// Trials is the number of synthetic histories to run.
	Trials int

	// Seed fixes the whole experiment. The same seed, trials and
	// sampler reproduce the same outcome.
	Seed uint64

	// Workers bounds the parallel trials, NumCPU when zero.
	Workers int

	log *zap.Logger
}

func NewSim(trials int, seed uint64, log *zap.Logger) *Sim {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sim{Trials: trials, Seed: seed, log: log}
}

// Outcome is the distribution of a metric over all trials.
type Outcome struct {
	Metric  string
	Samples []float64
}

// Mean of the metric over trials.
func (o *Outcome) Mean() float64 { return stat.Mean(o.Samples, nil) }

// Quantile of the metric over trials, p in [0, 1].
func (o *Outcome) Quantile(p float64) float64 {
	sorted := append([]float64(nil), o.Samples...)
	sort.Float64s(sorted)
	return stat.Quantile(p, stat.Empirical, sorted, nil)
}

// Band returns the central confidence interval at the given level,
// e.g. 0.90 for the 5th to 95th percentile range.
func (o *Outcome) Band(level float64) (lo, hi float64) {
	tail := (1 - level) / 2
	return o.Quantile(tail), o.Quantile(1 - tail)
}

// CAGR runs the trials and collects the compound growth rate of each.
// The factory must return a fresh Rules per call; trials run in
// parallel and never share one.
func (s *Sim) CAGR(ctx context.Context, factory func() (strategy.Rules, error), base *market.Series, sampler Sampler) (*Outcome, error) {
	if s.Trials < 1 {
		return nil, errors.New("montecarlo: need at least one trial")
	}
	if base == nil || len(base.Bars) < 2 {
		return nil, errors.New("montecarlo: base series too short")
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	samples := make([]float64, s.Trials)
	var mu sync.Mutex
	failed := 0

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for trial := 0; trial < s.Trials; trial++ {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(s.Seed, uint64(trial)))
			synth := syntheticSeries(base, sampler, rng)

			rules, err := factory()
			if err != nil {
				return err
			}
			res, err := strategy.NewEngine(strategy.DefaultInitialEquity, nil).Run(ctx, rules, synth)
			if err != nil {
				return err
			}
			years := report.Years(synth.Bars[0].Date, synth.Bars[len(synth.Bars)-1].Date)
			cagr, err := report.CAGR(res.InitialEquity, res.FinalEquity-res.FinalDebt, years)
			if err != nil {
				// A trial that lost more than everything has no growth
				// rate; it scores as a total loss rather than killing
				// the experiment.
				mu.Lock()
				failed++
				mu.Unlock()
				cagr = -1
			}
			samples[trial] = cagr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if failed > 0 {
		s.log.Warn("trials with no defined growth rate scored as total loss",
			zap.Int("failed", failed), zap.Int("trials", s.Trials))
	}
	return &Outcome{Metric: "cagr", Samples: samples}, nil
}

// syntheticSeries rebuilds a price path of the same length and dates as
// the base, compounding sampled returns from the base's first close.
// Highs and lows keep the base's median relative bar range so range
// indicators still have something to chew on.
func syntheticSeries(base *market.Series, sampler Sampler, rng *rand.Rand) *market.Series {
	spread := medianBarSpread(base)
	bars := make([]market.Bar, len(base.Bars))
	price := base.Bars[0].Close
	for i, b := range base.Bars {
		if i > 0 {
			price *= 1 + sampler.Sample(rng)
		}
		bars[i] = market.Bar{
			Date:   b.Date,
			Open:   price,
			High:   price * (1 + spread),
			Low:    price * (1 - spread),
			Close:  price,
			Volume: b.Volume,
		}
	}
	return &market.Series{
		Ticker: fmt.Sprintf("%s-mc", base.Ticker),
		Bars:   bars,
	}
}

func medianBarSpread(s *market.Series) float64 {
	spreads := make([]float64, 0, len(s.Bars))
	for _, b := range s.Bars {
		if b.Close <= 0 || b.High < b.Low {
			continue
		}
		spreads = append(spreads, (b.High-b.Low)/b.Close/2)
	}
	if len(spreads) == 0 {
		return 0
	}
	sort.Float64s(spreads)
	return spreads[len(spreads)/2]
}
