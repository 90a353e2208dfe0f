package montecarlo

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// SlopeBand is the resampled confidence band of a price window's trend.
// The analytic standard error assumes Gaussian residuals; the resampled
// band does not, which is the point.
type SlopeBand struct {
	Slope   float64
	Stderr  float64
	Noise   Fit
	Outcome *Outcome
}

// SlopeBand fits a line to the price window, models the residuals with
// the given noise shape, and re-fits the slope on many perturbed copies
// of the window.
func (s *Sim) SlopeBand(ctx context.Context, prices []float64, model string) (*SlopeBand, error) {
	if s.Trials < 1 {
		return nil, errors.New("montecarlo: need at least one trial")
	}
	if len(prices) < 4 {
		return nil, errors.New("montecarlo: need at least four prices to fit a slope")
	}

	n := len(prices)
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, prices, nil, false)

	resid := make([]float64, n)
	var ssr, ssx float64
	xbar := float64(n-1) / 2
	for i, p := range prices {
		resid[i] = p - (alpha + beta*xs[i])
		ssr += resid[i] * resid[i]
		ssx += (xs[i] - xbar) * (xs[i] - xbar)
	}
	stderr := math.Sqrt(ssr / float64(n-2) / ssx)

	noise, err := fitResiduals(resid, model)
	if err != nil {
		return nil, err
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	samples := make([]float64, s.Trials)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for trial := 0; trial < s.Trials; trial++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(s.Seed, uint64(trial)))
			perturbed := make([]float64, n)
			for i := range perturbed {
				perturbed[i] = alpha + beta*xs[i] + drawNoise(noise, rng)
			}
			_, slope := stat.LinearRegression(xs, perturbed, nil, false)
			samples[trial] = slope
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &SlopeBand{
		Slope:   beta,
		Stderr:  stderr,
		Noise:   noise,
		Outcome: &Outcome{Metric: "slope", Samples: samples},
	}, nil
}

// fitResiduals models the regression residuals with the given shape.
// Location is pinned to zero so the trend itself stays unbiased.
func fitResiduals(resid []float64, model string) (Fit, error) {
	switch model {
	case ModelGaussian:
		sigma := stat.StdDev(resid, nil)
		if sigma == 0 {
			return Fit{}, errors.New("montecarlo: residuals have zero spread")
		}
		return Fit{Model: ModelGaussian, Scale: sigma}, nil
	case ModelBreitWigner:
		sorted := append([]float64(nil), resid...)
		sort.Float64s(sorted)
		gamma := (stat.Quantile(0.75, stat.Empirical, sorted, nil) -
			stat.Quantile(0.25, stat.Empirical, sorted, nil)) / 2
		if gamma == 0 {
			return Fit{}, errors.New("montecarlo: residuals have zero spread")
		}
		return Fit{Model: ModelBreitWigner, Scale: gamma}, nil
	default:
		return Fit{}, errors.New("montecarlo: unknown model " + model)
	}
}

func drawNoise(f Fit, rng *rand.Rand) float64 {
	if f.Model == ModelGaussian {
		return distuv.Normal{Mu: f.Location, Sigma: f.Scale, Src: rng}.Rand()
	}
	return distuv.StudentsT{Mu: f.Location, Sigma: f.Scale, Nu: 1, Src: rng}.Rand()
}
