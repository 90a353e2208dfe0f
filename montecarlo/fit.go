// Package montecarlo stress-tests trading systems on synthetic price
// histories: daily returns are modeled or resampled, paths are rebuilt
// many times over, and the spread of outcomes bounds what a single
// backtest can credibly claim.
package montecarlo

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/quantlab/hindsight/returns"
)

// Model names for return distribution fits.
const (
	ModelGaussian    = "gaussian"
	ModelBreitWigner = "breitwigner"
)

// Fit is a fitted return distribution with its goodness of fit.
type Fit struct {
	Model    string
	Location float64
	Scale    float64
	LogLik   float64
}

// Dist builds the sampling distribution for the fit. The Breit-Wigner
// shape is the Cauchy distribution, a Student-t with one degree of
// freedom.
func (f Fit) Dist() (distuv.Rander, error) {
	switch f.Model {
	case ModelGaussian:
		return distuv.Normal{Mu: f.Location, Sigma: f.Scale}, nil
	case ModelBreitWigner:
		return distuv.StudentsT{Mu: f.Location, Sigma: f.Scale, Nu: 1}, nil
	default:
		return nil, fmt.Errorf("montecarlo: unknown model %q", f.Model)
	}
}

// FitReturns fits the candidate distributions to a return series and
// returns them best first by log-likelihood. Index returns have heavier
// tails than a Gaussian admits, which is usually visible here.
func FitReturns(rets returns.Series) ([]Fit, error) {
	if len(rets) < 4 {
		return nil, errors.New("montecarlo: need at least four returns to fit")
	}
	vals := rets.Values()

	mu := stat.Mean(vals, nil)
	sigma := stat.StdDev(vals, nil)
	if sigma == 0 {
		return nil, errors.New("montecarlo: returns have zero spread")
	}

	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	// Half the interquartile range is the MLE-adjacent scale for a
	// Cauchy, far more robust than the standard deviation.
	gamma := (stat.Quantile(0.75, stat.Empirical, sorted, nil) -
		stat.Quantile(0.25, stat.Empirical, sorted, nil)) / 2
	if gamma == 0 {
		gamma = sigma
	}

	fits := []Fit{
		{Model: ModelGaussian, Location: mu, Scale: sigma},
		{Model: ModelBreitWigner, Location: median, Scale: gamma},
	}
	for i := range fits {
		ll, err := logLik(fits[i], vals)
		if err != nil {
			return nil, err
		}
		fits[i].LogLik = ll
	}
	sort.Slice(fits, func(i, j int) bool { return fits[i].LogLik > fits[j].LogLik })
	return fits, nil
}

func logLik(f Fit, vals []float64) (float64, error) {
	var lp interface{ LogProb(float64) float64 }
	switch f.Model {
	case ModelGaussian:
		lp = distuv.Normal{Mu: f.Location, Sigma: f.Scale}
	case ModelBreitWigner:
		lp = distuv.StudentsT{Mu: f.Location, Sigma: f.Scale, Nu: 1}
	default:
		return 0, fmt.Errorf("montecarlo: unknown model %q", f.Model)
	}
	sum := 0.0
	for _, v := range vals {
		l := lp.LogProb(v)
		if math.IsInf(l, -1) {
			return math.Inf(-1), nil
		}
		sum += l
	}
	return sum, nil
}
