package montecarlo

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/returns"
	"github.com/quantlab/hindsight/strategy"
)

func retSeries(vals ...float64) returns.Series {
	start := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make(returns.Series, len(vals))
	for i, v := range vals {
		out[i] = returns.Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestFitReturnsPrefersHeavyTailsWhenPresent(t *testing.T) {
	// A tight core with violent outliers: Cauchy territory.
	heavy := retSeries(
		0.001, -0.002, 0.001, 0.000, -0.001, 0.002, -0.001, 0.001,
		0.000, -0.002, 0.001, -0.001, 0.25, -0.30, 0.001, -0.001,
	)
	fits, err := FitReturns(heavy)
	require.NoError(t, err)
	require.Len(t, fits, 2)
	assert.Equal(t, ModelBreitWigner, fits[0].Model)
	assert.Greater(t, fits[0].LogLik, fits[1].LogLik)

	smooth := retSeries(
		-0.03, -0.02, -0.01, 0.00, 0.01, 0.02, 0.03,
		-0.025, -0.015, -0.005, 0.005, 0.015, 0.025, 0.0,
	)
	fits, err = FitReturns(smooth)
	require.NoError(t, err)
	assert.Equal(t, ModelGaussian, fits[0].Model)
}

func TestFitReturnsDegenerate(t *testing.T) {
	_, err := FitReturns(retSeries(0.01, 0.02))
	assert.Error(t, err)

	_, err = FitReturns(retSeries(0.01, 0.01, 0.01, 0.01, 0.01))
	assert.Error(t, err)
}

func mcSeries(t *testing.T, days int) *market.Series {
	t.Helper()
	start := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market.Bar, days)
	price := 100.0
	for i := range bars {
		bars[i] = market.Bar{
			Date:  start.AddDate(0, 0, i),
			Open:  price,
			High:  price * 1.01,
			Low:   price * 0.99,
			Close: price,
		}
		price *= 1.0005
	}
	return &market.Series{Ticker: "FTSE", Bars: bars}
}

func TestSimCAGRDeterministicForSeed(t *testing.T) {
	base := mcSeries(t, 400)
	boot, err := NewBootstrap([]float64{0.001, -0.0005, 0.0008, -0.0002})
	require.NoError(t, err)
	factory := func() (strategy.Rules, error) { return strategy.New("hold", nil) }

	sim := NewSim(20, 42, nil)
	first, err := sim.CAGR(context.Background(), factory, base, boot)
	require.NoError(t, err)
	require.Len(t, first.Samples, 20)

	again, err := NewSim(20, 42, nil).CAGR(context.Background(), factory, base, boot)
	require.NoError(t, err)
	assert.Equal(t, first.Samples, again.Samples)

	other, err := NewSim(20, 43, nil).CAGR(context.Background(), factory, base, boot)
	require.NoError(t, err)
	assert.NotEqual(t, first.Samples, other.Samples)
}

func TestSimCAGRAllPositiveDrift(t *testing.T) {
	base := mcSeries(t, 300)
	boot, err := NewBootstrap([]float64{0.002, 0.001, 0.0015})
	require.NoError(t, err)

	sim := NewSim(10, 7, nil)
	out, err := sim.CAGR(context.Background(),
		func() (strategy.Rules, error) { return strategy.New("hold", nil) },
		base, boot)
	require.NoError(t, err)

	for _, c := range out.Samples {
		assert.Greater(t, c, 0.0)
	}
	lo, hi := out.Band(0.90)
	assert.LessOrEqual(t, lo, hi)
	assert.Greater(t, out.Mean(), 0.0)
}

func TestFittedSamplerClampsTails(t *testing.T) {
	f, err := NewFitted(Fit{Model: ModelBreitWigner, Location: 0, Scale: 0.5})
	require.NoError(t, err)
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		v := f.Sample(rng)
		assert.GreaterOrEqual(t, v, -0.5)
		assert.LessOrEqual(t, v, 0.5)
	}
}

func TestCorrelation(t *testing.T) {
	a := retSeries(0.01, -0.02, 0.03, -0.01, 0.02, -0.03)
	b := make(returns.Series, len(a))
	for i, p := range a {
		b[i] = returns.Point{Date: p.Date, Value: -p.Value}
	}

	corr, err := Correlation([]returns.Series{a, b})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, corr.At(0, 0), 1e-9)
	assert.InDelta(t, -1.0, corr.At(0, 1), 1e-9)

	_, err = Correlation([]returns.Series{a, b[:3]})
	assert.Error(t, err)
}

func TestJointPathsCorrelatedDraws(t *testing.T) {
	corr := mat.NewSymDense(2, []float64{1, 0.9, 0.9, 1})
	jp, err := NewJointPaths(corr, []float64{0, 0}, []float64{0.01, 0.01})
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(3, 4))
	paths := jp.Paths(2000, rng)
	require.Len(t, paths, 2)

	got := stat.Correlation(paths[0], paths[1], nil)
	assert.InDelta(t, 0.9, got, 0.05)
}

func TestJointPathsRejectsSingularMatrix(t *testing.T) {
	corr := mat.NewSymDense(2, []float64{1, 1, 1, 1})
	_, err := NewJointPaths(corr, []float64{0, 0}, []float64{0.01, 0.01})
	assert.Error(t, err)

	good := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	_, err = NewJointPaths(good, []float64{0}, []float64{0.01})
	assert.Error(t, err)
}

func TestSlopeBandRecoversTrend(t *testing.T) {
	// Clean linear trend with mild alternating noise around it.
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + 0.5*float64(i)
		if i%2 == 0 {
			prices[i] += 0.2
		} else {
			prices[i] -= 0.2
		}
	}

	sim := NewSim(400, 7, nil)
	band, err := sim.SlopeBand(context.Background(), prices, ModelGaussian)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, band.Slope, 0.01)
	assert.InDelta(t, 0.5, band.Outcome.Mean(), 0.01)
	lo, hi := band.Outcome.Band(0.90)
	assert.Less(t, lo, 0.5)
	assert.Greater(t, hi, 0.5)
	assert.Greater(t, band.Stderr, 0.0)
}

func TestSlopeBandHeavierNoiseWidensBand(t *testing.T) {
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 100 + 0.5*float64(i)
		if i%3 == 0 {
			prices[i] += 1.5
		} else {
			prices[i] -= 0.75
		}
	}

	sim := NewSim(400, 7, nil)
	gauss, err := sim.SlopeBand(context.Background(), prices, ModelGaussian)
	require.NoError(t, err)
	cauchy, err := sim.SlopeBand(context.Background(), prices, ModelBreitWigner)
	require.NoError(t, err)

	glo, ghi := gauss.Outcome.Band(0.90)
	clo, chi := cauchy.Outcome.Band(0.90)
	assert.Greater(t, chi-clo, ghi-glo)
}

func TestSlopeBandRejectsBadInput(t *testing.T) {
	sim := NewSim(100, 1, nil)
	_, err := sim.SlopeBand(context.Background(), []float64{1, 2, 3}, ModelGaussian)
	assert.Error(t, err)

	flat := []float64{5, 5, 5, 5, 5, 5}
	_, err = sim.SlopeBand(context.Background(), flat, ModelGaussian)
	assert.Error(t, err)

	prices := []float64{1, 2, 3.1, 3.9, 5.2, 6}
	_, err = sim.SlopeBand(context.Background(), prices, "lorentzian")
	assert.Error(t, err)
}
