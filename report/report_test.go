package report

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/hindsight/returns"
	"github.com/quantlab/hindsight/strategy"
)

func TestCAGR(t *testing.T) {
	got, err := CAGR(10000, 14400, 2)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, got, 1e-9)

	got, err = CAGR(10000, 9000, 1)
	require.NoError(t, err)
	assert.InDelta(t, -0.10, got, 1e-9)
}

func TestCAGRNonPositiveRatioIsError(t *testing.T) {
	for _, end := range []float64{0, -5000} {
		v, err := CAGR(10000, end, 3)
		require.ErrorIs(t, err, ErrNonPositiveGrowth)
		assert.False(t, math.IsNaN(v))
	}

	_, err := CAGR(0, 10000, 3)
	assert.ErrorIs(t, err, ErrNonPositiveGrowth)

	_, err = CAGR(10000, 12000, 0)
	assert.Error(t, err)
}

func TestRegressedCAGR(t *testing.T) {
	// Net equity growing exactly 10% a year regresses to RAR 10% with a
	// tight error band.
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	var dates []time.Time
	var net []float64
	for i := 0; i < 6; i++ {
		dates = append(dates, start.AddDate(i, 0, 0))
		net = append(net, 10000*math.Pow(1.1, Years(start, start.AddDate(i, 0, 0))))
	}

	rar, rarErr, err := RegressedCAGR(dates, net)
	require.NoError(t, err)
	assert.InDelta(t, 0.10, rar, 1e-6)
	assert.InDelta(t, 0, rarErr, 1e-6)
}

func TestRegressedCAGRRejectsNonPositiveEquity(t *testing.T) {
	start := time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{start, start.AddDate(1, 0, 0), start.AddDate(2, 0, 0)}
	_, _, err := RegressedCAGR(dates, []float64{100, -50, 100})
	assert.ErrorIs(t, err, ErrNonPositiveGrowth)
}

func monthlySeries(vals ...float64) returns.Series {
	start := time.Date(2016, 1, 31, 0, 0, 0, 0, time.UTC)
	out := make(returns.Series, len(vals))
	for i, v := range vals {
		out[i] = returns.Point{Date: start.AddDate(0, i, 0), Value: v}
	}
	return out
}

func TestMonthlyRateCompounds(t *testing.T) {
	m := MonthlyRate(0.05)
	assert.InDelta(t, math.Pow(1.05, 1.0/12)-1, m, 1e-12)
	// Twelve compounded months reproduce the annual rate exactly.
	assert.InDelta(t, 0.05, math.Pow(1+m, 12)-1, 1e-12)
	assert.Less(t, m, 0.05/12)
}

func TestSharpeFlavors(t *testing.T) {
	rets := monthlySeries(0.02, -0.01, 0.03, 0.00, 0.02, -0.02)

	plain, err := Sharpe(rets, SharpePlain, DefaultRiskFreeRate, nil)
	require.NoError(t, err)
	rfr, err := Sharpe(rets, SharpeRFR, DefaultRiskFreeRate, nil)
	require.NoError(t, err)
	assert.Greater(t, plain, rfr)

	// Against itself as benchmark the excess is identically zero, which
	// has no deviation to divide by.
	_, err = Sharpe(rets, SharpeBenchmark, DefaultRiskFreeRate, rets)
	assert.Error(t, err)

	bench := monthlySeries(0.01, -0.03, 0.01, -0.01, 0.00, -0.02)
	vs, err := Sharpe(rets, SharpeBenchmark, DefaultRiskFreeRate, bench)
	require.NoError(t, err)
	assert.Greater(t, vs, 0.0)

	_, err = Sharpe(rets, SharpeBenchmark, DefaultRiskFreeRate, bench[:3])
	assert.Error(t, err)
}

func TestSortino(t *testing.T) {
	rets := monthlySeries(0.05, -0.02, 0.04, -0.01, 0.03, 0.02)
	got, err := Sortino(rets, DefaultRiskFreeRate)
	require.NoError(t, err)
	assert.Greater(t, got, 0.0)

	// All months above target: no downside deviation to divide by.
	_, err = Sortino(monthlySeries(0.05, 0.06, 0.07), DefaultRiskFreeRate)
	assert.Error(t, err)
}

func TestWinRatioAndPositiveShare(t *testing.T) {
	trades := []strategy.Trade{
		{Return: 0.10},
		{Return: -0.05},
		{Return: 0.02},
		{Return: -0.01},
	}
	assert.InDelta(t, 0.5, WinRatio(trades), 1e-9)
	assert.Zero(t, WinRatio(nil))

	rets := monthlySeries(0.02, -0.01, 0.03)
	assert.InDelta(t, 2.0/3.0, PositiveShare(rets), 1e-9)
}
