package report

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/strategy"
)

// growthSeries builds two years of daily bars compounding at the given
// annual rate, with a mild wobble so ratio metrics are defined.
func growthSeries(t *testing.T, annual float64) *market.Series {
	t.Helper()
	start := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	daily := math.Pow(1+annual, 1.0/365)
	price := 100.0
	var bars []market.Bar
	for i := 0; i < 730; i++ {
		price *= daily
		p := price
		if i%7 < 3 {
			p *= 0.99
		}
		bars = append(bars, market.Bar{
			Date:  start.AddDate(0, 0, i),
			Open:  p,
			High:  p + 1,
			Low:   p - 1,
			Close: p,
		})
	}
	return &market.Series{Ticker: "FTSE", Bars: bars}
}

func holdResult(t *testing.T, annual float64) *strategy.Result {
	t.Helper()
	rules, err := strategy.New("hold", nil)
	require.NoError(t, err)
	res, err := strategy.NewEngine(10000, nil).Run(context.Background(), rules, growthSeries(t, annual))
	require.NoError(t, err)
	return res
}

func TestSummarize(t *testing.T) {
	res := holdResult(t, 0.12)

	s, err := Summarize(res, Options{})
	require.NoError(t, err)

	assert.Equal(t, "hold", s.System)
	assert.Equal(t, "FTSE", s.Ticker)
	assert.InDelta(t, 2.0, s.Years, 0.01)
	assert.InDelta(t, 0.12, s.CAGR, 0.03)
	assert.InDelta(t, s.CAGR, s.RAR, 0.05)
	assert.Greater(t, s.RARErr, 0.0)
	assert.Less(t, s.MaxDrawdown, 0.0)
	assert.Greater(t, s.MAR, 0.0)
	assert.Greater(t, s.RegressedMAR, 0.0)
	assert.Greater(t, s.SharpePlain, 0.0)
	assert.Greater(t, s.PositiveMonths, 0.0)
	assert.Equal(t, 1, s.TradeCount)
	assert.Zero(t, s.Debt)
}

func TestSummarizeLosingSystemStillReal(t *testing.T) {
	res := holdResult(t, -0.10)

	s, err := Summarize(res, Options{})
	require.NoError(t, err)
	assert.Less(t, s.CAGR, 0.0)
	assert.False(t, math.IsNaN(s.CAGR))
	assert.False(t, math.IsNaN(s.MAR))
}

func TestAnnual(t *testing.T) {
	res := holdResult(t, 0.12)

	years, err := Annual(res)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, 2014, years[0].Year)
	assert.Equal(t, 2015, years[1].Year)
	assert.Greater(t, years[1].Return, 0.0)
	assert.LessOrEqual(t, years[1].MaxDrawdown, 0.0)
}

func TestSummarizeTooShort(t *testing.T) {
	_, err := Summarize(nil, Options{})
	assert.Error(t, err)
}
