package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/strategy"
)

func TestSizerWeight(t *testing.T) {
	s := DefaultSizer()

	// Risking 1% of equity to a stop 2N away: weight is 1% * price / 2N.
	w := s.Weight(1000, 10)
	assert.InDelta(t, 0.5, w, 1e-9)

	// A very quiet market would imply leverage; the cap holds it at 1.
	assert.InDelta(t, 1.0, s.Weight(1000, 1), 1e-9)

	assert.Zero(t, s.Weight(1000, 0))
	assert.Zero(t, s.Weight(0, 10))
}

func TestSizerValidation(t *testing.T) {
	bad := []*Sizer{
		{RiskFraction: 0, StopDistance: 2, MaxWeight: 1, MaxTotal: 1},
		{RiskFraction: 0.01, StopDistance: 0, MaxWeight: 1, MaxTotal: 1},
		{RiskFraction: 0.01, StopDistance: 2, MaxWeight: 0, MaxTotal: 1},
		{RiskFraction: 0.01, StopDistance: 2, MaxWeight: 1, MaxTotal: 0.5},
	}
	for _, s := range bad {
		assert.Error(t, s.validate())
	}
	assert.NoError(t, DefaultSizer().validate())
}

func portfolioSeries(t *testing.T, ticker string, closes []float64, skip map[int]bool) *market.Series {
	t.Helper()
	start := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	var bars []market.Bar
	for i, c := range closes {
		if skip[i] {
			continue
		}
		bars = append(bars, market.Bar{
			Date:  start.AddDate(0, 0, i),
			Open:  c,
			High:  c * 1.01,
			Low:   c * 0.99,
			Close: c,
		})
	}
	return &market.Series{Ticker: ticker, Bars: bars}
}

func risingCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func holdFactory() (strategy.Rules, error) { return strategy.New("hold", nil) }

func TestRunnerSharedAccount(t *testing.T) {
	a := portfolioSeries(t, "FTSE", risingCloses(40, 100, 1), nil)
	b := portfolioSeries(t, "DJI", risingCloses(40, 200, 2), nil)

	r, err := NewRunner(holdFactory, nil, 10000, nil)
	require.NoError(t, err)
	res, err := r.Run(context.Background(), []*market.Series{a, b})
	require.NoError(t, err)

	assert.Equal(t, "hold", res.System)
	assert.Equal(t, []string{"DJI", "FTSE"}, res.Tickers)
	assert.Greater(t, res.FinalEquity, 10000.0)
	assert.Zero(t, res.FinalDebt)
	require.Len(t, res.Trades, 2)

	ftse, err := res.Frame.Column(PositionColumn("FTSE"))
	require.NoError(t, err)
	assert.Greater(t, ftse[len(ftse)-1], 0.0)
	assert.LessOrEqual(t, ftse[len(ftse)-1], 1.0)
}

func TestRunnerSizingWaitsForVolatility(t *testing.T) {
	// Vol lookback 5 needs six bars before N is defined, so the first
	// bars carry no position even though hold wants in immediately.
	a := portfolioSeries(t, "FTSE", risingCloses(20, 100, 1), nil)

	r, err := NewRunner(holdFactory, nil, 10000, nil)
	require.NoError(t, err)
	r.VolLookback = 5
	res, err := r.Run(context.Background(), []*market.Series{a})
	require.NoError(t, err)

	pos, err := res.Frame.Column(PositionColumn("FTSE"))
	require.NoError(t, err)
	assert.Zero(t, pos[0])
	assert.Greater(t, pos[len(pos)-1], 0.0)
}

func TestRunnerTotalExposureCap(t *testing.T) {
	// Both markets want a full-weight position; the account cap leaves
	// only half for whoever enters second.
	a := portfolioSeries(t, "FTSE", risingCloses(40, 100, 1), nil)
	b := portfolioSeries(t, "DJI", risingCloses(40, 200, 2), nil)

	sizer := &Sizer{RiskFraction: 0.2, StopDistance: 2, MaxWeight: 1, MaxTotal: 1.5}
	r, err := NewRunner(holdFactory, sizer, 10000, nil)
	require.NoError(t, err)
	res, err := r.Run(context.Background(), []*market.Series{a, b})
	require.NoError(t, err)

	ftse, err := res.Frame.Column(PositionColumn("FTSE"))
	require.NoError(t, err)
	dji, err := res.Frame.Column(PositionColumn("DJI"))
	require.NoError(t, err)

	last := len(ftse) - 1
	assert.InDelta(t, 1.0, ftse[last], 1e-9)
	assert.InDelta(t, 0.5, dji[last], 1e-9)
}

func TestRunnerMisalignedCalendars(t *testing.T) {
	// FTSE misses day 3, DJI misses day 5: the union axis carries both.
	a := portfolioSeries(t, "FTSE", risingCloses(30, 100, 1), map[int]bool{3: true})
	b := portfolioSeries(t, "DJI", risingCloses(30, 200, 2), map[int]bool{5: true})

	r, err := NewRunner(holdFactory, nil, 10000, nil)
	require.NoError(t, err)
	res, err := r.Run(context.Background(), []*market.Series{a, b})
	require.NoError(t, err)

	assert.Equal(t, 30, res.Frame.Len())
	eq, err := res.Frame.Column(strategy.ColEquity)
	require.NoError(t, err)
	for _, v := range eq {
		assert.Greater(t, v, 0.0)
	}
}

func TestRunnerValidation(t *testing.T) {
	_, err := NewRunner(nil, nil, 10000, nil)
	assert.Error(t, err)

	r, err := NewRunner(holdFactory, nil, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, strategy.DefaultInitialEquity, r.InitialEquity)

	_, err = r.Run(context.Background(), nil)
	assert.Error(t, err)
}
