package returns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/hindsight/dataset"
	"github.com/quantlab/hindsight/strategy"
)

func equityFrame(t *testing.T, dates []time.Time, equity, debt []float64) *dataset.Frame {
	t.Helper()
	f, err := dataset.New(dates)
	require.NoError(t, err)
	require.NoError(t, f.SetColumn(strategy.ColEquity, equity))
	require.NoError(t, f.SetColumn(strategy.ColDebt, debt))
	return f
}

func dailyDates(n int) []time.Time {
	start := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.AddDate(0, 0, i)
	}
	return out
}

func TestReturnsDaily(t *testing.T) {
	f := equityFrame(t, dailyDates(4),
		[]float64{100, 110, 99, 108.9},
		[]float64{0, 0, 0, 0})

	r, err := Returns(f, Daily)
	require.NoError(t, err)
	require.Len(t, r, 3)
	assert.InDelta(t, 0.10, r[0].Value, 1e-9)
	assert.InDelta(t, -0.10, r[1].Value, 1e-9)
	assert.InDelta(t, 0.10, r[2].Value, 1e-9)
}

func TestReturnsNetOfDebt(t *testing.T) {
	// Equity restarts at 100 while 40 moves to the debt ledger: net
	// worth went from 100 to 60.
	f := equityFrame(t, dailyDates(2),
		[]float64{100, 100},
		[]float64{0, 40})

	r, err := Returns(f, Daily)
	require.NoError(t, err)
	require.Len(t, r, 1)
	assert.InDelta(t, -0.40, r[0].Value, 1e-9)
}

func TestLogReturnsRejectNonPositiveRatio(t *testing.T) {
	f := equityFrame(t, dailyDates(2),
		[]float64{100, 100},
		[]float64{0, 150})

	_, err := LogReturns(f, Daily)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive equity ratio")
}

func TestLogReturnsValues(t *testing.T) {
	f := equityFrame(t, dailyDates(3),
		[]float64{100, 110, 121},
		[]float64{0, 0, 0})

	r, err := LogReturns(f, Daily)
	require.NoError(t, err)
	require.Len(t, r, 2)
	assert.InDelta(t, r[0].Value, r[1].Value, 1e-12)
}

func TestMonthlyGranularity(t *testing.T) {
	dates := []time.Time{
		time.Date(2016, 1, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2016, 1, 29, 0, 0, 0, 0, time.UTC),
		time.Date(2016, 2, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2016, 2, 26, 0, 0, 0, 0, time.UTC),
	}
	f := equityFrame(t, dates,
		[]float64{100, 110, 130, 132},
		[]float64{0, 0, 0, 0})

	r, err := Returns(f, Monthly)
	require.NoError(t, err)
	require.Len(t, r, 1)
	assert.InDelta(t, 0.20, r[0].Value, 1e-9)
	assert.Equal(t, dates[3], r[0].Date)
}

func TestDrawdowns(t *testing.T) {
	f := equityFrame(t, dailyDates(5),
		[]float64{100, 120, 90, 96, 126},
		[]float64{0, 0, 0, 0, 0})

	dd, err := Drawdowns(f, Daily)
	require.NoError(t, err)
	require.Len(t, dd, 5)
	assert.Zero(t, dd[0].Value)
	assert.Zero(t, dd[1].Value)
	assert.InDelta(t, -0.25, dd[2].Value, 1e-9)
	assert.InDelta(t, -0.20, dd[3].Value, 1e-9)
	assert.Zero(t, dd[4].Value)

	depth, duration := MaxDrawdown(dd)
	assert.InDelta(t, -0.25, depth, 1e-9)
	assert.Equal(t, 3*24*time.Hour, duration)

	// Peaks hold the level each drawdown fraction is measured against.
	peaks, err := Peaks(f, Daily)
	require.NoError(t, err)
	require.Len(t, peaks, 5)
	assert.Equal(t, []float64{100, 120, 120, 120, 126}, peaks.Values())
	net := []float64{100, 120, 90, 96, 126}
	for i := range dd {
		assert.InDelta(t, net[i], peaks[i].Value*(1+dd[i].Value), 1e-9)
	}
}

func TestDrawdownsRejectNonPositiveNetEquity(t *testing.T) {
	f := equityFrame(t, dailyDates(2),
		[]float64{100, 100},
		[]float64{0, 100})

	_, err := Drawdowns(f, Daily)
	assert.Error(t, err)
}
