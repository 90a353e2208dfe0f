package optimize

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/hindsight/market"
)

func TestRange(t *testing.T) {
	ax, err := Range("fast", 10, 30, 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30}, ax.Values)

	_, err = Range("fast", 30, 10, 10)
	assert.Error(t, err)
	_, err = Range("fast", 10, 30, 0)
	assert.Error(t, err)
}

func TestGrid(t *testing.T) {
	grid := Grid([]Axis{
		{Name: "fast", Values: []float64{10, 20}},
		{Name: "slow", Values: []float64{100, 200, 300}},
	})
	require.Len(t, grid, 6)

	seen := make(map[[2]float64]bool)
	for _, p := range grid {
		seen[[2]float64{p["fast"], p["slow"]}] = true
	}
	assert.Len(t, seen, 6)

	assert.Nil(t, Grid(nil))
}

func trendSeries(t *testing.T) *market.Series {
	t.Helper()
	start := time.Date(2012, 1, 2, 0, 0, 0, 0, time.UTC)
	var bars []market.Bar
	price := 100.0
	for i := 0; i < 800; i++ {
		// A steady climb with a seasonal wobble keeps crossovers alive.
		price *= 1 + 0.0004 + 0.004*math.Sin(float64(i)/25)
		bars = append(bars, market.Bar{
			Date:  start.AddDate(0, 0, i),
			Open:  price,
			High:  price * 1.01,
			Low:   price * 0.99,
			Close: price,
		})
	}
	return &market.Series{Ticker: "FTSE", Bars: bars}
}

func TestOptimizerRanksByScore(t *testing.T) {
	series := trendSeries(t)

	o := New("dualma", MetricMAR, nil)
	points, err := o.Run(context.Background(), series, []Axis{
		{Name: "fast", Values: []float64{5, 10, 20}},
		{Name: "slow", Values: []float64{50, 100}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, points)

	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i-1].Score, points[i].Score)
	}
	best := points[0]
	assert.NotNil(t, best.Summary)
	assert.Equal(t, "dualma", best.Summary.System)
}

func TestOptimizerDropsInvalidPoints(t *testing.T) {
	series := trendSeries(t)

	// fast 50 against slow 50 fails validation and must be dropped, not
	// fatal.
	o := New("dualma", MetricCAGR, nil)
	points, err := o.Run(context.Background(), series, []Axis{
		{Name: "fast", Values: []float64{10, 50}},
		{Name: "slow", Values: []float64{50}},
	})
	require.NoError(t, err)
	assert.Len(t, points, 1)
	assert.InDelta(t, 10, points[0].Params["fast"], 1e-9)
}

func TestOptimizerUnknownMetric(t *testing.T) {
	o := New("dualma", Metric("marmalade"), nil)
	_, err := o.Run(context.Background(), trendSeries(t), []Axis{
		{Name: "fast", Values: []float64{10}},
	})
	assert.Error(t, err)
}

func TestOptimizerEmptyGrid(t *testing.T) {
	o := New("dualma", MetricMAR, nil)
	_, err := o.Run(context.Background(), trendSeries(t), nil)
	assert.Error(t, err)
}
