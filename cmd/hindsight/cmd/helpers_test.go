package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/hindsight/config"
	"github.com/quantlab/hindsight/market"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"fast=10", "slow=350", "width=2.5"})
	require.NoError(t, err)
	assert.Equal(t, 10.0, params["fast"])
	assert.Equal(t, 350.0, params["slow"])
	assert.Equal(t, 2.5, params["width"])

	_, err = parseParams([]string{"fast"})
	assert.Error(t, err)

	_, err = parseParams([]string{"fast=ten"})
	assert.Error(t, err)
}

func TestParseAxes(t *testing.T) {
	axes, err := parseAxes([]string{"fast=10:30:10", "slow=100,200,400"})
	require.NoError(t, err)
	require.Len(t, axes, 2)
	assert.Equal(t, "fast", axes[0].Name)
	assert.Equal(t, []float64{10, 20, 30}, axes[0].Values)
	assert.Equal(t, []float64{100, 200, 400}, axes[1].Values)

	_, err = parseAxes([]string{"fast=10:30"})
	assert.Error(t, err)

	_, err = parseAxes([]string{"=1,2"})
	assert.Error(t, err)

	_, err = parseAxes([]string{"fast=30:10:5"})
	assert.Error(t, err)
}

func TestNewYahooClientAppliesFetchConfig(t *testing.T) {
	cfg = config.Default()
	cfg.Fetch.BaseURL = "http://localhost:8081"
	cfg.Fetch.MaxTries = 7

	c := newYahooClient()
	assert.Equal(t, "http://localhost:8081", c.BaseURL)
	assert.Equal(t, uint(7), c.MaxTries)
}

func TestSlicePeriod(t *testing.T) {
	day := func(i int) time.Time {
		return time.Date(2020, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}
	series := &market.Series{Ticker: "DJI"}
	for i := 0; i < 10; i++ {
		series.Bars = append(series.Bars, market.Bar{Date: day(i), Close: 100 + float64(i)})
	}

	whole, err := slicePeriod(series, "", "")
	require.NoError(t, err)
	assert.Len(t, whole.Bars, 10)

	mid, err := slicePeriod(series, "2020-01-03", "2020-01-06")
	require.NoError(t, err)
	require.Len(t, mid.Bars, 4)
	assert.Equal(t, day(2), mid.Bars[0].Date)

	tail, err := slicePeriod(series, "2020-01-08", "")
	require.NoError(t, err)
	assert.Len(t, tail.Bars, 3)

	_, err = slicePeriod(series, "2021-01-01", "")
	assert.Error(t, err)

	_, err = slicePeriod(series, "January 3rd", "")
	assert.Error(t, err)
}

func TestCloseReturns(t *testing.T) {
	day := func(i int) time.Time {
		return time.Date(2020, 1, 1+i, 0, 0, 0, 0, time.UTC)
	}
	series := &market.Series{
		Ticker: "DJI",
		Bars: []market.Bar{
			{Date: day(0), Close: 100},
			{Date: day(1), Close: 110},
			{Date: day(2), Close: 99},
		},
	}
	rets, err := closeReturns(series)
	require.NoError(t, err)
	require.Len(t, rets, 2)
	assert.InDelta(t, 0.10, rets[0].Value, 1e-12)
	assert.InDelta(t, -0.10, rets[1].Value, 1e-12)
	assert.Equal(t, day(1), rets[0].Date)

	_, err = closeReturns(&market.Series{Ticker: "DJI", Bars: series.Bars[:1]})
	assert.Error(t, err)
}
