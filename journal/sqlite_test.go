package journal

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/report"
	"github.com/quantlab/hindsight/strategy"
)

func backtest(t *testing.T) (*strategy.Result, *report.Summary) {
	t.Helper()
	start := time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC)
	var bars []market.Bar
	price := 100.0
	for i := 0; i < 500; i++ {
		price *= 1.0004
		p := price
		if i%9 < 4 {
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
	series := &market.Series{Ticker: "FTSE", Bars: bars}

	rules, err := strategy.New("hold", nil)
	require.NoError(t, err)
	res, err := strategy.NewEngine(10000, nil).Run(context.Background(), rules, series)
	require.NoError(t, err)
	summary, err := report.Summarize(res, report.Options{})
	require.NoError(t, err)
	return res, summary
}

func TestSQLiteRecordBacktest(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	res, summary := backtest(t)
	params := strategy.Params{"lookback": 100}

	runID, err := j.RecordBacktest(res, summary, params)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	rec, err := j.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "hold", rec.System)
	assert.Equal(t, "FTSE", rec.Ticker)
	assert.JSONEq(t, `{"lookback":100}`, rec.Params)
	assert.InDelta(t, summary.CAGR, rec.CAGR, 1e-9)
	assert.InDelta(t, res.FinalEquity, rec.FinalEquity, 1e-9)

	trades, err := j.ListTradesByRun(runID)
	require.NoError(t, err)
	assert.Len(t, trades, len(res.Trades))

	curve, err := j.ListEquityByRun(runID)
	require.NoError(t, err)
	require.Len(t, curve, res.Frame.Len())
	assert.True(t, curve[0].Time.Before(curve[len(curve)-1].Time))
}

func TestSQLiteListAndBest(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	res, summary := backtest(t)
	_, err = j.RecordBacktest(res, summary, nil)
	require.NoError(t, err)
	_, err = j.RecordBacktest(res, summary, nil)
	require.NoError(t, err)

	runs, err := j.ListRuns("hold", "FTSE")
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	all, err := j.ListRuns("", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	none, err := j.ListRuns("donchian", "")
	require.NoError(t, err)
	assert.Empty(t, none)

	best, err := j.BestRun("hold", "FTSE")
	require.NoError(t, err)
	assert.InDelta(t, summary.MAR, best.MAR, 1e-9)

	_, err = j.BestRun("donchian", "")
	assert.Error(t, err)
}

func TestSQLiteGetRunMissing(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	_, err = j.GetRun("01ARZ3NDEKTSV4RRFFQ69G5FAV")
	assert.Error(t, err)
}

func TestCSVJournal(t *testing.T) {
	dir := t.TempDir()
	runsPath := filepath.Join(dir, "runs.csv")
	tradesPath := filepath.Join(dir, "trades.csv")
	equityPath := filepath.Join(dir, "equity.csv")

	j, err := NewCSV(runsPath, tradesPath, equityPath)
	require.NoError(t, err)

	now := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordRun(RunRecord{
		RunID: "run-1", System: "dualma", Ticker: "FTSE", Params: "{}",
		Start: now, End: now.AddDate(1, 0, 0),
		InitialEquity: 10000, FinalEquity: 12000, CAGR: 0.2, MAR: 1.1, MaxDrawdown: -0.18,
	}))
	require.NoError(t, j.RecordTrade(TradeRecord{
		TradeID: "trade-1", RunID: "run-1", Ticker: "FTSE", Position: 1,
		EntryPrice: 100, ExitPrice: 110, OpenTime: now, CloseTime: now.AddDate(0, 1, 0),
		Return: 0.1,
	}))
	require.NoError(t, j.RecordEquity(EquityPoint{RunID: "run-1", Time: now, Equity: 10000}))
	require.NoError(t, j.Close())

	for _, path := range []string{runsPath, tradesPath, equityPath} {
		fh, err := os.Open(path)
		require.NoError(t, err)
		rows, err := csv.NewReader(fh).ReadAll()
		fh.Close()
		require.NoError(t, err)
		assert.Len(t, rows, 2, path)
	}
}
