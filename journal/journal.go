// Package journal persists backtest runs so sweeps and reruns can be
// compared long after the session that produced them.
package journal

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/quantlab/hindsight/pkg/id"
	"github.com/quantlab/hindsight/report"
	"github.com/quantlab/hindsight/strategy"
)

// RunRecord is the header row of one backtest: identity, inputs and
// headline metrics.
type RunRecord struct {
	RunID         string
	System        string
	Ticker        string
	Params        string // JSON object of the system params
	Start         time.Time
	End           time.Time
	InitialEquity float64
	FinalEquity   float64
	FinalDebt     float64
	CAGR          float64
	MAR           float64
	MaxDrawdown   float64
	CreatedAt     time.Time
}

// TradeRecord is one round trip belonging to a run.
type TradeRecord struct {
	TradeID    string
	RunID      string
	Ticker     string
	Position   int
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	Return     float64
	Stopped    bool
}

// EquityPoint is one sample of a run's equity curve.
type EquityPoint struct {
	RunID  string
	Time   time.Time
	Equity float64
	Debt   float64
}

// Journal stores runs with their trades and equity curves.
type Journal interface {
	RecordRun(RunRecord) error
	RecordTrade(TradeRecord) error
	RecordEquity(EquityPoint) error
	Close() error
}

// Record stores a full backtest through any Journal and returns the new
// run id. The SQLite journal has a transactional fast path in
// RecordBacktest; this one works record by record.
func Record(j Journal, res *strategy.Result, summary *report.Summary, params strategy.Params) (string, error) {
	if res == nil || summary == nil {
		return "", errors.New("journal: nil result or summary")
	}
	if sq, ok := j.(*SQLite); ok {
		return sq.RecordBacktest(res, summary, params)
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	runID := id.New()
	if err := j.RecordRun(RunRecord{
		RunID:         runID,
		System:        res.System,
		Ticker:        res.Ticker,
		Params:        string(encoded),
		Start:         summary.Start,
		End:           summary.End,
		InitialEquity: res.InitialEquity,
		FinalEquity:   res.FinalEquity,
		FinalDebt:     res.FinalDebt,
		CAGR:          summary.CAGR,
		MAR:           summary.MAR,
		MaxDrawdown:   summary.MaxDrawdown,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		return "", err
	}
	for _, t := range res.Trades {
		if err := j.RecordTrade(TradeRecord{
			TradeID:    id.New(),
			RunID:      runID,
			Ticker:     res.Ticker,
			Position:   t.Position,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			OpenTime:   t.EntryDate,
			CloseTime:  t.ExitDate,
			Return:     t.Return,
			Stopped:    t.Stopped,
		}); err != nil {
			return "", err
		}
	}

	dates := res.Frame.Dates()
	eq, err := res.Frame.Column(strategy.ColEquity)
	if err != nil {
		return "", err
	}
	debt, err := res.Frame.Column(strategy.ColDebt)
	if err != nil {
		return "", err
	}
	for i := range dates {
		if err := j.RecordEquity(EquityPoint{
			RunID: runID, Time: dates[i], Equity: eq[i], Debt: debt[i],
		}); err != nil {
			return "", err
		}
	}
	return runID, nil
}
