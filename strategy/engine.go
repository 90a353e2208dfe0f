package strategy

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/quantlab/hindsight/dataset"
	"github.com/quantlab/hindsight/market"
)

// Frame columns written by the engine.
const (
	ColPosition = "Position"
	ColEquity   = "Equity"
	ColDebt     = "Debt"
)

// DefaultInitialEquity is the notional starting pot for a backtest.
const DefaultInitialEquity = 10000.0

// Trade is one round trip from entry to exit.
type Trade struct {
	EntryDate  time.Time
	ExitDate   time.Time
	Position   int
	EntryPrice float64
	ExitPrice  float64
	Return     float64
	Stopped    bool
}

// Win reports whether the trade closed at a profit.
func (t Trade) Win() bool { return t.Return > 0 }

// Result is the full outcome of one backtest.
type Result struct {
	System        string
	Ticker        string
	InitialEquity float64
	FinalEquity   float64
	FinalDebt     float64
	Frame         *dataset.Frame
	Trades        []Trade
}

// Engine runs a system over a series bar by bar. Equity compounds with
// the close-to-close return while a position is open. When a losing run
// would push equity to zero or below, the shortfall moves to a debt
// ledger and equity restarts at the initial pot, so equity itself stays
// strictly positive and downstream ratio metrics stay real numbers.
type Engine struct {
	InitialEquity float64
	log           *zap.Logger
}

func NewEngine(initial float64, log *zap.Logger) *Engine {
	if initial <= 0 {
		initial = DefaultInitialEquity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{InitialEquity: initial, log: log}
}

// Run backtests the rules over the series and returns the equity curve
// and trade list.
func (e *Engine) Run(ctx context.Context, rules Rules, series *market.Series) (*Result, error) {
	if series == nil || len(series.Bars) == 0 {
		return nil, errors.New("strategy: empty series")
	}
	rules.Reset()

	n := len(series.Bars)
	positions := make([]float64, n)
	equities := make([]float64, n)
	debts := make([]float64, n)

	pos := 0
	equity := e.InitialEquity
	debt := 0.0
	stop := math.NaN()
	var entry Trade
	var trades []Trade

	closeTrade := func(b market.Bar, stopped bool) {
		exit := b.Close
		if stopped && !math.IsNaN(stop) {
			exit = stop
		}
		t := Trade{
			EntryDate:  entry.EntryDate,
			ExitDate:   b.Date,
			Position:   pos,
			EntryPrice: entry.EntryPrice,
			ExitPrice:  exit,
			Return:     float64(pos) * (exit/entry.EntryPrice - 1),
			Stopped:    stopped,
		}
		trades = append(trades, t)
		if obs, ok := rules.(TradeObserver); ok {
			obs.OnExit(t)
		}
		pos = 0
		stop = math.NaN()
	}

	prevClose := math.NaN()
	for i, b := range series.Bars {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Yesterday's position earns today's close return.
		if pos != 0 && !math.IsNaN(prevClose) && prevClose != 0 {
			equity *= 1 + float64(pos)*(b.Close/prevClose-1)
		}
		if equity <= 0 {
			shortfall := e.InitialEquity - equity
			debt += shortfall
			equity = e.InitialEquity
			e.log.Warn("equity wiped out, rolling shortfall into debt",
				zap.String("system", rules.Name()),
				zap.Time("date", b.Date),
				zap.Float64("debt", debt))
		}

		rules.Update(b)

		if rules.Ready() {
			switch {
			case pos > 0 && !math.IsNaN(stop) && b.Close <= stop:
				closeTrade(b, true)
			case pos < 0 && !math.IsNaN(stop) && b.Close >= stop:
				closeTrade(b, true)
			case pos > 0 && rules.ExitLong(b):
				closeTrade(b, false)
			case pos < 0 && rules.ExitShort(b):
				closeTrade(b, false)
			}

			if pos == 0 {
				switch {
				case rules.GoLong(b):
					pos = 1
					entry = Trade{EntryDate: b.Date, EntryPrice: b.Close}
					stop = rules.LongStop(b.Close)
				case rules.GoShort(b):
					pos = -1
					entry = Trade{EntryDate: b.Date, EntryPrice: b.Close}
					stop = rules.ShortStop(b.Close)
				}
			}
		}

		positions[i] = float64(pos)
		equities[i] = equity
		debts[i] = debt
		prevClose = b.Close
	}

	// A position still open on the last bar closes at the final print so
	// the trade list accounts for every entry.
	if pos != 0 {
		closeTrade(series.Bars[n-1], false)
	}

	frame, err := series.Frame()
	if err != nil {
		return nil, err
	}
	if err := frame.SetColumn(ColPosition, positions); err != nil {
		return nil, err
	}
	if err := frame.SetColumn(ColEquity, equities); err != nil {
		return nil, err
	}
	if err := frame.SetColumn(ColDebt, debts); err != nil {
		return nil, err
	}

	res := &Result{
		System:        rules.Name(),
		Ticker:        series.Ticker,
		InitialEquity: e.InitialEquity,
		FinalEquity:   equity,
		FinalDebt:     debt,
		Frame:         frame,
		Trades:        trades,
	}
	e.log.Debug("backtest complete",
		zap.String("system", res.System),
		zap.String("ticker", res.Ticker),
		zap.Float64("equity", res.FinalEquity),
		zap.Float64("debt", res.FinalDebt),
		zap.Int("trades", len(res.Trades)))
	return res, nil
}
