package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/quantlab/hindsight/dataset"
	"github.com/quantlab/hindsight/indicators"
	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/strategy"
)

// Trade is one round trip in one market, with the weight it carried in
// the shared account.
type Trade struct {
	strategy.Trade
	Ticker string
	Weight float64
}

// Result is the outcome of a portfolio run.
type Result struct {
	System        string
	Tickers       []string
	InitialEquity float64
	FinalEquity   float64
	FinalDebt     float64
	Frame         *dataset.Frame
	Trades        []Trade
}

// Runner backtests one system across several markets on one account.
// Each market gets its own fresh copy of the rules; position weights
// come from the sizer, and all profits and losses land on the shared
// equity, with the same debt ledger the single-market engine keeps.
type Runner struct {
	Factory       func() (strategy.Rules, error)
	Sizer         *Sizer
	InitialEquity float64

	// VolLookback is the N lookback used for sizing, 20 when zero.
	VolLookback int

	log *zap.Logger
}

func NewRunner(factory func() (strategy.Rules, error), sizer *Sizer, initial float64, log *zap.Logger) (*Runner, error) {
	if factory == nil {
		return nil, errors.New("portfolio: nil rules factory")
	}
	if sizer == nil {
		sizer = DefaultSizer()
	}
	if err := sizer.validate(); err != nil {
		return nil, err
	}
	if initial <= 0 {
		initial = strategy.DefaultInitialEquity
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{Factory: factory, Sizer: sizer, InitialEquity: initial, log: log}, nil
}

// PositionColumn is the frame column holding a market's signed weight.
func PositionColumn(ticker string) string {
	return fmt.Sprintf("%s_%s", ticker, strategy.ColPosition)
}

type holding struct {
	pos    int
	weight float64
	entry  strategy.Trade
	stop   float64
}

type marketState struct {
	ticker    string
	bars      []market.Bar
	cursor    int
	rules     strategy.Rules
	vol       *indicators.TurtleN
	open      holding
	prevClose float64
}

func (r *Runner) Run(ctx context.Context, series []*market.Series) (*Result, error) {
	if len(series) == 0 {
		return nil, errors.New("portfolio: no markets to run")
	}

	volLookback := r.VolLookback
	if volLookback == 0 {
		volLookback = 20
	}

	var systemName string
	states := make([]*marketState, 0, len(series))
	tickers := make([]string, 0, len(series))
	for _, s := range series {
		if len(s.Bars) == 0 {
			return nil, fmt.Errorf("portfolio: %s has no bars", s.Ticker)
		}
		rules, err := r.Factory()
		if err != nil {
			return nil, err
		}
		rules.Reset()
		systemName = rules.Name()
		states = append(states, &marketState{
			ticker:    s.Ticker,
			bars:      s.Bars,
			rules:     rules,
			vol:       indicators.NewTurtleN(volLookback),
			open:      holding{stop: math.NaN()},
			prevClose: math.NaN(),
		})
		tickers = append(tickers, s.Ticker)
	}
	sort.Strings(tickers)

	dates := unionDates(series)
	n := len(dates)
	equities := make([]float64, n)
	debts := make([]float64, n)
	positions := make(map[string][]float64, len(states))
	for _, st := range states {
		positions[st.ticker] = make([]float64, n)
	}

	equity := r.InitialEquity
	debt := 0.0
	var trades []Trade

	closeTrade := func(st *marketState, b market.Bar, stopped bool) {
		exit := b.Close
		if stopped && !math.IsNaN(st.open.stop) {
			exit = st.open.stop
		}
		t := Trade{
			Trade: strategy.Trade{
				EntryDate:  st.open.entry.EntryDate,
				ExitDate:   b.Date,
				Position:   st.open.pos,
				EntryPrice: st.open.entry.EntryPrice,
				ExitPrice:  exit,
				Return:     float64(st.open.pos) * (exit/st.open.entry.EntryPrice - 1),
				Stopped:    stopped,
			},
			Ticker: st.ticker,
			Weight: st.open.weight,
		}
		trades = append(trades, t)
		if obs, ok := st.rules.(strategy.TradeObserver); ok {
			obs.OnExit(t.Trade)
		}
		st.open = holding{stop: math.NaN()}
	}

	for di, day := range dates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// First pass: mark to market every open position.
		dayReturn := 0.0
		for _, st := range states {
			b, ok := st.barOn(day)
			if !ok {
				continue
			}
			if st.open.pos != 0 && !math.IsNaN(st.prevClose) && st.prevClose != 0 {
				dayReturn += st.open.weight * float64(st.open.pos) * (b.Close/st.prevClose - 1)
			}
		}
		equity *= 1 + dayReturn
		if equity <= 0 {
			shortfall := r.InitialEquity - equity
			debt += shortfall
			equity = r.InitialEquity
			r.log.Warn("portfolio equity wiped out, rolling shortfall into debt",
				zap.String("system", systemName),
				zap.Time("date", day),
				zap.Float64("debt", debt))
		}

		// Second pass: signals, exits and entries per market.
		for _, st := range states {
			b, ok := st.barOn(day)
			if !ok {
				continue
			}
			st.rules.Update(b)
			st.vol.Update(b)

			if st.rules.Ready() {
				h := &st.open
				switch {
				case h.pos > 0 && !math.IsNaN(h.stop) && b.Close <= h.stop:
					closeTrade(st, b, true)
				case h.pos < 0 && !math.IsNaN(h.stop) && b.Close >= h.stop:
					closeTrade(st, b, true)
				case h.pos > 0 && st.rules.ExitLong(b):
					closeTrade(st, b, false)
				case h.pos < 0 && st.rules.ExitShort(b):
					closeTrade(st, b, false)
				}

				if st.open.pos == 0 && st.vol.Ready() {
					headroom := r.Sizer.MaxTotal - grossExposure(states)
					switch {
					case st.rules.GoLong(b):
						st.enter(1, b, r.Sizer, st.rules.LongStop(b.Close), headroom)
					case st.rules.GoShort(b):
						st.enter(-1, b, r.Sizer, st.rules.ShortStop(b.Close), headroom)
					}
				}
			}

			positions[st.ticker][di] = float64(st.open.pos) * st.open.weight
			st.prevClose = b.Close
			st.cursor++
		}

		equities[di] = equity
		debts[di] = debt
	}

	// Close anything still open at the final prints.
	for _, st := range states {
		if st.open.pos != 0 {
			closeTrade(st, st.bars[len(st.bars)-1], false)
		}
	}

	frame, err := dataset.New(dates)
	if err != nil {
		return nil, err
	}
	if err := frame.SetColumn(strategy.ColEquity, equities); err != nil {
		return nil, err
	}
	if err := frame.SetColumn(strategy.ColDebt, debts); err != nil {
		return nil, err
	}
	for ticker, col := range positions {
		if err := frame.SetColumn(PositionColumn(ticker), col); err != nil {
			return nil, err
		}
	}

	res := &Result{
		System:        systemName,
		Tickers:       tickers,
		InitialEquity: r.InitialEquity,
		FinalEquity:   equity,
		FinalDebt:     debt,
		Frame:         frame,
		Trades:        trades,
	}
	r.log.Debug("portfolio run complete",
		zap.String("system", res.System),
		zap.Int("markets", len(tickers)),
		zap.Float64("equity", res.FinalEquity),
		zap.Float64("debt", res.FinalDebt),
		zap.Int("trades", len(res.Trades)))
	return res, nil
}

// unionDates merges every market's calendar into one sorted axis, so
// markets with different holidays still line up.
func unionDates(series []*market.Series) []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, s := range series {
		for _, b := range s.Bars {
			if _, ok := seen[b.Date]; ok {
				continue
			}
			seen[b.Date] = struct{}{}
			out = append(out, b.Date)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (st *marketState) barOn(day time.Time) (market.Bar, bool) {
	if st.cursor >= len(st.bars) {
		return market.Bar{}, false
	}
	b := st.bars[st.cursor]
	if !b.Date.Equal(day) {
		return market.Bar{}, false
	}
	return b, true
}

// grossExposure is the summed weight of every open position, long and
// short alike.
func grossExposure(states []*marketState) float64 {
	g := 0.0
	for _, st := range states {
		if st.open.pos != 0 {
			g += st.open.weight
		}
	}
	return g
}

func (st *marketState) enter(pos int, b market.Bar, sizer *Sizer, stop, headroom float64) {
	w := sizer.Weight(b.Close, st.vol.Value())
	if w > headroom {
		w = headroom
	}
	if w <= 0 {
		return
	}
	st.open = holding{
		pos:    pos,
		weight: w,
		entry:  strategy.Trade{EntryDate: b.Date, EntryPrice: b.Close},
		stop:   stop,
	}
}
