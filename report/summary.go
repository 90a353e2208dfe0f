package report

import (
	"errors"
	"math"
	"time"

	"github.com/quantlab/hindsight/returns"
	"github.com/quantlab/hindsight/strategy"
)

// Options tunes the metric conventions of a summary.
type Options struct {
	// RiskFreeRate is the annual risk-free rate, DefaultRiskFreeRate
	// when zero.
	RiskFreeRate float64

	// Benchmark, when set, is a monthly return series aligned with the
	// backtest months and enables the benchmark Sharpe.
	Benchmark returns.Series
}

// Summary is the full scorecard of one backtest.
type Summary struct {
	System string
	Ticker string
	Start  time.Time
	End    time.Time
	Years  float64

	FinalEquity float64
	Debt        float64

	CAGR   float64
	RAR    float64
	RARErr float64

	MaxDrawdown      float64
	DrawdownDuration time.Duration
	MAR              float64
	RegressedMAR     float64

	SharpePlain     float64
	SharpeRFR       float64
	SharpeCAGR      float64
	SharpeBenchmark float64

	Sortino        float64
	TradeCount     int
	WinRatio       float64
	PositiveMonths float64
}

// Summarize computes the scorecard for a backtest result. Ratio metrics
// that are undefined for the series, such as a Sharpe with zero
// volatility, come back as zero; growth on a non-positive equity ratio
// is a hard error.
func Summarize(res *strategy.Result, opts Options) (*Summary, error) {
	if res == nil || res.Frame == nil || res.Frame.Len() < 2 {
		return nil, errors.New("report: result frame too short to summarize")
	}
	riskFree := opts.RiskFreeRate
	if riskFree == 0 {
		riskFree = DefaultRiskFreeRate
	}

	dates := res.Frame.Dates()
	start, end := dates[0], dates[len(dates)-1]
	years := Years(start, end)

	net := res.FinalEquity - res.FinalDebt
	cagr, err := CAGR(res.InitialEquity, net, years)
	if err != nil {
		return nil, err
	}

	eq, err := res.Frame.Column(strategy.ColEquity)
	if err != nil {
		return nil, err
	}
	debt, err := res.Frame.Column(strategy.ColDebt)
	if err != nil {
		return nil, err
	}
	netCurve := make([]float64, len(eq))
	for i := range eq {
		netCurve[i] = eq[i] - debt[i]
	}
	rar, rarErr, err := RegressedCAGR(dates, netCurve)
	if err != nil {
		return nil, err
	}

	dd, err := returns.Drawdowns(res.Frame, returns.Daily)
	if err != nil {
		return nil, err
	}
	depth, duration := returns.MaxDrawdown(dd)

	mar, regMAR := 0.0, 0.0
	if depth < 0 {
		mar = cagr / -depth
		regMAR = rar / -depth
	}

	monthly, err := returns.Returns(res.Frame, returns.Monthly)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		System:           res.System,
		Ticker:           res.Ticker,
		Start:            start,
		End:              end,
		Years:            years,
		FinalEquity:      res.FinalEquity,
		Debt:             res.FinalDebt,
		CAGR:             cagr,
		RAR:              rar,
		RARErr:           rarErr,
		MaxDrawdown:      depth,
		DrawdownDuration: duration,
		MAR:              mar,
		RegressedMAR:     regMAR,
		TradeCount:       len(res.Trades),
		WinRatio:         WinRatio(res.Trades),
		PositiveMonths:   PositiveShare(monthly),
	}

	if v, err := Sharpe(monthly, SharpePlain, riskFree, nil); err == nil {
		s.SharpePlain = v
	}
	if v, err := Sharpe(monthly, SharpeRFR, riskFree, nil); err == nil {
		s.SharpeRFR = v
	}
	if v, err := Sharpe(monthly, SharpeCAGR, riskFree, nil); err == nil {
		s.SharpeCAGR = v
	}
	if len(opts.Benchmark) > 0 {
		if v, err := Sharpe(monthly, SharpeBenchmark, riskFree, opts.Benchmark); err == nil {
			s.SharpeBenchmark = v
		}
	}
	if v, err := Sortino(monthly, riskFree); err == nil {
		s.Sortino = v
	}
	return s, nil
}

// YearStat bins a backtest into one calendar year.
type YearStat struct {
	Year        int
	Return      float64
	MaxDrawdown float64
}

// Annual splits the equity curve into calendar years. Each year's
// return compounds from the previous year's close; the drawdown is
// measured against the running peak within the whole history.
func Annual(res *strategy.Result) ([]YearStat, error) {
	if res == nil || res.Frame == nil || res.Frame.Len() == 0 {
		return nil, errors.New("report: empty result frame")
	}
	dates := res.Frame.Dates()
	eq, err := res.Frame.Column(strategy.ColEquity)
	if err != nil {
		return nil, err
	}
	debt, err := res.Frame.Column(strategy.ColDebt)
	if err != nil {
		return nil, err
	}

	var out []YearStat
	peak := math.Inf(-1)
	prevClose := math.NaN()
	cur := YearStat{Year: dates[0].Year()}
	open := eq[0] - debt[0]

	flush := func(lastNet float64) {
		if math.IsNaN(prevClose) {
			cur.Return = lastNet/open - 1
		} else {
			cur.Return = lastNet/prevClose - 1
		}
		out = append(out, cur)
		prevClose = lastNet
	}

	for i := range dates {
		net := eq[i] - debt[i]
		if dates[i].Year() != cur.Year {
			flush(eq[i-1] - debt[i-1])
			cur = YearStat{Year: dates[i].Year()}
		}
		if net > peak {
			peak = net
		}
		if dd := net/peak - 1; dd < cur.MaxDrawdown {
			cur.MaxDrawdown = dd
		}
	}
	flush(eq[len(eq)-1] - debt[len(eq)-1])
	return out, nil
}
