// Package report turns a backtest result into performance metrics:
// growth rates, risk-adjusted ratios and trade statistics.
package report

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/quantlab/hindsight/returns"
	"github.com/quantlab/hindsight/strategy"
)

const (
	// TradingDaysPerYear annualizes daily figures.
	TradingDaysPerYear = 250

	// MonthsPerYear annualizes monthly figures.
	MonthsPerYear = 12

	// DefaultRiskFreeRate is the annual rate used by the RFR-adjusted
	// ratios when the caller does not supply one.
	DefaultRiskFreeRate = 0.05
)

// ErrNonPositiveGrowth marks an equity ratio on which a compound growth
// rate is undefined. Callers get this error, never a NaN.
var ErrNonPositiveGrowth = errors.New("report: non-positive equity ratio")

// CAGR is the compound annual growth rate from start to end over the
// given span in years.
func CAGR(start, end, years float64) (float64, error) {
	if years <= 0 {
		return 0, fmt.Errorf("report: span must be positive, got %g years", years)
	}
	if start == 0 {
		return 0, fmt.Errorf("%w: start equity is zero", ErrNonPositiveGrowth)
	}
	ratio := end / start
	if ratio <= 0 || math.IsNaN(ratio) {
		return 0, fmt.Errorf("%w: %g", ErrNonPositiveGrowth, ratio)
	}
	return math.Pow(ratio, 1/years) - 1, nil
}

// Years is the calendar span between two dates in fractional years.
func Years(from, to time.Time) float64 {
	return to.Sub(from).Hours() / 24 / 365.25
}

// RegressedCAGR fits a line to log net equity against time and converts
// the slope to an annual growth rate with its one-sigma error band. The
// fit smooths over the luck of the exact start and end dates.
func RegressedCAGR(dates []time.Time, net []float64) (rar, rarErr float64, err error) {
	if len(dates) != len(net) {
		return 0, 0, fmt.Errorf("report: %d dates for %d samples", len(dates), len(net))
	}
	if len(net) < 3 {
		return 0, 0, errors.New("report: need at least three samples for a regression")
	}
	xs := make([]float64, len(net))
	ys := make([]float64, len(net))
	for i, v := range net {
		if v <= 0 {
			return 0, 0, fmt.Errorf("%w: net equity %g at %s",
				ErrNonPositiveGrowth, v, dates[i].Format("2006-01-02"))
		}
		xs[i] = Years(dates[0], dates[i])
		ys[i] = math.Log(v)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)

	// Residual standard error of the slope.
	n := float64(len(xs))
	var rss, sxx float64
	mx := stat.Mean(xs, nil)
	for i := range xs {
		r := ys[i] - alpha - beta*xs[i]
		rss += r * r
		dx := xs[i] - mx
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, 0, errors.New("report: all samples on the same date")
	}
	betaErr := math.Sqrt(rss / (n - 2) / sxx)

	rar = math.Exp(beta) - 1
	rarErr = math.Exp(beta) * betaErr
	return rar, rarErr, nil
}

// SharpeFlavor selects the excess-return convention of a Sharpe ratio.
type SharpeFlavor int

const (
	// SharpePlain divides the raw mean return by its deviation.
	SharpePlain SharpeFlavor = iota

	// SharpeRFR subtracts the risk-free rate from each period first.
	SharpeRFR

	// SharpeCAGR puts the compound growth rate over the deviation
	// instead of the arithmetic mean.
	SharpeCAGR

	// SharpeBenchmark measures against a benchmark return series.
	SharpeBenchmark
)

// MonthlyRate converts an annual rate to the monthly rate that
// compounds to it, (1+r)^(1/12) - 1.
func MonthlyRate(annual float64) float64 {
	return math.Pow(1+annual, 1.0/MonthsPerYear) - 1
}

// Sharpe computes the annualized Sharpe ratio of a monthly return
// series. The benchmark series is required only for SharpeBenchmark and
// must align one to one with rets.
func Sharpe(rets returns.Series, flavor SharpeFlavor, riskFree float64, benchmark returns.Series) (float64, error) {
	if len(rets) < 2 {
		return 0, errors.New("report: need at least two returns for a sharpe ratio")
	}
	vals := rets.Values()

	excess := make([]float64, len(vals))
	switch flavor {
	case SharpePlain:
		copy(excess, vals)
	case SharpeRFR:
		monthly := MonthlyRate(riskFree)
		for i, v := range vals {
			excess[i] = v - monthly
		}
	case SharpeCAGR:
		growth := 1.0
		for _, v := range vals {
			growth *= 1 + v
		}
		years := float64(len(vals)) / MonthsPerYear
		cagr, err := CAGR(1, growth, years)
		if err != nil {
			return 0, err
		}
		sd := stat.StdDev(vals, nil) * math.Sqrt(MonthsPerYear)
		if sd == 0 {
			return 0, errors.New("report: zero volatility")
		}
		return (cagr - riskFree) / sd, nil
	case SharpeBenchmark:
		if len(benchmark) != len(rets) {
			return 0, fmt.Errorf("report: benchmark has %d returns, want %d", len(benchmark), len(rets))
		}
		for i, v := range vals {
			excess[i] = v - benchmark[i].Value
		}
	default:
		return 0, fmt.Errorf("report: unknown sharpe flavor %d", flavor)
	}

	sd := stat.StdDev(excess, nil)
	if sd == 0 {
		return 0, errors.New("report: zero volatility")
	}
	return stat.Mean(excess, nil) / sd * math.Sqrt(MonthsPerYear), nil
}

// Sortino is the annualized ratio of mean excess return to downside
// deviation, computed on monthly returns against the risk-free rate.
func Sortino(rets returns.Series, riskFree float64) (float64, error) {
	if len(rets) < 2 {
		return 0, errors.New("report: need at least two returns for a sortino ratio")
	}
	target := MonthlyRate(riskFree)
	var mean, downsq float64
	for _, p := range rets {
		mean += p.Value - target
		if d := p.Value - target; d < 0 {
			downsq += d * d
		}
	}
	mean /= float64(len(rets))
	down := math.Sqrt(downsq / float64(len(rets)))
	if down == 0 {
		return 0, errors.New("report: no downside deviation")
	}
	return mean / down * math.Sqrt(MonthsPerYear), nil
}

// WinRatio is the fraction of trades that closed at a profit.
func WinRatio(trades []strategy.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.Win() {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// PositiveShare is the fraction of periods with a positive return.
func PositiveShare(rets returns.Series) float64 {
	if len(rets) == 0 {
		return 0
	}
	pos := 0
	for _, p := range rets {
		if p.Value > 0 {
			pos++
		}
	}
	return float64(pos) / float64(len(rets))
}
