package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantlab/hindsight/journal"
	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/report"
	"github.com/quantlab/hindsight/strategy"
)

var (
	runSystem    string
	runParams    []string
	runFrom      string
	runTo        string
	runNoJournal bool
)

var CMDRun = &cobra.Command{
	Use:   "run TICKER",
	Short: "Backtest a system on a ticker's stored history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := args[0]
		store, err := openStore()
		if err != nil {
			return err
		}
		series, err := store.LoadSeries(ticker)
		if err != nil {
			return err
		}
		series, err = slicePeriod(series, runFrom, runTo)
		if err != nil {
			return err
		}

		system := runSystem
		if system == "" {
			system = cfg.Backtest.System
		}
		params, err := parseParams(runParams)
		if err != nil {
			return err
		}
		for k, v := range cfg.Backtest.Params {
			if _, ok := params[k]; !ok {
				params[k] = v
			}
		}

		rules, err := strategy.New(system, params)
		if err != nil {
			return err
		}
		engine := strategy.NewEngine(cfg.Backtest.InitialEquity, log)
		res, err := engine.Run(cmd.Context(), rules, series)
		if err != nil {
			return err
		}
		summary, err := report.Summarize(res, report.Options{RiskFreeRate: cfg.Backtest.RiskFreeRate})
		if err != nil {
			return err
		}

		framePath := store.AnalysisPath(fmt.Sprintf("%s_%s", ticker, system))
		if err := res.Frame.WriteCSV(framePath); err != nil {
			return err
		}
		log.Info("equity frame written", zap.String("path", framePath))

		if !runNoJournal {
			j, err := openJournal()
			if err != nil {
				return err
			}
			defer j.Close()
			runID, err := journal.Record(j, res, summary, params)
			if err != nil {
				return err
			}
			log.Info("run journaled", zap.String("run_id", runID))
		}

		printSummary(summary)
		years, err := report.Annual(res)
		if err != nil {
			return err
		}
		printAnnual(years)
		return nil
	},
}

func init() {
	CMDRun.Flags().StringVarP(&runSystem, "system", "s", "", "system to run (defaults to config)")
	CMDRun.Flags().StringSliceVarP(&runParams, "param", "p", nil, "system param as name=value, repeatable")
	CMDRun.Flags().StringVar(&runFrom, "from", "", "start of the backtest period, YYYY-MM-DD")
	CMDRun.Flags().StringVar(&runTo, "to", "", "end of the backtest period, YYYY-MM-DD")
	CMDRun.Flags().BoolVar(&runNoJournal, "no-journal", false, "skip journaling the run")
}

// slicePeriod trims the series to [from, to]. Either bound may be
// empty, keeping that end open.
func slicePeriod(series *market.Series, fromStr, toStr string) (*market.Series, error) {
	if fromStr == "" && toStr == "" {
		return series, nil
	}
	from := time.Time{}
	to := time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	var err error
	if fromStr != "" {
		if from, err = time.Parse("2006-01-02", fromStr); err != nil {
			return nil, fmt.Errorf("bad --from date %q: %w", fromStr, err)
		}
	}
	if toStr != "" {
		if to, err = time.Parse("2006-01-02", toStr); err != nil {
			return nil, fmt.Errorf("bad --to date %q: %w", toStr, err)
		}
	}
	sliced := series.Slice(from, to)
	if len(sliced.Bars) == 0 {
		return nil, fmt.Errorf("%s has no bars between %s and %s", series.Ticker, fromStr, toStr)
	}
	return sliced, nil
}

func parseParams(kvs []string) (strategy.Params, error) {
	params := strategy.Params{}
	for _, kv := range kvs {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("bad param %q, want name=value", kv)
		}
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("bad param %q: %w", kv, err)
		}
		params[strings.TrimSpace(name)] = f
	}
	return params, nil
}

func printSummary(s *report.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "system\t%s on %s\n", s.System, s.Ticker)
	fmt.Fprintf(w, "period\t%s to %s (%.1f years)\n",
		s.Start.Format("2006-01-02"), s.End.Format("2006-01-02"), s.Years)
	fmt.Fprintf(w, "equity\t%.2f (debt %.2f)\n", s.FinalEquity, s.Debt)
	fmt.Fprintf(w, "cagr\t%.2f%%\n", s.CAGR*100)
	fmt.Fprintf(w, "rar\t%.2f%% +/- %.2f%%\n", s.RAR*100, s.RARErr*100)
	fmt.Fprintf(w, "max drawdown\t%.2f%% over %d days\n",
		s.MaxDrawdown*100, int(s.DrawdownDuration.Hours()/24))
	fmt.Fprintf(w, "mar\t%.2f (%.2f regressed)\n", s.MAR, s.RegressedMAR)
	fmt.Fprintf(w, "sharpe\t%.2f plain, %.2f rfr, %.2f cagr\n",
		s.SharpePlain, s.SharpeRFR, s.SharpeCAGR)
	fmt.Fprintf(w, "sortino\t%.2f\n", s.Sortino)
	fmt.Fprintf(w, "trades\t%d (%.0f%% winners)\n", s.TradeCount, s.WinRatio*100)
	fmt.Fprintf(w, "positive months\t%.0f%%\n", s.PositiveMonths*100)
	w.Flush()
}

func printAnnual(years []report.YearStat) {
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "YEAR\tRETURN\tMAX DRAWDOWN")
	for _, y := range years {
		fmt.Fprintf(w, "%d\t%.2f%%\t%.2f%%\n", y.Year, y.Return*100, y.MaxDrawdown*100)
	}
	w.Flush()
}
