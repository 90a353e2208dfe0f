package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantlab/hindsight/journal"
)

var (
	reportSystem string
	reportTicker string
)

var CMDReport = &cobra.Command{
	Use:   "report [RUN_ID]",
	Short: "List journaled runs, or show one run's trades",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Journal.Type != "sqlite" {
			return fmt.Errorf("report needs the sqlite journal, config has %q", cfg.Journal.Type)
		}
		j, err := journal.NewSQLite(cfg.Journal.DBPath)
		if err != nil {
			return err
		}
		defer j.Close()

		if len(args) == 1 {
			return showRun(j, args[0])
		}
		return listRuns(j)
	},
}

func init() {
	CMDReport.Flags().StringVarP(&reportSystem, "system", "s", "", "filter by system")
	CMDReport.Flags().StringVarP(&reportTicker, "ticker", "t", "", "filter by ticker")
}

func listRuns(j *journal.SQLite) error {
	runs, err := j.ListRuns(reportSystem, reportTicker)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSYSTEM\tTICKER\tCAGR\tMAR\tMAX DD\tFINAL")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f%%\t%.2f\t%.2f%%\t%.2f\n",
			r.RunID, r.System, r.Ticker, r.CAGR*100, r.MAR, r.MaxDrawdown*100, r.FinalEquity-r.FinalDebt)
	}
	return w.Flush()
}

func showRun(j *journal.SQLite, runID string) error {
	run, err := j.GetRun(runID)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %s on %s, params %s\n", run.RunID, run.System, run.Ticker, run.Params)
	fmt.Printf("%s to %s, cagr %.2f%%, mar %.2f, max drawdown %.2f%%\n",
		run.Start.Format("2006-01-02"), run.End.Format("2006-01-02"),
		run.CAGR*100, run.MAR, run.MaxDrawdown*100)

	trades, err := j.ListTradesByRun(runID)
	if err != nil {
		return err
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OPEN\tCLOSE\tSIDE\tENTRY\tEXIT\tRETURN\tSTOPPED")
	for _, t := range trades {
		side := "long"
		if t.Position < 0 {
			side = "short"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f%%\t%v\n",
			t.OpenTime.Format("2006-01-02"), t.CloseTime.Format("2006-01-02"),
			side, t.EntryPrice, t.ExitPrice, t.Return*100, t.Stopped)
	}
	return w.Flush()
}
