package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantlab/hindsight/analysis"
	"github.com/quantlab/hindsight/market"
	"github.com/quantlab/hindsight/strategy"
)

var CMDSummary = &cobra.Command{
	Use:   "summary",
	Short: "Show the stored datasets, known tickers and available systems",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		book, err := market.LoadTickerBook(store.TickerBookPath())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TICKER\tNAME\tSTORED")
		for _, name := range book.Names() {
			stored := "-"
			if store.HasData(name) {
				if from, to, err := store.StoredPeriod(name); err == nil {
					stored = fmt.Sprintf("%s to %s",
						from.Format("2006-01-02"), to.Format("2006-01-02"))
				}
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, book.Tickers[name], stored)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Println()
		fmt.Println("systems: ", strings.Join(strategy.Names(), ", "))
		fmt.Println("analyses:", strings.Join(analysis.Types(), ", "))
		return nil
	},
}
